package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/canonical/surrealair"
)

// Config holds the CLI configuration, read from surrealair.yaml, the
// SURREALAIR_* environment variables and the command line.
type Config struct {
	LogLevel slog.Level
	// Inline writes values into the query text instead of binding them.
	Inline bool
	// Names is the result name generator, "counter" or "uuid".
	Names string
	// Schema lists the declaration files used when none are given.
	Schema    []string
	CacheSize int
}

// ValidNames are the supported result name generators.
var ValidNames = []string{"counter", "uuid"}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SURREALAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "warn")
	v.SetDefault("inline", false)
	v.SetDefault("names", "counter")
	v.SetDefault("schema", []string{})
	v.SetDefault("cache-size", surrealair.DefaultCacheSize)
	return v
}

// LoadConfig reads the configuration. An explicit file must exist, the
// default surrealair.yaml in the working directory is optional.
func LoadConfig(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("cannot read config %q", file), err)
		}
	} else {
		v.SetConfigName("surrealair")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, WrapExitError(ExitCommandError, "cannot read config", err)
			}
		}
	}

	cfg := &Config{
		Inline:    v.GetBool("inline"),
		Names:     v.GetString("names"),
		Schema:    v.GetStringSlice("schema"),
		CacheSize: v.GetInt("cache-size"),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid log level %q", v.GetString("log-level")))
	}
	if !isValid(cfg.Names, ValidNames) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid names %q: must be one of %v", cfg.Names, ValidNames))
	}
	if cfg.CacheSize < 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid cache size %d", cfg.CacheSize))
	}
	return cfg, nil
}

// newLogger returns a text logger writing to w at the configured level.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isValid(value string, valid []string) bool {
	for _, v := range valid {
		if v == value {
			return true
		}
	}
	return false
}
