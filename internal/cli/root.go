package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/canonical/surrealair"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // invalid source or declarations
	ExitCommandError = 2 // bad flags, configuration or files
)

// ExitError is an error with the exit code the process should end with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code for err, ExitFailure unless err is an
// ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// RootOptions holds the state shared by all commands.
type RootOptions struct {
	ConfigFile string
	Viper      *viper.Viper
	// Config and Logger are set once flags are parsed.
	Config *Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command of the surrealair CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Viper: newViper()}

	cmd := &cobra.Command{
		Use:   "surrealair",
		Short: "Compile statements and record declarations to SurrealQL",
		Long: `surrealair compiles statements written in its statement language to
parameterized SurrealQL, and record declarations to table and field
definitions.

Configuration is read from surrealair.yaml in the working directory (or the
file given with --config) and from SURREALAIR_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.Viper, opts.ConfigFile)
			if err != nil {
				return err
			}
			opts.Config = cfg
			opts.Logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			surrealair.SetLogger(opts.Logger)
			if err := surrealair.SetCacheSize(cfg.CacheSize); err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Logger.Debug("configuration loaded", "file", opts.Viper.ConfigFileUsed(), "names", cfg.Names)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "configuration file (default ./surrealair.yaml)")
	cmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	cobra.CheckErr(opts.Viper.BindPFlag("log-level", cmd.PersistentFlags().Lookup("log-level")))

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}
