package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/canonical/surrealair"
	"github.com/canonical/surrealair/internal/expr"
	"github.com/canonical/surrealair/internal/fragment"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [file|-]",
		Short: "Compile statements to a parameterized query",
		Long: `Compile statements to a parameterized query.

The query text is printed followed by the value bound to every parameter.
With --inline the values are written into the text instead. Statements are
read from standard input when no file or "-" is given.

Example:
  echo 'let name = "Tobie"; SELECT * FROM user WHERE name = name;' | surrealair compile`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(rootOpts, cmd, args)
		},
	}

	cmd.Flags().Bool("inline", false, "write values into the query text")
	cobra.CheckErr(rootOpts.Viper.BindPFlag("inline", cmd.Flags().Lookup("inline")))

	return cmd
}

func runCompile(opts *RootOptions, cmd *cobra.Command, args []string) error {
	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	src, err := readSource(cmd.InOrStdin(), name)
	if err != nil {
		return err
	}

	var compileOpts []surrealair.Option
	if opts.Config.Names == "uuid" {
		compileOpts = append(compileOpts, surrealair.WithUUIDNames())
	}
	stmt, err := surrealair.Compile(src, compileOpts...)
	if err != nil {
		printDiagnostic(cmd.ErrOrStderr(), src, err)
		return WrapExitError(ExitFailure, "cannot compile "+name, err)
	}
	opts.Logger.Info("compiled", "source", name, "bindings", len(stmt.Bindings()), "slots", len(stmt.Slots()))

	out := cmd.OutOrStdout()
	if opts.Config.Inline {
		fmt.Fprintln(out, stmt.String())
		return nil
	}
	fmt.Fprintln(out, stmt.Query())
	if bindings := stmt.Bindings(); len(bindings) > 0 {
		fmt.Fprintln(out)
		for _, b := range bindings {
			fmt.Fprintf(out, "%s = %s\n", b.Placeholder(), fragment.FormatLiteral(b.Value))
		}
	}
	return nil
}

// readSource reads the named file, or r for "-".
func readSource(r io.Reader, name string) (string, error) {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", WrapExitError(ExitCommandError, "cannot read "+name, err)
	}
	return string(data), nil
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	caretColor = color.New(color.FgCyan, color.Bold)
)

// printDiagnostic writes the source line of a syntax error with a caret
// under the offending column.
func printDiagnostic(w io.Writer, src string, err error) {
	var serr *expr.SyntaxError
	if !errors.As(err, &serr) {
		return
	}
	lines := strings.Split(src, "\n")
	if serr.Line < 1 || serr.Line > len(lines) {
		return
	}
	line := strings.TrimRight(lines[serr.Line-1], "\r")
	fmt.Fprintf(w, "%s %s\n", errorColor.Sprint("syntax error:"), serr.Msg)
	fmt.Fprintf(w, "%4d | %s\n", serr.Line, line)
	fmt.Fprintf(w, "     | %s%s\n", strings.Repeat(" ", max(serr.Column-1, 0)), caretColor.Sprint("^"))
}
