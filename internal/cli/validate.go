package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Entities []string `json:"entities,omitempty"`
	Paths    []string `json:"paths,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <mapping-dir>",
		Short: "Compile and validate a mapping directory",
		Long: `Compile CUE mapping documents and run structural validation.

Checks relation targets, foreign keys, qualifier columns, embedded
constraints, and relation cycles without touching any database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, mappingDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	result, err := LoadMapping(mappingDir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(exitCodeFor(loadErr), loadErr.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, mappingDir)

	out := ValidationResult{Valid: true, Entities: result.Schema.Entities()}
	for _, ent := range out.Entities {
		paths, _ := result.Schema.RelationPaths(ent)
		for _, p := range paths {
			out.Paths = append(out.Paths, p.String())
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	fmt.Fprintf(formatter.Writer, "mapping valid: %d entities, %d relation paths\n",
		len(out.Entities), len(out.Paths))
	if formatter.Verbose {
		fmt.Fprintln(formatter.Writer, strings.Join(out.Paths, "\n"))
	}
	return nil
}

// exitCodeFor classifies a load error: unreadable inputs are command errors,
// anything the compiler or validator rejected is a validation failure.
func exitCodeFor(err *LoadError) int {
	switch err.Code {
	case ErrCodeNotFound, ErrCodeScanError, ErrCodeNoFiles, ErrCodeBadFixture:
		return ExitCommandError
	default:
		return ExitFailure
	}
}
