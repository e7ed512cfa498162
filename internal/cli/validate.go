package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keyplan/keyplan/internal/derive"
	"github.com/keyplan/keyplan/internal/schema"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	Diagnostics []derive.Diagnostic `json:"diagnostics,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definitions>",
		Short: "Validate type definitions without storing plans",
		Long: `Run the full derivation rule set over a CUE definition file or
directory and report every diagnostic, without persisting anything.

Exit code 1 means at least one error-severity diagnostic; warnings alone
exit 0.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reg, loadErr := LoadTypes(path)
	if loadErr != nil {
		formatter.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, loadErr.Code, loadErr)
	}
	formatter.VerboseLog("Compiled %d type(s) from %s", len(reg.Types()), path)

	rep := &derive.List{}
	caps := []schema.Capability{schema.CapabilityEncode, schema.CapabilityDecode}
	if _, err := deriveAll(reg, rep, "", caps); err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
	}

	result := ValidationResult{Valid: !rep.HasErrors(), Diagnostics: rep.Diags}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printDiagnosticsText(formatter, result.Diagnostics)
		if result.Valid {
			fmt.Fprintln(formatter.Writer, "✓ All definitions valid")
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %d error(s)\n", len(rep.Errors()))
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(rep.Errors())))
	}
	return nil
}
