package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keyplan/keyplan/internal/derive"
	"github.com/keyplan/keyplan/internal/plan"
	"github.com/keyplan/keyplan/internal/schema"
	"github.com/keyplan/keyplan/internal/store"
)

// PlanResult is one derived (type, capability) outcome.
type PlanResult struct {
	Type       string `json:"type"`
	Capability string `json:"capability"`
	PlanID     string `json:"plan_id,omitempty"`
	Rendered   string `json:"rendered,omitempty"`
	Aborted    bool   `json:"aborted,omitempty"`
}

// DeriveResult is the full outcome of a derive run.
type DeriveResult struct {
	Plans       []PlanResult        `json:"plans"`
	Diagnostics []derive.Diagnostic `json:"diagnostics,omitempty"`
	RunID       string              `json:"run_id,omitempty"`

	bodies []*plan.Body // successful bodies, in Plans order, for persistence
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath     string
		typeName   string
		capability string
	)

	cmd := &cobra.Command{
		Use:   "derive <definitions>",
		Short: "Derive encode/decode plans for declared types",
		Long: `Derive encode and decode plans for every type declared in a CUE
definition file or directory.

Each type gets one plan per derived capability. Validation failures abort
only the affected (type, capability) pair; everything else still derives.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(rootOpts, args[0], dbPath, typeName, capability, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "persist plans and diagnostics to this SQLite database")
	cmd.Flags().StringVar(&typeName, "type", "", "derive only the named type")
	cmd.Flags().StringVar(&capability, "capability", "", "derive only one capability (encode or decode)")
	return cmd
}

func runDerive(opts *RootOptions, path, dbPath, typeName, capability string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	caps := []schema.Capability{schema.CapabilityEncode, schema.CapabilityDecode}
	if capability != "" {
		c, err := schema.ParseCapability(capability)
		if err != nil {
			formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
		}
		caps = []schema.Capability{c}
	}

	reg, loadErr := LoadTypes(path)
	if loadErr != nil {
		formatter.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, loadErr.Code, loadErr)
	}
	formatter.VerboseLog("Compiled %d type(s) from %s", len(reg.Types()), path)

	rep := &derive.List{}
	result, err := deriveAll(reg, rep, typeName, caps)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
	}
	result.Diagnostics = rep.Diags

	if dbPath != "" {
		runID, err := persistRun(cmd.Context(), dbPath, path, result, rep)
		if err != nil {
			formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
		}
		result.RunID = runID
		formatter.VerboseLog("Stored run %s in %s", runID, dbPath)
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printDeriveText(formatter, result)
	}

	if rep.HasErrors() {
		return NewExitError(ExitFailure, fmt.Sprintf("derivation failed with %d error(s)", len(rep.Errors())))
	}
	return nil
}

// deriveAll derives every requested capability of every registered type, in
// registration order. A per-pair abort is recorded, not returned: only
// infrastructure problems surface as errors.
func deriveAll(reg *schema.Registry, rep derive.Reporter, only string, caps []schema.Capability) (*DeriveResult, error) {
	if only != "" {
		if _, ok := reg.LookupName(only); !ok {
			return nil, fmt.Errorf("unknown type %q", only)
		}
	}

	d := derive.New(reg, rep)
	result := &DeriveResult{}

	for _, t := range reg.Types() {
		if only != "" && t.Name != only {
			continue
		}
		for _, c := range caps {
			if !t.Derives.Has(c) {
				continue
			}
			body, err := d.Derive(t.ID, c)
			if err != nil {
				if derive.IsAborted(err) {
					result.Plans = append(result.Plans, PlanResult{
						Type: t.Name, Capability: c.String(), Aborted: true,
					})
					continue
				}
				return nil, err
			}
			id, err := plan.BodyID(body)
			if err != nil {
				return nil, err
			}
			result.Plans = append(result.Plans, PlanResult{
				Type:       t.Name,
				Capability: c.String(),
				PlanID:     id,
				Rendered:   plan.Render(body),
			})
			result.bodies = append(result.bodies, body)
		}
	}
	return result, nil
}

// persistRun writes a run, its successful plans, and all diagnostics.
func persistRun(ctx context.Context, dbPath, source string, result *DeriveResult, rep *derive.List) (string, error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	runID, err := s.BeginRun(ctx, source)
	if err != nil {
		return "", err
	}

	for _, body := range result.bodies {
		if _, _, err := s.WritePlan(ctx, runID, body); err != nil {
			return "", err
		}
	}

	if err := s.WriteDiagnostics(ctx, runID, rep.Diags); err != nil {
		return "", err
	}
	return runID, nil
}

func printDeriveText(f *OutputFormatter, result *DeriveResult) {
	for _, pr := range result.Plans {
		if pr.Aborted {
			fmt.Fprintf(f.Writer, "✗ %s %s: aborted\n\n", pr.Capability, pr.Type)
			continue
		}
		fmt.Fprint(f.Writer, pr.Rendered)
		fmt.Fprintln(f.Writer)
	}
	printDiagnosticsText(f, result.Diagnostics)
	if result.RunID != "" {
		fmt.Fprintf(f.Writer, "run: %s\n", result.RunID)
	}
}

func printDiagnosticsText(f *OutputFormatter, diags []derive.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(f.Writer, d.String())
		if d.Advice != "" {
			fmt.Fprintf(f.Writer, "  note: %s\n", d.Advice)
		}
	}
	if len(diags) > 0 && !strings.Contains(f.Format, "json") {
		fmt.Fprintln(f.Writer)
	}
}
