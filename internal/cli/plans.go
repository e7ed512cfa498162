package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyplan/keyplan/internal/store"
)

// NewPlansCommand creates the plans command.
func NewPlansCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dbPath   string
		runID    string
		typeName string
		planID   string
	)

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect stored derivation plans",
		Long: `List or show plans persisted by previous derive runs.

Without flags, lists every run. With --run or --type, lists the matching
plans. With --id, shows one plan's rendered body.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlans(rootOpts, dbPath, runID, typeName, planID, cmd)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "keyplan.db", "SQLite database to read")
	cmd.Flags().StringVar(&runID, "run", "", "list plans of one run")
	cmd.Flags().StringVar(&typeName, "type", "", "list plans of one type")
	cmd.Flags().StringVar(&planID, "id", "", "show one plan by content hash")
	return cmd
}

func runPlans(opts *RootOptions, dbPath, runID, typeName, planID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}

	s, err := store.Open(dbPath)
	if err != nil {
		formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
	}
	defer s.Close()

	ctx := cmd.Context()
	switch {
	case planID != "":
		p, err := s.GetPlan(ctx, planID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				formatter.Error(ErrCodeNotFound, err.Error(), nil)
				return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
			}
			formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
		}
		if opts.Format == "json" {
			return formatter.Success(p)
		}
		fmt.Fprint(formatter.Writer, p.Rendered)
		return nil

	case runID != "":
		plans, err := s.PlansForRun(ctx, runID)
		if err != nil {
			formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
		}
		return outputPlanList(formatter, opts, plans)

	case typeName != "":
		plans, err := s.PlansForType(ctx, typeName)
		if err != nil {
			formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
		}
		return outputPlanList(formatter, opts, plans)

	default:
		runs, err := s.Runs(ctx)
		if err != nil {
			formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
		}
		if opts.Format == "json" {
			return formatter.Success(runs)
		}
		for _, r := range runs {
			fmt.Fprintf(formatter.Writer, "%s  %s  %s\n", r.ID, r.CreatedAt, r.Source)
		}
		return nil
	}
}

func outputPlanList(f *OutputFormatter, opts *RootOptions, plans []store.StoredPlan) error {
	if opts.Format == "json" {
		return f.Success(plans)
	}
	for _, p := range plans {
		fmt.Fprintf(f.Writer, "%s  %s %s\n", p.ID, p.Capability, p.TypeName)
	}
	return nil
}
