package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keyplan/keyplan/internal/derive"
	"github.com/keyplan/keyplan/internal/schema"
)

// VariantKeysReport is one variant's resolved key enumeration.
type VariantKeysReport struct {
	Variant   string   `json:"variant"`
	Namespace string   `json:"namespace"` // nested enumeration name, e.g. CircleKeys
	Keys      []string `json:"keys"`
}

// KeysReport is one type's resolved key enumeration.
type KeysReport struct {
	Type     string              `json:"type"`
	Source   string              `json:"source"` // "synthesized" or "declared"
	Keys     []string            `json:"keys"`
	Ancestor bool                `json:"ancestor,omitempty"` // reserved ancestor key present
	Variants []VariantKeysReport `json:"variants,omitempty"`
}

// NewKeysCommand creates the keys command.
func NewKeysCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		typeName     string
		withVariants bool
	)

	cmd := &cobra.Command{
		Use:   "keys <definitions>",
		Short: "Show resolved key enumerations",
		Long: `Show the key enumeration each declared type resolves to: the declared
enumeration when one exists, the synthesized one otherwise.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(rootOpts, args[0], typeName, withVariants, cmd)
		},
	}

	cmd.Flags().StringVar(&typeName, "type", "", "show only the named type")
	cmd.Flags().BoolVar(&withVariants, "variants", false, "include per-variant key enumerations")
	return cmd
}

func runKeys(opts *RootOptions, path, typeName string, withVariants bool, cmd *cobra.Command) error {
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

	rep := &derive.List{}
	d := derive.New(reg, rep)

	var reports []KeysReport
	for _, t := range reg.Types() {
		if typeName != "" && t.Name != typeName {
			continue
		}
		e, err := d.KeyEnumerationFor(t.ID)
		if err != nil {
			printDiagnosticsText(formatter, rep.Diags)
			return NewExitError(ExitFailure, err.Error())
		}

		r := KeysReport{Type: t.Name, Source: e.Source.String(), Keys: e.Names()}
		if len(e.Keys) > 0 && e.Keys[0].Reserved {
			r.Ancestor = true
		}

		if withVariants && t.Kind == schema.KindUnion {
			for _, v := range t.Variants {
				if _, keyed := e.Lookup(v.Name); !keyed {
					continue
				}
				ve, err := d.VariantKeyEnumerationFor(t.ID, v.Name)
				if err != nil {
					printDiagnosticsText(formatter, rep.Diags)
					return NewExitError(ExitFailure, err.Error())
				}
				r.Variants = append(r.Variants, VariantKeysReport{
					Variant:   v.Name,
					Namespace: derive.VariantKeysName(v.Name),
					Keys:      ve.Names(),
				})
			}
		}
		reports = append(reports, r)
	}

	if typeName != "" && len(reports) == 0 {
		err := fmt.Errorf("unknown type %q", typeName)
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
	}

	if opts.Format == "json" {
		return formatter.Success(reports)
	}
	printKeysText(formatter, reports)
	return nil
}

func printKeysText(f *OutputFormatter, reports []KeysReport) {
	for _, r := range reports {
		fmt.Fprintf(f.Writer, "%s (%s): [%s]\n", r.Type, r.Source, strings.Join(r.Keys, " "))
		if r.Ancestor {
			fmt.Fprintf(f.Writer, "  reserved ancestor key: %s\n", r.Keys[0])
		}
		for _, v := range r.Variants {
			fmt.Fprintf(f.Writer, "  %s: [%s]\n", v.Namespace, strings.Join(v.Keys, " "))
		}
	}
}
