package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assetline/assetline/internal/defs"
)

// NewDefsCommand creates the defs command group: loading workflow
// definition manifests into the dependency graph.
func NewDefsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defs",
		Short: "Load and validate workflow definition manifests",
	}

	validate := &cobra.Command{
		Use:           "validate <manifest.yaml>",
		Short:         "Validate a manifest against the schema without applying it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(rootOpts, cmd.OutOrStdout())
			m, err := defs.Load(args[0])
			if err != nil {
				return out.DomainError(err)
			}
			return out.Success(map[string]any{
				"valid":  true,
				"assets": len(m.Assets),
				"dags":   len(m.Dags),
			})
		},
	}

	apply := &cobra.Command{
		Use:   "apply <manifest.yaml>",
		Short: "Apply a manifest: register assets, reconcile dependency edges",
		Example: `  assetline defs apply ./workflows.yaml
  assetline defs apply ./workflows.yaml --db ./assetline.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := formatter(rootOpts, cmd.OutOrStdout())
			m, err := defs.Load(args[0])
			if err != nil {
				return out.DomainError(err)
			}

			st, _, closeFn, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := defs.Apply(cmd.Context(), st, m); err != nil {
				return out.DomainError(err)
			}
			return out.Success(map[string]any{
				"applied": fmt.Sprintf("%d assets, %d dags", len(m.Assets), len(m.Dags)),
			})
		},
	}

	cmd.AddCommand(validate, apply)
	return cmd
}
