package cli

import (
	"github.com/spf13/cobra"

	"github.com/assetline/assetline/internal/model"
)

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs created by the trigger pipeline",
	}

	list := &cobra.Command{
		Use:           "list <dag-id>",
		Short:         "List a dag's asset-triggered runs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, closeFn, err := openService(rootOpts)
			if err != nil {
				return err
			}
			defer closeFn()

			out := formatter(rootOpts, cmd.OutOrStdout())
			runs, err := st.ListRuns(cmd.Context(), args[0])
			if err != nil {
				return out.DomainError(err)
			}
			return out.Success(struct {
				Runs         []model.DagRun `json:"dag_runs"`
				TotalEntries int            `json:"total_entries"`
			}{Runs: runs, TotalEntries: len(runs)})
		},
	}

	cmd.AddCommand(list)
	return cmd
}
