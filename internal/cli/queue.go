package cli

import (
	"github.com/spf13/cobra"

	"github.com/assetline/assetline/internal/model"
)

// QueueOptions holds flags for the queue subcommands.
type QueueOptions struct {
	*RootOptions
	DagID    string
	AssetURI string
}

// NewQueueCommand creates the queue command group: the administrative
// surface over pending fulfillment markers. These commands bypass the
// scheduler entirely; deleting a marker never creates a run.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and clear pending fulfillment markers",
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List queued markers, optionally by dag and/or asset",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listQueue(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.DagID, "dag", "", "filter by target dag id")
	list.Flags().StringVar(&opts.AssetURI, "asset", "", "filter by asset URI")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete queued markers (manual intervention)",
		Long: `Delete queued fulfillment markers.

With --dag and --asset, deletes that single marker. With only --dag,
deletes all of the dag's markers. With only --asset, deletes the asset's
markers across all dags. At least one flag is required.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteQueue(opts, cmd)
		},
	}
	del.Flags().StringVar(&opts.DagID, "dag", "", "target dag id")
	del.Flags().StringVar(&opts.AssetURI, "asset", "", "asset URI")

	cmd.AddCommand(list, del)
	return cmd
}

// queuePage is the listing payload.
type queuePage struct {
	QueuedEvents []model.QueuedMarker `json:"queued_events"`
	TotalEntries int                  `json:"total_entries"`
}

func listQueue(opts *QueueOptions, cmd *cobra.Command) error {
	_, svc, closeFn, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	markers, err := svc.ListQueuedMarkers(cmd.Context(), opts.DagID, opts.AssetURI)
	if err != nil {
		return out.DomainError(err)
	}
	return out.Success(queuePage{QueuedEvents: markers, TotalEntries: len(markers)})
}

func deleteQueue(opts *QueueOptions, cmd *cobra.Command) error {
	if opts.DagID == "" && opts.AssetURI == "" {
		return WrapExitError(ExitCommandError, "at least one of --dag or --asset is required", nil)
	}

	_, svc, closeFn, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	switch {
	case opts.DagID != "" && opts.AssetURI != "":
		err = svc.DeleteQueuedMarker(cmd.Context(), opts.DagID, opts.AssetURI)
	case opts.DagID != "":
		err = svc.DeleteQueuedMarkers(cmd.Context(), opts.DagID)
	default:
		err = svc.DeleteAssetQueuedMarkers(cmd.Context(), opts.AssetURI)
	}
	if err != nil {
		return out.DomainError(err)
	}
	return out.Success(map[string]string{"deleted": "ok"})
}
