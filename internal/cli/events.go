package cli

import (
	"github.com/spf13/cobra"

	"github.com/assetline/assetline/internal/model"
	"github.com/assetline/assetline/internal/store"
)

// EventsOptions holds flags for the events subcommands.
type EventsOptions struct {
	*RootOptions
	Extra          string
	SourceDagID    string
	SourceTaskID   string
	SourceRunID    string
	SourceMapIndex int
	AssetID        int64
	OrderBy        string
	Limit          int
	Offset         int
}

// NewEventsCommand creates the events command group.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Record and inspect asset update events",
	}

	emit := &cobra.Command{
		Use:   "emit <asset-uri>",
		Short: "Record an asset update event and run the trigger pipeline",
		Long: `Record an asset update event.

The event is appended, fulfillment markers are updated for every consuming
dag, and any dag whose full asset dependency set is now satisfied gets a
new asset-triggered run - all in one atomic unit.`,
		Example: `  assetline events emit s3://bucket/key --extra '{"rows":1042}'
  assetline events emit s3://bucket/key --source-dag producer --source-task t1 --source-run r1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return emitEvent(opts, args[0], cmd)
		},
	}
	emit.Flags().StringVar(&opts.Extra, "extra", "{}", "event metadata as JSON")
	emit.Flags().StringVar(&opts.SourceDagID, "source-dag", "", "producing dag id")
	emit.Flags().StringVar(&opts.SourceTaskID, "source-task", "", "producing task id")
	emit.Flags().StringVar(&opts.SourceRunID, "source-run", "", "producing run id")
	emit.Flags().IntVar(&opts.SourceMapIndex, "map-index", model.DefaultMapIndex, "producing task map index")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List recorded events with optional provenance filters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listEvents(opts, cmd)
		},
	}
	list.Flags().Int64Var(&opts.AssetID, "asset-id", 0, "filter by asset id")
	list.Flags().StringVar(&opts.SourceDagID, "source-dag", "", "filter by producing dag id")
	list.Flags().StringVar(&opts.SourceTaskID, "source-task", "", "filter by producing task id")
	list.Flags().StringVar(&opts.SourceRunID, "source-run", "", "filter by producing run id")
	list.Flags().IntVar(&opts.SourceMapIndex, "map-index", 0, "filter by producing map index")
	list.Flags().StringVar(&opts.OrderBy, "order-by", "id", "order attribute, '-' prefix for descending")
	list.Flags().IntVar(&opts.Limit, "limit", 0, "page size (0 = default)")
	list.Flags().IntVar(&opts.Offset, "offset", 0, "page offset")

	cmd.AddCommand(emit, list)
	return cmd
}

func emitEvent(opts *EventsOptions, assetURI string, cmd *cobra.Command) error {
	extra, err := parseExtra(opts.Extra)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad flags", err)
	}

	_, svc, closeFn, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	source := model.Provenance{
		SourceDagID:    opts.SourceDagID,
		SourceTaskID:   opts.SourceTaskID,
		SourceRunID:    opts.SourceRunID,
		SourceMapIndex: opts.SourceMapIndex,
	}

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	event, err := svc.RecordEvent(cmd.Context(), assetURI, source, extra)
	if err != nil {
		return out.DomainError(err)
	}
	return out.Success(event)
}

// eventPage is the listing payload: one page plus the total match count.
type eventPage struct {
	Events       []model.AssetEvent `json:"asset_events"`
	TotalEntries int                `json:"total_entries"`
}

func listEvents(opts *EventsOptions, cmd *cobra.Command) error {
	_, svc, closeFn, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	filter := store.EventFilter{
		SourceDagID:  opts.SourceDagID,
		SourceTaskID: opts.SourceTaskID,
		SourceRunID:  opts.SourceRunID,
	}
	if cmd.Flags().Changed("asset-id") {
		filter.AssetID = &opts.AssetID
	}
	if cmd.Flags().Changed("map-index") {
		filter.SourceMapIndex = &opts.SourceMapIndex
	}

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	events, total, err := svc.ListEvents(cmd.Context(), filter, opts.OrderBy, opts.Limit, opts.Offset)
	if err != nil {
		return out.DomainError(err)
	}
	return out.Success(eventPage{Events: events, TotalEntries: total})
}
