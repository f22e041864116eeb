package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assetline/assetline/internal/model"
)

// AssetsOptions holds flags for the assets subcommands.
type AssetsOptions struct {
	*RootOptions
	Name       string
	Group      string
	Extra      string
	URIPattern string
	DagIDs     []string
	OrderBy    string
	Limit      int
	Offset     int
}

// NewAssetsCommand creates the assets command group.
func NewAssetsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssetsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect and manage registered assets",
	}

	register := &cobra.Command{
		Use:   "register <uri>",
		Short: "Register an asset (idempotent upsert by URI)",
		Example: `  assetline assets register s3://bucket/key --name orders --group raw
  assetline assets register s3://bucket/key --extra '{"owner":"data-eng"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return registerAsset(opts, args[0], cmd)
		},
	}
	register.Flags().StringVar(&opts.Name, "name", "", "display name")
	register.Flags().StringVar(&opts.Group, "group", "", "group label")
	register.Flags().StringVar(&opts.Extra, "extra", "{}", "metadata as JSON")

	get := &cobra.Command{
		Use:           "get <uri>",
		Short:         "Show an asset with its consumers and producers",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getAsset(opts, args[0], cmd)
		},
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List assets with optional URI substring and dag filters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listAssets(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.URIPattern, "uri-pattern", "", "substring filter on asset URI")
	list.Flags().StringSliceVar(&opts.DagIDs, "dag-ids", nil, "keep assets referenced by these dags")
	list.Flags().StringVar(&opts.OrderBy, "order-by", "id", "order attribute, '-' prefix for descending")
	list.Flags().IntVar(&opts.Limit, "limit", 0, "page size (0 = default)")
	list.Flags().IntVar(&opts.Offset, "offset", 0, "page offset")

	setExtra := &cobra.Command{
		Use:           "set-extra <uri>",
		Short:         "Replace an asset's metadata map",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setAssetExtra(opts, args[0], cmd)
		},
	}
	setExtra.Flags().StringVar(&opts.Extra, "extra", "{}", "metadata as JSON")

	cmd.AddCommand(register, get, list, setExtra)
	return cmd
}

func parseExtra(raw string) (model.Extra, error) {
	var extra model.Extra
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return nil, fmt.Errorf("invalid --extra JSON: %w", err)
	}
	return extra, nil
}

func registerAsset(opts *AssetsOptions, uri string, cmd *cobra.Command) error {
	extra, err := parseExtra(opts.Extra)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad flags", err)
	}

	_, svc, closeFn, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	asset, err := svc.RegisterAsset(cmd.Context(), uri, opts.Name, opts.Group, extra)
	if err != nil {
		return out.DomainError(err)
	}
	return out.Success(asset)
}

func getAsset(opts *AssetsOptions, uri string, cmd *cobra.Command) error {
	_, svc, closeFn, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	detail, err := svc.GetAsset(cmd.Context(), uri)
	if err != nil {
		return out.DomainError(err)
	}
	return out.Success(detail)
}

// assetPage is the listing payload: one page plus the total match count.
type assetPage struct {
	Assets       []model.Asset `json:"assets"`
	TotalEntries int           `json:"total_entries"`
}

func listAssets(opts *AssetsOptions, cmd *cobra.Command) error {
	_, svc, closeFn, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	assets, total, err := svc.ListAssets(cmd.Context(), opts.URIPattern, opts.DagIDs, opts.OrderBy, opts.Limit, opts.Offset)
	if err != nil {
		return out.DomainError(err)
	}
	return out.Success(assetPage{Assets: assets, TotalEntries: total})
}

func setAssetExtra(opts *AssetsOptions, uri string, cmd *cobra.Command) error {
	extra, err := parseExtra(opts.Extra)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad flags", err)
	}

	_, svc, closeFn, err := openService(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeFn()

	out := formatter(opts.RootOptions, cmd.OutOrStdout())
	asset, err := svc.UpdateAssetExtra(cmd.Context(), uri, extra)
	if err != nil {
		return out.DomainError(err)
	}
	return out.Success(asset)
}
