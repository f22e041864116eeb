package cli

import (
	"io"

	"github.com/assetline/assetline/internal/api"
	"github.com/assetline/assetline/internal/scheduler"
	"github.com/assetline/assetline/internal/store"
)

// openService opens the database and wires the scheduler and api facade.
// The returned close func must be deferred by the command.
func openService(opts *RootOptions) (*store.Store, *api.Service, func(), error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	sched := scheduler.New(st)
	svc := api.New(st, sched)
	return st, svc, func() { st.Close() }, nil
}

// formatter builds the output formatter for a command.
func formatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w}
}
