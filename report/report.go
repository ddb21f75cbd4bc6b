// Package report drives a posting-handler chain over a journal and collects
// or prints the result.
package report

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/telemetry"
)

// Options is the resolved option set a report run is built from.
type Options = chain.Options

// Run builds the chain described by opts around sink, walks the journal's
// postings in document order, and flushes. The chain is disposed before Run
// returns, success or not. The caller owns the state table and resets it
// between runs.
func Run(ctx context.Context, j *journal.Journal, opts *Options, sink chain.PostHandler, states *chain.StateTable) error {
	timer := telemetry.FromContext(ctx).Start("Run report")
	defer timer.End()

	build := timer.Child("Build chain")
	handler, err := chain.Build(opts, sink, j, states)
	build.End()
	if err != nil {
		return err
	}
	defer handler.Dispose()

	process := timer.Child("Process postings")
	for _, post := range j.Posts() {
		if err := handler.Handle(ctx, post); err != nil {
			process.End()
			return err
		}
	}
	process.End()

	flush := timer.Child("Flush")
	defer flush.End()
	return handler.Flush(ctx)
}
