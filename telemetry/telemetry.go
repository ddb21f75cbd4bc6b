// Package telemetry provides hierarchical timing collection for report runs.
// Collectors travel through context so instrumentation stays non-intrusive:
// code paths call FromContext and time themselves whether or not a collector
// is installed.
//
// Example usage:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer := telemetry.FromContext(ctx).Start("Run report")
//	defer timer.End()
//
//	child := timer.Child("Process postings")
//	// ... work ...
//	child.End()
//
//	collector.Report(os.Stderr, nil)
package telemetry

import (
	"context"
	"io"

	"github.com/ledgerpipe/ledgerpipe/output"
)

type contextKey struct{}

var collectorKey = contextKey{}

// Collector accumulates timing data for a run.
type Collector interface {
	// Start begins timing a top-level operation. End the returned timer
	// when the operation completes.
	Start(name string) Timer

	// Report writes the collected timings. Styles may be nil for plain
	// output.
	Report(w io.Writer, styles *output.Styles)
}

// Timer tracks a single operation. Nested operations hang off Child.
type Timer interface {
	End()
	Child(name string) Timer
}

// WithCollector installs a collector into a context.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext extracts the collector from a context, or a no-op collector
// when none is installed. Never returns nil.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return noOpCollector{}
}

type noOpCollector struct{}

func (noOpCollector) Start(name string) Timer                   { return noOpTimer{} }
func (noOpCollector) Report(w io.Writer, styles *output.Styles) {}

type noOpTimer struct{}

func (noOpTimer) End()                    {}
func (noOpTimer) Child(name string) Timer { return noOpTimer{} }
