// Package chain implements the reporting pipeline: an ordered composition of
// post-handler stages that filter, total, aggregate, sort, generate and
// rewrite postings on their way to a terminal consumer.
//
// Stages form a singly-linked chain. Each stage exclusively owns its inner
// handler; disposing the chain head cascades disposal inward. The pipeline
// is single-threaded and synchronous: Handle calls arrive strictly in
// posting-arrival order from one driving loop, and no stage is ever invoked
// concurrently on the same chain.
//
// Cancellation is cooperative. Every Handle entry polls the context once per
// posting and returns ctx.Err() instead of forwarding when the context is
// done, so cancellation latency is bounded by one posting. Buffered stages
// lose unflushed state on cancellation; reports are re-run, not resumed.
package chain

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/journal"
)

// PostHandler is the unit of composition in the reporting chain. Every stage
// wraps an inner handler and is itself wrapped by an outer stage; the
// default behavior of every operation is pure forwarding.
type PostHandler interface {
	// Title passes a report title down the chain to the terminal consumer.
	Title(label string)

	// Handle processes one posting, optionally mutating a clone, buffering
	// it, or dropping it before forwarding inward.
	Handle(ctx context.Context, post *journal.Post) error

	// Flush signals end of stream. Buffering stages emit their accumulated
	// results before cascading the flush inward.
	Flush(ctx context.Context) error

	// Clear resets stage-local buffers and cascades inward. The shared
	// transient post state is reset externally, not here.
	Clear()

	// Dispose releases the inner handler chain. It must be safe to call
	// even when outer construction failed partway.
	Dispose()
}

// relay provides the default pass-through behavior for chain stages.
// Concrete stages embed a relay and override only the operations they
// change, which preserves polymorphic dispatch without inheritance.
type relay struct {
	next PostHandler
}

func newRelay(next PostHandler) relay {
	return relay{next: next}
}

// Next returns the inner handler. Used by assembly tests and diagnostics to
// walk the composed chain.
func (r *relay) Next() PostHandler {
	return r.next
}

func (r *relay) Title(label string) {
	if r.next != nil {
		r.next.Title(label)
	}
}

func (r *relay) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	return r.forward(ctx, post)
}

// forward sends a posting to the inner handler without re-checking
// cancellation; stages that already polled at their Handle entry use it.
func (r *relay) forward(ctx context.Context, post *journal.Post) error {
	if r.next == nil {
		return nil
	}
	return r.next.Handle(ctx, post)
}

func (r *relay) Flush(ctx context.Context) error {
	if r.next != nil {
		return r.next.Flush(ctx)
	}
	return nil
}

func (r *relay) Clear() {
	if r.next != nil {
		r.next.Clear()
	}
}

func (r *relay) Dispose() {
	if r.next != nil {
		r.next.Dispose()
		r.next = nil
	}
}

// checkCancel polls the cooperative cancellation signal. The returned error
// is ctx.Err() itself so callers can distinguish a clean stop from a
// genuine failure.
func checkCancel(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
