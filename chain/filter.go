package chain

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
)

// FilterPosts admits only postings matching its predicate. Rejected postings
// are dropped outright: not buffered, not visible to inner stages.
type FilterPosts struct {
	relay
	pred   *eval.Predicate
	states *StateTable
}

// NewFilterPosts creates a filtering stage around an inner handler.
func NewFilterPosts(next PostHandler, pred *eval.Predicate, states *StateTable) *FilterPosts {
	return &FilterPosts{relay: newRelay(next), pred: pred, states: states}
}

func (f *FilterPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	ok, err := f.pred.Test(f.states.Context(post))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	f.states.Post(post).Visited = true
	f.states.Account(post.Account).Visited = true
	return f.forward(ctx, post)
}

// RelatedPosts emits, for each received posting, the other postings of its
// transaction; with ShowAll it emits every posting of each touched
// transaction. Emission is deferred to Flush and deduplicated so no posting
// is forwarded twice.
type RelatedPosts struct {
	relay
	showAll bool
	posts   []*journal.Post
}

// NewRelatedPosts creates the related-postings expansion stage.
func NewRelatedPosts(next PostHandler, showAll bool) *RelatedPosts {
	return &RelatedPosts{relay: newRelay(next), showAll: showAll}
}

func (r *RelatedPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	r.posts = append(r.posts, post)
	return nil
}

func (r *RelatedPosts) Flush(ctx context.Context) error {
	received := make(map[*journal.Post]bool, len(r.posts))
	for _, post := range r.posts {
		received[post] = true
	}

	forwarded := make(map[*journal.Post]bool)
	for _, post := range r.posts {
		if post.Xact == nil {
			continue
		}
		for _, sibling := range post.Xact.Postings {
			if forwarded[sibling] {
				continue
			}
			if !r.showAll && received[sibling] {
				continue
			}
			forwarded[sibling] = true
			if err := r.forward(ctx, sibling); err != nil {
				return err
			}
		}
	}

	return r.relay.Flush(ctx)
}

func (r *RelatedPosts) Clear() {
	r.posts = nil
	r.relay.Clear()
}
