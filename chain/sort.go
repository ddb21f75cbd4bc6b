package chain

import (
	"context"
	"sort"

	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
)

// SortPosts buffers every posting until flush, then forwards them in stable
// sorted order by a sort-key expression. Stability is a hard requirement:
// postings with equal keys keep their arrival order, because reports are
// defined to be order-sensitive on ties.
//
// Once the buffer has been flushed the stage is sealed; handling further
// postings through it is a programming error, not a runtime condition.
type SortPosts struct {
	relay
	states   *StateTable
	sortExpr *eval.Expr

	posts  []*journal.Post
	sealed bool
}

// NewSortPosts creates the posting-sorting stage.
func NewSortPosts(next PostHandler, sortExpr *eval.Expr, states *StateTable) *SortPosts {
	return &SortPosts{relay: newRelay(next), states: states, sortExpr: sortExpr}
}

func (s *SortPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if s.sealed {
		return &InvalidOperationError{Stage: "SortPosts", Op: "Handle", Reason: "buffer already flushed"}
	}
	s.posts = append(s.posts, post)
	return nil
}

func (s *SortPosts) Flush(ctx context.Context) error {
	s.sealed = true

	keys := make([]eval.Val, len(s.posts))
	for i, post := range s.posts {
		v, err := s.sortExpr.Calc(s.states.Context(post))
		if err != nil {
			return err
		}
		keys[i] = v
	}

	var sortErr error
	sort.SliceStable(s.posts, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		cmp, err := keys[i].Compare(keys[j])
		if err != nil {
			sortErr = &eval.EvalError{Text: s.sortExpr.Text(), Scope: "sort keys", Err: err}
			return false
		}
		return cmp < 0
	})
	if sortErr != nil {
		return sortErr
	}

	for _, post := range s.posts {
		if err := s.forward(ctx, post); err != nil {
			return err
		}
	}
	return s.relay.Flush(ctx)
}

func (s *SortPosts) Clear() {
	s.posts = nil
	s.sealed = false
	s.relay.Clear()
}

// SortXacts buffers postings, regroups them under their parent transactions,
// and forwards whole transactions in stable sorted order by a sort-key
// expression evaluated against each transaction. Postings keep their
// in-transaction order.
type SortXacts struct {
	relay
	states   *StateTable
	sortExpr *eval.Expr

	order  []*journal.Xact
	posts  map[*journal.Xact][]*journal.Post
	sealed bool
}

// NewSortXacts creates the transaction-sorting stage.
func NewSortXacts(next PostHandler, sortExpr *eval.Expr, states *StateTable) *SortXacts {
	return &SortXacts{
		relay:    newRelay(next),
		states:   states,
		sortExpr: sortExpr,
		posts:    make(map[*journal.Xact][]*journal.Post),
	}
}

func (s *SortXacts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if s.sealed {
		return &InvalidOperationError{Stage: "SortXacts", Op: "Handle", Reason: "buffer already flushed"}
	}

	if _, ok := s.posts[post.Xact]; !ok {
		s.order = append(s.order, post.Xact)
	}
	s.posts[post.Xact] = append(s.posts[post.Xact], post)
	return nil
}

func (s *SortXacts) Flush(ctx context.Context) error {
	s.sealed = true

	keys := make(map[*journal.Xact]eval.Val, len(s.order))
	for _, xact := range s.order {
		v, err := s.sortExpr.Calc(&eval.Context{Xact: xact})
		if err != nil {
			return err
		}
		keys[xact] = v
	}

	var sortErr error
	sort.SliceStable(s.order, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		cmp, err := keys[s.order[i]].Compare(keys[s.order[j]])
		if err != nil {
			sortErr = &eval.EvalError{Text: s.sortExpr.Text(), Scope: "sort keys", Err: err}
			return false
		}
		return cmp < 0
	})
	if sortErr != nil {
		return sortErr
	}

	for _, xact := range s.order {
		for _, post := range s.posts[xact] {
			if err := s.forward(ctx, post); err != nil {
				return err
			}
		}
	}
	return s.relay.Flush(ctx)
}

func (s *SortXacts) Clear() {
	s.order = nil
	s.posts = make(map[*journal.Xact][]*journal.Post)
	s.sealed = false
	s.relay.Clear()
}
