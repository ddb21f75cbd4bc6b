package chain

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/journal"
)

// TruncateXacts keeps only the first headCount and/or last tailCount
// transactions of the stream, counting whole transactions rather than
// postings. A negative headCount means "all but the last N"; a negative
// tailCount means "all but the first N".
type TruncateXacts struct {
	relay
	headCount int
	tailCount int

	posts []*journal.Post
	xacts []*journal.Xact
	seen  map[*journal.Xact]bool
}

// NewTruncateXacts creates the head/tail truncation stage.
func NewTruncateXacts(next PostHandler, headCount, tailCount int) *TruncateXacts {
	return &TruncateXacts{
		relay:     newRelay(next),
		headCount: headCount,
		tailCount: tailCount,
		seen:      make(map[*journal.Xact]bool),
	}
}

func (t *TruncateXacts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	if post.Xact != nil && !t.seen[post.Xact] {
		t.seen[post.Xact] = true
		t.xacts = append(t.xacts, post.Xact)
	}
	t.posts = append(t.posts, post)
	return nil
}

func (t *TruncateXacts) Flush(ctx context.Context) error {
	keep := t.keptXacts()
	for _, post := range t.posts {
		if keep[post.Xact] {
			if err := t.forward(ctx, post); err != nil {
				return err
			}
		}
	}
	return t.relay.Flush(ctx)
}

// keptXacts resolves head/tail counts against the arrival order. When both
// counts are set, a transaction admitted by either rule is kept.
func (t *TruncateXacts) keptXacts() map[*journal.Xact]bool {
	total := len(t.xacts)
	keep := make(map[*journal.Xact]bool, total)
	if t.headCount == 0 && t.tailCount == 0 {
		for _, x := range t.xacts {
			keep[x] = true
		}
		return keep
	}

	for i, x := range t.xacts {
		switch {
		case t.headCount > 0 && i < t.headCount,
			t.headCount < 0 && i < total+t.headCount,
			t.tailCount > 0 && total-i <= t.tailCount,
			t.tailCount < 0 && i >= -t.tailCount:
			keep[x] = true
		}
	}
	return keep
}

func (t *TruncateXacts) Clear() {
	t.posts = nil
	t.xacts = nil
	t.seen = make(map[*journal.Xact]bool)
	t.relay.Clear()
}
