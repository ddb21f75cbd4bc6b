package chain

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// CalcPosts computes the cumulative running total across the postings it
// forwards, recording a clone of the accumulator into each posting's
// transient state. The clone is the stage's single most important
// correctness property: later additions to the accumulator must never
// retroactively alter an earlier posting's recorded total.
type CalcPosts struct {
	relay
	states *StateTable

	// amountExpr overrides the posting's own amount as its contribution.
	amountExpr *eval.Expr

	// calcRunning accumulates across postings; when false each posting's
	// recorded total is just its own contribution.
	calcRunning bool

	total *value.Value
}

// NewCalcPosts creates the running-total stage. A nil amountExpr uses each
// posting's own amount as its contribution.
func NewCalcPosts(next PostHandler, amountExpr *eval.Expr, calcRunning bool, states *StateTable) *CalcPosts {
	return &CalcPosts{
		relay:       newRelay(next),
		states:      states,
		amountExpr:  amountExpr,
		calcRunning: calcRunning,
		total:       value.NewValue(),
	}
}

func (c *CalcPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	contribution, err := c.contribution(post)
	if err != nil {
		return err
	}

	st := c.states.Post(post)
	st.Visited = true

	if c.calcRunning {
		c.total.Add(contribution)
		st.Total = c.total.Clone()
	} else {
		st.Total = contribution.Clone()
	}

	return c.forward(ctx, post)
}

func (c *CalcPosts) contribution(post *journal.Post) (*value.Value, error) {
	st, ok := c.states.PostIfPresent(post)
	if ok && st.CompoundValue != nil {
		// Aggregate posts carry their multi-commodity sum out of band.
		return st.CompoundValue, nil
	}

	if c.amountExpr == nil {
		return value.ValueOf(post.Amount), nil
	}

	v, err := c.amountExpr.Calc(c.states.Context(post))
	if err != nil {
		return nil, err
	}
	return v.Value()
}

func (c *CalcPosts) Clear() {
	c.total = value.NewValue()
	c.relay.Clear()
}
