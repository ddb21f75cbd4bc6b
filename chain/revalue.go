package chain

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// Valuer revalues a compound total at a given date, typically through a
// price database. The pipeline treats it as an opaque external collaborator.
type Valuer func(total *value.Value, date *journal.Date) (*value.Value, error)

// revaluePost builds one virtual adjustment posting per commodity of diff
// against the given temporary account.
func revaluePosts(account *journal.Account, date *journal.Date, payee string, diff *value.Value, states *StateTable) []*journal.Post {
	xact := &journal.Xact{Date: date.Clone(), Payee: payee}
	posts := synthPosts(xact, account, diff, states)
	for _, post := range posts {
		post.Flags |= journal.PostVirtual
	}
	return posts
}

// ChangedValuePost tracks the market value of the running total between
// consecutive observation points and inserts virtual "<Revalued>" postings
// carrying exactly the drift caused by price changes. The temporary account
// is created once per stage instance and reused for every posting of a run.
type ChangedValuePost struct {
	relay
	states *StateTable
	valuer Valuer

	// finalDate triggers one last revaluation at flush time, reconciling
	// drift between the final posting and that date.
	finalDate *journal.Date

	revalued  *journal.Account
	lastBasis *value.Value
	lastValue *value.Value
}

// NewChangedValuePost creates the revaluation stage. A nil valuer disables
// drift detection, making the stage a pass-through.
func NewChangedValuePost(next PostHandler, valuer Valuer, finalDate *journal.Date, states *StateTable) *ChangedValuePost {
	temp := journal.NewAccountTree()
	return &ChangedValuePost{
		relay:     newRelay(next),
		states:    states,
		valuer:    valuer,
		finalDate: finalDate,
		revalued:  temp.FindOrCreate("<Revalued>"),
	}
}

func (c *ChangedValuePost) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	date := post.GetDate()
	if err := c.emitDrift(ctx, date); err != nil {
		return err
	}
	if err := c.forward(ctx, post); err != nil {
		return err
	}

	// Record the observation after the posting's own contribution.
	if st, ok := c.states.PostIfPresent(post); ok && st.Total != nil {
		c.lastBasis = st.Total.Clone()
		repriced, err := c.revalue(c.lastBasis, date)
		if err != nil {
			return err
		}
		c.lastValue = repriced
	}
	return nil
}

// emitDrift inserts revaluation postings for the price drift of the held
// total between the previous observation and the given date.
func (c *ChangedValuePost) emitDrift(ctx context.Context, date *journal.Date) error {
	if c.valuer == nil || c.lastBasis == nil {
		return nil
	}

	repriced, err := c.revalue(c.lastBasis, date)
	if err != nil {
		return err
	}
	diff := repriced.Clone()
	diff.Sub(c.lastValue)
	if diff.IsZero() {
		return nil
	}

	for _, post := range revaluePosts(c.revalued, date, "Commodities revalued", diff, c.states) {
		if err := c.forward(ctx, post); err != nil {
			return err
		}
	}
	c.lastValue = repriced
	return nil
}

func (c *ChangedValuePost) revalue(total *value.Value, date *journal.Date) (*value.Value, error) {
	if c.valuer == nil {
		return total.Clone(), nil
	}
	return c.valuer(total, date)
}

func (c *ChangedValuePost) Flush(ctx context.Context) error {
	if c.finalDate != nil {
		if err := c.emitDrift(ctx, c.finalDate); err != nil {
			return err
		}
	}
	return c.relay.Flush(ctx)
}

func (c *ChangedValuePost) Clear() {
	c.lastBasis = nil
	c.lastValue = nil
	c.relay.Clear()
}

// DisplayFilterPosts reconciles the displayed running total with the
// displayed per-posting amounts: when display expressions round or suppress
// part of a posting's value, the skipped remainder is emitted as a virtual
// "<Adjustment>" posting so displayed amounts still sum to displayed totals.
type DisplayFilterPosts struct {
	relay
	states *StateTable

	displayAmountExpr *eval.Expr
	displayTotalExpr  *eval.Expr
	showRounding      bool

	adjustment *journal.Account
	lastTotal  *value.Value
}

// NewDisplayFilterPosts creates the display-rounding stage. Nil expressions
// fall back to the posting's own amount and recorded total.
func NewDisplayFilterPosts(next PostHandler, displayAmountExpr, displayTotalExpr *eval.Expr, showRounding bool, states *StateTable) *DisplayFilterPosts {
	temp := journal.NewAccountTree()
	return &DisplayFilterPosts{
		relay:             newRelay(next),
		states:            states,
		displayAmountExpr: displayAmountExpr,
		displayTotalExpr:  displayTotalExpr,
		showRounding:      showRounding,
		adjustment:        temp.FindOrCreate("<Adjustment>"),
	}
}

func (d *DisplayFilterPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	dispAmount, err := d.displayValue(post, d.displayAmountExpr, postAmount(post, d.states))
	if err != nil {
		return err
	}
	recorded := (*value.Value)(nil)
	if st, ok := d.states.PostIfPresent(post); ok {
		recorded = st.Total
	}
	dispTotal, err := d.displayValue(post, d.displayTotalExpr, recorded)
	if err != nil {
		return err
	}

	if dispTotal != nil && d.showRounding {
		expected := d.lastTotal.Clone()
		if expected == nil {
			expected = value.NewValue()
		}
		expected.Add(dispAmount)

		diff := dispTotal.Clone()
		diff.Sub(expected)
		if !diff.IsZero() {
			for _, adj := range revaluePosts(d.adjustment, post.GetDate(), "Adjustment", diff, d.states) {
				if err := d.forward(ctx, adj); err != nil {
					return err
				}
			}
		}
	}
	if dispTotal != nil {
		d.lastTotal = dispTotal.Clone()
	}

	return d.forward(ctx, post)
}

func (d *DisplayFilterPosts) displayValue(post *journal.Post, expr *eval.Expr, fallback *value.Value) (*value.Value, error) {
	if expr == nil {
		return fallback, nil
	}
	v, err := expr.Calc(d.states.Context(post))
	if err != nil {
		return nil, err
	}
	return v.Value()
}

func (d *DisplayFilterPosts) Clear() {
	d.lastTotal = nil
	d.relay.Clear()
}

func postAmount(post *journal.Post, states *StateTable) *value.Value {
	if st, ok := states.PostIfPresent(post); ok && st.CompoundValue != nil {
		return st.CompoundValue
	}
	return value.ValueOf(post.Amount)
}
