package chain

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
)

// pendingPost pairs an advancing interval cursor with the template posting
// it materializes occurrences of. The interval is always a private clone;
// the template posting is shared and never mutated.
type pendingPost struct {
	interval *journal.Interval
	post     *journal.Post
}

// GeneratePosts is the shared machinery of the generative stages: a queue of
// pending (interval, template) pairs seeded from periodic transaction
// templates, materialized into concrete synthetic postings on demand. As a
// stage of its own it materializes every occurrence inside each template's
// bounded date range at flush time.
type GeneratePosts struct {
	relay
	states  *StateTable
	pending []*pendingPost
}

// NewGeneratePosts creates the template-expansion stage.
func NewGeneratePosts(next PostHandler, states *StateTable) *GeneratePosts {
	return &GeneratePosts{relay: newRelay(next), states: states}
}

// AddPost enqueues a pending occurrence. The interval is cloned before it is
// stored: templates are shared across occurrences and the caller's
// descriptor must stay untouched by cursor advances.
func (g *GeneratePosts) AddPost(interval *journal.Interval, post *journal.Post) {
	g.pending = append(g.pending, &pendingPost{interval: interval.Clone(), post: post})
}

// AddPeriodXacts seeds the queue from a journal's periodic templates.
func (g *GeneratePosts) AddPeriodXacts(j *journal.Journal) {
	for _, px := range j.PeriodXacts {
		for _, post := range px.Xact.Postings {
			g.AddPost(px.Period, post)
		}
	}
}

// Pending returns the number of queued template occurrences.
func (g *GeneratePosts) Pending() int {
	return len(g.pending)
}

// materialize clones the template posting into a concrete occurrence dated
// at the given date, attached to a fresh temporary transaction.
func (g *GeneratePosts) materialize(pp *pendingPost, date *journal.Date, negate bool) *journal.Post {
	xact := &journal.Xact{Date: date.Clone()}
	if pp.post.Xact != nil {
		xact.Payee = pp.post.Xact.Payee
		xact.Code = pp.post.Xact.Code
	}

	post := pp.post.Clone()
	post.Date = nil
	post.Flags |= journal.PostGenerated | journal.PostTemporary
	if negate {
		post.Amount = post.Amount.Neg()
	}
	xact.AddPost(post)

	g.states.Post(post).Visited = true
	g.states.Account(post.Account).Visited = true
	return post
}

func (g *GeneratePosts) Flush(ctx context.Context) error {
	for _, pp := range g.pending {
		if pp.interval.Range == nil || pp.interval.Range.End == nil {
			// Unbounded templates have no finite expansion at this layer;
			// budget and forecast bound them by real dates instead.
			continue
		}
		iv := pp.interval
		if iv.Start == nil {
			iv.Prime(iv.Range.Begin)
		}
		for !iv.Exhausted() {
			post := g.materialize(pp, iv.Start, false)
			if err := g.forward(ctx, post); err != nil {
				return err
			}
			iv.Advance()
		}
	}
	return g.relay.Flush(ctx)
}

func (g *GeneratePosts) Clear() {
	g.pending = nil
	g.relay.Clear()
}

// BudgetMode selects which postings a budget report shows.
type BudgetMode int

const (
	// BudgetBudgeted emits budget postings and real postings against
	// budgeted accounts.
	BudgetBudgeted BudgetMode = 1 << iota
	// BudgetUnbudgeted emits only real postings against accounts no budget
	// template covers.
	BudgetUnbudgeted
)

// BudgetPosts expands periodic budget templates into synthetic postings as
// real postings arrive, keeping budget occurrences no later than the real
// stream's current date. Each budget posting is negated relative to its
// template so real spending offsets it, and is paired with a balancing
// counter-posting so budget transactions balance independently of the real
// journal.
type BudgetPosts struct {
	GeneratePosts
	mode    BudgetMode
	counter *journal.Account
}

// NewBudgetPosts creates the budget-expansion stage.
func NewBudgetPosts(next PostHandler, mode BudgetMode, states *StateTable) *BudgetPosts {
	temp := journal.NewAccountTree()
	return &BudgetPosts{
		GeneratePosts: GeneratePosts{relay: newRelay(next), states: states},
		mode:          mode,
		counter:       temp.FindOrCreate("<Budget>"),
	}
}

func (b *BudgetPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	if b.budgeted(post.Account) {
		if b.mode&BudgetBudgeted == 0 {
			return nil
		}
		if err := b.reportBudgetItems(ctx, post.GetDate()); err != nil {
			return err
		}
	} else if b.mode&BudgetUnbudgeted == 0 {
		return nil
	}
	return b.forward(ctx, post)
}

// budgeted reports whether the account, or an ancestor of it, is covered by
// a budget template.
func (b *BudgetPosts) budgeted(account *journal.Account) bool {
	for _, pp := range b.pending {
		if account.HasAncestor(pp.post.Account) || pp.post.Account.HasAncestor(account) {
			return true
		}
	}
	return false
}

// reportBudgetItems materializes every pending occurrence falling at or
// before the date, advancing each interval past the occurrences it emits
// and discarding entries whose range is exhausted. A schedule with an
// explicit begin starts there, so periods elapsed before the first real
// posting are caught up rather than skipped.
func (b *BudgetPosts) reportBudgetItems(ctx context.Context, date *journal.Date) error {
	if date == nil {
		return nil
	}

	for emitted := true; emitted; {
		emitted = false

		live := b.pending[:0]
		for _, pp := range b.pending {
			if pp.interval.Start == nil && pp.interval.Range != nil && pp.interval.Range.Begin != nil {
				pp.interval.Prime(pp.interval.Range.Begin)
			} else {
				pp.interval.Prime(date)
			}
			if pp.interval.Exhausted() {
				continue
			}
			live = append(live, pp)

			if pp.interval.Start.After(date) {
				continue
			}

			post := b.materialize(pp, pp.interval.Start, true)
			post.Flags |= journal.PostVirtual
			if err := b.forward(ctx, post); err != nil {
				return err
			}

			counter := &journal.Post{
				Account: b.counter,
				Amount:  post.Amount.Neg(),
				Flags:   journal.PostVirtual | journal.PostGenerated | journal.PostTemporary,
			}
			post.Xact.AddPost(counter)
			b.states.Post(counter).Visited = true
			if err := b.forward(ctx, counter); err != nil {
				return err
			}

			pp.interval.Advance()
			emitted = true
		}
		b.pending = live
	}
	return nil
}

func (b *BudgetPosts) Flush(ctx context.Context) error {
	// Budget occurrences never run past the real stream's last date.
	return b.relay.Flush(ctx)
}

// ForecastPosts forwards the real stream unchanged and, at flush, projects
// periodic templates forward from the latest real posting date: occurrences
// are materialized in ascending date order up to a horizon of
// horizonYears, or until the while-predicate rejects one.
type ForecastPosts struct {
	GeneratePosts
	pred         *eval.Predicate
	horizonYears int
	latest       *journal.Date
}

// NewForecastPosts creates the forecast-projection stage. A nil predicate
// projects until the horizon alone.
func NewForecastPosts(next PostHandler, pred *eval.Predicate, horizonYears int, states *StateTable) *ForecastPosts {
	if horizonYears <= 0 {
		horizonYears = 5
	}
	return &ForecastPosts{
		GeneratePosts: GeneratePosts{relay: newRelay(next), states: states},
		pred:          pred,
		horizonYears:  horizonYears,
	}
}

func (f *ForecastPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if date := post.GetDate(); f.latest == nil || date.After(f.latest) {
		f.latest = date.Clone()
	}
	return f.forward(ctx, post)
}

func (f *ForecastPosts) Flush(ctx context.Context) error {
	if len(f.pending) > 0 && f.latest != nil {
		if err := f.project(ctx); err != nil {
			return err
		}
	}
	return f.relay.Flush(ctx)
}

func (f *ForecastPosts) project(ctx context.Context) error {
	horizon := &journal.Date{Time: f.latest.AddDate(f.horizonYears, 0, 0)}

	// Position every schedule on its first occurrence after the last real
	// posting.
	for _, pp := range f.pending {
		pp.interval.Prime(f.latest)
		for pp.interval.Start != nil && !pp.interval.Start.After(f.latest) {
			pp.interval.Advance()
		}
	}

	for {
		if err := checkCancel(ctx); err != nil {
			return err
		}

		// Earliest pending occurrence across all schedules.
		var next *pendingPost
		for _, pp := range f.pending {
			if pp.interval.Exhausted() || pp.interval.Start.After(horizon) {
				continue
			}
			if next == nil || pp.interval.Start.Before(next.interval.Start) {
				next = pp
			}
		}
		if next == nil {
			return nil
		}

		post := f.materialize(next, next.interval.Start, false)
		if f.pred != nil {
			ok, err := f.pred.Test(f.states.Context(post))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if err := f.forward(ctx, post); err != nil {
			return err
		}
		next.interval.Advance()
	}
}
