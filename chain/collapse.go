package chain

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// CollapsePosts replaces each multi-posting transaction with a single
// "<Total>" posting carrying the transaction's summed amount.
// Single-posting transactions, and transactions whose postings all hit the
// same account, pass through unchanged. The collapsed result is re-tested
// against the display predicate before emission.
type CollapsePosts struct {
	relay
	states      *StateTable
	displayPred *eval.Predicate

	totals  *journal.Account
	curXact *journal.Xact
	posts   []*journal.Post
}

// NewCollapsePosts creates the per-transaction collapsing stage.
func NewCollapsePosts(next PostHandler, displayPred *eval.Predicate, states *StateTable) *CollapsePosts {
	temp := journal.NewAccountTree()
	return &CollapsePosts{
		relay:       newRelay(next),
		states:      states,
		displayPred: displayPred,
		totals:      temp.FindOrCreate("<Total>"),
	}
}

func (c *CollapsePosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	// Postings arrive in document order, so transaction changes are
	// contiguous.
	if post.Xact != c.curXact && len(c.posts) > 0 {
		if err := c.reportXact(ctx); err != nil {
			return err
		}
	}
	c.curXact = post.Xact
	c.posts = append(c.posts, post)
	return nil
}

func (c *CollapsePosts) reportXact(ctx context.Context) error {
	posts := c.posts
	c.posts = nil

	if len(posts) == 1 || singleAccount(posts) {
		for _, post := range posts {
			if err := c.forward(ctx, post); err != nil {
				return err
			}
		}
		return nil
	}

	sum := value.NewValue()
	for _, post := range posts {
		sum.AddAmount(post.Amount)
	}

	xact := c.curXact.CloneShell()
	for _, post := range synthPosts(xact, c.totals, sum, c.states) {
		ok, err := c.displayPred.Test(c.states.Context(post))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := c.forward(ctx, post); err != nil {
			return err
		}
	}
	return nil
}

func singleAccount(posts []*journal.Post) bool {
	for _, post := range posts[1:] {
		if post.Account != posts[0].Account {
			return false
		}
	}
	return true
}

func (c *CollapsePosts) Flush(ctx context.Context) error {
	if len(c.posts) > 0 {
		if err := c.reportXact(ctx); err != nil {
			return err
		}
	}
	return c.relay.Flush(ctx)
}

func (c *CollapsePosts) Clear() {
	c.curXact = nil
	c.posts = nil
	c.relay.Clear()
}

// PostsAsEquity converts the buffered postings into opening-balance style
// equity postings: one per account and commodity, plus a balancing
// counter-posting against the equity account when the grand total is
// nonzero.
type PostsAsEquity struct {
	relay
	states *StateTable
	equity *journal.Account

	values valuesMap
	latest *journal.Date
}

// NewPostsAsEquity creates the equity-conversion stage. Accounts for the
// synthesized postings are resolved in the given account tree.
func NewPostsAsEquity(next PostHandler, accounts *journal.Account, states *StateTable) *PostsAsEquity {
	return &PostsAsEquity{
		relay:  newRelay(next),
		states: states,
		equity: accounts.FindOrCreate("Equity:Opening Balances"),
		values: newValuesMap(),
	}
}

func (p *PostsAsEquity) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	p.values.add(post.Account.FullName(), post.Account, post.Amount)
	p.states.Account(post.Account).ToDisplay = true
	p.states.Post(post).Visited = true

	if date := post.GetDate(); p.latest == nil || date.After(p.latest) {
		p.latest = date.Clone()
	}
	return nil
}

func (p *PostsAsEquity) Flush(ctx context.Context) error {
	if len(p.values.entries) == 0 {
		return p.relay.Flush(ctx)
	}

	xact := &journal.Xact{Date: p.latest.Clone(), Payee: "Opening Balances"}
	grand := value.NewValue()

	for _, key := range p.values.sortedKeys() {
		entry := p.values.entries[key]
		grand.Add(entry.value)
		for _, post := range synthPosts(xact, entry.account, entry.value, p.states) {
			if err := p.forward(ctx, post); err != nil {
				return err
			}
		}
	}

	if !grand.IsZero() {
		for _, post := range synthPosts(xact, p.equity, grand.Neg(), p.states) {
			if err := p.forward(ctx, post); err != nil {
				return err
			}
		}
	}

	p.values.reset()
	p.latest = nil
	return p.relay.Flush(ctx)
}

func (p *PostsAsEquity) Clear() {
	p.values.reset()
	p.latest = nil
	p.relay.Clear()
}
