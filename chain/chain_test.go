package chain

import (
	"context"
	"testing"

	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// capture is a terminal handler recording everything that reaches it.
type capture struct {
	posts    []*journal.Post
	titles   []string
	flushes  int
	clears   int
	disposed bool
}

func (c *capture) Title(label string) { c.titles = append(c.titles, label) }

func (c *capture) Handle(ctx context.Context, post *journal.Post) error {
	c.posts = append(c.posts, post)
	return nil
}

func (c *capture) Flush(ctx context.Context) error {
	c.flushes++
	return nil
}

func (c *capture) Clear()   { c.clears++ }
func (c *capture) Dispose() { c.disposed = true }

func (c *capture) accounts() []string {
	names := make([]string, len(c.posts))
	for i, post := range c.posts {
		names[i] = post.Account.FullName()
	}
	return names
}

func (c *capture) amounts() []string {
	amounts := make([]string, len(c.posts))
	for i, post := range c.posts {
		amounts[i] = post.Amount.String()
	}
	return amounts
}

func (c *capture) payees() []string {
	payees := make([]string, len(c.posts))
	for i, post := range c.posts {
		payees[i] = post.Payee()
	}
	return payees
}

// addXact appends a transaction with postings given as account/amount pairs.
func addXact(t testing.TB, j *journal.Journal, date, payee string, pairs ...string) *journal.Xact {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatalf("addXact wants account/amount pairs, got %d values", len(pairs))
	}
	x := &journal.Xact{Date: journal.MustDate(date), Payee: payee}
	for i := 0; i < len(pairs); i += 2 {
		x.AddPost(&journal.Post{
			Account: j.Accounts.FindOrCreate(pairs[i]),
			Amount:  value.MustParseAmount(pairs[i+1]),
		})
	}
	j.AddXact(x)
	return x
}

// addPeriodXact registers a periodic template with postings given as
// account/amount pairs.
func addPeriodXact(t testing.TB, j *journal.Journal, period string, pairs ...string) *journal.PeriodXact {
	t.Helper()
	interval, err := journal.ParsePeriod(period)
	if err != nil {
		t.Fatalf("ParsePeriod(%q): %v", period, err)
	}
	x := &journal.Xact{Payee: period}
	for i := 0; i < len(pairs); i += 2 {
		x.AddPost(&journal.Post{
			Account: j.Accounts.FindOrCreate(pairs[i]),
			Amount:  value.MustParseAmount(pairs[i+1]),
		})
	}
	px := &journal.PeriodXact{Period: interval, PeriodText: period, Xact: x}
	j.AddPeriodXact(px)
	return px
}

// feed drives every posting of the journal through the handler and flushes.
func feed(t testing.TB, handler PostHandler, j *journal.Journal) {
	t.Helper()
	ctx := context.Background()
	for _, post := range j.Posts() {
		if err := handler.Handle(ctx, post); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if err := handler.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

// runChain assembles the full chain for opts and runs the journal through
// it, returning the terminal capture.
func runChain(t testing.TB, opts *Options, j *journal.Journal) (*capture, *StateTable) {
	t.Helper()
	states := NewStateTable()
	sink := &capture{}
	handler, err := Build(opts, sink, j, states)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	feed(t, handler, j)
	return sink, states
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
