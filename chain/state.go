package chain

import (
	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// PostState is per-posting scratch data for a single report run: the running
// total recorded by CalcPosts, visited/displayed flags, and an optional
// compound value override set by aggregation stages. Postings themselves
// stay untouched; state lives in the side table below.
type PostState struct {
	// Total is the cumulative running total recorded for this posting.
	// Always a clone of the accumulator at recording time; later additions
	// must not retroactively alter it.
	Total *value.Value

	// CompoundValue overrides the posting's own amount for display, used by
	// aggregate posts whose group sum spans several commodities.
	CompoundValue *value.Value

	// Visited is set when the posting passed the filters of this run.
	Visited bool

	// Displayed is set once a terminal stage has emitted the posting.
	Displayed bool
}

// AccountState is the per-run marks aggregation stages leave on account
// tree nodes. The tree itself is shared across runs, so the marks live here.
type AccountState struct {
	Visited   bool
	ToDisplay bool
}

// StateTable is the transient side table for one report run, keyed by
// posting and account identity. Entries are created lazily on first touch
// and the whole table is reset between independent runs. It is not safe to
// share across concurrently-running chains.
type StateTable struct {
	posts    map[*journal.Post]*PostState
	accounts map[*journal.Account]*AccountState
}

// NewStateTable creates an empty state table.
func NewStateTable() *StateTable {
	return &StateTable{
		posts:    make(map[*journal.Post]*PostState),
		accounts: make(map[*journal.Account]*AccountState),
	}
}

// Post returns the state for a posting, creating it on first touch.
func (t *StateTable) Post(p *journal.Post) *PostState {
	st, ok := t.posts[p]
	if !ok {
		st = &PostState{}
		t.posts[p] = st
	}
	return st
}

// PostIfPresent returns the state for a posting without creating it.
func (t *StateTable) PostIfPresent(p *journal.Post) (*PostState, bool) {
	st, ok := t.posts[p]
	return st, ok
}

// Account returns the state for an account, creating it on first touch.
func (t *StateTable) Account(a *journal.Account) *AccountState {
	st, ok := t.accounts[a]
	if !ok {
		st = &AccountState{}
		t.accounts[a] = st
	}
	return st
}

// Reset drops all per-run state. Must be called before a second report run
// touches the same journal or account tree.
func (t *StateTable) Reset() {
	t.posts = make(map[*journal.Post]*PostState)
	t.accounts = make(map[*journal.Account]*AccountState)
}

// Context builds an evaluation scope for a posting, threading in its
// recorded running total when one exists.
func (t *StateTable) Context(p *journal.Post) *eval.Context {
	ctx := &eval.Context{Post: p}
	if st, ok := t.posts[p]; ok {
		ctx.Total = st.Total
	}
	return ctx
}
