package journal

import (
	"github.com/ledgerpipe/ledgerpipe/value"
)

// State is the lifecycle state of a transaction or posting.
type State int

const (
	Uncleared State = iota
	Pending
	Cleared
)

// String returns the conventional flag character for the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "!"
	case Cleared:
		return "*"
	default:
		return ""
	}
}

// PostFlags is a bitset of posting attributes.
type PostFlags uint16

const (
	// PostVirtual marks a posting that does not participate in the real
	// balance of its transaction (budget, forecast and revaluation posts).
	PostVirtual PostFlags = 1 << iota
	// PostMustBalance marks a virtual posting that still has to balance.
	PostMustBalance
	// PostCalculated marks an amount that was inferred rather than written.
	PostCalculated
	// PostGenerated marks a posting synthesized by a pipeline stage.
	PostGenerated
	// PostTemporary marks a posting whose transaction is owned by a stage
	// and must not outlive the report run.
	PostTemporary
	// PostAnonymized marks a posting rewritten by the anonymization stage.
	PostAnonymized
	// PostNoteOnNextLine records that the posting's note was written on
	// its own line in the source journal.
	PostNoteOnNextLine
)

// Has reports whether all given flags are set.
func (f PostFlags) Has(flags PostFlags) bool {
	return f&flags == flags
}

// Xact is a transaction: a dated group of postings whose amounts net to zero
// per commodity. Balancing is enforced by the journal producer; the pipeline
// consumes it as a precondition.
type Xact struct {
	Date    *Date
	AuxDate *Date
	Payee   string
	Code    string
	State   State
	Note    string
	Tags    map[string]string

	Postings []*Post
}

// AddPost attaches a posting to the transaction. A posting belongs to
// exactly one transaction and appears in its posting list exactly once.
func (x *Xact) AddPost(p *Post) {
	p.Xact = x
	x.Postings = append(x.Postings, p)
}

// Tag looks up a tag on the transaction.
func (x *Xact) Tag(name string) (string, bool) {
	val, ok := x.Tags[name]
	return val, ok
}

// SetTag attaches a tag to the transaction.
func (x *Xact) SetTag(name, val string) {
	if x.Tags == nil {
		x.Tags = make(map[string]string)
	}
	x.Tags[name] = val
}

// CloneShell returns a copy of the transaction metadata without its
// postings. Generative and transform stages build their synthetic
// transactions from shells so that shared templates are never mutated.
func (x *Xact) CloneShell() *Xact {
	clone := &Xact{
		Date:    x.Date.Clone(),
		AuxDate: x.AuxDate.Clone(),
		Payee:   x.Payee,
		Code:    x.Code,
		State:   x.State,
		Note:    x.Note,
	}
	if len(x.Tags) > 0 {
		clone.Tags = make(map[string]string, len(x.Tags))
		for k, v := range x.Tags {
			clone.Tags[k] = v
		}
	}
	return clone
}

// Post is one debit/credit line within a transaction.
type Post struct {
	Xact    *Xact
	Account *Account

	Amount value.Amount
	// Cost is the optional total cost of the amount in another commodity.
	Cost *value.Amount
	// AssignedAmount is the optional asserted balance after this posting.
	AssignedAmount *value.Amount

	Flags PostFlags
	State State

	// Date overrides the transaction date when set.
	Date    *Date
	AuxDate *Date

	Note string
	Tags map[string]string
}

// GetDate returns the posting's effective date: its own date if set,
// otherwise the date of its transaction.
func (p *Post) GetDate() *Date {
	if p.Date != nil {
		return p.Date
	}
	if p.Xact != nil {
		return p.Xact.Date
	}
	return nil
}

// Payee returns the effective payee, which is the transaction's.
func (p *Post) Payee() string {
	if p.Xact == nil {
		return ""
	}
	return p.Xact.Payee
}

// Tag looks up a tag on the posting, falling back to its transaction.
func (p *Post) Tag(name string) (string, bool) {
	if val, ok := p.Tags[name]; ok {
		return val, true
	}
	if p.Xact != nil {
		return p.Xact.Tag(name)
	}
	return "", false
}

// SetTag attaches a tag to the posting.
func (p *Post) SetTag(name, val string) {
	if p.Tags == nil {
		p.Tags = make(map[string]string)
	}
	p.Tags[name] = val
}

// Clone returns a copy of the posting detached from any transaction.
// The copy shares the account node (accounts are interned in the tree) but
// owns its dates, tags and amounts.
func (p *Post) Clone() *Post {
	clone := &Post{
		Account: p.Account,
		Amount:  p.Amount,
		Flags:   p.Flags,
		State:   p.State,
		Date:    p.Date.Clone(),
		AuxDate: p.AuxDate.Clone(),
		Note:    p.Note,
	}
	if p.Cost != nil {
		cost := *p.Cost
		clone.Cost = &cost
	}
	if p.AssignedAmount != nil {
		assigned := *p.AssignedAmount
		clone.AssignedAmount = &assigned
	}
	if len(p.Tags) > 0 {
		clone.Tags = make(map[string]string, len(p.Tags))
		for k, v := range p.Tags {
			clone.Tags[k] = v
		}
	}
	return clone
}
