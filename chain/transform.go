package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// Element selects which field TransferDetails rewrites on each posting.
type Element int

const (
	SetDate Element = iota
	SetAccount
	SetPayee
)

// String names the element for error messages.
func (e Element) String() string {
	switch e {
	case SetDate:
		return "date"
	case SetAccount:
		return "account"
	default:
		return "payee"
	}
}

// TransferDetails rewrites one field of each posting (its date, account or
// payee) from an expression evaluated against the posting. The posting and
// its transaction are cloned; the journal's objects stay untouched.
type TransferDetails struct {
	relay
	states  *StateTable
	element Element
	expr    *eval.Expr

	// accounts is the tree new account paths are resolved in.
	accounts *journal.Account
}

// NewTransferDetails creates the field-rewriting stage.
func NewTransferDetails(next PostHandler, element Element, expr *eval.Expr, accounts *journal.Account, states *StateTable) *TransferDetails {
	return &TransferDetails{
		relay:    newRelay(next),
		states:   states,
		element:  element,
		expr:     expr,
		accounts: accounts,
	}
}

func (t *TransferDetails) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	v, err := t.expr.Calc(t.states.Context(post))
	if err != nil {
		return err
	}

	xact := &journal.Xact{Date: post.GetDate().Clone()}
	if post.Xact != nil {
		xact = post.Xact.CloneShell()
	}
	clone := post.Clone()
	clone.Flags |= journal.PostTemporary
	xact.AddPost(clone)

	switch t.element {
	case SetDate:
		d, err := journal.NewDate(v.Str())
		if err != nil {
			return &eval.EvalError{Text: t.expr.Text(), Scope: t.states.Context(post).Describe(), Err: err}
		}
		clone.Date = d
	case SetAccount:
		clone.Account = t.accounts.FindOrCreate(v.Str())
	case SetPayee:
		xact.Payee = v.Str()
	}

	if st, ok := t.states.PostIfPresent(post); ok {
		// The clone inherits the original's recorded computation state.
		cst := t.states.Post(clone)
		cst.Total = st.Total.Clone()
		cst.Visited = st.Visited
		cst.CompoundValue = st.CompoundValue.Clone()
	}
	return t.forward(ctx, clone)
}

// AnonymizePosts rewrites identifying fields on cloned postings: payees and
// non-root account segments are replaced with stable digests, notes and
// tags are dropped, and the anonymized flag is set. Amounts and dates are
// preserved so report structure survives anonymization.
type AnonymizePosts struct {
	relay

	// accounts holds the anonymized account tree, grown as postings arrive.
	accounts *journal.Account

	// xacts maps each source transaction to its anonymized clone so all
	// its postings land on one transaction.
	xacts map[*journal.Xact]*journal.Xact
}

// NewAnonymizePosts creates the anonymization stage.
func NewAnonymizePosts(next PostHandler) *AnonymizePosts {
	return &AnonymizePosts{
		relay:    newRelay(next),
		accounts: journal.NewAccountTree(),
		xacts:    make(map[*journal.Xact]*journal.Xact),
	}
}

func (a *AnonymizePosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	xact, ok := a.xacts[post.Xact]
	if !ok {
		xact = &journal.Xact{
			Date:    post.Xact.Date.Clone(),
			AuxDate: post.Xact.AuxDate.Clone(),
			Payee:   anonymizeName(post.Xact.Payee),
			State:   post.Xact.State,
		}
		a.xacts[post.Xact] = xact
	}

	clone := post.Clone()
	clone.Account = a.accounts.FindOrCreate(anonymizeAccount(post.Account))
	clone.Note = ""
	clone.Tags = nil
	clone.Flags |= journal.PostAnonymized | journal.PostTemporary
	xact.AddPost(clone)

	return a.forward(ctx, clone)
}

func (a *AnonymizePosts) Clear() {
	a.xacts = make(map[*journal.Xact]*journal.Xact)
	a.relay.Clear()
}

// anonymizeAccount digests every segment of the account path except the
// first, which carries the account's category (Assets, Expenses, ...).
func anonymizeAccount(account *journal.Account) string {
	segments := strings.Split(account.FullName(), ":")
	for i := 1; i < len(segments); i++ {
		segments[i] = anonymizeName(segments[i])
	}
	return strings.Join(segments, ":")
}

// anonymizeName maps a name to a stable, meaningless identifier.
func anonymizeName(name string) string {
	if name == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(name))
	digest := hex.EncodeToString(sum[:])[:10]
	return strings.ToUpper(digest[:1]) + digest[1:]
}

// InjectPosts synthesizes a companion posting for each posting whose
// account, or an ancestor of it, carries the named tag: the tag's value is
// parsed as an amount and injected against the tagged account.
type InjectPosts struct {
	relay
	states *StateTable
	tag    string
}

// NewInjectPosts creates the tag-driven injection stage.
func NewInjectPosts(next PostHandler, tag string, states *StateTable) *InjectPosts {
	return &InjectPosts{relay: newRelay(next), states: states, tag: tag}
}

func (i *InjectPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	if err := i.forward(ctx, post); err != nil {
		return err
	}

	tagVal, ok := post.Account.Tag(i.tag)
	if !ok {
		return nil
	}
	amount, err := value.ParseAmount(tagVal)
	if err != nil {
		// A malformed tag amount is a data error on the account, not a
		// reason to abort the report.
		return nil
	}

	xact := &journal.Xact{Date: post.GetDate().Clone(), Payee: post.Payee()}
	injected := &journal.Post{
		Account: post.Account,
		Amount:  amount,
		Flags:   journal.PostGenerated | journal.PostTemporary,
	}
	xact.AddPost(injected)
	i.states.Post(injected).Visited = true

	return i.forward(ctx, injected)
}
