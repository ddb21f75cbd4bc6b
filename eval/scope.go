package eval

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// Context is the evaluation scope: the element an expression is tested
// against. Exactly one of Post, Xact or Account is normally set; Total
// carries the element's running total when the calling stage has one.
type Context struct {
	Post    *journal.Post
	Xact    *journal.Xact
	Account *journal.Account

	// Total is the running or display total recorded for the element by an
	// earlier stage, if any.
	Total *value.Value
}

// Describe names the scoped element for error messages.
func (c *Context) Describe() string {
	switch {
	case c == nil:
		return "empty scope"
	case c.Post != nil:
		return fmt.Sprintf("posting %s on %s", c.Post.Account.FullName(), c.Post.GetDate())
	case c.Xact != nil:
		return fmt.Sprintf("transaction %q on %s", c.Xact.Payee, c.Xact.Date)
	case c.Account != nil:
		return fmt.Sprintf("account %s", c.Account.FullName())
	default:
		return "empty scope"
	}
}

// lookup resolves a variable name against the scope.
func (c *Context) lookup(name string) (Val, bool) {
	if c == nil {
		return Val{}, false
	}

	switch name {
	case "true":
		return BoolVal(true), true
	case "false":
		return BoolVal(false), true
	case "total":
		return ValueVal(c.Total.Clone()), true
	}

	if c.Post != nil {
		return c.lookupPost(name)
	}
	if c.Xact != nil {
		return c.lookupXact(c.Xact, name)
	}
	if c.Account != nil {
		return c.lookupAccount(name)
	}
	return Val{}, false
}

func (c *Context) lookupPost(name string) (Val, bool) {
	p := c.Post
	switch name {
	case "amount":
		return AmountVal(p.Amount), true
	case "commodity":
		return StringVal(p.Amount.Commodity), true
	case "account":
		return StringVal(p.Account.FullName()), true
	case "depth":
		return NumberVal(decimal.NewFromInt(int64(p.Account.Depth()))), true
	case "note":
		return StringVal(p.Note), true
	case "date":
		if d := p.GetDate(); d != nil {
			return DateVal(d.Time), true
		}
		return DateVal(journal.Date{}.Time), true
	case "aux_date":
		if p.AuxDate != nil {
			return DateVal(p.AuxDate.Time), true
		}
		return DateVal(journal.Date{}.Time), true
	case "cleared":
		return BoolVal(p.State == journal.Cleared), true
	case "pending":
		return BoolVal(p.State == journal.Pending), true
	case "uncleared":
		return BoolVal(p.State == journal.Uncleared), true
	case "real":
		return BoolVal(!p.Flags.Has(journal.PostVirtual)), true
	case "virtual":
		return BoolVal(p.Flags.Has(journal.PostVirtual)), true
	case "generated":
		return BoolVal(p.Flags.Has(journal.PostGenerated)), true
	}
	if p.Xact != nil {
		return c.lookupXact(p.Xact, name)
	}
	return Val{}, false
}

func (c *Context) lookupXact(x *journal.Xact, name string) (Val, bool) {
	switch name {
	case "payee":
		return StringVal(x.Payee), true
	case "code":
		return StringVal(x.Code), true
	case "date":
		if x.Date != nil {
			return DateVal(x.Date.Time), true
		}
		return DateVal(journal.Date{}.Time), true
	case "note":
		return StringVal(x.Note), true
	case "cleared":
		return BoolVal(x.State == journal.Cleared), true
	case "pending":
		return BoolVal(x.State == journal.Pending), true
	}
	return Val{}, false
}

func (c *Context) lookupAccount(name string) (Val, bool) {
	switch name {
	case "account":
		return StringVal(c.Account.FullName()), true
	case "depth":
		return NumberVal(decimal.NewFromInt(int64(c.Account.Depth()))), true
	}
	return Val{}, false
}

// tag resolves a %tag reference against the scope.
func (c *Context) tag(name string) (string, bool) {
	switch {
	case c == nil:
		return "", false
	case c.Post != nil:
		return c.Post.Tag(name)
	case c.Xact != nil:
		return c.Xact.Tag(name)
	case c.Account != nil:
		return c.Account.Tag(name)
	}
	return "", false
}
