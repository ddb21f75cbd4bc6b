package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/output"
	"github.com/ledgerpipe/ledgerpipe/value"
)

const (
	dateWidth    = 10
	payeeWidth   = 24
	accountWidth = 28
	amountWidth  = 16
)

// Printer is a terminal sink that writes register-style output: one line
// per posting with date, payee, account, amount and running-total columns.
// Amount columns are right-aligned by display width so wide runes in payee
// and account names do not skew them.
type Printer struct {
	w      io.Writer
	states *chain.StateTable
	styles *output.Styles

	lastXact *journal.Xact
	err      error
}

// NewPrinter creates a register printer. Styles may be nil for plain output.
func NewPrinter(w io.Writer, states *chain.StateTable, styles *output.Styles) *Printer {
	return &Printer{w: w, states: states, styles: styles}
}

// Err returns the first write error, if any. Write failures do not abort
// the chain; callers check Err after the run.
func (p *Printer) Err() error { return p.err }

func (p *Printer) Title(label string) {
	if label == "" {
		return
	}
	if p.styles != nil {
		label = p.styles.Keyword(label)
	}
	p.printf("%s\n\n", label)
}

func (p *Printer) Handle(ctx context.Context, post *journal.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	st := p.states.Post(post)
	st.Displayed = true
	p.states.Account(post.Account).ToDisplay = true

	// Date and payee print once per transaction; continuation lines of the
	// same transaction leave them blank.
	date, payee := "", ""
	if post.Xact == nil || post.Xact != p.lastXact {
		date = post.GetDate().String()
		payee = post.Payee()
		p.lastXact = post.Xact
	}

	account := ""
	if post.Account != nil {
		account = post.Account.FullName()
	}

	amount := post.Amount.String()
	if st.CompoundValue != nil {
		amount = st.CompoundValue.String()
	}
	negative := post.Amount.Number.IsNegative()

	total := formatTotal(st.Total)

	p.printf("%s %s %s %s %s\n",
		p.styleDate(fillRight(date, dateWidth)),
		p.stylePayee(fillRight(truncate(payee, payeeWidth), payeeWidth)),
		p.styleAccount(fillRight(truncate(account, accountWidth), accountWidth)),
		p.styleAmount(fillLeft(amount, amountWidth), negative),
		fillLeft(total, amountWidth))
	return nil
}

func (p *Printer) Flush(ctx context.Context) error { return ctx.Err() }

func (p *Printer) Clear() { p.lastXact = nil }

func (p *Printer) Dispose() {}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *Printer) styleDate(s string) string {
	if p.styles == nil || strings.TrimSpace(s) == "" {
		return s
	}
	return p.styles.Date(s)
}

func (p *Printer) stylePayee(s string) string {
	if p.styles == nil || strings.TrimSpace(s) == "" {
		return s
	}
	return p.styles.Payee(s)
}

func (p *Printer) styleAccount(s string) string {
	if p.styles == nil {
		return s
	}
	return p.styles.Account(s)
}

func (p *Printer) styleAmount(s string, negative bool) string {
	if p.styles == nil {
		return s
	}
	return p.styles.Amount(s, negative)
}

// formatTotal renders a running total as a comma-separated amount list in
// commodity order, or "0" when empty.
func formatTotal(total *value.Value) string {
	if total == nil || total.IsZero() {
		return "0"
	}
	parts := make([]string, 0, len(total.Commodities()))
	for _, commodity := range total.Commodities() {
		parts = append(parts, value.NewAmount(total.Get(commodity), commodity).String())
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "..")
}

func fillRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func fillLeft(s string, width int) string {
	return runewidth.FillLeft(s, width)
}
