package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-runewidth"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/output"
	"github.com/ledgerpipe/ledgerpipe/report"
	"github.com/ledgerpipe/ledgerpipe/value"
)

const balanceAmountWidth = 20

type BalanceCmd struct {
	reportFlags

	Flat bool        `help:"Print full account names instead of a tree."`
	File FileOrStdin `help:"Journal input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

func (cmd *BalanceCmd) Run(ctx *kong.Context, globals *Globals) error {
	opts := cmd.options()
	// Balances are per-account sums, not a running register total, and the
	// chain must not fold postings into summary transactions first.
	opts.Running = false
	opts.ForAccountsReport = true

	var collector *report.Collector
	runner := &reportRunner{
		kctx:    ctx,
		globals: globals,
		file:    cmd.File,
		opts:    opts,
		makeSink: func(states *chain.StateTable) chain.PostHandler {
			collector = report.NewCollector(states)
			return collector
		},
	}
	if err := runner.run(context.Background()); err != nil {
		return err
	}

	b := newBalanceTree(collector.Posts())
	if b.root == nil {
		printInfof(ctx.Stdout, "no matching postings")
		return nil
	}

	styles := output.NewStyles(ctx.Stdout)
	if cmd.Flat {
		b.printFlat(ctx.Stdout, styles)
	} else {
		b.printTree(ctx.Stdout, styles)
	}
	return nil
}

// balanceTree is per-account totals accumulated from a report run: each
// posting's amount lands on its account and rolls up through every ancestor.
type balanceTree struct {
	root   *journal.Account
	direct map[*journal.Account]*value.Value
	rolled map[*journal.Account]*value.Value
}

func newBalanceTree(posts []*journal.Post) *balanceTree {
	b := &balanceTree{
		direct: make(map[*journal.Account]*value.Value),
		rolled: make(map[*journal.Account]*value.Value),
	}
	for _, post := range posts {
		if post.Account == nil {
			continue
		}
		b.add(b.direct, post.Account, post.Amount)
		for a := post.Account; a != nil; a = a.Parent {
			b.add(b.rolled, a, post.Amount)
			if a.Parent == nil {
				b.root = a
			}
		}
	}
	return b
}

func (b *balanceTree) add(m map[*journal.Account]*value.Value, a *journal.Account, amount value.Amount) {
	v, ok := m[a]
	if !ok {
		v = value.NewValue()
		m[a] = v
	}
	v.AddAmount(amount)
}

func (b *balanceTree) printTree(w io.Writer, styles *output.Styles) {
	for _, child := range b.root.Children() {
		b.printAccount(w, styles, child, 0)
	}
	b.printGrandTotal(w, styles)
}

func (b *balanceTree) printAccount(w io.Writer, styles *output.Styles, a *journal.Account, depth int) {
	rolled, ok := b.rolled[a]
	if !ok {
		return
	}
	name := strings.Repeat("  ", depth) + a.Name
	writeBalanceLine(w, styles, rolled, name)
	for _, child := range a.Children() {
		b.printAccount(w, styles, child, depth+1)
	}
}

func (b *balanceTree) printFlat(w io.Writer, styles *output.Styles) {
	var walk func(a *journal.Account)
	walk = func(a *journal.Account) {
		if v, ok := b.direct[a]; ok && !v.IsZero() {
			writeBalanceLine(w, styles, v, a.FullName())
		}
		for _, child := range a.Children() {
			walk(child)
		}
	}
	walk(b.root)
	b.printGrandTotal(w, styles)
}

func (b *balanceTree) printGrandTotal(w io.Writer, styles *output.Styles) {
	_, _ = fmt.Fprintf(w, "%s\n", strings.Repeat("-", balanceAmountWidth))
	total := b.rolled[b.root]
	if total == nil {
		total = value.NewValue()
	}
	writeBalanceLine(w, styles, total, "")
}

// writeBalanceLine prints one amount per commodity, right-aligned, with the
// account name on the last line.
func writeBalanceLine(w io.Writer, styles *output.Styles, v *value.Value, name string) {
	commodities := v.Commodities()
	if len(commodities) == 0 {
		line := runewidth.FillLeft("0", balanceAmountWidth)
		_, _ = fmt.Fprintf(w, "%s  %s\n", line, styles.Account(name))
		return
	}
	for i, commodity := range commodities {
		number := v.Get(commodity)
		amount := value.NewAmount(number, commodity)
		line := styles.Amount(runewidth.FillLeft(amount.String(), balanceAmountWidth), number.IsNegative())
		if i == len(commodities)-1 {
			_, _ = fmt.Fprintf(w, "%s  %s\n", line, styles.Account(name))
		} else {
			_, _ = fmt.Fprintf(w, "%s\n", line)
		}
	}
}
