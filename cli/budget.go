package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/output"
	"github.com/ledgerpipe/ledgerpipe/report"
)

type BudgetCmd struct {
	reportFlags

	Unbudgeted bool        `help:"Show only postings against accounts no budget template covers."`
	AddBudget  bool        `help:"Show budgeted and unbudgeted postings together."`
	File       FileOrStdin `help:"Journal input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

func (cmd *BudgetCmd) Run(ctx *kong.Context, globals *Globals) error {
	opts := cmd.options()
	switch {
	case cmd.AddBudget:
		opts.Budget = chain.BudgetBudgeted | chain.BudgetUnbudgeted
	case cmd.Unbudgeted:
		opts.Budget = chain.BudgetUnbudgeted
	default:
		opts.Budget = chain.BudgetBudgeted
	}

	var printer *report.Printer
	runner := &reportRunner{
		kctx:    ctx,
		globals: globals,
		file:    cmd.File,
		opts:    opts,
		makeSink: func(states *chain.StateTable) chain.PostHandler {
			printer = report.NewPrinter(ctx.Stdout, states, output.NewStyles(ctx.Stdout))
			return printer
		},
	}
	if err := runner.run(context.Background()); err != nil {
		return err
	}
	return printer.Err()
}
