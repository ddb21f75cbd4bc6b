package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-runewidth"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/report"
)

type AnonymizeCmd struct {
	Limit  string      `help:"Only write postings matching this predicate." short:"l" placeholder:"EXPR"`
	Output string      `help:"Write the scrubbed journal to this file instead of stdout." short:"o" placeholder:"FILE"`
	File   FileOrStdin `help:"Journal input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
}

func (cmd *AnonymizeCmd) Run(ctx *kong.Context, globals *Globals) error {
	opts := &chain.Options{
		Limit:     cmd.Limit,
		Anonymize: true,
	}

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

	w := io.Writer(ctx.Stdout)
	if cmd.Output != "" {
		if _, err := os.Stat(cmd.Output); err == nil {
			overwrite, err := promptYesNo(ctx, fmt.Sprintf("Overwrite %s?", cmd.Output))
			if err != nil {
				return err
			}
			if !overwrite {
				printInfof(ctx.Stderr, "leaving %s untouched", cmd.Output)
				return nil
			}
		}
		f, err := os.Create(cmd.Output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", cmd.Output, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := writeJournal(w, collector.Posts()); err != nil {
		return err
	}
	if cmd.Output != "" {
		printSuccess(ctx.Stderr, fmt.Sprintf("wrote %s", cmd.Output))
	}
	return nil
}

// writeJournal serializes postings back to journal text, grouping
// consecutive postings of the same transaction under one header.
func writeJournal(w io.Writer, posts []*journal.Post) error {
	var last *journal.Xact
	first := true
	for _, post := range posts {
		if post.Xact == nil || post.Xact != last {
			if !first {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if err := writeHeader(w, post); err != nil {
				return err
			}
			last = post.Xact
			first = false
		}
		account := ""
		if post.Account != nil {
			account = post.Account.FullName()
		}
		if _, err := fmt.Fprintf(w, "    %s  %s\n",
			runewidth.FillRight(account, 34), post.Amount.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, post *journal.Post) error {
	marker := ""
	code := ""
	if post.Xact != nil {
		switch post.Xact.State {
		case journal.Cleared:
			marker = "* "
		case journal.Pending:
			marker = "! "
		}
		if post.Xact.Code != "" {
			code = fmt.Sprintf("(%s) ", post.Xact.Code)
		}
	}
	_, err := fmt.Fprintf(w, "%s %s%s%s\n", post.GetDate(), marker, code, post.Payee())
	return err
}
