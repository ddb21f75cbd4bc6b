package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/loader"
	"github.com/ledgerpipe/ledgerpipe/output"
	"github.com/ledgerpipe/ledgerpipe/report"
	"github.com/ledgerpipe/ledgerpipe/telemetry"
)

// reportFlags are the chain options shared by the reporting commands. Each
// flag maps onto one stage of the pipeline.
type reportFlags struct {
	Limit   string `help:"Only consider postings matching this predicate." short:"l" placeholder:"EXPR"`
	Only    string `help:"Drop postings not matching this predicate after totals are computed." placeholder:"EXPR"`
	Display string `help:"Only display postings matching this predicate." short:"d" placeholder:"EXPR"`

	Amount       string `help:"Expression for each posting's reported amount." short:"t" placeholder:"EXPR"`
	DisplayTotal string `help:"Expression for each posting's displayed total." short:"T" placeholder:"EXPR"`
	ShowRounding bool   `help:"Show rounding drift introduced by display expressions as <Adjustment> postings."`

	Sort      string `help:"Sort postings by this value expression." short:"S" placeholder:"EXPR"`
	SortXacts bool   `help:"Sort whole transactions instead of postings."`

	Period     string `help:"Bucket postings into recurring intervals (e.g. 'monthly from 2024-01-01')." short:"p" placeholder:"PERIOD"`
	ByPayee    bool   `help:"Group postings by payee." short:"P"`
	DaysOfWeek bool   `help:"Group postings by day of the week."`
	Subtotal   bool   `help:"Collapse all matching postings into a per-account summary." short:"s"`
	Collapse   bool   `help:"Collapse multi-posting transactions to a single <Total> line." short:"n"`
	Equity     bool   `help:"Emit matching balances as an opening-balances transaction."`

	Related    bool `help:"Show the sibling postings of matching postings." short:"r"`
	RelatedAll bool `help:"Show all postings of matching transactions."`

	Head int `help:"Show only the first N transactions." placeholder:"N"`
	Tail int `help:"Show only the last N transactions." placeholder:"N"`

	Forecast      string `help:"Project periodic templates into the future while EXPR holds." placeholder:"EXPR"`
	ForecastYears int    `help:"Forecast horizon in years past the last real posting." default:"0"`

	Account string `help:"Expression rewriting each posting's account." placeholder:"EXPR"`
	Payee   string `help:"Expression rewriting each posting's payee." placeholder:"EXPR"`
	Pivot   string `help:"Group postings by the value of this tag." placeholder:"TAG"`
	Inject  string `help:"Inject postings from this account tag's amount." placeholder:"TAG"`

	Anonymize bool `help:"Scrub payees, accounts and notes before reporting."`
}

// options translates the flag set into chain options. The running total is
// always computed for register-style output.
func (f *reportFlags) options() *chain.Options {
	return &chain.Options{
		Limit:   f.Limit,
		Only:    f.Only,
		Display: f.Display,

		AmountExpr: f.Amount,
		CalcTotal:  true,
		Running:    true,

		DisplayTotalExpr: f.DisplayTotal,
		ShowRounding:     f.ShowRounding,

		Sort:      f.Sort,
		SortXacts: f.SortXacts,

		Period:     f.Period,
		ByPayee:    f.ByPayee,
		DaysOfWeek: f.DaysOfWeek,
		Subtotal:   f.Subtotal,
		Collapse:   f.Collapse,
		Equity:     f.Equity,

		Related:    f.Related,
		RelatedAll: f.RelatedAll,

		Head: f.Head,
		Tail: f.Tail,

		Forecast:      f.Forecast,
		ForecastYears: f.ForecastYears,

		SetAccountExpr: f.Account,
		SetPayeeExpr:   f.Payee,
		Pivot:          f.Pivot,
		InjectTag:      f.Inject,

		Anonymize: f.Anonymize,
	}
}

// reportRunner carries everything one report execution needs, so watch mode
// can re-run it on journal changes.
type reportRunner struct {
	kctx    *kong.Context
	globals *Globals
	file    FileOrStdin
	opts    *chain.Options
	title   string

	// makeSink builds a fresh terminal sink per run.
	makeSink func(states *chain.StateTable) chain.PostHandler
}

func (r *reportRunner) run(runCtx context.Context) error {
	if err := r.file.EnsureContents(); err != nil {
		return err
	}

	var collector telemetry.Collector
	if r.globals.Telemetry {
		collector = telemetry.NewTimingCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)

		defer func() {
			_, _ = fmt.Fprintln(r.kctx.Stderr)
			collector.Report(r.kctx.Stderr, output.NewStyles(r.kctx.Stderr))
		}()
	}

	j, err := r.loadJournal(runCtx)
	if err != nil {
		return err
	}

	states := chain.NewStateTable()
	sink := r.makeSink(states)
	if r.title != "" {
		sink.Title(r.title)
	}

	if err := report.Run(runCtx, j, r.opts, sink, states); err != nil {
		var berr *chain.BuildError
		if errors.As(err, &berr) {
			printError(r.kctx.Stderr, berr.Error())
			return NewCommandError(1)
		}
		return err
	}
	return nil
}

func (r *reportRunner) loadJournal(runCtx context.Context) (*journal.Journal, error) {
	ldr := loader.New(loader.WithFollowIncludes())
	j, err := r.file.LoadJournal(runCtx, ldr)
	if err != nil {
		source, srcErr := r.file.GetSourceContent()
		if srcErr != nil {
			source = nil
		}
		renderer := NewErrorRenderer(source)
		_, _ = fmt.Fprintln(r.kctx.Stderr, renderer.Render(err))
		printError(r.kctx.Stderr, "parse error")
		return nil, NewCommandError(1)
	}
	return j, nil
}

func (r *reportRunner) watchPath() (string, error) {
	if r.file.Filename == "<stdin>" || r.file.Filename == "" {
		return "", fmt.Errorf("watch mode requires a journal file, not stdin")
	}
	return filepath.Abs(r.file.Filename)
}
