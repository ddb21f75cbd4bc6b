package chain

import (
	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
)

// Options is a report's resolved option set: every expression arrives as
// text and is parsed during assembly, so malformed options surface as build
// errors before any posting is processed. The zero value builds a chain
// that forwards every posting untouched to the terminal handler.
type Options struct {
	// Limit is the primary predicate, applied before any business stage.
	Limit string
	// Only is the secondary predicate, applied after the running total.
	Only string
	// Display is the display predicate, applied near the terminal end.
	Display string

	// AmountExpr overrides each posting's contribution to the running
	// total; CalcTotal enables the running-total stage at all.
	AmountExpr string
	CalcTotal  bool
	// Running accumulates across postings; false records each posting's
	// own contribution as its total.
	Running bool

	// DisplayAmountExpr/DisplayTotalExpr feed the display-rounding stage;
	// ShowRounding emits "<Adjustment>" postings for the drift.
	DisplayAmountExpr string
	DisplayTotalExpr  string
	ShowRounding      bool

	// Revalued enables market-drift "<Revalued>" postings through Valuer;
	// RevaluedAt adds a final revaluation at that date during flush.
	Revalued   bool
	Valuer     Valuer
	RevaluedAt *journal.Date

	// Sort is the sort-key expression; SortXacts sorts whole transactions
	// instead of individual postings.
	Sort      string
	SortXacts bool

	Collapse bool
	Subtotal bool
	Equity   bool
	// ForAccountsReport marks accounts-style builds, which always skip
	// subtotal and equity insertion at this layer.
	ForAccountsReport bool

	ByPayee    bool
	DaysOfWeek bool
	// Period buckets postings into recurring date intervals.
	Period string

	// SetDateExpr/SetAccountExpr/SetPayeeExpr rewrite posting fields.
	SetDateExpr    string
	SetAccountExpr string
	SetPayeeExpr   string
	// Pivot is shorthand for grouping by a tag's value under a synthetic
	// account root named after the tag.
	Pivot string

	Related    bool
	RelatedAll bool

	// InjectTag injects companion postings from account tags.
	InjectTag string

	Head int
	Tail int

	// Budget and Forecast are mutually exclusive generative modes.
	Budget        BudgetMode
	Forecast      string
	ForecastWhile string
	ForecastYears int

	Anonymize bool

	// Generate expands bounded periodic templates wholesale.
	Generate bool
}

// wantsForecast reports whether any forecast option is set.
func (o *Options) wantsForecast() bool {
	return o.Forecast != "" || o.ForecastWhile != ""
}

// PostHandlers builds the business-logic half of the chain around the
// terminal handler, inward to outward, in a fixed relative order. Reordering
// any two stages changes report semantics; every insertion below is
// conditional only on its governing option, never on its neighbors.
func PostHandlers(opts *Options, base PostHandler, j *journal.Journal, states *StateTable) (PostHandler, error) {
	handler := base

	// Forecast postings are re-tested against the while-predicate at
	// display time.
	if opts.ForecastWhile != "" {
		pred, err := eval.ParsePredicate(opts.ForecastWhile)
		if err != nil {
			return nil, &BuildError{Option: "forecast-while", Err: err}
		}
		handler = NewFilterPosts(handler, pred, states)
	}

	if opts.Head != 0 || opts.Tail != 0 {
		handler = NewTruncateXacts(handler, opts.Head, opts.Tail)
	}

	if opts.DisplayAmountExpr != "" || opts.DisplayTotalExpr != "" || opts.ShowRounding {
		dispAmount, err := parseOptExpr("display-amount", opts.DisplayAmountExpr)
		if err != nil {
			return nil, err
		}
		dispTotal, err := parseOptExpr("display-total", opts.DisplayTotalExpr)
		if err != nil {
			return nil, err
		}
		handler = NewDisplayFilterPosts(handler, dispAmount, dispTotal, opts.ShowRounding, states)
	}

	if opts.Display != "" {
		pred, err := eval.ParsePredicate(opts.Display)
		if err != nil {
			return nil, &BuildError{Option: "display", Err: err}
		}
		handler = NewFilterPosts(handler, pred, states)
	}

	if opts.Revalued {
		handler = NewChangedValuePost(handler, opts.Valuer, opts.RevaluedAt, states)
	}

	if opts.CalcTotal {
		amountExpr, err := parseOptExpr("amount", opts.AmountExpr)
		if err != nil {
			return nil, err
		}
		handler = NewCalcPosts(handler, amountExpr, opts.Running, states)
	}

	if opts.Only != "" {
		pred, err := eval.ParsePredicate(opts.Only)
		if err != nil {
			return nil, &BuildError{Option: "only", Err: err}
		}
		handler = NewFilterPosts(handler, pred, states)
	}

	if opts.Sort != "" {
		sortExpr, err := parseOptExpr("sort", opts.Sort)
		if err != nil {
			return nil, err
		}
		if opts.SortXacts {
			handler = NewSortXacts(handler, sortExpr, states)
		} else {
			handler = NewSortPosts(handler, sortExpr, states)
		}
	}

	if opts.Collapse {
		pred, err := eval.ParsePredicate(opts.Display)
		if err != nil {
			return nil, &BuildError{Option: "display", Err: err}
		}
		handler = NewCollapsePosts(handler, pred, states)
	}

	// Accounts-style reports always skip both subtotal and equity
	// insertion at this layer.
	if opts.Equity && !opts.ForAccountsReport {
		handler = NewPostsAsEquity(handler, j.Accounts, states)
	} else if opts.Subtotal && !opts.Equity && !opts.ForAccountsReport {
		handler = NewSubtotalPosts(handler, states)
	}

	if opts.DaysOfWeek {
		handler = NewDayOfWeekPosts(handler, states)
	}
	if opts.ByPayee {
		handler = NewByPayeePosts(handler, states)
	}

	if opts.Period != "" {
		interval, err := journal.ParsePeriod(opts.Period)
		if err != nil {
			return nil, &BuildError{Option: "period", Err: err}
		}
		handler = NewIntervalPosts(handler, interval, states)
	}

	if opts.SetDateExpr != "" {
		expr, err := parseOptExpr("date", opts.SetDateExpr)
		if err != nil {
			return nil, err
		}
		handler = NewTransferDetails(handler, SetDate, expr, j.Accounts, states)
	}
	accountExpr := opts.SetAccountExpr
	if opts.Pivot != "" {
		accountExpr = `"` + opts.Pivot + `"`
	}
	if accountExpr != "" {
		expr, err := parseOptExpr("account", accountExpr)
		if err != nil {
			return nil, err
		}
		handler = NewTransferDetails(handler, SetAccount, expr, j.Accounts, states)
	}
	if opts.SetPayeeExpr != "" {
		expr, err := parseOptExpr("payee", opts.SetPayeeExpr)
		if err != nil {
			return nil, err
		}
		handler = NewTransferDetails(handler, SetPayee, expr, j.Accounts, states)
	}

	if opts.Related || opts.RelatedAll {
		handler = NewRelatedPosts(handler, opts.RelatedAll)
	}

	if opts.InjectTag != "" {
		handler = NewInjectPosts(handler, opts.InjectTag, states)
	}

	return handler, nil
}

// PrePostHandlers wraps the business chain with the generative and primary
// filtering stages: budget or forecast generation (never both), the primary
// predicate, and anonymization outermost.
func PrePostHandlers(opts *Options, handler PostHandler, j *journal.Journal, states *StateTable) (PostHandler, error) {
	if opts.Budget != 0 && opts.wantsForecast() {
		return nil, buildErrorf("budget/forecast", "budget and forecast reports are mutually exclusive")
	}

	if opts.Generate {
		generate := NewGeneratePosts(handler, states)
		generate.AddPeriodXacts(j)
		handler = generate
	}

	if opts.Budget != 0 {
		budget := NewBudgetPosts(handler, opts.Budget, states)
		budget.AddPeriodXacts(j)
		handler = budget
	} else if opts.wantsForecast() {
		while := opts.ForecastWhile
		if while == "" {
			while = opts.Forecast
		}
		pred, err := eval.ParsePredicate(while)
		if err != nil {
			return nil, &BuildError{Option: "forecast", Err: err}
		}
		forecast := NewForecastPosts(handler, pred, opts.ForecastYears, states)
		forecast.AddPeriodXacts(j)
		handler = forecast
	}

	if opts.Limit != "" {
		pred, err := eval.ParsePredicate(opts.Limit)
		if err != nil {
			return nil, &BuildError{Option: "limit", Err: err}
		}
		handler = NewFilterPosts(handler, pred, states)
	}

	if opts.Anonymize {
		handler = NewAnonymizePosts(handler)
	}

	return handler, nil
}

// Build assembles the complete chain around a terminal handler and returns
// the chain head. This is the sole public entry point report drivers call.
func Build(opts *Options, base PostHandler, j *journal.Journal, states *StateTable) (PostHandler, error) {
	handler, err := PostHandlers(opts, base, j, states)
	if err != nil {
		return nil, err
	}
	return PrePostHandlers(opts, handler, j, states)
}

func parseOptExpr(option, text string) (*eval.Expr, error) {
	if text == "" {
		return nil, nil
	}
	expr, err := eval.Parse(text)
	if err != nil {
		return nil, &BuildError{Option: option, Err: err}
	}
	return expr, nil
}
