package chain

import (
	"testing"

	"github.com/ledgerpipe/ledgerpipe/eval"
	"github.com/ledgerpipe/ledgerpipe/journal"
)

func TestGeneratePosts(t *testing.T) {
	t.Run("expands bounded templates at flush", func(t *testing.T) {
		j := journal.New()
		addPeriodXact(t, j, "monthly from 2024-01-01 to 2024-04-01",
			"Expenses:Rent", "800 USD")

		sink := &capture{}
		gen := NewGeneratePosts(sink, NewStateTable())
		gen.AddPeriodXacts(j)
		feed(t, gen, j)

		if len(sink.posts) != 3 {
			t.Fatalf("got %d posts, want one per month", len(sink.posts))
		}
		dates := make([]string, len(sink.posts))
		for i, post := range sink.posts {
			dates[i] = post.GetDate().String()
		}
		if !equalStrings(dates, []string{"2024-01-01", "2024-02-01", "2024-03-01"}) {
			t.Errorf("dates = %v", dates)
		}
		for _, post := range sink.posts {
			if !post.Flags.Has(journal.PostGenerated | journal.PostTemporary) {
				t.Errorf("flags = %v, want generated and temporary", post.Flags)
			}
		}
	})

	t.Run("unbounded templates are not expanded", func(t *testing.T) {
		j := journal.New()
		addPeriodXact(t, j, "monthly", "Expenses:Rent", "800 USD")

		sink := &capture{}
		gen := NewGeneratePosts(sink, NewStateTable())
		gen.AddPeriodXacts(j)
		feed(t, gen, j)

		if len(sink.posts) != 0 {
			t.Errorf("got %d posts, want none", len(sink.posts))
		}
	})

	t.Run("template schedule is never advanced", func(t *testing.T) {
		j := journal.New()
		px := addPeriodXact(t, j, "monthly from 2024-01-01 to 2024-04-01",
			"Expenses:Rent", "800 USD")

		gen := NewGeneratePosts(&capture{}, NewStateTable())
		gen.AddPeriodXacts(j)
		feed(t, gen, j)

		if px.Period.Start != nil {
			t.Errorf("template cursor advanced to %v", px.Period.Start)
		}
	})
}

func TestBudgetPosts(t *testing.T) {
	seed := func(t *testing.T, mode BudgetMode) (*journal.Journal, *capture, *BudgetPosts) {
		t.Helper()
		j := journal.New()
		addPeriodXact(t, j, "monthly from 2024-01-01", "Expenses:Food", "400 USD")

		sink := &capture{}
		budget := NewBudgetPosts(sink, mode, NewStateTable())
		budget.AddPeriodXacts(j)
		return j, sink, budget
	}

	t.Run("budgeted mode pairs spending with budget postings", func(t *testing.T) {
		j, sink, budget := seed(t, BudgetBudgeted)
		addXact(t, j, "2024-02-15", "Grocer", "Expenses:Food", "30 USD")
		feed(t, budget, j)

		want := []string{"Expenses:Food", "<Budget>", "Expenses:Food", "<Budget>", "Expenses:Food"}
		if !equalStrings(sink.accounts(), want) {
			t.Fatalf("accounts = %v, want %v", sink.accounts(), want)
		}
		if !equalStrings(sink.amounts(), []string{"-400 USD", "400 USD", "-400 USD", "400 USD", "30 USD"}) {
			t.Errorf("amounts = %v", sink.amounts())
		}
		if got := sink.posts[0].GetDate().String(); got != "2024-01-01" {
			t.Errorf("first budget occurrence dated %s, want 2024-01-01", got)
		}
		if got := sink.posts[2].GetDate().String(); got != "2024-02-01" {
			t.Errorf("second budget occurrence dated %s, want 2024-02-01", got)
		}
		if !sink.posts[0].Flags.Has(journal.PostVirtual) {
			t.Error("budget posting is not virtual")
		}
	})

	t.Run("elapsed periods are caught up before the first posting", func(t *testing.T) {
		j := journal.New()
		addPeriodXact(t, j, "monthly from 2024-01-01 to 2025-01-01", "Expenses:Food", "400 USD")
		addXact(t, j, "2024-03-15", "Grocer", "Expenses:Food", "30 USD")

		sink := &capture{}
		budget := NewBudgetPosts(sink, BudgetBudgeted, NewStateTable())
		budget.AddPeriodXacts(j)
		feed(t, budget, j)

		var dates []string
		for _, post := range sink.posts {
			if post.Account.FullName() == "Expenses:Food" && post.Flags.Has(journal.PostGenerated) {
				dates = append(dates, post.GetDate().String())
			}
		}
		want := []string{"2024-01-01", "2024-02-01", "2024-03-01"}
		if !equalStrings(dates, want) {
			t.Errorf("budget occurrence dates = %v, want %v", dates, want)
		}
	})

	t.Run("budgeted mode drops unbudgeted accounts", func(t *testing.T) {
		j, sink, budget := seed(t, BudgetBudgeted)
		addXact(t, j, "2024-02-15", "Cinema", "Expenses:Fun", "12 USD")
		feed(t, budget, j)

		if len(sink.posts) != 0 {
			t.Errorf("accounts = %v, want none", sink.accounts())
		}
	})

	t.Run("unbudgeted mode keeps only uncovered accounts", func(t *testing.T) {
		j, sink, budget := seed(t, BudgetUnbudgeted)
		addXact(t, j, "2024-02-15", "Grocer", "Expenses:Food", "30 USD")
		addXact(t, j, "2024-02-16", "Cinema", "Expenses:Fun", "12 USD")
		feed(t, budget, j)

		if !equalStrings(sink.accounts(), []string{"Expenses:Fun"}) {
			t.Errorf("accounts = %v", sink.accounts())
		}
	})

	t.Run("child of a budgeted account counts as budgeted", func(t *testing.T) {
		j, sink, budget := seed(t, BudgetBudgeted)
		addXact(t, j, "2024-02-15", "Bakery", "Expenses:Food:Bread", "4 USD")
		feed(t, budget, j)

		want := []string{"Expenses:Food", "<Budget>", "Expenses:Food", "<Budget>", "Expenses:Food:Bread"}
		if !equalStrings(sink.accounts(), want) {
			t.Errorf("accounts = %v, want %v", sink.accounts(), want)
		}
	})
}

func TestForecastPosts(t *testing.T) {
	t.Run("projects past the last real posting", func(t *testing.T) {
		j := journal.New()
		addPeriodXact(t, j, "monthly", "Expenses:Rent", "800 USD")
		addXact(t, j, "2024-01-15", "Landlord", "Expenses:Rent", "800 USD")

		sink := &capture{}
		forecast := NewForecastPosts(sink, nil, 1, NewStateTable())
		forecast.AddPeriodXacts(j)
		feed(t, forecast, j)

		// The real posting plus twelve projected months inside the horizon.
		if len(sink.posts) != 13 {
			t.Fatalf("got %d posts, want 13", len(sink.posts))
		}
		if got := sink.posts[1].GetDate().String(); got != "2024-02-01" {
			t.Errorf("first projection dated %s, want 2024-02-01", got)
		}
		if got := sink.posts[12].GetDate().String(); got != "2025-01-01" {
			t.Errorf("last projection dated %s, want 2025-01-01", got)
		}
		if !sink.posts[1].Flags.Has(journal.PostGenerated) {
			t.Error("projection is not flagged generated")
		}
	})

	t.Run("while predicate stops the projection", func(t *testing.T) {
		j := journal.New()
		addPeriodXact(t, j, "monthly", "Expenses:Rent", "800 USD")
		addXact(t, j, "2024-01-15", "Landlord", "Expenses:Rent", "800 USD")

		pred := eval.MustParsePredicate("date < [2024-04-01]")
		sink := &capture{}
		forecast := NewForecastPosts(sink, pred, 5, NewStateTable())
		forecast.AddPeriodXacts(j)
		feed(t, forecast, j)

		// Real posting, then February and March; April is rejected.
		if len(sink.posts) != 3 {
			t.Fatalf("got %d posts, want 3", len(sink.posts))
		}
		if got := sink.posts[2].GetDate().String(); got != "2024-03-01" {
			t.Errorf("last projection dated %s, want 2024-03-01", got)
		}
	})

	t.Run("no real postings means no projection", func(t *testing.T) {
		j := journal.New()
		addPeriodXact(t, j, "monthly", "Expenses:Rent", "800 USD")

		sink := &capture{}
		forecast := NewForecastPosts(sink, nil, 1, NewStateTable())
		forecast.AddPeriodXacts(j)
		feed(t, forecast, j)

		if len(sink.posts) != 0 {
			t.Errorf("got %d posts, want none", len(sink.posts))
		}
	})
}
