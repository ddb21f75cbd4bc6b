package chain

import (
	"testing"

	"github.com/ledgerpipe/ledgerpipe/journal"
)

func TestSubtotalPosts(t *testing.T) {
	t.Run("aggregates per account in ascending order", func(t *testing.T) {
		j := journal.New()
		addXact(t, j, "2024-01-05", "Grocer", "Expenses:Food", "30 USD")
		addXact(t, j, "2024-01-10", "Landlord", "Expenses:Rent", "800 USD")
		addXact(t, j, "2024-01-20", "Grocer", "Expenses:Food", "45 USD")

		states := NewStateTable()
		sink := &capture{}
		feed(t, NewSubtotalPosts(sink, states), j)

		if !equalStrings(sink.accounts(), []string{"Expenses:Food", "Expenses:Rent"}) {
			t.Errorf("accounts = %v", sink.accounts())
		}
		if !equalStrings(sink.amounts(), []string{"75 USD", "800 USD"}) {
			t.Errorf("amounts = %v", sink.amounts())
		}
	})

	t.Run("synthesized payee names the latest date", func(t *testing.T) {
		j := journal.New()
		addXact(t, j, "2024-01-05", "Grocer", "Expenses:Food", "30 USD")
		addXact(t, j, "2024-01-20", "Grocer", "Expenses:Food", "45 USD")

		sink := &capture{}
		feed(t, NewSubtotalPosts(sink, NewStateTable()), j)

		if !equalStrings(sink.payees(), []string{"- 2024-01-20"}) {
			t.Errorf("payees = %v", sink.payees())
		}
	})

	t.Run("synthesized posts are generated and temporary", func(t *testing.T) {
		j := journal.New()
		addXact(t, j, "2024-01-05", "Grocer", "Expenses:Food", "30 USD")

		sink := &capture{}
		feed(t, NewSubtotalPosts(sink, NewStateTable()), j)

		post := sink.posts[0]
		if !post.Flags.Has(journal.PostGenerated | journal.PostTemporary) {
			t.Errorf("flags = %v, want generated and temporary", post.Flags)
		}
	})

	t.Run("multi-commodity sum rides as a compound value", func(t *testing.T) {
		j := journal.New()
		addXact(t, j, "2024-01-05", "Broker", "Assets:Broker", "100 USD")
		addXact(t, j, "2024-01-06", "Broker", "Assets:Broker", "2 AAPL")

		states := NewStateTable()
		sink := &capture{}
		feed(t, NewSubtotalPosts(sink, states), j)

		if len(sink.posts) != 2 {
			t.Fatalf("got %d posts, want one per commodity", len(sink.posts))
		}
		first := states.Post(sink.posts[0])
		if first.CompoundValue == nil {
			t.Fatal("first posting has no compound value")
		}
		if got := len(first.CompoundValue.Amounts()); got != 2 {
			t.Errorf("compound value holds %d commodities, want 2", got)
		}
		if second := states.Post(sink.posts[1]); second.CompoundValue != nil {
			t.Error("compound value duplicated on second posting")
		}
	})

	t.Run("empty stream emits nothing", func(t *testing.T) {
		sink := &capture{}
		feed(t, NewSubtotalPosts(sink, NewStateTable()), journal.New())

		if len(sink.posts) != 0 {
			t.Errorf("got %d posts, want none", len(sink.posts))
		}
		if sink.flushes != 1 {
			t.Errorf("flushes = %d, want cascade", sink.flushes)
		}
	})
}

func TestIntervalPosts(t *testing.T) {
	monthly := func(t *testing.T, period string) *journal.Interval {
		t.Helper()
		interval, err := journal.ParsePeriod(period)
		if err != nil {
			t.Fatalf("ParsePeriod(%q): %v", period, err)
		}
		return interval
	}

	t.Run("buckets by month in ascending order", func(t *testing.T) {
		j := journal.New()
		addXact(t, j, "2024-02-10", "Grocer", "Expenses:Food", "40 USD")
		addXact(t, j, "2024-01-05", "Grocer", "Expenses:Food", "30 USD")
		addXact(t, j, "2024-01-20", "Grocer", "Expenses:Food", "45 USD")

		sink := &capture{}
		feed(t, NewIntervalPosts(sink, monthly(t, "monthly"), NewStateTable()), j)

		if !equalStrings(sink.payees(), []string{"- 2024-01-01", "- 2024-02-01"}) {
			t.Errorf("payees = %v", sink.payees())
		}
		if !equalStrings(sink.amounts(), []string{"75 USD", "40 USD"}) {
			t.Errorf("amounts = %v", sink.amounts())
		}
	})

	t.Run("drops dates outside the bounding range", func(t *testing.T) {
		j := journal.New()
		addXact(t, j, "2023-12-25", "Grocer", "Expenses:Food", "10 USD")
		addXact(t, j, "2024-01-05", "Grocer", "Expenses:Food", "30 USD")
		addXact(t, j, "2024-03-05", "Grocer", "Expenses:Food", "99 USD")

		interval := monthly(t, "monthly from 2024-01-01 to 2024-03-01")
		sink := &capture{}
		feed(t, NewIntervalPosts(sink, interval, NewStateTable()), j)

		if !equalStrings(sink.amounts(), []string{"30 USD"}) {
			t.Errorf("amounts = %v", sink.amounts())
		}
	})

	t.Run("caller interval is never advanced", func(t *testing.T) {
		j := journal.New()
		addXact(t, j, "2024-01-05", "Grocer", "Expenses:Food", "30 USD")
		addXact(t, j, "2024-03-05", "Grocer", "Expenses:Food", "40 USD")

		interval := monthly(t, "monthly")
		feed(t, NewIntervalPosts(&capture{}, interval, NewStateTable()), j)

		if interval.Start != nil {
			t.Errorf("interval cursor advanced to %v", interval.Start)
		}
	})
}

func TestDayOfWeekPosts(t *testing.T) {
	j := journal.New()
	// 2024-01-08 is a Monday, 2024-01-07 and 2024-01-14 Sundays.
	addXact(t, j, "2024-01-08", "Grocer", "Expenses:Food", "20 USD")
	addXact(t, j, "2024-01-07", "Grocer", "Expenses:Food", "5 USD")
	addXact(t, j, "2024-01-14", "Grocer", "Expenses:Food", "7 USD")

	sink := &capture{}
	feed(t, NewDayOfWeekPosts(sink, NewStateTable()), j)

	if !equalStrings(sink.payees(), []string{"Sundays", "Mondays"}) {
		t.Errorf("payees = %v", sink.payees())
	}
	if !equalStrings(sink.amounts(), []string{"12 USD", "20 USD"}) {
		t.Errorf("amounts = %v", sink.amounts())
	}
}

func TestByPayeePosts(t *testing.T) {
	j := journal.New()
	addXact(t, j, "2024-01-05", "Zoo", "Expenses:Fun", "15 USD")
	addXact(t, j, "2024-01-06", "Pharmacy", "Expenses:Health", "8 USD")
	addXact(t, j, "2024-01-07", "Acme", "Expenses:Office", "120 USD")
	addXact(t, j, "2024-01-08", "Zoo", "Expenses:Fun", "10 USD")

	sink := &capture{}
	feed(t, NewByPayeePosts(sink, NewStateTable()), j)

	if !equalStrings(sink.payees(), []string{"Acme", "Pharmacy", "Zoo"}) {
		t.Errorf("payees = %v", sink.payees())
	}
	if !equalStrings(sink.amounts(), []string{"120 USD", "8 USD", "25 USD"}) {
		t.Errorf("amounts = %v", sink.amounts())
	}
}
