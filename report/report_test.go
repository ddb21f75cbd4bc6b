package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

func testJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j := journal.New()

	groceries := &journal.Xact{Date: journal.MustDate("2024-01-05"), Payee: "Corner Grocer"}
	groceries.AddPost(&journal.Post{
		Account: j.Accounts.FindOrCreate("Expenses:Food"),
		Amount:  value.MustParseAmount("30 USD"),
	})
	groceries.AddPost(&journal.Post{
		Account: j.Accounts.FindOrCreate("Assets:Checking"),
		Amount:  value.MustParseAmount("-30 USD"),
	})
	j.AddXact(groceries)

	rent := &journal.Xact{Date: journal.MustDate("2024-01-10"), Payee: "Landlord"}
	rent.AddPost(&journal.Post{
		Account: j.Accounts.FindOrCreate("Expenses:Rent"),
		Amount:  value.MustParseAmount("800 USD"),
	})
	rent.AddPost(&journal.Post{
		Account: j.Accounts.FindOrCreate("Assets:Checking"),
		Amount:  value.MustParseAmount("-800 USD"),
	})
	j.AddXact(rent)

	return j
}

func TestRunCollectsFilteredPostings(t *testing.T) {
	j := testJournal(t)
	states := chain.NewStateTable()
	sink := NewCollector(states)

	opts := &Options{Limit: "/expenses/", CalcTotal: true, Running: true}
	err := Run(context.Background(), j, opts, sink, states)
	assert.NoError(t, err)

	posts := sink.Posts()
	assert.Equal(t, 2, len(posts))
	assert.Equal(t, "Expenses:Food", posts[0].Account.FullName())
	assert.Equal(t, "Expenses:Rent", posts[1].Account.FullName())

	st, ok := states.PostIfPresent(posts[1])
	assert.True(t, ok)
	assert.Equal(t, "{830 USD}", st.Total.String())
	assert.True(t, st.Displayed)
}

func TestRunBuildErrorSurfacesBeforeProcessing(t *testing.T) {
	j := testJournal(t)
	states := chain.NewStateTable()
	sink := NewCollector(states)

	err := Run(context.Background(), j, &Options{Limit: "amount >"}, sink, states)
	assert.Error(t, err)
	assert.Equal(t, 0, len(sink.Posts()))
}

func TestRunStopsOnCancel(t *testing.T) {
	j := testJournal(t)
	states := chain.NewStateTable()
	sink := NewCollector(states)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, j, &Options{}, sink, states)
	assert.IsError(t, err, context.Canceled)
}

func TestRunSecondRunAfterReset(t *testing.T) {
	j := testJournal(t)
	states := chain.NewStateTable()
	opts := &Options{CalcTotal: true, Running: true}

	first := NewCollector(states)
	assert.NoError(t, Run(context.Background(), j, opts, first, states))

	states.Reset()
	second := NewCollector(states)
	assert.NoError(t, Run(context.Background(), j, opts, second, states))

	last := second.Posts()[3]
	st, ok := states.PostIfPresent(last)
	assert.True(t, ok)
	// The accumulator started fresh, so the grand total is unchanged.
	assert.True(t, st.Total.IsZero())
}

func TestPrinterOutput(t *testing.T) {
	j := testJournal(t)
	states := chain.NewStateTable()

	var buf strings.Builder
	printer := NewPrinter(&buf, states, nil)
	printer.Title("Register")

	err := Run(context.Background(), j, &Options{CalcTotal: true, Running: true}, printer, states)
	assert.NoError(t, err)
	assert.NoError(t, printer.Err())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, 6, len(lines))
	assert.Equal(t, "Register", lines[0])
	assert.Equal(t, "", lines[1])

	assert.Contains(t, lines[2], "2024-01-05")
	assert.Contains(t, lines[2], "Corner Grocer")
	assert.Contains(t, lines[2], "Expenses:Food")

	// The second posting of the same transaction omits date and payee.
	assert.NotContains(t, lines[3], "2024-01-05")
	assert.NotContains(t, lines[3], "Corner Grocer")
	assert.Contains(t, lines[3], "Assets:Checking")
	// A zero running total prints as a bare zero.
	assert.Contains(t, lines[3], " 0")

	assert.Contains(t, lines[4], "2024-01-10")
	assert.Contains(t, lines[4], "Landlord")
}

func TestPrinterKeepsFirstWriteError(t *testing.T) {
	states := chain.NewStateTable()
	printer := NewPrinter(failWriter{}, states, nil)

	j := testJournal(t)
	err := Run(context.Background(), j, &Options{}, printer, states)
	assert.NoError(t, err)
	assert.Error(t, printer.Err())
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}
