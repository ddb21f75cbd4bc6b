package chain

import (
	"testing"

	"github.com/ledgerpipe/ledgerpipe/journal"
)

func TestTruncateXacts(t *testing.T) {
	build := func(t *testing.T) *journal.Journal {
		j := journal.New()
		addXact(t, j, "2024-01-01", "A", "Expenses:A", "1 USD")
		addXact(t, j, "2024-01-02", "B", "Expenses:B", "2 USD")
		addXact(t, j, "2024-01-03", "C", "Expenses:C", "3 USD")
		addXact(t, j, "2024-01-04", "D", "Expenses:D", "4 USD")
		return j
	}

	cases := []struct {
		name string
		head int
		tail int
		want []string
	}{
		{"head keeps first N", 2, 0, []string{"A", "B"}},
		{"tail keeps last N", 0, 2, []string{"C", "D"}},
		{"negative head drops last N", -1, 0, []string{"A", "B", "C"}},
		{"negative tail drops first N", 0, -1, []string{"B", "C", "D"}},
		{"head larger than stream keeps all", 10, 0, []string{"A", "B", "C", "D"}},
		{"head and tail together keep both ends", 1, 1, []string{"A", "D"}},
		{"overlapping head and tail keep all", 3, 3, []string{"A", "B", "C", "D"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			j := build(t)
			sink := &capture{}
			tr := NewTruncateXacts(sink, tc.head, tc.tail)
			feed(t, tr, j)

			if !equalStrings(sink.payees(), tc.want) {
				t.Errorf("payees = %v, want %v", sink.payees(), tc.want)
			}
		})
	}

	t.Run("counts transactions not postings", func(t *testing.T) {
		j := journal.New()
		addXact(t, j, "2024-01-01", "A",
			"Expenses:A", "1 USD",
			"Assets:Checking", "-1 USD")
		addXact(t, j, "2024-01-02", "B", "Expenses:B", "2 USD")

		sink := &capture{}
		tr := NewTruncateXacts(sink, 1, 0)
		feed(t, tr, j)

		if !equalStrings(sink.payees(), []string{"A", "A"}) {
			t.Errorf("payees = %v, want both postings of A", sink.payees())
		}
	})
}
