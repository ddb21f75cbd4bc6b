package chain

import (
	"testing"

	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

func TestStateTable(t *testing.T) {
	t.Run("post state is created lazily", func(t *testing.T) {
		states := NewStateTable()
		post := &journal.Post{}

		if _, ok := states.PostIfPresent(post); ok {
			t.Fatal("state present before first touch")
		}
		st := states.Post(post)
		st.Visited = true

		got, ok := states.PostIfPresent(post)
		if !ok || got != st {
			t.Error("second lookup did not return the same state")
		}
	})

	t.Run("reset drops all state", func(t *testing.T) {
		states := NewStateTable()
		post := &journal.Post{}
		tree := journal.NewAccountTree()
		account := tree.FindOrCreate("Expenses:Food")

		states.Post(post).Visited = true
		states.Account(account).ToDisplay = true
		states.Reset()

		if _, ok := states.PostIfPresent(post); ok {
			t.Error("post state survived reset")
		}
		if states.Account(account).ToDisplay {
			t.Error("account state survived reset")
		}
	})

	t.Run("context threads the recorded total", func(t *testing.T) {
		states := NewStateTable()
		post := &journal.Post{}

		total := value.NewValue()
		total.AddAmount(value.MustParseAmount("75 USD"))
		states.Post(post).Total = total

		ctx := states.Context(post)
		if ctx.Post != post {
			t.Error("context does not carry the posting")
		}
		if ctx.Total != total {
			t.Error("context does not carry the recorded total")
		}

		if other := states.Context(&journal.Post{}); other.Total != nil {
			t.Error("untouched posting has a total in scope")
		}
	})
}
