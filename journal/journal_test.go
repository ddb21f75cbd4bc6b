package journal

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/ledgerpipe/ledgerpipe/value"
)

func TestDateComparisons(t *testing.T) {
	a := MustDate("2024-01-01")
	b := MustDate("2024-06-15")

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, b.After(a))
	assert.True(t, a.Equal(MustDate("2024-01-01")))
	assert.Equal(t, "2024-01-01", a.String())

	// Nil dates are unbounded: before everything, after nothing.
	var unset *Date
	assert.True(t, unset.Before(a))
	assert.False(t, a.Before(unset))
	assert.True(t, unset.IsZero())
	assert.Equal(t, "", unset.String())
	assert.Zero(t, unset.Clone())
}

func TestNewDateRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "01/15/2024", "2024-13-01", "someday"} {
		_, err := NewDate(s)
		assert.Error(t, err, s)
	}
}

func TestPostEffectiveDate(t *testing.T) {
	x := &Xact{Date: MustDate("2024-01-05"), Payee: "Grocer"}
	p := &Post{}
	x.AddPost(p)

	assert.Equal(t, "2024-01-05", p.GetDate().String())
	assert.Equal(t, "Grocer", p.Payee())

	p.Date = MustDate("2024-01-07")
	assert.Equal(t, "2024-01-07", p.GetDate().String())
}

func TestPostTagFallsBackToXact(t *testing.T) {
	x := &Xact{Date: MustDate("2024-01-05")}
	x.SetTag("trip", "holiday")
	p := &Post{}
	x.AddPost(p)

	val, ok := p.Tag("trip")
	assert.True(t, ok)
	assert.Equal(t, "holiday", val)

	p.SetTag("trip", "business")
	val, _ = p.Tag("trip")
	assert.Equal(t, "business", val)
}

func TestXactCloneShell(t *testing.T) {
	x := &Xact{Date: MustDate("2024-01-05"), Payee: "Grocer", Code: "42", State: Cleared}
	x.SetTag("trip", "holiday")
	x.AddPost(&Post{Amount: value.MustParseAmount("30 USD")})

	shell := x.CloneShell()
	assert.Equal(t, "Grocer", shell.Payee)
	assert.Equal(t, Cleared, shell.State)
	assert.Equal(t, 0, len(shell.Postings))

	shell.SetTag("trip", "business")
	val, _ := x.Tag("trip")
	assert.Equal(t, "holiday", val)
}

func TestPostCloneIsDetached(t *testing.T) {
	x := &Xact{Date: MustDate("2024-01-05")}
	p := &Post{Amount: value.MustParseAmount("30 USD"), Note: "weekly"}
	p.SetTag("trip", "holiday")
	x.AddPost(p)

	clone := p.Clone()
	assert.Zero(t, clone.Xact)
	assert.Equal(t, "30 USD", clone.Amount.String())

	clone.SetTag("trip", "business")
	val, _ := p.Tag("trip")
	assert.Equal(t, "holiday", val)
}

func TestJournalPostsDocumentOrder(t *testing.T) {
	j := New()

	first := &Xact{Date: MustDate("2024-01-05"), Payee: "A"}
	first.AddPost(&Post{Account: j.Accounts.FindOrCreate("Expenses:Food")})
	first.AddPost(&Post{Account: j.Accounts.FindOrCreate("Assets:Checking")})
	j.AddXact(first)

	second := &Xact{Date: MustDate("2024-01-06"), Payee: "B"}
	second.AddPost(&Post{Account: j.Accounts.FindOrCreate("Expenses:Rent")})
	j.AddXact(second)

	posts := j.Posts()
	assert.Equal(t, 3, len(posts))
	assert.Equal(t, "Expenses:Food", posts[0].Account.FullName())
	assert.Equal(t, "Assets:Checking", posts[1].Account.FullName())
	assert.Equal(t, "Expenses:Rent", posts[2].Account.FullName())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "", Uncleared.String())
	assert.Equal(t, "!", Pending.String())
	assert.Equal(t, "*", Cleared.String())
}
