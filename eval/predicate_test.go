package eval

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestPredicateBlankMatchesEverything(t *testing.T) {
	for _, text := range []string{"", "   ", "\t"} {
		pred, err := ParsePredicate(text)
		assert.NoError(t, err)

		ok, err := pred.Test(postScope())
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "true", pred.String())
	}

	var pred *Predicate
	ok, err := pred.Test(postScope())
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestPredicateTest(t *testing.T) {
	ctx := postScope()

	pred := MustParsePredicate("amount > 10 and /food/")
	ok, err := pred.Test(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "amount > 10 and /food/", pred.String())

	ok, err = MustParsePredicate("amount > 100").Test(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestPredicateParseError(t *testing.T) {
	_, err := ParsePredicate("amount >")
	assert.Error(t, err)
}

func TestPredicateEvalError(t *testing.T) {
	_, err := MustParsePredicate("mystery > 3").Test(postScope())
	assert.Error(t, err)
}
