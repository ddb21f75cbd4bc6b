package eval

// Predicate is an immutable boolean test over a posting or account, built
// from an expression at chain-assembly time. A nil Predicate (or one built
// from empty text) matches everything. Stateless once constructed.
type Predicate struct {
	expr *Expr
}

// ParsePredicate parses a predicate expression. Empty or blank text yields a
// match-everything predicate; malformed text is a parse error surfaced at
// chain-assembly time.
func ParsePredicate(text string) (*Predicate, error) {
	if isBlank(text) {
		return &Predicate{}, nil
	}
	expr, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return &Predicate{expr: expr}, nil
}

// MustParsePredicate parses a predicate and panics on error. Use only in tests.
func MustParsePredicate(text string) *Predicate {
	p, err := ParsePredicate(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Test evaluates the predicate against a scope.
func (p *Predicate) Test(ctx *Context) (bool, error) {
	if p == nil || p.expr == nil {
		return true, nil
	}
	v, err := p.expr.Calc(ctx)
	if err != nil {
		return false, err
	}
	return v.Truth(), nil
}

// String returns the predicate's expression source.
func (p *Predicate) String() string {
	if p == nil || p.expr == nil {
		return "true"
	}
	return p.expr.Text()
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return false
		}
	}
	return true
}
