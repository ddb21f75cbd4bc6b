package eval

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/value"
)

// Expr is an immutable parsed expression. Parsing happens once, at
// chain-assembly time; evaluation happens per element during the run.
type Expr struct {
	text string
	root *node
}

// Parse parses an expression. An empty or blank expression is a parse error;
// callers that treat "no expression" as "match everything" use Predicate.
func Parse(text string) (*Expr, error) {
	lex := &lexer{input: text}
	root, err := lex.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if !lex.atEnd() {
		return nil, &ParseError{Text: text, Pos: lex.pos, Reason: fmt.Sprintf("unexpected %q", lex.rest())}
	}
	return &Expr{text: text, root: root}, nil
}

// MustParse parses an expression and panics on error. Use only in tests.
func MustParse(text string) *Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

// Text returns the original expression source.
func (e *Expr) Text() string {
	return e.text
}

// Calc evaluates the expression against a scope. Failures are EvalErrors
// carrying the expression text and a description of the element.
func (e *Expr) Calc(ctx *Context) (Val, error) {
	v, err := e.root.calc(ctx)
	if err != nil {
		return Val{}, &EvalError{Text: e.text, Scope: ctx.Describe(), Err: err}
	}
	return v, nil
}

type opKind int

const (
	opIdent opKind = iota
	opNumber
	opString
	opDate
	opAccountRegex // bare /regex/, matches the account path
	opPayeeRegex   // @regex, matches the payee
	opTag          // %tag, true when the element carries the tag
	opNeg
	opNot
	opAdd
	opSub
	opMul
	opDiv
	opLT
	opLE
	opGT
	opGE
	opEQ
	opNE
	opMatch
	opNotMatch
	opAnd
	opOr
)

type node struct {
	op    opKind
	left  *node
	right *node

	num  decimal.Decimal
	str  string
	re   *regexp.Regexp
	date Val
}

func (n *node) calc(ctx *Context) (Val, error) {
	switch n.op {
	case opIdent:
		v, ok := ctx.lookup(n.str)
		if !ok {
			return Val{}, fmt.Errorf("unknown variable %q", n.str)
		}
		return v, nil
	case opNumber:
		return NumberVal(n.num), nil
	case opString:
		return StringVal(n.str), nil
	case opDate:
		return n.date, nil
	case opAccountRegex:
		v, ok := ctx.lookup("account")
		if !ok {
			return BoolVal(false), nil
		}
		return BoolVal(n.re.MatchString(v.Str())), nil
	case opPayeeRegex:
		v, ok := ctx.lookup("payee")
		if !ok {
			return BoolVal(false), nil
		}
		return BoolVal(n.re.MatchString(v.Str())), nil
	case opTag:
		_, ok := ctx.tag(n.str)
		return BoolVal(ok), nil
	case opNeg:
		return n.calcNeg(ctx)
	case opNot:
		v, err := n.left.calc(ctx)
		if err != nil {
			return Val{}, err
		}
		return BoolVal(!v.Truth()), nil
	case opAnd:
		v, err := n.left.calc(ctx)
		if err != nil {
			return Val{}, err
		}
		if !v.Truth() {
			return BoolVal(false), nil
		}
		v, err = n.right.calc(ctx)
		if err != nil {
			return Val{}, err
		}
		return BoolVal(v.Truth()), nil
	case opOr:
		v, err := n.left.calc(ctx)
		if err != nil {
			return Val{}, err
		}
		if v.Truth() {
			return BoolVal(true), nil
		}
		v, err = n.right.calc(ctx)
		if err != nil {
			return Val{}, err
		}
		return BoolVal(v.Truth()), nil
	case opMatch, opNotMatch:
		v, err := n.left.calc(ctx)
		if err != nil {
			return Val{}, err
		}
		matched := n.right.re.MatchString(v.Str())
		if n.op == opNotMatch {
			matched = !matched
		}
		return BoolVal(matched), nil
	case opLT, opLE, opGT, opGE, opEQ, opNE:
		return n.calcCompare(ctx)
	case opAdd, opSub, opMul, opDiv:
		return n.calcArith(ctx)
	}
	return Val{}, fmt.Errorf("invalid expression node")
}

func (n *node) calcNeg(ctx *Context) (Val, error) {
	v, err := n.left.calc(ctx)
	if err != nil {
		return Val{}, err
	}
	switch v.Kind() {
	case KindNumber:
		return NumberVal(v.num.Neg()), nil
	case KindValue:
		return ValueVal(v.val.Neg()), nil
	}
	return Val{}, fmt.Errorf("cannot negate %s", v.Kind())
}

func (n *node) calcCompare(ctx *Context) (Val, error) {
	left, err := n.left.calc(ctx)
	if err != nil {
		return Val{}, err
	}
	right, err := n.right.calc(ctx)
	if err != nil {
		return Val{}, err
	}
	cmp, err := left.Compare(right)
	if err != nil {
		return Val{}, err
	}
	switch n.op {
	case opLT:
		return BoolVal(cmp < 0), nil
	case opLE:
		return BoolVal(cmp <= 0), nil
	case opGT:
		return BoolVal(cmp > 0), nil
	case opGE:
		return BoolVal(cmp >= 0), nil
	case opEQ:
		return BoolVal(cmp == 0), nil
	default:
		return BoolVal(cmp != 0), nil
	}
}

func (n *node) calcArith(ctx *Context) (Val, error) {
	left, err := n.left.calc(ctx)
	if err != nil {
		return Val{}, err
	}
	right, err := n.right.calc(ctx)
	if err != nil {
		return Val{}, err
	}

	// Pure numeric arithmetic stays numeric.
	if left.Kind() == KindNumber && right.Kind() == KindNumber {
		switch n.op {
		case opAdd:
			return NumberVal(left.num.Add(right.num)), nil
		case opSub:
			return NumberVal(left.num.Sub(right.num)), nil
		case opMul:
			return NumberVal(left.num.Mul(right.num)), nil
		default:
			if right.num.IsZero() {
				return Val{}, fmt.Errorf("division by zero")
			}
			return NumberVal(left.num.Div(right.num)), nil
		}
	}

	// Scaling a compound value by a number.
	if n.op == opMul || n.op == opDiv {
		val, num := left, right
		if n.op == opMul && left.Kind() == KindNumber {
			val, num = right, left
		}
		if val.Kind() != KindValue || num.Kind() != KindNumber {
			return Val{}, fmt.Errorf("cannot %s %s and %s", arithName(n.op), left.Kind(), right.Kind())
		}
		factor := num.num
		if n.op == opDiv {
			if factor.IsZero() {
				return Val{}, fmt.Errorf("division by zero")
			}
			factor = decimal.NewFromInt(1).Div(factor)
		}
		return ValueVal(val.val.Scale(factor)), nil
	}

	// Additive arithmetic over compound values.
	a, err := left.Value()
	if err != nil {
		return Val{}, err
	}
	b, err := right.Value()
	if err != nil {
		return Val{}, err
	}
	out := a.Clone()
	if out == nil {
		out = value.NewValue()
	}
	if n.op == opAdd {
		out.Add(b)
	} else {
		out.Sub(b)
	}
	return ValueVal(out), nil
}

func arithName(op opKind) string {
	switch op {
	case opAdd:
		return "add"
	case opSub:
		return "subtract"
	case opMul:
		return "multiply"
	default:
		return "divide"
	}
}

// lexer is a simple lexer over the expression source. The parser is a Pratt
// parser: operators carry binding powers, * and / bind tighter than + and -,
// comparisons tighter than and/or.
type lexer struct {
	input string
	pos   int
}

const (
	bpOr      = 10
	bpAnd     = 20
	bpCompare = 30
	bpAdd     = 40
	bpMul     = 50
)

func (l *lexer) parseExpr(minBP int) (*node, error) {
	left, err := l.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		op, bp, width := l.peekOp()
		if op < 0 || bp < minBP {
			return left, nil
		}
		l.pos += width

		kind := opKind(op)
		if kind == opMatch || kind == opNotMatch {
			right, err := l.parseRegexOperand()
			if err != nil {
				return nil, err
			}
			left = &node{op: kind, left: left, right: right}
			continue
		}

		right, err := l.parseExpr(bp + 1)
		if err != nil {
			return nil, err
		}
		left = &node{op: kind, left: left, right: right}
	}
}

// peekOp returns the operator at the cursor, its binding power, and its
// width in bytes; op is -1 when the next token is not an operator.
func (l *lexer) peekOp() (op int, bp int, width int) {
	l.skipSpace()
	rest := l.input[l.pos:]

	switch {
	case strings.HasPrefix(rest, "&&"):
		return int(opAnd), bpAnd, 2
	case strings.HasPrefix(rest, "||"):
		return int(opOr), bpOr, 2
	case strings.HasPrefix(rest, "=~"):
		return int(opMatch), bpCompare, 2
	case strings.HasPrefix(rest, "!~"):
		return int(opNotMatch), bpCompare, 2
	case strings.HasPrefix(rest, "<="):
		return int(opLE), bpCompare, 2
	case strings.HasPrefix(rest, ">="):
		return int(opGE), bpCompare, 2
	case strings.HasPrefix(rest, "=="):
		return int(opEQ), bpCompare, 2
	case strings.HasPrefix(rest, "!="):
		return int(opNE), bpCompare, 2
	case hasWord(rest, "and"):
		return int(opAnd), bpAnd, 3
	case hasWord(rest, "or"):
		return int(opOr), bpOr, 2
	case strings.HasPrefix(rest, "&"):
		return int(opAnd), bpAnd, 1
	case strings.HasPrefix(rest, "|"):
		return int(opOr), bpOr, 1
	case strings.HasPrefix(rest, "<"):
		return int(opLT), bpCompare, 1
	case strings.HasPrefix(rest, ">"):
		return int(opGT), bpCompare, 1
	case strings.HasPrefix(rest, "="):
		return int(opEQ), bpCompare, 1
	case strings.HasPrefix(rest, "+"):
		return int(opAdd), bpAdd, 1
	case strings.HasPrefix(rest, "-"):
		return int(opSub), bpAdd, 1
	case strings.HasPrefix(rest, "*"):
		return int(opMul), bpMul, 1
	case strings.HasPrefix(rest, "/"):
		// "/" in operator position is division; regex literals only occur
		// in operand position and are handled by parsePrimary.
		return int(opDiv), bpMul, 1
	}
	return -1, 0, 0
}

func (l *lexer) parsePrimary() (*node, error) {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return nil, &ParseError{Text: l.input, Pos: l.pos, Reason: "unexpected end of expression"}
	}

	ch := l.input[l.pos]
	switch {
	case ch == '(':
		l.pos++
		inner, err := l.parseExpr(0)
		if err != nil {
			return nil, err
		}
		l.skipSpace()
		if l.pos >= len(l.input) || l.input[l.pos] != ')' {
			return nil, &ParseError{Text: l.input, Pos: l.pos, Reason: "missing closing parenthesis"}
		}
		l.pos++
		return inner, nil

	case ch == '!':
		l.pos++
		operand, err := l.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &node{op: opNot, left: operand}, nil

	case ch == '-':
		l.pos++
		operand, err := l.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &node{op: opNeg, left: operand}, nil

	case ch == '/':
		return l.parseRegexOperand()

	case ch == '@':
		l.pos++
		pattern := l.takeWord()
		re, err := compilePattern(l, pattern)
		if err != nil {
			return nil, err
		}
		return &node{op: opPayeeRegex, re: re}, nil

	case ch == '%':
		l.pos++
		tag := l.takeWord()
		if tag == "" {
			return nil, &ParseError{Text: l.input, Pos: l.pos, Reason: "expected tag name after %"}
		}
		return &node{op: opTag, str: tag}, nil

	case ch == '[':
		return l.parseDate()

	case ch == '"':
		return l.parseString()

	case ch >= '0' && ch <= '9':
		return l.parseNumber()

	case isIdentStart(ch):
		word := l.takeWord()
		if word == "not" {
			operand, err := l.parsePrimary()
			if err != nil {
				return nil, err
			}
			return &node{op: opNot, left: operand}, nil
		}
		return &node{op: opIdent, str: word}, nil
	}

	return nil, &ParseError{Text: l.input, Pos: l.pos, Reason: fmt.Sprintf("unexpected character %q", ch)}
}

func (l *lexer) parseRegexOperand() (*node, error) {
	l.skipSpace()
	if l.pos >= len(l.input) || l.input[l.pos] != '/' {
		return nil, &ParseError{Text: l.input, Pos: l.pos, Reason: "expected /regex/"}
	}
	l.pos++
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '/' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return nil, &ParseError{Text: l.input, Pos: start, Reason: "unterminated regex"}
	}
	pattern := l.input[start:l.pos]
	l.pos++

	re, err := compilePattern(l, pattern)
	if err != nil {
		return nil, err
	}
	return &node{op: opAccountRegex, str: pattern, re: re}, nil
}

func compilePattern(l *lexer, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, &ParseError{Text: l.input, Pos: l.pos, Reason: fmt.Sprintf("invalid regex %q: %v", pattern, err)}
	}
	return re, nil
}

func (l *lexer) parseDate() (*node, error) {
	start := l.pos
	l.pos++ // consume '['
	end := strings.IndexByte(l.input[l.pos:], ']')
	if end < 0 {
		return nil, &ParseError{Text: l.input, Pos: start, Reason: "unterminated date literal"}
	}
	text := l.input[l.pos : l.pos+end]
	l.pos += end + 1

	t, err := time.Parse("2006-01-02", text)
	if err != nil {
		t, err = time.Parse("2006/01/02", text)
	}
	if err != nil {
		return nil, &ParseError{Text: l.input, Pos: start, Reason: fmt.Sprintf("invalid date literal %q", text)}
	}
	return &node{op: opDate, date: DateVal(t)}, nil
}

func (l *lexer) parseString() (*node, error) {
	start := l.pos
	l.pos++ // consume '"'
	end := strings.IndexByte(l.input[l.pos:], '"')
	if end < 0 {
		return nil, &ParseError{Text: l.input, Pos: start, Reason: "unterminated string literal"}
	}
	text := l.input[l.pos : l.pos+end]
	l.pos += end + 1
	return &node{op: opString, str: text}, nil
}

func (l *lexer) parseNumber() (*node, error) {
	l.skipSpace()
	start := l.pos
	foundDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch >= '0' && ch <= '9' {
			l.pos++
		} else if ch == '.' && !foundDot {
			foundDot = true
			l.pos++
		} else {
			break
		}
	}
	d, err := decimal.NewFromString(l.input[start:l.pos])
	if err != nil {
		return nil, &ParseError{Text: l.input, Pos: start, Reason: fmt.Sprintf("invalid number %q", l.input[start:l.pos])}
	}
	return &node{op: opNumber, num: d}, nil
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t') {
		l.pos++
	}
}

func (l *lexer) atEnd() bool {
	l.skipSpace()
	return l.pos >= len(l.input)
}

func (l *lexer) rest() string {
	return l.input[l.pos:]
}

func (l *lexer) takeWord() string {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return l.input[start:l.pos]
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

func hasWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	return len(s) == len(word) || !isIdentPart(s[len(word)])
}
