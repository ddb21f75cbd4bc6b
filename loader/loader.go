// Package loader reads textual journal files into the object graph the
// reporting pipeline consumes. The format is line-oriented:
//
//	2024-01-15 * (C-1) Grocery Store
//	    ; trip: weekly
//	    Expenses:Food         45.20 USD
//	    Assets:Checking
//
//	~ monthly from 2024-01-01
//	    Expenses:Rent        1200 USD
//	    Assets:Checking
//
// Header lines carry a date (or "~ PERIOD" for a periodic template), an
// optional cleared/pending marker, an optional code in parentheses, and the
// payee. Indented lines are postings (account, then amount separated by two
// or more spaces) or "; key: value" tag lines. One posting per transaction
// may elide its amount; the loader infers it so the transaction balances.
// Accounts in parentheses are virtual, in brackets virtual-but-balancing.
//
// Include directives ("include PATH") are resolved relative to the
// including file and deduplicated when the loader is configured to follow
// them.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// ParseError reports a malformed journal line.
type ParseError struct {
	File   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

// Loader reads journal files, optionally following include directives.
type Loader struct {
	// FollowIncludes determines whether include directives are resolved.
	// When false an include directive is a parse error; when true included
	// files are loaded recursively, relative to the including file, and
	// deduplicated.
	FollowIncludes bool
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes configures the loader to resolve include directives.
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and parses a journal file.
func (l *Loader) Load(ctx context.Context, filename string) (*journal.Journal, error) {
	j := journal.New()
	if err := l.loadInto(ctx, j, filename, make(map[string]bool)); err != nil {
		return nil, err
	}
	return j, nil
}

// Parse parses journal text into a fresh journal. Include directives are
// not allowed in text input.
func (l *Loader) Parse(ctx context.Context, filename string, data []byte) (*journal.Journal, error) {
	j := journal.New()
	p := &parseState{loader: &Loader{}, journal: j, file: filename}
	if err := p.run(ctx, data); err != nil {
		return nil, err
	}
	return j, nil
}

func (l *Loader) loadInto(ctx context.Context, j *journal.Journal, filename string, visited map[string]bool) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", filename, err)
	}
	if visited[abs] {
		return nil
	}
	visited[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	p := &parseState{loader: l, journal: j, file: filename, dir: filepath.Dir(abs), visited: visited}
	return p.run(ctx, data)
}

// parseState carries one file's scan. A current transaction accumulates
// postings until a blank line, a new header, or end of input finalizes it.
type parseState struct {
	loader  *Loader
	journal *journal.Journal
	file    string
	dir     string
	visited map[string]bool

	line     int
	xact     *journal.Xact
	periodic *journal.PeriodXact
	lastPost *journal.Post
	elided   *journal.Post
}

func (p *parseState) run(ctx context.Context, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.line++
		if err := p.handleLine(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan %s: %w", p.file, err)
	}
	return p.finalize()
}

func (p *parseState) handleLine(ctx context.Context, raw string) error {
	trimmed := strings.TrimRight(raw, " \t")
	if trimmed == "" {
		return p.finalize()
	}
	if strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	indented := raw[0] == ' ' || raw[0] == '\t'
	if !indented {
		if err := p.finalize(); err != nil {
			return err
		}
		return p.parseHeader(ctx, trimmed)
	}

	if p.xact == nil && p.periodic == nil {
		return p.errorf("posting line outside a transaction")
	}
	body := strings.TrimSpace(trimmed)
	if strings.HasPrefix(body, ";") {
		p.parseAnnotation(strings.TrimSpace(body[1:]))
		return nil
	}
	return p.parsePosting(body)
}

func (p *parseState) parseHeader(ctx context.Context, line string) error {
	if rest, ok := strings.CutPrefix(line, "include "); ok {
		if !p.loader.FollowIncludes {
			return p.errorf("include directives are not enabled")
		}
		path := strings.TrimSpace(rest)
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.dir, path)
		}
		return p.loader.loadInto(ctx, p.journal, path, p.visited)
	}

	if rest, ok := strings.CutPrefix(line, "~"); ok {
		text := strings.TrimSpace(rest)
		period, err := journal.ParsePeriod(text)
		if err != nil {
			return p.errorf("invalid period %q: %v", text, err)
		}
		p.periodic = &journal.PeriodXact{
			Period:     period,
			PeriodText: text,
			Xact:       &journal.Xact{Payee: text},
		}
		return nil
	}

	fields := strings.SplitN(line, " ", 2)
	date, err := journal.NewDate(normalizeDate(fields[0]))
	if err != nil {
		return p.errorf("invalid date %q", fields[0])
	}
	rest := ""
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}

	x := &journal.Xact{Date: date}
	switch {
	case strings.HasPrefix(rest, "* "):
		x.State = journal.Cleared
		rest = strings.TrimSpace(rest[2:])
	case strings.HasPrefix(rest, "! "):
		x.State = journal.Pending
		rest = strings.TrimSpace(rest[2:])
	}
	if strings.HasPrefix(rest, "(") {
		if end := strings.Index(rest, ")"); end > 0 {
			x.Code = rest[1:end]
			rest = strings.TrimSpace(rest[end+1:])
		}
	}
	x.Payee = rest
	p.xact = x
	return nil
}

// parseAnnotation attaches a "; key: value" tag, or a bare note, to the
// most recent posting, falling back to the transaction.
func (p *parseState) parseAnnotation(body string) {
	key, val, isTag := strings.Cut(body, ": ")
	switch {
	case isTag && p.lastPost != nil:
		p.lastPost.SetTag(key, strings.TrimSpace(val))
	case isTag:
		p.currentXact().SetTag(key, strings.TrimSpace(val))
	case p.lastPost != nil:
		p.lastPost.Note = body
	default:
		p.currentXact().Note = body
	}
}

func (p *parseState) parsePosting(body string) error {
	name, amountText := splitPosting(body)

	var flags journal.PostFlags
	switch {
	case strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")"):
		flags |= journal.PostVirtual
		name = name[1 : len(name)-1]
	case strings.HasPrefix(name, "[") && strings.HasSuffix(name, "]"):
		flags |= journal.PostVirtual | journal.PostMustBalance
		name = name[1 : len(name)-1]
	}
	if name == "" {
		return p.errorf("posting has no account")
	}

	post := &journal.Post{
		Account: p.journal.Accounts.FindOrCreate(name),
		Flags:   flags,
	}

	if amountText == "" {
		if p.elided != nil {
			return p.errorf("only one posting per transaction may elide its amount")
		}
		post.Flags |= journal.PostCalculated
		p.elided = post
	} else {
		amount, err := value.ParseAmount(amountText)
		if err != nil {
			return p.errorf("invalid amount %q: %v", amountText, err)
		}
		post.Amount = amount
	}

	p.currentXact().AddPost(post)
	p.lastPost = post
	return nil
}

// finalize closes the in-progress transaction: infers the elided amount
// from the residual of the others and registers the transaction.
func (p *parseState) finalize() error {
	x := p.currentXact()
	if x == nil {
		return nil
	}

	if p.elided != nil {
		if err := p.balance(x); err != nil {
			return err
		}
	}

	if p.periodic != nil {
		p.journal.AddPeriodXact(p.periodic)
	} else {
		p.journal.AddXact(x)
	}
	p.xact = nil
	p.periodic = nil
	p.lastPost = nil
	p.elided = nil
	return nil
}

// balance replaces the elided posting's amount with the negated residual.
// A residual spanning several commodities expands the elided posting into
// one posting per commodity.
func (p *parseState) balance(x *journal.Xact) error {
	residual := value.NewValue()
	for _, post := range x.Postings {
		if post == p.elided {
			continue
		}
		if post.Flags&journal.PostVirtual != 0 && post.Flags&journal.PostMustBalance == 0 {
			continue
		}
		residual.AddAmount(post.Amount)
	}

	commodities := residual.Commodities()
	switch len(commodities) {
	case 0:
		// Already balanced; the elided posting stays at zero.
	case 1:
		p.elided.Amount = value.NewAmount(residual.Get(commodities[0]).Neg(), commodities[0])
	default:
		p.elided.Amount = value.NewAmount(residual.Get(commodities[0]).Neg(), commodities[0])
		for _, commodity := range commodities[1:] {
			extra := p.elided.Clone()
			extra.Xact = nil
			extra.Amount = value.NewAmount(residual.Get(commodity).Neg(), commodity)
			x.AddPost(extra)
		}
	}
	return nil
}

func (p *parseState) currentXact() *journal.Xact {
	if p.periodic != nil {
		return p.periodic.Xact
	}
	return p.xact
}

func (p *parseState) errorf(format string, args ...any) error {
	return &ParseError{File: p.file, Line: p.line, Reason: fmt.Sprintf(format, args...)}
}

// splitPosting separates an account name from an amount at the first run of
// two or more spaces (or a tab). Single spaces stay inside the account name.
func splitPosting(body string) (account, amount string) {
	if i := strings.Index(body, "\t"); i >= 0 {
		return strings.TrimSpace(body[:i]), strings.TrimSpace(body[i:])
	}
	if i := strings.Index(body, "  "); i >= 0 {
		return strings.TrimSpace(body[:i]), strings.TrimSpace(body[i:])
	}
	return body, ""
}

func normalizeDate(s string) string {
	return strings.ReplaceAll(s, "/", "-")
}
