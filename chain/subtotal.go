package chain

import (
	"context"
	"sort"
	"time"

	"github.com/ledgerpipe/ledgerpipe/journal"
	"github.com/ledgerpipe/ledgerpipe/value"
)

// acctValue is an accumulator entry pairing an account with the compound
// value summed for it.
type acctValue struct {
	account *journal.Account
	value   *value.Value
}

// valuesMap is the keyed accumulator shared by the aggregation stages:
// find-or-create per key, iterated in ascending key order at flush time.
type valuesMap struct {
	entries map[string]*acctValue
}

func newValuesMap() valuesMap {
	return valuesMap{entries: make(map[string]*acctValue)}
}

func (m *valuesMap) add(key string, account *journal.Account, amount value.Amount) {
	entry, ok := m.entries[key]
	if !ok {
		entry = &acctValue{account: account, value: value.NewValue()}
		m.entries[key] = entry
	}
	entry.value.AddAmount(amount)
}

// sortedKeys returns the accumulator keys in their natural ascending order,
// regardless of insertion order.
func (m *valuesMap) sortedKeys() []string {
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (m *valuesMap) reset() {
	m.entries = make(map[string]*acctValue)
}

// synthPosts creates one generated posting per commodity of sum, attached to
// the synthesized transaction. Multi-commodity sums ride along as a compound
// value on the first posting so later stages see the full total.
func synthPosts(xact *journal.Xact, account *journal.Account, sum *value.Value, states *StateTable) []*journal.Post {
	amounts := sum.Amounts()
	posts := make([]*journal.Post, 0, len(amounts))
	for i, a := range amounts {
		p := &journal.Post{
			Account: account,
			Amount:  a,
			Flags:   journal.PostGenerated | journal.PostTemporary,
		}
		xact.AddPost(p)
		st := states.Post(p)
		st.Visited = true
		if i == 0 && len(amounts) > 1 {
			st.CompoundValue = sum.Clone()
		}
		posts = append(posts, p)
	}
	return posts
}

// SubtotalPosts buffers postings keyed by account path and, at flush time,
// synthesizes one aggregate posting per account in ascending path order,
// carrying the summed amount.
type SubtotalPosts struct {
	relay
	states *StateTable

	// payee labels the synthesized transaction; empty derives "- DATE"
	// from the latest buffered posting date.
	payee string

	values   valuesMap
	earliest *journal.Date
	latest   *journal.Date
}

// NewSubtotalPosts creates the account-subtotal stage.
func NewSubtotalPosts(next PostHandler, states *StateTable) *SubtotalPosts {
	return &SubtotalPosts{relay: newRelay(next), states: states, values: newValuesMap()}
}

func (s *SubtotalPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	s.accumulate(post)
	return nil
}

func (s *SubtotalPosts) accumulate(post *journal.Post) {
	s.values.add(post.Account.FullName(), post.Account, post.Amount)

	st := s.states.Account(post.Account)
	st.Visited = true
	st.ToDisplay = true
	s.states.Post(post).Visited = true

	date := post.GetDate()
	if s.earliest == nil || date.Before(s.earliest) {
		s.earliest = date.Clone()
	}
	if s.latest == nil || date.After(s.latest) {
		s.latest = date.Clone()
	}
}

// emit synthesizes and forwards the aggregate postings without cascading
// the flush; grouping stages that hold several subtotals call it directly.
func (s *SubtotalPosts) emit(ctx context.Context) error {
	if len(s.values.entries) == 0 {
		return nil
	}

	payee := s.payee
	if payee == "" {
		payee = "- " + s.latest.String()
	}
	xact := &journal.Xact{Date: s.latest.Clone(), Payee: payee}

	for _, key := range s.values.sortedKeys() {
		entry := s.values.entries[key]
		for _, post := range synthPosts(xact, entry.account, entry.value, s.states) {
			if err := s.forward(ctx, post); err != nil {
				return err
			}
		}
	}

	s.values.reset()
	s.earliest, s.latest = nil, nil
	return nil
}

func (s *SubtotalPosts) Flush(ctx context.Context) error {
	if err := s.emit(ctx); err != nil {
		return err
	}
	return s.relay.Flush(ctx)
}

func (s *SubtotalPosts) Clear() {
	s.values.reset()
	s.earliest, s.latest = nil, nil
	s.relay.Clear()
}

// IntervalPosts groups postings into recurring date buckets and subtotals
// each bucket by account. Buckets flush in ascending start order; dates
// outside the interval's bounding range are dropped.
type IntervalPosts struct {
	relay
	states   *StateTable
	interval *journal.Interval
	groups   map[string]*SubtotalPosts
}

// NewIntervalPosts creates the interval-bucketing stage. The interval is
// cloned per bucket; the caller's descriptor is never advanced.
func NewIntervalPosts(next PostHandler, interval *journal.Interval, states *StateTable) *IntervalPosts {
	return &IntervalPosts{
		relay:    newRelay(next),
		states:   states,
		interval: interval,
		groups:   make(map[string]*SubtotalPosts),
	}
}

func (i *IntervalPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	date := post.GetDate()
	if i.interval.Range != nil && !i.interval.Range.Contains(date) {
		return nil
	}

	bucket := i.bucketStart(date)
	if bucket == nil {
		return nil
	}

	key := bucket.String()
	group, ok := i.groups[key]
	if !ok {
		group = NewSubtotalPosts(i.next, i.states)
		group.payee = "- " + key
		group.latest = bucket.Clone()
		i.groups[key] = group
	}
	group.accumulate(post)
	group.latest = bucket.Clone()
	return nil
}

// bucketStart resolves the occurrence containing the date on a private
// clone of the interval descriptor.
func (i *IntervalPosts) bucketStart(date *journal.Date) *journal.Date {
	iv := i.interval.Clone()
	iv.Prime(date)
	for iv.HasStep() {
		next := iv.Next()
		if date.Before(next) {
			break
		}
		iv.Advance()
	}
	return iv.Start
}

func (i *IntervalPosts) Flush(ctx context.Context) error {
	keys := make([]string, 0, len(i.groups))
	for key := range i.groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := i.groups[key].emit(ctx); err != nil {
			return err
		}
	}
	return i.relay.Flush(ctx)
}

func (i *IntervalPosts) Clear() {
	i.groups = make(map[string]*SubtotalPosts)
	i.relay.Clear()
}

// DayOfWeekPosts subtotals postings into seven weekday buckets, flushed
// Sunday through Saturday.
type DayOfWeekPosts struct {
	relay
	states *StateTable
	days   [7]*SubtotalPosts
}

// NewDayOfWeekPosts creates the weekday-grouping stage.
func NewDayOfWeekPosts(next PostHandler, states *StateTable) *DayOfWeekPosts {
	d := &DayOfWeekPosts{relay: newRelay(next), states: states}
	for i := range d.days {
		group := NewSubtotalPosts(next, states)
		group.payee = time.Weekday(i).String() + "s"
		d.days[i] = group
	}
	return d
}

func (d *DayOfWeekPosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}
	date := post.GetDate()
	if date == nil {
		return nil
	}
	d.days[int(date.Weekday())].accumulate(post)
	return nil
}

func (d *DayOfWeekPosts) Flush(ctx context.Context) error {
	for _, group := range d.days {
		if err := group.emit(ctx); err != nil {
			return err
		}
	}
	return d.relay.Flush(ctx)
}

func (d *DayOfWeekPosts) Clear() {
	for _, group := range d.days {
		group.values.reset()
		group.earliest, group.latest = nil, nil
	}
	d.relay.Clear()
}

// ByPayeePosts subtotals postings per payee, flushed in ascending payee
// order.
type ByPayeePosts struct {
	relay
	states *StateTable
	groups map[string]*SubtotalPosts
}

// NewByPayeePosts creates the payee-grouping stage.
func NewByPayeePosts(next PostHandler, states *StateTable) *ByPayeePosts {
	return &ByPayeePosts{
		relay:  newRelay(next),
		states: states,
		groups: make(map[string]*SubtotalPosts),
	}
}

func (b *ByPayeePosts) Handle(ctx context.Context, post *journal.Post) error {
	if err := checkCancel(ctx); err != nil {
		return err
	}

	payee := post.Payee()
	group, ok := b.groups[payee]
	if !ok {
		group = NewSubtotalPosts(b.next, b.states)
		group.payee = payee
		b.groups[payee] = group
	}
	group.accumulate(post)
	return nil
}

func (b *ByPayeePosts) Flush(ctx context.Context) error {
	payees := make([]string, 0, len(b.groups))
	for payee := range b.groups {
		payees = append(payees, payee)
	}
	sort.Strings(payees)

	for _, payee := range payees {
		if err := b.groups[payee].emit(ctx); err != nil {
			return err
		}
	}
	return b.relay.Flush(ctx)
}

func (b *ByPayeePosts) Clear() {
	b.groups = make(map[string]*SubtotalPosts)
	b.relay.Clear()
}
