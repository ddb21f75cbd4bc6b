package report

import (
	"context"

	"github.com/ledgerpipe/ledgerpipe/chain"
	"github.com/ledgerpipe/ledgerpipe/journal"
)

// Collector is a terminal sink that buffers every posting the chain emits,
// in emission order. API consumers and tests read the result from Posts.
type Collector struct {
	states *chain.StateTable
	title  string
	posts  []*journal.Post
}

// NewCollector creates a collecting sink backed by the run's state table.
func NewCollector(states *chain.StateTable) *Collector {
	return &Collector{states: states}
}

// ReportTitle returns the title the chain passed down, if any.
func (c *Collector) ReportTitle() string { return c.title }

// Posts returns the collected postings in emission order.
func (c *Collector) Posts() []*journal.Post { return c.posts }

func (c *Collector) Title(label string) { c.title = label }

func (c *Collector) Handle(ctx context.Context, post *journal.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.posts = append(c.posts, post)
	c.states.Post(post).Displayed = true
	c.states.Account(post.Account).ToDisplay = true
	return nil
}

func (c *Collector) Flush(ctx context.Context) error { return ctx.Err() }

func (c *Collector) Clear() { c.posts = nil }

func (c *Collector) Dispose() {}
