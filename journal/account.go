package journal

import (
	"sort"
	"strings"
)

// Account is a node in the hierarchical account namespace. Accounts form a
// tree rooted at an unnamed node; the full name joins the path segments with
// ":" (e.g. "Expenses:Food:Restaurant").
//
// Postings reference accounts but do not own them; several reports may walk
// the same account tree, so per-run marks (visited, to-display) live in the
// pipeline's transient state table, not here.
type Account struct {
	Parent *Account
	Name   string

	// Tags holds account metadata such as budget or injection amounts,
	// keyed by tag name.
	Tags map[string]string

	children map[string]*Account
	fullname string
}

// NewAccountTree creates an empty account tree and returns its root.
func NewAccountTree() *Account {
	return &Account{children: make(map[string]*Account)}
}

// FindOrCreate resolves a ":"-separated account path below this node,
// creating any missing intermediate accounts.
func (a *Account) FindOrCreate(fullname string) *Account {
	account := a
	for _, segment := range strings.Split(fullname, ":") {
		if segment == "" {
			continue
		}
		child, ok := account.children[segment]
		if !ok {
			child = &Account{
				Parent:   account,
				Name:     segment,
				children: make(map[string]*Account),
			}
			account.children[segment] = child
		}
		account = child
	}
	return account
}

// Find resolves an account path below this node without creating it.
func (a *Account) Find(fullname string) (*Account, bool) {
	account := a
	for _, segment := range strings.Split(fullname, ":") {
		if segment == "" {
			continue
		}
		child, ok := account.children[segment]
		if !ok {
			return nil, false
		}
		account = child
	}
	return account, true
}

// FullName returns the ":"-joined path from the root, cached after first use.
func (a *Account) FullName() string {
	if a.fullname != "" || a.Parent == nil {
		return a.fullname
	}

	segments := make([]string, 0, a.Depth())
	for node := a; node != nil && node.Name != ""; node = node.Parent {
		segments = append(segments, node.Name)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	a.fullname = strings.Join(segments, ":")
	return a.fullname
}

// Depth returns the number of segments in the account's path.
func (a *Account) Depth() int {
	depth := 0
	for node := a; node != nil && node.Name != ""; node = node.Parent {
		depth++
	}
	return depth
}

// Children returns the direct child accounts in ascending name order.
func (a *Account) Children() []*Account {
	names := make([]string, 0, len(a.children))
	for name := range a.children {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]*Account, 0, len(names))
	for _, name := range names {
		children = append(children, a.children[name])
	}
	return children
}

// Tag looks up a tag on this account or the nearest ancestor carrying it.
func (a *Account) Tag(name string) (string, bool) {
	for node := a; node != nil; node = node.Parent {
		if val, ok := node.Tags[name]; ok {
			return val, true
		}
	}
	return "", false
}

// SetTag attaches a tag to this account.
func (a *Account) SetTag(name, val string) {
	if a.Tags == nil {
		a.Tags = make(map[string]string)
	}
	a.Tags[name] = val
}

// HasAncestor reports whether other is this account or one of its ancestors.
func (a *Account) HasAncestor(other *Account) bool {
	for node := a; node != nil; node = node.Parent {
		if node == other {
			return true
		}
	}
	return false
}

func (a *Account) String() string {
	return a.FullName()
}
