package catalog

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownItem is returned when an identifier does not resolve.
var ErrUnknownItem = errors.New("catalog: unknown item")

// Catalog is an immutable lookup table of item definitions. It is safe for
// concurrent use.
type Catalog struct {
	items map[string]*Item
	order []string
}

// New builds a catalog from the given definitions. Identifiers must be unique.
func New(items ...Item) (*Catalog, error) {
	c := &Catalog{
		items: make(map[string]*Item, len(items)),
		order: make([]string, 0, len(items)),
	}
	for _, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("catalog: item missing id")
		}
		if _, dup := c.items[item.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %q", item.ID)
		}
		def := item
		c.items[def.ID] = &def
		c.order = append(c.order, def.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Lookup resolves an identifier to its shared definition.
func (c *Catalog) Lookup(id string) (*Item, bool) {
	if c == nil {
		return nil, false
	}
	item, ok := c.items[id]
	return item, ok
}

// Resolve is Lookup with an error suitable for returning to callers.
func (c *Catalog) Resolve(id string) (*Item, error) {
	item, ok := c.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownItem, id)
	}
	return item, nil
}

// MustLookup panics when id is not in the catalog.
func (c *Catalog) MustLookup(id string) *Item {
	item, err := c.Resolve(id)
	if err != nil {
		panic(err)
	}
	return item
}

// Items returns the definitions sorted by identifier.
func (c *Catalog) Items() []*Item {
	if c == nil {
		return nil
	}
	out := make([]*Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}
