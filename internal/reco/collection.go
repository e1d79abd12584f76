package reco

import "slices"

// Collection is an ordered, immutable sequence of candidates produced by
// exactly one stage for one event.
type Collection struct {
	producer string
	items    []*Candidate
}

// NewCollection wraps items. The slice is copied; callers must not mutate
// the candidates afterwards.
func NewCollection(producer string, items []*Candidate) *Collection {
	return &Collection{producer: producer, items: slices.Clone(items)}
}

// Producer returns the label of the stage that produced the collection.
func (c *Collection) Producer() string { return c.producer }

// Len returns the number of candidates.
func (c *Collection) Len() int { return len(c.items) }

// At returns the i-th candidate.
func (c *Collection) At(i int) *Candidate { return c.items[i] }

// Items returns a copy of the candidate slice.
func (c *Collection) Items() []*Candidate { return slices.Clone(c.items) }

// Keys returns the identities of the candidates in order.
func (c *Collection) Keys() []Key {
	keys := make([]Key, len(c.items))
	for i, cand := range c.items {
		keys[i] = cand.Key
	}
	return keys
}

// VertexCollection is the vertex counterpart of Collection.
type VertexCollection struct {
	producer string
	items    []Vertex
}

// NewVertexCollection wraps a copy of items.
func NewVertexCollection(producer string, items []Vertex) *VertexCollection {
	return &VertexCollection{producer: producer, items: slices.Clone(items)}
}

func (c *VertexCollection) Producer() string { return c.producer }

func (c *VertexCollection) Len() int { return len(c.items) }

func (c *VertexCollection) At(i int) Vertex { return c.items[i] }

// Items returns a copy of the vertices.
func (c *VertexCollection) Items() []Vertex { return slices.Clone(c.items) }
