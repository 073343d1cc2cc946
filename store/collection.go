package store

import (
	"slices"
	"sync"

	"github.com/c360/eventgraph/errors"
)

// collection is an insertion-ordered set of records of one kind.
// Each collection has its own lock; no operation spans two collections.
type collection[T any] struct {
	mu    sync.RWMutex
	kind  string
	items []T
	id    func(*T) string
}

func newCollection[T any](kind string, id func(*T) string) *collection[T] {
	return &collection[T]{kind: kind, id: id}
}

func (c *collection[T]) list() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *collection[T]) filter(keep func(*T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []T{}
	for i := range c.items {
		if keep(&c.items[i]) {
			out = append(out, c.items[i])
		}
	}
	return out
}

func (c *collection[T]) find(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], nil
	}
	var zero T
	return zero, errors.NotFound(c.kind, id)
}

func (c *collection[T]) has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexLocked(id) >= 0
}

// insert draws ids from newID until one is unused, builds the record and appends it.
func (c *collection[T]) insert(newID func() string, build func(id string) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := newID()
	for c.indexLocked(id) >= 0 {
		id = newID()
	}
	rec := build(id)
	c.items = append(c.items, rec)
	return rec
}

func (c *collection[T]) update(id string, apply func(*T)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		var zero T
		return zero, errors.NotFound(c.kind, id)
	}
	apply(&c.items[i])
	return c.items[i], nil
}

func (c *collection[T]) remove(id string) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		var zero T
		return zero, errors.NotFound(c.kind, id)
	}
	rec := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	return rec, nil
}

func (c *collection[T]) removeAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	c.items = nil
	return n
}

func (c *collection[T]) replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make([]T, len(items))
	copy(c.items, items)
}

func (c *collection[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// indexLocked is a linear scan; fixture-sized data does not need an index.
func (c *collection[T]) indexLocked(id string) int {
	for i := range c.items {
		if c.id(&c.items[i]) == id {
			return i
		}
	}
	return -1
}
