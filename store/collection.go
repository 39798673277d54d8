package store

import (
	"github.com/harperreed/funnel/models"
)

// collection is an ordered set of entities of one kind. Values handed in
// and out are always clones, so only the collection mutates what it holds.
type collection[T any] struct {
	kind     string
	items    []T
	id       func(T) int
	setID    func(T, int)
	clone    func(T) T
	validate func(T) error
}

func (c *collection[T]) list() []T {
	out := make([]T, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, c.clone(it))
	}
	return out
}

func (c *collection[T]) index(id int) int {
	for i, it := range c.items {
		if c.id(it) == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) get(id int) (T, error) {
	i := c.index(id)
	if i < 0 {
		var zero T
		return zero, models.NotFoundError(c.kind, id)
	}
	return c.clone(c.items[i]), nil
}

// nextID is max(live ids)+1, or 1 when empty.
func (c *collection[T]) nextID() int {
	highest := 0
	for _, it := range c.items {
		if v := c.id(it); v > highest {
			highest = v
		}
	}
	return highest + 1
}

func (c *collection[T]) add(v T) (T, error) {
	v = c.clone(v)
	if err := c.validate(v); err != nil {
		var zero T
		return zero, err
	}
	c.setID(v, c.nextID())
	c.items = append(c.items, v)
	return c.clone(v), nil
}

// update runs fn against a clone and commits it only when fn and validation
// both succeed. The identity cannot be changed by fn.
func (c *collection[T]) update(id int, fn func(T) error) (T, error) {
	var zero T
	i := c.index(id)
	if i < 0 {
		return zero, models.NotFoundError(c.kind, id)
	}
	draft := c.clone(c.items[i])
	if err := fn(draft); err != nil {
		return zero, err
	}
	c.setID(draft, id)
	if err := c.validate(draft); err != nil {
		return zero, err
	}
	c.items[i] = draft
	return c.clone(draft), nil
}

func (c *collection[T]) delete(id int) (T, error) {
	var zero T
	i := c.index(id)
	if i < 0 {
		return zero, models.NotFoundError(c.kind, id)
	}
	removed := c.items[i]
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return removed, nil
}
