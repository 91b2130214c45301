package persona

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a personality id is not in the catalog.
var ErrNotFound = errors.New("personality not found")

// Store exposes personality retrieval for services and HTTP handlers.
type Store interface {
	List() []Personality
	Get(id string) (Personality, error)
}

// Registry implements Store over a fixed slice. It is never mutated after
// construction, so it needs no locking.
type Registry struct {
	items []Personality
	index map[string]int
}

// NewRegistry returns a Registry preloaded with the supplied personalities.
// Later duplicates of an id are dropped so List never repeats an entry.
func NewRegistry(items []Personality) *Registry {
	r := &Registry{
		items: make([]Personality, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, item := range items {
		if _, dup := r.index[item.ID]; dup {
			continue
		}
		item.Specialties = append([]string(nil), item.Specialties...)
		r.index[item.ID] = len(r.items)
		r.items = append(r.items, item)
	}
	return r
}

// List returns the catalog in its seeded order.
func (r *Registry) List() []Personality {
	out := make([]Personality, len(r.items))
	for i, item := range r.items {
		item.Specialties = append([]string(nil), item.Specialties...)
		out[i] = item
	}
	return out
}

// Get looks up a personality by identifier.
func (r *Registry) Get(id string) (Personality, error) {
	i, ok := r.index[id]
	if !ok {
		return Personality{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	item := r.items[i]
	item.Specialties = append([]string(nil), item.Specialties...)
	return item, nil
}

// IDs returns the catalog identifiers in order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.items))
	for i, item := range r.items {
		ids[i] = item.ID
	}
	return ids
}
