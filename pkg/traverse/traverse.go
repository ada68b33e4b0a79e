// Package traverse holds the small building blocks shared by the graph passes:
// a FIFO work queue, a once-only marker and a visit budget that turns a broken
// re-enqueue discipline into an error instead of an endless loop.
package traverse

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted is returned when a pass visits more items than its
// structural bound allows. It always indicates a bug in the pass.
var ErrBudgetExhausted = errors.New("traversal budget exhausted")

// DefaultBudgetFactor is the smallest multiplier passes apply to their
// structural visit bound.
const DefaultBudgetFactor = 4

// Queue is a FIFO work queue.
type Queue[T any] struct {
	items []T
	head  int
}

// NewQueue creates a queue holding the given items in order.
func NewQueue[T any](items ...T) *Queue[T] {
	q := &Queue[T]{}
	for _, item := range items {
		q.Push(item)
	}
	return q
}

func (q *Queue[T]) Push(item T) {
	q.items = append(q.items, item)
}

// Pop removes and returns the oldest item.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.head >= len(q.items) {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 64 && q.head*2 > len(q.items) {
		q.items = append([]T(nil), q.items[q.head:]...)
		q.head = 0
	}
	return item, true
}

func (q *Queue[T]) Len() int {
	return len(q.items) - q.head
}

// Marker records keys that have been seen.
type Marker[K comparable] struct {
	seen map[K]struct{}
}

func NewMarker[K comparable]() *Marker[K] {
	return &Marker[K]{seen: make(map[K]struct{})}
}

// Mark records k and reports whether this was the first time.
func (m *Marker[K]) Mark(k K) bool {
	if _, ok := m.seen[k]; ok {
		return false
	}
	m.seen[k] = struct{}{}
	return true
}

func (m *Marker[K]) Marked(k K) bool {
	_, ok := m.seen[k]
	return ok
}

func (m *Marker[K]) Len() int {
	return len(m.seen)
}

// Budget bounds the number of visits a pass may make.
type Budget struct {
	pass  string
	limit int
	spent int
}

// NewBudget creates a budget for the named pass. A non-positive limit allows
// no visits at all.
func NewBudget(pass string, limit int) *Budget {
	return &Budget{pass: pass, limit: limit}
}

// Spend consumes one visit.
func (b *Budget) Spend() error {
	b.spent++
	if b.spent > b.limit {
		return fmt.Errorf("%w: %s pass exceeded %d visits", ErrBudgetExhausted, b.pass, b.limit)
	}
	return nil
}

// Spent returns the number of visits made so far.
func (b *Budget) Spent() int {
	return b.spent
}
