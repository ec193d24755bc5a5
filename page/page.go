// Package page implements fixed-capacity record pages, the unit of memory
// residency during a sort, and the allocator that bounds how many are live.
package page

import (
	"iter"
	"slices"

	"github.com/cockroachdb/errors"
)

// ErrNotPositioned is returned by Cursor.Current when the cursor has not been
// advanced onto a record, or has run past the last one.
var ErrNotPositioned = errors.New("page: cursor is not positioned on a record")

// Page is a fixed-capacity container of records.
type Page[E any] struct {
	data []E
}

// New returns an empty page holding at most capacity records.
func New[E any](capacity int) *Page[E] {
	return &Page[E]{data: make([]E, 0, capacity)}
}

// Of returns a page whose capacity equals len(records), filled with a copy of records.
func Of[E any](records ...E) *Page[E] {
	p := New[E](len(records))
	p.data = append(p.data, records...)
	return p
}

// Len returns the number of records on the page.
func (p *Page[E]) Len() int {
	return len(p.data)
}

// Cap returns the page capacity.
func (p *Page[E]) Cap() int {
	return cap(p.data)
}

// Full reports whether another Append would fail.
func (p *Page[E]) Full() bool {
	return len(p.data) == cap(p.data)
}

// Append adds rec to the page. It returns false, leaving the page unchanged, if the page is full.
func (p *Page[E]) Append(rec E) bool {
	if p.Full() {
		return false
	}
	p.data = append(p.data, rec)
	return true
}

// At returns the i-th record.
func (p *Page[E]) At(i int) E {
	return p.data[i]
}

// Records returns the records on the page. The slice aliases the page buffer.
func (p *Page[E]) Records() []E {
	return p.data
}

// Reset empties the page, keeping its capacity.
func (p *Page[E]) Reset() {
	clear(p.data)
	p.data = p.data[:0]
}

// Sort orders the page records in place, keeping equal records in their order.
func (p *Page[E]) Sort(cmp func(a, b E) int) {
	slices.SortStableFunc(p.data, cmp)
}

// All returns a forward iterator over the page records.
func (p *Page[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, rec := range p.data {
			if !yield(rec) {
				return
			}
		}
	}
}

// Cursor returns a cursor positioned before the first record.
func (p *Page[E]) Cursor() *Cursor[E] {
	return &Cursor[E]{page: p, pos: -1}
}
