package page

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrBudgetExceeded is returned when an allocation would exceed the resident page budget.
var ErrBudgetExceeded = errors.New("page: resident page budget exceeded")

// Allocator hands out anonymous pages of a fixed capacity and tracks how many
// are resident at once. Released pages are recycled through a sync.Pool.
//
// An Allocator is not safe for concurrent use.
type Allocator[E any] struct {
	capacity int
	budget   int
	resident int
	peak     int
	pool     sync.Pool // *Page[E]
}

// NewAllocator returns an allocator of pages holding capacity records each.
// A budget of zero or less means unlimited.
func NewAllocator[E any](capacity, budget int) (*Allocator[E], error) {
	if capacity < 1 {
		return nil, errors.Newf("page: capacity must be at least 1, got %d", capacity)
	}
	a := &Allocator[E]{
		capacity: capacity,
		budget:   budget,
	}
	a.pool = sync.Pool{
		New: func() any {
			return New[E](a.capacity)
		},
	}
	return a, nil
}

// Capacity returns the record capacity of the pages handed out.
func (a *Allocator[E]) Capacity() int {
	return a.capacity
}

// SetBudget changes the resident page budget. Pages already resident are not affected.
func (a *Allocator[E]) SetBudget(budget int) {
	a.budget = budget
}

// Budget returns the resident page budget.
func (a *Allocator[E]) Budget() int {
	return a.budget
}

// Allocate returns an empty page, counting it as resident until Release.
func (a *Allocator[E]) Allocate() (*Page[E], error) {
	if a.budget > 0 && a.resident >= a.budget {
		return nil, errors.Wrapf(ErrBudgetExceeded, "%d of %d pages resident", a.resident, a.budget)
	}
	p := a.pool.Get().(*Page[E])
	a.resident++
	if a.resident > a.peak {
		a.peak = a.resident
	}
	return p, nil
}

// Release returns p to the allocator. p must not be used afterwards.
func (a *Allocator[E]) Release(p *Page[E]) {
	if p == nil {
		return
	}
	a.resident--
	if p.Cap() != a.capacity {
		// not ours to recycle
		return
	}
	p.Reset()
	a.pool.Put(p)
}

// Resident returns the number of pages currently allocated and not released.
func (a *Allocator[E]) Resident() int {
	return a.resident
}

// Peak returns the highest resident count observed.
func (a *Allocator[E]) Peak() int {
	return a.peak
}
