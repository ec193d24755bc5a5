package table

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/page"
)

// MemoryStore keeps tables in memory. Records are stored by value, no codec is involved.
// It is safe for concurrent use; the tables it returns are not.
type MemoryStore[E any] struct {
	mu     sync.Mutex
	tables map[string]*memoryTable[E]
}

// memoryTable stores each sealed page as its own slice.
type memoryTable[E any] struct {
	paged[E]
	store *MemoryStore[E]
	pages [][]E
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore[E any]() *MemoryStore[E] {
	return &MemoryStore[E]{tables: make(map[string]*memoryTable[E])}
}

// Create makes a new empty table.
func (s *MemoryStore[E]) Create(name string, pageCapacity int) (Table[E], error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if err := validCapacity(pageCapacity); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return nil, errors.Wrapf(ErrExists, "%q", name)
	}
	t := &memoryTable[E]{store: s}
	t.name = name
	t.capacity = pageCapacity
	t.seal = t.sealPage
	s.tables[name] = t
	return t, nil
}

// Lookup returns the named table.
func (s *MemoryStore[E]) Lookup(name string) (Table[E], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	return t, nil
}

// Names lists the tables in the store.
func (s *MemoryStore[E]) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *MemoryStore[E]) remove(name string) {
	s.mu.Lock()
	delete(s.tables, name)
	s.mu.Unlock()
}

func (t *memoryTable[E]) sealPage(recs []E) error {
	t.pages = append(t.pages, slices.Clone(recs))
	return nil
}

// ReadPage copies page i into dst.
func (t *memoryTable[E]) ReadPage(i int, dst *page.Page[E]) error {
	tail, err := t.checkRead(i)
	if err != nil {
		return err
	}
	if tail {
		return fillPage(dst, t.tail)
	}
	return fillPage(dst, t.pages[i])
}

// Drop releases the pages and removes the table from its store.
func (t *memoryTable[E]) Drop() error {
	if t.dropped {
		return errors.Wrapf(ErrDropped, "drop %s", t.name)
	}
	t.dropped = true
	t.pages = nil
	t.tail = nil
	t.store.remove(t.name)
	return nil
}
