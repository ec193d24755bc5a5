// Package table provides append-only paged tables with random page access,
// the storage that sources, destinations and temporary sort runs live in.
//
// Three stores are provided: an in-memory store, a file store that keeps
// each table in one file with every page a section of it, and a store that
// keeps tables as key ranges of a pebble database.
package table

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/page"
)

var (
	// ErrExists is returned when creating a table whose name is taken.
	ErrExists = errors.New("table: already exists")
	// ErrNotFound is returned by Lookup for an unknown table.
	ErrNotFound = errors.New("table: not found")
	// ErrDropped is returned by operations on a table whose storage was deleted.
	ErrDropped = errors.New("table: dropped")
	// ErrPageOverflow is returned when a stored page does not fit the destination page.
	ErrPageOverflow = errors.New("table: page does not fit destination buffer")
	// ErrPageIndex is returned by ReadPage for an index outside [0, PageCount()).
	ErrPageIndex = errors.New("table: page index out of range")
	// ErrInvalidName is returned for empty table names or names containing NUL.
	ErrInvalidName = errors.New("table: invalid name")
)

// Table is an append-only sequence of pages.
//
// The last page may be partially filled and still accept appends; it is
// readable through ReadPage like any other page. Flush seals it, after which
// the next Append starts a new page.
type Table[E any] interface {
	// Name returns the storage location of the table within its store.
	Name() string
	// PageCapacity is the maximum number of records per page.
	PageCapacity() int
	// PageCount returns the number of pages, including a partially filled last page.
	PageCount() int
	// ReadPage replaces the contents of dst with page i.
	ReadPage(i int, dst *page.Page[E]) error
	// Append adds rec after the last record of the table.
	Append(rec E) error
	// Flush seals and persists the last page.
	Flush() error
	// Drop deletes the backing storage. The table must not be used afterwards.
	Drop() error
}

// Store creates and finds tables.
type Store[E any] interface {
	// Create makes a new empty table. It fails with ErrExists if name is taken.
	Create(name string, pageCapacity int) (Table[E], error)
	// Lookup returns an existing table or ErrNotFound.
	Lookup(name string) (Table[E], error)
	// Names lists the tables currently in the store, sorted.
	Names() ([]string, error)
}

// Records reads every record of t, in order. It is meant for small tables and tests.
func Records[E any](t Table[E]) ([]E, error) {
	buf := page.New[E](t.PageCapacity())
	var out []E
	for i := 0; i < t.PageCount(); i++ {
		if err := t.ReadPage(i, buf); err != nil {
			return nil, err
		}
		out = append(out, buf.Records()...)
	}
	return out, nil
}

// AppendAll appends every record in recs to t.
func AppendAll[E any](t Table[E], recs ...E) error {
	for _, rec := range recs {
		if err := t.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

func validName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

func validCapacity(pageCapacity int) error {
	if pageCapacity < 1 {
		return errors.Newf("table: page capacity must be at least 1, got %d", pageCapacity)
	}
	return nil
}

// fillPage replaces the contents of dst with recs.
func fillPage[E any](dst *page.Page[E], recs []E) error {
	if len(recs) > dst.Cap() {
		return errors.Wrapf(ErrPageOverflow, "%d records, buffer holds %d", len(recs), dst.Cap())
	}
	dst.Reset()
	for _, rec := range recs {
		dst.Append(rec)
	}
	return nil
}

// paged holds the bookkeeping shared by every table implementation: the
// count of sealed pages and the unsealed last page.
type paged[E any] struct {
	name     string
	capacity int
	sealed   int
	tail     []E
	dropped  bool
	// seal persists the records of the next page.
	seal func(recs []E) error
}

func (p *paged[E]) Name() string {
	return p.name
}

func (p *paged[E]) PageCapacity() int {
	return p.capacity
}

func (p *paged[E]) PageCount() int {
	n := p.sealed
	if len(p.tail) > 0 {
		n++
	}
	return n
}

func (p *paged[E]) Append(rec E) error {
	if p.dropped {
		return errors.Wrapf(ErrDropped, "append to %s", p.name)
	}
	if p.tail == nil {
		p.tail = make([]E, 0, p.capacity)
	}
	p.tail = append(p.tail, rec)
	if len(p.tail) == p.capacity {
		return p.Flush()
	}
	return nil
}

func (p *paged[E]) Flush() error {
	if p.dropped {
		return errors.Wrapf(ErrDropped, "flush %s", p.name)
	}
	if len(p.tail) == 0 {
		return nil
	}
	if err := p.seal(p.tail); err != nil {
		return err
	}
	p.sealed++
	clear(p.tail)
	p.tail = p.tail[:0]
	return nil
}

// checkRead validates a ReadPage call and reports whether i is the unsealed tail.
func (p *paged[E]) checkRead(i int) (tail bool, err error) {
	if p.dropped {
		return false, errors.Wrapf(ErrDropped, "read %s", p.name)
	}
	if i < 0 || i >= p.PageCount() {
		return false, errors.Wrapf(ErrPageIndex, "%s page %d of %d", p.name, i, p.PageCount())
	}
	return i == p.sealed, nil
}
