package pagesort

import (
	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/page"
)

// mergeSource binds a cursor to a copy of the record it is positioned on, so
// comparisons never go back to the cursor and no two sources share a slot.
type mergeSource[E any] struct {
	src     page.Source[E]
	current E
	index   int // position among the merge inputs, breaks ties
}

// advance moves the cursor and loads its new current record.
// It reports false when the cursor is exhausted or failed.
func (m *mergeSource[E]) advance() (bool, error) {
	if !m.src.Advance() {
		return false, m.src.Err()
	}
	rec, err := m.src.Current()
	if err != nil {
		return false, errors.NewAssertionErrorWithWrappedErrf(err,
			"merge input %d advanced but has no current record", m.index)
	}
	m.current = rec
	return true, nil
}

// sourceOrder orders merge sources by their current record, smallest first.
// Equal records come out in input order, which keeps merge output a pure
// function of the inputs.
func sourceOrder[E any](compare Compare[E]) func(a, b *mergeSource[E]) int {
	return func(a, b *mergeSource[E]) int {
		if c := compare(a.current, b.current); c != 0 {
			return c
		}
		return a.index - b.index
	}
}
