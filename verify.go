package pagesort

import (
	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/page"
	"github.com/lanrat/pagesort/table"
)

// ErrNotSorted is returned by CheckSorted for a table out of order.
var ErrNotSorted = errors.New("pagesort: table is not sorted")

// CheckSorted reads t and reports the first adjacent pair of records where
// the later one sorts before the earlier one. Equal neighbours are allowed.
func CheckSorted[E any](t table.Table[E], compare Compare[E]) error {
	c := table.NewCursor(t, page.New[E](t.PageCapacity()))
	var prev E
	for i := int64(0); c.Advance(); i++ {
		rec, err := c.Current()
		if err != nil {
			return err
		}
		if i > 0 && compare(prev, rec) > 0 {
			return errors.Wrapf(ErrNotSorted, "%s: record %d sorts before record %d", t.Name(), i, i-1)
		}
		prev = rec
	}
	return c.Err()
}
