package pagesort

import (
	"context"

	"github.com/lanrat/pagesort/page"
	"github.com/lanrat/pagesort/queue"
	"github.com/lanrat/pagesort/table"
)

// how many records the k-way merge writes between context checks
const ctxCheckInterval = 1024

// runCursor walks an in-memory run and hands every fully read page back to
// the allocator, so a run being merged shrinks as the merge output grows.
type runCursor[E any] struct {
	alloc *page.Allocator[E]
	pages []*page.Page[E]
	cur   *page.Cursor[E]
}

func newRunCursor[E any](alloc *page.Allocator[E], pages []*page.Page[E]) *runCursor[E] {
	return &runCursor[E]{alloc: alloc, pages: pages}
}

func (c *runCursor[E]) Advance() bool {
	for len(c.pages) > 0 {
		if c.cur == nil {
			c.cur = c.pages[0].Cursor()
		}
		if c.cur.Advance() {
			return true
		}
		c.alloc.Release(c.pages[0])
		c.pages[0] = nil
		c.pages = c.pages[1:]
		c.cur = nil
	}
	return false
}

func (c *runCursor[E]) Current() (E, error) {
	if c.cur == nil {
		var zero E
		return zero, page.ErrNotPositioned
	}
	return c.cur.Current()
}

func (c *runCursor[E]) Err() error {
	return nil
}

// mergeIntoList merges two sorted sources into freshly allocated pages.
// Both sources must be positioned before their first record. Ties take the
// left record first. The returned pages form a sorted run owned by the caller.
func mergeIntoList[E any](alloc *page.Allocator[E], left, right page.Source[E], compare Compare[E]) ([]*page.Page[E], error) {
	l := &mergeSource[E]{src: left, index: 0}
	r := &mergeSource[E]{src: right, index: 1}
	lok, err := l.advance()
	if err != nil {
		return nil, err
	}
	rok, err := r.advance()
	if err != nil {
		return nil, err
	}

	var out []*page.Page[E]
	var cur *page.Page[E]
	for lok || rok {
		from := r
		if lok && (!rok || compare(l.current, r.current) <= 0) {
			from = l
		}

		if cur == nil || cur.Full() {
			cur, err = alloc.Allocate()
			if err != nil {
				return out, err
			}
			out = append(out, cur)
		}
		if !cur.Append(from.current) {
			return out, &CapacityError{Capacity: cur.Cap(), Len: cur.Len(), Context: "mergeIntoList"}
		}

		ok, err := from.advance()
		if err != nil {
			return out, err
		}
		if from == l {
			lok = ok
		} else {
			rok = ok
		}
	}
	return out, nil
}

// mergeIntoTable merges any number of sorted sources into dst in one pass
// and returns the number of records appended. Each source must be positioned
// before its first record. With distinct set, a record equal to the one
// written before it is skipped.
func mergeIntoTable[E any](ctx context.Context, dst table.Table[E], sources []page.Source[E], compare Compare[E], distinct bool) (int64, error) {
	pq := queue.NewPriorityQueue(sourceOrder(compare)).WithCapacity(len(sources))

	// start the merge by preloading the first record of every source
	for i, src := range sources {
		merge := &mergeSource[E]{src: src, index: i}
		ok, err := merge.advance()
		if err != nil {
			return 0, err
		}
		if ok {
			pq.Push(merge)
		}
	}

	var written, seen int64
	var last E
	for pq.Len() > 0 {
		if seen%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return written, err
			}
		}
		seen++

		merge := pq.Peek()
		rec := merge.current
		if !distinct || written == 0 || compare(last, rec) != 0 {
			if err := dst.Append(rec); err != nil {
				return written, NewDiskError(err, "append", dst.Name())
			}
			written++
			last = rec
		}

		more, err := merge.advance()
		if err != nil {
			return written, err
		}
		if more {
			pq.PeekUpdate()
		} else {
			pq.Pop()
		}
	}
	return written, nil
}
