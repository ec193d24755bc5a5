package table

import "github.com/lanrat/pagesort/page"

// Cursor walks every record of a table, left to right across pages and top
// to bottom within a page, holding one page resident in a caller supplied buffer.
// It satisfies page.Source.
type Cursor[E any] struct {
	t    Table[E]
	buf  *page.Page[E]
	next int // next page index to load
	pos  int
	err  error
	done bool
}

// NewCursor returns a cursor over t positioned before its first record.
// buf is reused for every page read and must hold PageCapacity records.
func NewCursor[E any](t Table[E], buf *page.Page[E]) *Cursor[E] {
	buf.Reset()
	return &Cursor[E]{t: t, buf: buf, pos: -1}
}

// Advance moves to the next record, reading the next page when the buffer is drained.
func (c *Cursor[E]) Advance() bool {
	if c.done {
		return false
	}
	c.pos++
	for c.pos >= c.buf.Len() {
		if c.next >= c.t.PageCount() {
			c.done = true
			return false
		}
		if err := c.t.ReadPage(c.next, c.buf); err != nil {
			c.err = err
			c.done = true
			return false
		}
		c.next++
		c.pos = 0
	}
	return true
}

// Current returns the record under the cursor.
func (c *Cursor[E]) Current() (E, error) {
	if c.done || c.pos < 0 || c.pos >= c.buf.Len() {
		var zero E
		return zero, page.ErrNotPositioned
	}
	return c.buf.At(c.pos), nil
}

// Err returns the read error that stopped the cursor, if any.
func (c *Cursor[E]) Err() error {
	return c.err
}

// Buffer returns the page the cursor reads into, so its owner can release it.
func (c *Cursor[E]) Buffer() *page.Page[E] {
	return c.buf
}
