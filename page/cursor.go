package page

// Source is a stateful iterator over sorted records that can be peeked
// without consuming. A new Source is positioned before its first record.
//
// Advance moves to the next record and reports whether there is one. When it
// returns false, Err distinguishes exhaustion (nil) from a read failure.
// Current returns the record under the cursor and may be called any number of
// times between advances.
type Source[E any] interface {
	Advance() bool
	Current() (E, error)
	Err() error
}

// Cursor walks the records of a single page.
type Cursor[E any] struct {
	page *Page[E]
	pos  int
}

// Advance moves to the next record on the page.
func (c *Cursor[E]) Advance() bool {
	if c.pos >= c.page.Len() {
		return false
	}
	c.pos++
	return c.pos < c.page.Len()
}

// Current returns the record under the cursor.
func (c *Cursor[E]) Current() (E, error) {
	if c.pos < 0 || c.pos >= c.page.Len() {
		var zero E
		return zero, ErrNotPositioned
	}
	return c.page.data[c.pos], nil
}

// Err always returns nil; a page held in memory cannot fail to read.
func (c *Cursor[E]) Err() error {
	return nil
}
