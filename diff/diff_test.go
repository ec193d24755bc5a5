package diff_test

import (
	"cmp"
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/diff"
	"github.com/lanrat/pagesort/page"
	"github.com/lanrat/pagesort/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ignore(diff.Delta, int) error { return nil }

func newTable(t *testing.T, store *table.MemoryStore[int], name string, recs ...int) table.Table[int] {
	t.Helper()
	tbl, err := store.Create(name, 4)
	require.NoError(t, err)
	require.NoError(t, table.AppendAll(tbl, recs...))
	require.NoError(t, tbl.Flush())
	return tbl
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func TestNil(t *testing.T) {
	r, err := diff.Sources[int](context.Background(), nil, nil, cmp.Compare[int], ignore)
	require.Error(t, err)
	assert.Zero(t, r.ExtraA+r.ExtraB+r.TotalA+r.TotalB+r.Common)

	_, err = diff.Tables[int](context.Background(), nil, nil, cmp.Compare[int], ignore)
	require.Error(t, err)
}

func Test1A(t *testing.T) {
	var got []diff.Delta
	r, err := diff.Sources(context.Background(), page.Of(7).Cursor(), page.Of[int]().Cursor(), cmp.Compare[int],
		func(d diff.Delta, rec int) error {
			assert.Equal(t, 7, rec)
			got = append(got, d)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []diff.Delta{diff.OLD}, got)
	assert.Equal(t, diff.Result{ExtraA: 1, TotalA: 1}, r)
}

func Test1B(t *testing.T) {
	r, err := diff.Sources(context.Background(), page.Of[int]().Cursor(), page.Of(7).Cursor(), cmp.Compare[int], ignore)
	require.NoError(t, err)
	assert.Equal(t, diff.Result{ExtraB: 1, TotalB: 1}, r)
	assert.False(t, r.Same())
}

func TestCommon(t *testing.T) {
	store := table.NewMemoryStore[int]()
	a := newTable(t, store, "a", seq(0, 30)...)
	b := newTable(t, store, "b", seq(0, 30)...)
	r, err := diff.Tables(context.Background(), a, b, cmp.Compare[int], func(d diff.Delta, rec int) error {
		t.Fatalf("common resultF called for %s %d", d, rec)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, diff.Result{TotalA: 30, TotalB: 30, Common: 30}, r)
	assert.True(t, r.Same())
}

func TestMix(t *testing.T) {
	store := table.NewMemoryStore[int]()
	var as, bs []int
	as = append(as, seq(0, 30)...)
	bs = append(bs, seq(0, 30)...)
	for i := 30; i < 60; i++ {
		if i%2 == 0 {
			as = append(as, i)
		} else {
			bs = append(bs, i)
		}
	}
	as = append(as, seq(60, 90)...)
	bs = append(bs, seq(60, 90)...)

	var extraA, extraB []int
	r, err := diff.Tables(context.Background(), newTable(t, store, "a", as...), newTable(t, store, "b", bs...), cmp.Compare[int],
		func(d diff.Delta, rec int) error {
			if d == diff.OLD {
				extraA = append(extraA, rec)
			} else {
				extraB = append(extraB, rec)
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, diff.Result{ExtraA: 15, ExtraB: 15, TotalA: 75, TotalB: 75, Common: 60}, r)
	assert.Len(t, extraA, 15)
	assert.Equal(t, 30, extraA[0])
	assert.Equal(t, 31, extraB[0])
}

func TestDuplicates(t *testing.T) {
	store := table.NewMemoryStore[int]()
	a := newTable(t, store, "a", 1, 1, 1, 2)
	b := newTable(t, store, "b", 1, 2, 2)
	r, err := diff.Tables(context.Background(), a, b, cmp.Compare[int], ignore)
	require.NoError(t, err)
	assert.Equal(t, diff.Result{ExtraA: 2, ExtraB: 1, TotalA: 4, TotalB: 3, Common: 2}, r)
}

func TestResultFuncError(t *testing.T) {
	store := table.NewMemoryStore[int]()
	testErr := errors.New("random error")
	a := newTable(t, store, "a", 1, 2, 3)
	b := newTable(t, store, "b", 2, 3, 4)
	r, err := diff.Tables(context.Background(), a, b, cmp.Compare[int], func(diff.Delta, int) error {
		return testErr
	})
	require.ErrorIs(t, err, testErr)
	assert.Equal(t, uint64(1), r.ExtraA)
}

type failingSource struct {
	n   int
	err error
}

func (f *failingSource) Advance() bool {
	if f.n == 0 {
		return false
	}
	f.n--
	return true
}

func (f *failingSource) Current() (int, error) { return f.n, nil }
func (f *failingSource) Err() error            { return f.err }

func TestSourceError(t *testing.T) {
	testErr := fmt.Errorf("read failed")
	_, err := diff.Sources[int](context.Background(), page.Of(0, 1, 2).Cursor(), &failingSource{n: 0, err: testErr}, cmp.Compare[int], ignore)
	require.ErrorIs(t, err, testErr)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := diff.Sources(ctx, page.Of(1).Cursor(), page.Of(1).Cursor(), cmp.Compare[int], ignore)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDeltaString(t *testing.T) {
	assert.Equal(t, "<", diff.OLD.String())
	assert.Equal(t, ">", diff.NEW.String())
	assert.Equal(t, "?", diff.Delta(9).String())
}
