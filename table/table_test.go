package table_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/lanrat/pagesort/page"
	"github.com/lanrat/pagesort/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeCase struct {
	name string
	open func(t *testing.T) table.Store[int64]
}

func openMemoryStore(t *testing.T) table.Store[int64] {
	return table.NewMemoryStore[int64]()
}

func openFileStore(t *testing.T) table.Store[int64] {
	s, err := table.NewFileStore(t.TempDir(), table.Int64Codec())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func openPebbleStore(t *testing.T) table.Store[int64] {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return table.NewPebbleStore(db, table.Int64Codec())
}

var stores = []storeCase{
	{"memory", openMemoryStore},
	{"file", openFileStore},
	{"pebble", openPebbleStore},
}

func forEachStore(t *testing.T, f func(t *testing.T, s table.Store[int64])) {
	for _, sc := range stores {
		t.Run(sc.name, func(t *testing.T) {
			f(t, sc.open(t))
		})
	}
}

func TestAppendAndReadPages(t *testing.T) {
	forEachStore(t, func(t *testing.T, s table.Store[int64]) {
		tbl, err := s.Create("t", 3)
		require.NoError(t, err)
		assert.Equal(t, "t", tbl.Name())
		assert.Equal(t, 3, tbl.PageCapacity())
		assert.Equal(t, 0, tbl.PageCount())

		require.NoError(t, table.AppendAll(tbl, 1, 2, 3, 4, 5, 6, 7))
		// two sealed pages plus a partial tail
		assert.Equal(t, 3, tbl.PageCount())

		buf := page.New[int64](3)
		require.NoError(t, tbl.ReadPage(1, buf))
		assert.Equal(t, []int64{4, 5, 6}, buf.Records())
		require.NoError(t, tbl.ReadPage(2, buf))
		assert.Equal(t, []int64{7}, buf.Records())
		require.NoError(t, tbl.ReadPage(0, buf))
		assert.Equal(t, []int64{1, 2, 3}, buf.Records())

		require.NoError(t, tbl.Flush())
		assert.Equal(t, 3, tbl.PageCount())
		require.NoError(t, tbl.Append(8))
		assert.Equal(t, 4, tbl.PageCount(), "append after flush starts a new page")

		recs, err := table.Records(tbl)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8}, recs)
	})
}

func TestReadPageErrors(t *testing.T) {
	forEachStore(t, func(t *testing.T, s table.Store[int64]) {
		tbl, err := s.Create("t", 4)
		require.NoError(t, err)
		require.NoError(t, table.AppendAll(tbl, 1, 2, 3, 4))

		err = tbl.ReadPage(1, page.New[int64](4))
		assert.ErrorIs(t, err, table.ErrPageIndex)
		err = tbl.ReadPage(-1, page.New[int64](4))
		assert.ErrorIs(t, err, table.ErrPageIndex)

		err = tbl.ReadPage(0, page.New[int64](2))
		assert.ErrorIs(t, err, table.ErrPageOverflow)
	})
}

func TestCreateCollision(t *testing.T) {
	forEachStore(t, func(t *testing.T, s table.Store[int64]) {
		_, err := s.Create("dup", 2)
		require.NoError(t, err)
		_, err = s.Create("dup", 2)
		assert.ErrorIs(t, err, table.ErrExists)

		_, err = s.Create("", 2)
		assert.ErrorIs(t, err, table.ErrInvalidName)
		_, err = s.Create("bad\x00name", 2)
		assert.ErrorIs(t, err, table.ErrInvalidName)
		_, err = s.Create("zero", 0)
		assert.Error(t, err)
	})
}

func TestDropRemovesTable(t *testing.T) {
	forEachStore(t, func(t *testing.T, s table.Store[int64]) {
		a, err := s.Create("a", 2)
		require.NoError(t, err)
		b, err := s.Create("b", 2)
		require.NoError(t, err)
		require.NoError(t, table.AppendAll(a, 1, 2, 3))
		require.NoError(t, table.AppendAll(b, 4, 5, 6))

		names, err := s.Names()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, names)

		require.NoError(t, a.Drop())
		names, err = s.Names()
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, names)

		_, err = s.Lookup("a")
		assert.ErrorIs(t, err, table.ErrNotFound)
		assert.ErrorIs(t, a.Append(1), table.ErrDropped)
		assert.ErrorIs(t, a.Drop(), table.ErrDropped)

		// the other table is intact
		recs, err := table.Records(b)
		require.NoError(t, err)
		assert.Equal(t, []int64{4, 5, 6}, recs)

		// the name can be reused
		_, err = s.Create("a", 2)
		assert.NoError(t, err)
	})
}

func TestCursor(t *testing.T) {
	forEachStore(t, func(t *testing.T, s table.Store[int64]) {
		tbl, err := s.Create("t", 2)
		require.NoError(t, err)
		require.NoError(t, table.AppendAll(tbl, 9, 8, 7, 6, 5))

		c := table.NewCursor(tbl, page.New[int64](2))
		_, err = c.Current()
		assert.ErrorIs(t, err, page.ErrNotPositioned)

		var got []int64
		for c.Advance() {
			v, err := c.Current()
			require.NoError(t, err)
			got = append(got, v)
		}
		require.NoError(t, c.Err())
		assert.Equal(t, []int64{9, 8, 7, 6, 5}, got)
		assert.False(t, c.Advance())
		_, err = c.Current()
		assert.ErrorIs(t, err, page.ErrNotPositioned)
	})
}

func TestCursorEmptyTable(t *testing.T) {
	forEachStore(t, func(t *testing.T, s table.Store[int64]) {
		tbl, err := s.Create("empty", 2)
		require.NoError(t, err)
		c := table.NewCursor(tbl, page.New[int64](2))
		assert.False(t, c.Advance())
		assert.NoError(t, c.Err())
	})
}

func TestCursorReadError(t *testing.T) {
	s := table.NewMemoryStore[int64]()
	tbl, err := s.Create("t", 4)
	require.NoError(t, err)
	require.NoError(t, table.AppendAll(tbl, 1, 2, 3, 4, 5))

	// buffer too small for the stored pages
	c := table.NewCursor(tbl, page.New[int64](1))
	assert.False(t, c.Advance())
	assert.ErrorIs(t, c.Err(), table.ErrPageOverflow)
}

func TestFileStoreRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := table.NewFileStore(dir, table.StringCodec())
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir())

	tbl, err := s.Create("words", 2)
	require.NoError(t, err)
	require.NoError(t, table.AppendAll(tbl, "b", "a", "c"))
	require.NoError(t, tbl.Flush())

	_, err = os.Stat(s.Path("words"))
	require.NoError(t, err)

	_, err = s.Create("../escape", 2)
	assert.ErrorIs(t, err, table.ErrInvalidName)

	require.NoError(t, tbl.Drop())
	_, err = os.Stat(s.Path("words"))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStoreRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taken.pages"), []byte("x"), 0o600))
	s, err := table.NewFileStore(dir, table.Int64Codec())
	require.NoError(t, err)
	_, err = s.Create("taken", 2)
	assert.ErrorIs(t, err, table.ErrExists)
}

func TestPebbleStoreLookupRebuildsTable(t *testing.T) {
	dir := t.TempDir()
	opts := table.PebbleOptions{Path: filepath.Join(dir, "db"), CacheSize: 1 << 20}

	s, err := table.OpenPebbleStore(opts, table.Int64Codec())
	require.NoError(t, err)
	tbl, err := s.Create("persisted", 2)
	require.NoError(t, err)
	require.NoError(t, table.AppendAll(tbl, 3, 1, 4, 1, 5))
	require.NoError(t, tbl.Flush())
	require.NoError(t, s.Close())

	s, err = table.OpenPebbleStore(opts, table.Int64Codec())
	require.NoError(t, err)
	defer s.Close()

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"persisted"}, names)

	tbl, err = s.Lookup("persisted")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.PageCapacity())
	assert.Equal(t, 3, tbl.PageCount())
	recs, err := table.Records(tbl)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 4, 1, 5}, recs)
}

type person struct {
	Name string
	Age  int
}

func TestGobCodec(t *testing.T) {
	s, err := table.NewFileStore(t.TempDir(), table.GobCodec[person]())
	require.NoError(t, err)
	defer s.Close()

	tbl, err := s.Create("people", 2)
	require.NoError(t, err)
	in := []person{{"Alice", 30}, {"Bob", 25}, {"Charlie", 35}}
	require.NoError(t, table.AppendAll(tbl, in...))
	require.NoError(t, tbl.Flush())

	out, err := table.Records(tbl)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCodecErrors(t *testing.T) {
	failing := table.Codec[int64]{
		ToBytes: func(int64) ([]byte, error) {
			return nil, assert.AnError
		},
		FromBytes: table.Int64Codec().FromBytes,
	}
	s, err := table.NewFileStore(t.TempDir(), failing)
	require.NoError(t, err)
	defer s.Close()

	tbl, err := s.Create("t", 1)
	require.NoError(t, err)
	err = tbl.Append(1)
	var serr *table.SerializationError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTempDir(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, dir, table.TempDir(dir))
	assert.NotEmpty(t, table.TempDir(""))
}
