package table

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/lanrat/pagesort/page"
)

// Key layout, per table:
//
//	name 0x00 0x00                 -> uvarint page capacity
//	name 0x00 0x01 <uint32 BE i>   -> encoded page i
//
// Names may not contain NUL, so a table's keys are exactly [name 0x00, name 0x01).
const (
	keySep    byte = 0x00
	metaTag   byte = 0x00
	pageTag   byte = 0x01
	rangeStop byte = 0x01
)

// PebbleStore keeps tables as key ranges of a pebble database.
// It is safe for concurrent use; the tables it returns are not.
type PebbleStore[E any] struct {
	db     *pebble.DB
	codec  Codec[E]
	ownsDB bool
	mu     sync.Mutex
	open   map[string]*pebbleTable[E]
}

// pebbleTable writes one key per sealed page.
type pebbleTable[E any] struct {
	paged[E]
	store   *PebbleStore[E]
	buf     bytes.Buffer
	scratch []byte
	recBuf  []byte
}

// PebbleOptions configures OpenPebbleStore.
type PebbleOptions struct {
	Path         string
	CacheSize    int64
	MaxOpenFiles int
}

// NewPebbleStore wraps an open database. The caller keeps ownership of db.
func NewPebbleStore[E any](db *pebble.DB, codec Codec[E]) *PebbleStore[E] {
	return &PebbleStore[E]{
		db:    db,
		codec: codec,
		open:  make(map[string]*pebbleTable[E]),
	}
}

// OpenPebbleStore opens (or creates) a database at opts.Path. Close releases it.
func OpenPebbleStore[E any](opts PebbleOptions, codec Codec[E]) (*PebbleStore[E], error) {
	pebbleOpts := &pebble.Options{
		MaxOpenFiles: opts.MaxOpenFiles,
	}
	if opts.CacheSize > 0 {
		cache := pebble.NewCache(opts.CacheSize)
		defer cache.Unref()
		pebbleOpts.Cache = cache
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", filepath.Dir(opts.Path))
	}
	db, err := pebble.Open(opts.Path, pebbleOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble store %s", opts.Path)
	}
	s := NewPebbleStore(db, codec)
	s.ownsDB = true
	return s, nil
}

// Close closes the database if the store opened it.
func (s *PebbleStore[E]) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func metaKey(name string) []byte {
	return append([]byte(name), keySep, metaTag)
}

func pageKey(name string, i int) []byte {
	k := append([]byte(name), keySep, pageTag)
	return binary.BigEndian.AppendUint32(k, uint32(i))
}

// tableBounds returns the key range holding every key of the named table.
func tableBounds(name string) (lower, upper []byte) {
	return append([]byte(name), keySep), append([]byte(name), rangeStop)
}

// Create writes the table metadata and returns an empty table.
func (s *PebbleStore[E]) Create(name string, pageCapacity int) (Table[E], error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if err := validCapacity(pageCapacity); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	exists, err := s.hasMeta(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Wrapf(ErrExists, "%q", name)
	}
	meta := binary.AppendUvarint(nil, uint64(pageCapacity))
	if err := s.db.Set(metaKey(name), meta, pebble.NoSync); err != nil {
		return nil, errors.Wrapf(err, "create table %s", name)
	}
	t := s.newTable(name, pageCapacity, 0)
	s.open[name] = t
	return t, nil
}

func (s *PebbleStore[E]) newTable(name string, pageCapacity, sealed int) *pebbleTable[E] {
	t := &pebbleTable[E]{
		store:   s,
		scratch: make([]byte, binary.MaxVarintLen64),
	}
	t.name = name
	t.capacity = pageCapacity
	t.sealed = sealed
	t.seal = t.sealPage
	return t
}

func (s *PebbleStore[E]) hasMeta(name string) (bool, error) {
	_, closer, err := s.db.Get(metaKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "lookup table %s", name)
	}
	return true, closer.Close()
}

// Lookup returns the table handle, rebuilding it from the database if this
// store has not opened it yet.
func (s *PebbleStore[E]) Lookup(name string) (Table[E], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.open[name]; ok {
		return t, nil
	}

	meta, closer, err := s.db.Get(metaKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lookup table %s", name)
	}
	capacity, n := binary.Uvarint(meta)
	closer.Close()
	if n <= 0 {
		return nil, errors.Newf("table %s: corrupt metadata", name)
	}

	sealed, err := s.countPages(name)
	if err != nil {
		return nil, err
	}
	t := s.newTable(name, int(capacity), sealed)
	s.open[name] = t
	return t, nil
}

// countPages finds the highest page index of a table.
func (s *PebbleStore[E]) countPages(name string) (int, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: append([]byte(name), keySep, pageTag),
		UpperBound: append([]byte(name), keySep, pageTag+1),
	})
	if err != nil {
		return 0, errors.Wrapf(err, "scan table %s", name)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	key := iter.Key()
	if len(key) < 4 {
		return 0, errors.Newf("table %s: corrupt page key %x", name, key)
	}
	return int(binary.BigEndian.Uint32(key[len(key)-4:])) + 1, nil
}

// Names lists every table in the database, jumping over each table's pages.
func (s *PebbleStore[E]) Names() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "scan tables")
	}
	defer iter.Close()

	var names []string
	for valid := iter.First(); valid; {
		key := iter.Key()
		sep := bytes.IndexByte(key, keySep)
		if sep < 0 {
			// not one of ours
			valid = iter.Next()
			continue
		}
		name := string(key[:sep])
		names = append(names, name)
		_, upper := tableBounds(name)
		valid = iter.SeekGE(upper)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "scan tables")
	}
	slices.Sort(names)
	return names, nil
}

func (t *pebbleTable[E]) sealPage(recs []E) error {
	t.buf.Reset()
	if err := encodePage(&t.buf, recs, t.store.codec, t.scratch); err != nil {
		return errors.Wrapf(err, "table %s page %d", t.name, t.sealed)
	}
	if err := t.store.db.Set(pageKey(t.name, t.sealed), t.buf.Bytes(), pebble.NoSync); err != nil {
		return errors.Wrapf(err, "table %s page %d", t.name, t.sealed)
	}
	return nil
}

// ReadPage decodes page i into dst.
func (t *pebbleTable[E]) ReadPage(i int, dst *page.Page[E]) error {
	tail, err := t.checkRead(i)
	if err != nil {
		return err
	}
	if tail {
		return fillPage(dst, t.tail)
	}

	value, closer, err := t.store.db.Get(pageKey(t.name, i))
	if err != nil {
		return errors.Wrapf(err, "table %s page %d", t.name, i)
	}
	defer closer.Close()
	t.recBuf, err = decodePage(bytes.NewReader(value), dst, t.store.codec, t.recBuf)
	if err != nil {
		return errors.Wrapf(err, "table %s page %d", t.name, i)
	}
	return nil
}

// Drop deletes every key of the table.
func (t *pebbleTable[E]) Drop() error {
	if t.dropped {
		return errors.Wrapf(ErrDropped, "drop %s", t.name)
	}
	t.dropped = true
	t.tail = nil

	s := t.store
	s.mu.Lock()
	delete(s.open, t.name)
	s.mu.Unlock()

	lower, upper := tableBounds(t.name)
	if err := s.db.DeleteRange(lower, upper, pebble.NoSync); err != nil {
		return errors.Wrapf(err, "drop table %s", t.name)
	}
	return nil
}
