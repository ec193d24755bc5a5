package table

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/page"
)

const (
	// file IO buffer size for each table
	fileBufferSize = 1 << 16 // 64k
	// fileSuffix is appended to the table name to form the file name
	fileSuffix = ".pages"
)

// FileStore keeps every table in its own file under a directory. Each sealed
// page is a section of the file; page boundaries are kept in memory, so a
// FileStore only finds the tables it created itself.
// It is safe for concurrent use; the tables it returns are not.
type FileStore[E any] struct {
	dir    string
	codec  Codec[E]
	mu     sync.Mutex
	tables map[string]*fileTable[E]
}

// fileTable writes pages sequentially and reads them back through section readers.
type fileTable[E any] struct {
	paged[E]
	store     *FileStore[E]
	file      *os.File
	bufWriter *bufio.Writer
	reader    *bufio.Reader
	sections  []int64 // end offset of every sealed page
	scratch   []byte
	recBuf    []byte
}

// NewFileStore returns a store creating files in dir. An empty dir picks a
// disk-backed temporary directory (see TempDir). The directory is created if needed.
func NewFileStore[E any](dir string, codec Codec[E]) (*FileStore[E], error) {
	dir = TempDir(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create table directory %s", dir)
	}
	return &FileStore[E]{
		dir:    dir,
		codec:  codec,
		tables: make(map[string]*fileTable[E]),
	}, nil
}

// Dir returns the directory holding the table files.
func (s *FileStore[E]) Dir() string {
	return s.dir
}

// Path returns the file a table with the given name is stored in.
func (s *FileStore[E]) Path(name string) string {
	return filepath.Join(s.dir, name+fileSuffix)
}

// Create makes a new empty table file. Existing files are never overwritten.
func (s *FileStore[E]) Create(name string, pageCapacity int) (Table[E], error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if filepath.Base(name) != name {
		return nil, errors.Wrapf(ErrInvalidName, "%q contains a path separator", name)
	}
	if err := validCapacity(pageCapacity); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return nil, errors.Wrapf(ErrExists, "%q", name)
	}
	f, err := os.OpenFile(s.Path(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrapf(ErrExists, "%q", name)
		}
		return nil, errors.Wrapf(err, "create table %s", name)
	}
	t := &fileTable[E]{
		store:     s,
		file:      f,
		bufWriter: bufio.NewWriterSize(f, fileBufferSize),
		sections:  make([]int64, 0, 10),
		scratch:   make([]byte, binary.MaxVarintLen64),
	}
	t.name = name
	t.capacity = pageCapacity
	t.seal = t.sealPage
	s.tables[name] = t
	return t, nil
}

// Lookup returns a table created by this store that has not been dropped.
func (s *FileStore[E]) Lookup(name string) (Table[E], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	return t, nil
}

// Names lists the live tables of this store.
func (s *FileStore[E]) Names() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Close drops every table still open in the store.
func (s *FileStore[E]) Close() error {
	s.mu.Lock()
	tables := make([]*fileTable[E], 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.Unlock()

	var err error
	for _, t := range tables {
		err = errors.CombineErrors(err, t.Drop())
	}
	return err
}

func (s *FileStore[E]) remove(name string) {
	s.mu.Lock()
	delete(s.tables, name)
	s.mu.Unlock()
}

// sealPage writes recs as the next section and flushes it so section readers can see it.
func (t *fileTable[E]) sealPage(recs []E) error {
	if err := encodePage(t.bufWriter, recs, t.store.codec, t.scratch); err != nil {
		return errors.Wrapf(err, "table %s page %d", t.name, t.sealed)
	}
	if err := t.bufWriter.Flush(); err != nil {
		return errors.Wrapf(err, "table %s page %d", t.name, t.sealed)
	}
	pos, err := t.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrapf(err, "table %s page %d", t.name, t.sealed)
	}
	t.sections = append(t.sections, pos)
	return nil
}

// ReadPage decodes page i into dst.
func (t *fileTable[E]) ReadPage(i int, dst *page.Page[E]) error {
	tail, err := t.checkRead(i)
	if err != nil {
		return err
	}
	if tail {
		return fillPage(dst, t.tail)
	}

	var offset int64
	if i > 0 {
		offset = t.sections[i-1]
	}
	section := io.NewSectionReader(t.file, offset, t.sections[i]-offset)
	if t.reader == nil {
		t.reader = bufio.NewReaderSize(section, fileBufferSize)
	} else {
		t.reader.Reset(section)
	}
	t.recBuf, err = decodePage(t.reader, dst, t.store.codec, t.recBuf)
	if err != nil {
		return errors.Wrapf(err, "table %s page %d", t.name, i)
	}
	return nil
}

// Drop closes and removes the table file.
func (t *fileTable[E]) Drop() error {
	if t.dropped {
		return errors.Wrapf(ErrDropped, "drop %s", t.name)
	}
	t.dropped = true
	t.store.remove(t.name)
	t.sections = nil
	t.bufWriter = nil
	t.reader = nil
	t.tail = nil

	name := t.file.Name()
	err := t.file.Close()
	if rmErr := os.Remove(name); rmErr != nil && !os.IsNotExist(rmErr) {
		err = errors.CombineErrors(err, rmErr)
	}
	return errors.Wrapf(err, "drop table %s", t.name)
}
