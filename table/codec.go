package table

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/lanrat/pagesort/page"
)

// ToBytes serializes a record for persistent storage.
// It should produce deterministic output that FromBytes can read back.
type ToBytes[E any] func(E) ([]byte, error)

// FromBytes deserializes a record written by the matching ToBytes.
// The data slice is only valid for the duration of the call and must not be retained.
type FromBytes[E any] func([]byte) (E, error)

// Codec pairs the two halves of a record serialization.
type Codec[E any] struct {
	ToBytes   ToBytes[E]
	FromBytes FromBytes[E]
}

// Int64Codec encodes int64 records as varints.
func Int64Codec() Codec[int64] {
	return Codec[int64]{
		ToBytes: func(i int64) ([]byte, error) {
			return binary.AppendVarint(nil, i), nil
		},
		FromBytes: func(b []byte) (int64, error) {
			i, n := binary.Varint(b)
			if n <= 0 {
				return 0, errors.Newf("bad varint of %d bytes", len(b))
			}
			return i, nil
		},
	}
}

// StringCodec stores strings as their raw bytes.
func StringCodec() Codec[string] {
	return Codec[string]{
		ToBytes: func(s string) ([]byte, error) {
			return []byte(s), nil
		},
		FromBytes: func(b []byte) (string, error) {
			return string(b), nil
		},
	}
}

// GobCodec encodes any gob-compatible record type, reusing buffers through a sync.Pool.
func GobCodec[E any]() Codec[E] {
	bufferPool := &sync.Pool{
		New: func() any {
			return &bytes.Buffer{}
		},
	}
	return Codec[E]{
		ToBytes: func(rec E) ([]byte, error) {
			buf := bufferPool.Get().(*bytes.Buffer)
			buf.Reset()
			defer bufferPool.Put(buf)

			if err := gob.NewEncoder(buf).Encode(rec); err != nil {
				return nil, err
			}
			// copy, the buffer goes back to the pool
			result := make([]byte, buf.Len())
			copy(result, buf.Bytes())
			return result, nil
		},
		FromBytes: func(d []byte) (E, error) {
			var rec E
			err := gob.NewDecoder(bytes.NewReader(d)).Decode(&rec)
			return rec, err
		},
	}
}

// pageReader is what decodePage needs from its input.
type pageReader interface {
	io.Reader
	io.ByteReader
}

// encodePage writes recs as a record count followed by length prefixed records.
func encodePage[E any](w io.Writer, recs []E, codec Codec[E], scratch []byte) error {
	n := binary.PutUvarint(scratch, uint64(len(recs)))
	if _, err := w.Write(scratch[:n]); err != nil {
		return errors.Wrap(err, "write page header")
	}
	for _, rec := range recs {
		raw, err := codec.ToBytes(rec)
		if err != nil {
			return NewSerializationError(err, "encodePage")
		}
		n := binary.PutUvarint(scratch, uint64(len(raw)))
		if _, err := w.Write(scratch[:n]); err != nil {
			return errors.Wrap(err, "write size header")
		}
		if _, err := w.Write(raw); err != nil {
			return errors.Wrap(err, "write data")
		}
	}
	return nil
}

// decodePage replaces the contents of dst with a page written by encodePage.
// buf is scratch space for record bytes; the possibly grown buffer is returned.
func decodePage[E any](r pageReader, dst *page.Page[E], codec Codec[E], buf []byte) ([]byte, error) {
	count, err := binary.ReadUvarint(r)
	if err != nil {
		return buf, errors.Wrap(err, "read page header")
	}
	if count > uint64(dst.Cap()) {
		return buf, errors.Wrapf(ErrPageOverflow, "%d records, buffer holds %d", count, dst.Cap())
	}
	dst.Reset()
	for i := uint64(0); i < count; i++ {
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return buf, errors.Wrap(err, "read size header")
		}
		if uint64(cap(buf)) < n {
			buf = make([]byte, n)
		}
		buf = buf[:n]
		if _, err := io.ReadFull(r, buf); err != nil {
			return buf, errors.Wrap(err, "read data")
		}
		rec, err := codec.FromBytes(buf)
		if err != nil {
			return buf, NewDeserializationError(err, len(buf), "decodePage")
		}
		dst.Append(rec)
	}
	return buf, nil
}
