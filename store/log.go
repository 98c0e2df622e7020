// Package store implements the persistent log: an ordered key-value
// store, keyed by fixed-width big-endian height, holding the
// codec-encoded bytes of solidified BlockAppended records (spec.md
// §4.1). It is backed by github.com/cockroachdb/pebble, whose
// byte-ordered iteration and atomic batches map directly onto the
// spec's get/put/scan_from/delete_range contract.
package store

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/caco26i/dcc/errs"
	"github.com/caco26i/dcc/updates"
)

const keyLen = 4

// Log is the persistent, height-ordered block store. No code outside
// this package reads or writes the underlying db handle (spec.md §5).
type Log struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a Pebble-backed Log at dir.
func Open(dir string) (*Log, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening pebble store")
	}
	return &Log{db: db}, nil
}

// Close closes the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

func encodeKey(h updates.Height) []byte {
	buf := make([]byte, keyLen)
	binary.BigEndian.PutUint32(buf, uint32(h))
	return buf
}

func decodeKey(k []byte) updates.Height {
	return updates.Height(binary.BigEndian.Uint32(k))
}

// Get performs a point lookup at height h. The second return value is
// false if no block is stored at h.
func (l *Log) Get(h updates.Height) ([]byte, bool, error) {
	v, closer, err := l.db.Get(encodeKey(h))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(errs.Storage(err), "reading height %d", h)
	}
	out := make([]byte, len(v))
	copy(out, v)
	if cerr := closer.Close(); cerr != nil {
		return nil, false, errors.Wrapf(errs.Storage(cerr), "closing reader for height %d", h)
	}
	return out, true, nil
}

// Put durably overwrites-or-inserts the encoded bytes at height h.
func (l *Log) Put(h updates.Height, value []byte) error {
	err := l.db.Set(encodeKey(h), value, pebble.Sync)
	return errors.Wrapf(errs.Storage(err), "writing height %d", h)
}

// DeleteRange durably deletes every height in [fromIncl, toIncl].
func (l *Log) DeleteRange(fromIncl, toIncl updates.Height) error {
	if fromIncl > toIncl {
		return nil
	}
	// pebble.DeleteRange's end bound is exclusive; toIncl+1 re-encodes
	// to the key immediately after the last height we want removed.
	end := encodeKey(toIncl)
	end = incrementKey(end)
	err := l.db.DeleteRange(encodeKey(fromIncl), end, pebble.Sync)
	return errors.Wrapf(errs.Storage(err), "deleting heights %d..%d", fromIncl, toIncl)
}

func incrementKey(k []byte) []byte {
	out := make([]byte, len(k))
	copy(out, k)
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			break
		}
	}
	return out
}

// MaxHeight returns the greatest persisted height, or ok=false if the
// log is empty.
func (l *Log) MaxHeight() (h updates.Height, ok bool, err error) {
	iter, err := l.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, false, errors.Wrap(errs.Storage(err), "opening iterator")
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, false, nil
	}
	return decodeKey(iter.Key()), true, nil
}

// Iterator is a closeable forward scan over the log, starting at a
// given height. It must be closed by the caller, and must not be held
// open across a blocking operation for longer than a single batch
// (spec.md §4.1).
type Iterator struct {
	it *pebble.Iterator
}

// ScanFrom opens a forward iterator positioned at the first persisted
// height >= h.
func (l *Log) ScanFrom(h updates.Height) (*Iterator, error) {
	it, err := l.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, errors.Wrap(errs.Storage(err), "opening iterator")
	}
	it.SeekGE(encodeKey(h))
	return &Iterator{it: it}, nil
}

// Next reports whether a record is available at the iterator's current
// position, without advancing it. Callers read Height/Value and then
// call Advance to move past the current record before the next Next
// check.
func (it *Iterator) Next() bool {
	return it.it.Valid()
}

// Height returns the height of the current record. Only valid after a
// successful Next.
func (it *Iterator) Height() updates.Height {
	return decodeKey(it.it.Key())
}

// Value returns the encoded bytes of the current record, copied out of
// the iterator's internal buffer. Only valid after a successful Next.
func (it *Iterator) Value() []byte {
	v := it.it.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

// Advance moves the iterator to the next record. Call after consuming
// the current record via Height/Value, before the next Next check.
func (it *Iterator) Advance() {
	it.it.Next()
}

// Close releases the iterator's resources.
func (it *Iterator) Close() error {
	return it.it.Close()
}
