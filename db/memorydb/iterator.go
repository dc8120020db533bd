package memorydb

import (
	"bytes"
	"errors"
	"sort"

	provernetdb "github.com/celer-network/go-provernet/db"
)

var errInvalidIterator = errors.New("invalid iterator")

// Iterator walks a snapshot of the keys taken when it was created. Values
// are read live.
type Iterator struct {
	keys   []string
	cursor int
	db     *DB
}

func inRange(key []byte, lo []byte, hi []byte) bool {
	if lo != nil && bytes.Compare(key, lo) < 0 {
		return false
	}
	return hi == nil || bytes.Compare(key, hi) < 0
}

func (db *DB) Iterator(start []byte, end []byte) provernetdb.Iterator {
	db.lock.Lock()
	defer db.lock.Unlock()

	// Reverse walks (end, start].
	reverse := end != nil && bytes.Compare(start, end) > 0

	keys := make([]string, 0)
	for key := range db.db {
		k := []byte(key)
		if reverse {
			if bytes.Compare(k, end) > 0 && bytes.Compare(k, start) <= 0 {
				keys = append(keys, key)
			}
		} else if inRange(k, start, end) {
			keys = append(keys, key)
		}
	}
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	} else {
		sort.Strings(keys)
	}
	return &Iterator{keys: keys, db: db}
}

func (iter *Iterator) Next() error {
	if !iter.Valid() {
		return errInvalidIterator
	}
	iter.cursor++
	return nil
}

func (iter *Iterator) Valid() bool {
	return iter.cursor < len(iter.keys)
}

func (iter *Iterator) Key() ([]byte, error) {
	if !iter.Valid() {
		return nil, errInvalidIterator
	}
	return []byte(iter.keys[iter.cursor]), nil
}

func (iter *Iterator) Value() ([]byte, error) {
	if !iter.Valid() {
		return nil, errInvalidIterator
	}
	value, _, err := iter.db.Get(nil, []byte(iter.keys[iter.cursor]))
	return value, err
}

func (iter *Iterator) Close() {
	iter.keys = nil
}
