package badgerdb

import (
	"bytes"
	"errors"

	"github.com/dgraph-io/badger/v2"

	provernetdb "github.com/celer-network/go-provernet/db"
)

var errInvalidIterator = errors.New("invalid iterator")

// Iterator walks keys in [start, end), or in reverse when start > end.
type Iterator struct {
	start   []byte
	end     []byte
	reverse bool
	txn     *badger.Txn
	iter    *badger.Iterator
}

func (db *DB) Iterator(start, end []byte) provernetdb.Iterator {
	txn := db.db.NewTransaction(false)
	reverse := end != nil && bytes.Compare(start, end) == 1

	opt := badger.DefaultIteratorOptions
	opt.PrefetchValues = false
	opt.Reverse = reverse

	badgerIter := txn.NewIterator(opt)
	badgerIter.Seek(start)

	return &Iterator{
		start:   start,
		end:     end,
		reverse: reverse,
		txn:     txn,
		iter:    badgerIter,
	}
}

func (iter *Iterator) Next() error {
	if !iter.Valid() {
		return errInvalidIterator
	}
	iter.iter.Next()
	return nil
}

func (iter *Iterator) Valid() bool {
	if !iter.iter.Valid() {
		return false
	}
	if iter.end != nil {
		key := iter.iter.Item().Key()
		if !iter.reverse && bytes.Compare(iter.end, key) <= 0 {
			return false
		}
		if iter.reverse && bytes.Compare(key, iter.end) <= 0 {
			return false
		}
	}
	return true
}

func (iter *Iterator) Key() ([]byte, error) {
	if !iter.Valid() {
		return nil, errInvalidIterator
	}
	return iter.iter.Item().KeyCopy(nil), nil
}

func (iter *Iterator) Value() ([]byte, error) {
	if !iter.Valid() {
		return nil, errInvalidIterator
	}
	return iter.iter.Item().ValueCopy(nil)
}

// Close releases the underlying read transaction.
func (iter *Iterator) Close() {
	iter.iter.Close()
	iter.txn.Discard()
}
