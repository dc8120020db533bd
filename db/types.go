package db

// DB is a namespaced key-value store. Ledger state, the off-ledger balance
// trees and the genesis marker all live in one.
type DB interface {
	Type() string
	Set(namespace []byte, key []byte, value []byte) error
	Delete(namespace []byte, key []byte) error
	Get(namespace []byte, key []byte) (value []byte, exists bool, err error)
	Exist(namespace []byte, key []byte) (bool, error)
	// Iterator walks raw keys (namespace|key) in [start, end), or in
	// descending order when start > end.
	Iterator(start []byte, end []byte) Iterator
	NewTx() Transaction
	NewBulk() Bulk
	Close() error
}

// Transaction applies its writes all at once on Commit. storage.Store commits
// one per atomic ledger call.
type Transaction interface {
	Set(namespace []byte, key []byte, value []byte) error
	Delete(namespace []byte, key []byte) error
	Commit() error
	Discard()
}

// Bulk is for large write sets. It may commit in several pieces, so it is
// not atomic.
type Bulk interface {
	Set(namespace []byte, key []byte, value []byte) error
	Delete(namespace []byte, key []byte) error
	Flush() error
	DiscardLast()
}

type Iterator interface {
	Next() error
	Valid() bool
	Key() ([]byte, error)
	Value() ([]byte, error)
	Close()
}
