package memorydb

import (
	"sync"

	provernetdb "github.com/celer-network/go-provernet/db"
)

// Enforce database and batch implement interfaces
var (
	_ provernetdb.DB          = (*DB)(nil)
	_ provernetdb.Transaction = (*batch)(nil)
	_ provernetdb.Bulk        = (*batch)(nil)
)

// DB keeps every key in a map. It is used by tests and by the off-ledger
// components that do not need persistence.
type DB struct {
	lock sync.Mutex
	db   map[string][]byte
}

func NewDB() *DB {
	return &DB{
		db: make(map[string][]byte),
	}
}

func (db *DB) Type() string {
	return "memorydb"
}

func (db *DB) Set(namespace []byte, key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.setLocked(encodeKey(namespace, key), value)
	return nil
}

func (db *DB) Delete(namespace []byte, key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	delete(db.db, encodeKey(namespace, key))
	return nil
}

func (db *DB) Get(namespace []byte, key []byte) ([]byte, bool, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	value, exists := db.db[encodeKey(namespace, key)]
	if !exists {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (db *DB) Exist(namespace []byte, key []byte) (bool, error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	_, ok := db.db[encodeKey(namespace, key)]
	return ok, nil
}

// Len returns the number of stored keys.
func (db *DB) Len() int {
	db.lock.Lock()
	defer db.lock.Unlock()
	return len(db.db)
}

func (db *DB) Close() error {
	return nil
}

func (db *DB) NewTx() provernetdb.Transaction {
	return newBatch(db)
}

func (db *DB) NewBulk() provernetdb.Bulk {
	return newBatch(db)
}

func (db *DB) setLocked(key string, value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)
	db.db[key] = stored
}

func encodeKey(namespace []byte, key []byte) string {
	return string(provernetdb.ConvNilToBytes(provernetdb.PrependNamespace(namespace, key)))
}
