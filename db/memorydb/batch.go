package memorydb

import (
	"errors"
	"sync"
)

var (
	errCommitAfterDiscard = errors.New("commit after discard is not allowed")
	errDoubleCommit       = errors.New("batch committed twice")
)

type batchOp struct {
	isSet bool
	key   string
	value []byte
}

// batch buffers writes until Commit/Flush. It serves both as a Transaction and
// as a Bulk since the map backend has no size limit.
type batch struct {
	lock      sync.Mutex
	db        *DB
	ops       []batchOp
	isDiscard bool
	isCommit  bool
}

func newBatch(db *DB) *batch {
	return &batch{db: db}
}

func (b *batch) Set(namespace []byte, key []byte, value []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.ops = append(b.ops, batchOp{isSet: true, key: encodeKey(namespace, key), value: value})
	return nil
}

func (b *batch) Delete(namespace []byte, key []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.ops = append(b.ops, batchOp{key: encodeKey(namespace, key)})
	return nil
}

func (b *batch) Commit() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.isDiscard {
		return errCommitAfterDiscard
	}
	if b.isCommit {
		return errDoubleCommit
	}

	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	for _, op := range b.ops {
		if op.isSet {
			b.db.setLocked(op.key, op.value)
		} else {
			delete(b.db.db, op.key)
		}
	}
	b.isCommit = true
	return nil
}

func (b *batch) Flush() error {
	return b.Commit()
}

func (b *batch) Discard() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.isDiscard = true
	b.ops = nil
}

func (b *batch) DiscardLast() {
	b.Discard()
}
