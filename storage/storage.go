// Package storage is the ledger's state store. Components read and write
// namespaced keys through a Store; writes made inside Atomic are buffered and
// reach the underlying db only when the whole call succeeds.
package storage

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("storage")

// EventHandler receives events after the call that emitted them committed.
type EventHandler func(types.Event)

type Store struct {
	db       provernetdb.DB
	overlay  *overlay
	depth    int
	events   []types.Event
	handlers []EventHandler
}

func NewStore(db provernetdb.DB) *Store {
	return &Store{db: db}
}

// DB returns the backing database.
func (s *Store) DB() provernetdb.DB {
	return s.db
}

// Atomic runs fn so that either all of its writes and events take effect or
// none do. Nested calls join the outermost section.
func (s *Store) Atomic(fn func() error) error {
	if s.depth > 0 {
		s.depth++
		defer func() { s.depth-- }()
		return fn()
	}

	s.overlay = newOverlay()
	s.events = nil
	s.depth = 1
	err := fn()
	s.depth = 0
	ov, events := s.overlay, s.events
	s.overlay, s.events = nil, nil
	if err != nil {
		logger.Debug().Err(err).Int("writes", ov.len()).Msg("discard atomic section")
		return err
	}
	if err := ov.commit(s.db); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	for _, ev := range events {
		for _, h := range s.handlers {
			h(ev)
		}
	}
	return nil
}

// InAtomic reports whether the caller runs inside an atomic section.
func (s *Store) InAtomic() bool {
	return s.depth > 0
}

// Subscribe registers a handler for committed events.
func (s *Store) Subscribe(h EventHandler) {
	s.handlers = append(s.handlers, h)
}

// Emit buffers an event. Outside an atomic section it is delivered at once.
func (s *Store) Emit(ev types.Event) {
	if s.depth > 0 {
		s.events = append(s.events, ev)
		return
	}
	for _, h := range s.handlers {
		h(ev)
	}
}

func (s *Store) Get(namespace []byte, key []byte) ([]byte, bool, error) {
	if s.overlay != nil {
		if value, deleted, ok := s.overlay.get(namespace, key); ok {
			if deleted {
				return nil, false, nil
			}
			return value, true, nil
		}
	}
	return s.db.Get(namespace, key)
}

func (s *Store) Set(namespace []byte, key []byte, value []byte) error {
	if s.overlay != nil {
		s.overlay.set(namespace, key, value)
		return nil
	}
	return s.db.Set(namespace, key, value)
}

func (s *Store) Delete(namespace []byte, key []byte) error {
	if s.overlay != nil {
		s.overlay.delete(namespace, key)
		return nil
	}
	return s.db.Delete(namespace, key)
}

// GetBig returns zero for a missing key.
func (s *Store) GetBig(namespace []byte, key []byte) (*big.Int, error) {
	data, exists, err := s.Get(namespace, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return new(big.Int), nil
	}
	return new(big.Int).SetBytes(data), nil
}

// SetBig stores a non-negative integer; zero deletes the key.
func (s *Store) SetBig(namespace []byte, key []byte, value *big.Int) error {
	if value.Sign() < 0 {
		return fmt.Errorf("negative value %s for %s", value, namespace)
	}
	if value.Sign() == 0 {
		return s.Delete(namespace, key)
	}
	return s.Set(namespace, key, value.Bytes())
}

// GetUint64 returns zero for a missing key.
func (s *Store) GetUint64(namespace []byte, key []byte) (uint64, error) {
	v, err := s.GetBig(namespace, key)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func (s *Store) SetUint64(namespace []byte, key []byte, value uint64) error {
	return s.SetBig(namespace, key, new(big.Int).SetUint64(value))
}

// GetRLP decodes the record at key into v and reports whether it existed.
func (s *Store) GetRLP(namespace []byte, key []byte, v interface{}) (bool, error) {
	data, exists, err := s.Get(namespace, key)
	if err != nil || !exists {
		return false, err
	}
	if err := rlp.DecodeBytes(data, v); err != nil {
		return false, fmt.Errorf("decode %s record: %w", namespace, err)
	}
	return true, nil
}

func (s *Store) SetRLP(namespace []byte, key []byte, v interface{}) error {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", namespace, err)
	}
	return s.Set(namespace, key, data)
}

// GetBool returns false for a missing key.
func (s *Store) GetBool(namespace []byte, key []byte) (bool, error) {
	data, exists, err := s.Get(namespace, key)
	if err != nil || !exists {
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}

func (s *Store) SetBool(namespace []byte, key []byte, value bool) error {
	if !value {
		return s.Delete(namespace, key)
	}
	return s.Set(namespace, key, []byte{1})
}
