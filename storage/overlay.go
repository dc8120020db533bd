package storage

import (
	provernetdb "github.com/celer-network/go-provernet/db"
)

type overlayEntry struct {
	namespace []byte
	key       []byte
	value     []byte
	deleted   bool
}

// overlay buffers the writes of one atomic section in write order.
type overlay struct {
	entries map[string]*overlayEntry
	order   []string
}

func newOverlay() *overlay {
	return &overlay{entries: make(map[string]*overlayEntry)}
}

func overlayKey(namespace []byte, key []byte) string {
	return string(provernetdb.PrependNamespace(namespace, key))
}

func (o *overlay) get(namespace []byte, key []byte) ([]byte, bool, bool) {
	entry, ok := o.entries[overlayKey(namespace, key)]
	if !ok {
		return nil, false, false
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, entry.deleted, true
}

func (o *overlay) put(namespace []byte, key []byte, value []byte, deleted bool) {
	k := overlayKey(namespace, key)
	entry, ok := o.entries[k]
	if !ok {
		entry = &overlayEntry{
			namespace: append([]byte{}, namespace...),
			key:       append([]byte{}, key...),
		}
		o.entries[k] = entry
		o.order = append(o.order, k)
	}
	entry.value = append([]byte{}, value...)
	entry.deleted = deleted
}

func (o *overlay) set(namespace []byte, key []byte, value []byte) {
	o.put(namespace, key, value, false)
}

func (o *overlay) delete(namespace []byte, key []byte) {
	o.put(namespace, key, nil, true)
}

func (o *overlay) len() int {
	return len(o.order)
}

func (o *overlay) commit(db provernetdb.DB) error {
	if len(o.order) == 0 {
		return nil
	}
	tx := db.NewTx()
	for _, k := range o.order {
		entry := o.entries[k]
		var err error
		if entry.deleted {
			err = tx.Delete(entry.namespace, entry.key)
		} else {
			err = tx.Set(entry.namespace, entry.key, entry.value)
		}
		if err != nil {
			tx.Discard()
			return err
		}
	}
	return tx.Commit()
}
