// Package smt implements a Sparse Merkle tree over a namespaced db.
//
// Keys are hashed to form the leaf path. A leaf stores hash(value); an empty
// leaf holds DefaultValue. Nodes are stored by hash so that any past root can
// still be read and proven against.
package smt

import (
	"bytes"
	"errors"
	"fmt"
	"hash"

	provernetdb "github.com/celer-network/go-provernet/db"
)

var (
	// DefaultValue is the value of every leaf that was never written.
	DefaultValue = make([]byte, 32)

	initMarker = []byte("init")

	errCorruptDB   = errors.New("corrupt db: missing tree node")
	errInvalidRoot = errors.New("invalid root length")
)

// SparseMerkleTree is a Sparse Merkle tree.
type SparseMerkleTree struct {
	hasher    hash.Hash
	db        provernetdb.DB
	namespace []byte
	root      []byte
	depth     int
	defaults  [][]byte
}

// NewSparseMerkleTree creates or restores a tree of the given depth. A nil
// root starts from the empty tree.
func NewSparseMerkleTree(db provernetdb.DB, namespace []byte, hasher hash.Hash, root []byte, depth int) (*SparseMerkleTree, error) {
	if depth <= 0 || depth > hasher.Size()*8 {
		return nil, fmt.Errorf("depth %d out of range for %d byte hash", depth, hasher.Size())
	}
	smt := &SparseMerkleTree{
		hasher:    hasher,
		db:        db,
		namespace: namespace,
		depth:     depth,
		defaults:  defaultNodes(hasher, depth),
	}

	_, exists, err := db.Get(namespace, initMarker)
	if err != nil {
		return nil, err
	}
	if !exists {
		bulk := db.NewBulk()
		for i := 0; i < depth; i++ {
			child := smt.defaults[i+1]
			if err := bulk.Set(namespace, smt.defaults[i], concat(child, child)); err != nil {
				return nil, err
			}
		}
		if err := bulk.Set(namespace, smt.defaults[depth], DefaultValue); err != nil {
			return nil, err
		}
		if err := bulk.Set(namespace, initMarker, []byte{}); err != nil {
			return nil, err
		}
		if err := bulk.Flush(); err != nil {
			return nil, err
		}
	}

	if root == nil {
		root = smt.defaults[0]
	}
	if err := smt.SetRoot(root); err != nil {
		return nil, err
	}
	return smt, nil
}

// Root gets the root of the tree.
func (smt *SparseMerkleTree) Root() []byte {
	return smt.root
}

// SetRoot moves the tree to a previously committed root.
func (smt *SparseMerkleTree) SetRoot(root []byte) error {
	if len(root) != smt.hasher.Size() {
		return errInvalidRoot
	}
	smt.root = append([]byte{}, root...)
	return nil
}

// Depth is the number of levels between the root and a leaf.
func (smt *SparseMerkleTree) Depth() int {
	return smt.depth
}

// EmptyRoot is the root of a tree where no leaf was written.
func (smt *SparseMerkleTree) EmptyRoot() []byte {
	return append([]byte{}, smt.defaults[0]...)
}

func (smt *SparseMerkleTree) digest(data ...[]byte) []byte {
	return digest(smt.hasher, data...)
}

// Get gets a key from the tree.
func (smt *SparseMerkleTree) Get(key []byte) ([]byte, error) {
	return smt.GetForRoot(key, smt.root)
}

// GetForRoot gets a key from the tree at a specific root.
func (smt *SparseMerkleTree) GetForRoot(key []byte, root []byte) ([]byte, error) {
	path := smt.digest(key)
	current := root
	for i := 0; i < smt.depth; i++ {
		node, err := smt.node(current)
		if err != nil {
			return nil, err
		}
		if bitAt(path, i) == right {
			current = node[smt.hasher.Size():]
		} else {
			current = node[:smt.hasher.Size()]
		}
	}
	return smt.node(current)
}

// Update sets a new value for a key, and moves the tree to the new root.
func (smt *SparseMerkleTree) Update(key []byte, value []byte) ([]byte, error) {
	newRoot, err := smt.UpdateForRoot(key, value, smt.root)
	if err != nil {
		return nil, err
	}
	smt.root = newRoot
	return newRoot, nil
}

// UpdateForRoot sets a new value for a key under a specific root, and returns
// the new root without moving the tree.
func (smt *SparseMerkleTree) UpdateForRoot(key []byte, value []byte, root []byte) ([]byte, error) {
	path := smt.digest(key)
	sideNodes, err := smt.sideNodes(path, root)
	if err != nil {
		return nil, err
	}

	bulk := smt.db.NewBulk()
	current := smt.digest(value)
	if err := bulk.Set(smt.namespace, current, value); err != nil {
		return nil, err
	}
	for i := smt.depth - 1; i >= 0; i-- {
		var node []byte
		if bitAt(path, i) == right {
			node = concat(sideNodes[i], current)
		} else {
			node = concat(current, sideNodes[i])
		}
		current = smt.digest(node)
		if err := bulk.Set(smt.namespace, current, node); err != nil {
			return nil, err
		}
	}
	if err := bulk.Flush(); err != nil {
		return nil, err
	}
	return current, nil
}

// sideNodes returns the siblings along path, indexed from the root down.
func (smt *SparseMerkleTree) sideNodes(path []byte, root []byte) ([][]byte, error) {
	size := smt.hasher.Size()
	sides := make([][]byte, smt.depth)
	current := root
	for i := 0; i < smt.depth; i++ {
		node, err := smt.node(current)
		if err != nil {
			return nil, err
		}
		if bitAt(path, i) == right {
			sides[i] = node[:size]
			current = node[size:]
		} else {
			sides[i] = node[size:]
			current = node[:size]
		}
	}
	return sides, nil
}

func (smt *SparseMerkleTree) node(h []byte) ([]byte, error) {
	value, exists, err := smt.db.Get(smt.namespace, h)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errCorruptDB
	}
	return value, nil
}

// Prove generates a Merkle proof for a key. Siblings are ordered from the
// leaf up to the root.
func (smt *SparseMerkleTree) Prove(key []byte) ([][]byte, error) {
	return smt.ProveForRoot(key, smt.root)
}

// ProveForRoot generates a Merkle proof for a key at a specific root.
func (smt *SparseMerkleTree) ProveForRoot(key []byte, root []byte) ([][]byte, error) {
	sides, err := smt.sideNodes(smt.digest(key), root)
	if err != nil {
		return nil, err
	}
	return reverseProof(sides), nil
}

// ProveCompact generates a compacted Merkle proof for a key.
func (smt *SparseMerkleTree) ProveCompact(key []byte) ([][]byte, error) {
	proof, err := smt.Prove(key)
	if err != nil {
		return nil, err
	}
	return CompactProof(proof, smt.hasher, smt.depth)
}

// VerifyProof checks a proof against the current root.
func (smt *SparseMerkleTree) VerifyProof(proof [][]byte, key []byte, value []byte) bool {
	return VerifyProof(proof, smt.root, key, value, smt.hasher, smt.depth)
}

func bytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}
