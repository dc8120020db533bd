package smt

import (
	"errors"
	"hash"
)

var errBadProofSize = errors.New("bad proof size")

// VerifyProof verifies a Merkle proof produced by Prove.
func VerifyProof(proof [][]byte, root []byte, key []byte, value []byte, hasher hash.Hash, depth int) bool {
	if len(proof) != depth {
		return false
	}
	path := digest(hasher, key)
	current := digest(hasher, value)
	for j, sibling := range proof {
		if len(sibling) != hasher.Size() {
			return false
		}
		if bitAt(path, depth-1-j) == right {
			current = digest(hasher, sibling, current)
		} else {
			current = digest(hasher, current, sibling)
		}
	}
	return bytesEqual(current, root)
}

// VerifyCompactProof verifies a proof produced by ProveCompact.
func VerifyCompactProof(proof [][]byte, root []byte, key []byte, value []byte, hasher hash.Hash, depth int) bool {
	decompacted, err := DecompactProof(proof, hasher, depth)
	if err != nil {
		return false
	}
	return VerifyProof(decompacted, root, key, value, hasher, depth)
}

// CompactProof drops default siblings and records their positions in a
// leading bitmask.
func CompactProof(proof [][]byte, hasher hash.Hash, depth int) ([][]byte, error) {
	if len(proof) != depth {
		return nil, errBadProofSize
	}
	defaults := defaultNodes(hasher, depth)
	bits := make([]byte, bitmaskLen(depth))
	compact := [][]byte{bits}
	for j, sibling := range proof {
		if bytesEqual(sibling, defaults[depth-j]) {
			setBit(bits, j)
		} else {
			compact = append(compact, append([]byte{}, sibling...))
		}
	}
	return compact, nil
}

// DecompactProof restores a proof so that it can be used for VerifyProof.
func DecompactProof(proof [][]byte, hasher hash.Hash, depth int) ([][]byte, error) {
	if len(proof) == 0 || len(proof[0]) != bitmaskLen(depth) {
		return nil, errBadProofSize
	}
	bits := proof[0]
	if len(proof)-1 != depth-countSetBits(bits, depth) {
		return nil, errBadProofSize
	}
	defaults := defaultNodes(hasher, depth)
	full := make([][]byte, depth)
	position := 1
	for j := 0; j < depth; j++ {
		if hasBit(bits, j) {
			full[j] = defaults[depth-j]
		} else {
			full[j] = proof[position]
			position++
		}
	}
	return full, nil
}

func reverseProof(proof [][]byte) [][]byte {
	for i := len(proof)/2 - 1; i >= 0; i-- {
		opp := len(proof) - 1 - i
		proof[i], proof[opp] = proof[opp], proof[i]
	}
	return proof
}
