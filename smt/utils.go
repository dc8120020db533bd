package smt

import "hash"

const (
	left  = 0
	right = 1
)

func digest(hasher hash.Hash, data ...[]byte) []byte {
	hasher.Reset()
	for _, d := range data {
		hasher.Write(d)
	}
	sum := hasher.Sum(nil)
	hasher.Reset()
	return sum
}

// defaultNodes returns the hashes of empty subtrees. Index depth is the empty
// leaf, index 0 the empty root.
func defaultNodes(hasher hash.Hash, depth int) [][]byte {
	nodes := make([][]byte, depth+1)
	nodes[depth] = digest(hasher, DefaultValue)
	for i := depth - 1; i >= 0; i-- {
		nodes[i] = digest(hasher, nodes[i+1], nodes[i+1])
	}
	return nodes
}

// bitAt returns the i-th bit of path, most significant first.
func bitAt(path []byte, i int) int {
	if path[i/8]&(1<<(7-uint(i)%8)) != 0 {
		return right
	}
	return left
}

func hasBit(data []byte, position int) bool {
	return data[position/8]&(1<<(uint(position)%8)) != 0
}

func setBit(data []byte, position int) {
	data[position/8] |= 1 << (uint(position) % 8)
}

func countSetBits(data []byte, limit int) int {
	count := 0
	for i := 0; i < limit; i++ {
		if hasBit(data, i) {
			count++
		}
	}
	return count
}

func bitmaskLen(depth int) int {
	return (depth + 7) / 8
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// EmptyRoot returns the root of an empty tree without touching a db.
func EmptyRoot(hasher hash.Hash, depth int) []byte {
	return defaultNodes(hasher, depth)[0]
}
