package smt

import (
	"bytes"
	"testing"

	"github.com/celer-network/go-provernet/db/memorydb"
	"golang.org/x/crypto/sha3"
)

func TestProofs(t *testing.T) {
	db := memorydb.NewDB()
	hasher := sha3.NewLegacyKeccak256()
	smt, err := NewSparseMerkleTree(db, namespaceTestTrie, hasher, nil, 256)
	if err != nil {
		t.Fatal(err)
	}

	// Proof of an empty key.
	proof, _ := smt.Prove([]byte("testKey"))
	if !VerifyProof(proof, smt.Root(), []byte("testKey"), DefaultValue, sha3.NewLegacyKeccak256(), 256) {
		t.Error("valid proof of empty key failed to verify")
	}
	if VerifyProof(proof, smt.Root(), []byte("testKey"), []byte("badValue"), sha3.NewLegacyKeccak256(), 256) {
		t.Error("invalid proof of empty key was verified")
	}

	smt.Update([]byte("testKey"), []byte("testValue"))
	proof, _ = smt.Prove([]byte("testKey"))
	if !smt.VerifyProof(proof, []byte("testKey"), []byte("testValue")) {
		t.Error("valid proof failed to verify")
	}
	if smt.VerifyProof(proof, []byte("testKey"), []byte("badValue")) {
		t.Error("proof with wrong value was verified")
	}
	if smt.VerifyProof(proof[1:], []byte("testKey"), []byte("testValue")) {
		t.Error("truncated proof was verified")
	}

	smt.Update([]byte("testKey2"), []byte("testValue"))
	proof, _ = smt.Prove([]byte("testKey"))
	if !smt.VerifyProof(proof, []byte("testKey"), []byte("testValue")) {
		t.Error("valid proof failed to verify after second update")
	}
	proof, _ = smt.Prove([]byte("testKey2"))
	if !smt.VerifyProof(proof, []byte("testKey2"), []byte("testValue")) {
		t.Error("valid proof of second key failed to verify")
	}

	// Tampered sibling.
	proof[0] = bytes.Repeat([]byte{0xab}, 32)
	if smt.VerifyProof(proof, []byte("testKey2"), []byte("testValue")) {
		t.Error("tampered proof was verified")
	}
}

func TestCompactProofs(t *testing.T) {
	db := memorydb.NewDB()
	smt, _ := NewSparseMerkleTree(db, namespaceTestTrie, sha3.NewLegacyKeccak256(), nil, 256)
	smt.Update([]byte("testKey"), []byte("testValue"))
	smt.Update([]byte("testKey2"), []byte("testValue2"))

	compact, err := smt.ProveCompact([]byte("testKey"))
	if err != nil {
		t.Fatal(err)
	}
	if len(compact) >= 256 {
		t.Errorf("compact proof was not compacted, %d nodes", len(compact))
	}
	if !VerifyCompactProof(compact, smt.Root(), []byte("testKey"), []byte("testValue"), sha3.NewLegacyKeccak256(), 256) {
		t.Error("valid compact proof failed to verify")
	}

	full, _ := smt.Prove([]byte("testKey"))
	decompacted, err := DecompactProof(compact, sha3.NewLegacyKeccak256(), 256)
	if err != nil {
		t.Fatal(err)
	}
	for i := range full {
		if !bytes.Equal(full[i], decompacted[i]) {
			t.Fatalf("decompacted proof differs at %d", i)
		}
	}

	if _, err = DecompactProof(compact[:len(compact)-1], sha3.NewLegacyKeccak256(), 256); err == nil {
		t.Error("short compact proof was decompacted")
	}
	if VerifyCompactProof(nil, smt.Root(), []byte("testKey"), []byte("testValue"), sha3.NewLegacyKeccak256(), 256) {
		t.Error("empty compact proof was verified")
	}
}
