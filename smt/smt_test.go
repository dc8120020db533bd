package smt

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/celer-network/go-provernet/db/memorydb"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/sha3"
)

var namespaceTestTrie = []byte("tt")

func TestSMTNumericalKey(t *testing.T) {
	db := memorydb.NewDB()
	smt, err := NewSparseMerkleTree(db, namespaceTestTrie, sha3.NewLegacyKeccak256(), nil, 4)
	if err != nil {
		t.Fatal(err)
	}
	value, err := smt.Get([]byte("testKey"))
	if err != nil {
		t.Error("returned error when getting empty key")
	}
	if !bytes.Equal(DefaultValue, value) {
		t.Error("did not get default value when getting empty key")
	}
	if !bytes.Equal(smt.Root(), smt.EmptyRoot()) {
		t.Error("unexpected empty root")
	}

	newRoot, err := smt.Update(big.NewInt(0).Bytes(), []byte("asdf"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(newRoot, smt.EmptyRoot()) {
		t.Error("root did not change after update")
	}
	if _, err = smt.Update(big.NewInt(1).Bytes(), []byte("asdf")); err != nil {
		t.Fatal(err)
	}
	proof, err := smt.Prove(big.NewInt(0).Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(proof) != 4 {
		t.Errorf("expected proof of 4 nodes, got %d", len(proof))
	}
	if !smt.VerifyProof(proof, big.NewInt(0).Bytes(), []byte("asdf")) {
		t.Error("valid proof failed to verify")
	}
}

func TestSparseMerkleTree(t *testing.T) {
	db := memorydb.NewDB()
	smt, err := NewSparseMerkleTree(db, namespaceTestTrie, sha256.New(), nil, 256)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = smt.Update([]byte("testKey"), []byte("testValue")); err != nil {
		t.Fatal(err)
	}
	value, err := smt.Get([]byte("testKey"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal([]byte("testValue"), value) {
		t.Error("did not get correct value when getting non-empty key")
	}

	if _, err = smt.Update([]byte("testKey"), []byte("testValue2")); err != nil {
		t.Fatal(err)
	}
	value, _ = smt.Get([]byte("testKey"))
	if !bytes.Equal([]byte("testValue2"), value) {
		t.Error("did not get correct value after overwriting key")
	}

	if _, err = smt.Update([]byte("testKey2"), []byte("testValue")); err != nil {
		t.Fatal(err)
	}
	value, _ = smt.Get([]byte("testKey2"))
	if !bytes.Equal([]byte("testValue"), value) {
		t.Error("did not get correct value for second key")
	}
	value, _ = smt.Get([]byte("testKey"))
	if !bytes.Equal([]byte("testValue2"), value) {
		t.Error("first key changed after writing second key")
	}
}

func TestOldRootsRemainReadable(t *testing.T) {
	db := memorydb.NewDB()
	smt, err := NewSparseMerkleTree(db, namespaceTestTrie, sha3.NewLegacyKeccak256(), nil, 32)
	if err != nil {
		t.Fatal(err)
	}
	oldRoot, _ := smt.Update([]byte("k"), []byte("v1"))
	if _, err = smt.Update([]byte("k"), []byte("v2")); err != nil {
		t.Fatal(err)
	}
	value, err := smt.GetForRoot([]byte("k"), oldRoot)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal([]byte("v1"), value) {
		t.Error("old root lost its value")
	}

	restored, err := NewSparseMerkleTree(db, namespaceTestTrie, sha3.NewLegacyKeccak256(), oldRoot, 32)
	if err != nil {
		t.Fatal(err)
	}
	value, _ = restored.Get([]byte("k"))
	if !bytes.Equal([]byte("v1"), value) {
		t.Error("restored tree did not read from the given root")
	}
}

func TestUpdateForRootDoesNotMoveTree(t *testing.T) {
	db := memorydb.NewDB()
	smt, _ := NewSparseMerkleTree(db, namespaceTestTrie, sha3.NewLegacyKeccak256(), nil, 16)
	before := smt.Root()
	newRoot, err := smt.UpdateForRoot([]byte("k"), []byte("v"), before)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, smt.Root()) {
		t.Error("UpdateForRoot moved the tree")
	}
	value, _ := smt.GetForRoot([]byte("k"), newRoot)
	if !bytes.Equal([]byte("v"), value) {
		t.Error("value missing under returned root")
	}
}

func TestInvalidConstruction(t *testing.T) {
	db := memorydb.NewDB()
	if _, err := NewSparseMerkleTree(db, namespaceTestTrie, sha3.NewLegacyKeccak256(), nil, 257); err == nil {
		t.Error("depth beyond hash size accepted")
	}
	if _, err := NewSparseMerkleTree(db, namespaceTestTrie, sha3.NewLegacyKeccak256(), []byte{1, 2}, 8); err == nil {
		t.Error("short root accepted")
	}
}

func TestEmptyRootMatchesTree(t *testing.T) {
	smt, err := NewSparseMerkleTree(memorydb.NewDB(), namespaceTestTrie, sha3.NewLegacyKeccak256(), nil, 16)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(EmptyRoot(sha3.NewLegacyKeccak256(), 16), smt.Root()) {
		t.Error("empty root differs from a fresh tree")
	}
}
