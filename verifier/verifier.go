// Package verifier checks validity proofs of state transitions. The bridge
// only sees the Verifier interface.
package verifier

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/types"
	"github.com/celer-network/go-provernet/utils"
)

var logger = log.NewLogger("verifier")

// Verifier verifies proof for the program identified by vkey over the digest
// of the serialized public values.
type Verifier interface {
	Verify(vkey common.Hash, publicValuesDigest common.Hash, proof []byte) bool
}

// Attestation accepts a proof that is a signature of the attesting key over
// the program key and digest. The low 20 bytes of vkey are the signer.
type Attestation struct {
	serializer *types.Serializer
}

func NewAttestation(serializer *types.Serializer) *Attestation {
	return &Attestation{serializer: serializer}
}

func (a *Attestation) Verify(vkey common.Hash, publicValuesDigest common.Hash, proof []byte) bool {
	message, err := a.serializer.SerializeAttestation(vkey, publicValuesDigest)
	if err != nil {
		logger.Error().Err(err).Msg("serialize attestation")
		return false
	}
	return utils.SigIsValid(SignerOf(vkey), message, proof)
}

// Attest produces the proof that Attestation accepts for the key's program.
func (a *Attestation) Attest(key *ecdsa.PrivateKey, publicValuesDigest common.Hash) ([]byte, error) {
	message, err := a.serializer.SerializeAttestation(VKeyFor(key), publicValuesDigest)
	if err != nil {
		return nil, err
	}
	return utils.SignData(key, message)
}

// Signer proves digests with one attesting key.
type Signer struct {
	attestation *Attestation
	key         *ecdsa.PrivateKey
}

func NewSigner(serializer *types.Serializer, key *ecdsa.PrivateKey) *Signer {
	return &Signer{attestation: NewAttestation(serializer), key: key}
}

func (s *Signer) Prove(publicValuesDigest common.Hash) ([]byte, error) {
	return s.attestation.Attest(s.key, publicValuesDigest)
}

// VKey is the program key the proofs of s verify under.
func (s *Signer) VKey() common.Hash {
	return VKeyFor(s.key)
}

// VKeyFor returns the program key attested by key.
func VKeyFor(key *ecdsa.PrivateKey) common.Hash {
	return common.BytesToHash(crypto.PubkeyToAddress(key.PublicKey).Bytes())
}

func SignerOf(vkey common.Hash) common.Address {
	return common.BytesToAddress(vkey.Bytes())
}

// Fixed returns the configured result for every proof.
type Fixed bool

func (f Fixed) Verify(common.Hash, common.Hash, []byte) bool {
	return bool(f)
}
