package token

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/types"
	"github.com/celer-network/go-provernet/utils"
)

var permitTypes = []string{"address", "address", "address", "uint256", "uint256", "uint256"}

// PermitDigest is the packed hash an owner signs to grant an allowance.
func (t *Token) PermitDigest(owner common.Address, spender common.Address, value *big.Int, nonce uint64, deadline uint64) []byte {
	return utils.PackedHash(permitTypes, []interface{}{
		t.Address,
		owner,
		spender,
		value,
		new(big.Int).SetUint64(nonce),
		new(big.Int).SetUint64(deadline),
	})
}

// SignPermit signs a permit for the owner's next nonce.
func (t *Token) SignPermit(key *ecdsa.PrivateKey, spender common.Address, value *big.Int, deadline uint64) ([]byte, error) {
	nonce, err := t.Nonces(cryptoAddress(key))
	if err != nil {
		return nil, err
	}
	return utils.SignData(key, t.PermitDigest(cryptoAddress(key), spender, value, nonce, deadline))
}

// Permit sets the allowance of spender over owner's tokens from a signature.
func (t *Token) Permit(owner common.Address, spender common.Address, value *big.Int, deadline uint64, sig []byte) error {
	return t.store.Atomic(func() error {
		return t.permit(owner, spender, value, deadline, sig)
	})
}

// PermitIfNeeded applies a permit unless the current allowance already
// covers amount, so that a front-run permit does not block the caller.
func (t *Token) PermitIfNeeded(owner common.Address, spender common.Address, amount *big.Int, value *big.Int, deadline uint64, sig []byte) error {
	return t.store.Atomic(func() error {
		allowance, err := t.Allowance(owner, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) >= 0 {
			return nil
		}
		return t.permit(owner, spender, value, deadline, sig)
	})
}

func (t *Token) permit(owner common.Address, spender common.Address, value *big.Int, deadline uint64, sig []byte) error {
	if uint64(t.clock.Now().Unix()) > deadline {
		return types.ErrSignatureExpired
	}
	nonce, err := t.Nonces(owner)
	if err != nil {
		return err
	}
	signer, err := utils.RecoverSigner(t.PermitDigest(owner, spender, value, nonce, deadline), sig)
	if err != nil || signer != owner {
		return types.ErrInvalidSignature
	}
	if err := t.store.SetUint64(provernetdb.NamespaceTokenNonce, t.balanceKey(owner), nonce+1); err != nil {
		return err
	}
	return t.approve(owner, spender, value)
}
