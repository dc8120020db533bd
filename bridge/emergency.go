package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/smt"
	"github.com/celer-network/go-provernet/types"
)

// EmergencyWithdraw lets the caller claim the balance proven against the
// last root once the bridge stayed paused longer than the freeze duration. proof is
// a compact inclusion proof of the caller's balance leaf. Each account can
// use it once.
func (b *Bridge) EmergencyWithdraw(caller common.Address, balance *big.Int, proof [][]byte) error {
	if balance.Sign() <= 0 {
		return types.ErrZeroAmount
	}
	return b.store.Atomic(func() error {
		paused, err := b.Paused()
		if err != nil {
			return err
		}
		if !paused {
			return types.ErrNotPaused
		}
		pausedAt, err := b.PausedAt()
		if err != nil {
			return err
		}
		if b.now() <= pausedAt+b.params.FreezeDuration {
			return types.ErrNotFrozen
		}
		claimed, err := b.store.GetBool(provernetdb.NamespaceEmergencyClaimed, caller.Bytes())
		if err != nil {
			return err
		}
		if claimed {
			return types.ErrAlreadyEmergencyClaimed
		}
		root, err := b.Root()
		if err != nil {
			return err
		}
		leaf, err := b.serializer.SerializeBalanceLeaf(caller, balance)
		if err != nil {
			return err
		}
		if !smt.VerifyCompactProof(proof, root.Bytes(), caller.Bytes(), leaf, sha3.NewLegacyKeccak256(), b.params.TreeDepth) {
			return types.ErrInvalidInclusionProof
		}

		if err = b.store.SetBool(provernetdb.NamespaceEmergencyClaimed, caller.Bytes(), true); err != nil {
			return err
		}
		if err = b.store.SetBool(provernetdb.NamespaceBridgeConfig, keyEmergency, true); err != nil {
			return err
		}
		if err = b.addWithdrawalClaim(caller, balance); err != nil {
			return err
		}
		logger.Warn().Str("account", caller.Hex()).Str("amount", balance.String()).Msg("emergency withdrawal")
		b.store.Emit(&types.EmergencyWithdrawalEvent{Account: caller, Amount: new(big.Int).Set(balance), Root: root})
		return nil
	})
}

// EmergencyClaimed reports whether account already used EmergencyWithdraw.
func (b *Bridge) EmergencyClaimed(account common.Address) (bool, error) {
	return b.store.GetBool(provernetdb.NamespaceEmergencyClaimed, account.Bytes())
}
