package bridge

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minio/sha256-simd"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/types"
)

// PublicValuesDigest is the digest a proof commits to.
func PublicValuesDigest(publicValues []byte) common.Hash {
	return common.Hash(sha256.Sum256(publicValues))
}

// Step applies one proven transition: it checks the public values against
// the head of the root chain, verifies the proof, resolves every receipt and
// appends the new root. Any failure leaves no effect.
func (b *Bridge) Step(caller common.Address, publicValues []byte, proof []byte) error {
	var committed *types.StateRoot
	err := b.store.Atomic(func() error {
		if err := b.only(caller, keySequencer); err != nil {
			return err
		}
		if err := b.whenNotPaused(); err != nil {
			return err
		}
		pv, err := b.serializer.DeserializePublicValues(publicValues)
		if err != nil {
			return err
		}
		head, err := b.Head()
		if err != nil {
			return err
		}
		if err = b.checkTransition(head, pv); err != nil {
			return err
		}
		vkey, err := b.VKey()
		if err != nil {
			return err
		}
		if !b.verifier.Verify(vkey, PublicValuesDigest(publicValues), proof) {
			return types.ErrInvalidProof
		}

		for i, receipt := range pv.Receipts {
			if err = b.applyReceipt(receipt); err != nil {
				return fmt.Errorf("receipt %d: %w", i, err)
			}
		}

		committed = &types.StateRoot{BlockNumber: head.BlockNumber + 1, Root: pv.NewRoot, Timestamp: pv.Timestamp}
		if err = b.appendRoot(committed); err != nil {
			return err
		}
		b.store.Emit(&types.BlockCommittedEvent{
			BlockNumber: committed.BlockNumber,
			OldRoot:     pv.OldRoot,
			NewRoot:     pv.NewRoot,
			Timestamp:   pv.Timestamp,
			Receipts:    len(pv.Receipts),
		})
		return nil
	})
	if err != nil {
		logger.Debug().Err(err).Msg("step rejected")
		return err
	}
	logger.Info().Uint64("blockNumber", committed.BlockNumber).Str("root", committed.Root.Hex()).Msg("block committed")
	return nil
}

func (b *Bridge) checkTransition(head *types.StateRoot, pv *types.PublicValues) error {
	if pv.OldRoot != head.Root {
		return types.ErrInvalidOldRoot
	}
	if pv.NewRoot == (common.Hash{}) || pv.NewRoot == pv.OldRoot {
		return types.ErrInvalidRoot
	}
	now := b.now()
	if pv.Timestamp > now {
		return types.ErrInvalidTimestamp
	}
	if now-pv.Timestamp > b.params.MaxBlockAge {
		return types.ErrTimestampTooOld
	}
	if pv.Timestamp < head.Timestamp {
		return types.ErrTimestampInPast
	}
	return nil
}

func (b *Bridge) applyReceipt(receipt *types.Receipt) error {
	if receipt.Status != types.TransactionStatusCompleted {
		return types.ErrInvalidReceiptStatus
	}
	if receipt.Variant.IsOnchain() {
		return b.completeTransaction(receipt)
	}
	// Off-ledger receipts have no pending transaction to point at.
	if receipt.OnchainTxID != 0 {
		return types.ErrReceiptMismatch
	}
	switch receipt.Variant {
	case types.TransactionVariantReward:
		reward, err := b.serializer.DeserializeReward(receipt.Payload)
		if err != nil {
			return err
		}
		return b.engine.ProcessReward(b.Address, reward.Prover, reward.Amount)
	case types.TransactionVariantSlash:
		slash, err := b.serializer.DeserializeSlash(receipt.Payload)
		if err != nil {
			return err
		}
		_, err = b.engine.RequestSlash(b.Address, slash.Prover, slash.Amount)
		return err
	}
	return types.ErrUnknownVariant
}

// completeTransaction resolves the next pending transaction in id order.
func (b *Bridge) completeTransaction(receipt *types.Receipt) error {
	tx, err := b.Transaction(receipt.OnchainTxID)
	if err != nil {
		return err
	}
	if tx.Status != types.TransactionStatusPending {
		return types.ErrTransactionNotPending
	}
	finalized, err := b.FinalizedTxID()
	if err != nil {
		return err
	}
	if tx.ID != finalized+1 {
		return types.ErrTransactionOutOfOrder
	}
	if tx.Variant != receipt.Variant {
		return types.ErrReceiptMismatch
	}

	if tx.Variant == types.TransactionVariantWithdraw {
		if err = b.completeWithdraw(tx, receipt); err != nil {
			return err
		}
	} else if !bytes.Equal(tx.Payload, receipt.Payload) {
		return types.ErrReceiptMismatch
	}

	tx.Status = types.TransactionStatusCompleted
	if err = b.putTransaction(tx); err != nil {
		return err
	}
	if err = b.store.SetUint64(provernetdb.NamespaceFinalizedTx, provernetdb.EmptyKey, tx.ID); err != nil {
		return err
	}
	b.store.Emit(&types.TransactionCompletedEvent{TxID: tx.ID, Variant: tx.Variant})
	return nil
}

// completeWithdraw turns the withdrawn amount into a claim. The off-ledger
// state may withdraw less than requested, never more.
func (b *Bridge) completeWithdraw(tx *types.PendingTransaction, receipt *types.Receipt) error {
	requested, err := b.serializer.DeserializeWithdraw(tx.Payload)
	if err != nil {
		return err
	}
	withdrawn, err := b.serializer.DeserializeWithdraw(receipt.Payload)
	if err != nil {
		return err
	}
	if withdrawn.Account != requested.Account || withdrawn.To != requested.To || withdrawn.Amount.Cmp(requested.Amount) > 0 {
		return types.ErrReceiptMismatch
	}
	if withdrawn.Amount.Sign() == 0 {
		return nil
	}
	return b.addWithdrawalClaim(withdrawn.To, withdrawn.Amount)
}
