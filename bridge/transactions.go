package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/types"
)

// Deposit escrows amount of the caller's base asset and queues it for the
// off-ledger state. The bridge must hold an allowance of at least amount.
func (b *Bridge) Deposit(caller common.Address, amount *big.Int) (uint64, error) {
	var id uint64
	err := b.store.Atomic(func() error {
		var err error
		id, err = b.deposit(caller, amount)
		return err
	})
	return id, err
}

// PermitAndDeposit deposits with a permit signature instead of a prior
// approval. An allowance that already covers amount leaves the signature
// unused.
func (b *Bridge) PermitAndDeposit(caller common.Address, amount *big.Int, deadline uint64, sig []byte) (uint64, error) {
	var id uint64
	err := b.store.Atomic(func() error {
		if err := b.whenNotPaused(); err != nil {
			return err
		}
		if err := b.base.PermitIfNeeded(caller, b.Address, amount, amount, deadline, sig); err != nil {
			return err
		}
		var err error
		id, err = b.deposit(caller, amount)
		return err
	})
	return id, err
}

func (b *Bridge) deposit(caller common.Address, amount *big.Int) (uint64, error) {
	if err := b.whenNotPaused(); err != nil {
		return 0, err
	}
	if err := b.checkTransferAmount(amount); err != nil {
		return 0, err
	}
	if err := b.base.TransferFrom(b.Address, caller, b.Address, amount); err != nil {
		return 0, err
	}
	payload, err := b.serializer.SerializeDeposit(&types.DepositPayload{Account: caller, Amount: amount})
	if err != nil {
		return 0, err
	}
	id, err := b.createTransaction(types.TransactionVariantDeposit, payload)
	if err != nil {
		return 0, err
	}
	logger.Info().Uint64("txId", id).Str("account", caller.Hex()).Str("amount", amount.String()).Msg("deposit")
	b.store.Emit(&types.DepositEvent{TxID: id, Account: caller, Amount: new(big.Int).Set(amount)})
	return id, nil
}

// RequestWithdraw queues a withdrawal of amount from the caller's off-ledger
// balance to to. The amount becomes claimable once a step completes it.
func (b *Bridge) RequestWithdraw(caller common.Address, to common.Address, amount *big.Int) (uint64, error) {
	if to == (common.Address{}) {
		return 0, types.ErrZeroAddress
	}
	var id uint64
	err := b.store.Atomic(func() error {
		if err := b.whenNotPaused(); err != nil {
			return err
		}
		if err := b.checkTransferAmount(amount); err != nil {
			return err
		}
		payload, err := b.serializer.SerializeWithdraw(&types.WithdrawPayload{Account: caller, To: to, Amount: amount})
		if err != nil {
			return err
		}
		id, err = b.createTransaction(types.TransactionVariantWithdraw, payload)
		if err != nil {
			return err
		}
		logger.Info().Uint64("txId", id).Str("account", caller.Hex()).Str("to", to.Hex()).Str("amount", amount.String()).Msg("withdraw requested")
		b.store.Emit(&types.WithdrawRequestedEvent{TxID: id, Account: caller, To: to, Amount: new(big.Int).Set(amount)})
		return nil
	})
	return id, err
}

// CreateProver queues the CreateProver intent raised by the prover registry.
func (b *Bridge) CreateProver(caller common.Address, prover common.Address, owner common.Address, stakerFeeBips uint64) (uint64, error) {
	var id uint64
	err := b.store.Atomic(func() error {
		if err := b.only(caller, keyRegistry); err != nil {
			return err
		}
		if err := b.whenNotPaused(); err != nil {
			return err
		}
		payload, err := b.serializer.SerializeCreateProver(&types.CreateProverPayload{
			Prover:        prover,
			Owner:         owner,
			StakerFeeBips: new(big.Int).SetUint64(stakerFeeBips),
		})
		if err != nil {
			return err
		}
		id, err = b.createTransaction(types.TransactionVariantCreateProver, payload)
		if err != nil {
			return err
		}
		b.store.Emit(&types.ProverCreatedEvent{ID: id, Prover: prover, Owner: owner, StakerFeeBips: stakerFeeBips})
		return nil
	})
	return id, err
}

// FinishWithdraw pays account's withdrawal claim. It works while paused.
func (b *Bridge) FinishWithdraw(account common.Address) (*big.Int, error) {
	var amount *big.Int
	err := b.store.Atomic(func() error {
		var err error
		amount, err = b.WithdrawalClaim(account)
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return types.ErrNoWithdrawalToClaim
		}
		// The claim is cleared before the transfer.
		if err = b.store.SetBig(provernetdb.NamespaceWithdrawalClaim, account.Bytes(), new(big.Int)); err != nil {
			return err
		}
		if err = b.base.Transfer(b.Address, account, amount); err != nil {
			return err
		}
		b.store.Emit(&types.WithdrawalClaimedEvent{Account: account, Amount: new(big.Int).Set(amount)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("account", account.Hex()).Str("amount", amount.String()).Msg("withdrawal claimed")
	return amount, nil
}

func (b *Bridge) WithdrawalClaim(account common.Address) (*big.Int, error) {
	return b.store.GetBig(provernetdb.NamespaceWithdrawalClaim, account.Bytes())
}

func (b *Bridge) addWithdrawalClaim(account common.Address, amount *big.Int) error {
	claim, err := b.WithdrawalClaim(account)
	if err != nil {
		return err
	}
	if err = b.store.SetBig(provernetdb.NamespaceWithdrawalClaim, account.Bytes(), claim.Add(claim, amount)); err != nil {
		return err
	}
	b.store.Emit(&types.WithdrawalClaimCreatedEvent{Account: account, Amount: new(big.Int).Set(amount)})
	return nil
}

func (b *Bridge) checkTransferAmount(amount *big.Int) error {
	if amount.Sign() <= 0 {
		return types.ErrZeroAmount
	}
	if b.params.MinTransferAmount != nil && amount.Cmp(b.params.MinTransferAmount) < 0 {
		return types.ErrTransferBelowMinimum
	}
	return nil
}

func (b *Bridge) createTransaction(variant types.TransactionVariant, payload []byte) (uint64, error) {
	last, err := b.store.GetUint64(provernetdb.NamespaceTransactionCounter, provernetdb.EmptyKey)
	if err != nil {
		return 0, err
	}
	tx := &types.PendingTransaction{
		ID:      last + 1,
		Variant: variant,
		Status:  types.TransactionStatusPending,
		Payload: payload,
	}
	if err = b.putTransaction(tx); err != nil {
		return 0, err
	}
	if err = b.store.SetUint64(provernetdb.NamespaceTransactionCounter, provernetdb.EmptyKey, tx.ID); err != nil {
		return 0, err
	}
	b.store.Emit(&types.TransactionPendingEvent{TxID: tx.ID, Variant: variant})
	return tx.ID, nil
}

func (b *Bridge) putTransaction(tx *types.PendingTransaction) error {
	return b.store.SetRLP(provernetdb.NamespaceTransaction, provernetdb.Uint64Key(tx.ID), tx)
}

// Transaction returns the transaction with id.
func (b *Bridge) Transaction(id uint64) (*types.PendingTransaction, error) {
	tx := new(types.PendingTransaction)
	exists, err := b.store.GetRLP(provernetdb.NamespaceTransaction, provernetdb.Uint64Key(id), tx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.ErrTransactionNotFound
	}
	return tx, nil
}

// NextTxID is the id the next transaction will get.
func (b *Bridge) NextTxID() (uint64, error) {
	last, err := b.store.GetUint64(provernetdb.NamespaceTransactionCounter, provernetdb.EmptyKey)
	return last + 1, err
}

// FinalizedTxID is the id of the last completed transaction.
func (b *Bridge) FinalizedTxID() (uint64, error) {
	return b.store.GetUint64(provernetdb.NamespaceFinalizedTx, provernetdb.EmptyKey)
}

// PendingTransactions returns up to limit transactions after the finalized
// id, in id order. A limit of zero returns all of them.
func (b *Bridge) PendingTransactions(limit int) ([]*types.PendingTransaction, error) {
	finalized, err := b.FinalizedTxID()
	if err != nil {
		return nil, err
	}
	next, err := b.NextTxID()
	if err != nil {
		return nil, err
	}
	var txs []*types.PendingTransaction
	for id := finalized + 1; id < next; id++ {
		if limit > 0 && len(txs) >= limit {
			break
		}
		tx, err := b.Transaction(id)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
