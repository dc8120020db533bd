// Package statemachine keeps the off-ledger account balances. Balances live
// in a sparse merkle tree keyed by account whose root is the state root the
// bridge commits to.
package statemachine

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/smt"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("statemachine")

// heightKey holds the block height inside the tree, so every sealed block
// has a distinct root even when no balance moved.
var heightKey = []byte("height")

var (
	ErrUnexpectedVariant = errors.New("unexpected transaction variant")
	errNegativeAmount    = errors.New("negative amount")
)

type StateMachine struct {
	db         provernetdb.DB
	tree       *smt.SparseMerkleTree
	serializer *types.Serializer
}

// NewStateMachine restores the state committed in db, or starts from the
// empty tree.
func NewStateMachine(db provernetdb.DB, serializer *types.Serializer, depth int) (*StateMachine, error) {
	root, exists, err := db.Get(provernetdb.NamespaceBalanceRoot, provernetdb.EmptyKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		root = nil
	}
	tree, err := smt.NewSparseMerkleTree(db, provernetdb.NamespaceBalanceTrie, sha3.NewLegacyKeccak256(), root, depth)
	if err != nil {
		return nil, err
	}
	return &StateMachine{db: db, tree: tree, serializer: serializer}, nil
}

// GenesisRoot is the root of a state machine with no balances.
func GenesisRoot(depth int) common.Hash {
	return common.BytesToHash(smt.EmptyRoot(sha3.NewLegacyKeccak256(), depth))
}

func (sm *StateMachine) Root() common.Hash {
	return common.BytesToHash(sm.tree.Root())
}

// Commit persists the current root.
func (sm *StateMachine) Commit() error {
	return sm.db.Set(provernetdb.NamespaceBalanceRoot, provernetdb.EmptyKey, sm.tree.Root())
}

// Rollback moves back to a root written earlier and persists it.
func (sm *StateMachine) Rollback(root common.Hash) error {
	if err := sm.tree.SetRoot(root.Bytes()); err != nil {
		return err
	}
	return sm.Commit()
}

// Height is the number of the last sealed block.
func (sm *StateMachine) Height() (uint64, error) {
	value, err := sm.tree.Get(heightKey)
	if err != nil {
		return 0, err
	}
	if isDefault(value) {
		return 0, nil
	}
	return new(big.Int).SetBytes(value).Uint64(), nil
}

// Seal records height in the tree and returns the resulting root.
func (sm *StateMachine) Seal(height uint64) (common.Hash, error) {
	root, err := sm.tree.Update(heightKey, provernetdb.Uint64Key(height))
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(root), nil
}

func (sm *StateMachine) Balance(account common.Address) (*big.Int, error) {
	value, err := sm.tree.Get(account.Bytes())
	if err != nil {
		return nil, err
	}
	if isDefault(value) {
		return new(big.Int), nil
	}
	owner, balance, err := sm.serializer.DeserializeBalanceLeaf(value)
	if err != nil {
		return nil, err
	}
	if owner != account {
		return nil, errors.New("balance leaf belongs to another account")
	}
	return balance, nil
}

func (sm *StateMachine) setBalance(account common.Address, balance *big.Int) error {
	leaf, err := sm.serializer.SerializeBalanceLeaf(account, balance)
	if err != nil {
		return err
	}
	_, err = sm.tree.Update(account.Bytes(), leaf)
	return err
}

func (sm *StateMachine) Credit(account common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errNegativeAmount
	}
	balance, err := sm.Balance(account)
	if err != nil {
		return err
	}
	return sm.setBalance(account, balance.Add(balance, amount))
}

// Debit removes exactly amount from account.
func (sm *StateMachine) Debit(account common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errNegativeAmount
	}
	balance, err := sm.Balance(account)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return types.ErrInsufficientBalance
	}
	return sm.setBalance(account, balance.Sub(balance, amount))
}

// ProveBalance returns the balance of account and a compact inclusion proof
// of its leaf against the current root.
func (sm *StateMachine) ProveBalance(account common.Address) (*big.Int, [][]byte, error) {
	balance, err := sm.Balance(account)
	if err != nil {
		return nil, nil, err
	}
	proof, err := sm.tree.ProveCompact(account.Bytes())
	if err != nil {
		return nil, nil, err
	}
	return balance, proof, nil
}

// ApplyTransaction applies a pending on-ledger transaction and returns its
// completed receipt. Withdrawals are clamped to the available balance.
func (sm *StateMachine) ApplyTransaction(tx *types.PendingTransaction) (*types.Receipt, error) {
	receipt := &types.Receipt{
		Variant:     tx.Variant,
		Status:      types.TransactionStatusCompleted,
		OnchainTxID: tx.ID,
		Payload:     tx.Payload,
	}
	switch tx.Variant {
	case types.TransactionVariantDeposit:
		deposit, err := sm.serializer.DeserializeDeposit(tx.Payload)
		if err != nil {
			return nil, err
		}
		if err = sm.Credit(deposit.Account, deposit.Amount); err != nil {
			return nil, err
		}
	case types.TransactionVariantWithdraw:
		withdraw, err := sm.serializer.DeserializeWithdraw(tx.Payload)
		if err != nil {
			return nil, err
		}
		balance, err := sm.Balance(withdraw.Account)
		if err != nil {
			return nil, err
		}
		if balance.Cmp(withdraw.Amount) < 0 {
			logger.Warn().Uint64("txID", tx.ID).Str("requested", withdraw.Amount.String()).
				Str("available", balance.String()).Msg("clamp withdrawal")
			withdraw.Amount = balance
		}
		if err = sm.Debit(withdraw.Account, withdraw.Amount); err != nil {
			return nil, err
		}
		if receipt.Payload, err = sm.serializer.SerializeWithdraw(withdraw); err != nil {
			return nil, err
		}
	case types.TransactionVariantCreateProver:
		if _, err := sm.serializer.DeserializeCreateProver(tx.Payload); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnexpectedVariant
	}
	logger.Debug().Uint64("txID", tx.ID).Str("variant", tx.Variant.String()).Msg("applied transaction")
	return receipt, nil
}

// ApplyCharge debits the requester and returns the reward receipt paying
// the prover.
func (sm *StateMachine) ApplyCharge(charge *types.Charge) (*types.Receipt, error) {
	if charge.Amount.Sign() <= 0 {
		return nil, types.ErrZeroAmount
	}
	if err := sm.Debit(charge.Requester, charge.Amount); err != nil {
		return nil, err
	}
	payload, err := sm.serializer.SerializeReward(&types.RewardPayload{Prover: charge.Prover, Amount: charge.Amount})
	if err != nil {
		return nil, err
	}
	return &types.Receipt{
		Variant: types.TransactionVariantReward,
		Status:  types.TransactionStatusCompleted,
		Payload: payload,
	}, nil
}

// SlashReceipt builds a slash directive. It does not touch balances.
func (sm *StateMachine) SlashReceipt(prover common.Address, amount *big.Int) (*types.Receipt, error) {
	payload, err := sm.serializer.SerializeSlash(&types.SlashPayload{Prover: prover, Amount: amount})
	if err != nil {
		return nil, err
	}
	return &types.Receipt{
		Variant: types.TransactionVariantSlash,
		Status:  types.TransactionStatusCompleted,
		Payload: payload,
	}, nil
}

func isDefault(value []byte) bool {
	return len(value) == len(smt.DefaultValue) && new(big.Int).SetBytes(value).Sign() == 0
}
