package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type TransactionVariant uint8

const (
	TransactionVariantDeposit TransactionVariant = iota
	TransactionVariantWithdraw
	TransactionVariantCreateProver
	TransactionVariantReward
	TransactionVariantSlash
)

func (v TransactionVariant) String() string {
	switch v {
	case TransactionVariantDeposit:
		return "Deposit"
	case TransactionVariantWithdraw:
		return "Withdraw"
	case TransactionVariantCreateProver:
		return "CreateProver"
	case TransactionVariantReward:
		return "Reward"
	case TransactionVariantSlash:
		return "Slash"
	}
	return "Unknown"
}

// IsOnchain reports whether the variant is created by an on-ledger entry
// point and therefore carries a pending transaction id.
func (v TransactionVariant) IsOnchain() bool {
	switch v {
	case TransactionVariantDeposit, TransactionVariantWithdraw, TransactionVariantCreateProver:
		return true
	}
	return false
}

type TransactionStatus uint8

const (
	TransactionStatusNone TransactionStatus = iota
	TransactionStatusPending
	TransactionStatusCompleted
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionStatusPending:
		return "Pending"
	case TransactionStatusCompleted:
		return "Completed"
	}
	return "None"
}

// PendingTransaction is an on-ledger action waiting for its receipt.
// Payload holds the abi encoding of the variant's payload struct.
type PendingTransaction struct {
	ID      uint64
	Variant TransactionVariant
	Status  TransactionStatus
	Payload []byte
}

type DepositPayload struct {
	Account common.Address
	Amount  *big.Int
}

type WithdrawPayload struct {
	Account common.Address
	To      common.Address
	Amount  *big.Int
}

type CreateProverPayload struct {
	Prover        common.Address
	Owner         common.Address
	StakerFeeBips *big.Int
}

// RewardPayload and SlashPayload are produced off-ledger only.
type RewardPayload struct {
	Prover common.Address
	Amount *big.Int
}

type SlashPayload struct {
	Prover common.Address
	Amount *big.Int
}

// Receipt resolves one action computed off-ledger. OnchainTxID is zero for
// the variants that do not originate on the ledger.
type Receipt struct {
	Variant     TransactionVariant
	Status      TransactionStatus
	OnchainTxID uint64
	Payload     []byte
}

// PublicValues is the statement proven by the off-ledger computation for one
// root transition.
type PublicValues struct {
	Receipts  []*Receipt
	OldRoot   common.Hash
	NewRoot   common.Hash
	Timestamp uint64
}

// WithdrawalClaim is the amount an account can collect from the bridge.
type WithdrawalClaim struct {
	Account common.Address
	Amount  *big.Int
}
