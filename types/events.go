package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is emitted by ledger entry points. Events of a failed call are dropped.
type Event interface {
	EventName() string
}

type TransferEvent struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
}

type ApprovalEvent struct {
	Token   common.Address
	Owner   common.Address
	Spender common.Address
	Amount  *big.Int
}

type DepositEvent struct {
	TxID    uint64
	Account common.Address
	Amount  *big.Int
}

type WithdrawRequestedEvent struct {
	TxID    uint64
	Account common.Address
	To      common.Address
	Amount  *big.Int
}

type ProverCreatedEvent struct {
	ID            uint64
	Prover        common.Address
	Owner         common.Address
	StakerFeeBips uint64
}

type TransactionPendingEvent struct {
	TxID    uint64
	Variant TransactionVariant
}

type TransactionCompletedEvent struct {
	TxID    uint64
	Variant TransactionVariant
}

type BlockCommittedEvent struct {
	BlockNumber uint64
	OldRoot     common.Hash
	NewRoot     common.Hash
	Timestamp   uint64
	Receipts    int
}

type ForkEvent struct {
	BlockNumber uint64
	VKey        common.Hash
	OldRoot     common.Hash
	NewRoot     common.Hash
}

type WithdrawalClaimCreatedEvent struct {
	Account common.Address
	Amount  *big.Int
}

type WithdrawalClaimedEvent struct {
	Account common.Address
	Amount  *big.Int
}

type EmergencyWithdrawalEvent struct {
	Account common.Address
	Amount  *big.Int
	Root    common.Hash
}

type PausedEvent struct {
	At uint64
}

type UnpausedEvent struct {
	At uint64
}

type StakeEvent struct {
	Staker common.Address
	Prover common.Address
	Assets *big.Int
	Shares *big.Int
}

type UnstakeRequestedEvent struct {
	Staker common.Address
	Prover common.Address
	Shares *big.Int
}

type UnstakeEvent struct {
	Staker common.Address
	Prover common.Address
	Shares *big.Int
	Assets *big.Int
}

type DispenseEvent struct {
	Amount *big.Int
}

type DispenseRateUpdatedEvent struct {
	OldRate *big.Int
	NewRate *big.Int
}

type RewardEvent struct {
	Prover       common.Address
	ProtocolFee  *big.Int
	StakerReward *big.Int
	OwnerReward  *big.Int
}

type SlashRequestedEvent struct {
	Prover common.Address
	Amount *big.Int
	Index  uint64
}

type SlashCancelledEvent struct {
	Prover common.Address
	Index  uint64
}

type SlashEvent struct {
	Prover common.Address
	Amount *big.Int
	Index  uint64
}

type ProverDeactivatedEvent struct {
	Prover common.Address
}

func (*TransferEvent) EventName() string               { return "Transfer" }
func (*ApprovalEvent) EventName() string               { return "Approval" }
func (*DepositEvent) EventName() string                { return "Deposit" }
func (*WithdrawRequestedEvent) EventName() string      { return "WithdrawRequested" }
func (*ProverCreatedEvent) EventName() string          { return "ProverCreated" }
func (*TransactionPendingEvent) EventName() string     { return "TransactionPending" }
func (*TransactionCompletedEvent) EventName() string   { return "TransactionCompleted" }
func (*BlockCommittedEvent) EventName() string         { return "BlockCommitted" }
func (*ForkEvent) EventName() string                   { return "Fork" }
func (*WithdrawalClaimCreatedEvent) EventName() string { return "WithdrawalClaimCreated" }
func (*WithdrawalClaimedEvent) EventName() string      { return "WithdrawalClaimed" }
func (*EmergencyWithdrawalEvent) EventName() string    { return "EmergencyWithdrawal" }
func (*PausedEvent) EventName() string                 { return "Paused" }
func (*UnpausedEvent) EventName() string               { return "Unpaused" }
func (*StakeEvent) EventName() string                  { return "Stake" }
func (*UnstakeRequestedEvent) EventName() string       { return "UnstakeRequested" }
func (*UnstakeEvent) EventName() string                { return "Unstake" }
func (*DispenseEvent) EventName() string               { return "Dispense" }
func (*DispenseRateUpdatedEvent) EventName() string    { return "DispenseRateUpdated" }
func (*RewardEvent) EventName() string                 { return "Reward" }
func (*SlashRequestedEvent) EventName() string         { return "SlashRequested" }
func (*SlashCancelledEvent) EventName() string         { return "SlashCancelled" }
func (*SlashEvent) EventName() string                  { return "Slash" }
func (*ProverDeactivatedEvent) EventName() string      { return "ProverDeactivated" }
