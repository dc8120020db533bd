package types

import "errors"

// Validation errors.
var (
	ErrZeroAmount                       = errors.New("zero amount")
	ErrZeroAddress                      = errors.New("zero address")
	ErrStakeBelowMinimum                = errors.New("stake below minimum")
	ErrTransferBelowMinimum             = errors.New("transfer below minimum")
	ErrAlreadyStakedWithDifferentProver = errors.New("already staked with different prover")
	ErrProverAlreadyExists              = errors.New("prover already exists")
	ErrProverNotFound                   = errors.New("prover not found")
	ErrProverNotActive                  = errors.New("prover not active")
	ErrProverHasSlashRequest            = errors.New("prover has slash request")
	ErrZeroReceiptAmount                = errors.New("zero receipt amount")
	ErrInvalidFeeBips                   = errors.New("fee bips exceed 10000")
	ErrNotStaked                        = errors.New("not staked")
	ErrTooManyUnstakeRequests           = errors.New("too many unstake requests")
	ErrSlashRequestNotFound             = errors.New("slash request not found")
	ErrSlashNotMatured                  = errors.New("slash cancellation period not elapsed")
	ErrVaultDrained                     = errors.New("vault has shares but no assets")
	ErrInvalidDispenseRate              = errors.New("negative dispense rate")
)

// Authorization errors.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignatureExpired = errors.New("signature expired")
)

// Protocol consistency errors raised by the bridge transition.
var (
	ErrInvalidRoot           = errors.New("invalid root")
	ErrInvalidOldRoot        = errors.New("invalid old root")
	ErrInvalidTimestamp      = errors.New("invalid timestamp")
	ErrTimestampInPast       = errors.New("timestamp in past")
	ErrTimestampTooOld       = errors.New("timestamp too old")
	ErrInvalidProof          = errors.New("invalid proof")
	ErrInvalidPublicValues   = errors.New("invalid public values")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrTransactionNotPending = errors.New("transaction not pending")
	ErrTransactionOutOfOrder = errors.New("transaction completed out of order")
	ErrReceiptMismatch       = errors.New("receipt does not match transaction")
	ErrInvalidReceiptStatus  = errors.New("invalid receipt status")
	ErrUnknownVariant        = errors.New("unknown transaction variant")
)

// Resource errors.
var (
	ErrAmountExceedsAvailableDispense = errors.New("amount exceeds available dispense")
	ErrNoWithdrawalToClaim            = errors.New("no withdrawal to claim")
	ErrInsufficientBalance            = errors.New("insufficient balance")
	ErrInsufficientAllowance          = errors.New("insufficient allowance")
	ErrInsufficientStake              = errors.New("insufficient stake")
)

// Paused-state errors.
var (
	ErrPaused                  = errors.New("paused")
	ErrNotPaused               = errors.New("not paused")
	ErrNotFrozen               = errors.New("freeze duration not elapsed")
	ErrInvalidInclusionProof   = errors.New("invalid inclusion proof")
	ErrAlreadyEmergencyClaimed = errors.New("emergency withdrawal already claimed")
	ErrEmergencyMode           = errors.New("emergency withdrawals taken, bridge stays paused")
)
