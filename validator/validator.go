// Package validator re-executes every published block on an independent
// state machine and trips the bridge circuit breaker when the committed root
// cannot be reproduced.
package validator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/statemachine"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("validator")

var (
	ErrDivergence = errors.New("block diverges from replay")
	ErrOutOfSync  = errors.New("validator state does not match block parent")
)

// Ledger exposes the committed root chain.
type Ledger interface {
	StateRoot(blockNumber uint64) (*types.StateRoot, error)
}

// Pauser halts the bridge. It is called with the owner's authority.
type Pauser func(reason string) error

type Validator struct {
	serializer   *types.Serializer
	stateMachine *statemachine.StateMachine
	ledger       Ledger
	pause        Pauser

	lock    sync.Mutex
	tripped bool
}

func NewValidator(
	serializer *types.Serializer,
	stateMachine *statemachine.StateMachine,
	ledger Ledger,
	pause Pauser,
) *Validator {
	return &Validator{
		serializer:   serializer,
		stateMachine: stateMachine,
		ledger:       ledger,
		pause:        pause,
	}
}

// Tripped reports whether the validator paused the bridge.
func (v *Validator) Tripped() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.tripped
}

// HandleBlock validates a block delivered by the aggregator.
func (v *Validator) HandleBlock(block *types.Block) {
	if err := v.ValidateBlock(block); err != nil {
		logger.Error().Err(err).Uint64("blockNumber", block.Number).Msg("validate block")
	}
}

// ValidateBlock replays block and compares the result with the root the
// ledger committed. A divergence pauses the bridge.
func (v *Validator) ValidateBlock(block *types.Block) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	pv := block.PublicValues
	if v.stateMachine.Root() != pv.OldRoot {
		return fmt.Errorf("%w: local %s, parent %s", ErrOutOfSync, v.stateMachine.Root().Hex(), pv.OldRoot.Hex())
	}
	committed, err := v.ledger.StateRoot(block.Number)
	if err != nil {
		return err
	}
	if committed.Root != pv.NewRoot {
		return v.trip(block, fmt.Errorf("published root %s, committed %s", pv.NewRoot.Hex(), committed.Root.Hex()))
	}

	parent := v.stateMachine.Root()
	if err = v.replay(block); err != nil {
		if rbErr := v.stateMachine.Rollback(parent); rbErr != nil {
			logger.Error().Err(rbErr).Msg("roll back state machine")
		}
		return v.trip(block, err)
	}
	root, err := v.stateMachine.Seal(block.Number)
	if err != nil {
		return err
	}
	if root != committed.Root {
		if rbErr := v.stateMachine.Rollback(parent); rbErr != nil {
			logger.Error().Err(rbErr).Msg("roll back state machine")
		}
		return v.trip(block, fmt.Errorf("replayed root %s, committed %s", root.Hex(), committed.Root.Hex()))
	}
	if err = v.stateMachine.Commit(); err != nil {
		return err
	}
	logger.Debug().Uint64("blockNumber", block.Number).Str("root", root.Hex()).Msg("block validated")
	return nil
}

func (v *Validator) replay(block *types.Block) error {
	charges := block.Charges
	for i, receipt := range block.PublicValues.Receipts {
		switch receipt.Variant {
		case types.TransactionVariantDeposit:
			deposit, err := v.serializer.DeserializeDeposit(receipt.Payload)
			if err != nil {
				return err
			}
			if err = v.stateMachine.Credit(deposit.Account, deposit.Amount); err != nil {
				return err
			}
		case types.TransactionVariantWithdraw:
			withdraw, err := v.serializer.DeserializeWithdraw(receipt.Payload)
			if err != nil {
				return err
			}
			if err = v.stateMachine.Debit(withdraw.Account, withdraw.Amount); err != nil {
				return fmt.Errorf("receipt %d: %w", i, err)
			}
		case types.TransactionVariantReward:
			reward, err := v.serializer.DeserializeReward(receipt.Payload)
			if err != nil {
				return err
			}
			if len(charges) == 0 {
				return fmt.Errorf("receipt %d: reward without charge", i)
			}
			charge := charges[0]
			charges = charges[1:]
			if charge.Prover != reward.Prover || charge.Amount.Cmp(reward.Amount) != 0 {
				return fmt.Errorf("receipt %d: charge does not match reward", i)
			}
			if err = v.stateMachine.Debit(charge.Requester, charge.Amount); err != nil {
				return fmt.Errorf("receipt %d: %w", i, err)
			}
		case types.TransactionVariantCreateProver, types.TransactionVariantSlash:
		default:
			return types.ErrUnknownVariant
		}
	}
	if len(charges) > 0 {
		return fmt.Errorf("%d charges without reward", len(charges))
	}
	return nil
}

func (v *Validator) trip(block *types.Block, cause error) error {
	err := fmt.Errorf("%w: block %d: %v", ErrDivergence, block.Number, cause)
	logger.Warn().Err(err).Msg("pausing bridge")
	if v.tripped {
		return err
	}
	if pauseErr := v.pause(err.Error()); pauseErr != nil && !errors.Is(pauseErr, types.ErrPaused) {
		logger.Error().Err(pauseErr).Msg("pause bridge")
		return err
	}
	v.tripped = true
	return err
}
