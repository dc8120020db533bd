package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/types"
)

// DispenseAll is the amount sentinel that dispenses everything available.
var DispenseAll = math.MaxBig256

// Dispense credits amount of the engine's base asset reserve to the asset
// vault, raising the share price for every staker.
func (e *Engine) Dispense(caller common.Address, amount *big.Int) (*big.Int, error) {
	var dispensed *big.Int
	err := e.store.Atomic(func() error {
		if err := e.onlyRole(caller, roleDispenser); err != nil {
			return err
		}
		schedule, err := e.DispenseSchedule()
		if err != nil {
			return err
		}
		available := schedule.Available(e.now())
		dispensed = new(big.Int).Set(amount)
		if amount.Cmp(DispenseAll) == 0 {
			dispensed.Set(available)
		}
		if dispensed.Sign() <= 0 {
			return types.ErrZeroAmount
		}
		if dispensed.Cmp(available) > 0 {
			return types.ErrAmountExceedsAvailableDispense
		}
		schedule.Distributed.Add(schedule.Distributed, dispensed)
		if err = e.putSchedule(schedule); err != nil {
			return err
		}
		if err = e.assetVault.Donate(e.Address, dispensed); err != nil {
			return err
		}
		e.store.Emit(&types.DispenseEvent{Amount: new(big.Int).Set(dispensed)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("amount", dispensed.String()).Msg("dispense")
	return dispensed, nil
}

// UpdateDispenseRate snapshots what was earned under the old rate and
// continues accruing at newRate from now.
func (e *Engine) UpdateDispenseRate(caller common.Address, newRate *big.Int) error {
	if newRate.Sign() < 0 {
		return types.ErrInvalidDispenseRate
	}
	return e.store.Atomic(func() error {
		if err := e.onlyRole(caller, roleOwner); err != nil {
			return err
		}
		schedule, err := e.DispenseSchedule()
		if err != nil {
			return err
		}
		now := e.now()
		oldRate := schedule.Rate
		schedule.EarnedAtLastChange = schedule.Earned(now)
		schedule.RateChangedAt = now
		schedule.Rate = new(big.Int).Set(newRate)
		if err = e.putSchedule(schedule); err != nil {
			return err
		}
		logger.Info().Str("oldRate", oldRate.String()).Str("newRate", newRate.String()).Msg("dispense rate updated")
		e.store.Emit(&types.DispenseRateUpdatedEvent{OldRate: oldRate, NewRate: new(big.Int).Set(newRate)})
		return nil
	})
}

// MaxDispense returns the earned emission not yet dispensed.
func (e *Engine) MaxDispense() (*big.Int, error) {
	schedule, err := e.DispenseSchedule()
	if err != nil {
		return nil, err
	}
	return schedule.Available(e.now()), nil
}

func (e *Engine) DispenseSchedule() (*types.DispenseSchedule, error) {
	schedule := &types.DispenseSchedule{}
	exists, err := e.store.GetRLP(provernetdb.NamespaceDispense, provernetdb.EmptyKey, schedule)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &types.DispenseSchedule{
			Rate:               new(big.Int),
			RateChangedAt:      e.now(),
			EarnedAtLastChange: new(big.Int),
			Distributed:        new(big.Int),
		}, nil
	}
	return schedule, nil
}

func (e *Engine) putSchedule(schedule *types.DispenseSchedule) error {
	return e.store.SetRLP(provernetdb.NamespaceDispense, provernetdb.EmptyKey, schedule)
}
