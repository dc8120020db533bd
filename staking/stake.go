package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/types"
)

// Stake converts amount of the staker's base asset into shares of prover's
// vault. The engine must hold an allowance of at least amount.
func (e *Engine) Stake(staker common.Address, prover common.Address, amount *big.Int) (*big.Int, error) {
	var shares *big.Int
	err := e.store.Atomic(func() error {
		var err error
		shares, err = e.stake(staker, prover, amount)
		return err
	})
	return shares, err
}

// PermitAndStake stakes with a permit signature instead of a prior approval.
// An allowance that already covers amount leaves the signature unused.
func (e *Engine) PermitAndStake(staker common.Address, prover common.Address, amount *big.Int, deadline uint64, sig []byte) (*big.Int, error) {
	var shares *big.Int
	err := e.store.Atomic(func() error {
		if err := e.base.PermitIfNeeded(staker, e.Address, amount, amount, deadline, sig); err != nil {
			return err
		}
		var err error
		shares, err = e.stake(staker, prover, amount)
		return err
	})
	return shares, err
}

func (e *Engine) stake(staker common.Address, prover common.Address, amount *big.Int) (*big.Int, error) {
	if amount.Sign() <= 0 {
		return nil, types.ErrZeroAmount
	}
	p, pv, err := e.prover(prover)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, types.ErrProverNotActive
	}
	open, err := e.OpenSlashCount(prover)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, types.ErrProverHasSlashRequest
	}
	if amount.Cmp(e.params.MinStake) < 0 {
		return nil, types.ErrStakeBelowMinimum
	}
	bound, err := e.StakedTo(staker)
	if err != nil {
		return nil, err
	}
	if bound != (common.Address{}) && bound != prover {
		return nil, types.ErrAlreadyStakedWithDifferentProver
	}

	if err = e.base.TransferFrom(e.Address, staker, e.Address, amount); err != nil {
		return nil, err
	}
	avShares, err := e.assetVault.Deposit(e.Address, amount, e.Address)
	if err != nil {
		return nil, err
	}
	shares, err := pv.Deposit(e.Address, avShares, staker)
	if err != nil {
		return nil, err
	}
	if err = e.store.Set(provernetdb.NamespaceStakerBinding, staker.Bytes(), prover.Bytes()); err != nil {
		return nil, err
	}

	logger.Info().Str("staker", staker.Hex()).Str("prover", prover.Hex()).Str("amount", amount.String()).
		Str("shares", shares.String()).Msg("stake")
	e.store.Emit(&types.StakeEvent{Staker: staker, Prover: prover, Assets: new(big.Int).Set(amount), Shares: shares})
	return shares, nil
}

// RequestUnstake queues shares of the staker's prover vault for withdrawal
// after the unstake period. Queued shares stay staked until then.
func (e *Engine) RequestUnstake(staker common.Address, shares *big.Int) error {
	if shares.Sign() <= 0 {
		return types.ErrZeroAmount
	}
	return e.store.Atomic(func() error {
		prover, err := e.StakedTo(staker)
		if err != nil {
			return err
		}
		if prover == (common.Address{}) {
			return types.ErrNotStaked
		}
		balance, err := e.StakedBalance(staker)
		if err != nil {
			return err
		}
		queue, err := e.UnstakeRequests(staker)
		if err != nil {
			return err
		}
		if len(queue) >= e.params.MaxUnstakeRequests {
			return types.ErrTooManyUnstakeRequests
		}
		reserved := new(big.Int).Set(shares)
		for _, req := range queue {
			reserved.Add(reserved, req.Shares)
		}
		if reserved.Cmp(balance) > 0 {
			return types.ErrInsufficientStake
		}
		queue = append(queue, &types.UnstakeRequest{Shares: new(big.Int).Set(shares), RequestedAt: e.now()})
		if err = e.putQueue(staker, queue); err != nil {
			return err
		}
		logger.Info().Str("staker", staker.Hex()).Str("prover", prover.Hex()).Str("shares", shares.String()).Msg("unstake requested")
		e.store.Emit(&types.UnstakeRequestedEvent{Staker: staker, Prover: prover, Shares: new(big.Int).Set(shares)})
		return nil
	})
}

// FinishUnstake pays out every matured request in FIFO order and returns the
// base asset paid. It unbinds the staker once nothing remains staked.
func (e *Engine) FinishUnstake(staker common.Address) (*big.Int, error) {
	paid := new(big.Int)
	err := e.store.Atomic(func() error {
		prover, err := e.StakedTo(staker)
		if err != nil {
			return err
		}
		if prover == (common.Address{}) {
			return types.ErrNotStaked
		}
		open, err := e.OpenSlashCount(prover)
		if err != nil {
			return err
		}
		if open > 0 {
			return types.ErrProverHasSlashRequest
		}
		_, pv, err := e.prover(prover)
		if err != nil {
			return err
		}
		queue, err := e.UnstakeRequests(staker)
		if err != nil {
			return err
		}

		now := e.now()
		for len(queue) > 0 && now >= queue[0].RequestedAt+e.params.UnstakePeriod {
			req := queue[0]
			queue = queue[1:]
			balance, err := pv.BalanceOf(staker)
			if err != nil {
				return err
			}
			shares := req.Shares
			if shares.Cmp(balance) > 0 {
				shares = balance
			}
			if shares.Sign() == 0 {
				continue
			}
			assets, err := e.redeemThrough(pv, staker, shares, staker)
			if err != nil {
				return err
			}
			paid.Add(paid, assets)
			e.store.Emit(&types.UnstakeEvent{Staker: staker, Prover: prover, Shares: new(big.Int).Set(shares), Assets: assets})
		}
		if err = e.putQueue(staker, queue); err != nil {
			return err
		}

		balance, err := pv.BalanceOf(staker)
		if err != nil {
			return err
		}
		if balance.Sign() == 0 && len(queue) == 0 {
			if err = e.store.Delete(provernetdb.NamespaceStakerBinding, staker.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if paid.Sign() > 0 {
		logger.Info().Str("staker", staker.Hex()).Str("assets", paid.String()).Msg("unstake")
	}
	return paid, nil
}

func (e *Engine) putQueue(staker common.Address, queue []*types.UnstakeRequest) error {
	if len(queue) == 0 {
		return e.store.Delete(provernetdb.NamespaceUnstakeQueue, staker.Bytes())
	}
	return e.store.SetRLP(provernetdb.NamespaceUnstakeQueue, staker.Bytes(), queue)
}
