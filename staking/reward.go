package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/fees"
	"github.com/celer-network/go-provernet/types"
)

// ProcessReward pays amount of the bridge's base asset for work done by
// prover. The staker portion is deposited into the asset vault on behalf of
// the prover vault, so only that prover's stakers gain.
func (e *Engine) ProcessReward(caller common.Address, prover common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return types.ErrZeroAmount
	}
	return e.store.Atomic(func() error {
		if err := e.onlyRole(caller, roleBridge); err != nil {
			return err
		}
		p, pv, err := e.prover(prover)
		if err != nil {
			return err
		}
		staked, err := pv.TotalShares()
		if err != nil {
			return err
		}
		if staked.Sign() == 0 {
			return types.ErrNotStaked
		}
		protocolFee, stakerReward, ownerReward, err := fees.Split(amount, e.params.ProtocolFeeBips, p.StakerFeeBips)
		if err != nil {
			return err
		}

		if err = e.base.Transfer(caller, e.Address, amount); err != nil {
			return err
		}
		if stakerReward.Sign() > 0 {
			avShares, err := e.assetVault.PreviewDeposit(stakerReward)
			if err != nil {
				return err
			}
			if avShares.Sign() > 0 {
				if _, err = e.assetVault.Deposit(e.Address, stakerReward, p.Vault); err != nil {
					return err
				}
			} else {
				// Too small to mint a share, the owner takes it.
				ownerReward.Add(ownerReward, stakerReward)
				stakerReward = new(big.Int)
			}
		}
		if protocolFee.Sign() > 0 {
			if err = e.base.Transfer(e.Address, e.params.FeeRecipient, protocolFee); err != nil {
				return err
			}
		}
		if ownerReward.Sign() > 0 {
			if err = e.base.Transfer(e.Address, p.Owner, ownerReward); err != nil {
				return err
			}
		}

		logger.Info().Str("prover", prover.Hex()).Str("protocolFee", protocolFee.String()).
			Str("stakerReward", stakerReward.String()).Str("ownerReward", ownerReward.String()).Msg("reward")
		e.store.Emit(&types.RewardEvent{
			Prover:       prover,
			ProtocolFee:  protocolFee,
			StakerReward: stakerReward,
			OwnerReward:  ownerReward,
		})
		return nil
	})
}

// RequestSlash opens a slash of amount asset vault shares against prover.
// It takes effect only through FinishSlash after the cancellation period.
func (e *Engine) RequestSlash(caller common.Address, prover common.Address, amount *big.Int) (uint64, error) {
	if amount.Sign() <= 0 {
		return 0, types.ErrZeroAmount
	}
	var index uint64
	err := e.store.Atomic(func() error {
		if err := e.onlyRole(caller, roleBridge); err != nil {
			return err
		}
		if _, err := e.registry.ProverByVault(prover); err != nil {
			return err
		}
		requests, err := e.SlashRequests(prover)
		if err != nil {
			return err
		}
		index = uint64(len(requests))
		requests = append(requests, &types.SlashRequest{
			Prover:      prover,
			Amount:      new(big.Int).Set(amount),
			RequestedAt: e.now(),
			Index:       index,
			Status:      types.SlashStatusOpen,
		})
		if err = e.putSlashRequests(prover, requests); err != nil {
			return err
		}
		if err = e.addOpenSlashes(prover, 1); err != nil {
			return err
		}
		logger.Warn().Str("prover", prover.Hex()).Str("amount", amount.String()).Uint64("index", index).Msg("slash requested")
		e.store.Emit(&types.SlashRequestedEvent{Prover: prover, Amount: new(big.Int).Set(amount), Index: index})
		return nil
	})
	return index, err
}

// CancelSlash drops an open slash request.
func (e *Engine) CancelSlash(caller common.Address, prover common.Address, index uint64) error {
	return e.store.Atomic(func() error {
		if err := e.onlyRole(caller, roleOwner); err != nil {
			return err
		}
		requests, req, err := e.openSlash(prover, index)
		if err != nil {
			return err
		}
		req.Status = types.SlashStatusCancelled
		if err = e.putSlashRequests(prover, requests); err != nil {
			return err
		}
		if err = e.addOpenSlashes(prover, -1); err != nil {
			return err
		}
		logger.Info().Str("prover", prover.Hex()).Uint64("index", index).Msg("slash cancelled")
		e.store.Emit(&types.SlashCancelledEvent{Prover: prover, Index: index})
		return nil
	})
}

// FinishSlash burns the requested asset vault shares from the prover vault
// once the cancellation period passed. A prover left without stake is
// deactivated.
func (e *Engine) FinishSlash(caller common.Address, prover common.Address, index uint64) (*big.Int, error) {
	var burned *big.Int
	err := e.store.Atomic(func() error {
		if err := e.onlyRole(caller, roleOwner); err != nil {
			return err
		}
		requests, req, err := e.openSlash(prover, index)
		if err != nil {
			return err
		}
		if e.now() < req.RequestedAt+e.params.SlashCancellationPeriod {
			return types.ErrSlashNotMatured
		}

		held, err := e.assetVault.BalanceOf(prover)
		if err != nil {
			return err
		}
		burned = new(big.Int).Set(req.Amount)
		if burned.Cmp(held) > 0 {
			burned.Set(held)
		}
		if burned.Sign() > 0 {
			assets, err := redeemOrBurn(e.assetVault, prover, burned, e.Address)
			if err != nil {
				return err
			}
			if assets.Sign() > 0 {
				if err = e.base.Burn(e.Address, assets); err != nil {
					return err
				}
			}
		}

		req.Status = types.SlashStatusFinished
		if err = e.putSlashRequests(prover, requests); err != nil {
			return err
		}
		if err = e.addOpenSlashes(prover, -1); err != nil {
			return err
		}
		if held.Cmp(burned) == 0 {
			if err = e.registry.Deactivate(e.Address, prover); err != nil {
				return err
			}
		}
		logger.Warn().Str("prover", prover.Hex()).Str("amount", burned.String()).Uint64("index", index).Msg("slash")
		e.store.Emit(&types.SlashEvent{Prover: prover, Amount: new(big.Int).Set(burned), Index: index})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return burned, nil
}

func (e *Engine) openSlash(prover common.Address, index uint64) ([]*types.SlashRequest, *types.SlashRequest, error) {
	requests, err := e.SlashRequests(prover)
	if err != nil {
		return nil, nil, err
	}
	if index >= uint64(len(requests)) || requests[index].Status != types.SlashStatusOpen {
		return nil, nil, types.ErrSlashRequestNotFound
	}
	return requests, requests[index], nil
}

func (e *Engine) putSlashRequests(prover common.Address, requests []*types.SlashRequest) error {
	return e.store.SetRLP(provernetdb.NamespaceSlashRequests, prover.Bytes(), requests)
}

func (e *Engine) addOpenSlashes(prover common.Address, delta int) error {
	open, err := e.OpenSlashCount(prover)
	if err != nil {
		return err
	}
	return e.store.SetUint64(provernetdb.NamespaceOpenSlashes, prover.Bytes(), uint64(int64(open)+int64(delta)))
}
