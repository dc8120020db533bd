package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/types"
)

// StakedTo returns the prover the staker is bound to, or the zero address.
func (e *Engine) StakedTo(staker common.Address) (common.Address, error) {
	data, _, err := e.store.Get(provernetdb.NamespaceStakerBinding, staker.Bytes())
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(data), nil
}

// StakedBalance returns the staker's prover vault shares.
func (e *Engine) StakedBalance(staker common.Address) (*big.Int, error) {
	prover, err := e.StakedTo(staker)
	if err != nil {
		return nil, err
	}
	if prover == (common.Address{}) {
		return new(big.Int), nil
	}
	_, pv, err := e.prover(prover)
	if err != nil {
		return nil, err
	}
	return pv.BalanceOf(staker)
}

func (e *Engine) UnstakeRequests(staker common.Address) ([]*types.UnstakeRequest, error) {
	var queue []*types.UnstakeRequest
	if _, err := e.store.GetRLP(provernetdb.NamespaceUnstakeQueue, staker.Bytes(), &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

func (e *Engine) SlashRequests(prover common.Address) ([]*types.SlashRequest, error) {
	var requests []*types.SlashRequest
	if _, err := e.store.GetRLP(provernetdb.NamespaceSlashRequests, prover.Bytes(), &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (e *Engine) OpenSlashCount(prover common.Address) (uint64, error) {
	return e.store.GetUint64(provernetdb.NamespaceOpenSlashes, prover.Bytes())
}

// PreviewUnstake returns the base asset that shares of prover's vault are
// currently worth.
func (e *Engine) PreviewUnstake(prover common.Address, shares *big.Int) (*big.Int, error) {
	_, pv, err := e.prover(prover)
	if err != nil {
		return nil, err
	}
	avShares, err := pv.PreviewRedeem(shares)
	if err != nil {
		return nil, err
	}
	return e.assetVault.PreviewRedeem(avShares)
}

// ProverStake returns the base asset value staked to prover.
func (e *Engine) ProverStake(prover common.Address) (*big.Int, error) {
	held, err := e.assetVault.BalanceOf(prover)
	if err != nil {
		return nil, err
	}
	return e.assetVault.PreviewRedeem(held)
}
