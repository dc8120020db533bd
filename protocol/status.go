package protocol

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Status is a snapshot of the ledger for operators.
type Status struct {
	BlockNumber       uint64
	Root              common.Hash
	Timestamp         uint64
	Paused            bool
	PausedAt          uint64
	PendingTxs        uint64
	FinalizedTxID     uint64
	Provers           uint64
	Escrow            *big.Int
	AssetVaultAssets  *big.Int
	AssetVaultShares  *big.Int
	DispenseAvailable *big.Int
}

func (p *Protocol) Status() (*Status, error) {
	head, err := p.Bridge.Head()
	if err != nil {
		return nil, err
	}
	s := &Status{BlockNumber: head.BlockNumber, Root: head.Root, Timestamp: head.Timestamp}
	if s.Paused, err = p.Bridge.Paused(); err != nil {
		return nil, err
	}
	if s.PausedAt, err = p.Bridge.PausedAt(); err != nil {
		return nil, err
	}
	if s.FinalizedTxID, err = p.Bridge.FinalizedTxID(); err != nil {
		return nil, err
	}
	next, err := p.Bridge.NextTxID()
	if err != nil {
		return nil, err
	}
	s.PendingTxs = next - 1 - s.FinalizedTxID
	if s.Provers, err = p.Registry.Count(); err != nil {
		return nil, err
	}
	if s.Escrow, err = p.Base.BalanceOf(BridgeAddress); err != nil {
		return nil, err
	}
	if s.AssetVaultAssets, err = p.AssetVault.TotalAssets(); err != nil {
		return nil, err
	}
	if s.AssetVaultShares, err = p.AssetVault.TotalShares(); err != nil {
		return nil, err
	}
	if s.DispenseAvailable, err = p.Engine.MaxDispense(); err != nil {
		return nil, err
	}
	return s, nil
}
