package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BipsDenominator is the fee unit: 10000 bips = 100%.
const BipsDenominator = 10000

// Prover is created once per owner. ID and Vault never change afterwards.
type Prover struct {
	ID            uint64
	Vault         common.Address
	Owner         common.Address
	StakerFeeBips uint64
	Active        bool
}

// UnstakeRequest matures at RequestedAt + unstakePeriod.
type UnstakeRequest struct {
	Shares      *big.Int
	RequestedAt uint64
}

type SlashStatus uint8

const (
	SlashStatusOpen SlashStatus = iota
	SlashStatusCancelled
	SlashStatusFinished
)

// SlashRequest defers burning Amount asset vault shares from a prover vault.
type SlashRequest struct {
	Prover      common.Address
	Amount      *big.Int
	RequestedAt uint64
	Index       uint64
	Status      SlashStatus
}

// DispenseSchedule tracks the emission earned at a piecewise-constant rate.
type DispenseSchedule struct {
	Rate               *big.Int
	RateChangedAt      uint64
	EarnedAtLastChange *big.Int
	Distributed        *big.Int
}

// Earned returns the emission accrued up to now.
func (d *DispenseSchedule) Earned(now uint64) *big.Int {
	earned := new(big.Int).Set(d.EarnedAtLastChange)
	if now > d.RateChangedAt {
		elapsed := new(big.Int).SetUint64(now - d.RateChangedAt)
		earned.Add(earned, elapsed.Mul(elapsed, d.Rate))
	}
	return earned
}

// Available returns the earned but not yet distributed emission.
func (d *DispenseSchedule) Available(now uint64) *big.Int {
	available := d.Earned(now)
	available.Sub(available, d.Distributed)
	if available.Sign() < 0 {
		return new(big.Int)
	}
	return available
}

// StateRoot is one entry of the root chain. Index 0 is genesis.
type StateRoot struct {
	BlockNumber uint64
	Root        common.Hash
	Timestamp   uint64
}
