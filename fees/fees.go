// Package fees splits a prover reward between the protocol, the prover's
// stakers and the prover's owner.
package fees

import (
	"math/big"

	"github.com/celer-network/go-provernet/types"
)

// Split divides total so that the three portions always sum to total:
//
//	protocolFee  = floor(total * protocolBips / 10000)
//	stakerReward = floor((total - protocolFee) * stakerBips / 10000)
//	ownerReward  = total - protocolFee - stakerReward
func Split(total *big.Int, protocolBips uint64, stakerBips uint64) (protocolFee, stakerReward, ownerReward *big.Int, err error) {
	if protocolBips > types.BipsDenominator || stakerBips > types.BipsDenominator {
		return nil, nil, nil, types.ErrInvalidFeeBips
	}
	if total.Sign() < 0 {
		return nil, nil, nil, types.ErrZeroAmount
	}
	protocolFee = mulBips(total, protocolBips)
	remaining := new(big.Int).Sub(total, protocolFee)
	stakerReward = mulBips(remaining, stakerBips)
	ownerReward = remaining.Sub(remaining, stakerReward)
	return protocolFee, stakerReward, ownerReward, nil
}

func mulBips(amount *big.Int, bips uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bips))
	return out.Quo(out, big.NewInt(types.BipsDenominator))
}
