package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Charge is the off-ledger side of a reward receipt: the requester whose
// balance pays the prover.
type Charge struct {
	Requester common.Address
	Prover    common.Address
	Amount    *big.Int
}

// Block is what the aggregator publishes for every submitted transition.
// Charges line up with the reward receipts of PublicValues in order.
type Block struct {
	Number       uint64
	PublicValues *PublicValues
	Encoded      []byte
	Proof        []byte
	Charges      []*Charge
}

// EmergencyProof is what an account submits to withdraw while the bridge is
// frozen.
type EmergencyProof struct {
	Account common.Address
	Balance *big.Int
	Proof   [][]byte
}
