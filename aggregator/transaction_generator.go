package aggregator

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/celer-network/go-provernet/types"
)

type slashDirective struct {
	prover common.Address
	amount *big.Int
}

// TransactionGenerator collects the input of the next block: pending
// transactions read from the ledger plus the reward and slash directives
// queued off-ledger.
type TransactionGenerator struct {
	ledger  Ledger
	lock    sync.Mutex
	charges []*types.Charge
	slashes []*slashDirective
}

func NewTransactionGenerator(ledger Ledger) *TransactionGenerator {
	return &TransactionGenerator{ledger: ledger}
}

func (tg *TransactionGenerator) QueueCharge(requester common.Address, prover common.Address, amount *big.Int) {
	tg.lock.Lock()
	defer tg.lock.Unlock()
	tg.charges = append(tg.charges, &types.Charge{Requester: requester, Prover: prover, Amount: new(big.Int).Set(amount)})
}

func (tg *TransactionGenerator) QueueSlash(prover common.Address, amount *big.Int) {
	tg.lock.Lock()
	defer tg.lock.Unlock()
	tg.slashes = append(tg.slashes, &slashDirective{prover: prover, amount: new(big.Int).Set(amount)})
}

// Queued returns the number of directives waiting for a block.
func (tg *TransactionGenerator) Queued() int {
	tg.lock.Lock()
	defer tg.lock.Unlock()
	return len(tg.charges) + len(tg.slashes)
}

func (tg *TransactionGenerator) pending(limit int) ([]*types.PendingTransaction, error) {
	return tg.ledger.PendingTransactions(limit)
}

// take empties the directive queues.
func (tg *TransactionGenerator) take() ([]*types.Charge, []*slashDirective) {
	tg.lock.Lock()
	defer tg.lock.Unlock()
	charges, slashes := tg.charges, tg.slashes
	tg.charges, tg.slashes = nil, nil
	return charges, slashes
}

// requeue puts directives back in front of anything queued since take.
func (tg *TransactionGenerator) requeue(charges []*types.Charge, slashes []*slashDirective) {
	tg.lock.Lock()
	defer tg.lock.Unlock()
	tg.charges = append(charges, tg.charges...)
	tg.slashes = append(slashes, tg.slashes...)
}
