// Package aggregator builds blocks off-ledger. It applies the pending
// transactions and queued directives to its state machine, proves the
// resulting public values and submits them to the bridge.
package aggregator

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	"github.com/celer-network/go-provernet/bridge"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/statemachine"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("aggregator")

var ErrOutOfSync = errors.New("state machine root differs from ledger head")

// Ledger is the part of the bridge the aggregator reads and submits to.
type Ledger interface {
	Head() (*types.StateRoot, error)
	PendingTransactions(limit int) ([]*types.PendingTransaction, error)
	Step(caller common.Address, publicValues []byte, proof []byte) error
}

// Prover produces the proof of a public values digest.
type Prover interface {
	Prove(publicValuesDigest common.Hash) ([]byte, error)
}

type Aggregator struct {
	stateMachine   *statemachine.StateMachine
	serializer     *types.Serializer
	clock          clock.Clock
	ledger         Ledger
	prover         Prover
	txGenerator    *TransactionGenerator
	blockSubmitter *BlockSubmitter
	maxBlockTxs    int

	lock      sync.Mutex
	listeners []func(*types.Block)
}

func NewAggregator(
	ledger Ledger,
	stateMachine *statemachine.StateMachine,
	serializer *types.Serializer,
	clk clock.Clock,
	prover Prover,
	sequencer common.Address,
	maxBlockTxs int,
) *Aggregator {
	return &Aggregator{
		stateMachine:   stateMachine,
		serializer:     serializer,
		clock:          clk,
		ledger:         ledger,
		prover:         prover,
		txGenerator:    NewTransactionGenerator(ledger),
		blockSubmitter: NewBlockSubmitter(ledger, sequencer),
		maxBlockTxs:    maxBlockTxs,
	}
}

// QueueCharge schedules a reward paid by requester's off-ledger balance.
func (a *Aggregator) QueueCharge(requester common.Address, prover common.Address, amount *big.Int) {
	a.txGenerator.QueueCharge(requester, prover, amount)
}

// QueueSlash schedules a slash request against prover.
func (a *Aggregator) QueueSlash(prover common.Address, amount *big.Int) {
	a.txGenerator.QueueSlash(prover, amount)
}

// OnBlock registers fn to run after every committed block.
func (a *Aggregator) OnBlock(fn func(*types.Block)) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *Aggregator) StateMachine() *statemachine.StateMachine {
	return a.stateMachine
}

// HasWork reports whether a block would carry anything.
func (a *Aggregator) HasWork() (bool, error) {
	if a.txGenerator.Queued() > 0 {
		return true, nil
	}
	pending, err := a.txGenerator.pending(1)
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

// ProduceBlock builds, proves and submits the next block. On failure the
// state machine is rolled back to the ledger head.
func (a *Aggregator) ProduceBlock() (*types.Block, error) {
	a.lock.Lock()
	defer a.lock.Unlock()

	head, err := a.ledger.Head()
	if err != nil {
		return nil, err
	}
	if a.stateMachine.Root() != head.Root {
		return nil, fmt.Errorf("%w: local %s, head %s", ErrOutOfSync, a.stateMachine.Root().Hex(), head.Root.Hex())
	}
	txs, err := a.txGenerator.pending(a.maxBlockTxs)
	if err != nil {
		return nil, err
	}
	charges, slashes := a.txGenerator.take()

	block, err := a.buildBlock(head, txs, charges, slashes)
	if err == nil {
		err = a.blockSubmitter.submitBlock(block)
	}
	if err != nil {
		if rbErr := a.stateMachine.Rollback(head.Root); rbErr != nil {
			logger.Error().Err(rbErr).Msg("roll back state machine")
		}
		if errors.Is(err, types.ErrPaused) {
			a.txGenerator.requeue(charges, slashes)
		} else if len(charges)+len(slashes) > 0 {
			logger.Warn().Err(err).Int("charges", len(charges)).Int("slashes", len(slashes)).Msg("drop directives of failed block")
		}
		return nil, err
	}
	if err = a.stateMachine.Commit(); err != nil {
		return nil, err
	}
	logger.Info().Uint64("blockNumber", block.Number).Int("transactions", len(txs)).
		Int("charges", len(block.Charges)).Int("slashes", len(slashes)).Msg("block produced")
	for _, fn := range a.listeners {
		fn(block)
	}
	return block, nil
}

func (a *Aggregator) buildBlock(
	head *types.StateRoot,
	txs []*types.PendingTransaction,
	charges []*types.Charge,
	slashes []*slashDirective,
) (*types.Block, error) {
	block := &types.Block{Number: head.BlockNumber + 1}
	var receipts []*types.Receipt
	for _, tx := range txs {
		receipt, err := a.stateMachine.ApplyTransaction(tx)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", tx.ID, err)
		}
		receipts = append(receipts, receipt)
	}
	for _, charge := range charges {
		receipt, err := a.stateMachine.ApplyCharge(charge)
		if errors.Is(err, types.ErrInsufficientBalance) {
			logger.Warn().Str("requester", charge.Requester.Hex()).Str("amount", charge.Amount.String()).Msg("skip unfunded charge")
			continue
		}
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
		block.Charges = append(block.Charges, charge)
	}
	for _, slash := range slashes {
		receipt, err := a.stateMachine.SlashReceipt(slash.prover, slash.amount)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}

	newRoot, err := a.stateMachine.Seal(block.Number)
	if err != nil {
		return nil, err
	}
	timestamp := uint64(a.clock.Now().Unix())
	if timestamp < head.Timestamp {
		timestamp = head.Timestamp
	}
	block.PublicValues = &types.PublicValues{
		Receipts:  receipts,
		OldRoot:   head.Root,
		NewRoot:   newRoot,
		Timestamp: timestamp,
	}
	if block.Encoded, err = a.serializer.SerializePublicValues(block.PublicValues); err != nil {
		return nil, err
	}
	if block.Proof, err = a.prover.Prove(bridge.PublicValuesDigest(block.Encoded)); err != nil {
		return nil, err
	}
	return block, nil
}
