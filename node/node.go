// Package node runs the off-ledger services against one ledger: the
// aggregator and its block producer, a validator replica and the
// withdrawal relayer. Everything runs on the goroutine driving the
// producer, since the ledger store is single-threaded.
package node

import (
	"context"
	"crypto/ecdsa"
	"errors"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/celer-network/go-provernet/aggregator"
	"github.com/celer-network/go-provernet/blockproducer"
	"github.com/celer-network/go-provernet/config"
	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/metrics"
	"github.com/celer-network/go-provernet/protocol"
	"github.com/celer-network/go-provernet/relayer"
	"github.com/celer-network/go-provernet/statemachine"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/types"
	"github.com/celer-network/go-provernet/validator"
	"github.com/celer-network/go-provernet/verifier"
)

var logger = log.NewLogger("node")

type Config struct {
	Params  *config.Params
	Genesis *config.Genesis
	Clock   clock.Clock
	// ProofKey signs block attestations. Params.VKey is derived from it when
	// left empty.
	ProofKey *ecdsa.PrivateKey

	LedgerDB     provernetdb.DB
	AggregatorDB provernetdb.DB
	ValidatorDB  provernetdb.DB

	// Registerer receives the ledger metrics when set.
	Registerer prometheus.Registerer
}

type Node struct {
	Protocol   *protocol.Protocol
	Aggregator *aggregator.Aggregator
	Validator  *validator.Validator
	Relayer    *relayer.WithdrawManager
	Producer   *blockproducer.BlockProducer
	Metrics    *metrics.Metrics
}

func New(cfg *Config) (*Node, error) {
	if cfg.ProofKey == nil {
		return nil, errors.New("missing proof key")
	}
	params := *cfg.Params
	signer := verifier.NewSigner(types.MustNewSerializer(), cfg.ProofKey)
	if params.VKeyHash() == (common.Hash{}) {
		params.VKey = signer.VKey().Hex()
	}

	store := storage.NewStore(cfg.LedgerDB)
	n := &Node{}
	if cfg.Registerer != nil {
		n.Metrics = metrics.New(cfg.Registerer)
		store.Subscribe(n.Metrics.Observe)
	}
	p, err := protocol.New(store, &params, cfg.Clock, verifier.NewAttestation(types.MustNewSerializer()), cfg.Genesis)
	if err != nil {
		return nil, err
	}
	n.Protocol = p

	aggState, err := statemachine.NewStateMachine(cfg.AggregatorDB, p.Serializer, params.TreeDepth)
	if err != nil {
		return nil, err
	}
	replica, err := statemachine.NewStateMachine(cfg.ValidatorDB, p.Serializer, params.TreeDepth)
	if err != nil {
		return nil, err
	}
	n.Aggregator = aggregator.NewAggregator(p.Bridge, aggState, p.Serializer, cfg.Clock, signer, params.SequencerAddress(), params.MaxBlockTxs)
	n.Validator = validator.NewValidator(p.Serializer, replica, p.Bridge, func(reason string) error {
		return p.Bridge.Pause(params.OwnerAddress())
	})
	n.Relayer = relayer.NewWithdrawManager(p.Bridge)
	store.Subscribe(n.Relayer.HandleEvent)

	n.Aggregator.OnBlock(n.Validator.HandleBlock)
	n.Aggregator.OnBlock(func(*types.Block) {
		if _, err := n.Relayer.Flush(); err != nil {
			logger.Warn().Err(err).Msg("flush withdrawals")
		}
	})
	n.Producer = blockproducer.NewBlockProducer(n.Aggregator, cfg.Clock, params.BlockIntervalDuration())
	return n, nil
}

// Run produces blocks until ctx ends.
func (n *Node) Run(ctx context.Context) error {
	return n.Producer.Run(ctx)
}

// Tick produces one block if there is work.
func (n *Node) Tick() (*types.Block, error) {
	return n.Producer.Tick()
}

// EmergencyProof returns the balance of account in the aggregator state and
// the proof EmergencyWithdraw expects.
func (n *Node) EmergencyProof(account common.Address) (*types.EmergencyProof, error) {
	balance, proof, err := n.Aggregator.StateMachine().ProveBalance(account)
	if err != nil {
		return nil, err
	}
	return &types.EmergencyProof{Account: account, Balance: balance, Proof: proof}, nil
}
