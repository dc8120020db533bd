// Package blockproducer drives the aggregator on a fixed interval.
package blockproducer

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("blockproducer")

// Producer builds and submits one block.
type Producer interface {
	HasWork() (bool, error)
	ProduceBlock() (*types.Block, error)
}

type BlockProducer struct {
	producer Producer
	clock    clock.Clock
	interval time.Duration
}

func NewBlockProducer(producer Producer, clk clock.Clock, interval time.Duration) *BlockProducer {
	return &BlockProducer{producer: producer, clock: clk, interval: interval}
}

// Run produces a block every interval while there is work, until ctx ends.
func (bp *BlockProducer) Run(ctx context.Context) error {
	ticker := bp.clock.Ticker(bp.interval)
	defer ticker.Stop()
	logger.Info().Str("interval", bp.interval.String()).Msg("block producer started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("block producer stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := bp.Tick(); err != nil {
				logger.Error().Err(err).Msg("produce block")
			}
		}
	}
}

// Tick produces one block if there is work. It returns nil when there was
// nothing to do.
func (bp *BlockProducer) Tick() (*types.Block, error) {
	hasWork, err := bp.producer.HasWork()
	if err != nil || !hasWork {
		return nil, err
	}
	return bp.producer.ProduceBlock()
}
