package aggregator

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/celer-network/go-provernet/types"
)

// BlockSubmitter hands proven blocks to the ledger as the sequencer.
type BlockSubmitter struct {
	ledger    Ledger
	sequencer common.Address
}

func NewBlockSubmitter(ledger Ledger, sequencer common.Address) *BlockSubmitter {
	return &BlockSubmitter{ledger: ledger, sequencer: sequencer}
}

func (bs *BlockSubmitter) submitBlock(block *types.Block) error {
	logger.Debug().Uint64("blockNumber", block.Number).Int("receipts", len(block.PublicValues.Receipts)).Msg("submit block")
	return bs.ledger.Step(bs.sequencer, block.Encoded, block.Proof)
}
