// Package relayer settles withdrawal claims on behalf of their accounts.
package relayer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("relayer")

// Settler pays out withdrawal claims.
type Settler interface {
	FinishWithdraw(account common.Address) (*big.Int, error)
}

// WithdrawManager queues accounts whose claims were created and settles them
// in Flush. Claims are not settled from inside the event handler since the
// handler runs while the ledger delivers events.
type WithdrawManager struct {
	settler Settler

	lock   sync.Mutex
	queue  []common.Address
	queued map[common.Address]bool
}

func NewWithdrawManager(settler Settler) *WithdrawManager {
	return &WithdrawManager{settler: settler, queued: make(map[common.Address]bool)}
}

// HandleEvent is meant to be registered with storage.Store.Subscribe.
func (m *WithdrawManager) HandleEvent(ev types.Event) {
	if created, ok := ev.(*types.WithdrawalClaimCreatedEvent); ok {
		m.enqueue(created.Account)
	}
}

func (m *WithdrawManager) enqueue(account common.Address) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.queued[account] {
		return
	}
	m.queued[account] = true
	m.queue = append(m.queue, account)
}

// Pending returns the number of accounts waiting to be settled.
func (m *WithdrawManager) Pending() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.queue)
}

// Flush settles every queued account and returns how many were paid.
// Accounts that fail stay queued.
func (m *WithdrawManager) Flush() (int, error) {
	m.lock.Lock()
	queue := m.queue
	m.queue = nil
	for _, account := range queue {
		delete(m.queued, account)
	}
	m.lock.Unlock()

	settled := 0
	var firstErr error
	for _, account := range queue {
		amount, err := m.settler.FinishWithdraw(account)
		if errors.Is(err, types.ErrNoWithdrawalToClaim) {
			// Claimed by the account itself.
			continue
		}
		if err != nil {
			logger.Error().Err(err).Str("account", account.Hex()).Msg("settle withdrawal")
			if firstErr == nil {
				firstErr = err
			}
			m.enqueue(account)
			continue
		}
		logger.Info().Str("account", account.Hex()).Str("amount", amount.String()).Msg("withdrawal settled")
		settled++
	}
	return settled, firstErr
}

// Run flushes every interval until ctx ends.
func (m *WithdrawManager) Run(ctx context.Context, clk clock.Clock, interval time.Duration) error {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Flush(); err != nil {
				logger.Warn().Err(err).Msg("flush withdrawals")
			}
		}
	}
}
