package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/celer-network/go-provernet/types"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Observe(&types.DepositEvent{TxID: 1, Amount: big.NewInt(100)})
	m.Observe(&types.TransactionPendingEvent{TxID: 1, Variant: types.TransactionVariantDeposit})
	m.Observe(&types.TransactionCompletedEvent{TxID: 1, Variant: types.TransactionVariantDeposit})
	m.Observe(&types.BlockCommittedEvent{BlockNumber: 3, Receipts: 2})
	m.Observe(&types.RewardEvent{ProtocolFee: big.NewInt(1), StakerReward: big.NewInt(2), OwnerReward: big.NewInt(3)})
	m.Observe(&types.PausedEvent{At: 10})

	require.Equal(t, float64(100), testutil.ToFloat64(m.DepositedAmount))
	require.Equal(t, float64(3), testutil.ToFloat64(m.BlockNumber))
	require.Equal(t, float64(2), testutil.ToFloat64(m.ReceiptsApplied))
	require.Equal(t, float64(1), testutil.ToFloat64(m.PendingCompleted.WithLabelValues("Deposit")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.RewardAmount.WithLabelValues("staker")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Paused))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Events.WithLabelValues("Reward")))

	m.Observe(&types.UnpausedEvent{At: 11})
	require.Zero(t, testutil.ToFloat64(m.Paused))
}

func TestDisabledServer(t *testing.T) {
	s := NewServer("", prometheus.NewRegistry())
	require.Nil(t, s)
	s.Start()
	require.NoError(t, s.Stop(nil))
}
