// Package metrics exports ledger activity to prometheus. Collectors are fed
// from committed store events.
package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/celer-network/go-provernet/types"
)

const namespace = "provernet"

type Metrics struct {
	Events *prometheus.CounterVec

	// Bridge
	BlockNumber      prometheus.Gauge
	ReceiptsApplied  prometheus.Counter
	PendingCreated   *prometheus.CounterVec
	PendingCompleted *prometheus.CounterVec
	DepositedAmount  prometheus.Counter
	WithdrawnAmount  prometheus.Counter
	EmergencyAmount  prometheus.Counter
	Forks            prometheus.Counter
	Paused           prometheus.Gauge

	// Staking
	StakedAmount       prometheus.Counter
	UnstakedAmount     prometheus.Counter
	DispensedAmount    prometheus.Counter
	RewardAmount       *prometheus.CounterVec
	SlashRequests      prometheus.Counter
	SlashedAmount      prometheus.Counter
	ProversDeactivated prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	counter := func(subsystem, name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help})
	}
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Committed ledger events by name",
		}, []string{"event"}),

		BlockNumber: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "block_number",
			Help:      "Latest committed block number",
		}),
		ReceiptsApplied: counter("bridge", "receipts_applied_total", "Receipts applied by committed blocks"),
		PendingCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "transactions_created_total",
			Help:      "Pending transactions created by variant",
		}, []string{"variant"}),
		PendingCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "transactions_completed_total",
			Help:      "Pending transactions completed by variant",
		}, []string{"variant"}),
		DepositedAmount: counter("bridge", "deposited_amount_total", "Base asset escrowed by deposits"),
		WithdrawnAmount: counter("bridge", "withdrawn_amount_total", "Base asset paid out by withdrawal claims"),
		EmergencyAmount: counter("bridge", "emergency_amount_total", "Base asset claimed through emergency withdrawals"),
		Forks:           counter("bridge", "forks_total", "Roots appended without a proof"),
		Paused: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "paused",
			Help:      "1 while the bridge is paused",
		}),

		StakedAmount:    counter("staking", "staked_amount_total", "Base asset staked"),
		UnstakedAmount:  counter("staking", "unstaked_amount_total", "Base asset paid to unstaking stakers"),
		DispensedAmount: counter("staking", "dispensed_amount_total", "Base asset dispensed into the asset vault"),
		RewardAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "reward_amount_total",
			Help:      "Reward portions paid by recipient",
		}, []string{"portion"}),
		SlashRequests:      counter("staking", "slash_requests_total", "Slash requests opened"),
		SlashedAmount:      counter("staking", "slashed_amount_total", "Asset vault shares burned by slashes"),
		ProversDeactivated: counter("staking", "provers_deactivated_total", "Provers deactivated by a full slash"),
	}
}

// Observe updates the collectors for one committed event. It is meant to be
// registered with storage.Store.Subscribe.
func (m *Metrics) Observe(ev types.Event) {
	m.Events.WithLabelValues(ev.EventName()).Inc()
	switch e := ev.(type) {
	case *types.BlockCommittedEvent:
		m.BlockNumber.Set(float64(e.BlockNumber))
		m.ReceiptsApplied.Add(float64(e.Receipts))
	case *types.ForkEvent:
		m.BlockNumber.Set(float64(e.BlockNumber))
		m.Forks.Inc()
	case *types.TransactionPendingEvent:
		m.PendingCreated.WithLabelValues(e.Variant.String()).Inc()
	case *types.TransactionCompletedEvent:
		m.PendingCompleted.WithLabelValues(e.Variant.String()).Inc()
	case *types.DepositEvent:
		m.DepositedAmount.Add(toFloat(e.Amount))
	case *types.WithdrawalClaimedEvent:
		m.WithdrawnAmount.Add(toFloat(e.Amount))
	case *types.EmergencyWithdrawalEvent:
		m.EmergencyAmount.Add(toFloat(e.Amount))
	case *types.PausedEvent:
		m.Paused.Set(1)
	case *types.UnpausedEvent:
		m.Paused.Set(0)
	case *types.StakeEvent:
		m.StakedAmount.Add(toFloat(e.Assets))
	case *types.UnstakeEvent:
		m.UnstakedAmount.Add(toFloat(e.Assets))
	case *types.DispenseEvent:
		m.DispensedAmount.Add(toFloat(e.Amount))
	case *types.RewardEvent:
		m.RewardAmount.WithLabelValues("protocol").Add(toFloat(e.ProtocolFee))
		m.RewardAmount.WithLabelValues("staker").Add(toFloat(e.StakerReward))
		m.RewardAmount.WithLabelValues("owner").Add(toFloat(e.OwnerReward))
	case *types.SlashRequestedEvent:
		m.SlashRequests.Inc()
	case *types.SlashEvent:
		m.SlashedAmount.Add(toFloat(e.Amount))
	case *types.ProverDeactivatedEvent:
		m.ProversDeactivated.Inc()
	}
}

func toFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}
