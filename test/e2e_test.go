package test

import (
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/celer-network/go-provernet/protocol"
	"github.com/celer-network/go-provernet/types"
)

func TestDepositAndWithdraw(t *testing.T) {
	net := setupNetwork(t)
	net.deposit(t, alice, 5000)
	net.tick(t)

	balance, err := net.node.Aggregator.StateMachine().Balance(alice)
	require.NoError(t, err)
	require.Equal(t, int64(5000), balance.Int64())

	_, err = net.p.Bridge.RequestWithdraw(alice, alice, big.NewInt(2000))
	require.NoError(t, err)
	net.tick(t)

	// The relayer pays the claim as soon as the block commits.
	require.Equal(t, int64(accountBalance-3000), net.balance(t, alice))
	claim, err := net.p.Bridge.WithdrawalClaim(alice)
	require.NoError(t, err)
	require.Zero(t, claim.Sign())
	require.Equal(t, int64(3000), net.balance(t, net.p.Bridge.Address))

	head, err := net.p.Bridge.Head()
	require.NoError(t, err)
	require.Equal(t, uint64(2), head.BlockNumber)
	require.Equal(t, float64(2), testutil.ToFloat64(net.node.Metrics.BlockNumber))
	require.Equal(t, float64(5000), testutil.ToFloat64(net.node.Metrics.DepositedAmount))
	require.Equal(t, float64(2000), testutil.ToFloat64(net.node.Metrics.WithdrawnAmount))
}

func TestRewardAndUnstake(t *testing.T) {
	net := setupNetwork(t)
	prover, err := net.p.Registry.CreateProver(bob, 2000)
	require.NoError(t, err)
	shares := net.stake(t, carol, prover.Vault, 10000)
	net.deposit(t, alice, 5000)
	net.tick(t)

	next, err := net.p.Bridge.NextTxID()
	require.NoError(t, err)
	finalized, err := net.p.Bridge.FinalizedTxID()
	require.NoError(t, err)
	require.Equal(t, next-1, finalized)

	net.node.Aggregator.QueueCharge(alice, prover.Vault, big.NewInt(1000))
	net.tick(t)

	// 1% protocol fee, 20% of the rest to stakers, the remainder to the owner.
	require.Equal(t, int64(10), net.balance(t, feeRecipient))
	require.Equal(t, int64(accountBalance+792), net.balance(t, bob))
	stake, err := net.p.Engine.ProverStake(prover.Vault)
	require.NoError(t, err)
	require.Equal(t, int64(10198), stake.Int64())

	require.NoError(t, net.p.Engine.RequestUnstake(carol, shares))
	paid, err := net.p.Engine.FinishUnstake(carol)
	require.NoError(t, err)
	require.Zero(t, paid.Sign())

	net.clock.Add(unstakePeriod * time.Second)
	paid, err = net.p.Engine.FinishUnstake(carol)
	require.NoError(t, err)
	require.InDelta(t, 10198, paid.Int64(), 1)
	require.Equal(t, accountBalance-10000+paid.Int64(), net.balance(t, carol))
}

func TestSlashThroughBridge(t *testing.T) {
	net := setupNetwork(t)
	prover, err := net.p.Registry.CreateProver(bob, 0)
	require.NoError(t, err)
	net.stake(t, carol, prover.Vault, 4000)
	net.tick(t)

	net.node.Aggregator.QueueSlash(prover.Vault, big.NewInt(4000))
	net.tick(t)

	open, err := net.p.Engine.OpenSlashCount(prover.Vault)
	require.NoError(t, err)
	require.Equal(t, uint64(1), open)
	_, err = net.p.Engine.FinishSlash(owner, prover.Vault, 0)
	require.ErrorIs(t, err, types.ErrSlashNotMatured)

	net.clock.Add(slashPeriod * time.Second)
	burned, err := net.p.Engine.FinishSlash(owner, prover.Vault, 0)
	require.NoError(t, err)
	require.Equal(t, int64(4000), burned.Int64())

	active, err := net.p.Registry.IsActive(prover.Vault)
	require.NoError(t, err)
	require.False(t, active)
	require.Equal(t, float64(1), testutil.ToFloat64(net.node.Metrics.ProversDeactivated))
}

func TestDispenseRaisesShareValue(t *testing.T) {
	net := setupNetwork(t)
	prover, err := net.p.Registry.CreateProver(bob, 0)
	require.NoError(t, err)
	net.stake(t, carol, prover.Vault, 1000)

	net.clock.Add(100 * time.Second)
	available, err := net.p.Engine.MaxDispense()
	require.NoError(t, err)
	require.Equal(t, int64(1000), available.Int64())

	dispensed, err := net.p.Engine.Dispense(dispenser, available)
	require.NoError(t, err)
	require.Equal(t, int64(1000), dispensed.Int64())

	stake, err := net.p.Engine.ProverStake(prover.Vault)
	require.NoError(t, err)
	require.Equal(t, int64(2000), stake.Int64())
	require.Equal(t, int64(dispenseReserve-1000), net.balance(t, net.p.Engine.Address))
}

func TestEmergencyWithdraw(t *testing.T) {
	net := setupNetwork(t)
	net.deposit(t, alice, 3000)
	net.deposit(t, bob, 700)
	net.tick(t)

	require.NoError(t, net.p.Bridge.Pause(owner))
	net.node.Aggregator.QueueSlash(bob, big.NewInt(1))
	_, err := net.node.Tick()
	require.ErrorIs(t, err, types.ErrPaused)

	ep, err := net.node.EmergencyProof(alice)
	require.NoError(t, err)
	require.Equal(t, int64(3000), ep.Balance.Int64())
	require.ErrorIs(t, net.p.Bridge.EmergencyWithdraw(alice, ep.Balance, ep.Proof), types.ErrNotFrozen)

	net.clock.Add(freezeDuration * time.Second)
	require.ErrorIs(t, net.p.Bridge.EmergencyWithdraw(alice, ep.Balance, ep.Proof), types.ErrNotFrozen)
	net.clock.Add(time.Second)
	require.NoError(t, net.p.Bridge.EmergencyWithdraw(alice, ep.Balance, ep.Proof))
	require.ErrorIs(t, net.p.Bridge.EmergencyWithdraw(alice, ep.Balance, ep.Proof), types.ErrAlreadyEmergencyClaimed)

	// Bob cannot claim more than his leaf.
	ep, err = net.node.EmergencyProof(bob)
	require.NoError(t, err)
	require.ErrorIs(t, net.p.Bridge.EmergencyWithdraw(bob, big.NewInt(701), ep.Proof), types.ErrInvalidInclusionProof)

	settled, err := net.node.Relayer.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, settled)
	require.Equal(t, int64(accountBalance), net.balance(t, alice))
}

func TestNoUnpauseAfterEmergencyWithdraw(t *testing.T) {
	net := setupNetwork(t)
	net.deposit(t, alice, 3000)
	net.deposit(t, bob, 700)
	net.tick(t)

	require.NoError(t, net.p.Bridge.Pause(owner))
	net.clock.Add((freezeDuration + 1) * time.Second)
	ep, err := net.node.EmergencyProof(alice)
	require.NoError(t, err)
	require.NoError(t, net.p.Bridge.EmergencyWithdraw(alice, ep.Balance, ep.Proof))
	_, err = net.node.Relayer.Flush()
	require.NoError(t, err)
	require.Equal(t, int64(accountBalance), net.balance(t, alice))

	require.ErrorIs(t, net.p.Bridge.Unpause(owner), types.ErrEmergencyMode)
	_, err = net.p.Bridge.RequestWithdraw(alice, alice, big.NewInt(700))
	require.ErrorIs(t, err, types.ErrPaused)

	// Every off-ledger balance still left is backed by escrow.
	escrow := net.balance(t, protocol.BridgeAddress)
	bobBalance, err := net.node.Aggregator.StateMachine().Balance(bob)
	require.NoError(t, err)
	require.Equal(t, int64(700), escrow)
	require.Equal(t, escrow, bobBalance.Int64())

	ep, err = net.node.EmergencyProof(bob)
	require.NoError(t, err)
	require.NoError(t, net.p.Bridge.EmergencyWithdraw(bob, ep.Balance, ep.Proof))
	_, err = net.node.Relayer.Flush()
	require.NoError(t, err)
	require.Equal(t, int64(accountBalance), net.balance(t, bob))
	require.Zero(t, net.balance(t, protocol.BridgeAddress))
}

func TestStatusAfterBlock(t *testing.T) {
	net := setupNetwork(t)
	net.deposit(t, alice, 100)
	net.tick(t)

	status, err := net.p.Status()
	require.NoError(t, err)
	require.Equal(t, uint64(1), status.BlockNumber)
	require.Zero(t, status.PendingTxs)
	require.Equal(t, int64(100), status.Escrow.Int64())
	require.Equal(t, net.node.Aggregator.StateMachine().Root(), status.Root)
}
