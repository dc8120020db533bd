package staking

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/celer-network/go-provernet/types"
)

func TestStake(t *testing.T) {
	env := newTestEnv(t)
	prover := env.createProver(t, alice, 1000)

	shares := env.stake(t, bob, prover, units("10"))
	requireBigEqual(t, units("10"), shares)
	bound, err := env.engine.StakedTo(bob)
	require.NoError(t, err)
	require.Equal(t, prover, bound)
	staked, err := env.engine.StakedBalance(bob)
	require.NoError(t, err)
	requireBigEqual(t, units("10"), staked)

	// The prover vault holds the asset vault shares.
	held, err := env.asset.BalanceOf(prover)
	require.NoError(t, err)
	requireBigEqual(t, units("10"), held)
	value, err := env.engine.ProverStake(prover)
	require.NoError(t, err)
	requireBigEqual(t, units("10"), value)

	// Staking more to the same prover is fine.
	env.stake(t, bob, prover, units("1"))
	staked, _ = env.engine.StakedBalance(bob)
	requireBigEqual(t, units("11"), staked)
}

func TestStakeOneProverPerStaker(t *testing.T) {
	env := newTestEnv(t)
	first := env.createProver(t, alice, 0)
	second := env.createProver(t, carol, 0)
	env.stake(t, bob, first, units("1"))

	env.fund(t, bob, units("1"))
	require.NoError(t, env.base.Approve(bob, engineAddr, units("1")))
	_, err := env.engine.Stake(bob, second, units("1"))
	require.ErrorIs(t, err, types.ErrAlreadyStakedWithDifferentProver)
	requireBigEqual(t, units("1"), env.balance(t, bob))
}

func TestStakeValidation(t *testing.T) {
	env := newTestEnv(t)
	env.engine.params.MinStake = units("1")
	prover := env.createProver(t, alice, 0)
	env.fund(t, bob, units("5"))

	_, err := env.engine.Stake(bob, prover, big.NewInt(0))
	require.ErrorIs(t, err, types.ErrZeroAmount)
	_, err = env.engine.Stake(bob, prover, units("0.5"))
	require.ErrorIs(t, err, types.ErrStakeBelowMinimum)
	_, err = env.engine.Stake(bob, crypto.CreateAddress(registryAddr, 99), units("1"))
	require.ErrorIs(t, err, types.ErrProverNotFound)
	_, err = env.engine.Stake(bob, prover, units("1"))
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)

	bound, _ := env.engine.StakedTo(bob)
	require.Zero(t, bound.Big().Sign())
}

func TestPermitAndStake(t *testing.T) {
	env := newTestEnv(t)
	prover := env.createProver(t, alice, 0)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	staker := crypto.PubkeyToAddress(key.PublicKey)
	env.fund(t, staker, units("4"))
	deadline := uint64(env.clock.Now().Unix()) + 600

	sig, err := env.base.SignPermit(key, engineAddr, units("2"), deadline)
	require.NoError(t, err)
	_, err = env.engine.PermitAndStake(staker, prover, units("2"), deadline, sig)
	require.NoError(t, err)

	// A permit submitted by someone else first does not block the stake.
	sig, err = env.base.SignPermit(key, engineAddr, units("2"), deadline)
	require.NoError(t, err)
	require.NoError(t, env.base.Permit(staker, engineAddr, units("2"), deadline, sig))
	_, err = env.engine.PermitAndStake(staker, prover, units("2"), deadline, sig)
	require.NoError(t, err)

	staked, _ := env.engine.StakedBalance(staker)
	requireBigEqual(t, units("4"), staked)

	// Expired signature.
	env.fund(t, staker, units("1"))
	sig, _ = env.base.SignPermit(key, engineAddr, units("1"), deadline)
	env.advance(601)
	_, err = env.engine.PermitAndStake(staker, prover, units("1"), deadline, sig)
	require.ErrorIs(t, err, types.ErrSignatureExpired)
}

func TestUnstakeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	prover := env.createProver(t, alice, 0)
	env.stake(t, bob, prover, units("10"))

	require.NoError(t, env.engine.RequestUnstake(bob, units("4")))
	queue, err := env.engine.UnstakeRequests(bob)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	// Not matured yet.
	env.advance(unstakePeriod - 1)
	paid, err := env.engine.FinishUnstake(bob)
	require.NoError(t, err)
	require.Zero(t, paid.Sign())
	require.Zero(t, env.balance(t, bob).Sign())

	env.advance(1)
	paid, err = env.engine.FinishUnstake(bob)
	require.NoError(t, err)
	requireBigEqual(t, units("4"), paid)
	requireBigEqual(t, units("4"), env.balance(t, bob))

	// Never paid twice.
	paid, err = env.engine.FinishUnstake(bob)
	require.NoError(t, err)
	require.Zero(t, paid.Sign())
	requireBigEqual(t, units("4"), env.balance(t, bob))

	bound, _ := env.engine.StakedTo(bob)
	require.Equal(t, prover, bound)

	require.NoError(t, env.engine.RequestUnstake(bob, units("6")))
	env.advance(unstakePeriod)
	paid, err = env.engine.FinishUnstake(bob)
	require.NoError(t, err)
	requireBigEqual(t, units("6"), paid)
	bound, _ = env.engine.StakedTo(bob)
	require.Zero(t, bound.Big().Sign())

	_, err = env.engine.FinishUnstake(bob)
	require.ErrorIs(t, err, types.ErrNotStaked)
}

func TestUnstakeQueueFIFO(t *testing.T) {
	env := newTestEnv(t)
	prover := env.createProver(t, alice, 0)
	env.stake(t, bob, prover, units("10"))

	require.NoError(t, env.engine.RequestUnstake(bob, units("1")))
	env.advance(100)
	require.NoError(t, env.engine.RequestUnstake(bob, units("2")))
	env.advance(unstakePeriod - 50)

	paid, err := env.engine.FinishUnstake(bob)
	require.NoError(t, err)
	requireBigEqual(t, units("1"), paid)
	queue, _ := env.engine.UnstakeRequests(bob)
	require.Len(t, queue, 1)
	requireBigEqual(t, units("2"), queue[0].Shares)

	env.advance(50)
	paid, err = env.engine.FinishUnstake(bob)
	require.NoError(t, err)
	requireBigEqual(t, units("2"), paid)
}

func TestRequestUnstakeLimits(t *testing.T) {
	env := newTestEnv(t)
	prover := env.createProver(t, alice, 0)

	require.ErrorIs(t, env.engine.RequestUnstake(bob, units("1")), types.ErrNotStaked)
	env.stake(t, bob, prover, units("3"))
	require.ErrorIs(t, env.engine.RequestUnstake(bob, big.NewInt(0)), types.ErrZeroAmount)

	require.NoError(t, env.engine.RequestUnstake(bob, units("2")))
	// Queued shares are reserved.
	require.ErrorIs(t, env.engine.RequestUnstake(bob, units("2")), types.ErrInsufficientStake)
	require.NoError(t, env.engine.RequestUnstake(bob, units("0.5")))
	require.NoError(t, env.engine.RequestUnstake(bob, units("0.25")))
	require.ErrorIs(t, env.engine.RequestUnstake(bob, units("0.25")), types.ErrTooManyUnstakeRequests)
}

func TestRolesAreOwnerManaged(t *testing.T) {
	env := newTestEnv(t)
	require.ErrorIs(t, env.engine.SetDispenser(bob, bob), types.ErrUnauthorized)
	require.NoError(t, env.engine.SetDispenser(ownerAddr, bob))
	dispenserAddr, _ := env.engine.Dispenser()
	require.Equal(t, bob, dispenserAddr)

	require.NoError(t, env.engine.TransferOwnership(ownerAddr, carol))
	require.ErrorIs(t, env.engine.SetBridge(ownerAddr, carol), types.ErrUnauthorized)
	require.NoError(t, env.engine.SetBridge(carol, dave))
	bridge, _ := env.engine.Bridge()
	require.Equal(t, dave, bridge)

	require.Error(t, env.engine.Initialize(bob, bob, bob, big.NewInt(1)))
}
