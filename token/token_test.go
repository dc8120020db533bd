package token

import (
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/celer-network/go-provernet/db/memorydb"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/types"
)

var (
	tokenAddr = common.HexToAddress("0x1000")
	alice     = common.HexToAddress("0xa11ce")
	bob       = common.HexToAddress("0xb0b")
)

func newTestToken(t *testing.T) (*Token, *clock.Mock) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	tk := New(storage.NewStore(memorydb.NewDB()), clk, tokenAddr, "BASE")
	require.NoError(t, tk.Mint(alice, big.NewInt(1000)))
	return tk, clk
}

func requireBalance(t *testing.T, tk *Token, account common.Address, expected int64) {
	balance, err := tk.BalanceOf(account)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(expected).String(), balance.String())
}

func TestMintAndTransfer(t *testing.T) {
	tk, _ := newTestToken(t)
	require.NoError(t, tk.Transfer(alice, bob, big.NewInt(300)))
	requireBalance(t, tk, alice, 700)
	requireBalance(t, tk, bob, 300)

	err := tk.Transfer(bob, alice, big.NewInt(301))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	requireBalance(t, tk, bob, 300)

	require.ErrorIs(t, tk.Transfer(alice, common.Address{}, big.NewInt(1)), types.ErrZeroAddress)

	supply, err := tk.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, "1000", supply.String())
}

func TestBurn(t *testing.T) {
	tk, _ := newTestToken(t)
	require.NoError(t, tk.Burn(alice, big.NewInt(400)))
	requireBalance(t, tk, alice, 600)
	supply, _ := tk.TotalSupply()
	require.Equal(t, "600", supply.String())
	require.ErrorIs(t, tk.Burn(alice, big.NewInt(601)), types.ErrInsufficientBalance)
}

func TestTransferFromSpendsAllowance(t *testing.T) {
	tk, _ := newTestToken(t)
	require.ErrorIs(t, tk.TransferFrom(bob, alice, bob, big.NewInt(1)), types.ErrInsufficientAllowance)

	require.NoError(t, tk.Approve(alice, bob, big.NewInt(500)))
	require.NoError(t, tk.TransferFrom(bob, alice, bob, big.NewInt(200)))
	allowance, _ := tk.Allowance(alice, bob)
	require.Equal(t, "300", allowance.String())
	requireBalance(t, tk, bob, 200)

	require.NoError(t, tk.Approve(alice, bob, math.MaxBig256))
	require.NoError(t, tk.TransferFrom(bob, alice, bob, big.NewInt(200)))
	allowance, _ = tk.Allowance(alice, bob)
	require.Equal(t, math.MaxBig256.String(), allowance.String())
}

func TestFailedTransferFromLeavesAllowance(t *testing.T) {
	tk, _ := newTestToken(t)
	require.NoError(t, tk.Approve(alice, bob, big.NewInt(5000)))
	require.ErrorIs(t, tk.TransferFrom(bob, alice, bob, big.NewInt(2000)), types.ErrInsufficientBalance)
	allowance, _ := tk.Allowance(alice, bob)
	require.Equal(t, "5000", allowance.String())
}

func TestPermit(t *testing.T) {
	tk, clk := newTestToken(t)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	deadline := uint64(clk.Now().Unix()) + 60

	sig, err := tk.SignPermit(key, bob, big.NewInt(77), deadline)
	require.NoError(t, err)
	require.NoError(t, tk.Permit(owner, bob, big.NewInt(77), deadline, sig))
	allowance, _ := tk.Allowance(owner, bob)
	require.Equal(t, "77", allowance.String())
	nonce, _ := tk.Nonces(owner)
	require.Equal(t, uint64(1), nonce)

	// Replay fails because the nonce moved.
	require.ErrorIs(t, tk.Permit(owner, bob, big.NewInt(77), deadline, sig), types.ErrInvalidSignature)

	// Wrong value.
	sig, _ = tk.SignPermit(key, bob, big.NewInt(10), deadline)
	require.ErrorIs(t, tk.Permit(owner, bob, big.NewInt(11), deadline, sig), types.ErrInvalidSignature)

	// Expired.
	clk.Add(2 * time.Minute)
	require.ErrorIs(t, tk.Permit(owner, bob, big.NewInt(10), deadline, sig), types.ErrSignatureExpired)
}

func TestPermitIfNeededSkipsCoveredAllowance(t *testing.T) {
	tk, clk := newTestToken(t)
	key, _ := crypto.GenerateKey()
	owner := crypto.PubkeyToAddress(key.PublicKey)
	deadline := uint64(clk.Now().Unix()) + 60
	sig, err := tk.SignPermit(key, bob, big.NewInt(50), deadline)
	require.NoError(t, err)

	// Someone else submits the permit first.
	require.NoError(t, tk.Permit(owner, bob, big.NewInt(50), deadline, sig))
	require.NoError(t, tk.PermitIfNeeded(owner, bob, big.NewInt(50), big.NewInt(50), deadline, sig))

	// Not covered, and the signature is stale.
	require.ErrorIs(t, tk.PermitIfNeeded(owner, bob, big.NewInt(51), big.NewInt(50), deadline, sig), types.ErrInvalidSignature)
}

func TestEventsEmittedOnCommit(t *testing.T) {
	store := storage.NewStore(memorydb.NewDB())
	var events []types.Event
	store.Subscribe(func(ev types.Event) { events = append(events, ev) })
	tk := New(store, clock.NewMock(), tokenAddr, "BASE")
	require.NoError(t, tk.Mint(alice, big.NewInt(10)))
	require.Error(t, tk.Transfer(alice, bob, big.NewInt(11)))
	require.Len(t, events, 1)
	require.Equal(t, "Transfer", events[0].EventName())
}
