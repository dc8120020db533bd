package vault

import (
	"math/big"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/celer-network/go-provernet/db/memorydb"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/token"
	"github.com/celer-network/go-provernet/types"
)

var (
	baseAddr  = common.HexToAddress("0x1000")
	assetAddr = common.HexToAddress("0x2000")
	alice     = common.HexToAddress("0xa11ce")
	bob       = common.HexToAddress("0xb0b")
)

func newTestVault(t *testing.T) (*Vault, *token.Token) {
	store := storage.NewStore(memorydb.NewDB())
	clk := clock.NewMock()
	base := token.New(store, clk, baseAddr, "BASE")
	shares := token.New(store, clk, assetAddr, "AV")
	require.NoError(t, base.Mint(alice, big.NewInt(1_000_000)))
	require.NoError(t, base.Mint(bob, big.NewInt(1_000_000)))
	return New(store, base, shares), base
}

func TestDepositRedeem(t *testing.T) {
	v, base := newTestVault(t)
	shares, err := v.Deposit(alice, big.NewInt(1000), alice)
	require.NoError(t, err)
	require.Equal(t, int64(1000), shares.Int64())

	// Price doubles.
	require.NoError(t, v.Donate(bob, big.NewInt(1000)))
	shares, err = v.Deposit(bob, big.NewInt(1000), bob)
	require.NoError(t, err)
	require.Equal(t, int64(500), shares.Int64())

	assets, err := v.Redeem(alice, big.NewInt(1000), alice)
	require.NoError(t, err)
	require.Equal(t, int64(2000), assets.Int64())
	balance, _ := base.BalanceOf(alice)
	require.Equal(t, int64(1_001_000), balance.Int64())

	totalAssets, _ := v.TotalAssets()
	totalShares, _ := v.TotalShares()
	require.Equal(t, int64(1000), totalAssets.Int64())
	require.Equal(t, int64(500), totalShares.Int64())
}

func TestDepositRejectsZeroShares(t *testing.T) {
	v, base := newTestVault(t)
	_, err := v.Deposit(alice, big.NewInt(1), alice)
	require.NoError(t, err)
	// Inflate the price of the single share.
	require.NoError(t, v.Donate(bob, big.NewInt(10_000)))

	_, err = v.Deposit(bob, big.NewInt(100), bob)
	require.ErrorIs(t, err, types.ErrZeroReceiptAmount)
	balance, _ := base.BalanceOf(bob)
	require.Equal(t, int64(990_000), balance.Int64())
}

func TestDrainedVault(t *testing.T) {
	v, base := newTestVault(t)
	_, err := v.Deposit(alice, big.NewInt(100), alice)
	require.NoError(t, err)
	// Move every asset out without burning shares.
	require.NoError(t, base.Transfer(v.Address, bob, big.NewInt(100)))

	_, err = v.PreviewDeposit(big.NewInt(10))
	require.ErrorIs(t, err, types.ErrVaultDrained)
	assets, err := v.PreviewRedeem(big.NewInt(100))
	require.NoError(t, err)
	require.Zero(t, assets.Sign())
	_, err = v.Redeem(alice, big.NewInt(100), alice)
	require.ErrorIs(t, err, types.ErrZeroReceiptAmount)
}

func TestRedeemMoreThanHeld(t *testing.T) {
	v, _ := newTestVault(t)
	_, err := v.Deposit(alice, big.NewInt(100), alice)
	require.NoError(t, err)
	_, err = v.Deposit(bob, big.NewInt(100), bob)
	require.NoError(t, err)
	_, err = v.Redeem(alice, big.NewInt(101), alice)
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
	held, _ := v.BalanceOf(alice)
	require.Equal(t, int64(100), held.Int64())
}

func TestNestedVault(t *testing.T) {
	store := storage.NewStore(memorydb.NewDB())
	clk := clock.NewMock()
	base := token.New(store, clk, baseAddr, "BASE")
	asset := New(store, base, token.New(store, clk, assetAddr, "AV"))
	prover := New(store, asset.Shares, token.New(store, clk, common.HexToAddress("0x3000"), "PV"))
	require.NoError(t, base.Mint(alice, big.NewInt(500)))

	avShares, err := asset.Deposit(alice, big.NewInt(500), alice)
	require.NoError(t, err)
	pvShares, err := prover.Deposit(alice, avShares, alice)
	require.NoError(t, err)
	require.Equal(t, int64(500), pvShares.Int64())

	// Shares credited to the prover vault raise only its price.
	require.NoError(t, base.Mint(bob, big.NewInt(500)))
	_, err = asset.Deposit(bob, big.NewInt(500), prover.Address)
	require.NoError(t, err)
	assets, err := prover.PreviewRedeem(pvShares)
	require.NoError(t, err)
	require.Equal(t, int64(1000), assets.Int64())
}
