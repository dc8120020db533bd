package protocol

import (
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/celer-network/go-provernet/config"
	"github.com/celer-network/go-provernet/db/memorydb"
	"github.com/celer-network/go-provernet/statemachine"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/verifier"
)

var alice = common.HexToAddress("0xa11ce")

func testGenesis(t *testing.T) *config.Genesis {
	genesis, err := config.ParseGenesis([]byte(`
balances:
  - account: "0x00000000000000000000000000000000000a11ce"
    amount: "1000"
  - account: "0x00000000000000000000000000000000000a11ce"
    amount: "500"
dispenseReserve: "7000"
`))
	require.NoError(t, err)
	return genesis
}

func TestNewAppliesGenesisOnce(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	store := storage.NewStore(memorydb.NewDB())
	params := config.DefaultParams()
	params.TreeDepth = 32

	p, err := New(store, params, clk, verifier.Fixed(true), testGenesis(t))
	require.NoError(t, err)

	done, err := p.Bootstrapped()
	require.NoError(t, err)
	require.True(t, done)

	balance, err := p.Base.BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, int64(1500), balance.Int64())
	reserve, err := p.Base.BalanceOf(EngineAddress)
	require.NoError(t, err)
	require.Equal(t, int64(7000), reserve.Int64())

	owner, err := p.Engine.Owner()
	require.NoError(t, err)
	require.Equal(t, params.OwnerAddress(), owner)
	bridgeRole, err := p.Engine.Bridge()
	require.NoError(t, err)
	require.Equal(t, BridgeAddress, bridgeRole)
	head, err := p.Bridge.Head()
	require.NoError(t, err)
	require.Equal(t, statemachine.GenesisRoot(32), head.Root)

	// A restart over the same store keeps state and skips genesis.
	again, err := New(store, params, clk, verifier.Fixed(true), testGenesis(t))
	require.NoError(t, err)
	balance, err = again.Base.BalanceOf(alice)
	require.NoError(t, err)
	require.Equal(t, int64(1500), balance.Int64())
}

func TestStatus(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	params := config.DefaultParams()
	params.TreeDepth = 32
	params.MinTransferAmount = "1"
	p, err := New(storage.NewStore(memorydb.NewDB()), params, clk, verifier.Fixed(true), testGenesis(t))
	require.NoError(t, err)

	require.NoError(t, p.Base.Approve(alice, BridgeAddress, big.NewInt(100)))
	_, err = p.Bridge.Deposit(alice, big.NewInt(100))
	require.NoError(t, err)
	_, err = p.Registry.CreateProver(alice, 500)
	require.NoError(t, err)

	s, err := p.Status()
	require.NoError(t, err)
	require.Zero(t, s.BlockNumber)
	require.Equal(t, uint64(2), s.PendingTxs)
	require.Equal(t, uint64(1), s.Provers)
	require.Equal(t, int64(100), s.Escrow.Int64())
	require.False(t, s.Paused)
}

func TestSystemAddressesDistinct(t *testing.T) {
	seen := map[common.Address]bool{}
	for _, addr := range []common.Address{BaseAssetAddress, AssetVaultAddress, RegistryAddress, EngineAddress, BridgeAddress} {
		require.False(t, seen[addr])
		seen[addr] = true
	}
}
