package staking

import (
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/celer-network/go-provernet/db/memorydb"
	"github.com/celer-network/go-provernet/registry"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/token"
	"github.com/celer-network/go-provernet/vault"
)

const (
	unstakePeriod = 21 * 24 * 3600
	slashPeriod   = 7 * 24 * 3600
)

var (
	baseAddr     = common.HexToAddress("0x1000")
	assetAddr    = common.HexToAddress("0x2000")
	registryAddr = common.HexToAddress("0x3000")
	engineAddr   = common.HexToAddress("0x4000")
	bridgeAddr   = common.HexToAddress("0x5000")
	ownerAddr    = common.HexToAddress("0x6000")
	dispenser    = common.HexToAddress("0x7000")
	feeRecipient = common.HexToAddress("0x8000")

	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	carol = common.HexToAddress("0xca201")
	dave  = common.HexToAddress("0xda7e")
)

type nopSink struct{}

func (nopSink) CreateProver(common.Address, common.Address, common.Address, uint64) (uint64, error) {
	return 0, nil
}

type testEnv struct {
	clock    *clock.Mock
	store    *storage.Store
	base     *token.Token
	asset    *vault.Vault
	registry *registry.Registry
	engine   *Engine
}

// units converts a decimal amount of whole tokens with 18 decimals.
func units(s string) *big.Int {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic("bad amount " + s)
	}
	r.Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
	if !r.IsInt() {
		panic("amount has more than 18 decimals " + s)
	}
	return new(big.Int).Set(r.Num())
}

func newTestEnv(t require.TestingT) *testEnv {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	store := storage.NewStore(memorydb.NewDB())
	base := token.New(store, clk, baseAddr, "BASE")
	asset := vault.New(store, base, token.New(store, clk, assetAddr, "AV"))
	reg := registry.New(store, registryAddr, engineAddr)
	reg.SetIntentSink(nopSink{})
	engine := New(store, clk, engineAddr, Params{
		MinStake:                big.NewInt(1),
		UnstakePeriod:           unstakePeriod,
		SlashCancellationPeriod: slashPeriod,
		MaxUnstakeRequests:      3,
		ProtocolFeeBips:         30,
		FeeRecipient:            feeRecipient,
	}, base, asset, reg)
	require.NoError(t, engine.Initialize(ownerAddr, dispenser, bridgeAddr, big.NewInt(0)))
	return &testEnv{clock: clk, store: store, base: base, asset: asset, registry: reg, engine: engine}
}

func (env *testEnv) createProver(t *testing.T, owner common.Address, bips uint64) common.Address {
	p, err := env.registry.CreateProver(owner, bips)
	require.NoError(t, err)
	return p.Vault
}

func (env *testEnv) fund(t *testing.T, account common.Address, amount *big.Int) {
	require.NoError(t, env.base.Mint(account, amount))
}

func (env *testEnv) stake(t *testing.T, staker common.Address, prover common.Address, amount *big.Int) *big.Int {
	env.fund(t, staker, amount)
	require.NoError(t, env.base.Approve(staker, engineAddr, amount))
	shares, err := env.engine.Stake(staker, prover, amount)
	require.NoError(t, err)
	return shares
}

func (env *testEnv) balance(t *testing.T, account common.Address) *big.Int {
	balance, err := env.base.BalanceOf(account)
	require.NoError(t, err)
	return balance
}

func (env *testEnv) advance(seconds uint64) {
	env.clock.Add(time.Duration(seconds) * time.Second)
}

func requireBigEqual(t *testing.T, expected *big.Int, actual *big.Int) {
	t.Helper()
	require.Equal(t, expected.String(), actual.String())
}

// requireBigClose allows a rounding difference of tolerance units.
func requireBigClose(t *testing.T, expected *big.Int, actual *big.Int, tolerance int64) {
	t.Helper()
	diff := new(big.Int).Sub(expected, actual)
	require.True(t, diff.CmpAbs(big.NewInt(tolerance)) <= 0, "expected %s, got %s", expected, actual)
}
