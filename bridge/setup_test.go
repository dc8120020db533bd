package bridge

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/celer-network/go-provernet/db/memorydb"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/token"
	"github.com/celer-network/go-provernet/types"
)

const (
	maxBlockAge    = 3600
	freezeDuration = 7 * 24 * 3600
	treeDepth      = 256
)

var (
	baseAddr     = common.HexToAddress("0x1000")
	bridgeAddr   = common.HexToAddress("0x2000")
	registryAddr = common.HexToAddress("0x3000")
	ownerAddr    = common.HexToAddress("0x4000")
	sequencer    = common.HexToAddress("0x5000")

	alice  = common.HexToAddress("0xa11ce")
	bob    = common.HexToAddress("0xb0b")
	prover = common.HexToAddress("0x9999")

	genesisRoot = common.HexToHash("0x01")
	programKey  = common.HexToHash("0xfeed")
)

type call struct {
	method string
	prover common.Address
	amount *big.Int
}

type fakeEngine struct {
	calls []call
	err   error
}

func (f *fakeEngine) ProcessReward(caller common.Address, p common.Address, amount *big.Int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, call{"reward", p, amount})
	return nil
}

func (f *fakeEngine) RequestSlash(caller common.Address, p common.Address, amount *big.Int) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.calls = append(f.calls, call{"slash", p, amount})
	return uint64(len(f.calls) - 1), nil
}

type switchVerifier struct {
	accept bool
	vkeys  []common.Hash
}

func (v *switchVerifier) Verify(vkey common.Hash, digest common.Hash, proof []byte) bool {
	v.vkeys = append(v.vkeys, vkey)
	return v.accept
}

var errEngine = errors.New("engine failure")

type testEnv struct {
	clock      *clock.Mock
	store      *storage.Store
	base       *token.Token
	engine     *fakeEngine
	verifier   *switchVerifier
	serializer *types.Serializer
	bridge     *Bridge
	events     []types.Event
}

func newTestEnv(t *testing.T) *testEnv {
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	store := storage.NewStore(memorydb.NewDB())
	env := &testEnv{
		clock:      clk,
		store:      store,
		base:       token.New(store, clk, baseAddr, "BASE"),
		engine:     &fakeEngine{},
		verifier:   &switchVerifier{accept: true},
		serializer: types.MustNewSerializer(),
	}
	store.Subscribe(func(ev types.Event) { env.events = append(env.events, ev) })
	env.bridge = New(store, clk, bridgeAddr, Params{
		MinTransferAmount: big.NewInt(10),
		MaxBlockAge:       maxBlockAge,
		FreezeDuration:    freezeDuration,
		TreeDepth:         treeDepth,
	}, env.base, env.engine, env.verifier, env.serializer)
	require.NoError(t, env.bridge.Initialize(ownerAddr, sequencer, registryAddr, programKey, genesisRoot))
	return env
}

func (env *testEnv) deposit(t *testing.T, account common.Address, amount int64) uint64 {
	require.NoError(t, env.base.Mint(account, big.NewInt(amount)))
	require.NoError(t, env.base.Approve(account, bridgeAddr, big.NewInt(amount)))
	id, err := env.bridge.Deposit(account, big.NewInt(amount))
	require.NoError(t, err)
	return id
}

// completedReceipt resolves the pending transaction id with its own payload.
func (env *testEnv) completedReceipt(t *testing.T, id uint64) *types.Receipt {
	tx, err := env.bridge.Transaction(id)
	require.NoError(t, err)
	return &types.Receipt{
		Variant:     tx.Variant,
		Status:      types.TransactionStatusCompleted,
		OnchainTxID: id,
		Payload:     tx.Payload,
	}
}

func (env *testEnv) rewardReceipt(t *testing.T, p common.Address, amount int64) *types.Receipt {
	payload, err := env.serializer.SerializeReward(&types.RewardPayload{Prover: p, Amount: big.NewInt(amount)})
	require.NoError(t, err)
	return &types.Receipt{Variant: types.TransactionVariantReward, Status: types.TransactionStatusCompleted, Payload: payload}
}

func (env *testEnv) slashReceipt(t *testing.T, p common.Address, amount int64) *types.Receipt {
	payload, err := env.serializer.SerializeSlash(&types.SlashPayload{Prover: p, Amount: big.NewInt(amount)})
	require.NoError(t, err)
	return &types.Receipt{Variant: types.TransactionVariantSlash, Status: types.TransactionStatusCompleted, Payload: payload}
}

func (env *testEnv) withdrawReceipt(t *testing.T, account common.Address, to common.Address, id uint64, amount int64) *types.Receipt {
	payload, err := env.serializer.SerializeWithdraw(&types.WithdrawPayload{Account: account, To: to, Amount: big.NewInt(amount)})
	require.NoError(t, err)
	return &types.Receipt{
		Variant:     types.TransactionVariantWithdraw,
		Status:      types.TransactionStatusCompleted,
		OnchainTxID: id,
		Payload:     payload,
	}
}

// publicValues builds the next transition from the current head to newRoot.
func (env *testEnv) publicValues(t *testing.T, newRoot common.Hash, receipts ...*types.Receipt) []byte {
	root, err := env.bridge.Root()
	require.NoError(t, err)
	return env.encode(t, &types.PublicValues{
		Receipts:  receipts,
		OldRoot:   root,
		NewRoot:   newRoot,
		Timestamp: uint64(env.clock.Now().Unix()),
	})
}

func (env *testEnv) encode(t *testing.T, pv *types.PublicValues) []byte {
	data, err := env.serializer.SerializePublicValues(pv)
	require.NoError(t, err)
	return data
}

func (env *testEnv) step(t *testing.T, newRoot common.Hash, receipts ...*types.Receipt) error {
	return env.bridge.Step(sequencer, env.publicValues(t, newRoot, receipts...), []byte("proof"))
}

func (env *testEnv) balance(t *testing.T, account common.Address) int64 {
	balance, err := env.base.BalanceOf(account)
	require.NoError(t, err)
	return balance.Int64()
}

func (env *testEnv) requireHead(t *testing.T, blockNumber uint64, root common.Hash) {
	t.Helper()
	n, err := env.bridge.BlockNumber()
	require.NoError(t, err)
	require.Equal(t, blockNumber, n)
	current, err := env.bridge.Root()
	require.NoError(t, err)
	require.Equal(t, root, current)
}

func (env *testEnv) eventNames() []string {
	names := make([]string, len(env.events))
	for i, ev := range env.events {
		names[i] = ev.EventName()
	}
	return names
}
