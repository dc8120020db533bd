// Package test runs end-to-end scenarios against a full node: ledger,
// aggregator, validator and relayer over badger databases.
package test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/celer-network/go-provernet/config"
	"github.com/celer-network/go-provernet/db/badgerdb"
	"github.com/celer-network/go-provernet/node"
	"github.com/celer-network/go-provernet/protocol"
)

const (
	treeDepth       = 64
	unstakePeriod   = 3 * 24 * 3600
	slashPeriod     = 24 * 3600
	freezeDuration  = 2 * 24 * 3600
	blockInterval   = 10 * time.Second
	genesisTime     = 1700000000
	accountBalance  = 1000000
	dispenseReserve = 500000
)

var (
	owner        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	dispenser    = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	sequencer    = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	feeRecipient = common.HexToAddress("0x00000000000000000000000000000000000000a4")

	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")
)

type network struct {
	dir      string
	clock    *clock.Mock
	registry *prometheus.Registry
	node     *node.Node
	p        *protocol.Protocol
}

// writeConfig lays out the config dir the way an operator would.
func writeConfig(t *testing.T, dir string) {
	parameters := map[string]interface{}{
		"minStake":                "1000",
		"unstakePeriod":           unstakePeriod,
		"slashCancellationPeriod": slashPeriod,
		"maxUnstakeRequests":      4,
		"dispenseRate":            "10",
		"protocolFeeBips":         100,
		"minTransferAmount":       "10",
		"maxBlockAge":             3600,
		"freezeDuration":          freezeDuration,
		"treeDepth":               treeDepth,
		"blockInterval":           blockInterval.String(),
		"maxBlockTxs":             8,
	}
	roles := map[string]string{
		"owner":        owner.Hex(),
		"dispenser":    dispenser.Hex(),
		"sequencer":    sequencer.Hex(),
		"feeRecipient": feeRecipient.Hex(),
	}
	for name, v := range map[string]interface{}{"parameters.yaml": parameters, "roles.yaml": roles} {
		data, err := yaml.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}

	genesis := &config.Genesis{DispenseReserve: big.NewInt(dispenseReserve).String()}
	for _, account := range []common.Address{alice, bob, carol} {
		genesis.Balances = append(genesis.Balances, config.Allocation{Account: account.Hex(), Amount: big.NewInt(accountBalance).String()})
	}
	data, err := genesis.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "genesis.yaml"), data, 0o600))
}

func setupNetwork(t *testing.T) *network {
	dir := t.TempDir()
	writeConfig(t, dir)
	params, err := config.Load(dir)
	require.NoError(t, err)
	genesis, err := config.LoadGenesis(filepath.Join(dir, "genesis.yaml"))
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	clk := clock.NewMock()
	clk.Set(time.Unix(genesisTime, 0))

	net := &network{dir: dir, clock: clk, registry: prometheus.NewRegistry()}
	dbs := make(map[string]*badgerdb.DB)
	for _, name := range []string{"ledger", "aggregator", "validator"} {
		db, err := badgerdb.NewDB(filepath.Join(dir, "db", name))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		dbs[name] = db
	}
	n, err := node.New(&node.Config{
		Params:       params,
		Genesis:      genesis,
		Clock:        clk,
		ProofKey:     key,
		LedgerDB:     dbs["ledger"],
		AggregatorDB: dbs["aggregator"],
		ValidatorDB:  dbs["validator"],
		Registerer:   net.registry,
	})
	require.NoError(t, err)
	net.node = n
	net.p = n.Protocol
	return net
}

// tick advances one block interval and produces a block.
func (net *network) tick(t *testing.T) {
	net.clock.Add(blockInterval)
	_, err := net.node.Tick()
	require.NoError(t, err)
	require.False(t, net.node.Validator.Tripped())
}

func (net *network) deposit(t *testing.T, account common.Address, amount int64) {
	require.NoError(t, net.p.Base.Approve(account, protocol.BridgeAddress, big.NewInt(amount)))
	_, err := net.p.Bridge.Deposit(account, big.NewInt(amount))
	require.NoError(t, err)
}

func (net *network) stake(t *testing.T, staker common.Address, prover common.Address, amount int64) *big.Int {
	require.NoError(t, net.p.Base.Approve(staker, protocol.EngineAddress, big.NewInt(amount)))
	shares, err := net.p.Engine.Stake(staker, prover, big.NewInt(amount))
	require.NoError(t, err)
	return shares
}

func (net *network) balance(t *testing.T, account common.Address) int64 {
	balance, err := net.p.Base.BalanceOf(account)
	require.NoError(t, err)
	return balance.Int64()
}
