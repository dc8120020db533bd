package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/celer-network/go-provernet/config"
	"github.com/celer-network/go-provernet/db/memorydb"
	"github.com/celer-network/go-provernet/metrics"
	"github.com/celer-network/go-provernet/node"
	"github.com/celer-network/go-provernet/protocol"
	"github.com/celer-network/go-provernet/staking"
)

const (
	flagRounds = "rounds"
	flagLinger = "linger"
)

var (
	simRequester = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	simOperator  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	simStaker    = common.HexToAddress("0x00000000000000000000000000000000000000b3")
)

func simulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run an in-memory network through deposits, rewards, dispenses and withdrawals",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := prometheus.NewRegistry()
			server := metrics.NewServer(viper.GetString(flagMetricsAddr), registry)
			server.Start()
			defer server.Stop(context.Background())

			if err := simulate(cmd, registry, viper.GetInt(flagRounds)); err != nil {
				return err
			}
			if linger := viper.GetDuration(flagLinger); linger > 0 && server != nil {
				logger.Info().Str("linger", linger.String()).Msg("keeping metrics endpoint up")
				time.Sleep(linger)
			}
			return nil
		},
	}
	cmd.Flags().Int(flagRounds, 5, "number of reward rounds")
	cmd.Flags().String(flagMetricsAddr, "", "serve prometheus metrics on this address")
	cmd.Flags().Duration(flagLinger, 0, "keep serving metrics this long after the run")
	return cmd
}

func simulate(cmd *cobra.Command, registerer prometheus.Registerer, rounds int) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	params := config.DefaultParams()
	params.DispenseRate = "1000000000000000"
	params.BlockInterval = "10s"
	genesis := &config.Genesis{DispenseReserve: ether(1000).String()}
	for _, account := range []common.Address{simRequester, simOperator, simStaker} {
		genesis.Balances = append(genesis.Balances, config.Allocation{Account: account.Hex(), Amount: ether(100).String()})
	}

	clk := clock.NewMock()
	clk.Set(time.Now())
	n, err := node.New(&node.Config{
		Params:       params,
		Genesis:      genesis,
		Clock:        clk,
		ProofKey:     key,
		LedgerDB:     memorydb.NewDB(),
		AggregatorDB: memorydb.NewDB(),
		ValidatorDB:  memorydb.NewDB(),
		Registerer:   registerer,
	})
	if err != nil {
		return err
	}
	p := n.Protocol
	tick := func() error {
		clk.Add(params.BlockIntervalDuration())
		_, err := n.Tick()
		return err
	}

	prover, err := p.Registry.CreateProver(simOperator, 1000)
	if err != nil {
		return err
	}
	if err = p.Base.Approve(simStaker, protocol.EngineAddress, ether(50)); err != nil {
		return err
	}
	shares, err := p.Engine.Stake(simStaker, prover.Vault, ether(50))
	if err != nil {
		return err
	}
	if err = p.Base.Approve(simRequester, protocol.BridgeAddress, ether(40)); err != nil {
		return err
	}
	if _, err = p.Bridge.Deposit(simRequester, ether(40)); err != nil {
		return err
	}
	if err = tick(); err != nil {
		return err
	}

	for i := 0; i < rounds; i++ {
		n.Aggregator.QueueCharge(simRequester, prover.Vault, ether(1))
		if err = tick(); err != nil {
			return err
		}
		if _, err = p.Engine.Dispense(params.DispenserAddress(), staking.DispenseAll); err != nil {
			return err
		}
	}

	if _, err = p.Bridge.RequestWithdraw(simRequester, simRequester, ether(10)); err != nil {
		return err
	}
	if err = tick(); err != nil {
		return err
	}
	value, err := p.Engine.PreviewUnstake(prover.Vault, shares)
	if err != nil {
		return err
	}
	requester, err := p.Base.BalanceOf(simRequester)
	if err != nil {
		return err
	}
	operator, err := p.Base.BalanceOf(simOperator)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "stake value:        %s (staked %s)\n", value, ether(50))
	fmt.Fprintf(out, "operator balance:   %s\n", operator)
	fmt.Fprintf(out, "requester balance:  %s\n", requester)
	fmt.Fprintf(out, "validator tripped:  %t\n", n.Validator.Tripped())
	return printStatus(cmd, p)
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}
