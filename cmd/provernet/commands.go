package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/celer-network/go-provernet/config"
	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/db/badgerdb"
	"github.com/celer-network/go-provernet/metrics"
	"github.com/celer-network/go-provernet/node"
	"github.com/celer-network/go-provernet/protocol"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/types"
	"github.com/celer-network/go-provernet/utils"
	"github.com/celer-network/go-provernet/verifier"
)

const (
	genesisFile = "genesis.yaml"
	keystoreDir = "keystore"
	dbDir       = "db"
)

var dbNames = []string{"ledger", "aggregator", "validator"}

func initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write default config, genesis and proof key, then apply genesis",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := viper.GetString(flagHome)
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			if err := config.WriteDefaults(home); err != nil {
				return err
			}
			if err := config.WriteGenesis(filepath.Join(home, genesisFile), &config.Genesis{DispenseReserve: "0"}); err != nil {
				return err
			}
			if _, err := keystorePath(home); err != nil {
				key, err := crypto.GenerateKey()
				if err != nil {
					return err
				}
				path, err := utils.StoreKeystore(filepath.Join(home, keystoreDir), key, viper.GetString(flagPassword))
				if err != nil {
					return err
				}
				logger.Info().Str("path", path).Str("vkey", verifier.VKeyFor(key).Hex()).Msg("proof key created")
			}

			n, closeDBs, err := openNode(home, clock.New(), nil)
			if err != nil {
				return err
			}
			defer closeDBs()
			return printStatus(cmd, n.Protocol)
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the ledger head, pending transactions and dispense state",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := viper.GetString(flagHome)
			ledgerDir := filepath.Join(home, dbDir, "ledger")
			if _, err := os.Stat(ledgerDir); err != nil {
				return fmt.Errorf("no ledger at %s, run init first", ledgerDir)
			}
			params, err := config.Load(home)
			if err != nil {
				return err
			}
			db, err := badgerdb.NewDB(ledgerDir)
			if err != nil {
				return err
			}
			defer db.Close()
			serializer := types.MustNewSerializer()
			p, err := protocol.New(storage.NewStore(db), params, clock.New(), verifier.NewAttestation(serializer), nil)
			if err != nil {
				return err
			}
			return printStatus(cmd, p)
		},
	}
}

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce blocks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := prometheus.NewRegistry()
			n, closeDBs, err := openNode(viper.GetString(flagHome), clock.New(), registry)
			if err != nil {
				return err
			}
			defer closeDBs()

			server := metrics.NewServer(viper.GetString(flagMetricsAddr), registry)
			server.Start()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Stop(ctx); err != nil {
					logger.Error().Err(err).Msg("stop metrics server")
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err = n.Run(ctx); errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String(flagMetricsAddr, "", "serve prometheus metrics on this address")
	return cmd
}

func keystorePath(home string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(home, keystoreDir, "*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no proof key in %s", filepath.Join(home, keystoreDir))
	}
	return matches[0], nil
}

// openNode assembles a node over the badger databases of home.
func openNode(home string, clk clock.Clock, registerer prometheus.Registerer) (*node.Node, func(), error) {
	params, err := config.Load(home)
	if err != nil {
		return nil, nil, err
	}
	genesis, err := config.LoadGenesis(filepath.Join(home, genesisFile))
	if err != nil {
		return nil, nil, err
	}
	path, err := keystorePath(home)
	if err != nil {
		return nil, nil, err
	}
	key, err := utils.GetPrivateKeyFromKeystore(path, viper.GetString(flagPassword))
	if err != nil {
		return nil, nil, err
	}

	var opened []provernetdb.DB
	closeDBs := func() {
		for _, db := range opened {
			if err := db.Close(); err != nil {
				logger.Error().Err(err).Msg("close db")
			}
		}
	}
	for _, name := range dbNames {
		db, err := badgerdb.NewDB(filepath.Join(home, dbDir, name))
		if err != nil {
			closeDBs()
			return nil, nil, err
		}
		opened = append(opened, db)
	}

	n, err := node.New(&node.Config{
		Params:       params,
		Genesis:      genesis,
		Clock:        clk,
		ProofKey:     key,
		LedgerDB:     opened[0],
		AggregatorDB: opened[1],
		ValidatorDB:  opened[2],
		Registerer:   registerer,
	})
	if err != nil {
		closeDBs()
		return nil, nil, err
	}
	return n, closeDBs, nil
}

func printStatus(cmd *cobra.Command, p *protocol.Protocol) error {
	s, err := p.Status()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "block:              %d\n", s.BlockNumber)
	fmt.Fprintf(out, "root:               %s\n", s.Root.Hex())
	fmt.Fprintf(out, "timestamp:          %d\n", s.Timestamp)
	fmt.Fprintf(out, "paused:             %t\n", s.Paused)
	fmt.Fprintf(out, "pending txs:        %d\n", s.PendingTxs)
	fmt.Fprintf(out, "finalized tx:       %d\n", s.FinalizedTxID)
	fmt.Fprintf(out, "provers:            %d\n", s.Provers)
	fmt.Fprintf(out, "escrow:             %s\n", s.Escrow)
	fmt.Fprintf(out, "asset vault assets: %s\n", s.AssetVaultAssets)
	fmt.Fprintf(out, "asset vault shares: %s\n", s.AssetVaultShares)
	fmt.Fprintf(out, "dispense available: %s\n", s.DispenseAvailable)
	return nil
}
