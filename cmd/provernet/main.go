package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/celer-network/go-provernet/log"
)

const (
	flagHome        = "home"
	flagPassword    = "password"
	flagMetricsAddr = "metrics-addr"
)

var logger = log.NewLogger("provernet")

func main() {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:   "provernet",
		Short: "prover network ledger node",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		initCommand(),
		statusCommand(),
		runCommand(),
		simulateCommand(),
	)

	rootCmd.PersistentFlags().String(flagHome, "./provernet", "node home directory")
	rootCmd.PersistentFlags().String(flagPassword, "", "proof keystore password")
	err := rootCmd.Execute()
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
}
