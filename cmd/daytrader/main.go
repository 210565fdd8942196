// Command daytrader is the process entrypoint (§6 CLI): it loads config,
// wires the chosen Broker Adapter and the rest of the engine, and either
// runs the live/paper/backtest loop or materializes a feature-training
// dataset, depending on the subcommand.
//
// Grounded on
// _examples/sawpanic-cryptorun/src/cmd/cryptorun/main.go's rootCmd +
// subcommand-per-file + init() flag registration convention.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envPath    string
)

var rootCmd = &cobra.Command{
	Use:   "daytrader",
	Short: "Korean intraday equity trading engine",
	Long: `daytrader drives a single-stock-per-day intraday trading strategy
through its real, paper and backtest Broker Adapters, sharing one event-driven
phase clock and prediction pipeline across all three modes.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "path to the .env file carrying broker credentials")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "daytrader: %v\n", err)
		os.Exit(1)
	}
}
