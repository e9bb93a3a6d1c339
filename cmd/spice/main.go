package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "spice",
		Short:        "Oracle-priced liquidity pool engine",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("state-file", "./data/state.json", "JSON state snapshot (ignored with --pg-dsn)")
	flags.String("pg-dsn", "", "Postgres DSN for engine state")
	flags.String("journal", "./data/transfers.jsonl", "transfer journal JSONL path")
	flags.String("market-file", "./data/market.yaml", "static prices and decimals (ignored with --rpc)")
	flags.String("rpc", "", "EVM RPC URL for price aggregators and token decimals")
	flags.String("administrator", "", "bootstrap administrator allowed to initialise the treasury")
	flags.Int("max-retries", 5, "maximum RPC retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")

	root.AddCommand(
		newTreasuryCmd(),
		newPoolCmd(),
		newLiquidityCmd(),
		newHarvestCmd(),
		newSwapCmd(),
		newQuoteCmd(),
		newCollectCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
