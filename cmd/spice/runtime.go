package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spiceEngine/internal/chain"
	"spiceEngine/internal/config"
	"spiceEngine/internal/custody"
	"spiceEngine/internal/engine"
	"spiceEngine/internal/oracle"
	"spiceEngine/internal/storage"
	"spiceEngine/internal/storage/postgres"
	"spiceEngine/internal/token"
)

// runtime is the engine wired from configuration.
type runtime struct {
	cfg      config.Config
	logger   *zap.Logger
	engine   *engine.Engine
	tokens   token.Registry
	registry *prometheus.Registry
	closers  []func()
}

func newRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	administrator, err := config.ParseOptionalAddress(cfg.Administrator)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("administrator: %w", err)
	}

	store, err := rt.openStore(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	prices, tokens, err := rt.openMarket(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.tokens = tokens

	engCfg := engine.Config{
		Store:      store,
		Custodian:  custody.NewJournal(cfg.Journal),
		Oracle:     prices,
		Tokens:     tokens,
		Registerer: rt.registry,
		Logger:     logger,
	}
	if administrator != nil {
		engCfg.Administrator = *administrator
	}
	rt.engine, err = engine.New(engCfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	logger.Debug("engine ready",
		zap.String("state_file", cfg.StateFile),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("journal", cfg.Journal),
		zap.String("rpc", cfg.RPCURL),
	)
	return rt, nil
}

func (rt *runtime) openStore(ctx context.Context) (storage.Store, error) {
	if rt.cfg.PGDSN == "" {
		store, err := storage.OpenFile(rt.cfg.StateFile)
		if err != nil {
			return nil, fmt.Errorf("open state file: %w", err)
		}
		return store, nil
	}

	store, err := postgres.NewStore(ctx, rt.cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rt.closers = append(rt.closers, store.Close)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// openMarket reads prices and decimals from chain when an RPC URL is set and
// from the market file otherwise.
func (rt *runtime) openMarket(ctx context.Context) (oracle.PriceOracle, token.Registry, error) {
	if rt.cfg.RPCURL != "" {
		client, err := chain.NewClient(ctx, rt.cfg.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rpc: %w", err)
		}
		rt.closers = append(rt.closers, client.Close)
		feeds := oracle.NewChainlink(oracle.ChainlinkConfig{
			MaxRetries:   rt.cfg.MaxRetries,
			RetryBackoff: rt.cfg.RetryBackoff,
		}, client, rt.logger)
		return feeds, token.NewERC20(client, rt.logger), nil
	}

	market := config.Market{}
	if _, err := os.Stat(rt.cfg.MarketFile); err == nil {
		market, err = config.LoadMarket(rt.cfg.MarketFile)
		if err != nil {
			return nil, nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("stat market file: %w", err)
	} else {
		rt.logger.Debug("market file not found", zap.String("path", rt.cfg.MarketFile))
	}
	return oracle.NewStatic(market.Prices), token.NewStatic(market.Decimals), nil
}

// formatted renders amount of asset in whole units when decimals are known.
func (rt *runtime) formatted(ctx context.Context, asset common.Address, amount uint64) string {
	d, err := rt.tokens.Decimals(ctx, asset)
	if err != nil {
		return ""
	}
	return token.FormatAmount(amount, d)
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	if rt.logger != nil {
		_ = rt.logger.Sync()
	}
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	addr, err := config.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}
