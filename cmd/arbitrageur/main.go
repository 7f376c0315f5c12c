// Package main starts the triangular arbitrage detector: it loads a pool
// universe, enumerates every 3-hop cycle through the configured base
// token, and streams new blocks looking for a net-positive opportunity
// after gas cost.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"triarb/internal/core/blockstream"
	"triarb/internal/core/eventbus"
	"triarb/internal/core/pool"
	"triarb/internal/core/strategy"
	"triarb/internal/infrastructure/ethereum"
	"triarb/internal/infrastructure/uniswap_v2"
	diagnostics "triarb/internal/presentation/http"
	"triarb/internal/shared/config"
	"triarb/internal/shared/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	log := logger.NewLogger()
	defer log.Sync()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.LoadArbitrageEnv(cfg); err != nil {
		return fmt.Errorf("failed to load arbitrage environment: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ethClient, err := ethereum.NewEthereumClient(cfg.Blockchain.EthereumRPCURL, cfg.Blockchain.ConnectionPoolSize, log)
	if err != nil {
		return fmt.Errorf("failed to create Ethereum connection pool: %w", err)
	}
	defer ethClient.Close()

	subClient, err := ethereum.NewSubscriptionClient(ctx, cfg.Blockchain.WebsocketRPCURL, log)
	if err != nil {
		return fmt.Errorf("failed to create WebSocket subscription client: %w", err)
	}
	defer subClient.Close()

	uniClient := uniswap_v2.NewUniswapV2Client(ethClient, log)

	if !common.IsHexAddress(cfg.Arbitrage.BaseTokenAddress) {
		return fmt.Errorf("invalid base_token_address %q", cfg.Arbitrage.BaseTokenAddress)
	}
	baseToken := common.HexToAddress(cfg.Arbitrage.BaseTokenAddress)

	allPools, err := pool.LoadList(cfg.Arbitrage.PoolListPath)
	if err != nil {
		return fmt.Errorf("failed to load pool list: %w", err)
	}
	log.Info("loaded pool universe", zap.Int("count", len(allPools)))

	maxAmountIn, ok := new(big.Int).SetString(cfg.Arbitrage.OptimizeMaxAmountIn, 10)
	if !ok {
		maxAmountIn = big.NewInt(10)
	}

	referencePool := common.Address{}
	if common.IsHexAddress(cfg.Arbitrage.ReferencePoolAddress) {
		referencePool = common.HexToAddress(cfg.Arbitrage.ReferencePoolAddress)
	}

	strategyCfg := strategy.Config{
		BaseTokenDecimals:         cfg.Arbitrage.BaseTokenDecimals,
		EstimatedGasUnits:         cfg.Arbitrage.EstimatedGasUnits,
		InitialFetchBatchSize:     cfg.Arbitrage.InitialFetchBatchSize,
		OptimizeMaxAmountIn:       maxAmountIn,
		OptimizeStep:              cfg.Arbitrage.OptimizeStep,
		ReferencePool:             referencePool,
		ReferencePoolBaseIsToken0: cfg.Arbitrage.ReferencePoolBaseIsToken0,
	}

	recentSink := strategy.NewRecentSink(100)
	sink := strategy.MultiSink{strategy.LoggingSink{Logger: log}, recentSink}

	loop := strategy.New(strategyCfg, log, ethClient, uniClient, sink)
	if err := loop.Bootstrap(ctx, allPools, baseToken, cfg.Arbitrage.BlacklistAddresses()); err != nil {
		return fmt.Errorf("failed to bootstrap strategy loop: %w", err)
	}

	bus := eventbus.New(cfg.Arbitrage.EventChannelCapacity)
	stream := blockstream.New(subClient, bus, log)

	diagHandler := diagnostics.NewDiagnosticsHandler(log, allPools, loop.Reserves(), recentSink)
	diagServer := &fasthttp.Server{Handler: diagHandler.Handler()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting diagnostics server", zap.String("address", cfg.Server.Address))
		if err := diagServer.ListenAndServe(cfg.Server.Address); err != nil {
			return fmt.Errorf("diagnostics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return diagServer.ShutdownWithContext(shutdownCtx)
	})

	g.Go(func() error {
		return stream.RunBlocks(gctx)
	})

	if cfg.Arbitrage.EnablePendingTxStream {
		g.Go(func() error {
			return stream.RunPendingTransactions(gctx, func(lookupCtx context.Context, hash common.Hash) (*types.Transaction, error) {
				tx, _, err := ethClient.TransactionByHash(lookupCtx, hash)
				return tx, err
			})
		})
	}

	g.Go(func() error {
		sub := bus.Subscribe()
		defer sub.Unsubscribe()
		return loop.Run(gctx, sub)
	})

	waitErr := g.Wait()
	if gctx.Err() != nil && (waitErr == nil || waitErr == context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return waitErr
}
