// Package strategy is the per-block evaluation loop (C8): it bootstraps
// the path set and reserve store, then on every new block re-fetches only
// the pools touched by that block's Sync logs, rescans every path for
// profit, and emits a candidate Opportunity for anything net-positive
// after gas cost.
package strategy

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"triarb/internal/core/blacklist"
	"triarb/internal/core/eventbus"
	"triarb/internal/core/paths"
	"triarb/internal/core/pool"
	"triarb/internal/core/refresh"
	"triarb/internal/core/simulator"
	"triarb/internal/core/store"
	"triarb/internal/infrastructure/ethereum"
	"triarb/internal/infrastructure/uniswap_v2"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Opportunity is one candidate arbitrage surfaced in a given block: the
// path, the amount-in that maximizes profit at the block's reserves, and
// the gross/gas/net profit breakdown, all expressed in base-token atomic
// units.
type Opportunity struct {
	BlockNumber uint64
	PathIndex   int
	Path        paths.ArbPath
	AmountIn    *big.Int
	GrossProfit *big.Int
	GasCost     *big.Int
	NetProfit   *big.Int
}

// OpportunitySink receives every opportunity the loop finds net-positive.
// Execution (building and sending the swap transaction) is out of scope;
// sinks only observe.
type OpportunitySink interface {
	Publish(ctx context.Context, opp Opportunity)
}

// LoggingSink logs each opportunity at info level. It is the default sink
// when nothing more specific (a queue, a metrics counter) is configured.
type LoggingSink struct {
	Logger *zap.Logger
}

func (s LoggingSink) Publish(_ context.Context, opp Opportunity) {
	s.Logger.Info("arbitrage opportunity",
		zap.Uint64("block", opp.BlockNumber),
		zap.Int("path_index", opp.PathIndex),
		zap.String("amount_in", opp.AmountIn.String()),
		zap.String("gross_profit", opp.GrossProfit.String()),
		zap.String("gas_cost", opp.GasCost.String()),
		zap.String("net_profit", opp.NetProfit.String()),
	)
}

// RecentSink retains the last N opportunities in memory for a diagnostics
// endpoint to read. Unlike the reserve store, this genuinely has
// concurrent readers (the HTTP handler) and a single writer (the strategy
// loop), so it is mutex-protected.
type RecentSink struct {
	mu       sync.Mutex
	capacity int
	items    []Opportunity
}

// NewRecentSink returns a RecentSink retaining up to capacity entries.
func NewRecentSink(capacity int) *RecentSink {
	if capacity <= 0 {
		capacity = 100
	}
	return &RecentSink{capacity: capacity}
}

func (s *RecentSink) Publish(_ context.Context, opp Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, opp)
	if len(s.items) > s.capacity {
		s.items = s.items[len(s.items)-s.capacity:]
	}
}

// Recent returns a copy of the currently retained opportunities, newest last.
func (s *RecentSink) Recent() []Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Opportunity, len(s.items))
	copy(out, s.items)
	return out
}

// MultiSink fans a single Publish call out to every wrapped sink, in order.
type MultiSink []OpportunitySink

func (m MultiSink) Publish(ctx context.Context, opp Opportunity) {
	for _, s := range m {
		s.Publish(ctx, opp)
	}
}

// Config bundles the loop's tunables; see internal/shared/config for the
// YAML-backed source of these values.
type Config struct {
	BaseTokenDecimals     uint8
	EstimatedGasUnits     int64
	InitialFetchBatchSize int
	OptimizeMaxAmountIn   *big.Int
	OptimizeStep          int64
	ReferencePool         common.Address
	// ReferencePoolBaseIsToken0 says whether the reference pool's token0
	// is the base token, so gas cost (quoted in the chain's native token)
	// can be converted into base-token units via its reserves.
	ReferencePoolBaseIsToken0 bool
}

// Loop owns the path set and reserve store and drives one full pass per
// block event it receives from the bus.
type Loop struct {
	cfg       Config
	logger    *zap.Logger
	client    ethereum.EthereumClient
	uniClient uniswap_v2.UniswapV2Client
	sink      OpportunitySink

	paths    []paths.ArbPath
	reserves *store.ReserveStore
}

// New returns a Loop ready for Bootstrap.
func New(cfg Config, logger *zap.Logger, client ethereum.EthereumClient, uniClient uniswap_v2.UniswapV2Client, sink OpportunitySink) *Loop {
	if sink == nil {
		sink = LoggingSink{Logger: logger}
	}
	return &Loop{cfg: cfg, logger: logger, client: client, uniClient: uniClient, sink: sink}
}

// Bootstrap enumerates triangular paths over pools, drops any path
// touching a blacklisted token, and bulk-fetches reserves for the
// resulting working pool set. It must complete before Run is called.
func (l *Loop) Bootstrap(ctx context.Context, allPools []pool.Pool, baseToken common.Address, blacklistTokens []common.Address) error {
	all := paths.GenerateTriangularPaths(allPools, baseToken, func(done, total int) {
		if total > 0 && done%1000 == 0 {
			l.logger.Debug("enumerating triangular paths", zap.Int("done", done), zap.Int("total", total))
		}
	})
	l.logger.Info("enumerated triangular paths", zap.Int("count", len(all)))

	bl := blacklist.New(blacklistTokens)
	filtered := bl.Filter(all)
	l.logger.Info("filtered triangular paths",
		zap.Int("before", len(all)),
		zap.Int("after", len(filtered)),
		zap.Int("dropped", len(all)-len(filtered)))

	l.paths = filtered
	working := paths.WorkingPoolSet(filtered)

	reserves, err := refresh.BulkFetch(ctx, l.uniClient, working, l.cfg.InitialFetchBatchSize)
	if err != nil {
		return err
	}
	l.reserves = reserves

	l.logger.Info("initial reserve fetch complete",
		zap.Int("working_pools", len(working)),
		zap.Int("loaded_reserves", reserves.Len()))
	return nil
}

// Paths returns the (post-blacklist-filter) path set, for diagnostics.
func (l *Loop) Paths() []paths.ArbPath { return l.paths }

// Reserves returns the live reserve store, for diagnostics. Callers must
// not mutate it; the strategy loop is its sole writer.
func (l *Loop) Reserves() *store.ReserveStore { return l.reserves }

// Run drives the loop from sub until ctx is canceled or the subscription
// closes. Only block events are acted on; pending-tx and log events pass
// through unhandled, matching the original implementation's no-op arms.
func (l *Loop) Run(ctx context.Context, sub *eventbus.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.Lagged():
			l.logger.Warn("event bus subscriber lagging, dropped events")
		case evt, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if evt.Kind == eventbus.KindBlock && evt.Block != nil {
				l.handleBlock(ctx, *evt.Block)
			}
		}
	}
}

// handleBlock re-fetches only the pools touched by this block's Sync
// logs, updates the store, and rescans every surviving path for a
// net-positive opportunity at the block's next expected base fee.
func (l *Loop) handleBlock(ctx context.Context, block eventbus.NewBlock) {
	touched, err := refresh.TouchedReserves(ctx, l.client, block.BlockNumber)
	if err != nil {
		l.logger.Warn("touched-reserve fetch failed, scanning with stale reserves", zap.Uint64("block", block.BlockNumber), zap.Error(err))
		touched = nil
	}

	for addr, r := range touched {
		l.reserves.Upsert(addr, r)
	}
	if len(touched) > 0 {
		addrs := make([]string, 0, len(touched))
		for addr := range touched {
			addrs = append(addrs, addr.Hex())
		}
		sort.Strings(addrs)
		l.logger.Debug("updated touched pools", zap.Uint64("block", block.BlockNumber), zap.Strings("pools", addrs))
	}

	gasCost := l.gasCostInBaseToken(block.NextBaseFee)

	type candidate struct {
		index  int
		path   paths.ArbPath
		spread *big.Int
	}
	candidates := make([]candidate, 0, len(l.paths))

	unit := pow10(l.cfg.BaseTokenDecimals)
	oneUnit := big.NewInt(1)

	for i, p := range l.paths {
		out, err := p.Simulate(oneUnit, l.reserves)
		if err != nil {
			continue
		}
		// Fixes the REDESIGN FLAG in the original's spread calculation,
		// which multiplied the one-unit cost by the wrong token's
		// decimals; here the cost is always unit (10^baseTokenDecimals)
		// for every path, consistent with the probe amount.
		cost := unit
		spread := new(big.Int).Sub(out, cost)
		if spread.Sign() <= 0 {
			continue
		}
		candidates = append(candidates, candidate{index: i, path: p, spread: spread})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].spread.Cmp(candidates[j].spread) > 0
	})

	for _, c := range candidates {
		amountIn, grossProfit := c.path.OptimizeAmountIn(l.cfg.OptimizeMaxAmountIn, l.cfg.OptimizeStep, l.reserves)
		netProfit := new(big.Int).Sub(grossProfit, gasCost)
		if netProfit.Sign() <= 0 {
			continue
		}

		l.sink.Publish(ctx, Opportunity{
			BlockNumber: block.BlockNumber,
			PathIndex:   c.index,
			Path:        c.path,
			AmountIn:    amountIn,
			GrossProfit: grossProfit,
			GasCost:     gasCost,
			NetProfit:   netProfit,
		})
	}
}

// gasCostInBaseToken converts EstimatedGasUnits * nextBaseFee (native-token
// wei) into base-token atomic units via the reference pool's current
// price. If nextBaseFee is nil (pre-EIP-1559 chain) or the reference pool
// has no known reserves, it returns zero rather than blocking the scan.
func (l *Loop) gasCostInBaseToken(nextBaseFee *big.Int) *big.Int {
	if nextBaseFee == nil || l.cfg.EstimatedGasUnits <= 0 {
		return big.NewInt(0)
	}
	weiCost := new(big.Int).Mul(big.NewInt(l.cfg.EstimatedGasUnits), nextBaseFee)

	reserve, ok := l.reserves.Get(l.cfg.ReferencePool)
	if !ok {
		return big.NewInt(0)
	}

	// ReservesToPrice's d0/d1 arguments are positional to r0/r1, not fixed
	// to "native"/"base" — when the reference pool's token0 is the base
	// token, d0 must be the base decimals and d1 the native (18), with
	// invert=true to still compute base-per-native; otherwise d0=native,
	// d1=base with invert=false.
	var price float64
	if l.cfg.ReferencePoolBaseIsToken0 {
		price = simulator.ReservesToPrice(reserve.Reserve0, reserve.Reserve1, l.cfg.BaseTokenDecimals, 18, true)
	} else {
		price = simulator.ReservesToPrice(reserve.Reserve0, reserve.Reserve1, 18, l.cfg.BaseTokenDecimals, false)
	}
	weiFloat := new(big.Float).SetInt(weiCost)
	ethUnit := new(big.Float).SetInt(pow10(18))
	nativeAmount := new(big.Float).Quo(weiFloat, ethUnit)

	baseAmount := new(big.Float).Mul(nativeAmount, big.NewFloat(price))
	baseAtomic := new(big.Float).Mul(baseAmount, new(big.Float).SetInt(pow10(l.cfg.BaseTokenDecimals)))

	out, _ := baseAtomic.Int(nil)
	return out
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
