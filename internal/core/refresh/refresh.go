// Package refresh implements the reserve refresher (C5): a bulk initial
// fetch fanned out across batches, and a per-block delta driven by Sync
// logs.
package refresh

import (
	"context"
	"fmt"
	"math/big"

	"triarb/internal/core/pool"
	"triarb/internal/core/store"
	"triarb/internal/infrastructure/ethereum"
	"triarb/internal/infrastructure/uniswap_v2"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize mirrors the spec's hard-coded ≤250-pools-per-batch rule.
const DefaultBatchSize = 250

// syncEventTopic is keccak256("Sync(uint112,uint112)"), the topic0 the
// per-block delta fetch filters eth_getLogs on.
var syncEventTopic = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))

// BulkFetch performs the initial reserve load for every pool in pools,
// splitting the set into ceil(N/batchSize) batches and fetching them
// concurrently via errgroup. Any single batch's failure aborts the whole
// fetch — a half-populated store is a silent correctness hazard, so
// startup must abort rather than proceed with partial data.
//
// Each pool's getReserves() read is done as a direct storage-slot read
// (internal/infrastructure/uniswap_v2.LoadReserves), the same primitive
// the teacher's /estimate endpoint already uses for a single pool, reused
// here at scale: a batch's "one round trip" is realized as that batch's
// reads sharing the HTTP client's pooled connections, with true
// parallelism achieved across batches via errgroup rather than via a
// combined multicall aggregator contract (see DESIGN.md for why the
// simpler approach was kept).
func BulkFetch(ctx context.Context, uniClient uniswap_v2.UniswapV2Client, pools []pool.Pool, batchSize int) (*store.ReserveStore, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	n := len(pools)
	if n == 0 {
		return store.New(), nil
	}

	numBatches := (n + batchSize - 1) / batchSize
	batchResults := make([]map[common.Address]store.Reserve, numBatches)

	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < numBatches; b++ {
		b := b
		start := b * batchSize
		end := start + batchSize
		if end > n {
			end = n
		}
		batch := pools[start:end]

		g.Go(func() error {
			res, err := fetchBatch(gctx, uniClient, batch)
			if err != nil {
				return fmt.Errorf("batch %d: %w", b, err)
			}
			batchResults[b] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := store.New()
	for _, res := range batchResults {
		for addr, r := range res {
			result.Upsert(addr, r)
		}
	}
	return result, nil
}

func fetchBatch(ctx context.Context, uniClient uniswap_v2.UniswapV2Client, batch []pool.Pool) (map[common.Address]store.Reserve, error) {
	out := make(map[common.Address]store.Reserve, len(batch))
	for _, pl := range batch {
		r0, r1, err := uniClient.LoadReserves(ctx, pl.Address, nil)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", pl.Address.Hex(), err)
		}
		out[pl.Address] = store.Reserve{Reserve0: r0, Reserve1: r1}
	}
	return out, nil
}

// logKey orders Sync logs within a block so the highest transaction index
// wins, with log index as the tiebreak (per spec.md §4.5 / §8 S6).
type logKey struct {
	txIndex  uint
	logIndex uint
}

func (a logKey) less(b logKey) bool {
	if a.txIndex != b.txIndex {
		return a.txIndex < b.txIndex
	}
	return a.logIndex < b.logIndex
}

// TouchedReserves fetches every Sync log emitted in exactly blockNumber,
// keeping only the latest entry per pool (highest tx index, ties broken
// by log index), and returns the resulting pool -> Reserve change-set.
// Malformed log entries are skipped; others are still processed.
func TouchedReserves(ctx context.Context, client ethereum.EthereumClient, blockNumber uint64) (map[common.Address]store.Reserve, error) {
	bn := new(big.Int).SetUint64(blockNumber)
	query := geth.FilterQuery{
		FromBlock: bn,
		ToBlock:   bn,
		Topics:    [][]common.Hash{{syncEventTopic}},
	}

	logs, err := client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter sync logs: %w", err)
	}

	latestKey := make(map[common.Address]logKey)
	latestReserve := make(map[common.Address]store.Reserve)

	for _, lg := range logs {
		if len(lg.Data) < 64 {
			continue
		}
		key := logKey{txIndex: lg.TxIndex, logIndex: lg.Index}
		if existing, ok := latestKey[lg.Address]; ok && !existing.less(key) {
			continue
		}
		latestKey[lg.Address] = key
		latestReserve[lg.Address] = store.Reserve{
			Reserve0: new(big.Int).SetBytes(lg.Data[0:32]),
			Reserve1: new(big.Int).SetBytes(lg.Data[32:64]),
		}
	}

	return latestReserve, nil
}
