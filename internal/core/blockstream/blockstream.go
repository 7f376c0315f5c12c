// Package blockstream subscribes to the chain's new-heads (and, optionally,
// pending-transaction) feeds and republishes them as typed events on the
// shared event bus (C7).
package blockstream

import (
	"context"
	"math/big"
	"math/rand"

	"triarb/internal/core/eventbus"
	"triarb/internal/infrastructure/ethereum"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// eight is the EIP-1559 base-fee adjustment denominator (max swing of
// 12.5% per block).
var eight = big.NewInt(8)

// CalculateNextBaseFee derives the next block's expected base fee from the
// current block's gas usage, following EIP-1559:
//
//	target = max(gasLimit/2, 1)
//	if gasUsed > target: next = baseFee + baseFee*(gasUsed-target)/target/8
//	else:                next = baseFee - baseFee*(target-gasUsed)/target/8
//	next += uniform_random_int(0, 8)   -- jitter, to diversify gas bids
func CalculateNextBaseFee(gasUsed, gasLimit, baseFee *big.Int) *big.Int {
	target := new(big.Int).Div(gasLimit, big.NewInt(2))
	if target.Sign() == 0 {
		target = big.NewInt(1)
	}

	var next *big.Int
	switch gasUsed.Cmp(target) {
	case 1:
		diff := new(big.Int).Sub(gasUsed, target)
		delta := new(big.Int).Mul(baseFee, diff)
		delta.Div(delta, target)
		delta.Div(delta, eight)
		next = new(big.Int).Add(baseFee, delta)
	default:
		diff := new(big.Int).Sub(target, gasUsed)
		delta := new(big.Int).Mul(baseFee, diff)
		delta.Div(delta, target)
		delta.Div(delta, eight)
		next = new(big.Int).Sub(baseFee, delta)
	}

	jitter := rand.Intn(9) // 0..8 inclusive
	return next.Add(next, big.NewInt(int64(jitter)))
}

// Stream drives the block and (optional) pending-transaction subscriptions
// and republishes them on the bus.
type Stream struct {
	client ethereum.SubscriptionClient
	bus    *eventbus.Bus
	logger *zap.Logger
}

// New returns a Stream ready to run.
func New(client ethereum.SubscriptionClient, bus *eventbus.Bus, logger *zap.Logger) *Stream {
	return &Stream{client: client, bus: bus, logger: logger}
}

// RunBlocks subscribes to new-heads and republishes each block with a
// numeric height as a NewBlock event, until ctx is canceled. It
// reconnects on transport disconnect; blocks lacking a height are skipped.
func (s *Stream) RunBlocks(ctx context.Context) error {
	for {
		if err := s.streamBlocksOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("block subscription dropped, reconnecting", zap.Error(err))
			continue
		}
		return nil
	}
}

func (s *Stream) streamBlocksOnce(ctx context.Context) error {
	headers := make(chan *types.Header)
	sub, err := s.client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case header := <-headers:
			if header.Number == nil {
				continue
			}
			block := eventbus.NewBlock{
				BlockNumber: header.Number.Uint64(),
				BaseFee:     header.BaseFee,
			}
			if header.BaseFee != nil {
				block.NextBaseFee = CalculateNextBaseFee(new(big.Int).SetUint64(header.GasUsed), new(big.Int).SetUint64(header.GasLimit), header.BaseFee)
			}
			s.bus.Publish(eventbus.BlockEvent(block))
		}
	}
}

// RunPendingTransactions subscribes to pending transaction hashes and
// republishes each as a PendingTx event, fetching the full transaction via
// the supplied lookup function. Nothing subscribes to these by default
// (the strategy loop's Event::PendingTx arm is presently a no-op, matching
// the original implementation), but the plumbing exists so a future
// strategy can consume it without re-wiring the stream.
func (s *Stream) RunPendingTransactions(ctx context.Context, lookup func(ctx context.Context, hash common.Hash) (*types.Transaction, error)) error {
	for {
		if err := s.streamPendingTxOnce(ctx, lookup); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("pending-tx subscription dropped, reconnecting", zap.Error(err))
			continue
		}
		return nil
	}
}

func (s *Stream) streamPendingTxOnce(ctx context.Context, lookup func(ctx context.Context, hash common.Hash) (*types.Transaction, error)) error {
	hashes := make(chan common.Hash)
	sub, err := s.client.SubscribePendingTransactions(ctx, hashes)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case hash := <-hashes:
			tx, err := lookup(ctx, hash)
			if err != nil {
				continue
			}
			s.bus.Publish(eventbus.PendingTxEvent(tx))
		}
	}
}
