// Package paths implements the three-hop cycle enumerator (C3) and the
// per-path evaluator (C4): simulation, spread, and amount-in optimization.
package paths

import (
	"fmt"
	"math/big"

	"triarb/internal/core/pool"
	"triarb/internal/core/simulator"
	"triarb/internal/core/store"

	"github.com/ethereum/go-ethereum/common"
)

// PathParam is one hop's router/token-in/token-out triple: the hand-off
// shape an (out-of-scope) executor would need to build a swap transaction.
type PathParam struct {
	Router   common.Address
	TokenIn  common.Address
	TokenOut common.Address
}

// ArbPath is an ordered triple of pools together with a per-hop direction
// bit. Paths own their Pool copies so the path set is self-contained and
// survives independently of whatever pool list produced it.
type ArbPath struct {
	Pool1, Pool2, Pool3                   pool.Pool
	ZeroForOne1, ZeroForOne2, ZeroForOne3 bool
}

func (p ArbPath) pools() [3]pool.Pool {
	return [3]pool.Pool{p.Pool1, p.Pool2, p.Pool3}
}

func (p ArbPath) directions() [3]bool {
	return [3]bool{p.ZeroForOne1, p.ZeroForOne2, p.ZeroForOne3}
}

// HasPool reports whether any of the three hops trades through addr. Used
// to prune paths unaffected by a given block's touched-pool set.
func (p ArbPath) HasPool(addr common.Address) bool {
	return p.Pool1.Address == addr || p.Pool2.Address == addr || p.Pool3.Address == addr
}

// BaseTokenDecimals returns the decimals of the path's base (input) token,
// read consistently off hop 1 regardless of its direction. This fixes the
// REDESIGN FLAG in the original implementation, which inconsistently read
// pool_1.decimals0 in one branch and pool_2.decimals1 in the other.
func (p ArbPath) BaseTokenDecimals() uint8 {
	if p.ZeroForOne1 {
		return p.Pool1.Decimals0
	}
	return p.Pool1.Decimals1
}

// ShouldBlacklist reports whether any pool in the path has a token in the
// given blacklist set.
func (p ArbPath) ShouldBlacklist(blacklist map[common.Address]struct{}) bool {
	for _, pl := range p.pools() {
		if _, ok := blacklist[pl.Token0]; ok {
			return true
		}
		if _, ok := blacklist[pl.Token1]; ok {
			return true
		}
	}
	return false
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// Simulate runs amountIn (expressed in whole units of the path's base
// token, e.g. "1" meaning one USDC) through all three hops in order,
// scaling by 10^decimals of the base token before the first hop. It fails
// on the first hop whose reserve lookup misses or whose swap math fails.
func (p ArbPath) Simulate(amountIn *big.Int, reserves *store.ReserveStore) (*big.Int, error) {
	unit := pow10(p.BaseTokenDecimals())
	amountOut := new(big.Int).Mul(amountIn, unit)

	pls := p.pools()
	dirs := p.directions()

	for i := 0; i < 3; i++ {
		pl := pls[i]
		reserve, ok := reserves.Get(pl.Address)
		if !ok {
			return nil, fmt.Errorf("%w: %s", store.ErrPoolNotInStore, pl.Address.Hex())
		}

		reserveIn, reserveOut := reserve.Reserve0, reserve.Reserve1
		if !dirs[i] {
			reserveIn, reserveOut = reserve.Reserve1, reserve.Reserve0
		}

		out, err := simulator.GetAmountOut(amountOut, reserveIn, reserveOut, pl.FeeNumerator)
		if err != nil {
			return nil, fmt.Errorf("hop %d (pool %s): %w", i+1, pl.Address.Hex(), err)
		}
		amountOut = out
	}

	return amountOut, nil
}

// OptimizeAmountIn scans amountIn over 0, step, 2*step, ... <= maxAmountIn
// (all expressed in whole base-token units per REDESIGN FLAGS), tracking
// the running maximum of simulate(amountIn) - amountIn*unit and stopping
// as soon as profit decreases from the previous sample. The profit series
// for a triangular arbitrage across three CPMMs is unimodal, so this early
// termination is correct and bounded.
func (p ArbPath) OptimizeAmountIn(maxAmountIn *big.Int, step int64, reserves *store.ReserveStore) (bestIn, bestProfit *big.Int) {
	unit := pow10(p.BaseTokenDecimals())
	bestIn = big.NewInt(0)
	bestProfit = big.NewInt(0)
	haveBest := false

	if step <= 0 {
		step = 1
	}
	stepBig := big.NewInt(step)

	for amountIn := big.NewInt(0); amountIn.Cmp(maxAmountIn) <= 0; amountIn = new(big.Int).Add(amountIn, stepBig) {
		out, err := p.Simulate(amountIn, reserves)
		if err != nil {
			continue
		}

		cost := new(big.Int).Mul(amountIn, unit)
		profit := new(big.Int).Sub(out, cost)
		simulator.AssertFitsInt128(profit)

		if !haveBest || profit.Cmp(bestProfit) >= 0 {
			bestIn = new(big.Int).Set(amountIn)
			bestProfit = profit
			haveBest = true
			continue
		}
		break
	}

	return bestIn, bestProfit
}

// ToPathParams converts the path into the ordered (router, tokenIn,
// tokenOut) triples an executor would use to build a multi-hop swap
// transaction. routers[i] is the router contract for hop i+1.
func (p ArbPath) ToPathParams(routers [3]common.Address) [3]PathParam {
	pls := p.pools()
	dirs := p.directions()

	var out [3]PathParam
	for i := 0; i < 3; i++ {
		tokenIn, tokenOut := pls[i].Token0, pls[i].Token1
		if !dirs[i] {
			tokenIn, tokenOut = pls[i].Token1, pls[i].Token0
		}
		out[i] = PathParam{Router: routers[i], TokenIn: tokenIn, TokenOut: tokenOut}
	}
	return out
}

// WorkingPoolSet returns the deduplicated union of every pool referenced
// by any of the given paths.
func WorkingPoolSet(all []ArbPath) []pool.Pool {
	seen := make(map[common.Address]pool.Pool)
	order := make([]common.Address, 0)
	for _, p := range all {
		for _, pl := range p.pools() {
			if _, ok := seen[pl.Address]; !ok {
				seen[pl.Address] = pl
				order = append(order, pl.Address)
			}
		}
	}
	result := make([]pool.Pool, 0, len(order))
	for _, addr := range order {
		result = append(result, seen[addr])
	}
	return result
}
