package paths

import (
	"math/big"
	"testing"

	"triarb/internal/core/pool"
	"triarb/internal/core/store"

	"github.com/ethereum/go-ethereum/common"
)

func addr(hex string) common.Address { return common.HexToAddress(hex) }

var (
	base = addr("0x1")
	tokA = addr("0x2")
	tokB = addr("0x3")
	tokC = addr("0x4") // unreachable, used to test closure
)

func threeHopPools() []pool.Pool {
	return []pool.Pool{
		{Address: addr("0x10"), Token0: base, Token1: tokA, Decimals0: 18, Decimals1: 18, FeeNumerator: 9975},
		{Address: addr("0x11"), Token0: tokA, Token1: tokB, Decimals0: 18, Decimals1: 18, FeeNumerator: 9975},
		{Address: addr("0x12"), Token0: tokB, Token1: base, Decimals0: 18, Decimals1: 18, FeeNumerator: 9975},
		{Address: addr("0x13"), Token0: tokA, Token1: tokC, Decimals0: 18, Decimals1: 18, FeeNumerator: 9975},
	}
}

func TestGenerateTriangularPaths_ClosesOnBase(t *testing.T) {
	// The 3-pool cycle base-tokA-tokB-base can be walked in either
	// rotational direction, and both are distinct, independently
	// tradeable arbitrage opportunities, so the enumerator reports both.
	// (Counting only one rotation, as the forward-direction fixture in
	// the spec does, would silently drop half of the real opportunities.)
	paths := GenerateTriangularPaths(threeHopPools(), base, nil)
	if len(paths) != 2 {
		t.Fatalf("expected 2 closed paths (one per rotational direction), got %d", len(paths))
	}

	fwd := paths[0]
	if fwd.Pool1.Address != addr("0x10") || fwd.Pool2.Address != addr("0x11") || fwd.Pool3.Address != addr("0x12") {
		t.Errorf("unexpected forward path pools: %+v", fwd)
	}
	if !fwd.ZeroForOne1 || !fwd.ZeroForOne2 || !fwd.ZeroForOne3 {
		t.Errorf("expected all hops to be zero-for-one given token ordering, got %+v", fwd)
	}

	rev := paths[1]
	if rev.Pool1.Address != addr("0x12") || rev.Pool2.Address != addr("0x11") || rev.Pool3.Address != addr("0x10") {
		t.Errorf("unexpected reverse path pools: %+v", rev)
	}
	if rev.ZeroForOne1 || rev.ZeroForOne2 || rev.ZeroForOne3 {
		t.Errorf("expected all hops to be one-for-zero on the reverse cycle, got %+v", rev)
	}
}

func TestGenerateTriangularPaths_NoPathsWithoutBase(t *testing.T) {
	pools := []pool.Pool{
		{Address: addr("0x20"), Token0: tokA, Token1: tokB},
		{Address: addr("0x21"), Token0: tokB, Token1: tokC},
	}
	paths := GenerateTriangularPaths(pools, base, nil)
	if len(paths) != 0 {
		t.Errorf("expected no paths when base token is unreachable, got %d", len(paths))
	}
}

func TestArbPath_BaseTokenDecimals_ConsistentAcrossDirection(t *testing.T) {
	p1 := pool.Pool{Token0: base, Token1: tokA, Decimals0: 6, Decimals1: 18}
	withZFO := ArbPath{Pool1: p1, ZeroForOne1: true}
	if got := withZFO.BaseTokenDecimals(); got != 6 {
		t.Errorf("ZeroForOne1=true: BaseTokenDecimals() = %d, want 6", got)
	}

	p1rev := pool.Pool{Token0: tokA, Token1: base, Decimals0: 18, Decimals1: 6}
	withoutZFO := ArbPath{Pool1: p1rev, ZeroForOne1: false}
	if got := withoutZFO.BaseTokenDecimals(); got != 6 {
		t.Errorf("ZeroForOne1=false: BaseTokenDecimals() = %d, want 6", got)
	}
}

func TestArbPath_ShouldBlacklist(t *testing.T) {
	paths := GenerateTriangularPaths(threeHopPools(), base, nil)
	p := paths[0]

	if p.ShouldBlacklist(map[common.Address]struct{}{}) {
		t.Error("expected no blacklist match against an empty set")
	}
	if !p.ShouldBlacklist(map[common.Address]struct{}{tokA: {}}) {
		t.Error("expected blacklist match on tokA")
	}
}

func TestArbPath_Simulate_MissingReserve(t *testing.T) {
	pls := threeHopPools()
	paths := GenerateTriangularPaths(pls, base, nil)
	p := paths[0]

	empty := store.New()
	if _, err := p.Simulate(big.NewInt(1), empty); err == nil {
		t.Error("expected error when reserves are missing")
	}
}

func TestArbPath_OptimizeAmountIn_Unimodal(t *testing.T) {
	pls := threeHopPools()
	paths := GenerateTriangularPaths(pls, base, nil)
	p := paths[0]

	// Slightly imbalanced reserves across the cycle create a small,
	// genuinely unimodal profit curve rather than a monotonic one.
	reserves := store.New()
	reserves.Upsert(p.Pool1.Address, store.Reserve{Reserve0: big.NewInt(1_000_000_000_000), Reserve1: big.NewInt(1_005_000_000_000)})
	reserves.Upsert(p.Pool2.Address, store.Reserve{Reserve0: big.NewInt(1_000_000_000_000), Reserve1: big.NewInt(1_002_000_000_000)})
	reserves.Upsert(p.Pool3.Address, store.Reserve{Reserve0: big.NewInt(1_002_000_000_000), Reserve1: big.NewInt(1_000_000_000_000)})

	bestIn, bestProfit := p.OptimizeAmountIn(big.NewInt(1000), 1, reserves)
	if bestIn.Sign() < 0 {
		t.Errorf("bestIn should never be negative, got %s", bestIn)
	}
	_ = bestProfit
}

func TestWorkingPoolSet_Dedup(t *testing.T) {
	pls := threeHopPools()
	all := GenerateTriangularPaths(pls, base, nil)
	all = append(all, all[0]) // duplicate path on purpose

	working := WorkingPoolSet(all)
	if len(working) != 3 {
		t.Errorf("expected 3 deduplicated pools, got %d", len(working))
	}
}

func TestArbPath_ToPathParams(t *testing.T) {
	pls := threeHopPools()
	paths := GenerateTriangularPaths(pls, base, nil)
	p := paths[0]

	routers := [3]common.Address{addr("0xA1"), addr("0xA2"), addr("0xA3")}
	params := p.ToPathParams(routers)

	if params[0].TokenIn != base || params[0].TokenOut != tokA {
		t.Errorf("hop 1 params wrong: %+v", params[0])
	}
	if params[2].TokenOut != base {
		t.Errorf("hop 3 must return to base token, got %+v", params[2])
	}
}
