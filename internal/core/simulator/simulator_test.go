package simulator

import (
	"errors"
	"math/big"
	"testing"
)

func TestGetAmountOut_Golden(t *testing.T) {
	// amountIn=1,000,000 reserveIn=10,000,000,000 reserveOut=5,000,000,000 fee=9975/10000
	amountIn := big.NewInt(1_000_000)
	reserveIn := big.NewInt(10_000_000_000)
	reserveOut := big.NewInt(5_000_000_000)

	got, err := GetAmountOut(amountIn, reserveIn, reserveOut, 9975)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := big.NewInt(498_740)
	if got.Cmp(want) != 0 {
		t.Errorf("GetAmountOut = %s, want %s", got, want)
	}
}

func TestGetAmountOut_ZeroReserve(t *testing.T) {
	_, err := GetAmountOut(big.NewInt(100), big.NewInt(0), big.NewInt(100), 9975)
	if !errors.Is(err, ErrZeroReserve) {
		t.Errorf("expected ErrZeroReserve, got %v", err)
	}

	_, err = GetAmountOut(big.NewInt(100), big.NewInt(100), big.NewInt(0), 9975)
	if !errors.Is(err, ErrZeroReserve) {
		t.Errorf("expected ErrZeroReserve, got %v", err)
	}
}

func TestGetAmountOut_ZeroAmount(t *testing.T) {
	_, err := GetAmountOut(big.NewInt(0), big.NewInt(100), big.NewInt(100), 9975)
	if !errors.Is(err, ErrZeroAmount) {
		t.Errorf("expected ErrZeroAmount, got %v", err)
	}

	_, err = GetAmountOut(big.NewInt(-5), big.NewInt(100), big.NewInt(100), 9975)
	if !errors.Is(err, ErrZeroAmount) {
		t.Errorf("expected ErrZeroAmount, got %v", err)
	}
}

// TestGetAmountOut_MonotonicIncreasing asserts that output never decreases
// as input grows, as required by the constant-product invariant.
func TestGetAmountOut_MonotonicIncreasing(t *testing.T) {
	reserveIn := big.NewInt(1_000_000_000)
	reserveOut := big.NewInt(2_000_000_000)

	prev := big.NewInt(0)
	for _, in := range []int64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000} {
		out, err := GetAmountOut(big.NewInt(in), reserveIn, reserveOut, 9975)
		if err != nil {
			t.Fatalf("unexpected error at amountIn=%d: %v", in, err)
		}
		if out.Cmp(prev) < 0 {
			t.Errorf("amountOut decreased at amountIn=%d: got %s, prev %s", in, out, prev)
		}
		prev = out
	}
}

// TestGetAmountOut_NeverExceedsReserve asserts the pool can never pay out
// more than it holds, regardless of how large the input is.
func TestGetAmountOut_NeverExceedsReserve(t *testing.T) {
	reserveIn := big.NewInt(1_000_000)
	reserveOut := big.NewInt(1_000_000)

	huge := new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)
	out, err := GetAmountOut(huge, reserveIn, reserveOut, 9975)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Cmp(reserveOut) >= 0 {
		t.Errorf("amountOut %s must stay strictly below reserveOut %s", out, reserveOut)
	}
}

func TestAssertFitsInt128_PanicsOnOverflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on int128 overflow")
		}
	}()
	tooLarge := new(big.Int).Lsh(big.NewInt(1), 200)
	AssertFitsInt128(tooLarge)
}

func TestAssertFitsInt128_NoPanicWithinRange(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("unexpected panic: %v", r)
		}
	}()
	AssertFitsInt128(big.NewInt(12345))
	AssertFitsInt128(big.NewInt(-12345))
}

func TestParseReserves(t *testing.T) {
	word := make([]byte, 32)
	// Storage slot layout (low to high bits): reserve0(112) | reserve1(112)
	// | blockTimestampLast(32). reserve0=100, reserve1=200.
	v := new(big.Int).Lsh(big.NewInt(200), 112)
	v.Or(v, big.NewInt(100))
	v.FillBytes(word)

	r0, r1 := ParseReserves(word)
	if r0.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("reserve0 = %s, want 100", r0)
	}
	if r1.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("reserve1 = %s, want 200", r1)
	}
}

func BenchmarkGetAmountOut(b *testing.B) {
	b.ReportAllocs()
	reserveIn := big.NewInt(10_000_000_000)
	reserveOut := big.NewInt(5_000_000_000)
	amountIn := big.NewInt(1_000_000)

	for i := 0; i < b.N; i++ {
		if _, err := GetAmountOut(amountIn, reserveIn, reserveOut, 9975); err != nil {
			b.Fatal(err)
		}
	}
}
