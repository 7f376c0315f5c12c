package blockstream

import (
	"math/big"
	"testing"
)

func TestCalculateNextBaseFee_GasUsedAboveTarget(t *testing.T) {
	baseFee := big.NewInt(100_000_000_000) // 100 gwei
	gasLimit := big.NewInt(30_000_000)
	gasUsed := big.NewInt(25_000_000) // above the 15M target

	next := CalculateNextBaseFee(gasUsed, gasLimit, baseFee)

	// target=15,000,000 diff=10,000,000
	// delta = 100e9 * 10,000,000 / 15,000,000 / 8 = 8,333,333,333 (floor)
	// next in [baseFee+delta, baseFee+delta+8]
	delta := new(big.Int).Mul(baseFee, big.NewInt(10_000_000))
	delta.Div(delta, big.NewInt(15_000_000))
	delta.Div(delta, big.NewInt(8))
	expectedFloor := new(big.Int).Add(baseFee, delta)
	expectedCeil := new(big.Int).Add(expectedFloor, big.NewInt(8))

	if next.Cmp(expectedFloor) < 0 || next.Cmp(expectedCeil) > 0 {
		t.Errorf("CalculateNextBaseFee = %s, want in [%s, %s]", next, expectedFloor, expectedCeil)
	}
}

func TestCalculateNextBaseFee_GasUsedBelowTarget(t *testing.T) {
	baseFee := big.NewInt(100_000_000_000)
	gasLimit := big.NewInt(30_000_000)
	gasUsed := big.NewInt(5_000_000) // below the 15M target

	next := CalculateNextBaseFee(gasUsed, gasLimit, baseFee)
	if next.Cmp(baseFee) >= 0 {
		// Jitter can only add up to 8 wei, which can't offset a multi-gwei decrease.
		t.Errorf("expected next base fee to decrease below current baseFee, got %s vs %s", next, baseFee)
	}
}

func TestCalculateNextBaseFee_AtTarget(t *testing.T) {
	baseFee := big.NewInt(50_000_000_000)
	gasLimit := big.NewInt(30_000_000)
	gasUsed := big.NewInt(15_000_000) // exactly at target

	next := CalculateNextBaseFee(gasUsed, gasLimit, baseFee)
	// delta = 0, so next should be baseFee plus jitter in [0,8]
	if next.Cmp(baseFee) < 0 || next.Cmp(new(big.Int).Add(baseFee, big.NewInt(8))) > 0 {
		t.Errorf("CalculateNextBaseFee at target = %s, want in [%s, %s+8]", next, baseFee, baseFee)
	}
}

func TestCalculateNextBaseFee_ZeroGasLimit(t *testing.T) {
	baseFee := big.NewInt(1_000_000)
	gasLimit := big.NewInt(0)
	gasUsed := big.NewInt(0)

	// Must not panic (divide by zero) even with a degenerate gas limit.
	next := CalculateNextBaseFee(gasUsed, gasLimit, baseFee)
	if next == nil {
		t.Error("expected non-nil result")
	}
}
