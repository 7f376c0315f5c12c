// Package simulator implements the constant-product swap math shared by
// every hop of a triangular arbitrage path. It is the one piece of this
// repository where an off-by-one is invisible in review and fatal in
// production, so it stays a small set of pure functions with no
// dependency on the store or path types above it.
package simulator

import (
	"errors"
	"math/big"

	"triarb/internal/shared/utils"

	"github.com/holiman/uint256"
)

var (
	// ErrZeroReserve is returned when either reserve is zero; the pool is
	// non-tradeable and dividing would panic.
	ErrZeroReserve = errors.New("simulator: zero reserve")
	// ErrZeroAmount is returned when the input amount is zero or negative.
	ErrZeroAmount = errors.New("simulator: zero or negative amount in")
)

// FeeDenominator is the fixed denominator against which a pool's fee
// numerator is expressed (9975 over 10,000 is a 0.25% fee).
const FeeDenominator = 10_000

var feeDenominatorBig = big.NewInt(FeeDenominator)

// maxInt128 / minInt128 bound the signed 128-bit range that profit values
// are contractually expected to fit within (see optimizer numeric
// contract). They exist purely as an assertion, not a clamp.
var (
	maxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// AssertFitsInt128 panics if v falls outside the signed 128-bit range.
// Overflow is not expected for realistic pool sizes; this exists to catch
// a config or data error loudly rather than silently wrap.
func AssertFitsInt128(v *big.Int) {
	if v.Cmp(maxInt128) > 0 || v.Cmp(minInt128) < 0 {
		panic("simulator: profit exceeds signed 128-bit range: " + v.String())
	}
}

// GetAmountOut implements the Uniswap-V2 constant-product invariant with a
// fee numerator over FeeDenominator:
//
//	amountInWithFee = amountIn * feeNumerator
//	numerator       = amountInWithFee * reserveOut
//	denominator     = reserveIn * FeeDenominator + amountInWithFee
//	amountOut       = numerator / denominator   (floor)
//
// It fails when either reserve or the input amount is zero. All
// intermediate products are computed in math/big, drawing scratch
// variables from the shared BigIntPool so the per-block hot path stays
// allocation-light, the same zero-allocation pattern the teacher uses for
// its own swap-amount math.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int, feeNumerator uint32) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return nil, ErrZeroReserve
	}

	scratch := utils.GlobalBigIntPool

	feeNum := scratch.Get()
	feeNum.SetUint64(uint64(feeNumerator))
	defer scratch.Put(feeNum)

	amountInWithFee := scratch.Get()
	amountInWithFee.Mul(amountIn, feeNum)
	defer scratch.Put(amountInWithFee)

	numerator := scratch.Get()
	numerator.Mul(amountInWithFee, reserveOut)
	defer scratch.Put(numerator)

	denominator := scratch.Get()
	denominator.Mul(reserveIn, feeDenominatorBig)
	denominator.Add(denominator, amountInWithFee)
	defer scratch.Put(denominator)

	amountOut := new(big.Int).Div(numerator, denominator)
	return amountOut, nil
}

// pow10Float returns 10^decimals as a big.Float.
func pow10Float(decimals uint8) *big.Float {
	p := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Float).SetInt(p)
}

// ReservesToPrice returns (r1/10^d1) / (r0/10^d0), or its reciprocal when
// invert is true. It is used only for display and for converting gas cost
// into quote-token units; it never feeds the profit decision itself.
func ReservesToPrice(r0, r1 *big.Int, d0, d1 uint8, invert bool) float64 {
	f0 := new(big.Float).Quo(new(big.Float).SetInt(r0), pow10Float(d0))
	f1 := new(big.Float).Quo(new(big.Float).SetInt(r1), pow10Float(d1))

	var ratio *big.Float
	if invert {
		ratio = new(big.Float).Quo(f0, f1)
	} else {
		ratio = new(big.Float).Quo(f1, f0)
	}
	out, _ := ratio.Float64()
	return out
}

// ParseReserves unpacks two uint112 reserves from the 32-byte storage word
// used by Uniswap V2 pairs (reserve0 | reserve1 | blockTimestampLast,
// 112+112+32 bits, big-endian within the word). It uses uint256 for the
// mask/shift bit-twiddling, which reads more directly than math/big for a
// fixed-width extraction.
func ParseReserves(word []byte) (reserve0, reserve1 *big.Int) {
	v := new(uint256.Int).SetBytes(word)

	mask112 := new(uint256.Int).Sub(
		new(uint256.Int).Lsh(uint256.NewInt(1), 112),
		uint256.NewInt(1),
	)

	r0 := new(uint256.Int).And(v, mask112)

	tmp := new(uint256.Int).Rsh(v, 112)
	r1 := new(uint256.Int).And(tmp, mask112)

	return r0.ToBig(), r1.ToBig()
}
