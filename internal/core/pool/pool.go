// Package pool defines the immutable descriptor of a constant-product AMM pair.
package pool

import (
	"github.com/ethereum/go-ethereum/common"
)

// Pool is an immutable descriptor of one Uniswap-V2-family pair: a pool
// address, its two tokens ordered canonically (token0 < token1 as unsigned
// 160-bit values, per the AMM's own convention), their decimals, and the
// pool's fee expressed as a numerator over a 10,000 denominator (e.g. 9975
// means a 0.25% fee).
type Pool struct {
	Address      common.Address
	Token0       common.Address
	Token1       common.Address
	Decimals0    uint8
	Decimals1    uint8
	FeeNumerator uint32
}

// HasToken reports whether token is either side of the pair.
func (p Pool) HasToken(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// OtherToken returns the token on the opposite side of the one given. The
// caller must already know token is one side of the pair (see HasToken);
// if it is neither, Token0 is returned as if token were Token1.
func (p Pool) OtherToken(token common.Address) common.Address {
	if p.Token0 == token {
		return p.Token1
	}
	return p.Token0
}

// DecimalsOf returns the decimals of whichever side of the pair token is.
func (p Pool) DecimalsOf(token common.Address) uint8 {
	if p.Token0 == token {
		return p.Decimals0
	}
	return p.Decimals1
}
