// Package blacklist filters arbitrage paths that touch a disallowed token
// (a supplemented feature from the original strategy.rs's
// should_blacklist, made a first-class component per SPEC_FULL.md).
package blacklist

import (
	"triarb/internal/core/paths"

	"github.com/ethereum/go-ethereum/common"
)

// Set is an immutable set of blacklisted token addresses.
type Set struct {
	tokens map[common.Address]struct{}
}

// New builds a Set from a list of token addresses.
func New(tokens []common.Address) Set {
	s := Set{tokens: make(map[common.Address]struct{}, len(tokens))}
	for _, t := range tokens {
		s.tokens[t] = struct{}{}
	}
	return s
}

// Contains reports whether token is blacklisted.
func (s Set) Contains(token common.Address) bool {
	_, ok := s.tokens[token]
	return ok
}

// Filter returns the subset of all whose pools touch no blacklisted token.
func (s Set) Filter(all []paths.ArbPath) []paths.ArbPath {
	out := make([]paths.ArbPath, 0, len(all))
	for _, p := range all {
		if !p.ShouldBlacklist(s.tokens) {
			out = append(out, p)
		}
	}
	return out
}
