// Package store holds the per-block reserve snapshot shared by every path
// evaluation. The strategy loop is the sole writer, updating it once per
// block (see the concurrency model in SPEC_FULL.md §5), but the diagnostics
// HTTP handler (internal/presentation/http) reads it concurrently from its
// own goroutine via /healthz — so, like RateLimitMiddleware's client map,
// it needs a mutex to stay safe against Go's "concurrent map read and map
// write" panic.
package store

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrPoolNotInStore is returned when a lookup misses; callers treat it as
// "this path scores no opportunity this block", not a fatal error.
var ErrPoolNotInStore = errors.New("store: pool not found")

// Reserve is the mutable (reserve0, reserve1) pair for one pool.
type Reserve struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// ReserveStore maps a pool address to its latest known Reserve.
type ReserveStore struct {
	mu       sync.RWMutex
	reserves map[common.Address]Reserve
}

// New returns an empty ReserveStore.
func New() *ReserveStore {
	return &ReserveStore{reserves: make(map[common.Address]Reserve)}
}

// Get returns the reserve for addr and whether it was present.
func (s *ReserveStore) Get(addr common.Address) (Reserve, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reserves[addr]
	return r, ok
}

// Upsert inserts or overwrites the reserve for addr.
func (s *ReserveStore) Upsert(addr common.Address, r Reserve) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserves[addr] = r
}

// Contains reports whether addr has a known reserve.
func (s *ReserveStore) Contains(addr common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reserves[addr]
	return ok
}

// Len returns the number of pools currently tracked.
func (s *ReserveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reserves)
}
