package paths

import (
	"triarb/internal/core/pool"

	"github.com/ethereum/go-ethereum/common"
)

// ProgressFunc reports enumeration progress: done outer-loop iterations out
// of total. May be nil.
type ProgressFunc func(done, total int)

// GenerateTriangularPaths generates every 3-hop cycle base -> A -> B -> base
// over the given pool universe. Rather than the naive O(|P|^3) triple loop,
// it pre-indexes pools by each token they contain and iterates only over
// candidate pools for each hop — the practical optimization SPEC_FULL.md
// calls out, needed once the pool universe reaches into the thousands.
//
// This also fixes the REDESIGN FLAG in the original enumerator: hop 3's
// direction is derived from pool_3.Token0 == token-out-of-hop-2 (a strict
// equality that matches hops 1 and 2), not a disjunction that degenerates
// to "true" whenever the pool is tradeable at all.
func GenerateTriangularPaths(pools []pool.Pool, base common.Address, progress ProgressFunc) []ArbPath {
	byToken := make(map[common.Address][]int)
	for i, pl := range pools {
		byToken[pl.Token0] = append(byToken[pl.Token0], i)
		byToken[pl.Token1] = append(byToken[pl.Token1], i)
	}

	candidates1 := byToken[base]
	total := len(candidates1)

	var result []ArbPath
	for n, i1 := range candidates1 {
		p1 := pools[i1]
		zfo1 := p1.Token0 == base
		out1 := p1.OtherToken(base)

		for _, i2 := range byToken[out1] {
			if i2 == i1 {
				continue
			}
			p2 := pools[i2]
			zfo2 := p2.Token0 == out1
			out2 := p2.OtherToken(out1)

			for _, i3 := range byToken[out2] {
				if i3 == i1 || i3 == i2 {
					continue
				}
				p3 := pools[i3]
				zfo3 := p3.Token0 == out2
				out3 := p3.OtherToken(out2)
				if out3 != base {
					continue
				}

				result = append(result, ArbPath{
					Pool1: p1, Pool2: p2, Pool3: p3,
					ZeroForOne1: zfo1, ZeroForOne2: zfo2, ZeroForOne3: zfo3,
				})
			}
		}

		if progress != nil {
			progress(n+1, total)
		}
	}

	return result
}
