package collide

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/impulse/geom"
)

// EntityBound is one entry of the bound snapshot handed to an injected broad
// phase.
type EntityBound struct {
	Entity ecs.Entity
	Bound  geom.AABB
}

// BroadPhase proposes candidate colliding pairs from bounds alone. The
// returned list must be canonicalized, free of duplicates and self-pairs.
// Implementations see the full current bound set; dirty filtering is the
// default (tree-driven) algorithm's optimization, not part of the contract.
type BroadPhase interface {
	ComputePairs(bounds []EntityBound) []Pair
}

// BruteForce is the all-pairs broad phase: every bound tested against every
// other. O(n^2), useful for small worlds and as a reference implementation.
type BruteForce struct{}

// ComputePairs tests all distinct pairs for bound overlap.
func (BruteForce) ComputePairs(bounds []EntityBound) []Pair {
	var pairs []Pair
	for i := 0; i < len(bounds); i++ {
		for j := i + 1; j < len(bounds); j++ {
			if bounds[i].Bound.Overlaps(bounds[j].Bound) {
				pairs = append(pairs, NewPair(bounds[i].Entity, bounds[j].Entity))
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Less(pairs[j]) })
	return pairs
}

// InsertPair inserts p into the sorted pair list unless already present,
// returning the updated list. Ordered binary search keeps dedup correct for
// canonical pairs.
func InsertPair(pairs []Pair, p Pair) []Pair {
	i := sort.Search(len(pairs), func(i int) bool { return !pairs[i].Less(p) })
	if i < len(pairs) && pairs[i] == p {
		return pairs
	}
	pairs = append(pairs, Pair{})
	copy(pairs[i+1:], pairs[i:])
	pairs[i] = p
	return pairs
}
