// Package resultset implements an ordered multi-set of (object, distance)
// pairs bounded either by a radius (range
// queries) or by k with a ties policy (k-NN queries).
package resultset

import (
	"math"
	"sort"

	"github.com/arboretum-go/arboretum/config"
	"github.com/arboretum-go/arboretum/object"
)

// Pair is one admitted (object, distance) result.
type Pair struct {
	Object   object.Object
	Distance float64
}

// Mode selects the result set's admission rule.
type Mode int

const (
	// ModeRange admits every pair with Distance <= the configured radius;
	// unbounded capacity.
	ModeRange Mode = iota
	// ModeKNN admits up to k pairs (possibly more under KeepAll ties),
	// ordered ascending by distance.
	ModeKNN
)

// ResultSet accumulates matches for one query. Ascending iteration order is
// maintained incrementally as pairs are added, since query result sizes are
// small relative to the tree itself.
type ResultSet struct {
	mode  Mode
	k     int
	ties  config.TiesPolicy
	r     float64 // range radius, meaningful only in ModeRange
	pairs []Pair
}

// NewRange constructs a result set admitting every object within radius r.
func NewRange(r float64) *ResultSet {
	return &ResultSet{mode: ModeRange, r: r}
}

// NewKNN constructs a result set keeping the k nearest objects under the
// given ties policy.
func NewKNN(k int, ties config.TiesPolicy) *ResultSet {
	return &ResultSet{mode: ModeKNN, k: k, ties: ties}
}

// CurrentRadius is the distance of the current worst admitted element: the
// query radius for range mode, or the distance of the current k-th nearest
// element for k-NN mode (+Inf while fewer than k results have been seen).
func (rs *ResultSet) CurrentRadius() float64 {
	if rs.mode == ModeRange {
		return rs.r
	}
	if len(rs.pairs) < rs.k {
		return math.Inf(1)
	}
	return rs.pairs[rs.k-1].Distance
}

// Size reports the number of admitted pairs.
func (rs *ResultSet) Size() int { return len(rs.pairs) }

// Pairs returns the admitted pairs in ascending distance order. The
// returned slice must not be mutated by the caller.
func (rs *ResultSet) Pairs() []Pair { return rs.pairs }

// Add attempts to admit (obj, dist) per the result set's mode and policy.
func (rs *ResultSet) Add(obj object.Object, dist float64) {
	switch rs.mode {
	case ModeRange:
		if dist <= rs.r {
			rs.insertSorted(Pair{Object: obj, Distance: dist})
		}
	case ModeKNN:
		rs.addKNN(obj, dist)
	}
}

func (rs *ResultSet) insertSorted(p Pair) {
	i := sort.Search(len(rs.pairs), func(i int) bool { return rs.pairs[i].Distance > p.Distance })
	rs.pairs = append(rs.pairs, Pair{})
	copy(rs.pairs[i+1:], rs.pairs[i:])
	rs.pairs[i] = p
}

func (rs *ResultSet) addKNN(obj object.Object, dist float64) {
	switch rs.ties {
	case config.KeepFirst:
		// Admit if the set has room, or dist strictly beats the current
		// k-th; exactly k survive.
		if len(rs.pairs) < rs.k {
			rs.insertSorted(Pair{Object: obj, Distance: dist})
			return
		}
		if dist < rs.pairs[rs.k-1].Distance {
			rs.insertSorted(Pair{Object: obj, Distance: dist})
			rs.pairs = rs.pairs[:rs.k]
		}
	case config.KeepAll:
		// Admit if dist <= current k-th (or the set isn't full yet), then
		// purge anything strictly greater than the (possibly new) k-th so
		// the set never holds stale tail entries once it has grown past a
		// tie.
		if len(rs.pairs) < rs.k || dist <= rs.pairs[rs.k-1].Distance {
			rs.insertSorted(Pair{Object: obj, Distance: dist})
			rs.purgeBeyondKth()
		}
	}
}

func (rs *ResultSet) purgeBeyondKth() {
	if len(rs.pairs) <= rs.k {
		return
	}
	kth := rs.pairs[rs.k-1].Distance
	cut := len(rs.pairs)
	for cut > rs.k && rs.pairs[cut-1].Distance > kth {
		cut--
	}
	rs.pairs = rs.pairs[:cut]
}
