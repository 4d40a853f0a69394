// Package metric defines the DistanceFunction capability and a
// couple of stock distance functions used as test fixtures. Concrete
// distance functions beyond the capability contract (edit distance, DTW,
// histogram distances, ...) are external collaborators and out of the
// core's scope; Arboretum only needs enough of them to exercise its own
// tests.
package metric

import (
	"math"

	"github.com/arboretum-go/arboretum/object"
)

// DistanceFunction computes a symmetric, non-negative, finite distance
// between two objects. Implementations are required to satisfy symmetry and
// the triangle inequality; non-identity of indiscernibles (d(a,b)=0 implies
// a==b) is preferred but not relied upon by the core.
type DistanceFunction func(a, b object.Object) float64

// Euclidean computes the L2 distance between two object.Point values. Panics
// if a or b is not a Point or the dimensions disagree — a caller-side
// contract violation, not a runtime condition the tree needs to recover
// from.
func Euclidean(a, b object.Object) float64 {
	pa, pb := a.(object.Point), b.(object.Point)
	if len(pa) != len(pb) {
		panic("metric: Euclidean: dimension mismatch")
	}
	var sum float64
	for i := range pa {
		d := pa[i] - pb[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Levenshtein computes the classic edit distance between two object.String
// values, counting insertions, deletions and substitutions as unit cost.
func Levenshtein(a, b object.Object) float64 {
	sa, sb := string(a.(object.String)), string(b.(object.String))
	if sa == sb {
		return 0
	}
	la, lb := len(sa), len(sb)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if sa[i-1] == sb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = minOf3(del, ins, sub)
		}
		prev, cur = cur, prev
	}
	return float64(prev[lb])
}

func minOf3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
