package tree

import (
	"math"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/config"
	"github.com/arboretum-go/arboretum/metric"
	"github.com/arboretum-go/arboretum/node"
	"github.com/arboretum-go/arboretum/object"
)

// distCache is a half-matrix distance cache: only i<j is stored since the
// metric is symmetric, d(i,i)=0. Computed once per split and shared by the
// promotion and partition steps to keep split cost to O(|S|²) distance
// evaluations.
type distCache struct {
	n int
	d []float64
}

func newDistCache(n int) *distCache {
	size := 0
	if n > 1 {
		size = n * (n - 1) / 2
	}
	return &distCache{n: n, d: make([]float64, size)}
}

func triIndex(n, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return i*n - i*(i+1)/2 + (j - i - 1)
}

func (c *distCache) get(i, j int) float64 {
	if i == j {
		return 0
	}
	return c.d[triIndex(c.n, i, j)]
}

func (c *distCache) set(i, j int, v float64) {
	if i == j {
		return
	}
	c.d[triIndex(c.n, i, j)] = v
}

func (c *distCache) fill(objs []object.Object, dist metric.DistanceFunction) {
	for i := 0; i < c.n; i++ {
		for j := i + 1; j < c.n; j++ {
			c.set(i, j, dist(objs[i], objs[j]))
		}
	}
}

// splitPlan is the outcome of choosing a promotion pair and partitioning the
// overflowing set S around it.
type splitPlan struct {
	p, q           int
	groupP, groupQ []int
	radiusP        float64
	radiusQ        float64
}

// planSplit tries the configured promotion policy, then one random pair,
// then every pair in index order, and returns the first plan whose two
// partitions both meet minimum occupation; ErrSplitImpossible means no
// pair yields such a partition. childRadius is nil when splitting a leaf (point
// objects carry no inherent radius) and holds each member's own covering
// radius when splitting an index node, so the new radii stay wide enough
// to cover every object reachable below them.
func (t *MetricTree) planSplit(n int, dc *distCache, childRadius []float64) (*splitPlan, error) {
	try := func(p, q int) *splitPlan {
		gp, gq, rp, rq := partitionIdx(n, p, q, dc, childRadius)
		if len(gp) < t.cfg.MinOccupancy || len(gq) < t.cfg.MinOccupancy {
			return nil
		}
		return &splitPlan{p: p, q: q, groupP: gp, groupQ: gq, radiusP: rp, radiusQ: rq}
	}

	p, q := t.promote(n, dc)
	if plan := try(p, q); plan != nil {
		return plan, nil
	}
	p, q = t.randomPromotion(n)
	if plan := try(p, q); plan != nil {
		return plan, nil
	}
	for p := 0; p < n; p++ {
		for q := p + 1; q < n; q++ {
			if plan := try(p, q); plan != nil {
				return plan, nil
			}
		}
	}
	return nil, arberrors.ErrSplitImpossible
}

func (t *MetricTree) promote(n int, dc *distCache) (int, int) {
	switch t.cfg.Promotion {
	case config.MinMaxPromotion:
		return minMaxPromotion(n, dc)
	case config.MSTPromotion:
		return mstPromotion(n, dc)
	default:
		return t.randomPromotion(n)
	}
}

func (t *MetricTree) randomPromotion(n int) (int, int) {
	if n < 2 {
		return 0, 0
	}
	p := t.rng.Intn(n)
	q := t.rng.Intn(n - 1)
	if q >= p {
		q++
	}
	return p, q
}

// minMaxPromotion tries every unordered pair, assigns the rest to their
// nearer representative, and keeps the pair minimising the larger of the two
// resulting covering radii.
func minMaxPromotion(n int, dc *distCache) (int, int) {
	bestP, bestQ := 0, 1
	bestMax := math.Inf(1)
	for p := 0; p < n; p++ {
		for q := p + 1; q < n; q++ {
			var rp, rq float64
			for k := 0; k < n; k++ {
				if k == p || k == q {
					continue
				}
				dp, dq := dc.get(p, k), dc.get(q, k)
				if dp <= dq {
					if dp > rp {
						rp = dp
					}
				} else if dq > rq {
					rq = dq
				}
			}
			m := math.Max(rp, rq)
			if m < bestMax {
				bestMax, bestP, bestQ = m, p, q
			}
		}
	}
	return bestP, bestQ
}

// mstPromotion builds the minimum spanning tree of S under the distance
// cache (Prim's algorithm) and returns the endpoints of its heaviest edge:
// removing that edge maximally separates the MST into two components,
// which this promotion policy uses as its selection rule.
func mstPromotion(n int, dc *distCache) (int, int) {
	if n < 2 {
		return 0, 0
	}
	inTree := make([]bool, n)
	key := make([]float64, n)
	parent := make([]int, n)
	for i := range key {
		key[i] = math.Inf(1)
		parent[i] = -1
	}
	key[0] = 0

	maxWeight := -1.0
	maxU, maxV := 0, 1
	for iter := 0; iter < n; iter++ {
		u := -1
		for v := 0; v < n; v++ {
			if !inTree[v] && (u == -1 || key[v] < key[u]) {
				u = v
			}
		}
		inTree[u] = true
		if parent[u] != -1 {
			w := dc.get(u, parent[u])
			if w > maxWeight {
				maxWeight, maxU, maxV = w, u, parent[u]
			}
		}
		for v := 0; v < n; v++ {
			if !inTree[v] {
				if w := dc.get(u, v); w < key[v] {
					key[v] = w
					parent[v] = u
				}
			}
		}
	}
	return maxU, maxV
}

// partitionIdx distributes every member other than p and q to whichever of
// the two is nearer, breaking ties toward the smaller partition so minimum
// occupation stays reachable. Returns both groups (each including its own
// representative index) and their covering radii.
//
// childRadius is nil for a leaf split, where every member is a point with
// no subtree beneath it and d(p,i) alone bounds how far i reaches from p.
// For an index split, childRadius[i] is member i's own covering radius:
// the farthest any object reachable below i can be from i's own
// representative. By the triangle inequality the distance from p to
// anything reachable below i is bounded by d(p,i)+childRadius[i], not
// d(p,i) alone, and a group's radius must also cover its own
// representative's subtree (childRadius[p]), since representatives are
// themselves non-trivial subtrees once they have split at least once.
func partitionIdx(n, p, q int, dc *distCache, childRadius []float64) (groupP, groupQ []int, radiusP, radiusQ float64) {
	groupP = []int{p}
	groupQ = []int{q}
	if childRadius != nil {
		radiusP = childRadius[p]
		radiusQ = childRadius[q]
	}
	for i := 0; i < n; i++ {
		if i == p || i == q {
			continue
		}
		dp, dq := dc.get(p, i), dc.get(q, i)
		var toP bool
		switch {
		case dp < dq:
			toP = true
		case dq < dp:
			toP = false
		default:
			toP = len(groupP) <= len(groupQ)
		}
		var cr float64
		if childRadius != nil {
			cr = childRadius[i]
		}
		if toP {
			groupP = append(groupP, i)
			if b := dp + cr; b > radiusP {
				radiusP = b
			}
		} else {
			groupQ = append(groupQ, i)
			if b := dq + cr; b > radiusQ {
				radiusQ = b
			}
		}
	}
	return groupP, groupQ, radiusP, radiusQ
}

// splitLeaf handles a leaf overflow: S is the leaf's existing entries plus
// the new one, promoted and partitioned, with the first partition
// rewritten into the original page and the second written into a freshly
// allocated page.
func (t *MetricTree) splitLeaf(n *node.Node, newEntry node.LeafEntry, distanceToOldParent float64) (*splitEntries, error) {
	occ := n.Occupation()
	entries := make([]node.LeafEntry, occ, occ+1)
	for i := 0; i < occ; i++ {
		e, err := n.GetLeafEntry(i)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	entries = append(entries, newEntry)

	objs := make([]object.Object, len(entries))
	for i, e := range entries {
		o, err := t.factory(e.Object)
		if err != nil {
			return nil, err
		}
		objs[i] = o
	}
	dc := newDistCache(len(objs))
	dc.fill(objs, t.distance)

	plan, err := t.planSplit(len(objs), dc, nil)
	if err != nil {
		return nil, err
	}

	oldPage := n.Page()
	oldPage.Clear()
	leafP := node.New(oldPage, node.KindLeaf)
	for _, idx := range plan.groupP {
		e := entries[idx]
		e.DistanceToOwner = dc.get(plan.p, idx)
		if _, err := leafP.AddLeafEntry(e); err != nil {
			return nil, err
		}
	}
	leafP.SetNodeRadius(plan.radiusP)
	if err := t.pm.Write(oldPage); err != nil {
		return nil, err
	}

	newPage, err := t.allocate()
	if err != nil {
		return nil, err
	}
	leafQ := node.New(newPage, node.KindLeaf)
	for _, idx := range plan.groupQ {
		e := entries[idx]
		e.DistanceToOwner = dc.get(plan.q, idx)
		if _, err := leafQ.AddLeafEntry(e); err != nil {
			return nil, err
		}
	}
	leafQ.SetNodeRadius(plan.radiusQ)
	if err := t.pm.Write(newPage); err != nil {
		return nil, err
	}

	return &splitEntries{
		first: node.IndexEntry{
			Representative: entries[plan.p].Object, Child: oldPage.ID(),
			Radius: plan.radiusP, EntriesBelow: uint64(len(plan.groupP)),
			DistanceToOwner: distanceToOldParent,
		},
		second: node.IndexEntry{
			Representative: entries[plan.q].Object, Child: newPage.ID(),
			Radius: plan.radiusQ, EntriesBelow: uint64(len(plan.groupQ)),
			DistanceToOwner: distanceToOldParent,
		},
	}, nil
}

// splitIndex mirrors splitLeaf one level up: S is the index node's existing
// entries plus the new sibling entry its overflowing child handed back.
func (t *MetricTree) splitIndex(n *node.Node, newEntry node.IndexEntry, distanceToOldParent float64) (*splitEntries, error) {
	occ := n.Occupation()
	entries := make([]node.IndexEntry, occ, occ+1)
	for i := 0; i < occ; i++ {
		e, err := n.GetIndexEntry(i)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	entries = append(entries, newEntry)

	objs := make([]object.Object, len(entries))
	for i, e := range entries {
		o, err := t.factory(e.Representative)
		if err != nil {
			return nil, err
		}
		objs[i] = o
	}
	dc := newDistCache(len(objs))
	dc.fill(objs, t.distance)

	childRadius := make([]float64, len(entries))
	for i, e := range entries {
		childRadius[i] = e.Radius
	}

	plan, err := t.planSplit(len(objs), dc, childRadius)
	if err != nil {
		return nil, err
	}

	oldPage := n.Page()
	oldPage.Clear()
	idxP := node.New(oldPage, node.KindIndex)
	for _, idx := range plan.groupP {
		e := entries[idx]
		e.DistanceToOwner = dc.get(plan.p, idx)
		if _, err := idxP.AddIndexEntry(e); err != nil {
			return nil, err
		}
	}
	idxP.SetNodeRadius(plan.radiusP)
	if err := t.pm.Write(oldPage); err != nil {
		return nil, err
	}

	newPage, err := t.allocate()
	if err != nil {
		return nil, err
	}
	idxQ := node.New(newPage, node.KindIndex)
	for _, idx := range plan.groupQ {
		e := entries[idx]
		e.DistanceToOwner = dc.get(plan.q, idx)
		if _, err := idxQ.AddIndexEntry(e); err != nil {
			return nil, err
		}
	}
	idxQ.SetNodeRadius(plan.radiusQ)
	if err := t.pm.Write(newPage); err != nil {
		return nil, err
	}

	return &splitEntries{
		first: node.IndexEntry{
			Representative: entries[plan.p].Representative, Child: oldPage.ID(),
			Radius: plan.radiusP, EntriesBelow: sumEntriesBelow(entries, plan.groupP),
			DistanceToOwner: distanceToOldParent,
		},
		second: node.IndexEntry{
			Representative: entries[plan.q].Representative, Child: newPage.ID(),
			Radius: plan.radiusQ, EntriesBelow: sumEntriesBelow(entries, plan.groupQ),
			DistanceToOwner: distanceToOldParent,
		},
	}, nil
}

func sumEntriesBelow(entries []node.IndexEntry, idxs []int) uint64 {
	var sum uint64
	for _, i := range idxs {
		sum += entries[i].EntriesBelow
	}
	return sum
}
