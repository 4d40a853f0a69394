package tree

import (
	"testing"

	"github.com/arboretum-go/arboretum/config"
	"github.com/arboretum-go/arboretum/metric"
	"github.com/arboretum-go/arboretum/node"
	"github.com/arboretum-go/arboretum/object"
	"github.com/arboretum-go/arboretum/page"
	"github.com/arboretum-go/arboretum/pagemgr"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, pageSize int) *MetricTree {
	t.Helper()
	pm := pagemgr.NewMemory(pageSize)
	cfg := config.IndexConfig{PageSize: pageSize, MinOccupancy: 2}
	tr, err := Open(pm, cfg, metric.Euclidean, object.PointFactory(2), nil)
	require.NoError(t, err)
	return tr
}

func pt(x, y float64) object.Point { return object.Point{x, y} }

func TestEmptyTree_QueriesReturnEmpty(t *testing.T) {
	tr := newTestTree(t, 256)
	rs, err := tr.RangeQuery(pt(0, 0), 5)
	require.NoError(t, err)
	require.Equal(t, 0, rs.Size())

	rs, err = tr.Nearest(pt(0, 0), 3)
	require.NoError(t, err)
	require.Equal(t, 0, rs.Size())
	require.Equal(t, 0, tr.Height())
	require.Equal(t, uint64(0), tr.ObjectCount())
}

func TestScenario_RangeQuery(t *testing.T) {
	tr := newTestTree(t, 512)
	require.NoError(t, tr.Insert(pt(0, 0)))
	require.NoError(t, tr.Insert(pt(3, 4)))
	require.NoError(t, tr.Insert(pt(6, 8)))

	rs, err := tr.RangeQuery(pt(0, 0), 5)
	require.NoError(t, err)
	require.Equal(t, 2, rs.Size())
	got := map[[2]float64]bool{}
	for _, p := range rs.Pairs() {
		pp := p.Object.(object.Point)
		got[[2]float64{pp[0], pp[1]}] = true
	}
	require.True(t, got[[2]float64{0, 0}])
	require.True(t, got[[2]float64{3, 4}])
	require.False(t, got[[2]float64{6, 8}])
}

func TestScenario_Nearest(t *testing.T) {
	tr := newTestTree(t, 512)
	require.NoError(t, tr.Insert(pt(0, 0)))
	require.NoError(t, tr.Insert(pt(3, 4)))
	require.NoError(t, tr.Insert(pt(6, 8)))

	rs, err := tr.Nearest(pt(0, 0), 2)
	require.NoError(t, err)
	require.Equal(t, 2, rs.Size())
	require.Equal(t, 0.0, rs.Pairs()[0].Distance)
	require.Equal(t, 5.0, rs.Pairs()[1].Distance)
}

func TestInsert_SingleObject_RangeAndNearestFindIt(t *testing.T) {
	tr := newTestTree(t, 256)
	require.NoError(t, tr.Insert(pt(1, 1)))

	rs, err := tr.RangeQuery(pt(1, 1), 0)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Size())

	rs, err = tr.Nearest(pt(1, 1), 1)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Size())
	require.Equal(t, 0.0, rs.Pairs()[0].Distance)
}

// TestInsert_ForcesSplitAndEveryPointStillFindable forces at least one leaf
// split (small page size, many points) and checks that for every indexed
// object o, a range query at q=o, r=0 still finds o.
func TestInsert_ForcesSplitAndEveryPointStillFindable(t *testing.T) {
	tr := newTestTree(t, 512)
	var pts []object.Point
	for i := 0; i < 40; i++ {
		p := pt(float64(i), float64(i*2%7))
		pts = append(pts, p)
		require.NoError(t, tr.Insert(p))
	}
	require.Greater(t, tr.Height(), 0, "expected at least one split to have grown the tree")
	require.Equal(t, uint64(len(pts)), tr.ObjectCount())

	for _, p := range pts {
		rs, err := tr.RangeQuery(p, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, rs.Size(), 1, "point %v not found after split", p)
	}
}

func TestInsert_KNNMatchesLinearScan(t *testing.T) {
	tr := newTestTree(t, 512)
	var pts []object.Point
	for i := 0; i < 30; i++ {
		p := pt(float64(i*3%11), float64(i*5%13))
		pts = append(pts, p)
		require.NoError(t, tr.Insert(p))
	}

	q := pt(4, 4)
	k := 5
	rs, err := tr.Nearest(q, k)
	require.NoError(t, err)
	require.Equal(t, k, rs.Size())

	// Linear scan oracle.
	dists := make([]float64, len(pts))
	for i, p := range pts {
		dists[i] = metric.Euclidean(q, p)
	}
	sortFloats(dists)
	for i := 0; i < k; i++ {
		require.InDelta(t, dists[i], rs.Pairs()[i].Distance, 1e-9)
	}
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

func TestSlimDown_DoesNotPanicOnSplitTree(t *testing.T) {
	tr := newTestTree(t, 512)
	for i := 0; i < 30; i++ {
		require.NoError(t, tr.Insert(pt(float64(i), float64((i*7)%5))))
	}
	require.NoError(t, tr.SlimDown())
	// Still findable after slim-down.
	rs, err := tr.RangeQuery(pt(0, 0), 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, rs.Size(), 1)
}

// TestInsert_CoveringInvariantSurvivesMultiLevelSplit forces enough splits to
// grow the tree past a single index level, then walks every index entry
// directly and checks that its recorded radius still bounds the distance
// from its representative to every object reachable below it, however many
// index levels down. This is the check the undercounted-radius defect in
// splitIndex's partitioning would have failed: it only accounted for
// representative-to-representative distance, never a child's own subtree
// radius, so an index-level split could record a radius too small to cover
// everything beneath it.
func TestInsert_CoveringInvariantSurvivesMultiLevelSplit(t *testing.T) {
	tr := newTestTree(t, 256)
	var pts []object.Point
	for i := 0; i < 300; i++ {
		p := pt(float64(i*7%97), float64(i*13%89))
		pts = append(pts, p)
		require.NoError(t, tr.Insert(p))
	}
	require.Greater(t, tr.Height(), 0, "expected splitting to have grown the tree")

	checkTreeInvariants(t, tr, tr.root)
}

// checkTreeInvariants walks every index node reachable from id and asserts,
// for each of its entries, that the recorded radius covers every object
// anywhere below the entry's child.
func checkTreeInvariants(t *testing.T, tr *MetricTree, id page.ID) {
	t.Helper()
	p, err := tr.pm.Get(id)
	require.NoError(t, err)
	n := node.Open(p)
	if n.Kind() != node.KindIndex {
		return
	}
	occ := n.Occupation()
	for i := 0; i < occ; i++ {
		e, err := n.GetIndexEntry(i)
		require.NoError(t, err)
		repr, err := tr.factory(e.Representative)
		require.NoError(t, err)

		got := maxDistanceInSubtree(t, tr, e.Child, repr)
		require.LessOrEqual(t, got, e.Radius+1e-9,
			"covering invariant violated: an object %v below the entry exceeds its recorded radius %v", got, e.Radius)

		checkTreeInvariants(t, tr, e.Child)
	}
}

// maxDistanceInSubtree returns the largest distance from q to any object
// reachable below id, recursing through every nested index level.
func maxDistanceInSubtree(t *testing.T, tr *MetricTree, id page.ID, q object.Object) float64 {
	t.Helper()
	p, err := tr.pm.Get(id)
	require.NoError(t, err)
	n := node.Open(p)
	occ := n.Occupation()
	max := 0.0
	switch n.Kind() {
	case node.KindLeaf:
		for i := 0; i < occ; i++ {
			e, err := n.GetLeafEntry(i)
			require.NoError(t, err)
			obj, err := tr.factory(e.Object)
			require.NoError(t, err)
			if d := tr.distance(q, obj); d > max {
				max = d
			}
		}
	case node.KindIndex:
		for i := 0; i < occ; i++ {
			e, err := n.GetIndexEntry(i)
			require.NoError(t, err)
			repr, err := tr.factory(e.Representative)
			require.NoError(t, err)
			if d := tr.distance(q, repr); d > max {
				max = d
			}
			if d := maxDistanceInSubtree(t, tr, e.Child, q); d > max {
				max = d
			}
		}
	}
	return max
}

func TestInsert_NegativeRadiusRejected(t *testing.T) {
	tr := newTestTree(t, 256)
	_, err := tr.RangeQuery(pt(0, 0), -1)
	require.Error(t, err)
}

func TestInsert_NonPositiveKRejected(t *testing.T) {
	tr := newTestTree(t, 256)
	_, err := tr.Nearest(pt(0, 0), 0)
	require.Error(t, err)
}

func TestReopen_HeaderPersistsAcrossInstances(t *testing.T) {
	pm := pagemgr.NewMemory(256)
	cfg := config.IndexConfig{PageSize: 256, MinOccupancy: 2}
	tr1, err := Open(pm, cfg, metric.Euclidean, object.PointFactory(2), nil)
	require.NoError(t, err)
	require.NoError(t, tr1.Insert(pt(1, 2)))
	require.NoError(t, tr1.Insert(pt(3, 4)))

	tr2, err := Open(pm, cfg, metric.Euclidean, object.PointFactory(2), nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), tr2.ObjectCount())
	rs, err := tr2.RangeQuery(pt(1, 2), 0)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Size())
}
