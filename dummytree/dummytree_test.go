package dummytree

import (
	"testing"

	"github.com/arboretum-go/arboretum/config"
	"github.com/arboretum-go/arboretum/metric"
	"github.com/arboretum-go/arboretum/object"
	"github.com/arboretum-go/arboretum/pagemgr"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, pageSize int) *DummyTree {
	t.Helper()
	pm := pagemgr.NewMemory(pageSize)
	tr, err := Open(pm, metric.Euclidean, object.PointFactory(2), config.KeepFirst, nil)
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
	require.Equal(t, uint64(0), tr.ObjectCount())
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

// TestInsert_ChainsAcrossMultiplePages forces at least one dummy-to-dummy
// chain link (small page size, many points) and checks every inserted point
// is still findable by an r=0 range query.
func TestInsert_ChainsAcrossMultiplePages(t *testing.T) {
	tr := newTestTree(t, 96)
	var pts []object.Point
	for i := 0; i < 25; i++ {
		p := pt(float64(i), float64(i*3%7))
		pts = append(pts, p)
		require.NoError(t, tr.Insert(p))
	}
	require.Equal(t, uint64(len(pts)), tr.ObjectCount())

	for _, p := range pts {
		rs, err := tr.RangeQuery(p, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, rs.Size(), 1, "point %v not found", p)
	}
}

func TestNearest_MatchesManualLinearScan(t *testing.T) {
	tr := newTestTree(t, 96)
	var pts []object.Point
	for i := 0; i < 20; i++ {
		p := pt(float64(i*3%11), float64(i*5%13))
		pts = append(pts, p)
		require.NoError(t, tr.Insert(p))
	}

	q := pt(4, 4)
	k := 4
	rs, err := tr.Nearest(q, k)
	require.NoError(t, err)
	require.Equal(t, k, rs.Size())

	dists := make([]float64, len(pts))
	for i, p := range pts {
		dists[i] = metric.Euclidean(q, p)
	}
	for i := 1; i < len(dists); i++ {
		for j := i; j > 0 && dists[j-1] > dists[j]; j-- {
			dists[j-1], dists[j] = dists[j], dists[j-1]
		}
	}
	for i := 0; i < k; i++ {
		require.InDelta(t, dists[i], rs.Pairs()[i].Distance, 1e-9)
	}
}

func TestReopen_HeaderPersistsAcrossInstances(t *testing.T) {
	pm := pagemgr.NewMemory(256)
	tr1, err := Open(pm, metric.Euclidean, object.PointFactory(2), config.KeepFirst, nil)
	require.NoError(t, err)
	require.NoError(t, tr1.Insert(pt(1, 2)))
	require.NoError(t, tr1.Insert(pt(3, 4)))

	tr2, err := Open(pm, metric.Euclidean, object.PointFactory(2), config.KeepFirst, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), tr2.ObjectCount())
	rs, err := tr2.RangeQuery(pt(1, 2), 0)
	require.NoError(t, err)
	require.Equal(t, 1, rs.Size())
}

func TestRangeQuery_NegativeRadiusRejected(t *testing.T) {
	tr := newTestTree(t, 256)
	_, err := tr.RangeQuery(pt(0, 0), -1)
	require.Error(t, err)
}

func TestNearest_NonPositiveKRejected(t *testing.T) {
	tr := newTestTree(t, 256)
	_, err := tr.Nearest(pt(0, 0), 0)
	require.Error(t, err)
}
