package tree

import (
	"math"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/node"
	"github.com/arboretum-go/arboretum/object"
	"github.com/arboretum-go/arboretum/page"
	"github.com/arboretum-go/arboretum/pagemgr"
	"github.com/arboretum-go/arboretum/pqueue"
	"github.com/arboretum-go/arboretum/resultset"
)

// RangeQuery returns every indexed object o with d(o, q) <= r, in
// unspecified order. A query against an empty tree returns an empty result,
// not an error.
func (t *MetricTree) RangeQuery(q object.Object, r float64) (*resultset.ResultSet, error) {
	if r < 0 {
		return nil, arberrors.Wrap(arberrors.ErrInvalidArgument, "range query: negative radius %v", r)
	}
	if err := t.requireValidObject(q); err != nil {
		return nil, err
	}
	rs := resultset.NewRange(r)
	if t.root == pagemgr.HeaderID {
		return rs, nil
	}
	if err := t.rangeSearch(t.root, 0, q, r, rs, 0); err != nil {
		return nil, err
	}
	return rs, nil
}

// rangeSearch walks the tree pruning on distance bounds: leaves prune on
// the stored parent distance alone when possible, index entries prune on
// the same bound widened by the child's own covering radius.
func (t *MetricTree) rangeSearch(id page.ID, level int, q object.Object, r float64, rs *resultset.ResultSet, dPar float64) error {
	p, err := t.pm.Get(id)
	if err != nil {
		return err
	}
	n := node.Open(p)
	if t.stats != nil {
		t.stats.AddNode(level)
	}

	if n.Kind() == node.KindLeaf {
		for i := 0; i < n.Occupation(); i++ {
			e, err := n.GetLeafEntry(i)
			if err != nil {
				return err
			}
			if math.Abs(dPar-e.DistanceToOwner) > r {
				continue
			}
			obj, err := t.factory(e.Object)
			if err != nil {
				return err
			}
			d := t.distance(q, obj)
			if t.stats != nil {
				// A leaf entry is a single object: its covering radius is 0.
				t.stats.AddEntry(0, level)
			}
			if d <= r {
				rs.Add(obj, d)
			}
		}
		return nil
	}

	for i := 0; i < n.Occupation(); i++ {
		e, err := n.GetIndexEntry(i)
		if err != nil {
			return err
		}
		if math.Abs(dPar-e.DistanceToOwner) > r+e.Radius {
			continue
		}
		repr, err := t.factory(e.Representative)
		if err != nil {
			return err
		}
		d := t.distance(q, repr)
		if t.stats != nil {
			t.stats.AddEntry(e.Radius, level)
		}
		if d <= r+e.Radius {
			if err := t.rangeSearch(e.Child, level+1, q, r, rs, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Nearest returns the k objects minimising d(o, q), using a best-first
// search over a min-heap of pending subtrees. The queue
// candidate's Radius field does double duty here: for an index entry's
// pushed child it carries d(q, repr) (the value needed as dPar when that
// child is later popped), not the child's own covering radius.
func (t *MetricTree) Nearest(q object.Object, k int) (*resultset.ResultSet, error) {
	if k <= 0 {
		return nil, arberrors.Wrap(arberrors.ErrInvalidArgument, "nearest: non-positive k %d", k)
	}
	if err := t.requireValidObject(q); err != nil {
		return nil, err
	}
	rs := resultset.NewKNN(k, t.cfg.Ties)
	if t.root == pagemgr.HeaderID {
		return rs, nil
	}

	qu := pqueue.NewBinaryHeap()
	// The root has no parent representative; its own entries'
	// DistanceToOwner is always 0 (see growRoot), so dPar=0 here never
	// triggers the parent-distance prune for anything in the root.
	qu.Push(pqueue.Candidate{PageID: t.root, LowerBound: 0, Radius: 0})

	for qu.Len() > 0 {
		top, _ := qu.Peek()
		if top.LowerBound > rs.CurrentRadius() {
			break
		}
		cand, _ := qu.Pop()
		if err := t.knnVisit(cand, q, rs, qu); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

func (t *MetricTree) knnVisit(cand pqueue.Candidate, q object.Object, rs *resultset.ResultSet, qu pqueue.Queue) error {
	p, err := t.pm.Get(cand.PageID)
	if err != nil {
		return err
	}
	n := node.Open(p)
	dPar := cand.Radius

	if n.Kind() == node.KindLeaf {
		for i := 0; i < n.Occupation(); i++ {
			e, err := n.GetLeafEntry(i)
			if err != nil {
				return err
			}
			if math.Abs(dPar-e.DistanceToOwner) > rs.CurrentRadius() {
				continue
			}
			obj, err := t.factory(e.Object)
			if err != nil {
				return err
			}
			d := t.distance(q, obj)
			rs.Add(obj, d)
		}
		return nil
	}

	for i := 0; i < n.Occupation(); i++ {
		e, err := n.GetIndexEntry(i)
		if err != nil {
			return err
		}
		if math.Abs(dPar-e.DistanceToOwner) > rs.CurrentRadius()+e.Radius {
			continue
		}
		repr, err := t.factory(e.Representative)
		if err != nil {
			return err
		}
		d := t.distance(q, repr)
		lb := math.Max(0, d-e.Radius)
		if lb <= rs.CurrentRadius() {
			qu.Push(pqueue.Candidate{PageID: e.Child, LowerBound: lb, Radius: d})
		}
	}
	return nil
}
