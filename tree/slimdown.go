package tree

import (
	"errors"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/node"
	"github.com/arboretum-go/arboretum/page"
	"github.com/arboretum-go/arboretum/pagemgr"
)

// SlimDown repeatedly walks sibling subtrees and moves each leaf entry to a
// sibling leaf when doing so does not enlarge the sibling's radius and may
// shrink the entry's own leaf's radius, until a full sweep makes no move.
func (t *MetricTree) SlimDown() error {
	if t.root == pagemgr.HeaderID {
		return nil
	}
	for {
		moved, err := t.slimSweep(t.root)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
	}
}

// slimSweep recurses down to the level directly above the leaves and
// attempts pairwise leaf-sibling moves there, reporting whether anything in
// the subtree rooted at id moved this sweep.
func (t *MetricTree) slimSweep(id page.ID) (bool, error) {
	p, err := t.pm.Get(id)
	if err != nil {
		return false, err
	}
	n := node.Open(p)
	if n.Kind() != node.KindIndex || n.Occupation() == 0 {
		return false, nil
	}

	e0, err := n.GetIndexEntry(0)
	if err != nil {
		return false, err
	}
	childPage, err := t.pm.Get(e0.Child)
	if err != nil {
		return false, err
	}
	if node.Open(childPage).Kind() == node.KindLeaf {
		return t.slimLeafSiblings(n, p)
	}

	anyMoved := false
	for i := 0; i < n.Occupation(); i++ {
		e, err := n.GetIndexEntry(i)
		if err != nil {
			return false, err
		}
		moved, err := t.slimSweep(e.Child)
		if err != nil {
			return false, err
		}
		anyMoved = anyMoved || moved
	}
	return anyMoved, nil
}

func (t *MetricTree) slimLeafSiblings(n *node.Node, parentPage *page.Page) (bool, error) {
	occ := n.Occupation()
	moved := false
	for i := 0; i < occ; i++ {
		for j := 0; j < occ; j++ {
			if i == j {
				continue
			}
			ei, err := n.GetIndexEntry(i)
			if err != nil {
				return false, err
			}
			ej, err := n.GetIndexEntry(j)
			if err != nil {
				return false, err
			}
			didMove, newEi, newEj, err := t.tryMoveFarthest(ei, ej)
			if err != nil {
				return false, err
			}
			if !didMove {
				continue
			}
			if err := n.SetIndexEntry(i, newEi); err != nil {
				return false, err
			}
			if err := n.SetIndexEntry(j, newEj); err != nil {
				return false, err
			}
			if err := t.pm.Write(parentPage); err != nil {
				return false, err
			}
			moved = true
		}
	}
	return moved, nil
}

// tryMoveFarthest moves leaf ei's farthest entry (from repr(ei)) into leaf
// ej when doing so fits, does not enlarge radius(ej), and does not drop
// ei below the configured minimum occupation.
func (t *MetricTree) tryMoveFarthest(ei, ej node.IndexEntry) (bool, node.IndexEntry, node.IndexEntry, error) {
	p1, err := t.pm.Get(ei.Child)
	if err != nil {
		return false, ei, ej, err
	}
	leaf1 := node.Open(p1)
	if leaf1.Occupation() <= t.cfg.MinOccupancy {
		return false, ei, ej, nil
	}

	farIdx, farDist := -1, -1.0
	for k := 0; k < leaf1.Occupation(); k++ {
		e, err := leaf1.GetLeafEntry(k)
		if err != nil {
			return false, ei, ej, err
		}
		if e.DistanceToOwner > farDist {
			farDist, farIdx = e.DistanceToOwner, k
		}
	}
	if farIdx < 0 {
		return false, ei, ej, nil
	}
	farEntry, err := leaf1.GetLeafEntry(farIdx)
	if err != nil {
		return false, ei, ej, err
	}

	reprJ, err := t.factory(ej.Representative)
	if err != nil {
		return false, ei, ej, err
	}
	obj, err := t.factory(farEntry.Object)
	if err != nil {
		return false, ei, ej, err
	}
	distToJ := t.distance(obj, reprJ)
	if distToJ > ej.Radius {
		return false, ei, ej, nil
	}

	p2, err := t.pm.Get(ej.Child)
	if err != nil {
		return false, ei, ej, err
	}
	leaf2 := node.Open(p2)
	moved := node.LeafEntry{Object: farEntry.Object, DistanceToOwner: distToJ}
	if _, err := leaf2.AddLeafEntry(moved); err != nil {
		if errors.Is(err, arberrors.ErrNodeFull) {
			return false, ei, ej, nil
		}
		return false, ei, ej, err
	}
	if err := leaf1.RemoveEntry(farIdx); err != nil {
		return false, ei, ej, err
	}

	var newRadius1 float64
	for k := 0; k < leaf1.Occupation(); k++ {
		e, err := leaf1.GetLeafEntry(k)
		if err != nil {
			return false, ei, ej, err
		}
		if e.DistanceToOwner > newRadius1 {
			newRadius1 = e.DistanceToOwner
		}
	}
	leaf1.SetNodeRadius(newRadius1)
	if err := t.pm.Write(p1); err != nil {
		return false, ei, ej, err
	}
	if err := t.pm.Write(p2); err != nil {
		return false, ei, ej, err
	}

	ei.Radius = newRadius1
	ei.EntriesBelow--
	ej.EntriesBelow++
	return true, ei, ej, nil
}
