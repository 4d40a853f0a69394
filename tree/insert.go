package tree

import (
	"errors"
	"math"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/config"
	"github.com/arboretum-go/arboretum/node"
	"github.com/arboretum-go/arboretum/object"
	"github.com/arboretum-go/arboretum/page"
	"github.com/arboretum-go/arboretum/pagemgr"
)

// splitEntries is what a child split hands back to its parent: two index
// entries, both direct children of the same parent node, replacing the one
// entry that used to point at the now-split child.
type splitEntries struct {
	first  node.IndexEntry
	second node.IndexEntry
}

// Insert places object in some leaf and restores the covering, parent-
// distance, occupation and balance invariants on the path back to the root.
func (t *MetricTree) Insert(obj object.Object) error {
	if err := t.requireValidObject(obj); err != nil {
		return err
	}
	objBytes := obj.Serialize()
	if t.root == pagemgr.HeaderID {
		return t.insertFirst(objBytes)
	}
	split, err := t.insertInto(t.root, objBytes, 0, 0)
	if err != nil {
		return err
	}
	if split != nil {
		if err := t.growRoot(*split); err != nil {
			return err
		}
	}
	t.count++
	return t.writeHeader()
}

func (t *MetricTree) insertFirst(objBytes []byte) error {
	p, err := t.allocate()
	if err != nil {
		return err
	}
	leaf := node.New(p, node.KindLeaf)
	if _, err := leaf.AddLeafEntry(node.LeafEntry{Object: objBytes, DistanceToOwner: 0}); err != nil {
		return err
	}
	if err := t.pm.Write(p); err != nil {
		return err
	}
	t.root = p.ID()
	t.height = 0
	t.count = 1
	if t.stats != nil {
		t.stats.Grow(1)
	}
	return t.writeHeader()
}

func (t *MetricTree) growRoot(split splitEntries) error {
	p, err := t.allocate()
	if err != nil {
		return err
	}
	root := node.New(p, node.KindIndex)
	first, second := split.first, split.second
	// Root entries have no parent representative to measure against.
	first.DistanceToOwner = 0
	second.DistanceToOwner = 0
	if _, err := root.AddIndexEntry(first); err != nil {
		return err
	}
	if _, err := root.AddIndexEntry(second); err != nil {
		return err
	}
	root.SetNodeRadius(math.Max(first.Radius, second.Radius))
	if err := t.pm.Write(p); err != nil {
		return err
	}
	t.root = p.ID()
	t.height++
	if t.stats != nil {
		t.stats.Grow(t.height + 1)
	}
	return nil
}

// insertInto descends into the node at id, which lies distToNewObj away
// from the object being inserted and whose own governing representative
// (one level up) lies selfDistToParent away from ITS governing
// representative (used unchanged as the DistanceToOwner of any new sibling
// entry this call's split produces, the split's "distanceToOldParent").
func (t *MetricTree) insertInto(id page.ID, objBytes []byte, distToNewObj, selfDistToParent float64) (*splitEntries, error) {
	p, err := t.pm.Get(id)
	if err != nil {
		return nil, err
	}
	n := node.Open(p)

	if n.Kind() == node.KindLeaf {
		entry := node.LeafEntry{Object: objBytes, DistanceToOwner: distToNewObj}
		if _, err := n.AddLeafEntry(entry); err == nil {
			if distToNewObj > n.NodeRadius() {
				n.SetNodeRadius(distToNewObj)
			}
			return nil, t.pm.Write(p)
		} else if !errors.Is(err, arberrors.ErrNodeFull) {
			return nil, err
		}
		return t.splitLeaf(n, entry, selfDistToParent)
	}

	childIdx, d, err := t.chooseChild(n, objBytes)
	if err != nil {
		return nil, err
	}
	e, err := n.GetIndexEntry(childIdx)
	if err != nil {
		return nil, err
	}
	split, err := t.insertInto(e.Child, objBytes, d, e.DistanceToOwner)
	if err != nil {
		return nil, err
	}
	if split == nil {
		if d > e.Radius {
			e.Radius = d
		}
		e.EntriesBelow++
		if err := n.SetIndexEntry(childIdx, e); err != nil {
			return nil, err
		}
		return nil, t.pm.Write(p)
	}

	if err := n.SetIndexEntry(childIdx, split.first); err != nil {
		return nil, err
	}
	if _, err := n.AddIndexEntry(split.second); err == nil {
		return nil, t.pm.Write(p)
	} else if !errors.Is(err, arberrors.ErrNodeFull) {
		return nil, err
	}
	return t.splitIndex(n, split.second, selfDistToParent)
}

// chooseChild applies the insertion choice rules: among children whose
// covering ball already contains the object, prefer the one with fewest
// entries (config.MinOccupancy); otherwise (or when config.MinEnlargement
// is configured) prefer the child whose radius grows least.
func (t *MetricTree) chooseChild(n *node.Node, objBytes []byte) (int, float64, error) {
	obj, err := t.factory(objBytes)
	if err != nil {
		return 0, 0, err
	}
	occ := n.Occupation()
	type cand struct {
		idx int
		d   float64
		e   node.IndexEntry
	}
	cands := make([]cand, 0, occ)
	var covering []cand
	for i := 0; i < occ; i++ {
		e, err := n.GetIndexEntry(i)
		if err != nil {
			return 0, 0, err
		}
		repr, err := t.factory(e.Representative)
		if err != nil {
			return 0, 0, err
		}
		d := t.distance(obj, repr)
		c := cand{idx: i, d: d, e: e}
		cands = append(cands, c)
		if d <= e.Radius {
			covering = append(covering, c)
		}
	}

	if t.cfg.Choice == config.MinOccupancy && len(covering) > 0 {
		best := covering[0]
		for _, c := range covering[1:] {
			if c.e.EntriesBelow < best.e.EntriesBelow ||
				(c.e.EntriesBelow == best.e.EntriesBelow && c.d < best.d) {
				best = c
			}
		}
		return best.idx, best.d, nil
	}

	best := cands[0]
	bestEnl := math.Max(0, cands[0].d-cands[0].e.Radius)
	for _, c := range cands[1:] {
		enl := math.Max(0, c.d-c.e.Radius)
		if enl < bestEnl || (enl == bestEnl && c.e.Radius < best.e.Radius) {
			best, bestEnl = c, enl
		}
	}
	return best.idx, best.d, nil
}
