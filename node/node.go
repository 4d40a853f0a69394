package node

import (
	"encoding/binary"
	"math"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/page"
)

// LeafEntry is a leaf node's record: the object's own bytes plus its
// distance to the leaf's local representative.
type LeafEntry struct {
	Object          []byte
	DistanceToOwner float64
}

const leafFixedSize = 8 // DistanceToOwner

func (e LeafEntry) encode() []byte {
	buf := make([]byte, leafFixedSize+len(e.Object))
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(e.DistanceToOwner))
	copy(buf[leafFixedSize:], e.Object)
	return buf
}

func decodeLeafEntry(buf []byte) LeafEntry {
	dist := math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8]))
	obj := make([]byte, len(buf)-leafFixedSize)
	copy(obj, buf[leafFixedSize:])
	return LeafEntry{Object: obj, DistanceToOwner: dist}
}

// IndexEntry is an index node's record: the representative's bytes, the
// child page id, the child's covering radius, how many objects are
// reachable below it, and the representative's distance to its own parent
// representative (stored to enable pruning without recomputation).
type IndexEntry struct {
	Representative  []byte
	Child           page.ID
	Radius          float64
	EntriesBelow    uint64
	DistanceToOwner float64
}

const indexFixedSize = 8 + 8 + 8 + 8 // Child + Radius + EntriesBelow + DistanceToOwner

func (e IndexEntry) encode() []byte {
	buf := make([]byte, indexFixedSize+len(e.Representative))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(e.Child))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(e.Radius))
	binary.LittleEndian.PutUint64(buf[16:24], e.EntriesBelow)
	binary.LittleEndian.PutUint64(buf[24:32], math.Float64bits(e.DistanceToOwner))
	copy(buf[indexFixedSize:], e.Representative)
	return buf
}

func decodeIndexEntry(buf []byte) IndexEntry {
	child := page.ID(binary.LittleEndian.Uint64(buf[0:8]))
	radius := math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
	below := binary.LittleEndian.Uint64(buf[16:24])
	dist := math.Float64frombits(binary.LittleEndian.Uint64(buf[24:32]))
	repr := make([]byte, len(buf)-indexFixedSize)
	copy(repr, buf[indexFixedSize:])
	return IndexEntry{Representative: repr, Child: child, Radius: radius, EntriesBelow: below, DistanceToOwner: dist}
}

// Node wraps a Slotted engine with typed accessors for one of the four
// tagged-union kinds.
type Node struct {
	s *Slotted
}

// New wraps page as a node, initializing its header for the given kind. Use
// Open instead to interpret an already-initialized page.
func New(p *page.Page, kind Kind) *Node {
	s := NewSlotted(p)
	s.Init(kind)
	return &Node{s: s}
}

// Open interprets an already-initialized page as a node without touching its
// contents.
func Open(p *page.Page) *Node {
	return &Node{s: NewSlotted(p)}
}

func (n *Node) Kind() Kind               { return n.s.Kind() }
func (n *Node) Occupation() int          { return n.s.Occupation() }
func (n *Node) Free() int                { return n.s.Free() }
func (n *Node) NodeRadius() float64      { return n.s.NodeRadius() }
func (n *Node) SetNodeRadius(r float64)  { n.s.SetNodeRadius(r) }
func (n *Node) RepresentativeIndex() int { return n.s.RepresentativeIndex() }
func (n *Node) SetRepresentativeIndex(i int) {
	n.s.SetRepresentativeIndex(i)
}
func (n *Node) Page() *page.Page { return n.s.p }

// AddLeafEntry inserts e into a leaf, dummy, or mm node.
func (n *Node) AddLeafEntry(e LeafEntry) (int, error) {
	if err := n.requireKind(KindLeaf, KindDummy, KindMM); err != nil {
		return 0, err
	}
	if n.Kind() == KindMM && n.Occupation() >= 2 {
		return 0, arberrors.ErrNodeFull
	}
	return n.s.AddEntry(e.encode())
}

// GetLeafEntry reads entry i of a leaf, dummy, or mm node.
func (n *Node) GetLeafEntry(i int) (LeafEntry, error) {
	if err := n.requireKind(KindLeaf, KindDummy, KindMM); err != nil {
		return LeafEntry{}, err
	}
	buf, err := n.s.GetEntry(i)
	if err != nil {
		return LeafEntry{}, err
	}
	return decodeLeafEntry(buf), nil
}

// AddIndexEntry inserts e into an index node.
func (n *Node) AddIndexEntry(e IndexEntry) (int, error) {
	if err := n.requireKind(KindIndex); err != nil {
		return 0, err
	}
	return n.s.AddEntry(e.encode())
}

// GetIndexEntry reads entry i of an index node.
func (n *Node) GetIndexEntry(i int) (IndexEntry, error) {
	if err := n.requireKind(KindIndex); err != nil {
		return IndexEntry{}, err
	}
	buf, err := n.s.GetEntry(i)
	if err != nil {
		return IndexEntry{}, err
	}
	return decodeIndexEntry(buf), nil
}

// SetIndexEntry overwrites entry i in place by removing and re-adding it.
// Used when a covering radius or distance-to-parent is updated after an
// insert below this entry. Always succeeds when the new encoding is no
// larger than the old one (the only case the tree ever exercises, since
// radius/child updates never change the representative's byte length).
func (n *Node) SetIndexEntry(i int, e IndexEntry) error {
	if err := n.requireKind(KindIndex); err != nil {
		return err
	}
	all := make([]IndexEntry, n.Occupation())
	for k := range all {
		var err error
		all[k], err = n.GetIndexEntry(k)
		if err != nil {
			return err
		}
	}
	all[i] = e
	rep := n.s.RepresentativeIndex()
	n.s.Init(KindIndex)
	n.s.SetRepresentativeIndex(rep)
	for _, ent := range all {
		if _, err := n.s.AddEntry(ent.encode()); err != nil {
			return err
		}
	}
	return nil
}

// RemoveEntry deletes entry i from any node kind.
func (n *Node) RemoveEntry(i int) error {
	return n.s.RemoveEntry(i)
}

// NextDummyPage reports the id of the next page in a dummy node's
// sequential-scan chain, or 0 if this is the chain's tail. Dummy nodes carry
// no covering radius, so the chain link is stored in that otherwise-unused
// 8-byte header field rather than adding a new one.
func (n *Node) NextDummyPage() (page.ID, error) {
	if err := n.requireKind(KindDummy); err != nil {
		return 0, err
	}
	return page.ID(math.Float64bits(n.NodeRadius())), nil
}

// SetNextDummyPage records next as the following page in the chain.
func (n *Node) SetNextDummyPage(next page.ID) error {
	if err := n.requireKind(KindDummy); err != nil {
		return err
	}
	n.SetNodeRadius(math.Float64frombits(uint64(next)))
	return nil
}

func (n *Node) requireKind(want ...Kind) error {
	k := n.Kind()
	for _, w := range want {
		if k == w {
			return nil
		}
	}
	return arberrors.Wrap(arberrors.ErrInvalidArgument, "node kind %d does not support this operation", k)
}
