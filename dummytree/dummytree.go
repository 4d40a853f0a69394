// Package dummytree implements the sequential-scan baseline. It stores
// every object in a singly-linked chain of dummy nodes
// (no index nodes, no covering radius, no promotion) and answers range and
// k-NN queries by walking the chain and testing every object against the
// query — the same substrate as tree, with none of its pruning.
//
// Grounded on stDummyNode.cpp: AddEntry packs objects into a single node
// until it reports full, at which point the original moved on to the next
// page of a plain sequence; here that next page is an explicit chain link
// since pagemgr recycles disposed ids rather than growing by always
// appending, so chain order can't be inferred from id order.
package dummytree

import (
	"encoding/binary"
	"errors"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/config"
	"github.com/arboretum-go/arboretum/metric"
	"github.com/arboretum-go/arboretum/node"
	"github.com/arboretum-go/arboretum/object"
	"github.com/arboretum-go/arboretum/page"
	"github.com/arboretum-go/arboretum/pagemgr"
	"github.com/arboretum-go/arboretum/resultset"
	"go.uber.org/zap"
)

// Header layout within the page manager's reserved tail region of the
// header page (pagemgr.TreeMetadataSize bytes; a DummyTree owns its own
// page manager instance, so this never collides with a tree.MetricTree's
// identical-looking header on a different store):
//
//	[0:8)   head page id (0 means the chain is empty)
//	[8:16)  tail page id (where the next Insert tries to land)
//	[16:24) object count
const (
	hdrOffHead  = 0
	hdrOffTail  = 8
	hdrOffCount = 16
	hdrSize     = 24
)

// DummyTree is the sequential-scan baseline over one page manager.
type DummyTree struct {
	pm       pagemgr.PageManager
	distance metric.DistanceFunction
	factory  object.Factory
	ties     config.TiesPolicy
	log      *zap.Logger

	head  page.ID
	tail  page.ID
	count uint64
}

// Open constructs a DummyTree over pm, reading existing header metadata if
// pm already holds one (an empty/new manager reads as an empty chain). ties
// selects the k-NN ties policy Nearest uses.
func Open(pm pagemgr.PageManager, distance metric.DistanceFunction, factory object.Factory, ties config.TiesPolicy, log *zap.Logger) (*DummyTree, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &DummyTree{pm: pm, distance: distance, factory: factory, ties: ties, log: log}
	if err := t.readHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *DummyTree) tailOffset() int {
	return t.pm.PageSize() - pagemgr.TreeMetadataSize
}

func (t *DummyTree) readHeader() error {
	hp, err := t.pm.GetHeader()
	if err != nil {
		return err
	}
	buf, err := hp.ReadAt(t.tailOffset(), hdrSize)
	if err != nil {
		return err
	}
	t.head = page.ID(binary.LittleEndian.Uint64(buf[hdrOffHead : hdrOffHead+8]))
	t.tail = page.ID(binary.LittleEndian.Uint64(buf[hdrOffTail : hdrOffTail+8]))
	t.count = binary.LittleEndian.Uint64(buf[hdrOffCount : hdrOffCount+8])
	return nil
}

func (t *DummyTree) writeHeader() error {
	hp, err := t.pm.GetHeader()
	if err != nil {
		return err
	}
	buf := make([]byte, hdrSize)
	binary.LittleEndian.PutUint64(buf[hdrOffHead:hdrOffHead+8], uint64(t.head))
	binary.LittleEndian.PutUint64(buf[hdrOffTail:hdrOffTail+8], uint64(t.tail))
	binary.LittleEndian.PutUint64(buf[hdrOffCount:hdrOffCount+8], t.count)
	if err := hp.WriteAt(t.tailOffset(), buf); err != nil {
		return err
	}
	return t.pm.Write(hp)
}

// ObjectCount reports the number of objects currently stored.
func (t *DummyTree) ObjectCount() uint64 { return t.count }

func (t *DummyTree) requireValidObject(obj object.Object) error {
	if obj == nil {
		return arberrors.Wrap(arberrors.ErrInvalidArgument, "nil object")
	}
	return nil
}

// Insert appends obj to the tail dummy node, chaining a freshly allocated
// node onto it when the tail reports full.
func (t *DummyTree) Insert(obj object.Object) error {
	if err := t.requireValidObject(obj); err != nil {
		return err
	}
	entry := node.LeafEntry{Object: obj.Serialize()}

	if t.head == pagemgr.HeaderID {
		p, err := t.pm.Allocate()
		if err != nil {
			return err
		}
		dn := node.New(p, node.KindDummy)
		if _, err := dn.AddLeafEntry(entry); err != nil {
			return err
		}
		if err := t.pm.Write(p); err != nil {
			return err
		}
		t.head, t.tail = p.ID(), p.ID()
		t.count = 1
		return t.writeHeader()
	}

	tp, err := t.pm.Get(t.tail)
	if err != nil {
		return err
	}
	tn := node.Open(tp)
	if _, err := tn.AddLeafEntry(entry); err == nil {
		if err := t.pm.Write(tp); err != nil {
			return err
		}
		t.count++
		return t.writeHeader()
	} else if !errors.Is(err, arberrors.ErrNodeFull) {
		return err
	}

	np, err := t.pm.Allocate()
	if err != nil {
		return err
	}
	nn := node.New(np, node.KindDummy)
	if _, err := nn.AddLeafEntry(entry); err != nil {
		return err
	}
	if err := t.pm.Write(np); err != nil {
		return err
	}
	if err := tn.SetNextDummyPage(np.ID()); err != nil {
		return err
	}
	if err := t.pm.Write(tp); err != nil {
		return err
	}
	t.tail = np.ID()
	t.count++
	return t.writeHeader()
}

// RangeQuery returns every stored object o with d(o, q) <= r, found by
// linear scan through the chain.
func (t *DummyTree) RangeQuery(q object.Object, r float64) (*resultset.ResultSet, error) {
	if r < 0 {
		return nil, arberrors.Wrap(arberrors.ErrInvalidArgument, "range query: negative radius %v", r)
	}
	if err := t.requireValidObject(q); err != nil {
		return nil, err
	}
	rs := resultset.NewRange(r)
	if err := t.scan(func(obj object.Object) {
		d := t.distance(q, obj)
		if d <= r {
			rs.Add(obj, d)
		}
	}); err != nil {
		return nil, err
	}
	return rs, nil
}

// Nearest returns the k objects minimising d(o, q), found by linear scan
// through the chain.
func (t *DummyTree) Nearest(q object.Object, k int) (*resultset.ResultSet, error) {
	if k <= 0 {
		return nil, arberrors.Wrap(arberrors.ErrInvalidArgument, "nearest: non-positive k %d", k)
	}
	if err := t.requireValidObject(q); err != nil {
		return nil, err
	}
	rs := resultset.NewKNN(k, t.ties)
	if err := t.scan(func(obj object.Object) {
		rs.Add(obj, t.distance(q, obj))
	}); err != nil {
		return nil, err
	}
	return rs, nil
}

func (t *DummyTree) scan(visit func(object.Object)) error {
	id := t.head
	for id != pagemgr.HeaderID {
		p, err := t.pm.Get(id)
		if err != nil {
			return err
		}
		n := node.Open(p)
		for i := 0; i < n.Occupation(); i++ {
			e, err := n.GetLeafEntry(i)
			if err != nil {
				return err
			}
			obj, err := t.factory(e.Object)
			if err != nil {
				return err
			}
			visit(obj)
		}
		id, err = n.NextDummyPage()
		if err != nil {
			return err
		}
	}
	return nil
}
