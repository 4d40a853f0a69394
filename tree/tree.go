// Package tree implements the metric tree core: insertion with
// child-choice and split-promotion policies, range and best-
// first k-NN search, slim-down maintenance, and the structural invariants
// (covering radius, parent distance) that make pruning sound.
//
// Open/Insert follow a two-child-split B-tree's overall shape (descend,
// recurse, propagate a split result up, grow a new root on a root split,
// encode/decode against raw page bytes), generalized from a two-child
// split to an n-ary ball-partitioning split driven by a configurable
// promotion policy.
package tree

import (
	"encoding/binary"
	"math/rand"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/config"
	"github.com/arboretum-go/arboretum/diskstats"
	"github.com/arboretum-go/arboretum/metric"
	"github.com/arboretum-go/arboretum/object"
	"github.com/arboretum-go/arboretum/page"
	"github.com/arboretum-go/arboretum/pagemgr"
	"go.uber.org/zap"
)

// Header layout within the page manager's reserved tail region of the
// header page (pagemgr.TreeMetadataSize bytes, see pagemgr/disk.go):
//
//	[0:8)   root page id (0 means the tree is empty, since page 0 is always
//	        the page manager's own header page and is never a tree node)
//	[8:12)  height (0 when the root is a leaf; increments when the root splits)
//	[12:20) object count
//	[20:28) node count (pages currently allocated to this tree)
const (
	hdrOffRoot      = 0
	hdrOffHeight    = 8
	hdrOffCount     = 12
	hdrOffNodeCount = 20
	hdrSize         = 28
)

// MetricTree is a single ball-partitioning metric tree over one page
// manager. Not safe for concurrent use by multiple goroutines, per the
// core's single-threaded-per-instance concurrency model.
type MetricTree struct {
	pm       pagemgr.PageManager
	cfg      config.IndexConfig
	distance metric.DistanceFunction
	factory  object.Factory
	log      *zap.Logger
	rng      *rand.Rand
	stats    *diskstats.LevelAccess

	root      page.ID
	height    int
	count     uint64
	nodeCount uint64
}

// Open constructs a MetricTree over pm, reading existing header metadata if
// pm already holds a tree (an empty/new manager reads as an empty tree).
// distance and factory are the caller's DistanceFunction and Object
// capabilities; log may be nil.
func Open(pm pagemgr.PageManager, cfg config.IndexConfig, distance metric.DistanceFunction, factory object.Factory, log *zap.Logger) (*MetricTree, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &MetricTree{
		pm:       pm,
		cfg:      cfg.Normalize(),
		distance: distance,
		factory:  factory,
		log:      log,
		rng:      rand.New(rand.NewSource(1)),
	}
	if err := t.readHeader(); err != nil {
		return nil, err
	}
	if t.cfg.StatsEnabled {
		t.stats = diskstats.NewLevelAccess(t.height + 1)
	}
	return t, nil
}

func (t *MetricTree) tailOffset() int {
	return t.pm.PageSize() - pagemgr.TreeMetadataSize
}

func (t *MetricTree) readHeader() error {
	hp, err := t.pm.GetHeader()
	if err != nil {
		return err
	}
	tail, err := hp.ReadAt(t.tailOffset(), hdrSize)
	if err != nil {
		return err
	}
	t.root = page.ID(binary.LittleEndian.Uint64(tail[hdrOffRoot : hdrOffRoot+8]))
	t.height = int(binary.LittleEndian.Uint32(tail[hdrOffHeight : hdrOffHeight+4]))
	t.count = binary.LittleEndian.Uint64(tail[hdrOffCount : hdrOffCount+8])
	t.nodeCount = binary.LittleEndian.Uint64(tail[hdrOffNodeCount : hdrOffNodeCount+8])
	return nil
}

func (t *MetricTree) writeHeader() error {
	hp, err := t.pm.GetHeader()
	if err != nil {
		return err
	}
	tail := make([]byte, hdrSize)
	binary.LittleEndian.PutUint64(tail[hdrOffRoot:hdrOffRoot+8], uint64(t.root))
	binary.LittleEndian.PutUint32(tail[hdrOffHeight:hdrOffHeight+4], uint32(t.height))
	binary.LittleEndian.PutUint64(tail[hdrOffCount:hdrOffCount+8], t.count)
	binary.LittleEndian.PutUint64(tail[hdrOffNodeCount:hdrOffNodeCount+8], t.nodeCount)
	if err := hp.WriteAt(t.tailOffset(), tail); err != nil {
		return err
	}
	return t.pm.Write(hp)
}

// allocate fetches a fresh page from the manager and accounts for it in the
// tree's own node count, kept separately from the manager's global
// allocation counter since a page manager may be shared in principle.
func (t *MetricTree) allocate() (*page.Page, error) {
	p, err := t.pm.Allocate()
	if err != nil {
		return nil, err
	}
	t.nodeCount++
	return p, nil
}

// Height reports the tree's current height: 0 when the root is a leaf,
// incrementing by one each time the root splits.
func (t *MetricTree) Height() int { return t.height }

// ObjectCount reports the number of objects currently indexed.
func (t *MetricTree) ObjectCount() uint64 { return t.count }

// Size reports the number of pages currently allocated to this tree
// (including the root, excluding the page manager's own header page).
func (t *MetricTree) Size() uint64 { return t.nodeCount }

// DiskStats returns the per-level access counters, or nil if
// config.IndexConfig.StatsEnabled was false at construction.
func (t *MetricTree) DiskStats() *diskstats.LevelAccess { return t.stats }

// PageManagerStats returns the underlying page manager's read/write
// counters.
func (t *MetricTree) PageManagerStats() pagemgr.Stats { return t.pm.Stats() }

func (t *MetricTree) requireValidObject(obj object.Object) error {
	if obj == nil {
		return arberrors.Wrap(arberrors.ErrInvalidArgument, "nil object")
	}
	return nil
}
