// Package node implements a slotted-page layout packing variable-length
// entries into one page, plus the tagged-union node
// kinds (leaf, index, dummy, mm) that the metric tree and the sequential
// baseline build on top of it.
//
// This generalizes a directory storing an (offset,length) pair per slot,
// growing backward from the page's tail, into an offset-only directory
// growing forward from the header: slot i's size is derived from slot
// i-1's offset (or P for slot 0) minus slot i's offset, since objects are
// packed contiguously against the page's high end with no gaps between
// them except the single hole removeEntry compacts away.
package node

import (
	"encoding/binary"
	"math"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/page"
)

// Header layout, all little-endian:
//
//	[0]     kind byte
//	[1:2]   reserved
//	[2:4]   occupation (uint16)
//	[4:6]   representative index (uint16, index nodes only)
//	[6:8]   reserved
//	[8:16]  node-level radius (float64 bits, rarely used — see NodeRadius)
const (
	hdrKindOff  = 0
	hdrOccOff   = 2
	hdrRepOff   = 4
	hdrRadOff   = 8
	headerSize = 16
	dirEntrySZ = 4 // one uint32 offset per directory slot
)

// Kind discriminates the tagged union of node variants.
type Kind byte

const (
	KindLeaf  Kind = 0
	KindIndex Kind = 1
	KindDummy Kind = 2
	KindMM    Kind = 3
)

// Slotted is the raw byte-slot engine: a view over a page.Page implementing
// the header + forward-growing directory + backward-growing object heap
// layout. It knows nothing about entry semantics (leaf vs index vs dummy);
// Node (in node.go) builds typed entries on top.
type Slotted struct {
	p *page.Page
}

// NewSlotted wraps an existing page. Call Init on a freshly allocated page
// before use.
func NewSlotted(p *page.Page) *Slotted { return &Slotted{p: p} }

// Init zero-fills the node header and directory for a brand-new page of the
// given kind. Safe to call on an already-initialized page to reset it.
func (s *Slotted) Init(kind Kind) {
	buf := s.p.Bytes()
	for i := range buf {
		buf[i] = 0
	}
	buf[hdrKindOff] = byte(kind)
}

// Kind reports the node's tagged-union discriminant.
func (s *Slotted) Kind() Kind { return Kind(s.p.Bytes()[hdrKindOff]) }

func (s *Slotted) setKind(k Kind) { s.p.Bytes()[hdrKindOff] = byte(k) }

// Occupation reports the number of live entries.
func (s *Slotted) Occupation() int {
	return int(binary.LittleEndian.Uint16(s.p.Bytes()[hdrOccOff : hdrOccOff+2]))
}

func (s *Slotted) setOccupation(n int) {
	binary.LittleEndian.PutUint16(s.p.Bytes()[hdrOccOff:hdrOccOff+2], uint16(n))
}

// RepresentativeIndex returns the slot index of the node's representative
// entry, meaningful for index nodes only.
func (s *Slotted) RepresentativeIndex() int {
	return int(binary.LittleEndian.Uint16(s.p.Bytes()[hdrRepOff : hdrRepOff+2]))
}

// SetRepresentativeIndex records which slot holds the node's representative.
func (s *Slotted) SetRepresentativeIndex(i int) {
	binary.LittleEndian.PutUint16(s.p.Bytes()[hdrRepOff:hdrRepOff+2], uint16(i))
}

// NodeRadius returns the node-level covering radius, when one is tracked
// directly on the node rather than solely in the parent's entry.
func (s *Slotted) NodeRadius() float64 {
	bits := binary.LittleEndian.Uint64(s.p.Bytes()[hdrRadOff : hdrRadOff+8])
	return math.Float64frombits(bits)
}

// SetNodeRadius records the node-level covering radius.
func (s *Slotted) SetNodeRadius(r float64) {
	binary.LittleEndian.PutUint64(s.p.Bytes()[hdrRadOff:hdrRadOff+8], math.Float64bits(r))
}

func (s *Slotted) dirOffset(i int) int { return headerSize + i*dirEntrySZ }

func (s *Slotted) slotOffset(i int) uint32 {
	off := s.dirOffset(i)
	return binary.LittleEndian.Uint32(s.p.Bytes()[off : off+4])
}

func (s *Slotted) setSlotOffset(i int, v uint32) {
	off := s.dirOffset(i)
	binary.LittleEndian.PutUint32(s.p.Bytes()[off:off+4], v)
}

// lowestOffset returns the offset of the most recently added live object, or
// the page size when there are no entries yet.
func (s *Slotted) lowestOffset() int {
	n := s.Occupation()
	if n == 0 {
		return s.p.Size()
	}
	return int(s.slotOffset(n - 1))
}

// directorySize is the number of bytes the directory currently occupies.
func (s *Slotted) directorySize() int { return s.Occupation() * dirEntrySZ }

// Free reports the number of free bytes between the end of the directory
// and the start of the object heap.
func (s *Slotted) Free() int {
	return s.lowestOffset() - headerSize - s.directorySize()
}

// AddEntry appends rec at the next directory slot. Returns the new slot
// index, or ErrNodeFull if rec plus one directory slot does not fit in the
// node's free space.
func (s *Slotted) AddEntry(rec []byte) (int, error) {
	need := len(rec) + dirEntrySZ
	if s.Free() < need {
		return 0, arberrors.ErrNodeFull
	}
	n := s.Occupation()
	newOffset := s.lowestOffset() - len(rec)
	copy(s.p.Bytes()[newOffset:newOffset+len(rec)], rec)
	s.setSlotOffset(n, uint32(newOffset))
	s.setOccupation(n + 1)
	return n, nil
}

// entrySize returns the byte length of slot i's object region.
func (s *Slotted) entrySize(i int) int {
	var prevOffset int
	if i == 0 {
		prevOffset = s.p.Size()
	} else {
		prevOffset = int(s.slotOffset(i - 1))
	}
	return prevOffset - int(s.slotOffset(i))
}

// GetEntry returns a copy of slot i's bytes.
func (s *Slotted) GetEntry(i int) ([]byte, error) {
	n := s.Occupation()
	if i < 0 || i >= n {
		return nil, arberrors.Wrap(arberrors.ErrOutOfBounds, "slot %d out of %d entries", i, n)
	}
	off := int(s.slotOffset(i))
	sz := s.entrySize(i)
	out := make([]byte, sz)
	copy(out, s.p.Bytes()[off:off+sz])
	return out, nil
}

// RemoveEntry deletes slot i, compacting the object heap and directory so no
// hole is left behind.
func (s *Slotted) RemoveEntry(i int) error {
	n := s.Occupation()
	if i < 0 || i >= n {
		return arberrors.Wrap(arberrors.ErrOutOfBounds, "slot %d out of %d entries", i, n)
	}
	last := n - 1
	if i == last {
		s.setOccupation(last)
		return nil
	}

	removedSize := s.entrySize(i)
	removedOffset := int(s.slotOffset(i))
	regionLow := int(s.slotOffset(last)) // offset of the last (lowest-address) live object
	regionHigh := removedOffset          // exclusive upper bound of the region to shift

	// Move the packed-object region [regionLow, regionHigh) up by
	// removedSize bytes, closing the hole left by the removed entry. This
	// is an overlapping move (destination overlaps source), so it must use
	// memmove semantics; Go's copy() on a shared backing array already
	// guarantees this.
	buf := s.p.Bytes()
	copy(buf[regionLow+removedSize:regionHigh+removedSize], buf[regionLow:regionHigh])
	// Zero the now-unused tail made free by the compaction so stale bytes
	// never leak into a later, shorter entry occupying the same offset.
	for k := regionLow; k < regionLow+removedSize; k++ {
		buf[k] = 0
	}

	// Shift directory slots i+1..last down by one, bumping each shifted
	// offset by removedSize since the data they point at just moved up.
	for k := i + 1; k <= last; k++ {
		s.setSlotOffset(k-1, s.slotOffset(k)+uint32(removedSize))
	}
	s.setSlotOffset(last, 0)
	s.setOccupation(last)
	return nil
}
