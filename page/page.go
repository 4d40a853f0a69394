// Package page implements a fixed-size byte buffer identified by an
// integer page id, with bounds-checked writes, full clear,
// full copy, and a lockable variant that reserves a prefix for a wrapping
// manager's own bookkeeping bytes.
//
// This generalizes a fixed [PayloadSize]byte array plus a checksum header
// into a page of caller-chosen size with no baked-in header: Arboretum's
// node and page-manager layers own their own header bytes within the page,
// rather than Page reserving fixed fields for id/checksum/size.
package page

import "github.com/arboretum-go/arboretum/arberrors"

// ID identifies a page within a PageManager. Page 0 is always the header
// page.
type ID uint64

// InvalidID is the all-ones page id, outside the range any page manager in
// this module allocates. No operation returns it; failed lookups and
// allocations are reported through an error.
const InvalidID ID = ^ID(0)

// Page is a fixed-size byte buffer with an id. Page does not know whether it
// holds a node, a header, or raw bytes; that interpretation belongs to the
// node package.
type Page struct {
	id   ID
	buf  []byte
	size int
}

// New allocates a zero-filled page of the given size and id.
func New(id ID, size int) *Page {
	return &Page{id: id, buf: make([]byte, size), size: size}
}

// ID returns the page's identifier.
func (p *Page) ID() ID { return p.id }

// SetID reassigns the page's identifier; used when a page manager recycles
// a disposed page's backing buffer under a new id.
func (p *Page) SetID(id ID) { p.id = id }

// Size reports the page's byte capacity.
func (p *Page) Size() int { return p.size }

// Bytes exposes the full backing buffer. Callers that mutate the returned
// slice mutate the page directly, keeping the node layer's byte-packing
// code zero-copy.
func (p *Page) Bytes() []byte { return p.buf }

// WriteAt copies b into the page starting at offset, bounds-checked against
// the page size.
func (p *Page) WriteAt(offset int, b []byte) error {
	if offset < 0 || offset+len(b) > p.size {
		return arberrors.Wrap(arberrors.ErrOutOfBounds, "page %d: write at %d len %d exceeds size %d", p.id, offset, len(b), p.size)
	}
	copy(p.buf[offset:], b)
	return nil
}

// ReadAt returns a copy of n bytes starting at offset, bounds-checked.
func (p *Page) ReadAt(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > p.size {
		return nil, arberrors.Wrap(arberrors.ErrOutOfBounds, "page %d: read at %d len %d exceeds size %d", p.id, offset, n, p.size)
	}
	out := make([]byte, n)
	copy(out, p.buf[offset:offset+n])
	return out, nil
}

// Clear zero-fills the entire page.
func (p *Page) Clear() {
	for i := range p.buf {
		p.buf[i] = 0
	}
}

// CopyFrom overwrites this page's bytes with src's. Both pages must share
// the same size.
func (p *Page) CopyFrom(src *Page) error {
	if src.size != p.size {
		return arberrors.Wrap(arberrors.ErrInvalidArgument, "page %d: copy from page %d of different size (%d != %d)", p.id, src.id, src.size, p.size)
	}
	copy(p.buf, src.buf)
	return nil
}

// Lockable is a page view that reserves a fixed-size prefix of Lock bytes
// for a wrapping manager's own bookkeeping (e.g. a dirty flag or pin count)
// that is not visible through the public Size/WriteAt/ReadAt surface. Offset
// 0 of the public view maps to byte Lock of the underlying page.
type Lockable struct {
	inner *Page
	lock  int
}

// NewLockable wraps an existing page, reserving the first lock bytes as a
// private prefix.
func NewLockable(inner *Page, lock int) *Lockable {
	return &Lockable{inner: inner, lock: lock}
}

// ID returns the underlying page's identifier.
func (l *Lockable) ID() ID { return l.inner.ID() }

// Size reports the visible size: the underlying page's size minus the
// reserved prefix.
func (l *Lockable) Size() int { return l.inner.Size() - l.lock }

// Prefix returns the reserved bookkeeping bytes, not visible to WriteAt and
// ReadAt callers.
func (l *Lockable) Prefix() []byte { return l.inner.buf[:l.lock] }

// WriteAt writes into the visible region, offsets relative to the prefix
// end.
func (l *Lockable) WriteAt(offset int, b []byte) error {
	return l.inner.WriteAt(offset+l.lock, b)
}

// ReadAt reads from the visible region, offsets relative to the prefix end.
func (l *Lockable) ReadAt(offset, n int) ([]byte, error) {
	return l.inner.ReadAt(offset+l.lock, n)
}

// Clear zero-fills only the visible region, leaving the reserved prefix
// untouched.
func (l *Lockable) Clear() {
	for i := l.lock; i < len(l.inner.buf); i++ {
		l.inner.buf[i] = 0
	}
}

// Bytes exposes the visible region only.
func (l *Lockable) Bytes() []byte { return l.inner.buf[l.lock:] }
