// Package pagemgr implements the lifecycle of pages (allocate, fetch,
// release, dispose, header page) plus read/write
// statistics, behind a single PageManager contract with an in-memory and a
// plain-disk implementation.
//
// This generalizes a single os.File of back-to-back fixed pages, grown by
// always appending, into a manager that also recycles disposed page ids via
// a free stack, persists that stack in the header page, and keeps a
// bounded LRU of recently used pages for the disk variant, rather than
// reading every page off disk on every lookup — necessary to keep live
// pages per operation bounded by tree height rather than tree size.
package pagemgr

import (
	"github.com/arboretum-go/arboretum/page"
)

// HeaderID is the reserved id of the header page.
const HeaderID page.ID = 0

// Stats are the page manager's read/write counters; tree.go keeps its own
// per-level counters on top of these.
type Stats struct {
	Reads  uint64
	Writes uint64
}

// PageManager is the contract every storage substrate backing a tree must
// satisfy.
type PageManager interface {
	// GetHeader returns the page with id 0, creating it lazily on first
	// access.
	GetHeader() (*page.Page, error)

	// Get returns the page with the given id, or ErrInvalidID if id was
	// never allocated (or has since been disposed).
	Get(id page.ID) (*page.Page, error)

	// Release signals the manager that the caller is done with page for
	// now; the manager may evict or flush it, but need not persist until
	// Write is called explicitly.
	Release(p *page.Page)

	// Write durably stores p. A no-op for the in-memory manager.
	Write(p *page.Page) error

	// Allocate returns a fresh page: a recycled id popped off the free
	// stack if one is available, otherwise a new monotonically increasing
	// id.
	Allocate() (*page.Page, error)

	// Dispose pushes p's id onto the free stack for future reuse by
	// Allocate. p's content is not guaranteed to survive.
	Dispose(p *page.Page) error

	// IsEmpty reports whether the manager holds fewer than two live pages,
	// counting the header page. A tree with only its root page therefore
	// reads as empty by this predicate.
	IsEmpty() bool

	// Stats returns a snapshot of the read/write counters.
	Stats() Stats

	// ResetStats zeroes the read/write counters.
	ResetStats()

	// PageSize reports the fixed page size this manager was constructed
	// with.
	PageSize() int

	// Close releases any underlying resources (file handles, etc). A
	// no-op for the in-memory manager.
	Close() error
}
