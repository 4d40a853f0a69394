package pagemgr

import (
	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/page"
)

// Memory is the in-memory PageManager: a growable slice of pages plus an
// integer stack of free ids. Nothing is ever written to disk; Write is a
// no-op kept only to satisfy the contract.
type Memory struct {
	pageSize int
	pages    []*page.Page // index i holds the page with id i, or nil if disposed/unallocated
	free     []page.ID    // stack of ids available for reuse
	live     int          // count of non-nil entries in pages, including the header once created
	stats    Stats
}

// NewMemory constructs an empty in-memory page manager for pages of the
// given size. The header page is not created until first accessed via
// GetHeader, per the contract.
func NewMemory(pageSize int) *Memory {
	return &Memory{pageSize: pageSize}
}

func (m *Memory) PageSize() int { return m.pageSize }

func (m *Memory) GetHeader() (*page.Page, error) {
	if int(HeaderID) < len(m.pages) && m.pages[HeaderID] != nil {
		m.stats.Reads++
		return m.pages[HeaderID], nil
	}
	p := page.New(HeaderID, m.pageSize)
	m.setSlot(HeaderID, p)
	m.stats.Writes++
	return p, nil
}

func (m *Memory) setSlot(id page.ID, p *page.Page) {
	for page.ID(len(m.pages)) <= id {
		m.pages = append(m.pages, nil)
	}
	if m.pages[id] == nil {
		m.live++
	}
	m.pages[id] = p
}

func (m *Memory) Get(id page.ID) (*page.Page, error) {
	if int(id) >= len(m.pages) || m.pages[id] == nil {
		return nil, arberrors.Wrap(arberrors.ErrInvalidID, "memory manager: page %d not allocated", id)
	}
	m.stats.Reads++
	return m.pages[id], nil
}

func (m *Memory) Release(p *page.Page) {
	// Nothing to evict: everything lives in memory for the lifetime of the
	// manager.
}

func (m *Memory) Write(p *page.Page) error {
	m.stats.Writes++
	return nil
}

func (m *Memory) Allocate() (*page.Page, error) {
	var id page.ID
	if n := len(m.free); n > 0 {
		id = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		id = page.ID(len(m.pages))
		// id 0 is reserved for the header; skip it if nothing has claimed it
		// yet so data pages never collide with GetHeader's lazily created
		// page.
		if id == HeaderID {
			id = page.ID(len(m.pages)) + 1
		}
	}
	p := page.New(id, m.pageSize)
	m.setSlot(id, p)
	m.stats.Writes++
	return p, nil
}

func (m *Memory) Dispose(p *page.Page) error {
	id := p.ID()
	if int(id) >= len(m.pages) || m.pages[id] == nil {
		return arberrors.Wrap(arberrors.ErrInvalidID, "memory manager: dispose of unallocated page %d", id)
	}
	m.pages[id] = nil
	m.live--
	m.free = append(m.free, id)
	return nil
}

// IsEmpty returns true when the manager holds fewer than two live pages,
// including the header. Faithfully replicates the original's quirky
// predicate: a tree whose only page is its root reads as empty.
func (m *Memory) IsEmpty() bool {
	return m.live < 2
}

func (m *Memory) Stats() Stats { return m.stats }

func (m *Memory) ResetStats() { m.stats = Stats{} }

func (m *Memory) Close() error { return nil }

// nextID is exposed for tests that want to assert id-conservation without
// reaching into unexported fields.
func (m *Memory) nextID() page.ID { return page.ID(len(m.pages)) }
