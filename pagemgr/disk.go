package pagemgr

import (
	"encoding/binary"
	"os"

	"github.com/arboretum-go/arboretum/arberrors"
	"github.com/arboretum-go/arboretum/page"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// On-disk header page layout (all fields little-endian). The page manager
// owns the prefix; the tree package owns a fixed-size reserved region at the
// tail of the page so the two can share page 0 without colliding.
//
//	[0:4)   magic "ARBT"
//	[4:6)   format version
//	[6:10)  page size
//	[10:18) next never-allocated id
//	[18:22) free-stack count
//	[22:..) free-stack entries, 8 bytes each, up to freeListCapacity
//	[pageSize-TreeMetadataSize : pageSize) reserved for tree.go's own header fields
const (
	magicDiskHeader  = "ARBT"
	diskHeaderVer    = uint16(1)
	diskHdrMagicOff  = 0
	diskHdrVerOff    = 4
	diskHdrPageSzOff = 6
	diskHdrNextIDOff = 10
	diskHdrFreeCnt   = 18
	diskHdrFreeList  = 22

	// TreeMetadataSize is the number of bytes at the tail of the header page
	// reserved for the tree package's own metadata (root id, height, object
	// count, node count). Exported so tree.go can compute its offsets
	// without duplicating the constant. Kept small deliberately: it bounds
	// the smallest usable page size (tests use header pages as small as
	// 96 bytes to force dummy-node chaining), and tree.go's header only
	// needs 28 bytes today.
	TreeMetadataSize = 64
)

func freeListCapacity(pageSize int) int {
	n := (pageSize - diskHdrFreeList - TreeMetadataSize) / 8
	if n < 0 {
		return 0
	}
	return n
}

// cacheEntry is one slot of the disk manager's bounded LRU.
type cacheEntry struct {
	p     *page.Page
	dirty bool
}

// Disk is the plain-disk PageManager: a file of fixed-size blocks with an
// in-memory LRU cache of a small number of recently used pages. Unlike a
// heap file that always scans from page 0 looking for free space and
// re-reads every page from disk on every Get, Disk keeps a per-id cache and
// a free-id stack persisted into the header page, so reopening a store
// preserves recyclability and repeated access to hot pages avoids I/O.
type Disk struct {
	f        *os.File
	pageSize int
	cacheCap int

	// LRU cache: order holds ids from least- to most-recently-used; cache
	// maps id to its entry.
	cache map[page.ID]*cacheEntry
	order []page.ID

	nextID page.ID
	free   []page.ID

	headerLoaded bool
	stats        Stats
	log          *zap.Logger
}

// OpenDisk opens (creating if necessary) a plain-disk page manager backed by
// path. cacheSize <= 0 selects config.DefaultDiskCacheSize.
func OpenDisk(path string, pageSize, cacheSize int, log *zap.Logger) (*Disk, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, errWrap(err, "open disk store %q", path)
	}
	if cacheSize <= 0 {
		cacheSize = 16
	}
	d := &Disk{
		f:        f,
		pageSize: pageSize,
		cacheCap: cacheSize,
		cache:    make(map[page.ID]*cacheEntry),
		nextID:   1, // id 0 is the header
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errWrap(err, "stat disk store %q", path)
	}
	if st.Size() > 0 {
		if err := d.loadHeader(); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	log.Info("opened disk page manager",
		zap.String("path", path),
		zap.Int("pageSize", pageSize),
		zap.String("fileSize", humanize.Bytes(uint64(st.Size()))),
	)
	d.log = log
	return d, nil
}

func errWrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return arberrors.Wrap(err, format, args...)
}

func (d *Disk) PageSize() int { return d.pageSize }

func pageOffset(id page.ID, pageSize int) int64 { return int64(id) * int64(pageSize) }

func (d *Disk) loadHeader() error {
	buf := make([]byte, d.pageSize)
	if _, err := d.f.ReadAt(buf, 0); err != nil {
		return errWrap(err, "read header page")
	}
	if string(buf[diskHdrMagicOff:diskHdrMagicOff+4]) != magicDiskHeader {
		return arberrors.Wrap(arberrors.ErrInvalidStore, "header magic mismatch")
	}
	if binary.LittleEndian.Uint16(buf[diskHdrVerOff:diskHdrVerOff+2]) != diskHeaderVer {
		return arberrors.Wrap(arberrors.ErrCorruptStore, "header version mismatch")
	}
	onDiskPageSize := int(binary.LittleEndian.Uint32(buf[diskHdrPageSzOff : diskHdrPageSzOff+4]))
	if onDiskPageSize != d.pageSize {
		return arberrors.Wrap(arberrors.ErrCorruptStore, "page size mismatch: store has %d, opened with %d", onDiskPageSize, d.pageSize)
	}
	d.nextID = page.ID(binary.LittleEndian.Uint64(buf[diskHdrNextIDOff : diskHdrNextIDOff+8]))
	cnt := binary.LittleEndian.Uint32(buf[diskHdrFreeCnt : diskHdrFreeCnt+4])
	d.free = make([]page.ID, 0, cnt)
	off := diskHdrFreeList
	for i := uint32(0); i < cnt; i++ {
		d.free = append(d.free, page.ID(binary.LittleEndian.Uint64(buf[off:off+8])))
		off += 8
	}
	d.headerLoaded = true
	return nil
}

// headerBytes renders the pagemgr-owned prefix of the header page,
// preserving whatever the tree package has written into the reserved tail.
func (d *Disk) headerBytes(existingTail []byte) []byte {
	buf := make([]byte, d.pageSize)
	copy(buf[0:4], magicDiskHeader)
	binary.LittleEndian.PutUint16(buf[diskHdrVerOff:], diskHeaderVer)
	binary.LittleEndian.PutUint32(buf[diskHdrPageSzOff:], uint32(d.pageSize))
	binary.LittleEndian.PutUint64(buf[diskHdrNextIDOff:], uint64(d.nextID))

	cap := freeListCapacity(d.pageSize)
	n := len(d.free)
	if n > cap {
		// Persisting more free ids than fit is a capacity problem, not a
		// correctness one: the oldest disposals are simply not recyclable
		// across a close/reopen cycle. Keep the most recently disposed.
		n = cap
	}
	binary.LittleEndian.PutUint32(buf[diskHdrFreeCnt:], uint32(n))
	off := diskHdrFreeList
	for _, id := range d.free[len(d.free)-n:] {
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(id))
		off += 8
	}
	if existingTail != nil {
		copy(buf[d.pageSize-TreeMetadataSize:], existingTail)
	}
	return buf
}

func (d *Disk) flushHeader() error {
	var tail []byte
	if hdr, ok := d.cache[HeaderID]; ok {
		tail = append([]byte(nil), hdr.p.Bytes()[d.pageSize-TreeMetadataSize:]...)
	} else if d.headerLoaded || d.nextID > 1 {
		existing := make([]byte, d.pageSize)
		if _, err := d.f.ReadAt(existing, 0); err == nil {
			tail = existing[d.pageSize-TreeMetadataSize:]
		}
	}
	buf := d.headerBytes(tail)
	if _, err := d.f.WriteAt(buf, 0); err != nil {
		return errWrap(err, "write header page")
	}
	return d.f.Sync()
}

func (d *Disk) GetHeader() (*page.Page, error) {
	return d.fetch(HeaderID, true)
}

func (d *Disk) Get(id page.ID) (*page.Page, error) {
	return d.fetch(id, false)
}

func (d *Disk) fetch(id page.ID, isHeader bool) (*page.Page, error) {
	if e, ok := d.cache[id]; ok {
		d.touch(id)
		d.stats.Reads++
		return e.p, nil
	}
	if !isHeader && (id == HeaderID || id >= d.nextID) {
		return nil, arberrors.Wrap(arberrors.ErrInvalidID, "disk manager: page %d not allocated", id)
	}
	for _, f := range d.free {
		if !isHeader && f == id {
			return nil, arberrors.Wrap(arberrors.ErrInvalidID, "disk manager: page %d has been disposed", id)
		}
	}
	buf := make([]byte, d.pageSize)
	n, err := d.f.ReadAt(buf, pageOffset(id, d.pageSize))
	if err != nil && n == 0 {
		if isHeader {
			// Brand new store: header page does not exist on disk yet.
			p := page.New(id, d.pageSize)
			d.insertCache(id, p, true)
			d.stats.Writes++
			return p, nil
		}
		return nil, errWrap(err, "read page %d", id)
	}
	p := page.New(id, d.pageSize)
	_ = p.WriteAt(0, buf)
	d.insertCache(id, p, false)
	d.stats.Reads++
	return p, nil
}

func (d *Disk) touch(id page.ID) {
	for i, x := range d.order {
		if x == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.order = append(d.order, id)
}

func (d *Disk) insertCache(id page.ID, p *page.Page, dirty bool) {
	d.cache[id] = &cacheEntry{p: p, dirty: dirty}
	d.touch(id)
	d.evictIfNeeded()
}

func (d *Disk) evictIfNeeded() {
	for len(d.cache) > d.cacheCap && len(d.order) > 0 {
		victim := d.order[0]
		if victim == HeaderID {
			// Keep the header pinned; try the next LRU candidate instead.
			if len(d.order) == 1 {
				return
			}
			d.order = append(d.order[:0], d.order[1:]...)
			d.order = append(d.order, victim)
			continue
		}
		d.order = d.order[1:]
		e := d.cache[victim]
		if e.dirty {
			_ = d.flushPage(victim, e.p)
		}
		delete(d.cache, victim)
	}
}

func (d *Disk) flushPage(id page.ID, p *page.Page) error {
	if id == HeaderID {
		return d.flushHeader()
	}
	if _, err := d.f.WriteAt(p.Bytes(), pageOffset(id, d.pageSize)); err != nil {
		return errWrap(err, "write page %d", id)
	}
	d.stats.Writes++
	return nil
}

func (d *Disk) Release(p *page.Page) {
	// The cache's own LRU eviction is the only thing that forces pages out;
	// Release is a hint, not an obligation, per the contract.
}

func (d *Disk) Write(p *page.Page) error {
	id := p.ID()
	if e, ok := d.cache[id]; ok {
		e.dirty = true
		e.p = p
	} else {
		d.insertCache(id, p, true)
	}
	return d.flushPage(id, p)
}

func (d *Disk) Allocate() (*page.Page, error) {
	var id page.ID
	if n := len(d.free); n > 0 {
		id = d.free[n-1]
		d.free = d.free[:n-1]
	} else {
		id = d.nextID
		d.nextID++
	}
	p := page.New(id, d.pageSize)
	d.insertCache(id, p, true)
	if err := d.flushHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (d *Disk) Dispose(p *page.Page) error {
	id := p.ID()
	delete(d.cache, id)
	for i, x := range d.order {
		if x == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.free = append(d.free, id)
	return d.flushHeader()
}

// IsEmpty returns true when fewer than two pages are live (ids handed out,
// the header counting as one, minus ids on the free stack), replicating
// the in-memory manager's quirk for API parity between the two
// PageManager implementations.
func (d *Disk) IsEmpty() bool {
	return int(d.nextID)-len(d.free) < 2
}

func (d *Disk) Stats() Stats { return d.stats }

func (d *Disk) ResetStats() { d.stats = Stats{} }

func (d *Disk) Close() error {
	for id, e := range d.cache {
		if e.dirty {
			if err := d.flushPage(id, e.p); err != nil {
				return err
			}
		}
	}
	return d.f.Close()
}
