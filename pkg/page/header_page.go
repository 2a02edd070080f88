package page

import (
	"encoding/binary"
	"sync"

	"storagecore/pkg/primitives"
)

// HeaderPage maps an index name to its root page id, persisted
// whenever root_page_id_ changes. It lives in whichever page it is
// given. The wire format beyond "maps name to root page id" is left
// minimal: records are simply length-prefixed (nameLen uint16, name
// bytes, pageID int32), packed into the backing page's Data on every
// InsertRecord/UpdateRecord.
type HeaderPage struct {
	mu      sync.RWMutex
	backing *Page
	records map[string]primitives.PageID
}

// NewHeaderPage wraps backing, a pinned page, as the header page.
func NewHeaderPage(backing *Page) *HeaderPage {
	return &HeaderPage{
		backing: backing,
		records: make(map[string]primitives.PageID),
	}
}

// InsertRecord adds a new index_name -> root_page_id mapping.
func (h *HeaderPage) InsertRecord(name string, pageID primitives.PageID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[name] = pageID
	h.flushLocked()
}

// UpdateRecord overwrites an existing mapping, inserting it if absent.
func (h *HeaderPage) UpdateRecord(name string, pageID primitives.PageID) {
	h.InsertRecord(name, pageID)
}

// GetRootPageID looks up the root page id for an index name.
func (h *HeaderPage) GetRootPageID(name string) (primitives.PageID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.records[name]
	return id, ok
}

// flushLocked serializes records into the backing page and marks it
// dirty. Caller must hold h.mu.
func (h *HeaderPage) flushLocked() {
	buf := h.backing.Data[:0:Size]
	for name, pageID := range h.records {
		entry := make([]byte, 0, 2+len(name)+4)
		var nameLen [2]byte
		binary.BigEndian.PutUint16(nameLen[:], uint16(len(name)))
		entry = append(entry, nameLen[:]...)
		entry = append(entry, name...)
		var idBytes [4]byte
		binary.BigEndian.PutUint32(idBytes[:], uint32(int32(pageID)))
		entry = append(entry, idBytes[:]...)

		if len(buf)+len(entry) > Size {
			break // page full; out of scope to spill to an overflow page
		}
		buf = append(buf, entry...)
	}
	h.backing.SetDirty(true)
}
