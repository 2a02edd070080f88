// Package primitives holds the small value types every other package
// in this module shares: page ids, log sequence numbers, and the
// record identifier used as the lock table's key.
package primitives

import "fmt"

// PageID identifies a fixed-size page. INVALID_PAGE_ID (-1) denotes
// "no page"; HEADER_PAGE_ID (0) is the page that maps index names to
// their root page id.
type PageID int32

const (
	InvalidPageID PageID = -1
	HeaderPageID  PageID = 0
)

func (p PageID) IsValid() bool {
	return p != InvalidPageID
}

func (p PageID) String() string {
	if p == InvalidPageID {
		return "PageID(invalid)"
	}
	return fmt.Sprintf("PageID(%d)", int32(p))
}

// LSN is a monotonic log sequence number. INVALID_LSN (-1) means "no
// prior record."
type LSN int64

const InvalidLSN LSN = -1

func (l LSN) String() string {
	if l == InvalidLSN {
		return "LSN(invalid)"
	}
	return fmt.Sprintf("LSN(%d)", int64(l))
}

// RID is the record identifier: a page id plus a slot number within
// that page. It is totally ordered (page id first, then slot; see
// Compare) and comparable, which is what makes it usable as the lock
// table's key.
type RID struct {
	Page PageID
	Slot uint32
}

func NewRID(page PageID, slot uint32) RID {
	return RID{Page: page, Slot: slot}
}

// Compare returns <0, 0, >0 comparing r to other, ordering first by
// page id (as a signed value) and then by slot. For non-negative page
// ids this is the order of their big-endian Bytes encoding.
func (r RID) Compare(other RID) int {
	if r.Page != other.Page {
		if r.Page < other.Page {
			return -1
		}
		return 1
	}
	switch {
	case r.Slot < other.Slot:
		return -1
	case r.Slot > other.Slot:
		return 1
	default:
		return 0
	}
}

func (r RID) String() string {
	return fmt.Sprintf("RID(page=%d,slot=%d)", int32(r.Page), r.Slot)
}

// Bytes renders the RID into an 8-byte big-endian buffer, used when a
// byte representation is required (e.g. as input to xxhash).
func (r RID) Bytes() [8]byte {
	var b [8]byte
	p := uint32(r.Page)
	b[0] = byte(p >> 24)
	b[1] = byte(p >> 16)
	b[2] = byte(p >> 8)
	b[3] = byte(p)
	b[4] = byte(r.Slot >> 24)
	b[5] = byte(r.Slot >> 16)
	b[6] = byte(r.Slot >> 8)
	b[7] = byte(r.Slot)
	return b
}
