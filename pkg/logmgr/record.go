package logmgr

import (
	"encoding/binary"

	"storagecore/pkg/primitives"
)

// RecordType distinguishes the handful of WAL record shapes this
// engine needs: transaction boundaries and tuple-level writes.
type RecordType uint8

const (
	Begin RecordType = iota
	Commit
	Abort
	Insert
	Delete
	Update
	NewPage
)

// HeaderSize is the fixed width of every record's header, independent
// of its payload: size(int32) + lsn(int64) + txnID(int32) + type(int32).
const HeaderSize = 4 + 8 + 4 + 4

// Record is a single WAL entry. Which of RID/Before/After/PageID are
// populated depends on Type.
type Record struct {
	LSN   primitives.LSN
	Type  RecordType
	TxnID int64

	// Insert: RID + After. Delete: RID + Before. Update: RID + Before + After.
	RID    primitives.RID
	Before []byte
	After  []byte

	// NewPage only.
	PageID primitives.PageID
}

func NewBeginRecord(txnID int64) *Record  { return &Record{Type: Begin, TxnID: txnID} }
func NewCommitRecord(txnID int64) *Record { return &Record{Type: Commit, TxnID: txnID} }
func NewAbortRecord(txnID int64) *Record  { return &Record{Type: Abort, TxnID: txnID} }

func NewInsertRecord(txnID int64, rid primitives.RID, after []byte) *Record {
	return &Record{Type: Insert, TxnID: txnID, RID: rid, After: after}
}

func NewDeleteRecord(txnID int64, rid primitives.RID, before []byte) *Record {
	return &Record{Type: Delete, TxnID: txnID, RID: rid, Before: before}
}

func NewUpdateRecord(txnID int64, rid primitives.RID, before, after []byte) *Record {
	return &Record{Type: Update, TxnID: txnID, RID: rid, Before: before, After: after}
}

func NewNewPageRecord(txnID int64, pageID primitives.PageID) *Record {
	return &Record{Type: NewPage, TxnID: txnID, PageID: pageID}
}

// size returns the total on-disk length of the record, header
// included. Needed before the record is assigned an LSN, so the
// manager can decide whether it fits the current buffer.
func (r *Record) size() int {
	n := HeaderSize
	switch r.Type {
	case Insert:
		n += 8 + 4 + len(r.After)
	case Delete:
		n += 8 + 4 + len(r.Before)
	case Update:
		n += 8 + 4 + len(r.Before) + 4 + len(r.After)
	case NewPage:
		n += 4
	}
	return n
}

// serialize encodes the record (header then payload) into a freshly
// allocated slice. The caller must have already assigned r.LSN.
func (r *Record) serialize() []byte {
	buf := make([]byte, r.size())
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.size()))
	binary.BigEndian.PutUint64(buf[4:12], uint64(r.LSN))
	binary.BigEndian.PutUint32(buf[12:16], uint32(r.TxnID))
	binary.BigEndian.PutUint32(buf[16:20], uint32(r.Type))

	pos := HeaderSize
	putRID := func(rid primitives.RID) {
		b := rid.Bytes()
		copy(buf[pos:], b[:])
		pos += 8
	}
	putBytes := func(b []byte) {
		binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(b)))
		pos += 4
		copy(buf[pos:], b)
		pos += len(b)
	}

	switch r.Type {
	case Insert:
		putRID(r.RID)
		putBytes(r.After)
	case Delete:
		putRID(r.RID)
		putBytes(r.Before)
	case Update:
		putRID(r.RID)
		putBytes(r.Before)
		putBytes(r.After)
	case NewPage:
		binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(int32(r.PageID)))
	}
	return buf
}

// DecodeHeader reads just the fixed header out of buf, for a reader
// scanning the log forward without having to know each record's
// payload shape up front.
func DecodeHeader(buf []byte) (size int, lsn primitives.LSN, txnID int64, typ RecordType) {
	size = int(binary.BigEndian.Uint32(buf[0:4]))
	lsn = primitives.LSN(binary.BigEndian.Uint64(buf[4:12]))
	txnID = int64(int32(binary.BigEndian.Uint32(buf[12:16])))
	typ = RecordType(binary.BigEndian.Uint32(buf[16:20]))
	return
}
