// Package logmgr is the write-ahead log: an append-only in-memory
// buffer, a background thread that swaps and flushes it to disk, and
// the bookkeeping around a persistent LSN watermark that tells the
// rest of the engine how far the log has actually made it to disk.
package logmgr

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"storagecore/pkg/errs"
	"storagecore/pkg/primitives"
)

// Manager owns one on-disk log file and the double-buffered append
// path in front of it.
type Manager struct {
	mu       sync.Mutex
	appendMu sync.Mutex
	cond     *sync.Cond
	flushed  *sync.Cond

	logBuffer     []byte
	flushBuffer   []byte
	logSize       int
	flushSize     int
	bufferCap     int

	nextLSN       int64
	persistentLSN int64

	flushOn bool
	wg      sync.WaitGroup

	file    *os.File
	timeout time.Duration
}

// New opens (creating if absent) the log file at path and prepares a
// manager with the given buffer capacity and flush timeout. The flush
// thread is not started until RunFlushThread is called.
func New(path string, bufferCap int, timeout time.Duration) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errs.Wrap(err, "LOG_OPEN_FAILED", "New", "logmgr.Manager")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, errs.Wrap(err, "LOG_LOCK_FAILED", "New", "logmgr.Manager")
	}

	m := &Manager{
		logBuffer:     make([]byte, bufferCap),
		flushBuffer:   make([]byte, bufferCap),
		bufferCap:     bufferCap,
		persistentLSN: int64(primitives.InvalidLSN),
		file:          f,
		timeout:       timeout,
	}
	m.cond = sync.NewCond(&m.mu)
	m.flushed = sync.NewCond(&m.mu)
	return m, nil
}

// RunFlushThread starts the background flusher, if not already
// running.
func (m *Manager) RunFlushThread() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flushOn {
		return
	}
	m.flushOn = true
	m.wg.Add(1)
	go m.backgroundFsync()
}

// StopFlushThread signals the background flusher to drain and exit,
// blocking until it has.
func (m *Manager) StopFlushThread() {
	m.mu.Lock()
	if !m.flushOn {
		m.mu.Unlock()
		return
	}
	m.flushOn = false
	m.mu.Unlock()

	m.TriggerFlush() // wake it promptly rather than waiting out the timeout
	m.wg.Wait()
}

// Close stops the flush thread, if it is running (it flushes whatever
// remains before exiting), and closes the underlying file. Records
// appended while the flush thread never ran are not written.
func (m *Manager) Close() error {
	m.StopFlushThread()
	return m.file.Close()
}

// backgroundFsync is the flush thread body: wait for buffered bytes
// (or a timeout), swap buffers, write and fsync, then publish the new
// persistent LSN.
func (m *Manager) backgroundFsync() {
	defer m.wg.Done()
	for {
		m.mu.Lock()
		for m.logSize < 1 && m.flushOn {
			m.waitWithTimeout()
		}
		if !m.flushOn && m.logSize == 0 {
			m.mu.Unlock()
			return
		}

		m.logBuffer, m.flushBuffer = m.flushBuffer, m.logBuffer
		m.flushSize = m.logSize
		m.logSize = 0
		currentLSN := m.nextLSN - 1
		m.mu.Unlock()

		if _, err := m.file.Write(m.flushBuffer[:m.flushSize]); err == nil {
			unix.Fsync(int(m.file.Fd()))
		}

		m.mu.Lock()
		m.flushSize = 0
		m.persistentLSN = currentLSN
		m.flushed.Broadcast()
		m.mu.Unlock()
	}
}

// waitWithTimeout blocks on cond until either TriggerFlush wakes it or
// m.timeout elapses. Caller must hold m.mu.
func (m *Manager) waitWithTimeout() {
	timer := time.AfterFunc(m.timeout, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	m.cond.Wait()
	timer.Stop()
}

// TriggerFlush wakes the background flusher immediately instead of
// waiting for its timeout.
func (m *Manager) TriggerFlush() {
	m.mu.Lock()
	m.cond.Broadcast()
	m.mu.Unlock()
}

// waitUntilFlushed blocks until the in-flight flush buffer has drained
// to disk.
func (m *Manager) waitUntilFlushed() {
	for m.flushSize != 0 {
		m.flushed.Wait()
	}
}

// AppendLogRecord assigns rec an LSN and copies its serialized bytes
// into the buffer, triggering and waiting out a flush first if there
// isn't room.
func (m *Manager) AppendLogRecord(rec *Record) primitives.LSN {
	m.appendMu.Lock()
	defer m.appendMu.Unlock()

	m.mu.Lock()
	size := rec.size()
	if m.logSize+size > m.bufferCap {
		m.mu.Unlock()
		m.TriggerFlush()
		m.mu.Lock()
		m.waitUntilFlushed()
	}

	rec.LSN = primitives.LSN(m.nextLSN)
	m.nextLSN++
	encoded := rec.serialize()
	copy(m.logBuffer[m.logSize:], encoded)
	m.logSize += len(encoded)
	lsn := rec.LSN
	m.mu.Unlock()
	return lsn
}

// PersistentLSN returns the highest LSN known to be durable on disk.
func (m *Manager) PersistentLSN() primitives.LSN {
	m.mu.Lock()
	defer m.mu.Unlock()
	return primitives.LSN(m.persistentLSN)
}
