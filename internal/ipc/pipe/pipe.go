// Package pipe implements a bounded unidirectional byte stream between a
// writer end and a reader end. Unlike the record-granular fifo, a pipe has
// no element framing: reads and writes move arbitrary byte counts, bounded
// by the ring capacity. Both operations are non-blocking and report
// object.ErrShouldWait instead of stalling.
package pipe

import (
	"sync"

	"github.com/happy-forks/ipcd/internal/object"
)

// DefaultCapacity is used when Create is given a zero capacity.
const DefaultCapacity = 64 * 1024

// MaxCapacity caps a single pipe allocation.
const MaxCapacity = 16 * 1024 * 1024

// shared is the ring shared by the two ends. head indexes the oldest unread
// byte; count is the number of buffered bytes.
type shared struct {
	mu           sync.Mutex
	buf          []byte
	head         int
	count        int
	readerClosed bool
	writerClosed bool
}

// Writer is the producing end of a pipe.
type Writer struct {
	mu     sync.Mutex
	s      *shared
	closed bool
}

// Reader is the consuming end of a pipe.
type Reader struct {
	mu     sync.Mutex
	s      *shared
	closed bool
}

// Create allocates a pipe with the given byte capacity and returns its two
// ends. A zero capacity selects DefaultCapacity.
func Create(capacity uint32) (*Reader, *Writer, error) {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity > MaxCapacity {
		return nil, nil, object.ErrResourceExhausted
	}
	s := &shared{buf: make([]byte, capacity)}
	return &Reader{s: s}, &Writer{s: s}, nil
}

// Capacity returns the ring size in bytes.
func (w *Writer) Capacity() uint32 { return uint32(len(w.s.buf)) }

// Capacity returns the ring size in bytes.
func (r *Reader) Capacity() uint32 { return uint32(len(r.s.buf)) }

// Write stores up to len(p) bytes, truncating to the free space, and returns
// the count stored. Fails with object.ErrShouldWait when the ring is full
// and object.ErrPeerClosed once the reader has gone away.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return 0, object.ErrBadHandle
	}
	w.mu.Unlock()

	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readerClosed {
		return 0, object.ErrPeerClosed
	}
	free := len(s.buf) - s.count
	if free == 0 {
		return 0, object.ErrShouldWait
	}

	n := len(p)
	if n > free {
		n = free
	}

	// Two-chunk copy across the wrap point.
	tail := (s.head + s.count) % len(s.buf)
	first := len(s.buf) - tail
	if first > n {
		first = n
	}
	copy(s.buf[tail:], p[:first])
	copy(s.buf, p[first:n])
	s.count += n
	return n, nil
}

// Close releases the writer end. Idempotent. Buffered bytes remain readable;
// once drained the reader observes object.ErrPeerClosed.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.s.mu.Lock()
	w.s.writerClosed = true
	w.s.mu.Unlock()
	return nil
}

// Read drains up to len(p) buffered bytes into p and returns the count.
// Fails with object.ErrShouldWait when the ring is empty while the writer is
// still open, and object.ErrPeerClosed once the writer has closed and the
// ring is drained.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, object.ErrBadHandle
	}
	r.mu.Unlock()

	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		if s.writerClosed {
			return 0, object.ErrPeerClosed
		}
		return 0, object.ErrShouldWait
	}

	n := len(p)
	if n > s.count {
		n = s.count
	}
	first := len(s.buf) - s.head
	if first > n {
		first = n
	}
	copy(p[:first], s.buf[s.head:])
	copy(p[first:n], s.buf)
	s.head = (s.head + n) % len(s.buf)
	s.count -= n
	return n, nil
}

// Buffered returns the number of unread bytes in the ring.
func (r *Reader) Buffered() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.count
}

// Close releases the reader end. Idempotent. Subsequent writes fail with
// object.ErrPeerClosed.
func (r *Reader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.s.mu.Lock()
	r.s.readerClosed = true
	r.s.mu.Unlock()
	return nil
}
