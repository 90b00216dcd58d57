// Package shm implements fixed-size shared memory segments with
// bounds-checked offset reads and writes.
package shm

import (
	"sync"

	"github.com/happy-forks/ipcd/internal/object"
)

// MaxSegmentSize caps a single segment allocation at 100MB.
const MaxSegmentSize = 100 * 1024 * 1024

// Segment is a fixed-size byte region shared by whoever holds a reference
// to it. Reads and writes are atomic with respect to each other.
type Segment struct {
	mu     sync.RWMutex
	buf    []byte
	closed bool
}

// Create allocates a segment of the given size.
func Create(size uint32) (*Segment, error) {
	if size == 0 {
		return nil, object.ErrInvalidArgument
	}
	if size > MaxSegmentSize {
		return nil, object.ErrResourceExhausted
	}
	return &Segment{buf: make([]byte, size)}, nil
}

// Size returns the segment size in bytes.
func (s *Segment) Size() uint32 {
	return uint32(len(s.buf))
}

// WriteAt copies data into the segment at the given offset. Fails with
// object.ErrOutOfRange if the write would run past the end.
func (s *Segment) WriteAt(offset uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return object.ErrBadHandle
	}
	if uint64(offset)+uint64(len(data)) > uint64(len(s.buf)) {
		return object.ErrOutOfRange
	}
	copy(s.buf[offset:], data)
	return nil
}

// ReadAt returns a copy of size bytes starting at offset. Fails with
// object.ErrOutOfRange if the read would run past the end.
func (s *Segment) ReadAt(offset, size uint32) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, object.ErrBadHandle
	}
	if uint64(offset)+uint64(size) > uint64(len(s.buf)) {
		return nil, object.ErrOutOfRange
	}
	out := make([]byte, size)
	copy(out, s.buf[offset:])
	return out, nil
}

// Close releases the segment. Idempotent.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
