// Package fifo implements a bounded, fixed-element-size record queue created
// as a pair of connected endpoints. Writing on one endpoint enqueues whole
// records that the opposing endpoint reads; an endpoint never observes its
// own writes.
//
// Read and write never block. A full queue on write and an empty queue on
// read fail with object.ErrShouldWait so callers can layer their own polling
// or wait strategy (see the eventpair package) on top of a purely
// non-blocking primitive.
package fifo

import (
	"sync"

	"github.com/happy-forks/ipcd/internal/object"
)

// MaxBytes caps the per-direction allocation (elemCount * elemSize).
const MaxBytes = 4096

// Options configures fifo creation. Default is the only recognized value;
// the rest of the space is reserved for future flags.
type Options uint32

const Default Options = 0

// ring is one direction of the fifo: records written by a single endpoint
// and read by its peer.
type ring struct {
	buf   []byte
	head  int // record index of the oldest enqueued record
	count int // enqueued records, always in [0, elemCount]
}

// shared is the queue state referenced by both endpoints. All mutable state
// lives here; endpoints are stateless handles onto it. The mutex makes
// enqueue and dequeue atomic at record granularity: a reader never observes
// a partially applied write.
type shared struct {
	mu       sync.Mutex
	elemSize int
	capacity int // records per direction
	dirs     [2]ring
	closed   [2]bool
}

// Fifo is one of the two symmetric endpoints of a record queue.
type Fifo struct {
	mu     sync.Mutex
	s      *shared
	side   int
	closed bool
}

// Create allocates a queue holding elemCount records of elemSize bytes per
// direction and returns the two connected endpoints. Either both endpoints
// are produced or none are.
func Create(elemCount, elemSize uint32, opts Options) (*Fifo, *Fifo, error) {
	if elemCount == 0 || elemSize == 0 || opts != Default {
		return nil, nil, object.ErrInvalidArgument
	}
	total := uint64(elemCount) * uint64(elemSize)
	if total > MaxBytes {
		return nil, nil, object.ErrResourceExhausted
	}

	s := &shared{
		elemSize: int(elemSize),
		capacity: int(elemCount),
	}
	s.dirs[0].buf = make([]byte, total)
	s.dirs[1].buf = make([]byte, total)

	return &Fifo{s: s, side: 0}, &Fifo{s: s, side: 1}, nil
}

// ElementSize returns the fixed record size in bytes.
func (f *Fifo) ElementSize() uint32 { return uint32(f.s.elemSize) }

// Capacity returns the queue capacity in records.
func (f *Fifo) Capacity() uint32 { return uint32(f.s.capacity) }

// Write enqueues as many whole records from p as fit in the remaining
// capacity and returns the count actually enqueued. Records beyond the free
// space and any trailing partial record are silently dropped; truncation is
// a documented success case, not an error.
//
// Fails with object.ErrOutOfRange if p is shorter than one record, and with
// object.ErrShouldWait if the queue has zero free capacity at call time.
func (f *Fifo) Write(p []byte) (uint32, error) {
	if err := f.enter(); err != nil {
		return 0, err
	}

	whole := len(p) / f.s.elemSize
	if whole == 0 {
		return 0, object.ErrOutOfRange
	}

	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed[1-f.side] {
		return 0, object.ErrPeerClosed
	}

	r := &s.dirs[f.side]
	free := s.capacity - r.count
	if free == 0 {
		return 0, object.ErrShouldWait
	}

	n := whole
	if n > free {
		n = free
	}
	for i := 0; i < n; i++ {
		slot := (r.head + r.count + i) % s.capacity
		copy(r.buf[slot*s.elemSize:(slot+1)*s.elemSize], p[i*s.elemSize:])
	}
	r.count += n
	return uint32(n), nil
}

// Read dequeues records written by the peer into p, up to the smaller of
// len(p)/elemSize and the number available, and returns the count copied.
// The bytes copied are always a whole number of records.
//
// Fails with object.ErrOutOfRange if p cannot hold one record, with
// object.ErrShouldWait if the queue is empty, and with object.ErrPeerClosed
// once the peer has closed and all remaining records have been drained.
func (f *Fifo) Read(p []byte) (uint32, error) {
	if err := f.enter(); err != nil {
		return 0, err
	}

	ceiling := len(p) / f.s.elemSize
	if ceiling == 0 {
		return 0, object.ErrOutOfRange
	}

	s := f.s
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &s.dirs[1-f.side]
	if r.count == 0 {
		if s.closed[1-f.side] {
			return 0, object.ErrPeerClosed
		}
		return 0, object.ErrShouldWait
	}

	n := ceiling
	if n > r.count {
		n = r.count
	}
	for i := 0; i < n; i++ {
		slot := (r.head + i) % s.capacity
		copy(p[i*s.elemSize:(i+1)*s.elemSize], r.buf[slot*s.elemSize:])
	}
	r.head = (r.head + n) % s.capacity
	r.count -= n
	return uint32(n), nil
}

// Close releases this endpoint. It is idempotent and does not invalidate the
// peer: the peer drains any records already enqueued, after which its
// operations fail with object.ErrPeerClosed.
func (f *Fifo) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	f.s.mu.Lock()
	f.s.closed[f.side] = true
	f.s.mu.Unlock()
	return nil
}

func (f *Fifo) enter() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return object.ErrBadHandle
	}
	return nil
}
