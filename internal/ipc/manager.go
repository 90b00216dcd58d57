// Package ipc maintains the table of live IPC objects (fifo endpoints, pipe
// ends, event pair sides, shared memory segments) addressed by uint32
// handle IDs, the way the service surface refers to them.
package ipc

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/happy-forks/ipcd/internal/ipc/eventpair"
	"github.com/happy-forks/ipcd/internal/ipc/fifo"
	"github.com/happy-forks/ipcd/internal/ipc/pipe"
	"github.com/happy-forks/ipcd/internal/ipc/shm"
	"github.com/happy-forks/ipcd/internal/logging"
	"github.com/happy-forks/ipcd/internal/monitoring"
	"github.com/happy-forks/ipcd/internal/object"
)

// handle is any table entry; each object class releases via Close.
type handle interface {
	Close() error
}

// Manager owns the handle table. All table mutations are serialized; object
// operations themselves run outside the table lock on the object's own
// synchronization.
type Manager struct {
	mu      sync.Mutex
	nextID  uint32
	objects map[uint32]handle
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewManager creates an empty handle table.
func NewManager(logger *logging.Logger) *Manager {
	return &Manager{
		nextID:  1,
		objects: make(map[uint32]handle),
		logger:  logger,
	}
}

// WithMetrics attaches a metrics collector.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

func (m *Manager) insert(h handle) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.objects[id] = h
	if m.metrics != nil {
		m.metrics.HandlesActive.Inc()
	}
	return id
}

func (m *Manager) lookup(id uint32) (handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.objects[id]
	return h, ok
}

func (m *Manager) count(op string, class string) {
	if m.metrics != nil {
		m.metrics.IPCOps.WithLabelValues(class, op).Inc()
	}
}

func (m *Manager) countWouldBlock(op string, class string, err error) {
	if m.metrics != nil && object.ShouldRetry(err) {
		m.metrics.IPCWouldBlock.WithLabelValues(class, op).Inc()
	}
}

// CreateFifo allocates a record queue and registers both endpoints,
// returning their handle IDs.
func (m *Manager) CreateFifo(elemCount, elemSize uint32) (uint32, uint32, error) {
	a, b, err := fifo.Create(elemCount, elemSize, fifo.Default)
	if err != nil {
		return 0, 0, err
	}
	id0, id1 := m.insert(a), m.insert(b)
	m.count("create", "fifo")
	m.logger.Debug("fifo created",
		zap.Uint32("endpoint0", id0),
		zap.Uint32("endpoint1", id1),
		zap.Uint32("elem_count", elemCount),
		zap.Uint32("elem_size", elemSize),
	)
	return id0, id1, nil
}

// FifoWrite enqueues whole records from data on the endpoint id.
func (m *Manager) FifoWrite(id uint32, data []byte) (uint32, error) {
	f, err := m.fifoByID(id)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	m.count("write", "fifo")
	m.countWouldBlock("write", "fifo", err)
	if err == nil && m.metrics != nil {
		m.metrics.IPCRecordsMoved.WithLabelValues("fifo", "write").Add(float64(n))
	}
	return n, err
}

// FifoRead dequeues up to maxBytes of whole records from the endpoint id
// and returns the bytes alongside the record count.
func (m *Manager) FifoRead(id, maxBytes uint32) ([]byte, uint32, error) {
	f, err := m.fifoByID(id)
	if err != nil {
		return nil, 0, err
	}
	// The queue never holds more than capacity records, so a larger
	// caller-supplied size must not drive the allocation.
	if limit := f.Capacity() * f.ElementSize(); maxBytes > limit {
		maxBytes = limit
	}
	buf := make([]byte, maxBytes)
	n, err := f.Read(buf)
	m.count("read", "fifo")
	m.countWouldBlock("read", "fifo", err)
	if err != nil {
		return nil, 0, err
	}
	if m.metrics != nil {
		m.metrics.IPCRecordsMoved.WithLabelValues("fifo", "read").Add(float64(n))
	}
	return buf[:n*f.ElementSize()], n, nil
}

func (m *Manager) fifoByID(id uint32) (*fifo.Fifo, error) {
	h, ok := m.lookup(id)
	if !ok {
		return nil, object.ErrBadHandle
	}
	f, ok := h.(*fifo.Fifo)
	if !ok {
		return nil, object.ErrBadHandle
	}
	return f, nil
}

// CreatePipe allocates a byte pipe and returns (readerID, writerID).
func (m *Manager) CreatePipe(capacity uint32) (uint32, uint32, error) {
	r, w, err := pipe.Create(capacity)
	if err != nil {
		return 0, 0, err
	}
	rid, wid := m.insert(r), m.insert(w)
	m.count("create", "pipe")
	m.logger.Debug("pipe created",
		zap.Uint32("reader", rid),
		zap.Uint32("writer", wid),
		zap.Uint32("capacity", w.Capacity()),
	)
	return rid, wid, nil
}

// PipeWrite stores bytes on the writer end id.
func (m *Manager) PipeWrite(id uint32, data []byte) (int, error) {
	h, ok := m.lookup(id)
	if !ok {
		return 0, object.ErrBadHandle
	}
	w, ok := h.(*pipe.Writer)
	if !ok {
		return 0, object.ErrBadHandle
	}
	n, err := w.Write(data)
	m.count("write", "pipe")
	m.countWouldBlock("write", "pipe", err)
	return n, err
}

// PipeRead drains up to size bytes from the reader end id.
func (m *Manager) PipeRead(id, size uint32) ([]byte, error) {
	h, ok := m.lookup(id)
	if !ok {
		return nil, object.ErrBadHandle
	}
	r, ok := h.(*pipe.Reader)
	if !ok {
		return nil, object.ErrBadHandle
	}
	// A pipe never buffers more than its ring capacity.
	if limit := r.Capacity(); size > limit {
		size = limit
	}
	buf := make([]byte, size)
	n, err := r.Read(buf)
	m.count("read", "pipe")
	m.countWouldBlock("read", "pipe", err)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// CreateShm allocates a shared memory segment.
func (m *Manager) CreateShm(size uint32) (uint32, error) {
	seg, err := shm.Create(size)
	if err != nil {
		return 0, err
	}
	id := m.insert(seg)
	m.count("create", "shm")
	m.logger.Debug("shm segment created", zap.Uint32("segment", id), zap.Uint32("size", size))
	return id, nil
}

// ShmWrite copies data into segment id at offset.
func (m *Manager) ShmWrite(id, offset uint32, data []byte) error {
	seg, err := m.segmentByID(id)
	if err != nil {
		return err
	}
	m.count("write", "shm")
	return seg.WriteAt(offset, data)
}

// ShmRead copies size bytes out of segment id at offset.
func (m *Manager) ShmRead(id, offset, size uint32) ([]byte, error) {
	seg, err := m.segmentByID(id)
	if err != nil {
		return nil, err
	}
	m.count("read", "shm")
	return seg.ReadAt(offset, size)
}

func (m *Manager) segmentByID(id uint32) (*shm.Segment, error) {
	h, ok := m.lookup(id)
	if !ok {
		return nil, object.ErrBadHandle
	}
	seg, ok := h.(*shm.Segment)
	if !ok {
		return nil, object.ErrBadHandle
	}
	return seg, nil
}

// CreateEventPair allocates a signaling pair and registers both sides.
func (m *Manager) CreateEventPair() (uint32, uint32, error) {
	a, b, err := eventpair.Create(eventpair.Default)
	if err != nil {
		return 0, 0, err
	}
	id0, id1 := m.insert(a), m.insert(b)
	m.count("create", "eventpair")
	return id0, id1, nil
}

// SignalPeer asserts and clears user signals observed by the peer of id.
func (m *Manager) SignalPeer(id uint32, clear, set object.Signals) error {
	p, err := m.eventPairByID(id)
	if err != nil {
		return err
	}
	m.count("signal", "eventpair")
	return p.SignalPeer(clear, set)
}

// WaitEvent blocks until a signal in mask is asserted on side id or ctx
// expires.
func (m *Manager) WaitEvent(ctx context.Context, id uint32, mask object.Signals) (object.Signals, error) {
	p, err := m.eventPairByID(id)
	if err != nil {
		return 0, err
	}
	m.count("wait", "eventpair")
	return p.Wait(ctx, mask)
}

func (m *Manager) eventPairByID(id uint32) (*eventpair.EventPair, error) {
	h, ok := m.lookup(id)
	if !ok {
		return nil, object.ErrBadHandle
	}
	p, ok := h.(*eventpair.EventPair)
	if !ok {
		return nil, object.ErrBadHandle
	}
	return p, nil
}

// Close releases the handle id and removes it from the table.
func (m *Manager) Close(id uint32) error {
	m.mu.Lock()
	h, ok := m.objects[id]
	if ok {
		delete(m.objects, id)
	}
	m.mu.Unlock()
	if !ok {
		return object.ErrBadHandle
	}
	if m.metrics != nil {
		m.metrics.HandlesActive.Dec()
	}
	m.count("close", classOf(h))
	return h.Close()
}

// Stats reports live handle counts per object class.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	classes := make(map[string]int)
	for _, h := range m.objects {
		classes[classOf(h)]++
	}
	return map[string]interface{}{
		"total_handles": len(m.objects),
		"classes":       classes,
	}
}

func classOf(h handle) string {
	switch h.(type) {
	case *fifo.Fifo:
		return "fifo"
	case *pipe.Reader, *pipe.Writer:
		return "pipe"
	case *shm.Segment:
		return "shm"
	case *eventpair.EventPair:
		return "eventpair"
	default:
		return "unknown"
	}
}
