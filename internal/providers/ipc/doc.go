// Package ipc exposes kernel-object IPC primitives as a service provider.
//
// Tools cover four object classes backed by the in-process object manager:
//   - Fifos: bounded fixed-record queues created as connected endpoint
//     pairs; whole-record reads and writes, truncate-to-capacity policy,
//     would-block signaling instead of blocking
//   - Pipes: unidirectional buffered byte streams (default 64KB capacity)
//   - Shared memory: bounds-checked segments up to 100MB
//   - Event pairs: connected signaling endpoints with sticky user signals
//     and deadline-bounded waits
//
// Example Usage:
//
//	// Create a fifo holding 4 records of 2 bytes
//	result := ipc.create_fifo(elem_count: 4, elem_size: 2)
//
//	// Writer enqueues records on one endpoint
//	ipc.write_fifo(handle: endpoint0, data: base64("hex"))
//
//	// Reader drains them from the peer
//	result := ipc.read_fifo(handle: endpoint1, size: 8)
//
//	// Release a handle; the peer stays usable
//	ipc.close(handle: endpoint0)
//
// Operations that cannot make progress (full fifo on write, empty on read)
// fail with would_block set in the result data so callers can poll or wait
// on an event pair instead.
package ipc
