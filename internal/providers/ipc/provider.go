package ipc

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"github.com/happy-forks/ipcd/internal/ipc"
	"github.com/happy-forks/ipcd/internal/object"
	"github.com/happy-forks/ipcd/internal/types"
)

// Provider implements IPC operations over the object manager.
type Provider struct {
	manager *ipc.Manager
}

// NewProvider creates a new IPC provider.
func NewProvider(manager *ipc.Manager) *Provider {
	return &Provider{manager: manager}
}

// Definition returns the service definition
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "ipc",
		Name:        "Inter-Process Communication",
		Description: "Provides record fifos, byte pipes, shared memory, and event pairs for data sharing between apps",
		Category:    types.CategoryIPC,
		Capabilities: []string{
			"create_fifo",
			"write_fifo",
			"read_fifo",
			"create_pipe",
			"write_pipe",
			"read_pipe",
			"create_shm",
			"write_shm",
			"read_shm",
			"create_event_pair",
			"signal_peer",
			"wait_event",
		},
		Tools: []types.Tool{
			{
				ID:          "ipc.create_fifo",
				Name:        "Create Fifo",
				Description: "Create a bounded fixed-record queue as a pair of connected endpoints",
				Parameters: []types.Parameter{
					{Name: "elem_count", Type: "number", Description: "Capacity in records", Required: true},
					{Name: "elem_size", Type: "number", Description: "Bytes per record", Required: true},
				},
				Returns: "Endpoint handle IDs (pair)",
			},
			{
				ID:          "ipc.write_fifo",
				Name:        "Write to Fifo",
				Description: "Enqueue whole records; truncates to free capacity, never blocks",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Endpoint handle ID", Required: true},
					{Name: "data", Type: "string", Description: "Bytes to enqueue (base64)", Required: true},
				},
				Returns: "Number of records enqueued",
			},
			{
				ID:          "ipc.read_fifo",
				Name:        "Read from Fifo",
				Description: "Dequeue whole records written by the peer endpoint",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Endpoint handle ID", Required: true},
					{Name: "size", Type: "number", Description: "Maximum bytes to read", Required: true},
				},
				Returns: "Records read (base64 bytes plus count)",
			},
			{
				ID:          "ipc.create_pipe",
				Name:        "Create Pipe",
				Description: "Create a unidirectional byte pipe for streaming data",
				Parameters: []types.Parameter{
					{Name: "capacity", Type: "number", Description: "Optional buffer capacity in bytes (default: 64KB)", Required: false},
				},
				Returns: "Reader and writer handle IDs",
			},
			{
				ID:          "ipc.write_pipe",
				Name:        "Write to Pipe",
				Description: "Write bytes to a pipe's writer end",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Writer handle ID", Required: true},
					{Name: "data", Type: "string", Description: "Bytes to write (base64)", Required: true},
				},
				Returns: "Number of bytes written",
			},
			{
				ID:          "ipc.read_pipe",
				Name:        "Read from Pipe",
				Description: "Read bytes from a pipe's reader end",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Reader handle ID", Required: true},
					{Name: "size", Type: "number", Description: "Maximum number of bytes to read", Required: true},
				},
				Returns: "Bytes read (base64)",
			},
			{
				ID:          "ipc.create_shm",
				Name:        "Create Shared Memory",
				Description: "Create a shared memory segment (max 100MB)",
				Parameters: []types.Parameter{
					{Name: "size", Type: "number", Description: "Segment size in bytes", Required: true},
				},
				Returns: "Segment handle ID",
			},
			{
				ID:          "ipc.write_shm",
				Name:        "Write to Shared Memory",
				Description: "Write bytes into a segment at an offset",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Segment handle ID", Required: true},
					{Name: "offset", Type: "number", Description: "Byte offset to write at", Required: true},
					{Name: "data", Type: "string", Description: "Bytes to write (base64)", Required: true},
				},
				Returns: "Success confirmation",
			},
			{
				ID:          "ipc.read_shm",
				Name:        "Read from Shared Memory",
				Description: "Read bytes from a segment at an offset",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Segment handle ID", Required: true},
					{Name: "offset", Type: "number", Description: "Byte offset to read from", Required: true},
					{Name: "size", Type: "number", Description: "Number of bytes to read", Required: true},
				},
				Returns: "Bytes read (base64)",
			},
			{
				ID:          "ipc.create_event_pair",
				Name:        "Create Event Pair",
				Description: "Create a pair of connected signaling endpoints",
				Parameters:  []types.Parameter{},
				Returns:     "Endpoint handle IDs (pair)",
			},
			{
				ID:          "ipc.signal_peer",
				Name:        "Signal Peer",
				Description: "Clear then set user signal bits observed by the peer endpoint",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Endpoint handle ID", Required: true},
					{Name: "clear", Type: "number", Description: "Signal bits to clear", Required: false},
					{Name: "set", Type: "number", Description: "Signal bits to set", Required: false},
				},
				Returns: "Success confirmation",
			},
			{
				ID:          "ipc.wait_event",
				Name:        "Wait for Signals",
				Description: "Block until a signal in the mask is asserted or the timeout expires",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Endpoint handle ID", Required: true},
					{Name: "mask", Type: "number", Description: "Signal bits to wait for", Required: true},
					{Name: "timeout_ms", Type: "number", Description: "Timeout in milliseconds (default: 1000)", Required: false},
				},
				Returns: "Signals asserted at wake-up",
			},
			{
				ID:          "ipc.close",
				Name:        "Close Handle",
				Description: "Release a handle; the peer of a paired object stays valid",
				Parameters: []types.Parameter{
					{Name: "handle", Type: "number", Description: "Handle ID to close", Required: true},
				},
				Returns: "Success confirmation",
			},
			{
				ID:          "ipc.stats",
				Name:        "IPC Statistics",
				Description: "Live handle counts per object class",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute handles IPC tool execution
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "ipc.create_fifo":
		return p.createFifo(params)
	case "ipc.write_fifo":
		return p.writeFifo(params)
	case "ipc.read_fifo":
		return p.readFifo(params)
	case "ipc.create_pipe":
		return p.createPipe(params)
	case "ipc.write_pipe":
		return p.writePipe(params)
	case "ipc.read_pipe":
		return p.readPipe(params)
	case "ipc.create_shm":
		return p.createShm(params)
	case "ipc.write_shm":
		return p.writeShm(params)
	case "ipc.read_shm":
		return p.readShm(params)
	case "ipc.create_event_pair":
		return p.createEventPair()
	case "ipc.signal_peer":
		return p.signalPeer(params)
	case "ipc.wait_event":
		return p.waitEvent(ctx, params)
	case "ipc.close":
		return p.closeHandle(params)
	case "ipc.stats":
		return p.stats()
	default:
		return errorResult(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) createFifo(params map[string]interface{}) (*types.Result, error) {
	elemCount, err := uint32Param(params, "elem_count")
	if err != nil {
		return errorResult(err.Error())
	}
	elemSize, err := uint32Param(params, "elem_size")
	if err != nil {
		return errorResult(err.Error())
	}

	id0, id1, err := p.manager.CreateFifo(elemCount, elemSize)
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"endpoint0":  id0,
			"endpoint1":  id1,
			"elem_count": elemCount,
			"elem_size":  elemSize,
		},
	}, nil
}

func (p *Provider) writeFifo(params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}
	data, err := dataParam(params)
	if err != nil {
		return errorResult(err.Error())
	}

	n, err := p.manager.FifoWrite(handle, data)
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"records_written": n,
		},
	}, nil
}

func (p *Provider) readFifo(params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}
	size, err := uint32Param(params, "size")
	if err != nil {
		return errorResult(err.Error())
	}

	data, n, err := p.manager.FifoRead(handle, size)
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"data":         base64.StdEncoding.EncodeToString(data),
			"records_read": n,
			"bytes":        len(data),
		},
	}, nil
}

func (p *Provider) createPipe(params map[string]interface{}) (*types.Result, error) {
	capacity, err := optUint32Param(params, "capacity", 0)
	if err != nil {
		return errorResult(err.Error())
	}

	rid, wid, err := p.manager.CreatePipe(capacity)
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"reader": rid,
			"writer": wid,
		},
	}, nil
}

func (p *Provider) writePipe(params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}
	data, err := dataParam(params)
	if err != nil {
		return errorResult(err.Error())
	}

	n, err := p.manager.PipeWrite(handle, data)
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"bytes_written": n,
		},
	}, nil
}

func (p *Provider) readPipe(params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}
	size, err := uint32Param(params, "size")
	if err != nil {
		return errorResult(err.Error())
	}

	data, err := p.manager.PipeRead(handle, size)
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"data":  base64.StdEncoding.EncodeToString(data),
			"bytes": len(data),
		},
	}, nil
}

func (p *Provider) createShm(params map[string]interface{}) (*types.Result, error) {
	size, err := uint32Param(params, "size")
	if err != nil {
		return errorResult(err.Error())
	}

	id, err := p.manager.CreateShm(size)
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"segment": id,
			"size":    size,
		},
	}, nil
}

func (p *Provider) writeShm(params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}
	offset, err := uint32Param(params, "offset")
	if err != nil {
		return errorResult(err.Error())
	}
	data, err := dataParam(params)
	if err != nil {
		return errorResult(err.Error())
	}

	if err := p.manager.ShmWrite(handle, offset, data); err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"bytes_written": len(data),
		},
	}, nil
}

func (p *Provider) readShm(params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}
	offset, err := uint32Param(params, "offset")
	if err != nil {
		return errorResult(err.Error())
	}
	size, err := uint32Param(params, "size")
	if err != nil {
		return errorResult(err.Error())
	}

	data, err := p.manager.ShmRead(handle, offset, size)
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"data":  base64.StdEncoding.EncodeToString(data),
			"bytes": len(data),
		},
	}, nil
}

func (p *Provider) createEventPair() (*types.Result, error) {
	id0, id1, err := p.manager.CreateEventPair()
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"endpoint0": id0,
			"endpoint1": id1,
		},
	}, nil
}

func (p *Provider) signalPeer(params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}
	clear, err := optUint32Param(params, "clear", 0)
	if err != nil {
		return errorResult(err.Error())
	}
	set, err := optUint32Param(params, "set", 0)
	if err != nil {
		return errorResult(err.Error())
	}

	if err := p.manager.SignalPeer(handle, object.Signals(clear), object.Signals(set)); err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"signaled": true,
		},
	}, nil
}

func (p *Provider) waitEvent(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}
	mask, err := uint32Param(params, "mask")
	if err != nil {
		return errorResult(err.Error())
	}
	timeout, err := optUint32Param(params, "timeout_ms", 1000)
	if err != nil {
		return errorResult(err.Error())
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Millisecond)
	defer cancel()

	got, err := p.manager.WaitEvent(waitCtx, handle, object.Signals(mask))
	if err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"signals": uint32(got),
		},
	}, nil
}

func (p *Provider) closeHandle(params map[string]interface{}) (*types.Result, error) {
	handle, err := uint32Param(params, "handle")
	if err != nil {
		return errorResult(err.Error())
	}

	if err := p.manager.Close(handle); err != nil {
		return objectError(err)
	}

	return &types.Result{
		Success: true,
		Data: map[string]interface{}{
			"closed": true,
		},
	}, nil
}

func (p *Provider) stats() (*types.Result, error) {
	return &types.Result{
		Success: true,
		Data:    p.manager.Stats(),
	}, nil
}

// uint32Param reads a required numeric parameter. JSON numbers arrive as
// float64; out-of-range values convert to unspecified uint32s, so the range
// is checked before converting.
func uint32Param(params map[string]interface{}, name string) (uint32, error) {
	raw, ok := params[name].(float64)
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	if raw < 0 || raw > math.MaxUint32 {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return uint32(raw), nil
}

// optUint32Param reads an optional numeric parameter, falling back to def
// when absent.
func optUint32Param(params map[string]interface{}, name string, def uint32) (uint32, error) {
	raw, ok := params[name].(float64)
	if !ok {
		return def, nil
	}
	if raw < 0 || raw > math.MaxUint32 {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return uint32(raw), nil
}

// dataParam decodes the base64 "data" parameter.
func dataParam(params map[string]interface{}) ([]byte, error) {
	raw, ok := params["data"].(string)
	if !ok {
		return nil, fmt.Errorf("data is required")
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("data must be base64: %w", err)
	}
	return data, nil
}

// objectError maps object-layer errors onto results. The would-block signal
// is flagged so callers can tell "retry later" apart from a hard failure.
func objectError(err error) (*types.Result, error) {
	result := &types.Result{
		Success: false,
		Error:   stringPtr(err.Error()),
	}
	if object.ShouldRetry(err) {
		result.Data = map[string]interface{}{"would_block": true}
	}
	return result, err
}

func errorResult(message string) (*types.Result, error) {
	return &types.Result{
		Success: false,
		Error:   stringPtr(message),
	}, fmt.Errorf("%s", message)
}

func stringPtr(s string) *string {
	return &s
}
