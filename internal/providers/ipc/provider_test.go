package ipc

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ipcmgr "github.com/happy-forks/ipcd/internal/ipc"
	"github.com/happy-forks/ipcd/internal/logging"
)

func newProvider() *Provider {
	return NewProvider(ipcmgr.NewManager(logging.NewNop()))
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestDefinition(t *testing.T) {
	p := newProvider()
	def := p.Definition()

	assert.Equal(t, "ipc", def.ID)
	assert.NotEmpty(t, def.Capabilities)

	toolIDs := make(map[string]bool)
	for _, tool := range def.Tools {
		toolIDs[tool.ID] = true
	}
	for _, id := range []string{
		"ipc.create_fifo", "ipc.write_fifo", "ipc.read_fifo",
		"ipc.create_pipe", "ipc.write_pipe", "ipc.read_pipe",
		"ipc.create_shm", "ipc.write_shm", "ipc.read_shm",
		"ipc.create_event_pair", "ipc.signal_peer", "ipc.wait_event",
		"ipc.close", "ipc.stats",
	} {
		assert.True(t, toolIDs[id], "missing tool: %s", id)
	}
}

func TestFifoTools(t *testing.T) {
	p := newProvider()
	ctx := context.Background()

	result, err := p.Execute(ctx, "ipc.create_fifo", map[string]interface{}{
		"elem_count": float64(4),
		"elem_size":  float64(2),
	}, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	ep0 := result.Data["endpoint0"].(uint32)
	ep1 := result.Data["endpoint1"].(uint32)

	result, err = p.Execute(ctx, "ipc.write_fifo", map[string]interface{}{
		"handle": float64(ep0),
		"data":   b64("hex"),
	}, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, uint32(1), result.Data["records_written"])

	result, err = p.Execute(ctx, "ipc.read_fifo", map[string]interface{}{
		"handle": float64(ep1),
		"size":   float64(8),
	}, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, uint32(1), result.Data["records_read"])
	assert.Equal(t, b64("he"), result.Data["data"])
}

func TestFifoWouldBlockFlag(t *testing.T) {
	p := newProvider()
	ctx := context.Background()

	result, err := p.Execute(ctx, "ipc.create_fifo", map[string]interface{}{
		"elem_count": float64(1),
		"elem_size":  float64(2),
	}, nil)
	require.NoError(t, err)
	ep0 := result.Data["endpoint0"].(uint32)
	ep1 := result.Data["endpoint1"].(uint32)

	_, err = p.Execute(ctx, "ipc.write_fifo", map[string]interface{}{
		"handle": float64(ep0),
		"data":   b64("aa"),
	}, nil)
	require.NoError(t, err)

	// Full queue: failed result carries the retry flag.
	result, err = p.Execute(ctx, "ipc.write_fifo", map[string]interface{}{
		"handle": float64(ep0),
		"data":   b64("bb"),
	}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, true, result.Data["would_block"])

	// Empty read on the writing side's own direction.
	result, err = p.Execute(ctx, "ipc.read_fifo", map[string]interface{}{
		"handle": float64(ep0),
		"size":   float64(2),
	}, nil)
	require.Error(t, err)
	assert.Equal(t, true, result.Data["would_block"])
	_ = ep1
}

func TestPipeTools(t *testing.T) {
	p := newProvider()
	ctx := context.Background()

	result, err := p.Execute(ctx, "ipc.create_pipe", map[string]interface{}{}, nil)
	require.NoError(t, err)
	reader := result.Data["reader"].(uint32)
	writer := result.Data["writer"].(uint32)

	result, err = p.Execute(ctx, "ipc.write_pipe", map[string]interface{}{
		"handle": float64(writer),
		"data":   b64("hello"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Data["bytes_written"])

	result, err = p.Execute(ctx, "ipc.read_pipe", map[string]interface{}{
		"handle": float64(reader),
		"size":   float64(16),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, b64("hello"), result.Data["data"])
}

func TestShmTools(t *testing.T) {
	p := newProvider()
	ctx := context.Background()

	result, err := p.Execute(ctx, "ipc.create_shm", map[string]interface{}{
		"size": float64(64),
	}, nil)
	require.NoError(t, err)
	seg := result.Data["segment"].(uint32)

	result, err = p.Execute(ctx, "ipc.write_shm", map[string]interface{}{
		"handle": float64(seg),
		"offset": float64(8),
		"data":   b64("data"),
	}, nil)
	require.NoError(t, err)
	require.True(t, result.Success)

	result, err = p.Execute(ctx, "ipc.read_shm", map[string]interface{}{
		"handle": float64(seg),
		"offset": float64(8),
		"size":   float64(4),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, b64("data"), result.Data["data"])
}

func TestEventPairTools(t *testing.T) {
	p := newProvider()
	ctx := context.Background()

	result, err := p.Execute(ctx, "ipc.create_event_pair", map[string]interface{}{}, nil)
	require.NoError(t, err)
	ep0 := result.Data["endpoint0"].(uint32)
	ep1 := result.Data["endpoint1"].(uint32)

	_, err = p.Execute(ctx, "ipc.signal_peer", map[string]interface{}{
		"handle": float64(ep0),
		"set":    float64(1),
	}, nil)
	require.NoError(t, err)

	result, err = p.Execute(ctx, "ipc.wait_event", map[string]interface{}{
		"handle":     float64(ep1),
		"mask":       float64(1),
		"timeout_ms": float64(100),
	}, nil)
	require.NoError(t, err)
	assert.NotZero(t, result.Data["signals"].(uint32)&1)
}

func TestCloseAndStats(t *testing.T) {
	p := newProvider()
	ctx := context.Background()

	result, err := p.Execute(ctx, "ipc.create_shm", map[string]interface{}{
		"size": float64(16),
	}, nil)
	require.NoError(t, err)
	seg := result.Data["segment"].(uint32)

	result, err = p.Execute(ctx, "ipc.close", map[string]interface{}{
		"handle": float64(seg),
	}, nil)
	require.NoError(t, err)
	require.True(t, result.Success)

	result, err = p.Execute(ctx, "ipc.stats", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Data["total_handles"])
}

func TestNumericParamsAreRangeChecked(t *testing.T) {
	p := newProvider()
	ctx := context.Background()

	// Negative and over-uint32 values must fail cleanly instead of
	// converting to an arbitrary capacity or handle.
	result, err := p.Execute(ctx, "ipc.create_fifo", map[string]interface{}{
		"elem_count": float64(-1),
		"elem_size":  float64(2),
	}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "out of range")

	result, err = p.Execute(ctx, "ipc.read_fifo", map[string]interface{}{
		"handle": float64(1),
		"size":   float64(1 << 40),
	}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)

	result, err = p.Execute(ctx, "ipc.create_pipe", map[string]interface{}{
		"capacity": float64(-64),
	}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)

	result, err = p.Execute(ctx, "ipc.signal_peer", map[string]interface{}{
		"handle": float64(1),
		"set":    float64(-2),
	}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)
}

func TestMissingParams(t *testing.T) {
	p := newProvider()
	ctx := context.Background()

	result, err := p.Execute(ctx, "ipc.create_fifo", map[string]interface{}{}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)

	result, err = p.Execute(ctx, "ipc.write_fifo", map[string]interface{}{
		"handle": float64(1),
		"data":   "not base64!!!",
	}, nil)
	require.Error(t, err)
	assert.False(t, result.Success)

	result, err = p.Execute(ctx, "ipc.nonexistent", nil, nil)
	require.Error(t, err)
	assert.False(t, result.Success)
}
