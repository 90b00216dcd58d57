package eventpair

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happy-forks/ipcd/internal/object"
)

func shortCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestCreateValidation(t *testing.T) {
	_, _, err := Create(Options(3))
	assert.ErrorIs(t, err, object.ErrInvalidArgument)

	a, b, err := Create(Default)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, b)
}

func TestWaitAndSignalPeer(t *testing.T) {
	p1, p2, err := Create(Default)
	require.NoError(t, err)

	// Nothing asserted yet: the wait times out.
	_, err = p2.Wait(shortCtx(t), object.UserSignal0)
	assert.ErrorIs(t, err, object.ErrTimedOut)

	require.NoError(t, p1.SignalPeer(object.SignalNone, object.UserSignal0))

	got, err := p2.Wait(shortCtx(t), object.UserSignal0)
	require.NoError(t, err)
	assert.NotZero(t, got&object.UserSignal0)

	// Signals are sticky until cleared.
	got, err = p2.Wait(shortCtx(t), object.UserSignal0)
	require.NoError(t, err)
	assert.NotZero(t, got&object.UserSignal0)

	require.NoError(t, p1.SignalPeer(object.UserSignal0, object.SignalNone))
	_, err = p2.Wait(shortCtx(t), object.UserSignal0)
	assert.ErrorIs(t, err, object.ErrTimedOut)
}

func TestWaitWakesBlockedWaiter(t *testing.T) {
	p1, p2, err := Create(Default)
	require.NoError(t, err)

	done := make(chan object.Signals, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		got, err := p2.Wait(ctx, object.UserSignal3)
		if err == nil {
			done <- got
		}
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p1.SignalPeer(object.SignalNone, object.UserSignal3))

	select {
	case got, ok := <-done:
		require.True(t, ok)
		assert.NotZero(t, got&object.UserSignal3)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestCloseUnblocksOwnWaiter(t *testing.T) {
	_, p2, err := Create(Default)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := p2.Wait(ctx, object.UserSignal0)
		done <- err
	}()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p2.Close())

	// Closing the waiting side must fail the wait immediately, not leave
	// it running until the deadline.
	select {
	case err := <-done:
		assert.ErrorIs(t, err, object.ErrBadHandle)
	case <-time.After(time.Second):
		t.Fatal("waiter survived its own close")
	}
}

func TestSignalRejectsNonUserBits(t *testing.T) {
	p1, _, err := Create(Default)
	require.NoError(t, err)

	err = p1.SignalPeer(object.SignalNone, object.SignalPeerClosed)
	assert.ErrorIs(t, err, object.ErrInvalidArgument)
	err = p1.Signal(object.SignalPeerClosed, object.SignalNone)
	assert.ErrorIs(t, err, object.ErrInvalidArgument)
}

func TestPeerCloseAssertsSignal(t *testing.T) {
	p1, p2, err := Create(Default)
	require.NoError(t, err)

	require.NoError(t, p1.Close())

	got, err := p2.Wait(shortCtx(t), object.SignalPeerClosed)
	require.NoError(t, err)
	assert.NotZero(t, got&object.SignalPeerClosed)

	err = p2.SignalPeer(object.SignalNone, object.UserSignal0)
	assert.ErrorIs(t, err, object.ErrPeerClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	p1, _, err := Create(Default)
	require.NoError(t, err)

	require.NoError(t, p1.Close())
	require.NoError(t, p1.Close())

	_, err = p1.Peek()
	assert.ErrorIs(t, err, object.ErrBadHandle)
}

func TestPeek(t *testing.T) {
	p1, p2, err := Create(Default)
	require.NoError(t, err)

	got, err := p2.Peek()
	require.NoError(t, err)
	assert.Equal(t, object.SignalNone, got)

	require.NoError(t, p1.SignalPeer(object.SignalNone, object.UserSignal1|object.UserSignal2))

	got, err = p2.Peek()
	require.NoError(t, err)
	assert.Equal(t, object.UserSignal1|object.UserSignal2, got)
}
