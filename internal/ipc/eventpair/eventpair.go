// Package eventpair implements a pair of connected signaling endpoints.
// Either side can assert sticky signal bits on itself or on its peer, and
// block until a signal of interest appears. It is the readiness facility the
// non-blocking fifo and pipe primitives delegate all waiting to.
package eventpair

import (
	"context"
	"sync"

	"github.com/happy-forks/ipcd/internal/object"
)

// Options configures event pair creation. Default is the only recognized
// value.
type Options uint32

const Default Options = 0

// shared holds the signal state for both sides. changed is closed and
// replaced on every state transition so waiters can be woken without a
// condition variable timeout dance.
type shared struct {
	mu      sync.Mutex
	sig     [2]object.Signals
	closed  [2]bool
	changed chan struct{}
}

func (s *shared) broadcast() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// EventPair is one side of a connected signaling pair.
type EventPair struct {
	mu     sync.Mutex
	s      *shared
	side   int
	closed bool
}

// Create returns two connected event pair endpoints, or an error if opts is
// unrecognized.
func Create(opts Options) (*EventPair, *EventPair, error) {
	if opts != Default {
		return nil, nil, object.ErrInvalidArgument
	}
	s := &shared{changed: make(chan struct{})}
	return &EventPair{s: s, side: 0}, &EventPair{s: s, side: 1}, nil
}

// Signal clears then sets signal bits on this side. Only user signals may be
// touched.
func (p *EventPair) Signal(clear, set object.Signals) error {
	return p.signal(p.sideLocked, clear, set)
}

// SignalPeer clears then sets signal bits observed by the peer.
func (p *EventPair) SignalPeer(clear, set object.Signals) error {
	return p.signal(p.peerLocked, clear, set)
}

func (p *EventPair) sideLocked() int { return p.side }
func (p *EventPair) peerLocked() int { return 1 - p.side }

func (p *EventPair) signal(target func() int, clear, set object.Signals) error {
	if err := p.enter(); err != nil {
		return err
	}
	if clear&^object.UserSignals != 0 || set&^object.UserSignals != 0 {
		return object.ErrInvalidArgument
	}

	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed[1-p.side] {
		return object.ErrPeerClosed
	}
	i := target()
	s.sig[i] = (s.sig[i] &^ clear) | set
	s.broadcast()
	return nil
}

// Wait blocks until any signal in mask is asserted on this side or ctx
// expires, returning the full set of signals asserted at that moment.
// Signals are not cleared by observation. A deadline or cancellation
// surfaces as object.ErrTimedOut.
func (p *EventPair) Wait(ctx context.Context, mask object.Signals) (object.Signals, error) {
	s := p.s
	for {
		// Re-checked every wakeup: closing this side broadcasts, and a
		// blocked waiter must fail rather than wait out its deadline.
		if err := p.enter(); err != nil {
			return 0, err
		}

		s.mu.Lock()
		asserted := s.sig[p.side]
		if s.closed[1-p.side] {
			asserted |= object.SignalPeerClosed
		}
		changed := s.changed
		s.mu.Unlock()

		if asserted&mask != 0 {
			return asserted, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return 0, object.ErrTimedOut
		}
	}
}

// Peek returns the signals currently asserted on this side without blocking.
func (p *EventPair) Peek() (object.Signals, error) {
	if err := p.enter(); err != nil {
		return 0, err
	}
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	asserted := s.sig[p.side]
	if s.closed[1-p.side] {
		asserted |= object.SignalPeerClosed
	}
	return asserted, nil
}

// Close releases this side. Idempotent. The peer observes SignalPeerClosed.
func (p *EventPair) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	s := p.s
	s.mu.Lock()
	s.closed[p.side] = true
	s.broadcast()
	s.mu.Unlock()
	return nil
}

func (p *EventPair) enter() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return object.ErrBadHandle
	}
	return nil
}
