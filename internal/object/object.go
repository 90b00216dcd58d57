package object

import "errors"

// Sentinel errors shared by all kernel-style IPC objects. Every fallible
// operation returns one of these (possibly wrapped) rather than panicking;
// retry policy is always the caller's responsibility.
var (
	// ErrInvalidArgument indicates malformed creation parameters, such as a
	// zero-sized element or an unrecognized options value.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange indicates a caller-supplied buffer or offset that cannot
	// satisfy the operation, such as a write buffer shorter than one element.
	ErrOutOfRange = errors.New("out of range")

	// ErrShouldWait indicates the operation could not make progress right now
	// (queue full on write, empty on read). It is a recoverable retry signal,
	// not a hard failure.
	ErrShouldWait = errors.New("should wait")

	// ErrPeerClosed indicates the opposing endpoint of a paired object has
	// been closed.
	ErrPeerClosed = errors.New("peer closed")

	// ErrBadHandle indicates an operation on a handle that has already been
	// closed.
	ErrBadHandle = errors.New("bad handle")

	// ErrTimedOut indicates a wait ended because its deadline expired before
	// any requested signal was asserted.
	ErrTimedOut = errors.New("timed out")

	// ErrResourceExhausted indicates the underlying allocation could not be
	// satisfied.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// Signals is a bitmask of conditions asserted on one side of a paired object.
// Signals are sticky: once set they remain observable until explicitly
// cleared.
type Signals uint32

const SignalNone Signals = 0

const (
	UserSignal0 Signals = 1 << iota
	UserSignal1
	UserSignal2
	UserSignal3
	UserSignal4
	UserSignal5
	UserSignal6
	UserSignal7
)

// SignalPeerClosed is asserted automatically when the opposing endpoint is
// closed. It cannot be cleared.
const SignalPeerClosed Signals = 1 << 31

// UserSignals covers every caller-assertable signal bit.
const UserSignals = UserSignal0 | UserSignal1 | UserSignal2 | UserSignal3 |
	UserSignal4 | UserSignal5 | UserSignal6 | UserSignal7

// ShouldRetry reports whether err is the recoverable would-block condition.
func ShouldRetry(err error) bool {
	return errors.Is(err, ErrShouldWait)
}
