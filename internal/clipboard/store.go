// Package clipboard implements an in-process multi-format clipboard with
// bounded history, change subscriptions, and an optional bridge to the OS
// clipboard for plain text.
package clipboard

import (
	"fmt"
	"sync"
	"time"

	osclip "github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/happy-forks/ipcd/internal/logging"
	"github.com/happy-forks/ipcd/internal/monitoring"
	"github.com/happy-forks/ipcd/internal/object"
)

// Well-known formats. Arbitrary format names (image/png, application/json)
// are registered on first use.
const (
	FormatText  = "text"
	FormatHTML  = "html"
	FormatBytes = "bytes"
)

// Entry is a single clipboard record.
type Entry struct {
	ID        uint64    `json:"id"`
	Data      []byte    `json:"data"`
	Format    string    `json:"format"`
	Global    bool      `json:"global"`
	CreatedAt time.Time `json:"created_at"`
}

// Event describes a clipboard change delivered to subscribers.
type Event struct {
	Type   string `json:"type"` // "copy" or "clear"
	Entry  *Entry `json:"entry,omitempty"`
	Seq    uint64 `json:"seq"`
	Global bool   `json:"global"`
}

type subscription struct {
	formats map[string]bool // empty = all formats
}

// Store holds clipboard state. All methods are safe for concurrent use.
type Store struct {
	mu           sync.Mutex
	history      []*Entry // newest first
	historyLimit int
	nextID       uint64
	seq          uint64 // bumps on every content change
	formats      map[string]uint32
	nextFormat   uint32
	subs         map[string]*subscription // keyed by subscriber ID
	watchers     map[chan Event]struct{}
	enableGlobal bool
	logger       *logging.Logger
	metrics      *monitoring.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit caps how many entries the history retains.
func WithHistoryLimit(limit int) Option {
	return func(s *Store) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithGlobal enables the OS clipboard bridge for text entries.
func WithGlobal(enabled bool) Option {
	return func(s *Store) {
		s.enableGlobal = enabled
	}
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates a clipboard store.
func NewStore(logger *logging.Logger, opts ...Option) *Store {
	s := &Store{
		historyLimit: 100,
		nextID:       1,
		formats:      make(map[string]uint32),
		nextFormat:   1,
		subs:         make(map[string]*subscription),
		watchers:     make(map[chan Event]struct{}),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Pre-register the built-in formats so their IDs are stable.
	for _, f := range []string{FormatText, FormatHTML, FormatBytes} {
		s.formats[f] = s.nextFormat
		s.nextFormat++
	}
	return s
}

// Copy stores data under the given format and returns the new entry ID.
// When global is set and the bridge is enabled, text data is mirrored to
// the OS clipboard.
func (s *Store) Copy(data []byte, format string, global bool) (uint64, error) {
	if len(data) == 0 {
		return 0, object.ErrInvalidArgument
	}
	if format == "" {
		format = FormatText
	}

	if global {
		if !s.enableGlobal {
			return 0, fmt.Errorf("global clipboard disabled: %w", object.ErrInvalidArgument)
		}
		if format != FormatText {
			return 0, fmt.Errorf("global clipboard is text-only: %w", object.ErrInvalidArgument)
		}
		if err := osclip.WriteAll(string(data)); err != nil {
			return 0, fmt.Errorf("os clipboard write: %w", err)
		}
	}

	s.mu.Lock()
	if _, ok := s.formats[format]; !ok {
		s.formats[format] = s.nextFormat
		s.nextFormat++
	}

	entry := &Entry{
		ID:        s.nextID,
		Data:      data,
		Format:    format,
		Global:    global,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.seq++

	s.history = append([]*Entry{entry}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
	event := Event{Type: "copy", Entry: entry, Seq: s.seq, Global: global}
	entries := len(s.history)
	s.mu.Unlock()

	s.notify(event)

	if s.metrics != nil {
		s.metrics.ClipboardOps.WithLabelValues("copy").Inc()
		s.metrics.ClipboardEntries.Set(float64(entries))
	}
	s.logger.Debug("Clipboard copy",
		zap.Uint64("entry_id", entry.ID),
		zap.String("format", format),
		zap.Bool("global", global))
	return entry.ID, nil
}

// Paste returns the most recent entry. When global is set and the bridge
// is enabled, the OS clipboard is read instead.
func (s *Store) Paste(global bool) (*Entry, error) {
	if global {
		if !s.enableGlobal {
			return nil, fmt.Errorf("global clipboard disabled: %w", object.ErrInvalidArgument)
		}
		text, err := osclip.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("os clipboard read: %w", err)
		}
		if s.metrics != nil {
			s.metrics.ClipboardOps.WithLabelValues("paste").Inc()
		}
		return &Entry{Data: []byte(text), Format: FormatText, Global: true}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return nil, object.ErrShouldWait
	}
	if s.metrics != nil {
		s.metrics.ClipboardOps.WithLabelValues("paste").Inc()
	}
	return s.history[0], nil
}

// History returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) History(limit int) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Entry, n)
	copy(out, s.history[:n])
	return out
}

// GetEntry looks up an entry by ID.
func (s *Store) GetEntry(id uint64) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.history {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, object.ErrBadHandle
}

// Clear drops all history. When global is set, the OS clipboard is
// emptied too.
func (s *Store) Clear(global bool) error {
	if global {
		if !s.enableGlobal {
			return fmt.Errorf("global clipboard disabled: %w", object.ErrInvalidArgument)
		}
		if err := osclip.WriteAll(""); err != nil {
			return fmt.Errorf("os clipboard clear: %w", err)
		}
	}

	s.mu.Lock()
	s.history = nil
	s.seq++
	event := Event{Type: "clear", Seq: s.seq, Global: global}
	s.mu.Unlock()

	s.notify(event)

	if s.metrics != nil {
		s.metrics.ClipboardOps.WithLabelValues("clear").Inc()
		s.metrics.ClipboardEntries.Set(0)
	}
	return nil
}

// Subscribe registers a subscriber for change notifications. An empty
// format list matches every format.
func (s *Store) Subscribe(subscriberID string, formats []string) {
	filter := make(map[string]bool, len(formats))
	for _, f := range formats {
		filter[f] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[subscriberID] = &subscription{formats: filter}
}

// Unsubscribe removes a subscriber. Unknown IDs are a no-op.
func (s *Store) Unsubscribe(subscriberID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, subscriberID)
}

// Subscribed reports whether a subscriber would receive events for the
// given format.
func (s *Store) Subscribed(subscriberID, format string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[subscriberID]
	if !ok {
		return false
	}
	return len(sub.formats) == 0 || sub.formats[format]
}

// Watch returns a channel of clipboard change events. The caller must
// drain it; events are dropped when the channel is full. Call the
// returned stop function to release the watcher.
func (s *Store) Watch() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	stop := func() {
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, stop
}

func (s *Store) notify(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- event:
		default:
			// slow watcher, drop the event
		}
	}
}

// Seq returns the change counter. It increments on every copy and clear,
// so callers can detect missed updates.
func (s *Store) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Formats returns the registered format table (name to numeric ID).
func (s *Store) Formats() map[string]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint32, len(s.formats))
	for name, id := range s.formats {
		out[name] = id
	}
	return out
}

// Stats reports clipboard usage.
func (s *Store) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	byFormat := make(map[string]int)
	var totalBytes int
	for _, e := range s.history {
		byFormat[e.Format]++
		totalBytes += len(e.Data)
	}

	return map[string]interface{}{
		"entries":       len(s.history),
		"history_limit": s.historyLimit,
		"total_bytes":   totalBytes,
		"by_format":     byFormat,
		"formats":       len(s.formats),
		"subscribers":   len(s.subs),
		"seq":           s.seq,
		"global":        s.enableGlobal,
	}
}
