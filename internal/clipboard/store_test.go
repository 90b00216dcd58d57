package clipboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happy-forks/ipcd/internal/logging"
	"github.com/happy-forks/ipcd/internal/object"
)

func newStore(opts ...Option) *Store {
	return NewStore(logging.NewNop(), opts...)
}

func TestCopyPasteRoundTrip(t *testing.T) {
	s := newStore()

	id, err := s.Copy([]byte("hello"), FormatText, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	entry, err := s.Paste(false)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), entry.Data)
	assert.Equal(t, FormatText, entry.Format)
}

func TestPasteEmpty(t *testing.T) {
	s := newStore()

	_, err := s.Paste(false)
	assert.ErrorIs(t, err, object.ErrShouldWait)
}

func TestCopyRejectsEmptyData(t *testing.T) {
	s := newStore()

	_, err := s.Copy(nil, FormatText, false)
	assert.ErrorIs(t, err, object.ErrInvalidArgument)
}

func TestHistoryNewestFirst(t *testing.T) {
	s := newStore()

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.Copy([]byte(text), FormatText, false)
		require.NoError(t, err)
	}

	entries := s.History(0)
	require.Len(t, entries, 3)
	assert.Equal(t, []byte("three"), entries[0].Data)
	assert.Equal(t, []byte("one"), entries[2].Data)

	limited := s.History(2)
	require.Len(t, limited, 2)
	assert.Equal(t, []byte("three"), limited[0].Data)
}

func TestHistoryLimitEvictsOldest(t *testing.T) {
	s := newStore(WithHistoryLimit(2))

	for _, text := range []string{"a", "b", "c"} {
		_, err := s.Copy([]byte(text), FormatText, false)
		require.NoError(t, err)
	}

	entries := s.History(0)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte("c"), entries[0].Data)
	assert.Equal(t, []byte("b"), entries[1].Data)
}

func TestGetEntry(t *testing.T) {
	s := newStore()

	id, err := s.Copy([]byte("findme"), FormatHTML, false)
	require.NoError(t, err)

	entry, err := s.GetEntry(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("findme"), entry.Data)
	assert.Equal(t, FormatHTML, entry.Format)

	_, err = s.GetEntry(9999)
	assert.ErrorIs(t, err, object.ErrBadHandle)
}

func TestClear(t *testing.T) {
	s := newStore()

	_, err := s.Copy([]byte("gone"), FormatText, false)
	require.NoError(t, err)

	require.NoError(t, s.Clear(false))
	assert.Empty(t, s.History(0))

	_, err = s.Paste(false)
	assert.ErrorIs(t, err, object.ErrShouldWait)
}

func TestSeqAdvancesOnEveryChange(t *testing.T) {
	s := newStore()
	assert.Equal(t, uint64(0), s.Seq())

	_, err := s.Copy([]byte("x"), FormatText, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Seq())

	require.NoError(t, s.Clear(false))
	assert.Equal(t, uint64(2), s.Seq())
}

func TestFormatRegistration(t *testing.T) {
	s := newStore()

	formats := s.Formats()
	assert.Contains(t, formats, FormatText)
	assert.Contains(t, formats, FormatHTML)
	assert.Contains(t, formats, FormatBytes)

	_, err := s.Copy([]byte("{}"), "application/json", false)
	require.NoError(t, err)

	formats = s.Formats()
	assert.Contains(t, formats, "application/json")
	// IDs stay unique per format.
	seen := make(map[uint32]bool)
	for _, id := range formats {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestSubscriptionFiltering(t *testing.T) {
	s := newStore()

	s.Subscribe("app-1", []string{FormatText})
	s.Subscribe("app-2", nil)

	assert.True(t, s.Subscribed("app-1", FormatText))
	assert.False(t, s.Subscribed("app-1", FormatHTML))
	assert.True(t, s.Subscribed("app-2", FormatHTML))
	assert.False(t, s.Subscribed("unknown", FormatText))

	s.Unsubscribe("app-1")
	assert.False(t, s.Subscribed("app-1", FormatText))
}

func TestWatchDeliversEvents(t *testing.T) {
	s := newStore()

	ch, stop := s.Watch()
	defer stop()

	id, err := s.Copy([]byte("watched"), FormatText, false)
	require.NoError(t, err)

	event := <-ch
	assert.Equal(t, "copy", event.Type)
	require.NotNil(t, event.Entry)
	assert.Equal(t, id, event.Entry.ID)
	assert.Equal(t, uint64(1), event.Seq)

	require.NoError(t, s.Clear(false))
	event = <-ch
	assert.Equal(t, "clear", event.Type)
	assert.Nil(t, event.Entry)
}

func TestWatchStopIsIdempotent(t *testing.T) {
	s := newStore()

	_, stop := s.Watch()
	stop()
	stop()

	// Copy after stop must not panic on the closed channel.
	_, err := s.Copy([]byte("late"), FormatText, false)
	require.NoError(t, err)
}

func TestGlobalDisabledByDefault(t *testing.T) {
	s := newStore()

	_, err := s.Copy([]byte("x"), FormatText, true)
	assert.ErrorIs(t, err, object.ErrInvalidArgument)

	_, err = s.Paste(true)
	assert.ErrorIs(t, err, object.ErrInvalidArgument)

	err = s.Clear(true)
	assert.ErrorIs(t, err, object.ErrInvalidArgument)
}

func TestStats(t *testing.T) {
	s := newStore(WithHistoryLimit(50))

	_, err := s.Copy([]byte("abc"), FormatText, false)
	require.NoError(t, err)
	_, err = s.Copy([]byte("<p>hi</p>"), FormatHTML, false)
	require.NoError(t, err)
	s.Subscribe("app-1", nil)

	stats := s.Stats()
	assert.Equal(t, 2, stats["entries"])
	assert.Equal(t, 50, stats["history_limit"])
	assert.Equal(t, 12, stats["total_bytes"])
	assert.Equal(t, 1, stats["subscribers"])
	byFormat := stats["by_format"].(map[string]int)
	assert.Equal(t, 1, byFormat[FormatText])
	assert.Equal(t, 1, byFormat[FormatHTML])
}
