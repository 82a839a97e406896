package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionEvents_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RecordSessionEvent("s1", "started", "component_id=comp1"))
	require.NoError(t, s.RecordSessionEvent("s1", "ended", ""))
	require.NoError(t, s.RecordSessionEvent("s2", "started", ""))

	events, err := s.SessionEvents("s1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ended", events[0].Event, "newest first")
	assert.Equal(t, "started", events[1].Event)
	assert.Equal(t, "component_id=comp1", events[1].Detail)
}

func TestExecutions_RoundTripAndLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.RecordExecution(Execution{
			SessionID:   "s1",
			CellID:      "c1",
			Success:     i%2 == 0,
			DurationMS:  int64(i * 10),
			OutputCount: i,
		}))
	}
	require.NoError(t, s.RecordExecution(Execution{
		SessionID: "s2", CellID: "other", Success: true,
	}))

	execs, err := s.RecentExecutions("s1", 3)
	require.NoError(t, err)
	require.Len(t, execs, 3)
	assert.Equal(t, int64(40), execs[0].DurationMS, "newest first")
	for _, e := range execs {
		assert.Equal(t, "s1", e.SessionID)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordSessionEvent("s1", "started", ""))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	events, err := s.SessionEvents("s1", 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
