package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, path string) *Storage {
	t.Helper()
	s, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestFetchCommandHistoryEmpty(t *testing.T) {
	s := newTestStorage(t, filepath.Join(t.TempDir(), "data.json"))
	defer s.Close()

	history, err := s.FetchCommandHistory("g1")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestAppendCommandToHistoryKeepsLatest(t *testing.T) {
	s := newTestStorage(t, filepath.Join(t.TempDir(), "data.json"))
	defer s.Close()

	for i := range commandHistoryLimit + 5 {
		require.NoError(t, s.AppendCommandToHistory("g1", CommandHistoryRecord{
			Command:  fmt.Sprintf("cmd%d", i),
			Datetime: time.Unix(int64(i), 0),
		}))
	}

	history, err := s.FetchCommandHistory("g1")
	require.NoError(t, err)
	require.Len(t, history, commandHistoryLimit)
	assert.Equal(t, "cmd5", history[0].Command)
	assert.Equal(t, fmt.Sprintf("cmd%d", commandHistoryLimit+4), history[len(history)-1].Command)

	other, err := s.FetchCommandHistory("g2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCommandHistoryPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := newTestStorage(t, path)
	require.NoError(t, s.AppendCommandToHistory("g1", CommandHistoryRecord{
		UserID:   "u1",
		Username: "alice",
		Command:  "speak",
		Param:    "こんにちは",
	}))
	require.NoError(t, s.Close())

	reopened := newTestStorage(t, path)
	defer reopened.Close()

	history, err := reopened.FetchCommandHistory("g1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].Username)
	assert.Equal(t, "こんにちは", history[0].Param)
}
