package queue

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promoreg/internal/registration/models"
)

func TestBounded_FIFO(t *testing.T) {
	q := NewBounded[int](10)
	for i := 1; i <= 3; i++ {
		_, evicted := q.Push(i)
		assert.False(t, evicted)
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestBounded_EvictsOldestWhenFull(t *testing.T) {
	q := NewBounded[string](2)
	q.Push("a")
	q.Push("b")

	oldest, evicted := q.Push("c")
	assert.True(t, evicted)
	assert.Equal(t, "a", oldest)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []string{"b", "c"}, q.Snapshot())
}

func TestBounded_NeverExceedsCapacity(t *testing.T) {
	q := NewBounded[int](5)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Push(i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, q.Len())
}

func TestBackupWriter_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.jsonl")
	w := NewBackupWriter(path)

	rec := &models.Record{
		FullName:            "สมชาย ใจดี",
		Phone:               "0812345678",
		PlatformUserID:      "6456789012",
		MembershipStatus:    models.MembershipInGroup,
		SubmittedAt:         time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC),
		AssignedDestination: models.PendingDestination,
	}
	require.NoError(t, w.Append(rec, "store unavailable", 5))
	require.NoError(t, w.Append(rec, "store unavailable", 5))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var parsed struct {
			Record   []string `json:"record"`
			Reason   string   `json:"reason"`
			Attempts int      `json:"attempts"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &parsed))
		assert.Equal(t, "สมชาย ใจดี", parsed.Record[0])
		assert.Equal(t, "store unavailable", parsed.Reason)
		assert.Equal(t, 5, parsed.Attempts)
		lines++
	}
	assert.Equal(t, 2, lines)
}
