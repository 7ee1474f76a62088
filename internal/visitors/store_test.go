package visitors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

	visits := []Visit{
		{HashedIP: "aaaa", Path: "/", UserAgent: "firefox", Timestamp: now.Add(-1 * time.Hour)},
		{HashedIP: "aaaa", Path: "/", UserAgent: "firefox", Timestamp: now.Add(-2 * time.Hour)},
		{HashedIP: "bbbb", Path: "/", UserAgent: "curl", Timestamp: now.Add(-20 * time.Hour)},
		{HashedIP: "cccc", Path: "/other", UserAgent: "curl", Timestamp: now.Add(-3 * 24 * time.Hour)},
		{HashedIP: "dddd", Path: "/", UserAgent: "curl", Timestamp: now.Add(-30 * 24 * time.Hour)},
	}
	for _, v := range visits {
		require.NoError(t, s.Record(ctx, v))
	}

	stats, err := s.Stats(ctx, now)
	require.NoError(t, err)

	assert.EqualValues(t, 5, stats.TotalVisitors)
	assert.EqualValues(t, 4, stats.UniqueVisitors)
	assert.EqualValues(t, 2, stats.VisitorsToday)
	assert.EqualValues(t, 4, stats.VisitorsThisWeek)
	assert.Equal(t, []PathStat{{Path: "/", Views: 4}, {Path: "/other", Views: 1}}, stats.TopPaths)

	require.Len(t, stats.RecentVisitors, 5)
	assert.Equal(t, "aaaa", stats.RecentVisitors[0].HashedIP)
	assert.True(t, stats.RecentVisitors[0].Timestamp.Equal(now.Add(-1*time.Hour)))
	assert.Equal(t, "dddd", stats.RecentVisitors[4].HashedIP)
}

func TestStatsEmpty(t *testing.T) {
	s := openStore(t)

	stats, err := s.Stats(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVisitors)
	assert.Empty(t, stats.TopPaths)
	assert.Empty(t, stats.RecentVisitors)
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	before := time.Now()
	require.NoError(t, s.Record(ctx, Visit{HashedIP: "aaaa", Path: "/"}))

	recent, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.False(t, recent[0].Timestamp.Before(before))
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	now := time.Now()

	require.NoError(t, s.Record(ctx, Visit{HashedIP: "old", Path: "/", Timestamp: now.Add(-400 * 24 * time.Hour)}))
	require.NoError(t, s.Record(ctx, Visit{HashedIP: "new", Path: "/", Timestamp: now}))

	removed, err := s.Prune(ctx, now.Add(-365*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].HashedIP)
}

func TestRunRetention(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Record(context.Background(), Visit{
		HashedIP:  "old",
		Path:      "/",
		Timestamp: time.Now().Add(-48 * time.Hour),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunRetention(ctx, time.Hour, 24*time.Hour, zap.NewNop())
	}()

	require.Eventually(t, func() bool {
		recent, err := s.Recent(context.Background(), 10)
		return err == nil && len(recent) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention loop did not stop")
	}
}

func TestHasher(t *testing.T) {
	h1, err := NewHasher()
	require.NoError(t, err)
	h2, err := NewHasher()
	require.NoError(t, err)

	a := h1.Hash("203.0.113.7")
	assert.Len(t, a, 16)
	assert.Equal(t, a, h1.Hash("203.0.113.7"))
	assert.NotEqual(t, a, h1.Hash("203.0.113.8"))
	assert.NotEqual(t, a, h2.Hash("203.0.113.7"), "salts differ per hasher")
}
