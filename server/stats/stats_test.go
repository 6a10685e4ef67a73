package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/aicall/internal/profile"
	"github.com/hrygo/aicall/server/timezone"
	"github.com/hrygo/aicall/store"
)

func TestCollect(t *testing.T) {
	st := store.New(store.NewMockDriver(), &profile.Profile{})
	ctx := context.Background()

	today := timezone.PartitionDate(time.Now(), time.UTC)
	session, err := st.CreateSession(ctx, &store.Session{UID: "s1", Mode: "default", PartitionDate: today})
	require.NoError(t, err)
	_, err = st.CreateSession(ctx, &store.Session{UID: "s2", Mode: "default", PartitionDate: "2001-01-01"})
	require.NoError(t, err)

	_, err = st.AppendExchange(ctx, []*store.Turn{
		{UID: "t1", SessionID: session.ID, Role: store.RoleUser, Content: "q"},
		{UID: "t2", SessionID: session.ID, Role: store.RoleAssistant, Content: "r", AudioRef: "a/b.mp3"},
	}, nil)
	require.NoError(t, err)

	collector := NewCollector(st, time.UTC)
	s, err := collector.Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, s.TotalSessions)
	require.Equal(t, 1, s.SessionsToday)
	require.Equal(t, 2, s.TotalTurns)
	require.Equal(t, 1, s.UserTurns)
	require.Equal(t, 1, s.TotalAudio)
}

func TestCollectServesCachedSnapshot(t *testing.T) {
	st := store.New(store.NewMockDriver(), &profile.Profile{})
	ctx := context.Background()

	collector := NewCollector(st, time.UTC)
	first, err := collector.Collect(ctx)
	require.NoError(t, err)

	_, err = st.CreateSession(ctx, &store.Session{UID: "s1", Mode: "default"})
	require.NoError(t, err)

	// Within the cache TTL the old snapshot is served.
	second, err := collector.Collect(ctx)
	require.NoError(t, err)
	require.Equal(t, first.TotalSessions, second.TotalSessions)
}
