package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/aicall/internal/profile"
)

func newTestStore() *Store {
	return New(NewMockDriver(), &profile.Profile{})
}

func TestGetSessionByUIDMissing(t *testing.T) {
	s := newTestStore()
	session, err := s.GetSessionByUID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestSessionCacheRefreshedByAppend(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	session, err := s.CreateSession(ctx, &Session{UID: "s1", Mode: "default", PartitionDate: "2026-08-29"})
	require.NoError(t, err)

	mode := "topic-roulette"
	ts := int64(42)
	_, err = s.AppendExchange(ctx, []*Turn{
		{UID: "t1", SessionID: session.ID, Role: RoleAssistant, Content: "hi"},
	}, &UpdateSession{ID: session.ID, Mode: &mode, UpdatedTs: &ts})
	require.NoError(t, err)

	// A cached lookup sees the post-append state.
	cached, err := s.GetSessionByUID(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "topic-roulette", cached.Mode)
	require.Equal(t, int64(42), cached.UpdatedTs)
}

func TestDeleteSessionByUIDIdempotent(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	session, err := s.CreateSession(ctx, &Session{UID: "s1", Mode: "default"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSessionByUID(ctx, "s1"))
	require.NoError(t, s.DeleteSessionByUID(ctx, "s1"))

	turns, err := s.ListTurns(ctx, &FindTurn{SessionID: &session.ID})
	require.NoError(t, err)
	require.Empty(t, turns)

	got, err := s.GetSessionByUID(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, got)
}
