package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/aicall/internal/profile"
	"github.com/hrygo/aicall/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return driver
}

func createTestSession(t *testing.T, driver store.Driver, uid string) *store.Session {
	t.Helper()
	session, err := driver.CreateSession(context.Background(), &store.Session{
		UID:           uid,
		PartitionDate: "2026-08-29",
		Mode:          "default",
		CreatedTs:     100,
		UpdatedTs:     100,
	})
	require.NoError(t, err)
	return session
}

func TestSessionCRUD(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	session := createTestSession(t, driver, "s1")
	require.NotZero(t, session.ID)

	uid := "s1"
	found, err := driver.ListSessions(ctx, &store.FindSession{UID: &uid})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "default", found[0].Mode)

	mode := "topic-roulette"
	next := "default"
	ts := int64(200)
	updated, err := driver.UpdateSession(ctx, &store.UpdateSession{
		ID:        session.ID,
		Mode:      &mode,
		NextMode:  &next,
		UpdatedTs: &ts,
	})
	require.NoError(t, err)
	require.Equal(t, "topic-roulette", updated.Mode)
	require.Equal(t, "default", updated.NextMode)
	require.Equal(t, int64(200), updated.UpdatedTs)

	require.NoError(t, driver.DeleteSession(ctx, &store.DeleteSession{ID: session.ID}))
	found, err = driver.ListSessions(ctx, &store.FindSession{UID: &uid})
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestAppendExchangeOrdering(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	a := createTestSession(t, driver, "a")
	b := createTestSession(t, driver, "b")

	// Interleave appends across two sessions.
	for i := 0; i < 3; i++ {
		for _, s := range []*store.Session{a, b} {
			turns := []*store.Turn{
				{UID: s.UID + "-u" + string(rune('0'+i)), SessionID: s.ID, Role: store.RoleUser, Content: "q", CreatedTs: int64(i)},
				{UID: s.UID + "-a" + string(rune('0'+i)), SessionID: s.ID, Role: store.RoleAssistant, Content: "r", CreatedTs: int64(i)},
			}
			_, err := driver.AppendExchange(ctx, turns, nil)
			require.NoError(t, err)
		}
	}

	for _, s := range []*store.Session{a, b} {
		turns, err := driver.ListTurns(ctx, &store.FindTurn{SessionID: &s.ID})
		require.NoError(t, err)
		require.Len(t, turns, 6)
		for i := 1; i < len(turns); i++ {
			require.Greater(t, turns[i].ID, turns[i-1].ID)
		}
		require.Equal(t, store.RoleUser, turns[0].Role)
		require.Equal(t, store.RoleAssistant, turns[1].Role)
	}
}

func TestAppendExchangeUpdatesSession(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	session := createTestSession(t, driver, "s1")
	mode := "scheduled-greeting"
	ts := int64(300)
	turns := []*store.Turn{
		{UID: "t1", SessionID: session.ID, Role: store.RoleAssistant, Content: "hi", CreatedTs: 1},
	}
	_, err := driver.AppendExchange(ctx, turns, &store.UpdateSession{
		ID:        session.ID,
		Mode:      &mode,
		UpdatedTs: &ts,
	})
	require.NoError(t, err)
	require.NotZero(t, turns[0].ID)

	uid := "s1"
	found, err := driver.ListSessions(ctx, &store.FindSession{UID: &uid})
	require.NoError(t, err)
	require.Equal(t, "scheduled-greeting", found[0].Mode)
	require.Equal(t, int64(300), found[0].UpdatedTs)
}

func TestSummaryArtifactUpsert(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	session := createTestSession(t, driver, "s1")

	first, err := driver.UpsertSummaryArtifact(ctx, &store.SummaryArtifact{
		SessionID:     session.ID,
		PartitionDate: session.PartitionDate,
		Content:       "v1",
		StorageRef:    "ref1",
		CreatedTs:     1,
	})
	require.NoError(t, err)

	second, err := driver.UpsertSummaryArtifact(ctx, &store.SummaryArtifact{
		SessionID:     session.ID,
		PartitionDate: session.PartitionDate,
		Content:       "v2",
		StorageRef:    "ref2",
		CreatedTs:     2,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	artifact, err := driver.GetSummaryArtifact(ctx, &store.FindSummaryArtifact{SessionID: &session.ID})
	require.NoError(t, err)
	require.Equal(t, "v2", artifact.Content)
	require.Equal(t, "ref2", artifact.StorageRef)
}

func TestGetSummaryArtifactMissing(t *testing.T) {
	driver := newTestDriver(t)
	session := createTestSession(t, driver, "s1")

	artifact, err := driver.GetSummaryArtifact(context.Background(), &store.FindSummaryArtifact{SessionID: &session.ID})
	require.NoError(t, err)
	require.Nil(t, artifact)
}

func TestDeleteSessionCascades(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	session := createTestSession(t, driver, "s1")
	_, err := driver.AppendExchange(ctx, []*store.Turn{
		{UID: "t1", SessionID: session.ID, Role: store.RoleAssistant, Content: "hi", CreatedTs: 1},
	}, nil)
	require.NoError(t, err)
	_, err = driver.UpsertSummaryArtifact(ctx, &store.SummaryArtifact{
		SessionID: session.ID, PartitionDate: session.PartitionDate, Content: "sum", CreatedTs: 1,
	})
	require.NoError(t, err)

	require.NoError(t, driver.DeleteSession(ctx, &store.DeleteSession{ID: session.ID}))

	turns, err := driver.ListTurns(ctx, &store.FindTurn{SessionID: &session.ID})
	require.NoError(t, err)
	require.Empty(t, turns)
	artifact, err := driver.GetSummaryArtifact(ctx, &store.FindSummaryArtifact{SessionID: &session.ID})
	require.NoError(t, err)
	require.Nil(t, artifact)
}
