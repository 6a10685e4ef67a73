package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/aicall/plugin/ai"
	cerrors "github.com/hrygo/aicall/server/internal/errors"
	"github.com/hrygo/aicall/store"
)

func TestGenerateSummary(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)
	_, err = f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "今日の予定を教えて"})
	require.NoError(t, err)

	summaryLLM := &ai.MockLLM{Replies: []string{"## 今日のまとめ\n- 予定の確認をした"}}
	gen := NewSummaryGenerator(f.store, f.blobs, summaryLLM, testProfile())

	summary, err := gen.Generate(ctx, started.Session.UID)
	require.NoError(t, err)
	require.Equal(t, started.Session.UID, summary.SessionID)
	require.NotEmpty(t, summary.Text)
	require.NotEmpty(t, summary.StorageRef)

	// The stored artifact matches the returned text.
	data, err := f.blobs.Get(summary.StorageRef)
	require.NoError(t, err)
	require.Equal(t, summary.Text, string(data))

	// The prompt carried the role-labeled transcript.
	require.Len(t, summaryLLM.Calls, 1)
	require.Contains(t, summaryLLM.Calls[0][1].Content, "ユーザー: 今日の予定を教えて")

	// The transcript is untouched.
	_, turns, err := f.engine.Transcript(ctx, started.Session.UID)
	require.NoError(t, err)
	require.Len(t, turns, 3)
}

func TestGenerateSummaryRegeneratesWholesale(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)

	summaryLLM := &ai.MockLLM{Replies: []string{"first", "second"}}
	gen := NewSummaryGenerator(f.store, f.blobs, summaryLLM, testProfile())

	_, err = gen.Generate(ctx, started.Session.UID)
	require.NoError(t, err)
	second, err := gen.Generate(ctx, started.Session.UID)
	require.NoError(t, err)
	require.Equal(t, "second", second.Text)

	// Still one artifact row per session.
	artifact, err := f.store.GetSummaryArtifact(ctx, &store.FindSummaryArtifact{SessionID: &started.Session.ID})
	require.NoError(t, err)
	require.Equal(t, "second", artifact.Content)
}

func TestGenerateSummaryUnknownSession(t *testing.T) {
	f := newEngineFixture(t)
	gen := NewSummaryGenerator(f.store, f.blobs, &ai.MockLLM{}, testProfile())

	_, err := gen.Generate(context.Background(), "nope")
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeSessionNotFound))
}

func TestGenerateSummaryProviderFailure(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)

	gen := NewSummaryGenerator(f.store, f.blobs, &ai.MockLLM{Err: errors.New("down")}, testProfile())
	_, err = gen.Generate(ctx, started.Session.UID)
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeSummaryGenerationFailed))

	// Failure leaves no artifact behind.
	artifact, err := f.store.GetSummaryArtifact(ctx, &store.FindSummaryArtifact{SessionID: &started.Session.ID})
	require.NoError(t, err)
	require.Nil(t, artifact)
}
