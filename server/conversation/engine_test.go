package conversation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/aicall/plugin/ai"
	cerrors "github.com/hrygo/aicall/server/internal/errors"
	"github.com/hrygo/aicall/store"
	"github.com/hrygo/aicall/store/blob"
)

type engineFixture struct {
	engine *Engine
	store  *store.Store
	driver *store.MockDriver
	llm    *ai.MockLLM
	speech *ai.MockSpeech
	blobs  *blob.Store
	root   string
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	root := t.TempDir()
	blobs, err := blob.NewStore(root)
	require.NoError(t, err)

	driver := store.NewMockDriver()
	st := store.New(driver, testProfile())
	llm := &ai.MockLLM{Replies: []string{"こんにちは！", "それは良かったね。", "なるほど。"}}
	speech := &ai.MockSpeech{Text: "今日の予定を教えて", Audio: []byte("mp3-bytes")}

	engine := NewEngine(st, blobs, NewPipeline(llm, speech, testProfile()), DefaultCatalog(), FixedTopicPicker{Topic: "今日の一番の出来事"}, testProfile())
	return &engineFixture{
		engine: engine,
		store:  st,
		driver: driver,
		llm:    llm,
		speech: speech,
		blobs:  blobs,
		root:   root,
	}
}

func TestStartSessionGreeting(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	outcome, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Session.UID)
	require.Nil(t, outcome.UserTurn)
	require.NotNil(t, outcome.AssistantTurn)
	require.NotEmpty(t, outcome.ReplyText)

	// The greeting is already durable: transcript length 1.
	_, turns, err := f.engine.Transcript(ctx, outcome.Session.UID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, store.RoleAssistant, turns[0].Role)
}

func TestStartSessionWithInput(t *testing.T) {
	f := newEngineFixture(t)

	outcome, err := f.engine.StartSession(context.Background(), StartRequest{
		Input: TurnInput{Text: "おはよう"},
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.UserTurn)
	require.NotNil(t, outcome.AssistantTurn)

	_, turns, err := f.engine.Transcript(context.Background(), outcome.Session.UID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
}

func TestStartSessionUniqueIDs(t *testing.T) {
	f := newEngineFixture(t)

	type started struct {
		uid string
		err error
	}
	results := make(chan started, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := f.engine.StartSession(context.Background(), StartRequest{})
			if err != nil {
				results <- started{err: err}
				return
			}
			results <- started{uid: outcome.Session.UID}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for r := range results {
		require.NoError(t, r.err)
		require.False(t, seen[r.uid])
		seen[r.uid] = true
	}
	require.Len(t, seen, 8)
}

func TestStartSessionConflict(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartSession(ctx, StartRequest{SessionID: "client-1"})
	require.NoError(t, err)

	_, err = f.engine.StartSession(ctx, StartRequest{SessionID: "client-1"})
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeSessionConflict))
}

func TestContinueSessionFullScenario(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)

	outcome, err := f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "今日の予定を教えて"})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.ReplyText)

	_, turns, err := f.engine.Transcript(ctx, started.Session.UID)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, store.RoleAssistant, turns[0].Role)
	require.Equal(t, store.RoleUser, turns[1].Role)
	require.Equal(t, store.RoleAssistant, turns[2].Role)
	require.NotEmpty(t, turns[2].Content)
}

func TestContinueUnknownSession(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.ContinueSession(context.Background(), "nope", TurnInput{Text: "hi"})
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeSessionNotFound))

	// The failed continue must not have created anything.
	session, err := f.store.GetSessionByUID(context.Background(), "nope")
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestContinueReplyFailurePersistsNothing(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)

	f.llm.Err = errors.New("provider down")
	_, err = f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "hi"})
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeReplyGenerationFailed))

	// No orphan user turn.
	_, turns, err := f.engine.Transcript(ctx, started.Session.UID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestContinueAppendFailureCleansAudioArtifact(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)

	f.driver.FailAppend = errors.New("disk full")
	_, err = f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "hi"})
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeStoreFailed))

	// Only the greeting's artifact remains on disk.
	count := 0
	require.NoError(t, filepath.Walk(f.root, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			count++
		}
		return nil
	}))
	require.Equal(t, 1, count)
}

func TestContinueSynthesisFailureStillCommits(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)

	f.speech.SynthesizeErr = errors.New("tts down")
	outcome, err := f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "hi"})
	require.NoError(t, err)
	require.True(t, outcome.AudioUnavailable)
	require.NotEmpty(t, outcome.ReplyText)
	require.Empty(t, outcome.AssistantTurn.AudioRef)

	_, turns, err := f.engine.Transcript(ctx, started.Session.UID)
	require.NoError(t, err)
	require.Len(t, turns, 3)
}

func TestTokenMapDropsReleasedSessions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// Requests against ids that turn out not to exist must not pin a
	// token entry forever.
	for i := 0; i < 3; i++ {
		_, err := f.engine.ContinueSession(ctx, "nope", TurnInput{Text: "hi"})
		require.True(t, cerrors.IsCode(err, cerrors.ErrCodeSessionNotFound))
	}
	require.True(t, cerrors.IsCode(f.engine.ResetSession(ctx, "gone"), cerrors.ErrCodeSessionNotFound))
	require.NoError(t, f.engine.DeleteSession(ctx, "never-was"))

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)
	_, err = f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "hi"})
	require.NoError(t, err)

	f.engine.mu.Lock()
	n := len(f.engine.tokens)
	f.engine.mu.Unlock()
	require.Zero(t, n)
}

func TestSessionBusyRejection(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)

	release, err := f.engine.acquire(started.Session.UID)
	require.NoError(t, err)
	defer release()

	_, err = f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "hi"})
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeSessionBusy))
}

func TestModeTransitionAppliedOnContinue(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{Mode: ModeScheduledGreeting})
	require.NoError(t, err)
	require.Equal(t, ModeScheduledGreeting, started.Session.Mode)

	// Walk the greeting flow to its end; the transition back to default
	// becomes pending, then applies on the following turn.
	var session *store.Session
	for i := 0; i < 5; i++ {
		outcome, err := f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "うん"})
		require.NoError(t, err)
		session = outcome.Session
	}
	require.Equal(t, ModeScheduledGreeting, session.Mode)
	require.Equal(t, ModeDefault, session.NextMode)

	outcome, err := f.engine.ContinueSession(ctx, started.Session.UID, TurnInput{Text: "うん"})
	require.NoError(t, err)
	require.Equal(t, ModeDefault, outcome.Session.Mode)
	require.Empty(t, outcome.Session.NextMode)
}

func TestResetSessionRetainsTranscript(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{Mode: ModeTopicRoulette, SystemPrompt: "custom"})
	require.NoError(t, err)

	require.NoError(t, f.engine.ResetSession(ctx, started.Session.UID))

	session, turns, err := f.engine.Transcript(ctx, started.Session.UID)
	require.NoError(t, err)
	require.Equal(t, ModeDefault, session.Mode)
	require.Empty(t, session.NextMode)
	require.Empty(t, session.SystemPrompt)
	require.Len(t, turns, 1)
}

func TestResetUnknownSession(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.ResetSession(context.Background(), "nope")
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeSessionNotFound))
}

func TestDeleteSessionIdempotent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)
	uid := started.Session.UID

	require.NoError(t, f.engine.DeleteSession(ctx, uid))
	require.NoError(t, f.engine.DeleteSession(ctx, uid))

	_, err = f.engine.ContinueSession(ctx, uid, TurnInput{Text: "hi"})
	require.True(t, cerrors.IsCode(err, cerrors.ErrCodeSessionNotFound))
}

func TestDeleteSessionRemovesAudioArtifacts(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	started, err := f.engine.StartSession(ctx, StartRequest{})
	require.NoError(t, err)
	ref := started.AssistantTurn.AudioRef
	require.NotEmpty(t, ref)
	_, err = os.Stat(filepath.Join(f.root, ref))
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteSession(ctx, started.Session.UID))
	_, err = os.Stat(filepath.Join(f.root, ref))
	require.True(t, os.IsNotExist(err))
}
