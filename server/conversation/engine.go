// Package conversation implements the voice session engine: mode-aware,
// resumable multi-turn dialogue with a durable transcript behind it.
package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/semaphore"

	"github.com/hrygo/aicall/internal/profile"
	cerrors "github.com/hrygo/aicall/server/internal/errors"
	"github.com/hrygo/aicall/server/internal/observability"
	"github.com/hrygo/aicall/server/timezone"
	"github.com/hrygo/aicall/store"
	"github.com/hrygo/aicall/store/blob"
)

// StartRequest carries the parameters of an explicit session start.
type StartRequest struct {
	// SessionID is the optional client-supplied id. Empty means generate.
	SessionID string
	// Mode is the requested conversation mode; empty picks the default.
	Mode string
	// SystemPrompt overrides the mode's base instruction when non-empty.
	SystemPrompt string
	// Input is the optional first user utterance. When absent the session
	// opens with an assistant greeting.
	Input TurnInput
}

// TurnOutcome is what one processed turn hands back to the transport layer.
type TurnOutcome struct {
	Session       *store.Session
	UserTurn      *store.Turn
	AssistantTurn *store.Turn
	UserText      string
	ReplyText     string
	Audio         []byte
	// AudioUnavailable is set when synthesis failed; the text reply is
	// still authoritative.
	AudioUnavailable bool
}

// Engine owns session lifecycle and turn processing. Turns within one
// session are strictly serialized by a per-session ownership token; a
// request that finds the token taken is rejected with SessionBusy.
type Engine struct {
	store    *store.Store
	blobs    *blob.Store
	pipeline *Pipeline
	catalog  Catalog
	picker   TopicPicker
	profile  *profile.Profile

	// loc is the zone session partition dates are computed in.
	loc *time.Location

	mu     sync.Mutex
	tokens map[string]*semaphore.Weighted
}

func NewEngine(st *store.Store, blobs *blob.Store, pipeline *Pipeline, catalog Catalog, picker TopicPicker, profile *profile.Profile) *Engine {
	if picker == nil {
		picker = RandomTopicPicker{}
	}
	loc, err := timezone.ParseTimezone(profile.Timezone)
	if err != nil {
		slog.Warn("falling back to UTC", slog.String("error", err.Error()))
	}
	return &Engine{
		store:    st,
		blobs:    blobs,
		pipeline: pipeline,
		catalog:  catalog,
		picker:   picker,
		profile:  profile,
		loc:      loc,
		tokens:   make(map[string]*semaphore.Weighted),
	}
}

// acquire takes the per-session ownership token without blocking. The
// returned release must be called on every exit path.
func (e *Engine) acquire(uid string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	token, ok := e.tokens[uid]
	if !ok {
		token = semaphore.NewWeighted(1)
		e.tokens[uid] = token
	}
	if !token.TryAcquire(1) {
		return nil, cerrors.SessionBusy(uid)
	}
	return func() { e.release(uid, token) }, nil
}

// release returns the token and drops its map entry; the map holds entries
// only for in-flight requests, so unknown or bogus ids never accumulate.
func (e *Engine) release(uid string, token *semaphore.Weighted) {
	e.mu.Lock()
	token.Release(1)
	delete(e.tokens, uid)
	e.mu.Unlock()
}

// StartSession creates a session and produces its first exchange. With user
// input the first exchange is user+assistant; without it, AI-initiated modes
// open with a greeting turn alone.
func (e *Engine) StartSession(ctx context.Context, req StartRequest) (*TurnOutcome, error) {
	uid := strings.TrimSpace(req.SessionID)
	clientSupplied := uid != ""
	if !clientSupplied {
		uid = shortuuid.New()
	}

	release, err := e.acquire(uid)
	if err != nil {
		return nil, err
	}
	defer release()

	if clientSupplied {
		existing, err := e.store.GetSessionByUID(ctx, uid)
		if err != nil {
			return nil, cerrors.StoreFailed("failed to look up session", err)
		}
		if existing != nil {
			return nil, cerrors.SessionConflict(uid)
		}
	}

	state, err := Resolve("", 0, req.Mode, e.catalog)
	if err != nil {
		return nil, err
	}
	spec := e.catalog.Spec(state.Current)

	systemPrompt := spec.SystemPrompt
	if strings.TrimSpace(req.SystemPrompt) != "" {
		systemPrompt = req.SystemPrompt
	}
	if spec.PickTopic {
		if topic := e.picker.Pick(e.catalog.Topics); topic != "" {
			systemPrompt = systemPrompt + "\n今日のお題：「" + topic + "」"
		}
	}

	rc := observability.FromContext(ctx)
	rc.SessionID = uid
	rc.Mode = state.Current

	var result *TurnResult
	userTurns := 0
	if !req.Input.empty() {
		result, err = e.pipeline.Run(ctx, nil, systemPrompt, e.catalog.StepPrompt(state.Current, 0), req.Input)
		userTurns = 1
	} else {
		if !spec.AIInitiated {
			return nil, cerrors.InvalidInput("audio or text input is required")
		}
		result, err = e.pipeline.Greet(ctx, systemPrompt, e.catalog.StepPrompt(state.Current, 0))
	}
	if err != nil {
		return nil, err
	}

	next := Advance(state.Current, userTurns, e.catalog)
	now := time.Now().Unix()
	session := &store.Session{
		UID:           uid,
		PartitionDate: timezone.PartitionDate(time.Now(), e.loc),
		Mode:          next.Current,
		NextMode:      next.Pending,
		SystemPrompt:  req.SystemPrompt,
		CreatedTs:     now,
		UpdatedTs:     now,
	}
	session, err = e.store.CreateSession(ctx, session)
	if err != nil {
		return nil, cerrors.StoreFailed("failed to create session", err)
	}

	outcome, err := e.persistExchange(ctx, session, result)
	if err != nil {
		return nil, err
	}
	rc.Info("session started", slog.Int("turns", userTurns+1))
	return outcome, nil
}

// ContinueSession processes one inbound turn on an existing session. It
// never creates a session.
func (e *Engine) ContinueSession(ctx context.Context, sessionID string, input TurnInput) (*TurnOutcome, error) {
	release, err := e.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := e.store.GetSessionByUID(ctx, sessionID)
	if err != nil {
		return nil, cerrors.StoreFailed("failed to look up session", err)
	}
	if session == nil {
		return nil, cerrors.SessionNotFound(sessionID)
	}
	// Work on a copy so a failed turn never leaks half-applied mode state
	// into the session cache.
	clone := *session
	session = &clone

	// A pending transition takes effect as this turn begins.
	state := ModeState{Current: session.Mode, Pending: session.NextMode}.Apply()
	spec := e.catalog.Spec(state.Current)
	systemPrompt := spec.SystemPrompt
	if strings.TrimSpace(session.SystemPrompt) != "" {
		systemPrompt = session.SystemPrompt
	}

	rc := observability.FromContext(ctx)
	rc.SessionID = sessionID
	rc.Mode = state.Current

	history, err := e.store.ListTurns(ctx, &store.FindTurn{SessionID: &session.ID})
	if err != nil {
		return nil, cerrors.StoreFailed("failed to read transcript", err)
	}
	userTurns := countUserTurns(history)

	result, err := e.pipeline.Run(ctx, history, systemPrompt, e.catalog.StepPrompt(state.Current, userTurns), input)
	if err != nil {
		return nil, err
	}

	next := Advance(state.Current, userTurns+1, e.catalog)
	session.Mode = next.Current
	session.NextMode = next.Pending

	outcome, err := e.persistExchange(ctx, session, result)
	if err != nil {
		return nil, err
	}
	rc.Info("turn processed", slog.Int("turns", len(history)+len(outcomeTurns(outcome))))
	return outcome, nil
}

// persistExchange appends the exchange atomically together with the session's
// mode update. Synthesized audio goes to the blob store first; on any append
// failure the artifact is released so no orphan file survives.
func (e *Engine) persistExchange(ctx context.Context, session *store.Session, result *TurnResult) (*TurnOutcome, error) {
	now := time.Now().Unix()
	turns := []*store.Turn{}

	var userTurn *store.Turn
	if result.UserText != "" {
		userTurn = &store.Turn{
			UID:       shortuuid.New(),
			SessionID: session.ID,
			Role:      store.RoleUser,
			Content:   result.UserText,
			CreatedTs: now,
		}
		turns = append(turns, userTurn)
	}

	assistantTurn := &store.Turn{
		UID:       shortuuid.New(),
		SessionID: session.ID,
		Role:      store.RoleAssistant,
		Content:   result.ReplyText,
		CreatedTs: now,
	}

	audioRef := ""
	if result.AudioErr == nil && len(result.Audio) > 0 && e.blobs != nil {
		ref, err := e.blobs.Put(session.PartitionDate, "audio", blob.AudioName(assistantTurn.UID), result.Audio)
		if err != nil {
			// Audio is an enhancement; the turn still commits.
			observability.FromContext(ctx).Warn("failed to store audio artifact", slog.String("error", err.Error()))
		} else {
			audioRef = ref
		}
	}
	assistantTurn.AudioRef = audioRef
	turns = append(turns, assistantTurn)

	update := &store.UpdateSession{
		ID:        session.ID,
		Mode:      &session.Mode,
		NextMode:  &session.NextMode,
		UpdatedTs: &now,
	}
	if _, err := e.store.AppendExchange(ctx, turns, update); err != nil {
		if audioRef != "" {
			_ = e.blobs.Delete(audioRef)
		}
		return nil, cerrors.StoreFailed("failed to append exchange", err)
	}

	return &TurnOutcome{
		Session:          session,
		UserTurn:         userTurn,
		AssistantTurn:    assistantTurn,
		UserText:         result.UserText,
		ReplyText:        result.ReplyText,
		Audio:            result.Audio,
		AudioUnavailable: result.AudioErr != nil,
	}, nil
}

// ResetSession clears mode state so the next continue behaves like a cold
// start. The transcript is retained.
func (e *Engine) ResetSession(ctx context.Context, sessionID string) error {
	release, err := e.acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	session, err := e.store.GetSessionByUID(ctx, sessionID)
	if err != nil {
		return cerrors.StoreFailed("failed to look up session", err)
	}
	if session == nil {
		return cerrors.SessionNotFound(sessionID)
	}

	mode := e.catalog.Default
	empty := ""
	now := time.Now().Unix()
	if _, err := e.store.UpdateSession(ctx, &store.UpdateSession{
		ID:           session.ID,
		Mode:         &mode,
		NextMode:     &empty,
		SystemPrompt: &empty,
		UpdatedTs:    &now,
	}); err != nil {
		return cerrors.StoreFailed("failed to reset session", err)
	}
	return nil
}

// DeleteSession removes the session, its transcript, its summary and its
// audio artifacts. Deleting an unknown session is a no-op.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	release, err := e.acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	session, err := e.store.GetSessionByUID(ctx, sessionID)
	if err != nil {
		return cerrors.StoreFailed("failed to look up session", err)
	}
	if session == nil {
		return nil
	}

	// Collect artifact refs before the rows go away. Removal is best
	// effort; a leftover file never blocks the delete.
	refs := []string{}
	if turns, err := e.store.ListTurns(ctx, &store.FindTurn{SessionID: &session.ID}); err == nil {
		for _, turn := range turns {
			if turn.AudioRef != "" {
				refs = append(refs, turn.AudioRef)
			}
		}
	}
	if artifact, err := e.store.GetSummaryArtifact(ctx, &store.FindSummaryArtifact{SessionID: &session.ID}); err == nil && artifact != nil && artifact.StorageRef != "" {
		refs = append(refs, artifact.StorageRef)
	}

	if err := e.store.DeleteSessionByUID(ctx, sessionID); err != nil {
		return cerrors.StoreFailed("failed to delete session", err)
	}
	if e.blobs != nil {
		_ = e.blobs.DeleteAll(refs)
	}
	return nil
}

// Transcript returns the full ordered turn history of a session.
func (e *Engine) Transcript(ctx context.Context, sessionID string) (*store.Session, []*store.Turn, error) {
	session, err := e.store.GetSessionByUID(ctx, sessionID)
	if err != nil {
		return nil, nil, cerrors.StoreFailed("failed to look up session", err)
	}
	if session == nil {
		return nil, nil, cerrors.SessionNotFound(sessionID)
	}
	turns, err := e.store.ListTurns(ctx, &store.FindTurn{SessionID: &session.ID})
	if err != nil {
		return nil, nil, cerrors.StoreFailed("failed to read transcript", err)
	}
	return session, turns, nil
}

func countUserTurns(turns []*store.Turn) int {
	n := 0
	for _, turn := range turns {
		if turn.Role == store.RoleUser {
			n++
		}
	}
	return n
}

func outcomeTurns(o *TurnOutcome) []*store.Turn {
	turns := []*store.Turn{}
	if o.UserTurn != nil {
		turns = append(turns, o.UserTurn)
	}
	if o.AssistantTurn != nil {
		turns = append(turns, o.AssistantTurn)
	}
	return turns
}
