// Package apiv1 exposes the voice-chat HTTP surface. Binary audio travels in
// the response body; all text metadata rides in base64 side-channel headers
// so non-ASCII content survives the HTTP header layer.
package apiv1

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/aicall/internal/profile"
	"github.com/hrygo/aicall/server/conversation"
	cerrors "github.com/hrygo/aicall/server/internal/errors"
	"github.com/hrygo/aicall/server/internal/observability"
	"github.com/hrygo/aicall/store"
)

// Response headers carrying turn metadata.
const (
	HeaderSessionID        = "X-Session-Id"
	HeaderMode             = "X-Conversation-Mode"
	HeaderNextMode         = "X-Next-Mode"
	HeaderOriginalText     = "X-Original-Text-Base64"
	HeaderResponseText     = "X-Response-Text-Base64"
	HeaderAudioUnavailable = "X-Audio-Unavailable"
)

// VoiceChatService binds the conversation engine to the HTTP surface.
type VoiceChatService struct {
	Profile   *profile.Profile
	Store     *store.Store
	Engine    *conversation.Engine
	Summaries *conversation.SummaryGenerator
}

func NewVoiceChatService(profile *profile.Profile, st *store.Store, engine *conversation.Engine, summaries *conversation.SummaryGenerator) *VoiceChatService {
	return &VoiceChatService{
		Profile:   profile,
		Store:     st,
		Engine:    engine,
		Summaries: summaries,
	}
}

// RegisterRoutes mounts the voice-chat endpoints on the given group.
func (s *VoiceChatService) RegisterRoutes(g *echo.Group) {
	g.POST("/voice-chat/session/start", s.startSession)
	g.POST("/voice-chat/session/:sessionId/continue", s.continueSession)
	g.POST("/voice-chat/session/:sessionId/reset", s.resetSession)
	g.DELETE("/voice-chat/session/:sessionId", s.deleteSession)
	g.GET("/voice-chat/session/:sessionId/summary", s.getSummary)
}

func (s *VoiceChatService) startSession(c echo.Context) error {
	ctx, rc := s.requestContext(c, c.FormValue("session_id"))

	input, closer, err := turnInputFromForm(c)
	if err != nil {
		return s.errorResponse(c, rc, err)
	}
	if closer != nil {
		defer closer.Close()
	}

	outcome, err := s.Engine.StartSession(ctx, conversation.StartRequest{
		SessionID:    c.FormValue("session_id"),
		Mode:         c.FormValue("mode"),
		SystemPrompt: c.FormValue("system_prompt"),
		Input:        input,
	})
	if err != nil {
		return s.errorResponse(c, rc, err)
	}
	return writeTurnResponse(c, outcome)
}

func (s *VoiceChatService) continueSession(c echo.Context) error {
	sessionID := c.Param("sessionId")
	ctx, rc := s.requestContext(c, sessionID)

	input, closer, err := turnInputFromForm(c)
	if err != nil {
		return s.errorResponse(c, rc, err)
	}
	if closer != nil {
		defer closer.Close()
	}
	if input.Audio == nil && input.Text == "" {
		return s.errorResponse(c, rc, cerrors.InvalidInput("audio or text input is required"))
	}

	outcome, err := s.Engine.ContinueSession(ctx, sessionID, input)
	if err != nil {
		return s.errorResponse(c, rc, err)
	}
	return writeTurnResponse(c, outcome)
}

func (s *VoiceChatService) resetSession(c echo.Context) error {
	sessionID := c.Param("sessionId")
	ctx, rc := s.requestContext(c, sessionID)

	if err := s.Engine.ResetSession(ctx, sessionID); err != nil {
		return s.errorResponse(c, rc, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"session_id": sessionID, "status": "reset"})
}

func (s *VoiceChatService) deleteSession(c echo.Context) error {
	sessionID := c.Param("sessionId")
	ctx, rc := s.requestContext(c, sessionID)

	if err := s.Engine.DeleteSession(ctx, sessionID); err != nil {
		return s.errorResponse(c, rc, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"session_id": sessionID, "status": "deleted"})
}

func (s *VoiceChatService) getSummary(c echo.Context) error {
	sessionID := c.Param("sessionId")
	ctx, rc := s.requestContext(c, sessionID)

	summary, err := s.Summaries.Generate(ctx, sessionID)
	if err != nil {
		return s.errorResponse(c, rc, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"session_id":  summary.SessionID,
		"summary":     summary.Text,
		"storage_ref": summary.StorageRef,
	})
}

// requestContext builds the request-scoped logging context and threads it
// through the request's context.Context.
func (s *VoiceChatService) requestContext(c echo.Context, sessionID string) (context.Context, *observability.RequestContext) {
	rc := observability.NewRequestContext(slog.Default(), sessionID)
	return observability.WithRequestContext(c.Request().Context(), rc), rc
}

// turnInputFromForm extracts the user utterance from the multipart form.
// The returned closer, when non-nil, must be closed after the turn.
func turnInputFromForm(c echo.Context) (conversation.TurnInput, multipart.File, error) {
	input := conversation.TurnInput{
		Text:     c.FormValue("text"),
		Language: c.FormValue("language_code"),
	}

	header, err := c.FormFile("audio")
	if err != nil {
		// Absent file is fine; text-only turns carry no audio part.
		return input, nil, nil
	}
	file, err := header.Open()
	if err != nil {
		return input, nil, cerrors.InvalidInput("unreadable audio upload")
	}
	input.Audio = file
	input.Filename = header.Filename
	return input, file, nil
}

// writeTurnResponse renders a processed turn: MP3 body plus metadata headers.
func writeTurnResponse(c echo.Context, outcome *conversation.TurnOutcome) error {
	h := c.Response().Header()
	h.Set(HeaderSessionID, outcome.Session.UID)
	h.Set(HeaderMode, outcome.Session.Mode)
	if outcome.Session.NextMode != "" {
		h.Set(HeaderNextMode, outcome.Session.NextMode)
	}
	if outcome.UserText != "" {
		h.Set(HeaderOriginalText, base64.StdEncoding.EncodeToString([]byte(outcome.UserText)))
	}
	h.Set(HeaderResponseText, base64.StdEncoding.EncodeToString([]byte(outcome.ReplyText)))

	if outcome.AudioUnavailable || len(outcome.Audio) == 0 {
		h.Set(HeaderAudioUnavailable, "true")
		return c.NoContent(http.StatusOK)
	}
	return c.Blob(http.StatusOK, "audio/mpeg", outcome.Audio)
}

// statusForCode maps the error taxonomy onto HTTP statuses.
func statusForCode(code cerrors.ErrorCode) int {
	switch code {
	case cerrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case cerrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case cerrors.ErrCodeSessionConflict:
		return http.StatusConflict
	case cerrors.ErrCodeSessionBusy:
		return http.StatusTooManyRequests
	case cerrors.ErrCodeTranscriptionFailed:
		return http.StatusUnprocessableEntity
	case cerrors.ErrCodeReplyGenerationFailed, cerrors.ErrCodeSummaryGenerationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *VoiceChatService) errorResponse(c echo.Context, rc *observability.RequestContext, err error) error {
	code := cerrors.GetCodeFromError(err, cerrors.ErrCodeStoreFailed)
	status := statusForCode(code)
	rc.Error("request failed", err,
		slog.String(observability.LogFieldErrorCode, string(code)),
		slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
	)
	if code == cerrors.ErrCodeSessionBusy {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, map[string]string{
		"code":    string(code),
		"message": errorMessage(err),
	})
}

func errorMessage(err error) string {
	var convErr *cerrors.ConversationError
	if errors.As(err, &convErr) {
		return convErr.Message
	}
	return "internal error"
}
