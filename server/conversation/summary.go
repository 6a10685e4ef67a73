package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/aicall/internal/profile"
	"github.com/hrygo/aicall/plugin/ai"
	cerrors "github.com/hrygo/aicall/server/internal/errors"
	"github.com/hrygo/aicall/store"
	"github.com/hrygo/aicall/store/blob"
)

const summarySystemPrompt = "あなたは会話ログを要約するアシスタントです。" +
	"以下の会話から、話題・出来事・感情を3〜5行のMarkdownでまとめてください。" +
	"事実の捏造は禁止。日本語で出力すること。"

// Summary is the artifact a generation run hands back.
type Summary struct {
	SessionID  string
	Text       string
	StorageRef string
}

// SummaryGenerator derives a condensed artifact from a session's full
// transcript. Regeneration is wholesale; the transcript is never touched.
type SummaryGenerator struct {
	store   *store.Store
	blobs   *blob.Store
	llm     ai.LLMService
	profile *profile.Profile
}

func NewSummaryGenerator(st *store.Store, blobs *blob.Store, llm ai.LLMService, profile *profile.Profile) *SummaryGenerator {
	return &SummaryGenerator{
		store:   st,
		blobs:   blobs,
		llm:     llm,
		profile: profile,
	}
}

// Generate reads the complete transcript, produces the summary in one chat
// call, persists it and returns text plus storage reference.
func (g *SummaryGenerator) Generate(ctx context.Context, sessionID string) (*Summary, error) {
	session, err := g.store.GetSessionByUID(ctx, sessionID)
	if err != nil {
		return nil, cerrors.StoreFailed("failed to look up session", err)
	}
	if session == nil {
		return nil, cerrors.SessionNotFound(sessionID)
	}

	turns, err := g.store.ListTurns(ctx, &store.FindTurn{SessionID: &session.ID})
	if err != nil {
		return nil, cerrors.StoreFailed("failed to read transcript", err)
	}

	chatCtx, cancel := context.WithTimeout(ctx, g.profile.SummaryTimeout)
	defer cancel()
	text, err := g.llm.Chat(chatCtx, []ai.Message{
		{Role: ai.RoleSystem, Content: summarySystemPrompt},
		{Role: ai.RoleUser, Content: renderTranscript(turns)},
	})
	if err != nil {
		return nil, cerrors.SummaryGenerationFailed("chat provider error", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, cerrors.SummaryGenerationFailed("empty summary", nil)
	}

	storageRef := ""
	if g.blobs != nil {
		ref, err := g.blobs.Put(session.PartitionDate, "summary", blob.SummaryName(session.UID), []byte(text))
		if err != nil {
			return nil, cerrors.StoreFailed("failed to store summary artifact", err)
		}
		storageRef = ref
	}

	if _, err := g.store.UpsertSummaryArtifact(ctx, &store.SummaryArtifact{
		SessionID:     session.ID,
		PartitionDate: session.PartitionDate,
		Content:       text,
		StorageRef:    storageRef,
		CreatedTs:     time.Now().Unix(),
	}); err != nil {
		return nil, cerrors.StoreFailed("failed to persist summary artifact", err)
	}

	return &Summary{
		SessionID:  session.UID,
		Text:       text,
		StorageRef: storageRef,
	}, nil
}

// renderTranscript flattens the turn history into a role-labeled plain-text
// block for the summarization prompt.
func renderTranscript(turns []*store.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		label := "ユーザー"
		if turn.Role == store.RoleAssistant {
			label = "アシスタント"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, turn.Content)
	}
	return b.String()
}
