package conversation

import (
	"context"
	"io"
	"strings"

	"github.com/hrygo/aicall/internal/profile"
	"github.com/hrygo/aicall/plugin/ai"
	cerrors "github.com/hrygo/aicall/server/internal/errors"
	"github.com/hrygo/aicall/store"
)

// TurnInput is the inbound half of one exchange. Either Audio or Text is
// set; Audio wins when both are present.
type TurnInput struct {
	Audio    io.Reader
	Filename string
	Text     string
	Language string
}

func (in TurnInput) empty() bool {
	return in.Audio == nil && strings.TrimSpace(in.Text) == ""
}

// TurnResult is the outcome of one pipeline run. AudioErr is set when
// synthesis failed; the textual reply is still valid in that case.
type TurnResult struct {
	UserText  string
	ReplyText string
	Audio     []byte
	AudioErr  error
}

// Pipeline sequences the three provider calls of one turn: transcription,
// reply generation, synthesis. Each stage runs once under its own deadline
// and reports a typed failure; retrying belongs to the caller.
type Pipeline struct {
	llm     ai.LLMService
	speech  ai.SpeechService
	profile *profile.Profile
}

func NewPipeline(llm ai.LLMService, speech ai.SpeechService, profile *profile.Profile) *Pipeline {
	return &Pipeline{
		llm:     llm,
		speech:  speech,
		profile: profile,
	}
}

// Run executes a full turn: transcribe the input (when audio), generate the
// reply against the bounded history, then synthesize it.
func (p *Pipeline) Run(ctx context.Context, history []*store.Turn, systemPrompt, stepPrompt string, input TurnInput) (*TurnResult, error) {
	if input.empty() {
		return nil, cerrors.InvalidInput("audio or text input is required")
	}

	userText := strings.TrimSpace(input.Text)
	if input.Audio != nil {
		text, err := p.transcribe(ctx, input)
		if err != nil {
			return nil, err
		}
		userText = text
	}

	reply, err := p.generate(ctx, history, systemPrompt, stepPrompt, userText)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{UserText: userText, ReplyText: reply}
	result.Audio, result.AudioErr = p.synthesize(ctx, reply)
	return result, nil
}

// Greet executes the synthesize-only opening path: no user input, the reply
// is produced from the mode instructions alone.
func (p *Pipeline) Greet(ctx context.Context, systemPrompt, stepPrompt string) (*TurnResult, error) {
	reply, err := p.generate(ctx, nil, systemPrompt, stepPrompt, "")
	if err != nil {
		return nil, err
	}

	result := &TurnResult{ReplyText: reply}
	result.Audio, result.AudioErr = p.synthesize(ctx, reply)
	return result, nil
}

func (p *Pipeline) transcribe(ctx context.Context, input TurnInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.profile.TranscribeTimeout)
	defer cancel()

	filename := input.Filename
	if filename == "" {
		filename = "audio.mp3"
	}
	text, err := p.speech.Transcribe(ctx, filename, input.Audio, input.Language)
	if err != nil {
		return "", cerrors.TranscriptionFailed("transcription provider error", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", cerrors.TranscriptionFailed("empty transcription result", nil)
	}
	return text, nil
}

func (p *Pipeline) generate(ctx context.Context, history []*store.Turn, systemPrompt, stepPrompt, userText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.profile.ReplyTimeout)
	defer cancel()

	reply, err := p.llm.Chat(ctx, p.buildMessages(history, systemPrompt, stepPrompt, userText))
	if err != nil {
		return "", cerrors.ReplyGenerationFailed("chat provider error", err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", cerrors.ReplyGenerationFailed("empty reply", nil)
	}
	return reply, nil
}

func (p *Pipeline) synthesize(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.profile.SynthesisTimeout)
	defer cancel()

	audio, err := p.speech.Synthesize(ctx, text)
	if err != nil {
		return nil, cerrors.SynthesisFailed("synthesis provider error", err)
	}
	return audio, nil
}

// buildMessages assembles the LLM context: system instruction (mode persona
// plus the current flow step), the most recent HistoryWindow turns, then the
// new user text.
func (p *Pipeline) buildMessages(history []*store.Turn, systemPrompt, stepPrompt, userText string) []ai.Message {
	system := systemPrompt
	if stepPrompt != "" {
		system = system + "\n" + stepPrompt
	}

	if window := p.profile.HistoryWindow; window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: system})
	for _, turn := range history {
		role := ai.RoleUser
		if turn.Role == store.RoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}
	if userText != "" {
		messages = append(messages, ai.Message{Role: ai.RoleUser, Content: userText})
	}
	return messages
}
