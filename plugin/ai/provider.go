package ai

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// LLMService produces chat completions.
type LLMService interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// SpeechService converts between audio and text. The language is an
// ISO-639-1 hint for transcription; empty lets the model detect it.
type SpeechService interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader, language string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Provider implements LLMService and SpeechService on the OpenAI API.
type Provider struct {
	client *openai.Client
	config *Config
}

func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Chat performs a single chat completion attempt. Callers own the deadline
// and the retry policy.
func (p *Provider) Chat(ctx context.Context, messages []Message) (string, error) {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.config.ChatModel,
		Messages: llmMessages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}

	return resp.Choices[0].Message.Content, nil
}

// Transcribe converts spoken audio to text. The filename extension tells the
// API which container format the reader carries.
func (p *Provider) Transcribe(ctx context.Context, filename string, audio io.Reader, language string) (string, error) {
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.config.TranscribeModel,
		FilePath: filename,
		Reader:   audio,
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	return resp.Text, nil
}

// Synthesize renders text to spoken audio, returning the encoded bytes.
// The speech API takes no per-call language code; the configured voice
// carries the output locale.
func (p *Provider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(p.config.SpeechModel),
		Input: text,
		Voice: openai.SpeechVoice(p.config.SpeechVoice),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	return data, nil
}

// Validate checks the configuration without touching the network.
func (p *Provider) Validate() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("API key is required, set AICALL_AI_API_KEY")
	}
	return nil
}
