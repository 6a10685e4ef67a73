package ai

import (
	"time"

	"github.com/hrygo/aicall/internal/profile"
)

// Config holds the AI provider configuration.
type Config struct {
	BaseURL         string
	APIKey          string
	ChatModel       string
	TranscribeModel string
	SpeechModel     string
	SpeechVoice     string
	Timeout         time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://api.openai.com/v1",
		ChatModel:       "gpt-4o-mini",
		TranscribeModel: "whisper-1",
		SpeechModel:     "tts-1",
		SpeechVoice:     "alloy",
		Timeout:         30 * time.Second,
	}
}

// ConfigFromProfile maps server profile settings onto a provider config.
func ConfigFromProfile(p *profile.Profile) *Config {
	cfg := DefaultConfig()
	if p.AIBaseURL != "" {
		cfg.BaseURL = p.AIBaseURL
	}
	cfg.APIKey = p.AIAPIKey
	if p.AIChatModel != "" {
		cfg.ChatModel = p.AIChatModel
	}
	if p.AITranscribeModel != "" {
		cfg.TranscribeModel = p.AITranscribeModel
	}
	if p.AISpeechModel != "" {
		cfg.SpeechModel = p.AISpeechModel
	}
	if p.AISpeechVoice != "" {
		cfg.SpeechVoice = p.AISpeechVoice
	}
	return cfg
}
