package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory holding audio artifacts and the sqlite file
	Data string
	// DSN points to where aicall stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// AI provider configuration
	AIAPIKey          string // AICALL_AI_API_KEY
	AIBaseURL         string // AICALL_AI_BASE_URL (default: https://api.openai.com/v1)
	AIChatModel       string // AICALL_AI_CHAT_MODEL (default: gpt-4o-mini)
	AITranscribeModel string // AICALL_AI_TRANSCRIBE_MODEL (default: whisper-1)
	AISpeechModel     string // AICALL_AI_SPEECH_MODEL (default: tts-1)
	AISpeechVoice     string // AICALL_AI_SPEECH_VOICE (default: alloy)

	// Timezone is the IANA zone used for date partitioning of session
	// records. Empty means UTC.
	Timezone string // AICALL_TIMEZONE

	// Conversation engine configuration
	HistoryWindow     int           // AICALL_HISTORY_WINDOW: recent turns passed as reply context (default: 20)
	TranscribeTimeout time.Duration // AICALL_TRANSCRIBE_TIMEOUT (default: 30s)
	ReplyTimeout      time.Duration // AICALL_REPLY_TIMEOUT (default: 60s)
	SynthesisTimeout  time.Duration // AICALL_SYNTHESIS_TIMEOUT (default: 30s)
	SummaryTimeout    time.Duration // AICALL_SUMMARY_TIMEOUT (default: 60s)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// FromEnv loads configuration from AICALL_* environment variables.
func (p *Profile) FromEnv() {
	p.AIAPIKey = os.Getenv("AICALL_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("AICALL_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIChatModel = getEnvOrDefault("AICALL_AI_CHAT_MODEL", "gpt-4o-mini")
	p.AITranscribeModel = getEnvOrDefault("AICALL_AI_TRANSCRIBE_MODEL", "whisper-1")
	p.AISpeechModel = getEnvOrDefault("AICALL_AI_SPEECH_MODEL", "tts-1")
	p.AISpeechVoice = getEnvOrDefault("AICALL_AI_SPEECH_VOICE", "alloy")

	p.Timezone = os.Getenv("AICALL_TIMEZONE")

	p.HistoryWindow = getIntEnvOrDefault("AICALL_HISTORY_WINDOW", 20)
	p.TranscribeTimeout = getDurationEnvOrDefault("AICALL_TRANSCRIBE_TIMEOUT", 30*time.Second)
	p.ReplyTimeout = getDurationEnvOrDefault("AICALL_REPLY_TIMEOUT", 60*time.Second)
	p.SynthesisTimeout = getDurationEnvOrDefault("AICALL_SYNTHESIS_TIMEOUT", 30*time.Second)
	p.SummaryTimeout = getDurationEnvOrDefault("AICALL_SUMMARY_TIMEOUT", 60*time.Second)
}

// Validate normalizes the profile and verifies it can be served.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Data == "" {
		p.Data = "./data"
	}
	absData, err := filepath.Abs(p.Data)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve data directory %q", p.Data)
	}
	p.Data = absData
	if err := os.MkdirAll(p.Data, 0o750); err != nil {
		return errors.Wrapf(err, "failed to create data directory %q", p.Data)
	}

	switch p.Driver {
	case "", "sqlite":
		p.Driver = "sqlite"
		if p.DSN == "" {
			p.DSN = filepath.Join(p.Data, fmt.Sprintf("aicall_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
	default:
		return errors.Errorf("unsupported database driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.HistoryWindow <= 0 {
		p.HistoryWindow = 20
	}
	if p.Port <= 0 {
		p.Port = 8000
	}

	return nil
}
