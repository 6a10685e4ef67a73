package ai

import (
	"context"
	"io"
	"sync"
)

// MockLLM is an in-memory LLMService for tests. Replies are returned in
// order; once exhausted the last reply repeats. Safe for concurrent use.
type MockLLM struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	Calls [][]Message
	next  int
}

func (m *MockLLM) Chat(_ context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, messages)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", nil
	}
	reply := m.Replies[m.next]
	if m.next < len(m.Replies)-1 {
		m.next++
	}
	return reply, nil
}

// MockSpeech is an in-memory SpeechService for tests. Safe for concurrent
// use.
type MockSpeech struct {
	Text          string
	Audio         []byte
	TranscribeErr error
	SynthesizeErr error

	mu              sync.Mutex
	TranscribeCalls int
	SynthesizeCalls int
	Languages       []string
}

func (m *MockSpeech) Transcribe(_ context.Context, _ string, audio io.Reader, language string) (string, error) {
	m.mu.Lock()
	m.TranscribeCalls++
	m.Languages = append(m.Languages, language)
	m.mu.Unlock()
	if m.TranscribeErr != nil {
		return "", m.TranscribeErr
	}
	if _, err := io.ReadAll(audio); err != nil {
		return "", err
	}
	return m.Text, nil
}

func (m *MockSpeech) Synthesize(_ context.Context, _ string) ([]byte, error) {
	m.mu.Lock()
	m.SynthesizeCalls++
	m.mu.Unlock()
	if m.SynthesizeErr != nil {
		return nil, m.SynthesizeErr
	}
	return m.Audio, nil
}
