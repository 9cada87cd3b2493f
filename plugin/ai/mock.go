package ai

import (
	"context"
	"strings"
	"sync"
)

// MockLLMService is a scripted LLMService for offline mode and tests.
type MockLLMService struct {
	// ChatFunc overrides the default echo behaviour when set.
	ChatFunc func(ctx context.Context, messages []Message) (string, error)

	mu    sync.Mutex
	calls [][]Message
}

var _ LLMService = (*MockLLMService)(nil)

// NewMockLLMService returns a mock that always answers with reply.
func NewMockLLMService(reply string) *MockLLMService {
	return &MockLLMService{
		ChatFunc: func(context.Context, []Message) (string, error) {
			return reply, nil
		},
	}
}

func (m *MockLLMService) Chat(ctx context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]Message(nil), messages...))
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}
	if len(messages) == 0 {
		return "", nil
	}
	return "Du sa: " + messages[len(messages)-1].Content, nil
}

// Calls returns a copy of every message list passed to Chat.
func (m *MockLLMService) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.calls...)
}

// MockSpeechService is a SpeechService that never leaves the process.
type MockSpeechService struct {
	Transcript string
	Err        error

	mu          sync.Mutex
	synthesized []string
}

var _ SpeechService = (*MockSpeechService)(nil)

func (m *MockSpeechService) Transcribe(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Transcript, nil
}

func (m *MockSpeechService) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	m.synthesized = append(m.synthesized, text)
	m.mu.Unlock()
	// ID3 header followed by the text keeps the payload recognisable in tests.
	return append([]byte("ID3"), strings.TrimSpace(text)...), nil
}

func (m *MockSpeechService) Voice() string {
	return "mock"
}

// SynthesizeCount reports how many times Synthesize reached the provider.
func (m *MockSpeechService) SynthesizeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.synthesized)
}
