package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/all2prosperity/audio-svc/domain/repositories"
)

// MockLLM is a deterministic LargeLanguageModel for tests and LLM_PROVIDER=mock.
// It replies with Reply when set, otherwise echoes the last user message.
type MockLLM struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls [][]repositories.ChatMessage
}

var _ repositories.LargeLanguageModel = (*MockLLM)(nil)

// NewMockLLM creates a new mock LLM
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Complete implements repositories.LargeLanguageModel
func (m *MockLLM) Complete(ctx context.Context, messages []repositories.ChatMessage) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]repositories.ChatMessage(nil), messages...))
	m.mu.Unlock()

	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == repositories.UserRole {
			return fmt.Sprintf("You said: %s", messages[i].Content), nil
		}
	}
	return "Hello!", nil
}

// Calls returns the conversations received so far
func (m *MockLLM) Calls() [][]repositories.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]repositories.ChatMessage(nil), m.calls...)
}
