package chatcmder

import (
	"context"
	"sync"

	"github.com/lillylive/lilly/pkg/llm"
)

// scriptedSender returns replies in order and records what it was sent.
type scriptedSender struct {
	mu      sync.Mutex
	replies []string
	err     error
	sent    []llm.Conversation
}

func (s *scriptedSender) Chat(_ context.Context, conv llm.Conversation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, conv)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}
