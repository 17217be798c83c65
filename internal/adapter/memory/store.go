package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"llm-chat-playground/internal/domain"
)

// Store keeps one conversation per session id for the lifetime of the
// process. Nothing is persisted.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	idleTTL       time.Duration
	now           func() time.Time
}

func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		conversations: make(map[string]*domain.Conversation),
		idleTTL:       idleTTL,
		now:           time.Now,
	}
}

// Conversation returns the session's conversation, creating an empty one
// on first use.
func (s *Store) Conversation(sessionID string) *domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = domain.NewConversation(s.now)
		s.conversations[sessionID] = conv
	}
	return conv
}

func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, sessionID)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// Sweep ends sessions that have been idle longer than the TTL. Sessions with
// an exchange in flight are kept.
func (s *Store) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, conv := range s.conversations {
		last, busy := conv.IdleSince()
		if busy || last.After(cutoff) {
			continue
		}
		delete(s.conversations, id)
		removed++
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (s *Store) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("idle sessions ended", "count", n, "remaining", s.Len())
			}
		}
	}
}
