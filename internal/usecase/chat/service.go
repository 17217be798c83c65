package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/domain"
)

var (
	ErrEmptyMessage       = errors.New("empty message")
	ErrExchangeInProgress = errors.New("an exchange is already in progress")
)

// Client is the uniform model adapter: one prompt plus a fixed system
// message in, the top completion text out.
type Client interface {
	Respond(ctx context.Context, prompt, systemMessage string) (string, error)
}

type Service struct {
	store   domain.ConversationStore
	client  Client
	vendor  config.VendorConfig
	initErr error
	log     *slog.Logger
	now     func() time.Time
}

func NewService(store domain.ConversationStore, client Client, vendor config.VendorConfig) *Service {
	return &Service{
		store:  store,
		client: client,
		vendor: vendor,
		log:    slog.Default().With("vendor", vendor.Name),
		now:    time.Now,
	}
}

// NewDisconnectedService returns a service whose vendor failed to
// initialize. Turns can still be read and reset, but every Submit fails
// with initErr.
func NewDisconnectedService(store domain.ConversationStore, vendor config.VendorConfig, initErr error) *Service {
	if initErr == nil {
		initErr = &domain.InitializationFailure{Vendor: vendor.Name, Diagnostic: "no client"}
	}
	svc := NewService(store, nil, vendor)
	svc.initErr = initErr
	return svc
}

// Status is nil when the vendor is connected.
func (s *Service) Status() error {
	return s.initErr
}

func (s *Service) Vendor() config.VendorConfig {
	return s.vendor
}

// Submit runs one exchange for the session. Blank input returns
// ErrEmptyMessage and leaves the session untouched. On an adapter failure
// the user turn stays in the transcript without an answer.
func (s *Service) Submit(ctx context.Context, sessionID, text string) (domain.Turn, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Turn{}, ErrEmptyMessage
	}
	if s.initErr != nil {
		return domain.Turn{}, s.initErr
	}

	conv := s.store.Conversation(sessionID)
	if !conv.TryBegin() {
		return domain.Turn{}, ErrExchangeInProgress
	}
	defer conv.Finish()

	conv.AppendTurn(domain.RoleUser, text)

	start := s.now()
	resp, err := s.client.Respond(ctx, text, s.vendor.SystemMessage)
	elapsed := s.now().Sub(start)
	if err != nil {
		var failure *domain.ExchangeFailure
		if !errors.As(err, &failure) {
			failure = &domain.ExchangeFailure{Vendor: s.vendor.Name, Diagnostic: err.Error(), Err: err}
		}
		s.log.Warn("exchange failed", "session_id", sessionID, "duration", elapsed, "error", failure.Diagnostic)
		return domain.Turn{}, failure
	}

	reply := conv.AppendTurn(domain.RoleAssistant, resp)
	s.log.Info("exchange completed", "session_id", sessionID, "duration", elapsed, "reply_chars", len(resp))
	return reply, nil
}

// Reset discards every turn of the session.
func (s *Service) Reset(sessionID string) {
	s.store.Conversation(sessionID).Clear()
	s.log.Info("session reset", "session_id", sessionID)
}

func (s *Service) Turns(sessionID string) []domain.Turn {
	return s.store.Conversation(sessionID).Turns()
}

// End drops the session and its transcript.
func (s *Service) End(sessionID string) {
	s.store.Drop(sessionID)
}
