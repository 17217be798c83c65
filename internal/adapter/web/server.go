// Package web serves the single-page chat playground and its JSON and
// WebSocket equivalents.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/domain"
	"llm-chat-playground/internal/middleware"
	"llm-chat-playground/internal/usecase/chat"
)

const (
	sessionCookieName = "chat_session"

	// maxMessageBytes bounds form and JSON bodies.
	maxMessageBytes = 1 << 20
)

// Chat is the exchange contract the page drives.
type Chat interface {
	Submit(ctx context.Context, sessionID, text string) (domain.Turn, error)
	Reset(sessionID string)
	Turns(sessionID string) []domain.Turn
	Status() error
	Vendor() config.VendorConfig
}

type Server struct {
	chat        Chat
	cookieTTL   time.Duration
	corsOrigins []string
	log         *slog.Logger
}

func NewServer(svc Chat, cfg config.Config) *Server {
	return &Server{
		chat:        svc,
		cookieTTL:   cfg.SessionIdleTTL,
		corsOrigins: cfg.CORSOrigins,
		log:         slog.Default().With("component", "web"),
	}
}

// Router wires every route onto a chi mux.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/", s.handleIndex)
	r.Post("/submit", s.handleSubmitForm)
	r.Post("/reset", s.handleResetForm)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.CORS(s.corsOrigins))
		r.Get("/status", s.handleStatus)
		r.Get("/turns", s.handleTurns)
		r.Post("/submit", s.handleSubmitJSON)
		r.Post("/reset", s.handleResetJSON)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sessionID returns the caller's session id, issuing a cookie on first
// contact. The cookie is re-issued on every request so it expires only
// after SessionIdleTTL without activity.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	id := ""
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// exchangeStatus maps a Submit error onto an HTTP status code.
func exchangeStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrExchangeInProgress):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
