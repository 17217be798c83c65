package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"llm-chat-playground/internal/domain"
	"llm-chat-playground/internal/usecase/chat"
)

type apiTurn struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	Time      string      `json:"time"`
	Timestamp string      `json:"timestamp"`
}

type statusResponse struct {
	Vendor    string `json:"vendor"`
	Model     string `json:"model"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

type submitRequest struct {
	Text string `json:"text"`
}

// exchangeResponse is the reply to every submit, reset and turns request,
// over HTTP and WebSocket alike.
type exchangeResponse struct {
	Turns   []apiTurn `json:"turns"`
	Reply   *apiTurn  `json:"reply,omitempty"`
	Ignored bool      `json:"ignored,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type wsRequest struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func toAPITurn(t domain.Turn) apiTurn {
	return apiTurn{
		Role:      t.Role,
		Content:   t.Content,
		Time:      t.Clock(),
		Timestamp: t.Timestamp.Format(time.RFC3339),
	}
}

func (s *Server) snapshot(sid string) []apiTurn {
	turns := s.chat.Turns(sid)
	out := make([]apiTurn, 0, len(turns))
	for _, t := range turns {
		out = append(out, toAPITurn(t))
	}
	return out
}

// exchange runs one submit and reports the outcome with the updated
// transcript.
func (s *Server) exchange(ctx context.Context, sid, text string) (int, exchangeResponse) {
	reply, err := s.chat.Submit(ctx, sid, text)
	resp := exchangeResponse{}
	status := http.StatusOK

	switch {
	case err == nil:
		t := toAPITurn(reply)
		resp.Reply = &t
	case errors.Is(err, chat.ErrEmptyMessage):
		resp.Ignored = true
	default:
		status = exchangeStatus(err)
		resp.Error = domain.Diagnostic(err)
	}

	resp.Turns = s.snapshot(sid)
	return status, resp
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	vendor := s.chat.Vendor()
	err := s.chat.Status()
	writeJSON(w, http.StatusOK, statusResponse{
		Vendor:    vendor.Name,
		Model:     vendor.Model,
		Connected: err == nil,
		Error:     domain.Diagnostic(err),
	})
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	writeJSON(w, http.StatusOK, exchangeResponse{Turns: s.snapshot(sid)})
}

func (s *Server) handleSubmitJSON(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)

	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, exchangeResponse{Error: "invalid request body"})
		return
	}

	status, resp := s.exchange(r.Context(), sid, req.Text)
	writeJSON(w, status, resp)
}

func (s *Server) handleResetJSON(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	s.chat.Reset(sid)
	writeJSON(w, http.StatusOK, exchangeResponse{Turns: []apiTurn{}})
}

// handleWebSocket processes one request frame at a time, so a connection
// never has more than one exchange in flight.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.corsOrigins,
	})
	if err != nil {
		s.log.Error("failed to accept websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			s.log.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	ctx := r.Context()
	for {
		var req wsRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if websocket.CloseStatus(err) != -1 {
				s.log.Debug("websocket closed by client", "session_id", sid)
			} else {
				s.log.Warn("websocket read error", "session_id", sid, "error", err)
			}
			return
		}

		var resp exchangeResponse
		switch req.Type {
		case "submit":
			_, resp = s.exchange(ctx, sid, req.Text)
		case "reset":
			s.chat.Reset(sid)
			resp.Turns = []apiTurn{}
		case "turns":
			resp.Turns = s.snapshot(sid)
		default:
			resp = exchangeResponse{Turns: s.snapshot(sid), Error: "unknown request type " + req.Type}
		}

		if err := wsjson.Write(ctx, ws, resp); err != nil {
			s.log.Warn("websocket write error", "session_id", sid, "error", err)
			return
		}
	}
}
