package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"llm-chat-playground/internal/adapter/memory"
	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/domain"
	"llm-chat-playground/internal/usecase/chat"
)

type stubClient struct {
	reply string
	err   error
}

func (c *stubClient) Respond(context.Context, string, string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

var testVendor = config.VendorConfig{
	Name:        "stub",
	Model:       "stub-1",
	KeyEnv:      "STUB_KEY",
	DisplayName: "Stub",
	Emoji:       "🧪",
	Color:       "#123456",
	Tips:        []string{"Ask something concrete"},
}

func newTestServer(client chat.Client) http.Handler {
	svc := chat.NewService(memory.NewStore(time.Hour), client, testVendor)
	return NewServer(svc, config.Config{SessionIdleTTL: time.Hour}).Router()
}

func newDisconnectedServer() http.Handler {
	initErr := &domain.InitializationFailure{Vendor: "stub", Diagnostic: "missing API key, set STUB_KEY"}
	svc := chat.NewDisconnectedService(memory.NewStore(time.Hour), testVendor, initErr)
	return NewServer(svc, config.Config{SessionIdleTTL: time.Hour}).Router()
}

// do issues a request carrying the session cookie from earlier responses.
func do(t *testing.T, h http.Handler, cookie *http.Cookie, method, target string, body []byte, contentType string) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	return w, cookie
}

func postForm(t *testing.T, h http.Handler, cookie *http.Cookie, target, message string) (*httptest.ResponseRecorder, *http.Cookie) {
	form := url.Values{"message": {message}}
	return do(t, h, cookie, http.MethodPost, target, []byte(form.Encode()), "application/x-www-form-urlencoded")
}

func decodeExchange(t *testing.T, w *httptest.ResponseRecorder) exchangeResponse {
	t.Helper()
	var resp exchangeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func TestIndexIssuesSessionCookie(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})

	w, cookie := do(t, h, nil, http.MethodGet, "/", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("Expected session cookie")
	}
	body := w.Body.String()
	if !strings.Contains(body, "Stub API connected") {
		t.Error("Expected connected banner")
	}
	if !strings.Contains(body, `action="/submit"`) {
		t.Error("Expected input form")
	}
	if !strings.Contains(body, "Ask something concrete") {
		t.Error("Expected help tips")
	}
}

func TestActiveSessionCookieIsRefreshed(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})
	_, first := do(t, h, nil, http.MethodGet, "/", nil, "")

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(url.Values{"message": {"hello"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(first)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var refreshed *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			refreshed = c
		}
	}
	if refreshed == nil {
		t.Fatal("Expected session cookie to be re-issued")
	}
	if refreshed.Value != first.Value {
		t.Errorf("Expected same session id %q, got %q", first.Value, refreshed.Value)
	}
	if refreshed.MaxAge != int(time.Hour.Seconds()) {
		t.Errorf("Expected MaxAge %d, got %d", int(time.Hour.Seconds()), refreshed.MaxAge)
	}
}

func TestFormSubmitRendersTranscript(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})
	_, cookie := do(t, h, nil, http.MethodGet, "/", nil, "")

	w, cookie := postForm(t, h, cookie, "/submit", "hello <b>")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", w.Code)
	}

	w, _ = do(t, h, cookie, http.MethodGet, "/", nil, "")
	body := w.Body.String()
	if !strings.Contains(body, "hello &lt;b&gt;") {
		t.Error("Expected escaped user message in transcript")
	}
	if !strings.Contains(body, "world") {
		t.Error("Expected assistant reply in transcript")
	}
	if !strings.Contains(body, "#12345620") {
		t.Error("Expected vendor color on assistant bubble")
	}
}

func TestFormSubmitBlankIsNoop(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})
	_, cookie := do(t, h, nil, http.MethodGet, "/", nil, "")

	w, cookie := postForm(t, h, cookie, "/submit", "   ")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", w.Code)
	}

	w, _ = do(t, h, cookie, http.MethodGet, "/api/turns", nil, "")
	if resp := decodeExchange(t, w); len(resp.Turns) != 0 {
		t.Errorf("Expected no turns, got %v", resp.Turns)
	}
}

func TestFormSubmitFailureShowsInlineError(t *testing.T) {
	h := newTestServer(&stubClient{err: errors.New("timeout")})
	_, cookie := do(t, h, nil, http.MethodGet, "/", nil, "")

	w, _ := postForm(t, h, cookie, "/submit", "x")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Response generation failed: timeout") {
		t.Error("Expected inline error message")
	}
	if !strings.Contains(body, ">x") {
		t.Error("Expected dangling user turn in transcript")
	}
}

func TestFormResetClearsTranscript(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})
	_, cookie := do(t, h, nil, http.MethodGet, "/", nil, "")
	postForm(t, h, cookie, "/submit", "a")
	postForm(t, h, cookie, "/submit", "b")

	w, _ := do(t, h, cookie, http.MethodPost, "/reset", nil, "")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected 303, got %d", w.Code)
	}

	w, _ = do(t, h, cookie, http.MethodGet, "/api/turns", nil, "")
	if resp := decodeExchange(t, w); len(resp.Turns) != 0 {
		t.Errorf("Expected no turns after reset, got %v", resp.Turns)
	}
}

func TestSessionsAreIsolatedByCookie(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})
	_, alice := do(t, h, nil, http.MethodGet, "/", nil, "")
	_, bob := do(t, h, nil, http.MethodGet, "/", nil, "")

	postForm(t, h, alice, "/submit", "hello")

	w, _ := do(t, h, bob, http.MethodGet, "/api/turns", nil, "")
	if resp := decodeExchange(t, w); len(resp.Turns) != 0 {
		t.Errorf("Expected bob to see no turns, got %v", resp.Turns)
	}
}

func TestDisconnectedPageBlocksInput(t *testing.T) {
	h := newDisconnectedServer()

	w, cookie := do(t, h, nil, http.MethodGet, "/", nil, "")
	body := w.Body.String()
	if !strings.Contains(body, "connection failed") || !strings.Contains(body, "missing API key, set STUB_KEY") {
		t.Error("Expected not-connected diagnostic")
	}
	if strings.Contains(body, `action="/submit"`) {
		t.Error("Expected input form to be hidden")
	}

	w, _ = postForm(t, h, cookie, "/submit", "hello")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestAPISubmitAndTurns(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})

	w, cookie := do(t, h, nil, http.MethodPost, "/api/submit", []byte(`{"text":"hello"}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := decodeExchange(t, w)
	if resp.Reply == nil || resp.Reply.Content != "world" {
		t.Errorf("Unexpected reply %+v", resp.Reply)
	}
	if len(resp.Turns) != 2 || resp.Turns[0].Role != domain.RoleUser || resp.Turns[0].Content != "hello" ||
		resp.Turns[1].Role != domain.RoleAssistant || resp.Turns[1].Content != "world" {
		t.Errorf("Unexpected turns %+v", resp.Turns)
	}

	w, _ = do(t, h, cookie, http.MethodGet, "/api/turns", nil, "")
	if resp := decodeExchange(t, w); len(resp.Turns) != 2 {
		t.Errorf("Expected 2 turns, got %d", len(resp.Turns))
	}
}

func TestAPISubmitBlankIsIgnored(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})

	w, _ := do(t, h, nil, http.MethodPost, "/api/submit", []byte(`{"text":"  "}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := decodeExchange(t, w)
	if !resp.Ignored || len(resp.Turns) != 0 {
		t.Errorf("Expected ignored with no turns, got %+v", resp)
	}
}

func TestAPISubmitFailure(t *testing.T) {
	h := newTestServer(&stubClient{err: errors.New("timeout")})

	w, _ := do(t, h, nil, http.MethodPost, "/api/submit", []byte(`{"text":"x"}`), "application/json")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}
	resp := decodeExchange(t, w)
	if resp.Error != "timeout" {
		t.Errorf("Expected timeout diagnostic, got %q", resp.Error)
	}
	if len(resp.Turns) != 1 || resp.Turns[0].Content != "x" {
		t.Errorf("Expected single user turn, got %+v", resp.Turns)
	}
}

func TestAPISubmitInvalidBody(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})

	w, _ := do(t, h, nil, http.MethodPost, "/api/submit", []byte(`{`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestAPIStatus(t *testing.T) {
	w, _ := do(t, newDisconnectedServer(), nil, http.MethodGet, "/api/status", nil, "")

	var resp statusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Connected || resp.Vendor != "stub" || resp.Error == "" {
		t.Errorf("Unexpected status %+v", resp)
	}
}

func TestAPIReset(t *testing.T) {
	h := newTestServer(&stubClient{reply: "world"})
	_, cookie := do(t, h, nil, http.MethodPost, "/api/submit", []byte(`{"text":"a"}`), "application/json")

	w, _ := do(t, h, cookie, http.MethodPost, "/api/reset", nil, "")
	if resp := decodeExchange(t, w); len(resp.Turns) != 0 {
		t.Errorf("Expected empty turns, got %v", resp.Turns)
	}
}

func TestHealth(t *testing.T) {
	w, _ := do(t, newTestServer(&stubClient{}), nil, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestWebSocketExchange(t *testing.T) {
	srv := httptest.NewServer(newTestServer(&stubClient{reply: "world"}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	roundTrip := func(req wsRequest) exchangeResponse {
		t.Helper()
		if err := wsjson.Write(ctx, conn, req); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		var resp exchangeResponse
		if err := wsjson.Read(ctx, conn, &resp); err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		return resp
	}

	resp := roundTrip(wsRequest{Type: "submit", Text: "hello"})
	if resp.Error != "" || len(resp.Turns) != 2 || resp.Turns[1].Content != "world" {
		t.Errorf("Unexpected submit response %+v", resp)
	}

	resp = roundTrip(wsRequest{Type: "submit", Text: " "})
	if !resp.Ignored || len(resp.Turns) != 2 {
		t.Errorf("Expected blank submit to be ignored, got %+v", resp)
	}

	resp = roundTrip(wsRequest{Type: "reset"})
	if len(resp.Turns) != 0 {
		t.Errorf("Expected empty turns after reset, got %+v", resp.Turns)
	}

	resp = roundTrip(wsRequest{Type: "bogus"})
	if resp.Error == "" {
		t.Error("Expected error for unknown request type")
	}
}
