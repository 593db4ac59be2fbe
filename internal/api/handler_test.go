package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Alaeddine-Az/robotics-chatbot/internal/chat"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/history"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/models"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/ratelimit"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/tokens"
	"github.com/Alaeddine-Az/robotics-chatbot/internal/worker"
)

type stubProvider struct {
	reply string
	err   error
	calls atomic.Int32
}

func (s *stubProvider) Complete(context.Context, []models.Message) (string, error) {
	s.calls.Add(1)
	return s.reply, s.err
}

func newTestServer(t *testing.T, stub *stubProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pool := worker.NewPool(worker.Config{MinWorkers: 1, MaxWorkers: 4, QueueSize: 32})
	t.Cleanup(pool.Close)
	truncator := history.NewTruncator(tokens.WordCount{}, 3000)
	chatSvc := chat.NewService(truncator, stub, pool, 5*time.Second, nil)
	limiter := ratelimit.NewWindow(20, time.Minute, 100)
	handler := NewHandler(limiter, chatSvc, nil)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, remoteAddr string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func postChat(t *testing.T, router *gin.Engine, remoteAddr, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, router, http.MethodPost, "/chat", remoteAddr, []byte(body))
}

func decodeJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode json: %v (body %s)", err, data)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("unexpected status %d (want %d), body: %s", rec.Code, want, rec.Body.String())
	}
}

func TestHomeAndChatInfo(t *testing.T) {
	router := newTestServer(t, &stubProvider{reply: "ok"})

	rec := doRequest(t, router, http.MethodGet, "/", "", nil)
	assertStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "Robotics Education Assistant") {
		t.Fatalf("unexpected home body: %s", rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodGet, "/chat", "", nil)
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		Message string `json:"message"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Message != "Please send a POST request with your message" {
		t.Fatalf("unexpected GET /chat payload: %s", rec.Body.String())
	}
}

func TestChatSuccess(t *testing.T) {
	stub := &stubProvider{reply: "Connect VCC to 5V..."}
	router := newTestServer(t, stub)

	rec := postChat(t, router, "", `{"message": "How do I wire an ultrasonic sensor?", "history": []}`)
	assertStatus(t, rec, http.StatusOK)

	var body struct {
		Response string           `json:"response"`
		History  []models.Message `json:"history"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Response != "Connect VCC to 5V..." {
		t.Fatalf("unexpected response: %q", body.Response)
	}
	if len(body.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(body.History))
	}
	if body.History[0].Role != models.RoleUser || body.History[0].Content != "How do I wire an ultrasonic sensor?" {
		t.Fatalf("user turn mismatch: %+v", body.History[0])
	}
	if body.History[1].Role != models.RoleAssistant || body.History[1].Content != "Connect VCC to 5V..." {
		t.Fatalf("assistant turn mismatch: %+v", body.History[1])
	}
	if strings.Contains(rec.Body.String(), `"truncated"`) {
		t.Fatalf("truncated flag must be omitted when nothing was dropped")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestChatCarriesHistoryForward(t *testing.T) {
	stub := &stubProvider{reply: "Use PWM on pin 9."}
	router := newTestServer(t, stub)

	rec := postChat(t, router, "", `{
		"message": "And how do I dim an LED?",
		"history": [
			{"role": "user", "content": "How do I blink an LED?"},
			{"role": "assistant", "content": "Toggle pin 13 with delay()."}
		]
	}`)
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		History []models.Message `json:"history"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if len(body.History) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(body.History))
	}
	if body.History[0].Content != "How do I blink an LED?" {
		t.Fatalf("prior history lost: %+v", body.History)
	}
}

func TestChatRateLimited(t *testing.T) {
	stub := &stubProvider{reply: "ok"}
	router := newTestServer(t, stub)

	addr := "203.0.113.50:4000"
	for i := 0; i < 20; i++ {
		rec := postChat(t, router, addr, `{"message": "hello", "history": []}`)
		assertStatus(t, rec, http.StatusOK)
	}
	rec := postChat(t, router, addr, `{"message": "hello", "history": []}`)
	assertStatus(t, rec, http.StatusTooManyRequests)
	var body struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if body.Error == "" {
		t.Fatalf("expected error message")
	}
	// The 21st request never reaches the provider.
	if got := stub.calls.Load(); got != 20 {
		t.Fatalf("expected 20 provider calls, got %d", got)
	}

	// A different identity is unaffected.
	rec = postChat(t, router, "203.0.113.51:4000", `{"message": "hello", "history": []}`)
	assertStatus(t, rec, http.StatusOK)
}

func TestChatInvalidRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"no body", ``, msgNoJSON},
		{"malformed json", `{`, msgNoJSON},
		{"missing message", `{"history": []}`, msgInvalidMessage},
		{"empty message", `{"message": "", "history": []}`, msgInvalidMessage},
		{"whitespace message", `{"message": "   ", "history": []}`, msgInvalidMessage},
		{"non-string message", `{"message": 42, "history": []}`, msgInvalidMessage},
		{"history not array", `{"message": "hi", "history": "nope"}`, msgInvalidHistory},
		{"non-object entry", `{"message": "hi", "history": ["x"]}`, msgInvalidHistory},
		{"missing content", `{"message": "hi", "history": [{"role": "user"}]}`, msgInvalidHistory},
		{"bad role", `{"message": "hi", "history": [{"role": "moderator", "content": "x"}]}`, msgInvalidHistory},
		{"non-string role", `{"message": "hi", "history": [{"role": 3, "content": "x"}]}`, msgInvalidHistory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubProvider{reply: "ok"}
			router := newTestServer(t, stub)
			rec := postChat(t, router, "", tc.body)
			assertStatus(t, rec, http.StatusBadRequest)
			var body struct {
				Error string `json:"error"`
			}
			decodeJSON(t, rec.Body.Bytes(), &body)
			if body.Error != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, body.Error)
			}
			if got := stub.calls.Load(); got != 0 {
				t.Fatalf("provider must not be invoked for invalid input, got %d calls", got)
			}
		})
	}
}

func TestChatProviderFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", errors.New("request timeout talking to upstream"), msgTimeout},
		{"auth", errors.New("invalid api key supplied"), msgAuthFailure},
		{"generic", errors.New("upstream exploded: secret detail"), msgProviderError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubProvider{err: tc.err}
			router := newTestServer(t, stub)
			rec := postChat(t, router, "", `{"message": "hello", "history": []}`)
			assertStatus(t, rec, http.StatusInternalServerError)
			var body struct {
				Error string `json:"error"`
			}
			decodeJSON(t, rec.Body.Bytes(), &body)
			if body.Error != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, body.Error)
			}
			// Raw provider detail never reaches the caller.
			if strings.Contains(rec.Body.String(), "secret detail") || strings.Contains(rec.Body.String(), "upstream") {
				t.Fatalf("raw provider error leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestChatTruncationFlagSurfaced(t *testing.T) {
	stub := &stubProvider{reply: "short answer"}
	gin.SetMode(gin.TestMode)
	pool := worker.NewPool(worker.Config{MinWorkers: 1, MaxWorkers: 2, QueueSize: 8})
	t.Cleanup(pool.Close)
	truncator := history.NewTruncator(tokens.WordCount{}, 4)
	chatSvc := chat.NewService(truncator, stub, pool, 5*time.Second, nil)
	handler := NewHandler(ratelimit.NewWindow(20, time.Minute, 100), chatSvc, nil)
	router := gin.New()
	handler.RegisterRoutes(router)

	rec := postChat(t, router, "", `{
		"message": "q",
		"history": [
			{"role": "user", "content": "one"},
			{"role": "assistant", "content": "two"},
			{"role": "user", "content": "three"}
		]
	}`)
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		Truncated bool             `json:"truncated"`
		History   []models.Message `json:"history"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	if !body.Truncated {
		t.Fatalf("expected truncated flag, body: %s", rec.Body.String())
	}
	if len(body.History) != 4 {
		t.Fatalf("expected truncated suffix plus new turns, got %+v", body.History)
	}
}
