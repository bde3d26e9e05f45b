package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/failure"
)

const okBody = `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hi! How can I help?"},"finish_reason":"stop"}]}`

func testSettings(baseURL string) llmc.Settings {
	return llmc.Settings{
		Provider:            "groq",
		BaseURL:             baseURL,
		APIKey:              "test-key-0123456789",
		Model:               "test-model",
		Temperature:         0.7,
		MaxCompletionTokens: 2000,
	}
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// blockingServer holds every request until the test ends or the client
// goes away. arrived receives one value per request.
func blockingServer(t *testing.T) (*httptest.Server, chan struct{}) {
	t.Helper()
	arrived := make(chan struct{}, 4)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server notices a client disconnect only once the body is consumed
		_, _ = io.Copy(io.Discard, r.Body)
		arrived <- struct{}{}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })
	return server, arrived
}

func waitArrived(t *testing.T, arrived <-chan struct{}) {
	t.Helper()
	select {
	case <-arrived:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the server")
	}
}

func TestSendCompleted(t *testing.T) {
	authc := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authc <- r.Header.Get("Authorization")
		respond(http.StatusOK, okBody)(w, r)
	}))
	defer server.Close()

	c := NewClient()
	out := c.Send(context.Background(), "Hello", nil, testSettings(server.URL))

	if out.Status != llmc.Completed || out.Text != "Hi! How can I help?" {
		t.Fatalf("Send() = %+v", out)
	}
	if auth := <-authc; auth != "Bearer test-key-0123456789" {
		t.Errorf("Authorization = %q", auth)
	}
	if c.Status() != Idle {
		t.Errorf("Status() = %v, want idle", c.Status())
	}
}

func TestSendFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind failure.Kind
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`,
			wantKind: failure.InvalidCredential,
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			body:     `{"error":{"message":"denied","type":"permission_error"}}`,
			wantKind: failure.Forbidden,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"message":"slow down","type":"rate_limit_error"}}`,
			wantKind: failure.RateLimited,
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			body:     `{"error":{"message":"upstream","type":"server_error"}}`,
			wantKind: failure.ServerUnavailable,
		},
		{
			name:     "other status",
			status:   http.StatusBadRequest,
			body:     `{"error":{"message":"model not found","type":"invalid_request_error"}}`,
			wantKind: failure.HTTPError,
		},
		{
			name:     "malformed body",
			status:   http.StatusOK,
			body:     `not json`,
			wantKind: failure.MalformedResponse,
		},
		{
			name:     "no choices",
			status:   http.StatusOK,
			body:     `{"id":"c1","choices":[]}`,
			wantKind: failure.MalformedResponse,
		},
		{
			name:     "empty content",
			status:   http.StatusOK,
			body:     `{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":""}}]}`,
			wantKind: failure.MalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(respond(tt.status, tt.body))
			defer server.Close()

			out := NewClient().Send(context.Background(), "Hello", nil, testSettings(server.URL))
			if out.Status != llmc.Failed {
				t.Fatalf("Send() status = %v, want failed", out.Status)
			}
			if out.Err.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v (%v)", out.Err.Kind, tt.wantKind, out.Err)
			}
		})
	}
}

func TestSendHTTPErrorMessage(t *testing.T) {
	server := httptest.NewServer(respond(http.StatusBadRequest,
		`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
	defer server.Close()

	out := NewClient().Send(context.Background(), "Hello", nil, testSettings(server.URL))
	if out.Err == nil {
		t.Fatalf("Send() = %+v", out)
	}
	if got, want := out.Err.UserMessage(), "API error (400): model not found"; got != want {
		t.Errorf("UserMessage() = %q, want %q", got, want)
	}
}

func TestSendNetworkUnreachable(t *testing.T) {
	server := httptest.NewServer(respond(http.StatusOK, okBody))
	url := server.URL
	server.Close()

	out := NewClient().Send(context.Background(), "Hello", nil, testSettings(url))
	if out.Status != llmc.Failed || out.Err.Kind != failure.NetworkUnreachable {
		t.Fatalf("Send() = %+v", out)
	}
}

func TestSendValidation(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		respond(http.StatusOK, okBody)(w, r)
	}))
	defer server.Close()

	noKey := testSettings(server.URL)
	noKey.APIKey = "   "
	noModel := testSettings(server.URL)
	noModel.Model = ""

	c := NewClient()
	if out := c.Send(context.Background(), "Hello", nil, noKey); out.Err == nil || out.Err.Kind != failure.MissingCredential {
		t.Errorf("Send() without key = %+v", out)
	}
	if out := c.Send(context.Background(), "Hello", nil, noModel); out.Err == nil || out.Err.Kind != failure.MissingModel {
		t.Errorf("Send() without model = %+v", out)
	}
	if hits.Load() != 0 {
		t.Errorf("server received %d requests, want 0", hits.Load())
	}
}

func TestCancel(t *testing.T) {
	server, arrived := blockingServer(t)
	c := NewClient()

	if c.Cancel() {
		t.Error("Cancel() with nothing in flight = true")
	}

	done := make(chan llmc.Outcome, 1)
	go func() {
		done <- c.Send(context.Background(), "Hello", nil, testSettings(server.URL))
	}()
	waitArrived(t, arrived)

	if c.Status() != InFlight {
		t.Errorf("Status() = %v, want in-flight", c.Status())
	}
	if !c.Cancel() {
		t.Fatal("Cancel() = false")
	}

	select {
	case out := <-done:
		if out.Status != llmc.Cancelled {
			t.Errorf("Send() = %+v, want cancelled", out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Send() did not return after Cancel()")
	}
	if c.Status() != Idle {
		t.Errorf("Status() after cancelled Send returned = %v, want idle", c.Status())
	}
}

func TestSupersededByInvalidSendEndsIdle(t *testing.T) {
	server, arrived := blockingServer(t)
	c := NewClient()

	done := make(chan llmc.Outcome, 1)
	go func() {
		done <- c.Send(context.Background(), "one", nil, testSettings(server.URL))
	}()
	waitArrived(t, arrived)

	noKey := testSettings(server.URL)
	noKey.APIKey = ""
	if out := c.Send(context.Background(), "two", nil, noKey); out.Err == nil || out.Err.Kind != failure.MissingCredential {
		t.Fatalf("second Send() = %+v", out)
	}
	if c.Status() != Idle {
		t.Errorf("Status() after failed Send = %v, want idle", c.Status())
	}

	select {
	case out := <-done:
		if out.Status != llmc.Cancelled {
			t.Errorf("first Send() = %+v, want cancelled", out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first Send() never returned")
	}
	if c.Status() != Idle {
		t.Errorf("Status() = %v, want idle", c.Status())
	}
}

func TestSendSupersedesPrevious(t *testing.T) {
	var n atomic.Int32
	arrived := make(chan struct{}, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1) == 1 {
			_, _ = io.Copy(io.Discard, r.Body)
			arrived <- struct{}{}
			<-r.Context().Done()
			return
		}
		respond(http.StatusOK, okBody)(w, r)
	}))
	defer server.Close()

	c := NewClient()
	first := make(chan llmc.Outcome, 1)
	go func() {
		first <- c.Send(context.Background(), "one", nil, testSettings(server.URL))
	}()
	waitArrived(t, arrived)

	second := c.Send(context.Background(), "two", nil, testSettings(server.URL))
	if second.Status != llmc.Completed {
		t.Errorf("second Send() = %+v, want completed", second)
	}

	select {
	case out := <-first:
		if out.Status != llmc.Cancelled {
			t.Errorf("first Send() = %+v, want cancelled", out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first Send() never returned")
	}
	if c.Status() != Idle {
		t.Errorf("Status() = %v, want idle", c.Status())
	}
}

func TestSendParentContextCancelled(t *testing.T) {
	server, arrived := blockingServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan llmc.Outcome, 1)
	go func() {
		done <- NewClient().Send(ctx, "Hello", nil, testSettings(server.URL))
	}()
	waitArrived(t, arrived)
	cancel()

	select {
	case out := <-done:
		if out.Status != llmc.Cancelled {
			t.Errorf("Send() = %+v, want cancelled", out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Send() did not return")
	}
}

func TestTestConnection(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		bodies <- body
		respond(http.StatusOK, okBody)(w, r)
	}))
	defer server.Close()

	out := NewClient().TestConnection(context.Background(), testSettings(server.URL))
	if out.Status != llmc.Completed {
		t.Fatalf("TestConnection() = %+v", out)
	}
	body := <-bodies
	if body["max_completion_tokens"] != float64(probeMaxCompletionTokens) {
		t.Errorf("max_completion_tokens = %v", body["max_completion_tokens"])
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("messages = %v", body["messages"])
	}
	if m := messages[0].(map[string]any); m["content"] != probeMessage || m["role"] != "user" {
		t.Errorf("probe message = %v", m)
	}
}

func TestTestConnectionTimeout(t *testing.T) {
	server, _ := blockingServer(t)

	c := NewClient(WithTestTimeout(50 * time.Millisecond))
	start := time.Now()
	out := c.TestConnection(context.Background(), testSettings(server.URL))

	if out.Status != llmc.Failed || out.Err.Kind != failure.Timeout {
		t.Fatalf("TestConnection() = %+v, want timeout", out)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("TestConnection() took %v", elapsed)
	}
}

func TestTestConnectionLeavesSendState(t *testing.T) {
	server := httptest.NewServer(respond(http.StatusOK, okBody))
	defer server.Close()

	c := NewClient()
	c.TestConnection(context.Background(), testSettings(server.URL))
	if c.Status() != Idle {
		t.Errorf("Status() = %v, want idle", c.Status())
	}
	if c.Cancel() {
		t.Error("TestConnection() left a cancellable request behind")
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		respond(http.StatusOK, `{"object":"list","data":[{"id":"m1","object":"model","owned_by":"groq"},{"id":"m2","object":"model","owned_by":"meta"}]}`)(w, r)
	}))
	defer server.Close()

	models, err := NewClient().ListModels(context.Background(), testSettings(server.URL))
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].ID != "m1" || models[1].OwnedBy != "meta" {
		t.Errorf("ListModels() = %+v", models)
	}
}

func TestListModelsMissingKey(t *testing.T) {
	s := testSettings("http://127.0.0.1:0")
	s.APIKey = ""
	if _, err := NewClient().ListModels(context.Background(), s); err == nil {
		t.Fatal("ListModels() error = nil")
	}
}
