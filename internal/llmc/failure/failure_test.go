package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantStatus int
	}{
		{
			name:     "network failure",
			err:      &url.Error{Op: "Post", URL: "https://example.invalid", Err: errors.New("dial tcp: no such host")},
			wantKind: NetworkUnreachable,
		},
		{
			name:     "deadline exceeded",
			err:      &url.Error{Op: "Post", URL: "https://example.invalid", Err: context.DeadlineExceeded},
			wantKind: Timeout,
		},
		{
			name:       "unauthorized",
			err:        &StatusError{StatusCode: 401},
			wantKind:   InvalidCredential,
			wantStatus: 401,
		},
		{
			name:       "forbidden",
			err:        &StatusError{StatusCode: 403},
			wantKind:   Forbidden,
			wantStatus: 403,
		},
		{
			name:       "rate limited",
			err:        fmt.Errorf("sending: %w", &StatusError{StatusCode: 429}),
			wantKind:   RateLimited,
			wantStatus: 429,
		},
		{
			name:       "server error",
			err:        &StatusError{StatusCode: 503, Message: "overloaded"},
			wantKind:   ServerUnavailable,
			wantStatus: 503,
		},
		{
			name:       "other status",
			err:        &StatusError{StatusCode: 400, Message: "bad model"},
			wantKind:   HTTPError,
			wantStatus: 400,
		},
		{
			name:     "json syntax",
			err:      &json.SyntaxError{Offset: 3},
			wantKind: MalformedResponse,
		},
		{
			name:     "truncated body",
			err:      io.ErrUnexpectedEOF,
			wantKind: MalformedResponse,
		},
		{
			name:     "missing completion field",
			err:      ErrMalformedResponse,
			wantKind: MalformedResponse,
		},
		{
			name:     "attachment read",
			err:      fmt.Errorf("%w: permission denied", ErrAttachmentRead),
			wantKind: AttachmentReadFailed,
		},
		{
			name:     "persistence",
			err:      fmt.Errorf("%w: disk full", ErrPersistence),
			wantKind: PersistenceDegraded,
		},
		{
			name:     "already classified",
			err:      fmt.Errorf("wrapped: %w", New(MissingModel, nil)),
			wantKind: MissingModel,
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			wantKind: Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got == nil {
				t.Fatal("Classify() = nil")
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Classify() kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Classify() status = %d, want %d", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if got := Classify(nil); got != nil {
		t.Errorf("Classify(nil) = %v, want nil", got)
	}
}

func TestUserMessageIsTotal(t *testing.T) {
	seen := make(map[string]Kind)
	for _, kind := range Kinds {
		msg := New(kind, nil).UserMessage()
		if msg == "" {
			t.Errorf("kind %v has no user message", kind)
		}
		if other, dup := seen[msg]; dup {
			t.Errorf("kinds %v and %v share message %q", other, kind, msg)
		}
		seen[msg] = kind
	}
}

func TestUserMessageDetails(t *testing.T) {
	httpErr := Classify(&StatusError{StatusCode: 418, Message: "teapot"})
	if got := httpErr.UserMessage(); got != "API error (418): teapot" {
		t.Errorf("UserMessage() = %q", got)
	}

	unknown := Classify(errors.New("something odd"))
	if got := unknown.UserMessage(); got != "something odd" {
		t.Errorf("UserMessage() = %q", got)
	}

	rate := Classify(&StatusError{StatusCode: 429})
	if !strings.Contains(rate.UserMessage(), "Rate limit exceeded") {
		t.Errorf("UserMessage() = %q", rate.UserMessage())
	}
}
