package llmc

import (
	"testing"

	"github.com/longkey1/llmchat/internal/llmc/failure"
)

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{
			name:    "user text",
			msg:     Message{Role: RoleUser, Text: "hello"},
			wantErr: false,
		},
		{
			name:    "user attachments only",
			msg:     Message{Role: RoleUser, Attachments: []Attachment{{ID: "a", Name: "cat.png"}}},
			wantErr: false,
		},
		{
			name:    "assistant synthesized error",
			msg:     Message{Role: RoleAssistant, Error: true},
			wantErr: false,
		},
		{
			name:    "whitespace only",
			msg:     Message{Role: RoleUser, Text: "   "},
			wantErr: true,
		},
		{
			name:    "empty user error flag",
			msg:     Message{Role: RoleUser, Error: true},
			wantErr: true,
		},
		{
			name:    "empty assistant",
			msg:     Message{Role: RoleAssistant},
			wantErr: true,
		},
		{
			name:    "unknown role",
			msg:     Message{Role: "system", Text: "hi"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutcomeConstructors(t *testing.T) {
	if got := CompletedOutcome("hi"); got.Status != Completed || got.Text != "hi" {
		t.Errorf("CompletedOutcome() = %+v", got)
	}
	if got := CancelledOutcome(); got.Status != Cancelled || got.Err != nil {
		t.Errorf("CancelledOutcome() = %+v", got)
	}
	err := failure.New(failure.RateLimited, nil)
	if got := FailedOutcome(err); got.Status != Failed || got.Err != err {
		t.Errorf("FailedOutcome() = %+v", got)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantKind failure.Kind
		wantOK   bool
	}{
		{name: "complete", settings: Settings{APIKey: "k", Model: "m"}, wantOK: true},
		{name: "missing key", settings: Settings{Model: "m"}, wantKind: failure.MissingCredential},
		{name: "blank key", settings: Settings{APIKey: " \t", Model: "m"}, wantKind: failure.MissingCredential},
		{name: "missing model", settings: Settings{APIKey: "k"}, wantKind: failure.MissingModel},
		{name: "missing both", settings: Settings{}, wantKind: failure.MissingCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantOK {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || err.Kind != tt.wantKind {
				t.Errorf("Validate() = %v, want %v", err, tt.wantKind)
			}
		})
	}
}
