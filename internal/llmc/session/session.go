// Package session coordinates one chat: it stages attachments, issues
// requests, records every turn in the conversation log and notifies the UI.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/attachment"
	"github.com/longkey1/llmchat/internal/llmc/conversation"
	"github.com/longkey1/llmchat/internal/llmc/failure"
	"github.com/longkey1/llmchat/internal/logger"
)

// Notifications shown to the user.
const (
	EmptyMessageWarning = "Please enter a message or select an image to send."
	ConnectionOK        = "API connection successful!"
	Cleared             = "Conversation cleared"
)

// ErrEmptyMessage is reported when there is neither text nor a staged attachment to send.
var ErrEmptyMessage = errors.New("empty message")

// UI receives fire-and-forget notifications.
type UI interface {
	attachment.Observer

	RenderMessage(msg llmc.Message)
	RenderError(message string)
	Warn(message string)
	Info(message string)
	SetLoading(loading bool)
}

// Completer issues completion requests.
type Completer interface {
	Send(ctx context.Context, text string, attachments []llmc.Attachment, settings llmc.Settings) llmc.Outcome
	Cancel() bool
	TestConnection(ctx context.Context, settings llmc.Settings) llmc.Outcome
}

// SettingsSource resolves the request settings. It is called on every send.
type SettingsSource func() (llmc.Settings, error)

// Session owns the conversation log, the staging set and the request
// controller for the lifetime of the application run.
type Session struct {
	store    *conversation.Store
	pipeline *attachment.Pipeline
	client   Completer
	settings SettingsSource
	ui       UI
	log      logrus.FieldLogger
}

// New creates a Session and registers ui as the observer of pipeline.
// A nil ui discards notifications.
func New(store *conversation.Store, pipeline *attachment.Pipeline, client Completer, settings SettingsSource, ui UI, log logrus.FieldLogger) *Session {
	if ui == nil {
		ui = nopUI{}
	}
	if log == nil {
		log = logger.Discard()
	}
	pipeline.SetObserver(ui)
	return &Session{
		store:    store,
		pipeline: pipeline,
		client:   client,
		settings: settings,
		ui:       ui,
		log:      log,
	}
}

// Send sends text together with the staged attachments. The staging set is
// emptied whatever the outcome.
func (s *Session) Send(ctx context.Context, text string) llmc.Outcome {
	defer s.pipeline.Clear()

	attachments := s.pipeline.Pending()
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		s.ui.Warn(EmptyMessageWarning)
		return llmc.FailedOutcome(&failure.Error{
			Kind:    failure.Unknown,
			Message: EmptyMessageWarning,
			Err:     ErrEmptyMessage,
		})
	}

	settings, err := s.settings()
	if err != nil {
		fe := failure.Classify(err)
		s.log.WithError(err).Error("Failed to resolve settings")
		s.fail(fe)
		return llmc.FailedOutcome(fe)
	}

	if fe := settings.Validate(); fe != nil {
		s.fail(fe)
		return llmc.FailedOutcome(fe)
	}

	s.append(llmc.Message{
		Role:        llmc.RoleUser,
		Text:        text,
		Attachments: attachments,
	})

	s.ui.SetLoading(true)
	out := s.client.Send(ctx, text, attachments, settings)
	s.ui.SetLoading(false)

	switch out.Status {
	case llmc.Completed:
		s.append(llmc.Message{Role: llmc.RoleAssistant, Text: out.Text})
	case llmc.Failed:
		s.fail(out.Err)
	case llmc.Cancelled:
		s.log.Debug("Send cancelled")
	}
	return out
}

// Cancel aborts the outstanding send. Its Send resolves Cancelled without
// appending anything or reporting an error.
func (s *Session) Cancel() bool {
	cancelled := s.client.Cancel()
	if cancelled {
		s.log.Info("Cancelled outstanding request")
	}
	return cancelled
}

// Clear empties the conversation log and the staging set. A failure to
// persist the empty log is reported as a warning only.
func (s *Session) Clear() {
	s.pipeline.Clear()
	if err := s.store.Clear(); err != nil {
		s.warn(err)
	}
	s.ui.Info(Cleared)
}

// TestConnection probes the configured endpoint and reports the result.
func (s *Session) TestConnection(ctx context.Context) llmc.Outcome {
	settings, err := s.settings()
	if err != nil {
		fe := failure.Classify(err)
		s.ui.RenderError(fe.UserMessage())
		return llmc.FailedOutcome(fe)
	}

	out := s.client.TestConnection(ctx, settings)
	switch out.Status {
	case llmc.Completed:
		s.ui.Info(ConnectionOK)
	case llmc.Failed:
		s.ui.RenderError(out.Err.UserMessage())
	}
	return out
}

// Stage adds files to the staging set and reports rejections.
func (s *Session) Stage(ctx context.Context, files []attachment.FileHandle) attachment.Result {
	result := s.pipeline.Stage(ctx, files)

	if len(result.Rejected) > 0 && result.Rejected[0].Err.Kind == failure.TooManyFiles {
		s.ui.Warn(result.Rejected[0].Err.UserMessage())
	} else {
		for _, r := range result.Rejected {
			s.ui.Warn(fmt.Sprintf("%s: %s", r.Name, r.Err.UserMessage()))
		}
	}

	if n := len(s.pipeline.Pending()); n > 0 {
		s.ui.Info(fmt.Sprintf("%d image(s) ready to send.", n))
	}
	return result
}

// Unstage removes one staged attachment.
func (s *Session) Unstage(id string) bool {
	return s.pipeline.Unstage(id)
}

// Pending returns the staged attachments.
func (s *Session) Pending() []llmc.Attachment {
	return s.pipeline.Pending()
}

// Restore loads the persisted conversation.
func (s *Session) Restore() error {
	return s.store.Restore()
}

// History returns the conversation, oldest first.
func (s *Session) History() []llmc.Message {
	return s.store.All()
}

// fail records a synthesized assistant turn carrying the user-facing error
// text and reports it.
func (s *Session) fail(fe *failure.Error) {
	s.log.WithField("kind", fe.Kind).Debug("Recording failed turn")
	s.append(llmc.Message{
		Role:  llmc.RoleAssistant,
		Text:  fe.UserMessage(),
		Error: true,
	})
	s.ui.RenderError(fe.UserMessage())
}

func (s *Session) append(msg llmc.Message) {
	stored, err := s.store.Append(msg)
	if err != nil {
		var fe *failure.Error
		if !errors.As(err, &fe) || fe.Kind != failure.PersistenceDegraded {
			s.log.WithError(err).Error("Failed to record message")
			return
		}
		s.warn(err)
	}
	s.ui.RenderMessage(stored)
}

func (s *Session) warn(err error) {
	s.ui.Warn(failure.Classify(err).UserMessage())
}

type nopUI struct{}

func (nopUI) ThumbnailAdded(llmc.Attachment) {}
func (nopUI) ThumbnailRemoved(string)        {}
func (nopUI) RenderMessage(llmc.Message)     {}
func (nopUI) RenderError(string)             {}
func (nopUI) Warn(string)                    {}
func (nopUI) Info(string)                    {}
func (nopUI) SetLoading(bool)                {}
