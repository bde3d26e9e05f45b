// Package llmc defines the types shared by the chat client components:
// messages, attachments, request settings and request outcomes.
package llmc

import (
	"fmt"
	"strings"

	"github.com/longkey1/llmchat/internal/llmc/failure"
)

// Settings holds everything needed to build one completion request.
// It is resolved fresh for every send.
type Settings struct {
	Provider            string
	BaseURL             string
	APIKey              string
	Model               string
	SystemPrompt        string
	Temperature         float32
	MaxCompletionTokens int
}

// Validate checks the preconditions of a request: a non-blank API key and a
// model.
func (s Settings) Validate() *failure.Error {
	if strings.TrimSpace(s.APIKey) == "" {
		return failure.New(failure.MissingCredential, nil)
	}
	if strings.TrimSpace(s.Model) == "" {
		return failure.New(failure.MissingModel, nil)
	}
	return nil
}

// OutcomeStatus is the terminal state of a completion request.
type OutcomeStatus int

const (
	Completed OutcomeStatus = iota
	Cancelled
	Failed
)

func (s OutcomeStatus) String() string {
	switch s {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of a completion request.
type Outcome struct {
	Status OutcomeStatus
	Text   string         // Completed only
	Err    *failure.Error // Failed only
}

// CompletedOutcome returns a Completed outcome carrying text.
func CompletedOutcome(text string) Outcome {
	return Outcome{Status: Completed, Text: text}
}

// CancelledOutcome returns a Cancelled outcome.
func CancelledOutcome() Outcome {
	return Outcome{Status: Cancelled}
}

// FailedOutcome returns a Failed outcome carrying the classified error.
func FailedOutcome(err *failure.Error) Outcome {
	return Outcome{Status: Failed, Err: err}
}

// ModelInfo represents information about an available model from a provider.
type ModelInfo struct {
	ID      string // Model identifier
	OwnedBy string // Owner reported by the provider
}
