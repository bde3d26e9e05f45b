// Package failure classifies low-level errors into the small set of error kinds
// surfaced to the user, each with a fixed user-facing message.
package failure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

// Kind identifies a category of user-facing error.
type Kind int

const (
	Unknown Kind = iota
	MissingCredential
	MissingModel
	NetworkUnreachable
	InvalidCredential
	Forbidden
	RateLimited
	ServerUnavailable
	HTTPError
	MalformedResponse
	AttachmentReadFailed
	TooManyFiles
	TooLarge
	UnsupportedType
	PersistenceDegraded
	Timeout
)

// Kinds lists every error kind.
var Kinds = []Kind{
	Unknown,
	MissingCredential,
	MissingModel,
	NetworkUnreachable,
	InvalidCredential,
	Forbidden,
	RateLimited,
	ServerUnavailable,
	HTTPError,
	MalformedResponse,
	AttachmentReadFailed,
	TooManyFiles,
	TooLarge,
	UnsupportedType,
	PersistenceDegraded,
	Timeout,
}

var kindNames = map[Kind]string{
	Unknown:              "unknown",
	MissingCredential:    "missing_credential",
	MissingModel:         "missing_model",
	NetworkUnreachable:   "network_unreachable",
	InvalidCredential:    "invalid_credential",
	Forbidden:            "forbidden",
	RateLimited:          "rate_limited",
	ServerUnavailable:    "server_unavailable",
	HTTPError:            "http_error",
	MalformedResponse:    "malformed_response",
	AttachmentReadFailed: "attachment_read_failed",
	TooManyFiles:         "too_many_files",
	TooLarge:             "too_large",
	UnsupportedType:      "unsupported_type",
	PersistenceDegraded:  "persistence_degraded",
	Timeout:              "timeout",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors wrapped by the components that produce them.
var (
	ErrAttachmentRead    = errors.New("attachment read failed")
	ErrPersistence       = errors.New("persistence write failed")
	ErrMalformedResponse = errors.New("malformed completion response")
)

// StatusError carries a non-success HTTP status and the best-effort message
// parsed from the error body.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Error is a classified error.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, HTTPError and the status-derived kinds only
	Message string // detail for HTTPError and Unknown
	Err     error
}

// New returns an Error of the given kind wrapping err (which may be nil).
func New(kind Kind, err error) *Error {
	e := &Error{Kind: kind, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the fixed message shown to the user for this error.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case MissingCredential:
		return "Please set an API key before sending messages."
	case MissingModel:
		return "Please set a model name in settings."
	case NetworkUnreachable:
		return "Network connection failed. Please check your internet connection."
	case InvalidCredential:
		return "Invalid API key. Please check your API key in settings."
	case Forbidden:
		return "Access forbidden. Please verify your API key permissions."
	case RateLimited:
		return "Rate limit exceeded. Please wait a moment before trying again."
	case ServerUnavailable:
		return "Server error. The AI service is temporarily unavailable."
	case HTTPError:
		if e.Message == "" {
			return fmt.Sprintf("API error (%d)", e.Status)
		}
		return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
	case MalformedResponse:
		return "Invalid response from server. Please try again."
	case AttachmentReadFailed:
		return "Failed to read file."
	case TooManyFiles:
		return "Too many files selected at once."
	case TooLarge:
		return "File is too large."
	case UnsupportedType:
		return "File type is not supported. Only images are allowed."
	case PersistenceDegraded:
		return "Conversation could not be saved. History may be lost after restart."
	case Timeout:
		return "Connection test timed out."
	default:
		if e.Message != "" {
			return e.Message
		}
		return "An unexpected error occurred."
	}
}

// Classify maps err to an Error. It returns nil for a nil err.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return New(Timeout, err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fromStatus(statusErr)
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return New(NetworkUnreachable, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.Is(err, ErrMalformedResponse) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return New(MalformedResponse, err)
	}

	if errors.Is(err, ErrAttachmentRead) {
		return New(AttachmentReadFailed, err)
	}
	if errors.Is(err, ErrPersistence) {
		return New(PersistenceDegraded, err)
	}

	return New(Unknown, err)
}

func fromStatus(se *StatusError) *Error {
	var kind Kind
	switch {
	case se.StatusCode == http.StatusUnauthorized:
		kind = InvalidCredential
	case se.StatusCode == http.StatusForbidden:
		kind = Forbidden
	case se.StatusCode == http.StatusTooManyRequests:
		kind = RateLimited
	case se.StatusCode >= 500 && se.StatusCode <= 599:
		kind = ServerUnavailable
	default:
		kind = HTTPError
	}
	return &Error{Kind: kind, Status: se.StatusCode, Message: se.Message, Err: se}
}
