package llmc

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Attachment is a validated, encoded file staged for sending or already sent.
type Attachment struct {
	ID          string `json:"id"`           // Unique within the staging set
	Name        string `json:"name"`         // Original filename
	MimeType    string `json:"mime_type"`    // e.g. "image/png"
	SizeBytes   int64  `json:"size_bytes"`   // Size of the decoded file
	EncodedData string `json:"encoded_data"` // data:<mime>;base64,<payload>
}

// Message represents a single turn in the conversation
type Message struct {
	ID          int64        `json:"id"`
	Role        Role         `json:"role"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Error       bool         `json:"error,omitempty"` // Synthesized from a failed request
}

// Validate reports whether the message satisfies the non-empty invariant.
func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return fmt.Errorf("invalid role: %q", m.Role)
	}
	if strings.TrimSpace(m.Text) != "" || len(m.Attachments) > 0 {
		return nil
	}
	if m.Role == RoleAssistant && m.Error {
		return nil
	}
	return fmt.Errorf("message has no text and no attachments")
}
