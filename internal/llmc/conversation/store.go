// Package conversation holds the ordered, persisted log of exchanged messages.
package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/failure"
	"github.com/longkey1/llmchat/internal/logger"
	"github.com/sirupsen/logrus"
)

// Store is the in-memory conversation log backed by a Persister.
// Persistence is synchronous; a failed write degrades durability but never
// rolls back the in-memory change.
type Store struct {
	mu        sync.Mutex
	messages  []llmc.Message
	lastID    int64
	persister Persister
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewStore creates an empty store. Call Restore to load the persisted log.
func NewStore(persister Persister, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{
		messages:  []llmc.Message{},
		persister: persister,
		log:       log,
		now:       time.Now,
	}
}

// Append assigns the next ID to msg, stamps it if needed, stores it and persists the log.
// The returned message is the stored copy. A non-nil error of kind
// PersistenceDegraded means the message is kept in memory only.
func (s *Store) Append(msg llmc.Message) (llmc.Message, error) {
	if err := msg.Validate(); err != nil {
		return llmc.Message{}, fmt.Errorf("invalid message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	msg.ID = s.lastID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	msg.Attachments = cloneAttachments(msg.Attachments)
	s.messages = append(s.messages, msg)

	s.log.WithFields(logrus.Fields{
		"message_id":  msg.ID,
		"role":        msg.Role,
		"attachments": len(msg.Attachments),
	}).Debug("Message appended")

	return cloneMessage(msg), s.persist()
}

// All returns the messages, oldest first.
func (s *Store) All() []llmc.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]llmc.Message, len(s.messages))
	for i, msg := range s.messages {
		out[i] = cloneMessage(msg)
	}
	return out
}

// Len returns the number of messages in the store
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Clear empties the log and resets the ID counter.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = []llmc.Message{}
	s.lastID = 0
	s.log.Debug("Conversation cleared")
	return s.persist()
}

// Restore replaces the in-memory log with the persisted one and recomputes
// the ID counter from the highest loaded ID.
func (s *Store) Restore() error {
	messages, err := s.persister.LoadMessages()
	if err != nil {
		return fmt.Errorf("restoring conversation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]llmc.Message, 0, len(messages))
	s.lastID = 0
	for _, msg := range messages {
		s.messages = append(s.messages, msg)
		if msg.ID > s.lastID {
			s.lastID = msg.ID
		}
	}

	s.log.WithField("messages", len(s.messages)).Debug("Conversation restored")
	return nil
}

// persist writes the current log. Callers hold s.mu.
func (s *Store) persist() error {
	if err := s.persister.SaveMessages(s.messages); err != nil {
		s.log.WithError(err).Warn("Failed to persist conversation")
		return failure.New(failure.PersistenceDegraded, fmt.Errorf("%w: %v", failure.ErrPersistence, err))
	}
	return nil
}

func cloneMessage(msg llmc.Message) llmc.Message {
	msg.Attachments = cloneAttachments(msg.Attachments)
	return msg
}

func cloneAttachments(in []llmc.Attachment) []llmc.Attachment {
	if in == nil {
		return nil
	}
	out := make([]llmc.Attachment, len(in))
	copy(out, in)
	return out
}
