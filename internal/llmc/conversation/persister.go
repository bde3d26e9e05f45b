package conversation

import (
	"fmt"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/storage"
)

// Persister loads and saves the whole conversation log.
type Persister interface {
	LoadMessages() ([]llmc.Message, error)
	SaveMessages(messages []llmc.Message) error
}

// KeyValue is the subset of the state file used to persist the log.
type KeyValue interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
}

// StatePersister stores the conversation log under one key of the state file.
type StatePersister struct {
	kv  KeyValue
	key string
}

// NewStatePersister returns a Persister writing to kv under storage.KeyConversation.
func NewStatePersister(kv KeyValue) *StatePersister {
	return &StatePersister{kv: kv, key: storage.KeyConversation}
}

// LoadMessages returns the persisted log, or an empty log if none was saved.
func (p *StatePersister) LoadMessages() ([]llmc.Message, error) {
	var messages []llmc.Message
	ok, err := p.kv.Get(p.key, &messages)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w\n\nThe state file may be corrupted.", err)
	}
	if !ok || messages == nil {
		return []llmc.Message{}, nil
	}
	return messages, nil
}

// SaveMessages persists the full log.
func (p *StatePersister) SaveMessages(messages []llmc.Message) error {
	if messages == nil {
		messages = []llmc.Message{}
	}
	if err := p.kv.Set(p.key, messages); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}
