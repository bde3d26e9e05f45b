// Package prompt loads TOML prompt templates that replace the system prompt
// and shape the user text of a send.
package prompt

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Prompt represents the structure of a TOML prompt file
type Prompt struct {
	System      string   `toml:"system"`
	User        string   `toml:"user"`
	Model       *string  `toml:"model,omitempty"`
	Temperature *float64 `toml:"temperature,omitempty"`
}

// LoadPrompt loads a prompt file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %w", err)
	}
	return &prompt, nil
}
