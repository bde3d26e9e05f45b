package prompt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/longkey1/llmchat/internal/llmc"
)

// Rendered is a prompt template with its placeholders filled in.
type Rendered struct {
	Name         string
	SystemPrompt string
	Text         string
	Model        *string
	Temperature  *float64
}

// Apply overrides the system prompt, model and temperature of s with the
// ones the template sets.
func (r *Rendered) Apply(s llmc.Settings) llmc.Settings {
	s.SystemPrompt = r.SystemPrompt
	if r.Model != nil && *r.Model != "" {
		s.Model = *r.Model
	}
	if r.Temperature != nil {
		s.Temperature = float32(*r.Temperature)
	}
	return s
}

// Entry is a prompt template found on disk.
type Entry struct {
	Name string
	Dir  string
}

// Find returns the path of the named template. Later directories take
// precedence over earlier ones.
func Find(promptName string, promptDirs []string) (string, error) {
	promptFile := promptName
	if !strings.HasSuffix(promptFile, ".toml") {
		promptFile = promptFile + ".toml"
	}

	var promptPath string
	for _, promptDir := range promptDirs {
		candidatePath := filepath.Join(promptDir, promptFile)
		if _, err := os.Stat(candidatePath); err == nil {
			promptPath = candidatePath
		}
	}

	if promptPath == "" {
		return "", fmt.Errorf("prompt file '%s' not found in any of the prompt directories: %v", promptFile, promptDirs)
	}
	return promptPath, nil
}

// Render loads the named template and fills in {{input}} with message and
// the remaining placeholders from key:value args.
func Render(message string, promptName string, promptDirs []string, args []string) (*Rendered, error) {
	promptPath, err := Find(promptName, promptDirs)
	if err != nil {
		return nil, err
	}

	promptTemplate, err := LoadPrompt(promptPath)
	if err != nil {
		return nil, fmt.Errorf("error loading prompt file: %w", err)
	}

	argMap, err := processArgs(args)
	if err != nil {
		return nil, fmt.Errorf("error processing arguments: %w", err)
	}

	replacements := make(map[string]string)
	replacements["input"] = message
	for key, value := range argMap {
		replacements[key] = value
	}

	systemPrompt := promptTemplate.System
	userPrompt := promptTemplate.User
	for key, value := range replacements {
		placeholder := fmt.Sprintf("{{%s}}", key)
		systemPrompt = strings.ReplaceAll(systemPrompt, placeholder, value)
		userPrompt = strings.ReplaceAll(userPrompt, placeholder, value)
	}

	// A template without a user part sends the message unchanged.
	if strings.TrimSpace(promptTemplate.User) == "" {
		userPrompt = message
	}

	return &Rendered{
		Name:         promptName,
		SystemPrompt: systemPrompt,
		Text:         userPrompt,
		Model:        promptTemplate.Model,
		Temperature:  promptTemplate.Temperature,
	}, nil
}

// List returns every template below promptDirs, sorted by name. A name found
// in several directories is reported once, from the first directory.
func List(promptDirs []string) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)

	for _, promptDir := range promptDirs {
		if _, err := os.Stat(promptDir); os.IsNotExist(err) {
			continue
		}

		err := filepath.WalkDir(promptDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".toml") {
				return nil
			}

			relPath, err := filepath.Rel(promptDir, path)
			if err != nil {
				return nil
			}
			promptName := filepath.ToSlash(strings.TrimSuffix(relPath, ".toml"))
			if seen[promptName] {
				return nil
			}
			seen[promptName] = true
			entries = append(entries, Entry{Name: promptName, Dir: promptDir})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking prompt directory %s: %w", promptDir, err)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// processArgs processes the command line arguments and returns a map of key-value pairs
func processArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, arg := range args {
		// Handle quoted values
		arg = strings.TrimSpace(arg)
		if strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) {
			arg = strings.Trim(arg, `"`)
		}

		key, value, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("invalid argument format: %s. Expected format: key:value", arg)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Remove escape characters from value
		value = strings.ReplaceAll(value, `\:`, ":")
		value = strings.ReplaceAll(value, `\"`, `"`)

		if key == "input" {
			return nil, fmt.Errorf("'input' is a reserved keyword and cannot be used as a key")
		}
		result[key] = value
	}
	return result, nil
}
