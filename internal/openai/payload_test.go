package openai

import (
	"encoding/json"
	"testing"

	"github.com/longkey1/llmchat/internal/llmc"
)

func marshalRequest(t *testing.T, text string, atts []llmc.Attachment, s llmc.Settings) map[string]any {
	t.Helper()
	raw, err := json.Marshal(BuildRequest(text, atts, s))
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return body
}

func userParts(t *testing.T, body map[string]any) []any {
	t.Helper()
	messages := body["messages"].([]any)
	last := messages[len(messages)-1].(map[string]any)
	if last["role"] != "user" {
		t.Fatalf("last message role = %v", last["role"])
	}
	parts, ok := last["content"].([]any)
	if !ok {
		t.Fatalf("user content = %v, want parts", last["content"])
	}
	return parts
}

func TestBuildRequest(t *testing.T) {
	s := llmc.Settings{
		Model:               "m",
		SystemPrompt:        "Be brief.",
		Temperature:         0.5,
		MaxCompletionTokens: 2000,
	}
	atts := []llmc.Attachment{
		{ID: "1", EncodedData: "data:image/png;base64,AAAA"},
		{ID: "2", EncodedData: "data:image/jpeg;base64,BBBB"},
	}
	body := marshalRequest(t, "What is this?", atts, s)

	if body["model"] != "m" || body["temperature"] != 0.5 || body["max_completion_tokens"] != float64(2000) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["stream"]; ok {
		t.Errorf("stream should be omitted, got %v", body["stream"])
	}

	messages := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	system := messages[0].(map[string]any)
	if system["role"] != "system" || system["content"] != "Be brief." {
		t.Errorf("system message = %v", system)
	}

	parts := userParts(t, body)
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	text := parts[0].(map[string]any)
	if text["type"] != "text" || text["text"] != "What is this?" {
		t.Errorf("text part = %v", text)
	}
	for i, want := range []string{"data:image/png;base64,AAAA", "data:image/jpeg;base64,BBBB"} {
		part := parts[i+1].(map[string]any)
		url := part["image_url"].(map[string]any)["url"]
		if part["type"] != "image_url" || url != want {
			t.Errorf("part %d = %v, want url %q", i+1, part, want)
		}
	}
}

func TestBuildRequestWithoutSystemPrompt(t *testing.T) {
	body := marshalRequest(t, "Hi", nil, llmc.Settings{Model: "m", SystemPrompt: "  "})
	if messages := body["messages"].([]any); len(messages) != 1 {
		t.Errorf("messages = %v, want the user turn only", messages)
	}
}

func TestBuildRequestDefaultInstruction(t *testing.T) {
	atts := []llmc.Attachment{{ID: "1", EncodedData: "data:image/png;base64,AAAA"}}

	body := marshalRequest(t, "   ", atts, llmc.Settings{Model: "m"})
	parts := userParts(t, body)
	if len(parts) != 1 || parts[0].(map[string]any)["type"] != "image_url" {
		t.Errorf("parts = %v, want the image only", parts)
	}

	body = marshalRequest(t, "", nil, llmc.Settings{Model: "m"})
	parts = userParts(t, body)
	if len(parts) != 1 || parts[0].(map[string]any)["text"] != DefaultInstruction {
		t.Errorf("parts = %v, want the default instruction", parts)
	}
}
