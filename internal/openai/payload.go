package openai

import (
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/longkey1/llmchat/internal/llmc"
)

const (
	// DefaultInstruction replaces an empty user message.
	DefaultInstruction = "Please analyze the uploaded files."

	probeMessage             = "Hello"
	probeMaxCompletionTokens = 16
)

// BuildRequest builds the chat completion payload for one user turn: an
// optional system message followed by a user message made of a text part and
// one image part per attachment, in attachment order.
func BuildRequest(text string, attachments []llmc.Attachment, settings llmc.Settings) goopenai.ChatCompletionRequest {
	var parts []goopenai.ChatMessagePart
	if strings.TrimSpace(text) != "" {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeText,
			Text: text,
		})
	}
	for _, att := range attachments {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL: att.EncodedData,
			},
		})
	}
	if len(parts) == 0 {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeText,
			Text: DefaultInstruction,
		})
	}

	messages := systemMessages(settings)
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:         goopenai.ChatMessageRoleUser,
		MultiContent: parts,
	})

	return goopenai.ChatCompletionRequest{
		Model:               settings.Model,
		Messages:            messages,
		Temperature:         settings.Temperature,
		MaxCompletionTokens: settings.MaxCompletionTokens,
		Stream:              false,
	}
}

// probeRequest is the fixed minimal payload used to test a connection.
func probeRequest(settings llmc.Settings) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model: settings.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: probeMessage},
		},
		MaxCompletionTokens: probeMaxCompletionTokens,
	}
}

func systemMessages(settings llmc.Settings) []goopenai.ChatCompletionMessage {
	prompt := strings.TrimSpace(settings.SystemPrompt)
	if prompt == "" {
		return nil
	}
	return []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: prompt},
	}
}
