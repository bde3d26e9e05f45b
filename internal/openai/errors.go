package openai

import (
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/longkey1/llmchat/internal/llmc/failure"
)

// classify converts a transport error into a classified error, turning the
// library's HTTP error types into a StatusError first.
func classify(err error) *failure.Error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return failure.Classify(&failure.StatusError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		})
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		message := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			message = reqErr.Err.Error()
		}
		return failure.Classify(&failure.StatusError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    message,
		})
	}

	return failure.Classify(err)
}

// extractCompletion returns the assistant text of a response, or a
// MalformedResponse error when the completion field is absent or empty.
func extractCompletion(resp goopenai.ChatCompletionResponse) (string, *failure.Error) {
	if len(resp.Choices) == 0 {
		return "", failure.Classify(fmt.Errorf("%w: no choices in response", failure.ErrMalformedResponse))
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", failure.Classify(fmt.Errorf("%w: empty message content", failure.ErrMalformedResponse))
	}
	return content, nil
}
