/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/longkey1/llmchat/internal/llmc"
	promptpkg "github.com/longkey1/llmchat/internal/llmc/prompt"
)

var (
	prompt    string
	argFlags  []string
	useEditor bool
	images    []string
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message to the LLM",
	Long: `Send a message to the LLM and print the response.
The message and the reply are appended to the conversation history kept in
the state file.

For an interactive conversation, use 'llmchat start' instead.

If no message is provided as an argument, it reads from stdin.
If --editor flag is set, it opens the default editor (from EDITOR environment variable) to compose the message.
Images can be attached with --image (repeatable, at most 10 files of 10 MiB each by default).

The provider, model and API key come from 'llmchat settings' and the configuration file.

The prompt file should be in TOML format with the following structure:
system = "System prompt with optional {{input}} placeholder"
user = "User prompt with optional {{input}} placeholder"
model = "optional-model-name"  # Optional: overrides the model for this prompt
temperature = 0.2              # Optional: overrides the temperature for this prompt

Press Ctrl+C while waiting to cancel the request.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(newTerminalUI(false))
		if err != nil {
			return err
		}

		// Get message from arguments, editor, or stdin
		var message string
		if useEditor {
			message, err = getMessageFromEditor()
			if err != nil {
				return fmt.Errorf("getting message from editor: %w", err)
			}
		} else if len(args) > 0 {
			message = strings.Join(args, " ")
		} else if !isTerminal(os.Stdin.Fd()) || len(images) == 0 {
			// Read from stdin
			input, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			message = strings.TrimSpace(string(input))
		}

		if prompt != "" {
			rendered, err := promptpkg.Render(message, prompt, a.cfg.PromptDirs, argFlags)
			if err != nil {
				return fmt.Errorf("formatting message with prompt: %w", err)
			}
			a.template = rendered
			message = rendered.Text
			log.WithField("prompt", prompt).Debug("Using prompt template")
		}

		if len(images) > 0 {
			a.stage(cmd.Context(), images)
		}

		stop := a.cancelOnInterrupt()
		out := a.session.Send(cmd.Context(), message)
		stop()

		if out.Status != llmc.Completed {
			return errReported
		}
		return nil
	},
}

// getMessageFromEditor opens the default editor and returns the edited message
func getMessageFromEditor() (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", fmt.Errorf("EDITOR environment variable is not set")
	}

	// Create a temporary file
	tmpFile, err := os.CreateTemp("", "llmchat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	// Open the editor
	cmd := exec.Command(editor, tmpFile.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to open editor: %w", err)
	}

	// Read the edited content
	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

func init() {
	rootCmd.AddCommand(chatCmd)

	// Add command options
	chatCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Name of the prompt template (without .toml extension)")
	chatCmd.Flags().StringArrayVar(&argFlags, "arg", []string{}, "Key-value pairs for prompt template (format: key:value)")
	chatCmd.Flags().BoolVarP(&useEditor, "editor", "e", false, "Use default editor (from EDITOR environment variable) to compose message")
	chatCmd.Flags().StringArrayVarP(&images, "image", "i", []string{}, "Image file to attach (repeatable)")
}
