package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat that continues the stored conversation.

Lines starting with '/' are commands; type '/help' to list them.
Press Ctrl+C while waiting for a reply to cancel the request, and Ctrl+D to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(newTerminalUI(true))
		if err != nil {
			return err
		}

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "You> ",
			HistoryFile:     filepath.Join(filepath.Dir(a.cfg.StateFile), "history"),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("initializing line editor: %w", err)
		}
		defer rl.Close()

		if err := runInteractiveMode(cmd.Context(), a, rl); err != nil {
			return fmt.Errorf("interactive mode: %w", err)
		}
		return nil
	},
}

// runInteractiveMode reads lines until EOF or /exit and sends each one
func runInteractiveMode(ctx context.Context, a *app, rl *readline.Instance) error {
	settings, err := a.settings()
	if err != nil {
		return err
	}

	// Print session header
	fmt.Fprintf(os.Stderr, "\n=== llmchat [%s] ===\n", settings.Provider)
	fmt.Fprintf(os.Stderr, "Model: %s\n", settings.Model)
	fmt.Fprintf(os.Stderr, "Messages: %d\n", len(a.session.History()))
	fmt.Fprintf(os.Stderr, "Type '/help' for commands, '/exit' or 'Ctrl+D' to quit\n")
	fmt.Fprintf(os.Stderr, "===================================\n\n")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C at the prompt discards the line
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(os.Stderr, "Goodbye!")
			return nil
		}
		if err != nil {
			return fmt.Errorf("input error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleSpecialCommand(ctx, a, input) {
				continue
			}
			return nil
		}

		stop := a.cancelOnInterrupt()
		a.session.Send(ctx, input)
		stop()
	}
}

// handleSpecialCommand processes special commands in interactive mode
// Returns true to continue the loop, false to exit
func handleSpecialCommand(ctx context.Context, a *app, input string) bool {
	fields := strings.Fields(input)
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "/help", "/h":
		fmt.Fprintln(os.Stderr, "\nAvailable commands:")
		fmt.Fprintln(os.Stderr, "  /attach <file>...  - Stage images for the next message")
		fmt.Fprintln(os.Stderr, "  /detach <id>       - Remove a staged image")
		fmt.Fprintln(os.Stderr, "  /files             - List staged images")
		fmt.Fprintln(os.Stderr, "  /send              - Send the staged images without text")
		fmt.Fprintln(os.Stderr, "  /history           - Show the conversation")
		fmt.Fprintln(os.Stderr, "  /clear             - Clear the conversation")
		fmt.Fprintln(os.Stderr, "  /test              - Test the API connection")
		fmt.Fprintln(os.Stderr, "  /info, /i          - Show current settings")
		fmt.Fprintln(os.Stderr, "  /exit, /quit       - Exit interactive mode")
		fmt.Fprintln(os.Stderr, "  Ctrl+D             - Exit interactive mode")
		fmt.Fprintln(os.Stderr, "")

	case "/attach", "/a":
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: /attach <file>...")
			break
		}
		a.stage(ctx, args)

	case "/detach", "/d":
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, "Usage: /detach <id>")
			break
		}
		detach(a, args[0])

	case "/files", "/f":
		pending := a.session.Pending()
		if len(pending) == 0 {
			fmt.Fprintln(os.Stderr, "No images staged.")
			break
		}
		for _, att := range pending {
			fmt.Fprintf(os.Stderr, "  [%s] %s (%s, %s)\n", shortID(att.ID), att.Name, att.MimeType, humanSize(att.SizeBytes))
		}

	case "/send":
		stop := a.cancelOnInterrupt()
		a.session.Send(ctx, "")
		stop()

	case "/history":
		printHistory(os.Stdout, a.session.History())

	case "/clear", "/c":
		a.session.Clear()

	case "/test":
		a.testConnection(ctx)

	case "/info", "/i":
		settings, err := a.settings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}
		fmt.Fprintln(os.Stderr, "\nCurrent settings:")
		fmt.Fprintf(os.Stderr, "  Provider: %s\n", settings.Provider)
		fmt.Fprintf(os.Stderr, "  Model: %s\n", settings.Model)
		fmt.Fprintf(os.Stderr, "  Base URL: %s\n", settings.BaseURL)
		fmt.Fprintf(os.Stderr, "  API key: %s\n", maskToken(settings.APIKey))
		fmt.Fprintf(os.Stderr, "  Messages: %d\n", len(a.session.History()))
		fmt.Fprintf(os.Stderr, "  State file: %s\n", a.state.Path())
		fmt.Fprintln(os.Stderr, "")

	case "/exit", "/quit", "/q":
		fmt.Fprintln(os.Stderr, "Goodbye!")
		return false

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s (type '/help' for available commands)\n", command)
	}
	return true
}

// detach removes the staged attachment whose ID starts with prefix
func detach(a *app, prefix string) {
	var matches []string
	for _, att := range a.session.Pending() {
		if strings.HasPrefix(att.ID, prefix) {
			matches = append(matches, att.ID)
		}
	}

	switch len(matches) {
	case 0:
		fmt.Fprintf(os.Stderr, "No staged image with id %s\n", prefix)
	case 1:
		a.session.Unstage(matches[0])
		fmt.Fprintf(os.Stderr, "Removed [%s]\n", shortID(matches[0]))
	default:
		fmt.Fprintf(os.Stderr, "Ambiguous id %s matches %d images\n", prefix, len(matches))
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
}
