package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/attachment"
)

var (
	historyLast    int
	historySaveDir string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the conversation history",
	Long: `Show the stored conversation, oldest message first.

Use --last to show only the most recent messages. Use --save-images to write
the attached images of the shown messages to a directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}

		messages := a.session.History()
		if historyLast > 0 && len(messages) > historyLast {
			messages = messages[len(messages)-historyLast:]
		}
		printHistory(os.Stdout, messages)

		if historySaveDir != "" {
			n, err := saveImages(historySaveDir, messages)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved %d image(s) to %s\n", n, historySaveDir)
		}
		return nil
	},
}

// saveImages decodes the attachments of messages into dir. Files are named
// after the message ID and the original file name.
func saveImages(dir string, messages []llmc.Message) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	saved := 0
	for _, msg := range messages {
		for _, att := range msg.Attachments {
			_, data, err := attachment.DecodeDataURL(att.EncodedData)
			if err != nil {
				return saved, fmt.Errorf("message %d, %s: %w", msg.ID, att.Name, err)
			}
			path := filepath.Join(dir, fmt.Sprintf("%d-%s", msg.ID, filepath.Base(att.Name)))
			if err := os.WriteFile(path, data, 0644); err != nil {
				return saved, fmt.Errorf("failed to write image: %w", err)
			}
			saved++
		}
	}
	return saved, nil
}

// printHistory writes messages with a role label, timestamp and attachment
// names.
func printHistory(w io.Writer, messages []llmc.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "No messages in the conversation.")
		return
	}

	fmt.Fprintln(w, "Message History:")
	fmt.Fprintln(w, "----------------")
	for _, msg := range messages {
		roleLabel := "You"
		if msg.Role == llmc.RoleAssistant {
			roleLabel = "Assistant"
		}
		if msg.Error {
			roleLabel += " (error)"
		}

		fmt.Fprintf(w, "\n[%d] %s (%s):\n", msg.ID, roleLabel, msg.Timestamp.Format("2006-01-02 15:04:05"))
		for _, att := range msg.Attachments {
			fmt.Fprintf(w, "  <image %s, %s>\n", att.Name, humanSize(att.SizeBytes))
		}
		if msg.Text != "" {
			fmt.Fprintln(w, msg.Text)
		}
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLast, "last", "n", 0, "Show only the last N messages")
	historyCmd.Flags().StringVar(&historySaveDir, "save-images", "", "Write attached images to this directory")
}
