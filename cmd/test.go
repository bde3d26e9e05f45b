package cmd

import (
	"github.com/spf13/cobra"

	"github.com/longkey1/llmchat/internal/llmc"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the API connection",
	Long: `Send a minimal request to the configured provider to check that the
endpoint, API key and model work. The probe is not added to the conversation.

The request times out after connection_test_timeout_seconds (10 by default).
Press Ctrl+C to abort it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(newTerminalUI(false))
		if err != nil {
			return err
		}

		if out := a.testConnection(cmd.Context()); out.Status != llmc.Completed {
			return errReported
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
