package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the conversation history",
	Long: `Delete every stored message. Message numbering starts again at 1.

Warning: This action cannot be undone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(newTerminalUI(false))
		if err != nil {
			return err
		}

		n := len(a.session.History())
		if n == 0 {
			fmt.Println("No messages in the conversation.")
			return nil
		}

		// Confirm deletion
		if !clearYes {
			fmt.Printf("Are you sure you want to delete all %d messages? [y/N]: ", n)
			var response string
			fmt.Scanln(&response)

			if response != "y" && response != "Y" {
				fmt.Println("Clear cancelled.")
				return nil
			}
		}

		a.session.Clear()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")
}
