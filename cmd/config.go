package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/longkey1/llmchat/internal/llmc/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.
Settings stored with 'llmchat settings' are not included.

If a field name is specified, only that field's value is displayed.
Available fields: configfile, provider, model, system_prompt, groq_base_url, groq_token,
openrouter_base_url, openrouter_token, openai_base_url, openai_token, temperature,
max_completion_tokens, max_attachments, max_attachment_bytes, state_file, prompt_dirs

Examples:
  llmchat config                 # Show all configuration
  llmchat config model           # Show only model
  llmchat config groq_token      # Show only the Groq token (masked)
  llmchat config state_file      # Show only the state file location`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fields := configFields(cfg)

		// If a field is specified, show only that field
		if len(args) > 0 {
			name := strings.ToLower(args[0])
			for _, f := range fields {
				if f.name == name {
					fmt.Println(f.value)
					return nil
				}
			}
			names := make([]string, len(fields))
			for i, f := range fields {
				names[i] = f.name
			}
			fmt.Fprintf(os.Stderr, "Available fields: %s\n", strings.Join(names, ", "))
			return fmt.Errorf("unknown field: %s", args[0])
		}

		// Display all configuration values
		for _, f := range fields {
			fmt.Printf("%s: %s\n", f.name, f.value)
		}
		return nil
	},
}

type configField struct {
	name  string
	value string
}

// configFields lists the displayable configuration values. Tokens are masked.
func configFields(cfg *config.Config) []configField {
	return []configField{
		{"configfile", viper.ConfigFileUsed()},
		{"provider", cfg.Provider},
		{"model", cfg.Model},
		{"system_prompt", cfg.SystemPrompt},
		{"groq_base_url", cfg.GroqBaseURL},
		{"groq_token", maskToken(cfg.GroqToken)},
		{"openrouter_base_url", cfg.OpenRouterBaseURL},
		{"openrouter_token", maskToken(cfg.OpenRouterToken)},
		{"openai_base_url", cfg.OpenAIBaseURL},
		{"openai_token", maskToken(cfg.OpenAIToken)},
		{"temperature", fmt.Sprint(cfg.Temperature)},
		{"max_completion_tokens", fmt.Sprint(cfg.MaxCompletionTokens)},
		{"max_attachments", fmt.Sprint(cfg.MaxAttachments)},
		{"max_attachment_bytes", fmt.Sprint(cfg.MaxAttachmentBytes)},
		{"allowed_mime_prefixes", strings.Join(cfg.AllowedMimePrefixes, ",")},
		{"connection_test_timeout_seconds", fmt.Sprint(cfg.ConnectionTestTimeoutSeconds)},
		{"state_file", cfg.StateFile},
		// PromptDirs are already absolute paths
		{"prompt_dirs", strings.Join(cfg.PromptDirs, ",")},
		{"log_level", cfg.LogLevel},
		{"log_format", cfg.LogFormat},
	}
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
