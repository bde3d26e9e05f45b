/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/cobra"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/config"
	"github.com/longkey1/llmchat/internal/openai"
)

var allProviders bool

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List available models for the specified provider(s)",
	Long: `List all available models for the specified provider.
Fetches the latest model information directly from the provider's API.

Supported providers: groq, openai, openrouter

If no provider is specified, lists models from the current provider.

Example:
  llmchat models              # List models from the current provider
  llmchat models groq         # List Groq models
  llmchat models --all        # List models from all providers`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, state, err := openState()
		if err != nil {
			return err
		}

		current, err := cfg.Settings(state)
		if err != nil {
			return err
		}

		// Determine which providers to list
		var providers []string
		switch {
		case len(args) > 0:
			if err := config.ValidateProvider(args[0]); err != nil {
				return err
			}
			providers = []string{args[0]}
		case allProviders:
			providers = config.Providers()
		default:
			providers = []string{current.Provider}
		}

		type providerResult struct {
			provider string
			models   []llmc.ModelInfo
			err      error
		}

		client := openai.NewClient(openai.WithLogger(log))

		// List models for each provider concurrently
		results := iter.Map(providers, func(provider *string) providerResult {
			result := providerResult{provider: *provider}

			settings := current
			if *provider != current.Provider {
				settings, result.err = providerSettings(cfg, *provider)
				if result.err != nil {
					return result
				}
			}

			log.WithField("provider", *provider).Debug("Listing models")
			result.models, result.err = client.ListModels(cmd.Context(), settings)
			if result.err == nil && len(result.models) == 0 {
				result.err = fmt.Errorf("no models returned from API")
			}
			return result
		})

		// Display successful results first
		successCount := 0
		for _, result := range results {
			if result.err != nil {
				continue
			}

			if successCount > 0 {
				fmt.Println() // Add blank line between providers
			}
			successCount++

			models := result.models
			sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

			// Display provider name
			fmt.Printf("Available models for %s:\n\n", result.provider)

			// Calculate column widths
			maxModelIDWidth := 15
			for _, model := range models {
				if len(model.ID) > maxModelIDWidth {
					maxModelIDWidth = len(model.ID)
				}
			}

			// Display header
			fmt.Printf("%-*s  %-10s  %s\n", maxModelIDWidth, "MODEL ID", "CURRENT", "OWNED BY")
			fmt.Printf("%s  %s  %s\n",
				strings.Repeat("-", maxModelIDWidth),
				strings.Repeat("-", 10),
				strings.Repeat("-", 20))

			// Display models
			for _, model := range models {
				mark := ""
				if result.provider == current.Provider && model.ID == current.Model {
					mark = "Yes"
				} else if result.provider != current.Provider && model.ID == config.DefaultModels[result.provider] {
					mark = "(default)"
				}
				fmt.Printf("%-*s  %-10s  %s\n", maxModelIDWidth, model.ID, mark, model.OwnedBy)
			}

			// Usage hint
			fmt.Printf("\nUse a model with: llmchat settings set model <model>\n")
		}

		// Display errors at the end
		errorCount := 0
		for _, result := range results {
			if result.err == nil {
				continue
			}

			if errorCount == 0 && successCount > 0 {
				fmt.Println() // Add blank line before error section
			}
			errorCount++

			fmt.Fprintf(os.Stderr, "Warning: Skipping %s - %v\n", result.provider, result.err)
		}

		if successCount == 0 {
			return errReported
		}
		return nil
	},
}

// providerSettings returns the endpoint and key for a provider other than
// the current one. Stored overrides apply to the current provider only.
func providerSettings(cfg *config.Config, provider string) (llmc.Settings, error) {
	baseURL, err := cfg.GetBaseURL(provider)
	if err != nil {
		return llmc.Settings{}, err
	}
	token, err := cfg.GetToken(provider)
	if err != nil {
		return llmc.Settings{}, err
	}
	return llmc.Settings{
		Provider: provider,
		BaseURL:  baseURL,
		APIKey:   token,
		Model:    config.DefaultModels[provider],
	}, nil
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVarP(&allProviders, "all", "a", false, "List models from all providers")
}
