package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/longkey1/llmchat/internal/llmc"
	"github.com/longkey1/llmchat/internal/llmc/storage"
)

// Supported providers. All of them speak the OpenAI chat completions API.
const (
	ProviderGroq       = "groq"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"

	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OpenAIBaseURL     = "https://api.openai.com/v1"
)

// DefaultModels maps each provider to the model used when none is configured.
var DefaultModels = map[string]string{
	ProviderGroq:       "meta-llama/llama-4-scout-17b-16e-instruct",
	ProviderOpenRouter: "meta-llama/llama-4-maverick-17b-128e-instruct",
	ProviderOpenAI:     "gpt-4.1",
}

// Overrides is the read side of the state file.
type Overrides interface {
	Get(key string, v any) (bool, error)
}

// Providers returns the supported provider names, sorted.
func Providers() []string {
	names := make([]string, 0, len(DefaultModels))
	for name := range DefaultModels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateProvider returns an error if provider is not supported.
func ValidateProvider(provider string) error {
	if _, ok := DefaultModels[provider]; !ok {
		return fmt.Errorf("unsupported provider: %s (supported: %s)", provider, strings.Join(Providers(), ", "))
	}
	return nil
}

// expandEnvVar expands environment variable references in the given value
// Supports both $VAR and ${VAR} syntax
// If the environment variable is not set, returns empty string.
func expandEnvVar(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}

	var envVarName string
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVarName = value[2 : len(value)-1]
	} else {
		envVarName = strings.TrimPrefix(value, "$")
	}
	return os.Getenv(envVarName)
}

// GetBaseURL returns the base URL for the specified provider
// Environment variables are already expanded during Load()
func (c *Config) GetBaseURL(provider string) (string, error) {
	var baseURLValue string
	switch provider {
	case ProviderGroq:
		baseURLValue = c.GroqBaseURL
	case ProviderOpenRouter:
		baseURLValue = c.OpenRouterBaseURL
	case ProviderOpenAI:
		baseURLValue = c.OpenAIBaseURL
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}

	if baseURLValue == "" {
		return "", fmt.Errorf("%s base URL is not configured. Set it in config file (%s_base_url) or environment variable (LLMCHAT_%s_BASE_URL)", provider, provider, strings.ToUpper(provider))
	}

	return baseURLValue, nil
}

// GetToken returns the token for the specified provider. An empty token is
// not an error here; it is reported when a request is attempted.
func (c *Config) GetToken(provider string) (string, error) {
	switch provider {
	case ProviderGroq:
		return c.GroqToken, nil
	case ProviderOpenRouter:
		return c.OpenRouterToken, nil
	case ProviderOpenAI:
		return c.OpenAIToken, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
}

// Settings resolves the request settings. Values stored in overrides take
// precedence over the configuration. When no model is set for the resolved
// provider, its default model is used.
func (c *Config) Settings(overrides Overrides) (llmc.Settings, error) {
	var (
		provider, apiKey, model, systemPrompt string
		hasSystemPrompt                       bool
	)
	if overrides != nil {
		for key, dst := range map[string]*string{
			storage.KeyProvider: &provider,
			storage.KeyAPIKey:   &apiKey,
			storage.KeyModel:    &model,
		} {
			if _, err := overrides.Get(key, dst); err != nil {
				return llmc.Settings{}, fmt.Errorf("reading setting %s: %w", key, err)
			}
		}
		ok, err := overrides.Get(storage.KeySystemPrompt, &systemPrompt)
		if err != nil {
			return llmc.Settings{}, fmt.Errorf("reading setting %s: %w", storage.KeySystemPrompt, err)
		}
		hasSystemPrompt = ok
	}

	configProvider := c.Provider
	if configProvider == "" {
		configProvider = DefaultProvider
	}
	if provider == "" {
		provider = configProvider
	}
	if err := ValidateProvider(provider); err != nil {
		return llmc.Settings{}, err
	}

	baseURL, err := c.GetBaseURL(provider)
	if err != nil {
		return llmc.Settings{}, err
	}

	if apiKey == "" {
		if apiKey, err = c.GetToken(provider); err != nil {
			return llmc.Settings{}, err
		}
	}

	// A configured model belongs to the configured provider.
	if model == "" && provider == configProvider {
		model = c.Model
	}
	if model == "" {
		model = DefaultModels[provider]
	}

	if !hasSystemPrompt {
		systemPrompt = c.SystemPrompt
	}

	temperature := c.Temperature
	if temperature < 0 {
		temperature = DefaultTemperature
	}
	maxTokens := c.MaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxCompletionTokens
	}

	return llmc.Settings{
		Provider:            provider,
		BaseURL:             baseURL,
		APIKey:              apiKey,
		Model:               model,
		SystemPrompt:        systemPrompt,
		Temperature:         float32(temperature),
		MaxCompletionTokens: maxTokens,
	}, nil
}

// ResolvePath converts a relative path to absolute path if needed
func ResolvePath(v *viper.Viper, path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}

	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("error getting user home directory: %w", err)
		}
		return filepath.Join(home, rest), nil
	}

	// Get config file directory as base directory
	configFile := v.ConfigFileUsed()
	if configFile == "" {
		// If no config file is used, fall back to current working directory
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %w", err)
		}
		return filepath.Join(cwd, path), nil
	}

	// Use config file directory as base
	configDir := filepath.Dir(configFile)

	// If configDir is relative, make it absolute
	if !filepath.IsAbs(configDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("error getting current working directory: %w", err)
		}
		configDir = filepath.Join(cwd, configDir)
	}

	return filepath.Join(configDir, path), nil
}
