package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/longkey1/llmchat/internal/llmc/attachment"
)

const (
	DefaultProvider            = ProviderGroq
	DefaultSystemPrompt        = "You are a helpful assistant. Respond clearly, logically, and in a well-structured manner. Use proper grammar and punctuation."
	DefaultTemperature         = 0.7
	DefaultMaxCompletionTokens = 2000
	DefaultTestTimeoutSeconds  = 10
)

// Config holds the configuration for the chat client
type Config struct {
	Provider                     string   `toml:"provider" mapstructure:"provider"`
	Model                        string   `toml:"model" mapstructure:"model"` // Empty = provider default
	SystemPrompt                 string   `toml:"system_prompt" mapstructure:"system_prompt"`
	GroqBaseURL                  string   `toml:"groq_base_url" mapstructure:"groq_base_url"`
	GroqToken                    string   `toml:"groq_token" mapstructure:"groq_token"`
	OpenRouterBaseURL            string   `toml:"openrouter_base_url" mapstructure:"openrouter_base_url"`
	OpenRouterToken              string   `toml:"openrouter_token" mapstructure:"openrouter_token"`
	OpenAIBaseURL                string   `toml:"openai_base_url" mapstructure:"openai_base_url"`
	OpenAIToken                  string   `toml:"openai_token" mapstructure:"openai_token"`
	Temperature                  float64  `toml:"temperature" mapstructure:"temperature"`
	MaxCompletionTokens          int      `toml:"max_completion_tokens" mapstructure:"max_completion_tokens"`
	MaxAttachments               int      `toml:"max_attachments" mapstructure:"max_attachments"`
	MaxAttachmentBytes           int64    `toml:"max_attachment_bytes" mapstructure:"max_attachment_bytes"`
	AllowedMimePrefixes          []string `toml:"allowed_mime_prefixes" mapstructure:"allowed_mime_prefixes"`
	ConnectionTestTimeoutSeconds int      `toml:"connection_test_timeout_seconds" mapstructure:"connection_test_timeout_seconds"`
	StateFile                    string   `toml:"state_file" mapstructure:"state_file"`
	PromptDirs                   []string `toml:"prompt_dirs" mapstructure:"prompt_dirs"`
	LogLevel                     string   `toml:"log_level" mapstructure:"log_level"`
	LogFormat                    string   `toml:"log_format" mapstructure:"log_format"`
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig(promptDir, stateFile string) *Config {
	return &Config{
		Provider:                     DefaultProvider,
		Model:                        "",
		SystemPrompt:                 DefaultSystemPrompt,
		GroqBaseURL:                  GroqBaseURL,
		GroqToken:                    "$GROQ_API_KEY", // Default to env var
		OpenRouterBaseURL:            OpenRouterBaseURL,
		OpenRouterToken:              "$OPENROUTER_API_KEY",
		OpenAIBaseURL:                OpenAIBaseURL,
		OpenAIToken:                  "$OPENAI_API_KEY",
		Temperature:                  DefaultTemperature,
		MaxCompletionTokens:          DefaultMaxCompletionTokens,
		MaxAttachments:               attachment.DefaultMaxFiles,
		MaxAttachmentBytes:           attachment.DefaultMaxBytes,
		AllowedMimePrefixes:          append([]string(nil), attachment.DefaultAllowedPrefixes...),
		ConnectionTestTimeoutSeconds: DefaultTestTimeoutSeconds,
		StateFile:                    stateFile,
		PromptDirs:                   []string{promptDir},
		LogLevel:                     "warn",
		LogFormat:                    "text",
	}
}

// SetDefaults registers the values of c as viper defaults.
func (c *Config) SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", c.Provider)
	v.SetDefault("model", c.Model)
	v.SetDefault("system_prompt", c.SystemPrompt)
	v.SetDefault("groq_base_url", c.GroqBaseURL)
	v.SetDefault("groq_token", c.GroqToken)
	v.SetDefault("openrouter_base_url", c.OpenRouterBaseURL)
	v.SetDefault("openrouter_token", c.OpenRouterToken)
	v.SetDefault("openai_base_url", c.OpenAIBaseURL)
	v.SetDefault("openai_token", c.OpenAIToken)
	v.SetDefault("temperature", c.Temperature)
	v.SetDefault("max_completion_tokens", c.MaxCompletionTokens)
	v.SetDefault("max_attachments", c.MaxAttachments)
	v.SetDefault("max_attachment_bytes", c.MaxAttachmentBytes)
	v.SetDefault("allowed_mime_prefixes", c.AllowedMimePrefixes)
	v.SetDefault("connection_test_timeout_seconds", c.ConnectionTestTimeoutSeconds)
	v.SetDefault("state_file", c.StateFile)
	v.SetDefault("prompt_dirs", c.PromptDirs)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load unmarshals the configuration from v, expands environment variable
// references in base URLs and tokens and makes paths absolute.
func Load(v *viper.Viper) (*Config, error) {
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for _, field := range []*string{
		&config.GroqBaseURL, &config.GroqToken,
		&config.OpenRouterBaseURL, &config.OpenRouterToken,
		&config.OpenAIBaseURL, &config.OpenAIToken,
	} {
		*field = expandEnvVar(*field)
	}

	// Convert prompt directories to absolute paths
	for i, promptDir := range config.PromptDirs {
		absPath, err := ResolvePath(v, promptDir)
		if err != nil {
			return nil, fmt.Errorf("error resolving prompt directory path '%s': %w", promptDir, err)
		}
		config.PromptDirs[i] = absPath
	}

	if config.StateFile != "" {
		absPath, err := ResolvePath(v, config.StateFile)
		if err != nil {
			return nil, fmt.Errorf("error resolving state file path '%s': %w", config.StateFile, err)
		}
		config.StateFile = absPath
	}

	return config, nil
}

// AttachmentLimits returns the staging limits. Zero values fall back to the
// attachment package defaults.
func (c *Config) AttachmentLimits() attachment.Limits {
	return attachment.Limits{
		MaxFiles:        c.MaxAttachments,
		MaxBytes:        c.MaxAttachmentBytes,
		AllowedPrefixes: c.AllowedMimePrefixes,
	}
}

// TestTimeout returns the connection test timeout
func (c *Config) TestTimeout() time.Duration {
	if c.ConnectionTestTimeoutSeconds <= 0 {
		return DefaultTestTimeoutSeconds * time.Second
	}
	return time.Duration(c.ConnectionTestTimeoutSeconds) * time.Second
}
