/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/longkey1/llmchat/internal/llmc/config"
	"github.com/longkey1/llmchat/internal/logger"
)

// errReported is returned by commands whose failure was already shown to the
// user, so Execute only sets the exit status.
var errReported = errors.New("request failed")

var (
	cfgFile string
	verbose bool

	// log is configured in PersistentPreRun from log_level and log_format.
	log = logger.Discard()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "llmchat",
	Short: "Chat with OpenAI-compatible LLM endpoints from the terminal",
	Long: `llmchat is a terminal chat client for OpenAI-compatible chat completion APIs
(Groq, OpenRouter and OpenAI). It can attach images to a message, keeps the
conversation history in a local state file and recovers from network and API
failures without losing the transcript.

You can configure the tool using a TOML configuration file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := viper.GetString("log_level")
		if verbose {
			level = "debug"
		}
		log = logger.New(level, viper.GetString("log_format"), os.Stderr)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/llmchat/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// userConfigDir returns $HOME/.config/llmchat
func userConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "llmchat"), nil
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Set environment variable prefix and automatic env
	viper.SetEnvPrefix("LLMCHAT")
	viper.AutomaticEnv()

	configDir, err := userConfigDir()
	cobra.CheckErr(err)

	// Later prompt directories take precedence over earlier ones
	defaultPromptDirs := []string{
		"/usr/share/llmchat/prompts",
		"/usr/local/share/llmchat/prompts",
		filepath.Join(configDir, "prompts"),
	}
	defaultConfig := config.NewDefaultConfig(filepath.Join(configDir, "prompts"), filepath.Join(configDir, "state.json"))
	defaultConfig.SetDefaults(viper.GetViper())
	viper.SetDefault("prompt_dirs", defaultPromptDirs)

	// Bind environment variables
	for _, provider := range config.Providers() {
		_ = viper.BindEnv(provider+"_base_url", "LLMCHAT_"+strings.ToUpper(provider)+"_BASE_URL")
		_ = viper.BindEnv(provider+"_token", "LLMCHAT_"+strings.ToUpper(provider)+"_TOKEN")
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else {
		systemDirs := []string{"/etc/llmchat", "/usr/local/etc/llmchat"}
		if err := loadConfigFiles(viper.GetViper(), systemDirs, filepath.Join(configDir, "config.toml")); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}

	if verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		fmt.Fprintln(os.Stderr, "  LLMCHAT_PROVIDER:", viper.GetString("provider"))
		fmt.Fprintln(os.Stderr, "  LLMCHAT_MODEL:", viper.GetString("model"))
		fmt.Fprintln(os.Stderr, "  LLMCHAT_STATE_FILE:", viper.GetString("state_file"))
		fmt.Fprintln(os.Stderr, "  LLMCHAT_PROMPT_DIRS:", viper.GetStringSlice("prompt_dirs"))
	}
}

// loadConfigFiles reads config.toml from each system directory and then the
// user file, each merged over the previous one. Missing files are skipped.
func loadConfigFiles(v *viper.Viper, systemDirs []string, userFile string) error {
	files := make([]string, 0, len(systemDirs)+1)
	for _, dir := range systemDirs {
		files = append(files, filepath.Join(dir, "config.toml"))
	}
	files = append(files, userFile)

	v.SetConfigType("toml")
	loaded := false
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}

		// viper caches the file it found, so each one is set explicitly
		v.SetConfigFile(file)
		read := v.MergeInConfig
		if !loaded {
			read = v.ReadInConfig
		}
		if err := read(); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		loaded = true

		if verbose {
			fmt.Fprintln(os.Stderr, "Loaded config:", file)
		}
	}
	return nil
}
