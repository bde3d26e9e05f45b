package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/longkey1/llmchat/internal/llmc/config"
	"github.com/longkey1/llmchat/internal/llmc/storage"
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage stored settings",
	Long: `Manage the settings stored in the state file. Stored settings take
precedence over the configuration file and environment variables.

Available keys: api_key, provider, model, system_prompt`,
}

// settingsListCmd represents the settings list command
var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored settings and the effective values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, state, err := openState()
		if err != nil {
			return err
		}

		effective, err := cfg.Settings(state)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSTORED\tEFFECTIVE")
		fmt.Fprintln(w, "---\t------\t---------")
		for _, key := range storage.SettingKeys {
			stored := "-"
			var value string
			if ok, err := state.Get(key, &value); err != nil {
				return fmt.Errorf("reading %s: %w", key, err)
			} else if ok {
				stored = displayValue(key, value)
			}

			var current string
			switch key {
			case storage.KeyAPIKey:
				current = effective.APIKey
			case storage.KeyProvider:
				current = effective.Provider
			case storage.KeyModel:
				current = effective.Model
			case storage.KeySystemPrompt:
				current = effective.SystemPrompt
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, stored, displayValue(key, current))
		}
		w.Flush()

		fmt.Printf("\nState file: %s\n", state.Path())
		return nil
	},
}

// settingsGetCmd represents the settings get command
var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := settingKey(args[0])
		if err != nil {
			return err
		}

		_, state, err := openState()
		if err != nil {
			return err
		}

		var value string
		ok, err := state.Get(key, &value)
		if err != nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "%s is not set\n", key)
			return nil
		}
		fmt.Println(displayValue(key, value))
		return nil
	},
}

// settingsSetCmd represents the settings set command
var settingsSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a setting",
	Long: `Store a setting in the state file.

If the value of api_key is omitted, it is read from the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := settingKey(args[0])
		if err != nil {
			return err
		}

		var value string
		switch {
		case len(args) == 2:
			value = args[1]
		case key == storage.KeyAPIKey:
			secret, err := readline.Password("API key: ")
			if err != nil {
				return fmt.Errorf("reading API key: %w", err)
			}
			value = string(secret)
		default:
			return fmt.Errorf("missing value for %s", key)
		}

		if key != storage.KeySystemPrompt {
			value = strings.TrimSpace(value)
		}
		if key == storage.KeyProvider {
			if err := config.ValidateProvider(value); err != nil {
				return err
			}
		}

		_, state, err := openState()
		if err != nil {
			return err
		}
		if err := state.Set(key, value); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}

		log.WithField("key", key).Debug("Setting stored")
		fmt.Printf("%s set to %s\n", key, displayValue(key, value))
		return nil
	},
}

// settingsUnsetCmd represents the settings unset command
var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := settingKey(args[0])
		if err != nil {
			return err
		}

		_, state, err := openState()
		if err != nil {
			return err
		}
		if err := state.Remove(key); err != nil {
			return fmt.Errorf("removing %s: %w", key, err)
		}

		fmt.Printf("%s unset\n", key)
		return nil
	},
}

// openState loads the configuration and the state file it points to
func openState() (*config.Config, *storage.Storage, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	state, err := storage.Open(cfg.StateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state file: %w", err)
	}
	return cfg, state, nil
}

// settingKey normalizes key and checks that it can be stored
func settingKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(storage.SettingKeys, key) {
		return "", fmt.Errorf("unknown setting: %s (available: %s)", key, strings.Join(storage.SettingKeys, ", "))
	}
	return key, nil
}

// displayValue masks API keys and quotes empty values
func displayValue(key, value string) string {
	if key == storage.KeyAPIKey {
		return maskToken(value)
	}
	if value == "" {
		return `""`
	}
	return value
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
}
