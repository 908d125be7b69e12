package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/spf13/cobra"

	"github.com/maykaila/memora/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit Memora configuration",
	Long: `Manage the client configuration stored at ~/.memora/config.yaml

Every key can also be set through the environment, e.g. MEMORA_API_BASE_URL
for api.base_url.

Configuration includes:
  • Backend URL and request timeout
  • Identity provider API key
  • Profile picture bucket
  • Role lookup retries and list refresh interval
  • Logging settings

Examples:
  # View effective configuration
  memora config view

  # Set a specific value
  memora config set api.base_url https://api.memora.example

  # Show configuration file path
  memora config path
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the effective configuration",
	Long:  `Display the configuration after defaults, the config file and the environment are merged.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration in $EDITOR",
	Long:  `Open the configuration file in your default editor (from $EDITOR environment variable).`,
	Args:  cobra.NoArgs,
	RunE:  runConfigEdit,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  `Set a configuration value in the config file. Other keys in the file are left untouched.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

// configPath is --config or the default location.
func configPath(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	out := newPrinter(cmd.OutOrStdout(), cmdCtx.Format)
	values := cfg.Map()
	return out.value(values, func(w io.Writer) {
		fmt.Fprintf(w, "Configuration file: %s\n\n", path)
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%-32s %v\n", k, values[k])
		}
	})
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}

	// Ensure config exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	// Validate the edited config
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Configuration may contain errors: %v\n", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Please check and fix the configuration file.\n")
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration updated successfully")
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	if !config.IsKnownKey(key) {
		return NewErrorWithSuggestions(fmt.Sprintf("unknown configuration key: %s", key), nil,
			"List keys and values: memora config view")
	}
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cfg.Map()[key])
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	if err := config.Set(path, key, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
