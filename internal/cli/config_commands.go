// Package cli provides configuration management commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chatdesk/chatdesk/internal/constants"
	"github.com/chatdesk/chatdesk/internal/credentials"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage chatdesk configuration",
		Long: `Configuration management commands for chatdesk.

Commands:
  show  - Display current configuration
  set   - Merge a JSON document into the configuration
  reset - Restore the default configuration
  path  - Show file locations`,
	}

	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigResetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Print the user config as JSON. API keys and secrets are masked
unless --show-secrets is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.close()

			cfg := env.config.Get()
			if !showSecrets {
				cfg = cfg.Redacted()
			}
			data, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, string(data))
			fmt.Fprintln(out)

			configured := credentials.Pair{
				AccessKey: cfg.AWS.Credentials.AccessKeyID,
				SecretKey: cfg.AWS.Credentials.SecretAccessKey,
			}
			fmt.Fprintf(out, "AWS credentials from: %s\n", credentials.Describe(configured, nil))
			fmt.Fprintf(out, "Proxy mode:           %s\n", env.settings.Proxy.Mode)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print API keys and secrets unmasked")
	return cmd
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <json>",
		Short: "Merge a JSON document into the configuration",
		Long: `Merge a partial JSON document into the user config and save it.
Objects merge key by key; arrays and values replace.

Examples:
  chatdesk config set '{"llm":{"provider":"azure"}}'
  chatdesk config set '{"chat":{"maxHistoryLength":20}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.close()

			cfg, err := env.config.Patch([]byte(args[0]))
			if err != nil {
				return fmt.Errorf("failed to update config: %w", err)
			}
			GetLogger().Info().Str("provider", cfg.LLM.Provider).Msg("Configuration updated")
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", env.config.Path())
			return nil
		},
	}
}

// newConfigResetCmd creates the 'config reset' command.
func newConfigResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.close()

			if err := env.config.Reset(); err != nil {
				return fmt.Errorf("failed to reset config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration reset to defaults: %s\n", env.config.Path())
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		Long:  `Display the paths of the user config, app settings, conversations and logs.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := resolveDataDir()
			configPath := resolveConfigPath()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Data directory: %s\n", dir)
			fmt.Fprintf(out, "User config:    %s%s\n", configPath, fileStatus(configPath))
			settingsPath := filepath.Join(dir, constants.AppSettingsFile)
			fmt.Fprintf(out, "App settings:   %s%s\n", settingsPath, fileStatus(settingsPath))
			fmt.Fprintf(out, "Conversations:  %s\n", filepath.Join(dir, constants.ConversationsDir))
			fmt.Fprintf(out, "Logs:           %s\n", filepath.Join(dir, "logs"))
			return nil
		},
	}
}

func fileStatus(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (not created yet)"
	}
	return ""
}
