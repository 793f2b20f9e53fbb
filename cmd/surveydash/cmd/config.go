package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/surveydash/internal/config"
	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/output"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage surveydash configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/surveydash/config.yaml)
  3. Project config (.surveydash.yaml)
  4. Environment variables (SURVEYDASH_*)`,
		Example: `  # Create a project config with defaults
  surveydash config init

  # Create the user config instead
  surveydash config init --user

  # Show effective configuration
  surveydash config show --json`,
	}

	cmd.AddCommand(newConfigInitCmd(root))
	cmd.AddCommand(newConfigShowCmd(root))
	cmd.AddCommand(newConfigPathCmd(root))

	return cmd
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var (
		force bool
		user  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with defaults",
		Long: `Write a configuration file populated with the default settings.

Without --user the file is .surveydash.yaml in the project directory.
With --force an existing file is backed up, and its settings are kept
while missing keys are filled with defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(root.dir, ".surveydash.yaml")
			if p := config.ProjectConfigPath(root.dir); p != "" {
				path = p
			}
			if user {
				path = config.GetUserConfigPath()
			}
			return runConfigInit(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a backup is kept)")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	_, statErr := os.Stat(path)
	exists := statErr == nil

	if exists && !force {
		out.Warning("Configuration already exists")
		out.Statusf("📁", "Location: %s", path)
		out.Newline()
		out.Status("💡", "Use --force to fill in new defaults (a backup is kept)")
		return nil
	}

	cfg := config.NewConfig()
	var backupPath string
	if exists {
		var err error
		backupPath, err = config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return surveyerrors.ConfigError("existing config is not valid YAML", err).
				WithDetail("path", path).
				WithSuggestion("Fix or remove the file; the backup is at " + backupPath)
		}
	}

	if err := cfg.WriteYAML(path); err != nil {
		return err
	}

	if exists {
		out.Success("Configuration upgraded")
		out.Statusf("📁", "Location: %s", path)
		out.Statusf("💾", "Backup: %s", backupPath)
		return nil
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Point artifacts.themes_path at the pipeline output")
	out.Statusf("", "  2. Export %s to enable chat", cfg.Chat.APIKeyEnv)
	out.Status("", "  3. Run 'surveydash config show' to verify")
	return nil
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the effective configuration after merging all sources.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.dir)
			if err != nil {
				return surveyerrors.ConfigError("failed to load configuration", err)
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		Long:  `Print the user config path and the project config path, if one exists.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "user:    %s\n", config.GetUserConfigPath())
			project := config.ProjectConfigPath(root.dir)
			if project == "" {
				project = "(none)"
			}
			_, _ = fmt.Fprintf(w, "project: %s\n", project)
			return nil
		},
	}
}
