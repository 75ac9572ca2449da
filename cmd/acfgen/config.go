package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/acfgen/pkg/acfgen/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage acfgen configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/acfgen/config.yaml (if set)
  2. ~/.config/acfgen/config.yaml

Environment variables can override config file settings using the ACFGEN_ prefix:
  ACFGEN_STEAMCMD_COMMAND="wine /opt/steamcmd/steamcmd.exe"
  ACFGEN_OUTPUT_STEAMAPPS_DIR=~/Steam/steamapps
  ACFGEN_OUTPUT_PLATFORM=linux`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after file, environment and flags.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in $VISUAL, $EDITOR or vi.

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	writeConfig(cmd.OutOrStdout(), cfg)

	fmt.Fprintln(cmd.OutOrStdout(), "\nEnvironment Overrides:")
	fmt.Fprintln(cmd.OutOrStdout(), "----------------------")
	found := false
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "ACFGEN_") {
			fmt.Fprintln(cmd.OutOrStdout(), kv)
			found = true
		}
	}
	if !found {
		fmt.Fprintln(cmd.OutOrStdout(), "(none)")
	}
	return nil
}

// writeConfig prints the effective settings, one key per line.
func writeConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintf(w, "steamcmd.command:        %s\n", cfg.SteamCMD.Command)
	fmt.Fprintf(w, "steamcmd.install_dir:    %s\n", cfg.SteamCMD.InstallDir)
	fmt.Fprintf(w, "steamcmd.reference_app:  %s\n", cfg.SteamCMD.ReferenceApp)
	fmt.Fprintf(w, "steamcmd.cache_dirs:     %v\n", cfg.SteamCMD.CacheDirs)
	fmt.Fprintf(w, "output.steamapps_dir:    %s\n", cfg.Output.SteamappsDir)
	fmt.Fprintf(w, "output.platform:         %s\n", cfg.Output.Platform)
	fmt.Fprintf(w, "output.branch:           %s\n", cfg.Output.Branch)
	fmt.Fprintf(w, "output.workers:          %d\n", cfg.Output.Workers)
	fmt.Fprintf(w, "diagnostics.enabled:     %t\n", cfg.Diagnostics.Enabled)
	fmt.Fprintf(w, "diagnostics.dir:         %s\n", cfg.Diagnostics.Dir)
	fmt.Fprintf(w, "diagnostics.compress:    %t\n", cfg.Diagnostics.Compress)
	fmt.Fprintf(w, "history.enabled:         %t\n", cfg.History.Enabled)
	fmt.Fprintf(w, "history.path:            %s\n", cfg.History.Path)
	fmt.Fprintf(w, "logging.level:           %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "logging.path:            %s\n", cfg.Logging.Path)
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'acfgen config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	printInfo("Created default config file: %s", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		var err error
		if configPath, err = config.ConfigPath(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
