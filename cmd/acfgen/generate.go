package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/acfgen/pkg/acfgen/config"
	"github.com/jamesainslie/acfgen/pkg/acfgen/generator"
	"github.com/jamesainslie/acfgen/pkg/acfgen/history"
	"github.com/jamesainslie/acfgen/pkg/acfgen/manifest"
	"github.com/jamesainslie/acfgen/pkg/acfgen/output"
	"github.com/jamesainslie/acfgen/pkg/acfgen/steamcmd"
)

var generateCmd = &cobra.Command{
	Use:   "generate [appid...]",
	Short: "Write appmanifest files for app ids",
	Long: `Fetch the app info of every app id in one SteamCMD session and write an
appmanifest_<id>.acf file for each into the steamapps directory.

With --refresh every manifest already in the steamapps directory is
regenerated too.

A failure for one app does not stop the others. The command exits non-zero
when any manifest could not be written.`,
	RunE: runGenerate,
}

func init() {
	addGenerateFlags(generateCmd)
	rootCmd.AddCommand(generateCmd)
}

// addGenerateFlags registers the flags shared by the root and generate commands.
func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("appids", nil, "app ids to generate, comma separated")
	cmd.Flags().Bool("diagnostics", false, "save raw steamcmd output per app")
	cmd.Flags().Bool("no-history", false, "do not record generated manifests")
	cmd.Flags().Bool("refresh", false, "regenerate the manifests already in the steamapps directory")
}

// runRoot behaves like generate, or shows help when no app ids are given.
func runRoot(cmd *cobra.Command, args []string) error {
	ids, err := collectIDs(cmd, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 && !refreshing(cmd) {
		return cmd.Help()
	}
	return generate(cmd, ids)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ids, err := collectIDs(cmd, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 && !refreshing(cmd) {
		return steamcmd.ErrNoApps
	}
	return generate(cmd, ids)
}

// collectIDs merges positional app ids with --appids.
func collectIDs(cmd *cobra.Command, args []string) ([]string, error) {
	extra, err := cmd.Flags().GetStringSlice("appids")
	if err != nil {
		return nil, err
	}
	return append(append([]string{}, args...), extra...), nil
}

func refreshing(cmd *cobra.Command) bool {
	enabled, _ := cmd.Flags().GetBool("refresh")
	return enabled
}

// refreshIDs appends the ids of the manifests present in w to ids.
func refreshIDs(w *manifest.Writer, ids []string) ([]string, error) {
	existing, err := w.List()
	if err != nil {
		return nil, err
	}
	for _, id := range existing {
		ids = append(ids, id.String())
	}
	return ids, nil
}

func generate(cmd *cobra.Command, ids []string) error {
	cfg, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	driver, err := newDriver(cfg)
	if err != nil {
		return err
	}
	writer, err := manifest.New(cfg.Output.SteamappsDir)
	if err != nil {
		return err
	}
	if refreshing(cmd) {
		if ids, err = refreshIDs(writer, ids); err != nil {
			return err
		}
		printVerbose("refreshing %d app(s)", len(ids))
	}

	opts := generatorOptions(cfg)
	if enabled, _ := cmd.Flags().GetBool("diagnostics"); enabled || cfg.Diagnostics.Enabled {
		opts.DiagnosticsDir = cfg.Diagnostics.Dir
		opts.Compress = cfg.Diagnostics.Compress
	}

	skipHistory, _ := cmd.Flags().GetBool("no-history")
	if cfg.History.Enabled && !skipHistory {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			printError("history disabled: %v", err)
		} else {
			defer store.Close()
			opts.History = store
		}
	}

	printVerbose("writing %d manifest(s) to %s", len(ids), writer.Dir())
	report, err := generator.New(driver, writer, opts).Run(cmd.Context(), ids)
	if err != nil {
		return err
	}

	if !getQuiet() {
		fmt.Fprint(cmd.OutOrStdout(), output.RenderReport(report))
	}
	if err := report.Err(); err != nil {
		return fmt.Errorf("%d of %d manifest(s) failed: %w", len(report.Results)-report.Succeeded(), len(report.Results), err)
	}
	return nil
}

// newDriver builds the SteamCMD driver described by cfg.
func newDriver(cfg *config.Config) (*steamcmd.Driver, error) {
	command, err := steamcmd.ParseCommand(cfg.SteamCMD.Command)
	if err != nil {
		return nil, err
	}
	driver, err := steamcmd.NewDriver(steamcmd.Config{
		Command:      command,
		InstallDir:   cfg.SteamCMD.InstallDir,
		ReferenceApp: cfg.SteamCMD.ReferenceApp,
		CacheDirs:    cfg.SteamCMD.CacheDirs,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("configuring steamcmd: %w", err)
	}
	return driver, nil
}

func generatorOptions(cfg *config.Config) generator.Options {
	return generator.Options{
		Platform: cfg.Output.Platform,
		Branch:   cfg.Output.Branch,
		Workers:  cfg.Output.Workers,
	}
}
