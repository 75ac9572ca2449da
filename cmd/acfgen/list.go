package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/acfgen/pkg/acfgen/library"
	"github.com/jamesainslie/acfgen/pkg/acfgen/output"
)

var listCmd = &cobra.Command{
	Use:   "list [steamapps]",
	Short: "List the appmanifest files in a library",
	Long: `Scan a steamapps directory (default: the configured one) for
appmanifest_<id>.acf files and summarize them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	root := cfg.Output.SteamappsDir
	if len(args) > 0 {
		root = args[0]
	}

	entries, err := library.Scan(cmd.Context(), root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	fmt.Fprint(cmd.OutOrStdout(), output.RenderLibrary(entries))
	return nil
}
