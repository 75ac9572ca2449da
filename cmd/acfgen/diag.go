package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/generator"
)

var diagCmd = &cobra.Command{
	Use:   "diag <appid>",
	Short: "Print the saved steamcmd output for an app",
	Long: `Print the raw SteamCMD output captured for an app by a run with
diagnostics enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiag,
}

func init() {
	rootCmd.AddCommand(diagCmd)
}

func runDiag(cmd *cobra.Command, args []string) error {
	id, err := appinfo.ParseAppID(args[0])
	if err != nil {
		return err
	}

	cfg, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	path, err := findDiagnostic(cfg.Diagnostics.Dir, id)
	if err != nil {
		return err
	}
	printVerbose("reading %s", path)

	raw, err := generator.ReadDiagnostic(path)
	if err != nil {
		return fmt.Errorf("reading diagnostic: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), raw)
	return nil
}

// findDiagnostic returns the newest capture for id in dir.
func findDiagnostic(dir string, id appinfo.AppID) (string, error) {
	var newest string
	var newestMod int64
	for _, name := range []string{id.String() + ".txt", id.String() + ".txt.xz"} {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = path, mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no diagnostic output saved for app %s in %s", id, dir)
	}
	return newest, nil
}
