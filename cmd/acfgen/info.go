package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/generator"
	"github.com/jamesainslie/acfgen/pkg/acfgen/output"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

// errNoApps is returned when none of the requested apps were in the output.
var errNoApps = errors.New("no requested app found in steamcmd output")

var infoCmd = &cobra.Command{
	Use:   "info <appid...>",
	Short: "Show the app info SteamCMD reports",
	Long: `Fetch app info for the given app ids and print it without writing any files.

With --preview, print the appmanifest that generate would write instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

var (
	infoFormat  string
	infoPreview bool
)

func init() {
	infoCmd.Flags().StringVarP(&infoFormat, "format", "f", "vdf",
		"output format: "+strings.Join(output.Available(), ", "))
	infoCmd.Flags().BoolVar(&infoPreview, "preview", false, "print the manifest that would be written")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ids, err := appinfo.ParseAppIDs(args)
	if err != nil {
		return err
	}
	formatter, err := output.Get(infoFormat)
	if err != nil {
		return err
	}

	cfg, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	driver, err := newDriver(cfg)
	if err != nil {
		return err
	}
	fetched, err := driver.FetchApps(cmd.Context(), ids)
	if err != nil {
		return err
	}

	opts := generatorOptions(cfg)
	found := 0
	var buf bytes.Buffer
	for _, id := range ids {
		data, ok := fetched.Apps.Get(id.String())
		if !ok {
			printError("app %s: %v", id, appinfo.ErrAppNotFound)
			continue
		}
		found++

		if infoPreview {
			text, err := generator.Preview(id, fetched.Apps, opts)
			if err != nil {
				printError("app %s: %v", id, err)
				continue
			}
			buf.WriteString(text)
			continue
		}

		if err := formatter.Format(&buf, vdf.NewMap().Set(id.String(), data)); err != nil {
			return fmt.Errorf("formatting app %s: %w", id, err)
		}
	}

	if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
		return err
	}
	if found == 0 {
		return errNoApps
	}
	return nil
}
