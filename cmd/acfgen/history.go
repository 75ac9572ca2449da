package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/history"
	"github.com/jamesainslie/acfgen/pkg/acfgen/manifest"
	"github.com/jamesainslie/acfgen/pkg/acfgen/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View generated manifests",
	Long: `View the manifests written by previous runs.

The history database keeps the latest record per app: the file written,
its digest, build id and size.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <appid>",
	Short: "Show the record for one app",
	Long:  `Show the record for one app and compare it with the manifest on disk.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyForgetCmd = &cobra.Command{
	Use:   "forget <appid...>",
	Short: "Remove the records for apps",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryForget,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all history records",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show (0=all)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyForgetCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory opens the configured history store.
func openHistory(cmd *cobra.Command) (*history.Store, func(), error) {
	cfg, cleanup, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, func() {
		_ = store.Close()
		cleanup()
	}, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, done, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer done()

	records, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	total := len(records)
	if historyLimit > 0 && len(records) > historyLimit {
		records = records[:historyLimit]
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderHistory(records, time.Now()))
	if total > len(records) {
		printInfo("\nShowing %d of %d entries. Use --limit to see more.", len(records), total)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := appinfo.ParseAppID(args[0])
	if err != nil {
		return err
	}

	store, done, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer done()

	rec, err := store.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no manifest recorded for app %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderRecord(rec))
	fmt.Fprintf(cmd.OutOrStdout(), "  On disk:    %s\n", diskState(rec))
	return nil
}

// diskState describes the manifest at rec.Path relative to the record.
func diskState(rec *history.Record) string {
	w, err := manifest.New(filepath.Dir(rec.Path))
	if err != nil {
		return err.Error()
	}
	node, err := w.Read(rec.AppID)
	if errors.Is(err, os.ErrNotExist) {
		return "missing"
	}
	if err != nil {
		return err.Error()
	}
	buildID, _ := node.LookupString("AppState", "buildid")
	if buildID != rec.BuildID {
		return fmt.Sprintf("build %s, recorded %s", buildID, rec.BuildID)
	}
	return "matches build " + buildID
}

func runHistoryForget(cmd *cobra.Command, args []string) error {
	ids, err := appinfo.ParseAppIDs(args)
	if err != nil {
		return err
	}

	store, done, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer done()

	for _, id := range ids {
		if err := store.Delete(id); err != nil {
			return fmt.Errorf("failed to forget app %s: %w", id, err)
		}
	}
	printInfo("Removed %d record(s).", len(ids))
	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	store, done, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer done()

	n, err := store.Clear()
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}
	printInfo("Removed %d record(s).", n)
	return nil
}
