// Package library scans a Steam library for app manifests.
package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
	"github.com/jamesainslie/acfgen/pkg/acfgen/manifest"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

var logger = logging.Get("library")

// contentDirs hold game files, never manifests.
var contentDirs = map[string]bool{
	"common":      true,
	"downloading": true,
	"shadercache": true,
	"temp":        true,
	"workshop":    true,
	"compatdata":  true,
}

// Entry is one manifest found in the library.
type Entry struct {
	AppID      appinfo.AppID
	Name       string
	InstallDir string
	BuildID    string
	SizeOnDisk uint64
	Path       string
	// Err is set when the file could not be read or parsed.
	Err error
}

// Scan walks root and returns every appmanifest_<id>.acf below it, sorted by
// app id. Unreadable manifests are returned with Err set.
func Scan(ctx context.Context, root string) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scanning library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanning library: %s is not a directory", root)
	}

	var (
		mu      sync.Mutex
		entries []Entry
	)

	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if path != root && contentDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}

		id, ok := manifest.ParseFileName(d.Name())
		if !ok {
			return nil
		}

		entry := readEntry(id, path)
		mu.Lock()
		entries = append(entries, entry)
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, walkErr
		}
		return nil, fmt.Errorf("scanning library: %w", walkErr)
	}

	sortEntries(entries)
	return entries, nil
}

func readEntry(id appinfo.AppID, path string) Entry {
	entry := Entry{AppID: id, Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		entry.Err = err
		return entry
	}
	root, err := vdf.Parse(string(data))
	if err != nil {
		entry.Err = err
		return entry
	}
	state, ok := root.Get("AppState")
	if !ok || !state.IsMap() {
		entry.Err = errors.New("no AppState block")
		return entry
	}

	entry.Name, _ = state.GetString("name")
	entry.InstallDir, _ = state.GetString("installdir")
	entry.BuildID, _ = state.GetString("buildid")
	if raw, ok := state.GetString("SizeOnDisk"); ok {
		if size, err := strconv.ParseUint(raw, 10, 64); err == nil {
			entry.SizeOnDisk = size
		}
	}
	if appid, ok := state.GetString("appid"); ok && appid != id.String() {
		logger.Warn("manifest appid does not match file name", "path", path, "appid", appid)
	}
	return entry
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].AppID.String(), entries[j].AppID.String()
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		if a != b {
			return a < b
		}
		return entries[i].Path < entries[j].Path
	})
}
