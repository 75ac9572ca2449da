package appinfo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

// logger is the package-level logger for record decoding.
var logger = logging.Get("appinfo")

// DefaultBranch is the branch whose build and manifests are used by default.
const DefaultBranch = "public"

var (
	// ErrAppNotFound is returned when the tool output has no entry for an app.
	ErrAppNotFound = errors.New("app not present in tool output")

	// ErrIncompleteApp is returned when an app entry lacks required fields.
	ErrIncompleteApp = errors.New("app entry is incomplete")
)

// DepotRecord is one depot of an app as reported by SteamCMD.
type DepotRecord struct {
	ID   string
	Name string

	// MaxSize is the depot size in bytes, 0 when absent.
	MaxSize uint64

	// Manifest is the manifest id of the selected branch. Empty marks an
	// unused depot.
	Manifest string

	// OSList restricts the depot to the listed platforms. Empty means all.
	OSList []string

	// DLCAppID links the depot to a DLC app.
	DLCAppID string

	// DepotFromApp names the app whose install provides this depot.
	DepotFromApp string

	// SharedInstall mirrors the raw sharedinstall flag.
	SharedInstall bool
}

// Unused reports whether the depot has no manifest for the selected branch.
func (d DepotRecord) Unused() bool {
	return d.Manifest == ""
}

// Shared reports whether the depot is installed from another app.
func (d DepotRecord) Shared() bool {
	return d.DepotFromApp != ""
}

// AllowsOS reports whether the depot applies to platform.
func (d DepotRecord) AllowsOS(platform string) bool {
	if len(d.OSList) == 0 {
		return true
	}
	for _, os := range d.OSList {
		if strings.EqualFold(os, platform) {
			return true
		}
	}
	return false
}

// AppRecord is the subset of app info needed to write a manifest.
type AppRecord struct {
	ID         AppID
	Name       string
	InstallDir string
	BuildID    string

	// Depots are kept in the order the tool printed them.
	Depots []DepotRecord

	BaseLanguages []string
}

// Decode extracts the record for id from the aggregate tool output.
// branch selects the build and depot manifests; empty means DefaultBranch.
func Decode(id AppID, aggregate *vdf.Node, branch string) (*AppRecord, error) {
	if branch == "" {
		branch = DefaultBranch
	}

	data, ok := aggregate.Get(id.String())
	if !ok || !data.IsMap() {
		return nil, fmt.Errorf("%w: %s", ErrAppNotFound, id)
	}

	name, ok := data.LookupString("common", "name")
	if !ok {
		return nil, fmt.Errorf("%w: %s has no common.name", ErrIncompleteApp, id)
	}
	installDir, ok := data.LookupString("config", "installdir")
	if !ok {
		return nil, fmt.Errorf("%w: %s has no config.installdir", ErrIncompleteApp, id)
	}

	buildID, ok := data.LookupString("depots", "branches", branch, "buildid")
	if !ok {
		logger.Warn("no build id for branch", "app", id, "branch", branch)
		buildID = "0"
	}

	app := &AppRecord{
		ID:         id,
		Name:       name,
		InstallDir: installDir,
		BuildID:    buildID,
	}

	if langs, ok := data.LookupString("depots", "baselanguages"); ok {
		app.BaseLanguages = splitList(langs)
	}

	depots, ok := data.Get("depots")
	if !ok {
		return app, nil
	}

	for _, e := range depots.Entries() {
		if !IsNumeric(e.Key) {
			logger.Debug("skipping non-depot key", "app", id, "key", e.Key)
			continue
		}
		if !e.Node.IsMap() {
			logger.Debug("skipping depot without data", "app", id, "depot", e.Key)
			continue
		}
		app.Depots = append(app.Depots, decodeDepot(id, e.Key, e.Node, branch))
	}

	return app, nil
}

func decodeDepot(app AppID, depotID string, data *vdf.Node, branch string) DepotRecord {
	depot := DepotRecord{ID: depotID}
	depot.Name, _ = data.GetString("name")

	if raw, ok := data.GetString("maxsize"); ok && raw != "" {
		size, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			logger.Warn("invalid depot maxsize, using 0", "app", app, "depot", depotID, "maxsize", raw)
		} else {
			depot.MaxSize = size
		}
	}

	// Older output stores the manifest id directly; newer output nests it
	// under a block with gid, size and download.
	if m, ok := data.Lookup("manifests", branch); ok {
		if m.IsMap() {
			depot.Manifest, _ = m.GetString("gid")
		} else {
			depot.Manifest = m.Value()
		}
	}

	if oslist, ok := data.LookupString("config", "oslist"); ok {
		depot.OSList = splitList(oslist)
	}

	depot.DLCAppID, _ = data.GetString("dlcappid")
	depot.DepotFromApp, _ = data.GetString("depotfromapp")
	if _, ok := data.Get("sharedinstall"); ok {
		depot.SharedInstall = true
	}

	return depot
}

// splitList splits a comma separated list and drops empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
