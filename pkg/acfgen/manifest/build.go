package manifest

import (
	"strconv"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

var logger = logging.Get("manifest")

// Build classifies the depots of app and returns its manifest record.
//
// Depots are visited in their original order. Depots without a manifest for
// the branch and depots whose OS list excludes the platform are skipped.
// Depots provided by another app go to Shared; all others go to Installed,
// and the first of those sets SizeOnDisk.
func Build(app *appinfo.AppRecord, opts Options) *Record {
	platform := opts.Platform
	if platform == "" {
		platform = DefaultPlatform
	}

	rec := &Record{
		AppID:      app.ID,
		Name:       app.Name,
		InstallDir: app.InstallDir,
		BuildID:    app.BuildID,
	}
	if len(app.BaseLanguages) > 0 {
		rec.Language = app.BaseLanguages[0]
	}

	sized := false
	for _, d := range app.Depots {
		switch {
		case d.Unused():
			logger.Debug("skipping unused depot", "app", app.ID, "depot", d.ID)
		case !d.AllowsOS(platform):
			logger.Debug("skipping depot for other platform", "app", app.ID, "depot", d.ID, "oslist", d.OSList, "platform", platform)
		case d.Shared():
			rec.Shared = append(rec.Shared, SharedDepot{ID: d.ID, FromApp: d.DepotFromApp})
		default:
			if !sized {
				rec.SizeOnDisk = d.MaxSize
				sized = true
			}
			rec.Installed = append(rec.Installed, InstalledDepot{
				ID:       d.ID,
				Manifest: d.Manifest,
				Size:     d.MaxSize,
				DLCAppID: d.DLCAppID,
			})
		}
	}

	return rec
}

// Node returns the record as an AppState document in the order the Steam
// client writes it.
func (r *Record) Node() *vdf.Node {
	const zero = "0"

	state := vdf.NewMap().
		SetString("appid", r.AppID.String()).
		SetString("Universe", strconv.Itoa(Universe)).
		SetString("LauncherPath", "").
		SetString("name", r.Name).
		SetString("StateFlags", strconv.Itoa(StateFlags)).
		SetString("installdir", r.InstallDir).
		SetString("LastUpdated", zero).
		SetString("SizeOnDisk", strconv.FormatUint(r.SizeOnDisk, 10)).
		SetString("StagingSize", zero).
		SetString("buildid", r.BuildID).
		SetString("LastOwner", strconv.Itoa(LastOwner))

	for _, key := range []string{
		"UpdateResult",
		"BytesToDownload",
		"BytesDownloaded",
		"BytesToStage",
		"BytesStaged",
		"TargetBuildID",
		"AutoUpdateBehavior",
		"AllowOtherDownloadsWhileRunning",
		"ScheduledAutoUpdate",
	} {
		state.SetString(key, zero)
	}

	if len(r.Installed) > 0 {
		installed := vdf.NewMap()
		for _, d := range r.Installed {
			entry := vdf.NewMap().
				SetString("manifest", d.Manifest).
				SetString("size", strconv.FormatUint(d.Size, 10))
			if d.DLCAppID != "" {
				entry.SetString("dlcappid", d.DLCAppID)
			}
			installed.Set(d.ID, entry)
		}
		state.Set("InstalledDepots", installed)
	}

	if len(r.Shared) > 0 {
		shared := vdf.NewMap()
		for _, d := range r.Shared {
			shared.SetString(d.ID, d.FromApp)
		}
		state.Set("SharedDepots", shared)
	}

	if r.Language != "" {
		state.Set("UserConfig", vdf.NewMap().SetString("language", r.Language))
	}

	return vdf.NewMap().Set("AppState", state)
}

// Render builds the manifest for app and serializes it.
func Render(app *appinfo.AppRecord, opts Options) string {
	return Build(app, opts).Text(opts)
}

// Text serializes the record with the Steam client layout.
func (r *Record) Text(opts Options) string {
	layout := vdf.DefaultOptions()
	if opts.Indent != "" {
		layout.Indent = opts.Indent
	}
	return vdf.Stringify(r.Node(), layout)
}
