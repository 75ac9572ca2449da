// Package generator turns SteamCMD app info into appmanifest files.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/history"
	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
	"github.com/jamesainslie/acfgen/pkg/acfgen/manifest"
	"github.com/jamesainslie/acfgen/pkg/acfgen/steamcmd"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

var logger = logging.Get("generator")

// DefaultWorkers bounds concurrent manifest writes.
const DefaultWorkers = 4

// Fetcher obtains app info for a batch of ids.
type Fetcher interface {
	FetchApps(ctx context.Context, ids []appinfo.AppID) (*steamcmd.FetchResult, error)
}

// Recorder stores history records for written manifests.
type Recorder interface {
	Put(rec *history.Record) error
}

// Options configures a Generator.
type Options struct {
	Platform string
	Branch   string
	Indent   string
	Workers  int

	// DiagnosticsDir receives the raw SteamCMD output per app. Empty disables
	// capture.
	DiagnosticsDir string
	// Compress writes captures as .txt.xz.
	Compress bool

	// History records successful writes when set.
	History Recorder
}

// Result is the outcome for one app.
type Result struct {
	AppID      appinfo.AppID
	Name       string
	BuildID    string
	SizeOnDisk uint64
	Installed  int
	Shared     int
	Path       string
	Digest     string
	Unchanged  bool
	Diagnostic string
	Err        error
}

// Report summarizes one run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []Result
	// Skipped holds output blocks that failed to parse.
	Skipped []error
}

// Succeeded returns the number of apps whose manifest was written.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Err joins the per-app failures, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("app %s: %w", res.AppID, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Generator fetches app info once per run and writes one manifest per app.
type Generator struct {
	fetcher Fetcher
	writer  *manifest.Writer
	opts    Options
}

// New returns a Generator writing through writer.
func New(fetcher Fetcher, writer *manifest.Writer, opts Options) *Generator {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Platform == "" {
		opts.Platform = manifest.DefaultPlatform
	}
	if opts.Branch == "" {
		opts.Branch = appinfo.DefaultBranch
	}
	return &Generator{fetcher: fetcher, writer: writer, opts: opts}
}

// Run validates raw, fetches the app info in one SteamCMD session and writes
// the manifests in parallel.
//
// Invalid ids, process failures and unusable output abort the run. Failures
// for a single app land in its Result and do not affect the others.
func (g *Generator) Run(ctx context.Context, raw []string) (*Report, error) {
	ids, err := appinfo.ParseAppIDs(raw)
	if err != nil {
		return nil, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, steamcmd.ErrNoApps
	}

	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	log := logger.With("run", report.RunID)
	log.Info("starting run", "apps", len(ids), "platform", g.opts.Platform, "branch", g.opts.Branch)

	if err := g.writer.EnsureDir(); err != nil {
		return nil, fmt.Errorf("creating steamapps directory: %w", err)
	}

	fetched, err := g.fetcher.FetchApps(ctx, ids)
	if err != nil {
		return nil, err
	}
	report.Skipped = fetched.Skipped

	report.Results = make([]Result, len(ids))
	var group errgroup.Group
	group.SetLimit(g.opts.Workers)
	for i, id := range ids {
		group.Go(func() error {
			report.Results[i] = g.generate(report.RunID, id, fetched)
			return nil
		})
	}
	_ = group.Wait()

	report.Finished = time.Now()
	for _, res := range report.Results {
		if res.Err != nil {
			log.Error("manifest not written", "app", res.AppID, "error", res.Err)
			continue
		}
		log.Info("manifest written", "app", res.AppID, "path", res.Path, "unchanged", res.Unchanged)
	}
	log.Info("run finished", "written", report.Succeeded(), "failed", len(ids)-report.Succeeded(),
		"duration", report.Finished.Sub(report.Started))

	return report, nil
}

func (g *Generator) generate(runID string, id appinfo.AppID, fetched *steamcmd.FetchResult) Result {
	res := Result{AppID: id}

	if g.opts.DiagnosticsDir != "" {
		path, err := writeDiagnostic(g.opts.DiagnosticsDir, id, fetched.Raw, g.opts.Compress)
		if err != nil {
			logger.Warn("failed to save diagnostic output", "app", id, "error", err)
		} else {
			res.Diagnostic = path
		}
	}

	app, err := appinfo.Decode(id, fetched.Apps, g.opts.Branch)
	if err != nil {
		res.Err = err
		return res
	}

	rec := manifest.Build(app, manifest.Options{Platform: g.opts.Platform})
	res.Name = rec.Name
	res.BuildID = rec.BuildID
	res.SizeOnDisk = rec.SizeOnDisk
	res.Installed = len(rec.Installed)
	res.Shared = len(rec.Shared)

	written, err := g.writer.Write(id, rec.Text(manifest.Options{Indent: g.opts.Indent}))
	if err != nil {
		res.Err = err
		return res
	}
	res.Path = written.Path
	res.Digest = written.Digest
	res.Unchanged = written.Unchanged

	if g.opts.History != nil {
		err := g.opts.History.Put(&history.Record{
			AppID:       id,
			RunID:       runID,
			Path:        written.Path,
			Digest:      written.Digest,
			BuildID:     rec.BuildID,
			SizeOnDisk:  rec.SizeOnDisk,
			Installed:   res.Installed,
			Shared:      res.Shared,
			GeneratedAt: time.Now().UTC(),
		})
		if err != nil {
			logger.Warn("failed to record history", "app", id, "error", err)
		}
	}

	return res
}

// Preview decodes and renders the manifest for id without writing it.
func Preview(id appinfo.AppID, apps *vdf.Node, opts Options) (string, error) {
	app, err := appinfo.Decode(id, apps, opts.Branch)
	if err != nil {
		return "", err
	}
	return manifest.Render(app, manifest.Options{Platform: opts.Platform, Indent: opts.Indent}), nil
}

func dedupe(ids []appinfo.AppID) []appinfo.AppID {
	seen := make(map[appinfo.AppID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
