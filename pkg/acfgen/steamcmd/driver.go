// Package steamcmd drives an anonymous SteamCMD session to fetch app info.
package steamcmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/shlex"

	"github.com/jamesainslie/acfgen/pkg/acfgen/appinfo"
	"github.com/jamesainslie/acfgen/pkg/acfgen/extract"
	"github.com/jamesainslie/acfgen/pkg/acfgen/logging"
	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

var logger = logging.Get("steamcmd")

// DefaultReferenceApp is updated by the priming pass. App 4 is always
// available to anonymous sessions.
const DefaultReferenceApp = "4"

// DefaultCacheDirs are cleared from the install dir before each session.
var DefaultCacheDirs = []string{"appcache"}

// Config locates the SteamCMD installation.
type Config struct {
	// Command is the executable followed by wrapper arguments.
	Command []string
	// InstallDir is the working directory of every invocation. Empty means
	// the directory holding the executable, which requires Command to be the
	// executable itself rather than a wrapper.
	InstallDir string
	// ReferenceApp is updated by the priming pass.
	ReferenceApp string
	// CacheDirs are removed relative to InstallDir before a session.
	CacheDirs []string
}

// ParseCommand splits a configured command line with shell quoting rules.
func ParseCommand(line string) ([]string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parsing steamcmd command %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil, ErrNoCommand
	}
	return args, nil
}

// FetchResult holds the app info recovered from one session.
type FetchResult struct {
	// Apps maps each app id to its app_info_print block.
	Apps *vdf.Node
	// Raw is the stdout of the authoritative pass.
	Raw string
	// Skipped lists blocks that failed to parse.
	Skipped []error
}

// Driver runs the two-pass app info protocol. Sessions on one Driver are
// serialized because SteamCMD keeps its cache per install dir.
type Driver struct {
	cfg    Config
	runner Runner
	mu     sync.Mutex
}

// NewDriver validates cfg and returns a Driver. A nil runner uses ExecRunner.
func NewDriver(cfg Config, runner Runner) (*Driver, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, ErrNoCommand
	}
	if cfg.ReferenceApp == "" {
		cfg.ReferenceApp = DefaultReferenceApp
	}
	if !appinfo.IsNumeric(cfg.ReferenceApp) {
		return nil, fmt.Errorf("reference app: %w: %q", appinfo.ErrInvalidAppID, cfg.ReferenceApp)
	}
	if cfg.CacheDirs == nil {
		cfg.CacheDirs = DefaultCacheDirs
	}
	if cfg.InstallDir == "" {
		dir, err := locateInstallDir(cfg.Command)
		if err != nil {
			return nil, err
		}
		logger.Debug("using steamcmd executable directory", "install_dir", dir)
		cfg.InstallDir = dir
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Driver{cfg: cfg, runner: runner}, nil
}

// FetchApps returns the app info SteamCMD reports for ids.
//
// Every id is validated before anything runs. The install cache is cleared,
// then a priming pass prints the apps while updating the reference app so
// the session lives long enough to cache the requested info. Its output is
// discarded. A second pass refreshes and prints the now cached info, and
// the structured blocks of its stdout are returned.
//
// No timeout is applied. A hung SteamCMD blocks until ctx is cancelled.
func (d *Driver) FetchApps(ctx context.Context, ids []appinfo.AppID) (*FetchResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoApps
	}
	printCmds := make([]string, 0, 2*len(ids))
	for _, id := range ids {
		if !appinfo.IsNumeric(id.String()) {
			return nil, fmt.Errorf("%w: %q", appinfo.ErrInvalidAppID, id.String())
		}
		printCmds = append(printCmds, "+app_info_print", id.String())
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.clearCache()

	ref := d.cfg.ReferenceApp
	prime := append(append([]string{}, printCmds...), "+force_install_dir", "./"+ref, "+app_update", ref)
	logger.Info("priming app info cache", "apps", len(ids), "reference_app", ref)
	out, err := d.run(ctx, prime)
	if err != nil {
		return nil, &ProcessError{Pass: "prime", Command: d.cfg.Command, Err: err}
	}
	if out.ExitCode != 0 {
		logger.Warn("priming pass exited non-zero", "exit_code", out.ExitCode)
	}

	fetch := append([]string{"+app_info_update", "1"}, printCmds...)
	logger.Info("fetching app info", "apps", joinIDs(ids))
	out, err = d.run(ctx, fetch)
	if err != nil {
		return nil, &ProcessError{Pass: "fetch", Command: d.cfg.Command, Err: err}
	}
	if out.ExitCode != 0 {
		if strings.TrimSpace(out.Stdout) == "" {
			return nil, &ProcessError{Pass: "fetch", Command: d.cfg.Command, ExitCode: out.ExitCode, Stderr: out.Stderr}
		}
		logger.Warn("fetch pass exited non-zero, parsing output anyway", "exit_code", out.ExitCode)
	}

	apps, skipped, err := extract.Extract(out.Stdout)
	for _, err := range skipped {
		logger.Warn("skipping unparseable block", "error", err)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("parsed app info", "apps", apps.Keys())
	return &FetchResult{Apps: apps, Raw: out.Stdout, Skipped: skipped}, nil
}

// Args returns the full argument list for commands, without the executable.
func (d *Driver) Args(commands []string) []string {
	args := append([]string{}, d.cfg.Command[1:]...)
	args = append(args, "@ShutdownOnFailedCommand", "1", "@NoPromptForPassword", "1", "+login", "anonymous")
	args = append(args, commands...)
	return append(args, "+quit")
}

func (d *Driver) run(ctx context.Context, commands []string) (Output, error) {
	inv := Invocation{Name: d.cfg.Command[0], Args: d.Args(commands), Dir: d.cfg.InstallDir}
	logger.Debug("running steamcmd", "name", inv.Name, "args", inv.Args, "dir", inv.Dir)
	return d.runner.Run(ctx, inv)
}

// locateInstallDir returns the directory of the executable named by command.
func locateInstallDir(command []string) (string, error) {
	if len(command) > 1 {
		return "", fmt.Errorf("%w: %q runs steamcmd through a wrapper", ErrNoInstallDir, command[0])
	}
	path, err := exec.LookPath(command[0])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoInstallDir, err)
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoInstallDir, err)
	}
	return filepath.Dir(path), nil
}

// clearCache removes the cache dirs. Failures are logged and ignored.
func (d *Driver) clearCache() {
	for _, dir := range d.cfg.CacheDirs {
		path := filepath.Join(d.cfg.InstallDir, dir)
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to clear steamcmd cache", "path", path, "error", err)
			continue
		}
		logger.Debug("cleared steamcmd cache", "path", path)
	}
}

func joinIDs(ids []appinfo.AppID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ",")
}
