package steamcmd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProcessFailed is matched by every *ProcessError.
	ErrProcessFailed = errors.New("steamcmd process failed")

	// ErrNoApps is returned when FetchApps is called without identifiers.
	ErrNoApps = errors.New("no app ids given")

	// ErrNoInstallDir is returned when no install dir is configured and none
	// can be derived from the command.
	ErrNoInstallDir = errors.New("steamcmd install dir is unknown")

	// ErrNoCommand is returned when the configured command line is empty.
	ErrNoCommand = errors.New("steamcmd command is empty")
)

// ProcessError reports a SteamCMD invocation that could not start or that
// exited without usable output.
type ProcessError struct {
	// Pass is "prime" or "fetch".
	Pass     string
	Command  []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("steamcmd %s pass (%s)", e.Pass, strings.Join(e.Command, " "))
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	msg += fmt.Sprintf(": exit code %d with no output", e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

// Is reports whether target is ErrProcessFailed.
func (e *ProcessError) Is(target error) bool { return target == ErrProcessFailed }
