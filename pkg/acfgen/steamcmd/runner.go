package steamcmd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Invocation is one SteamCMD process run.
type Invocation struct {
	// Name is the executable; Args follow any wrapper arguments.
	Name string
	Args []string
	// Dir is the working directory, the SteamCMD install dir.
	Dir string
}

// Output is what a finished process produced.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner starts a process and waits for it. A non-zero exit is reported in
// Output.ExitCode, not as an error; errors mean the process did not run.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Output, error)
}

// ExecRunner runs invocations with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, inv Invocation) (Output, error) {
	// #nosec G204 -- the command line comes from user configuration.
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	case ctx.Err() != nil:
		return out, ctx.Err()
	default:
		return out, err
	}
}
