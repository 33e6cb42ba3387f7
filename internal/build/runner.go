package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Command is a process invocation.
type Command struct {
	// Name is the program to run.
	Name string

	// Args contains command arguments.
	Args []string

	// Dir is the working directory.
	Dir string

	// Env contains environment overrides (KEY=VALUE) on top of the
	// current environment.
	Env []string
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner runs commands. Builder depends on it so tests can stand in
// for the Go toolchain.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes cmd and waits for it. A non-zero exit is returned as an
// *exec.ExitError together with the captured output.
func (ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()

	res := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		res.ExitCode = -1
	}

	return res, err
}
