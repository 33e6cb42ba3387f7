package build

import (
	"fmt"
)

// BuildError occurs when go build fails for a target.
type BuildError struct {
	Target   string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build for '%s' failed with exit code %d: %v", e.Target, e.ExitCode, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Hint maps well-known go build exit codes to a likely cause.
func (e *BuildError) Hint() string {
	switch e.ExitCode {
	case 1:
		return "compilation failed due to syntax or configuration issues"
	case 2:
		return "missing dependencies or incorrect environment setup"
	default:
		return ""
	}
}
