// Package runerr defines the failure taxonomy of a compile-and-run cycle.
//
// Each type names the phase that failed so the CLI can report it precisely
// and pick an exit status. Hard bundler failures are not represented here:
// they are propagated by identity (see bundler.FatalError).
package runerr

import (
	"errors"
	"fmt"
	"strings"

	"nextrun/internal/diag"
)

// ArgumentError reports a malformed command-line invocation.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// ConfigurationError reports a problem found before compilation starts:
// a missing project directory, an unloadable config file, or an
// entrypoint that cannot be resolved against the project root.
type ConfigurationError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Configf builds a ConfigurationError with a formatted cause.
func Configf(op, path, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// DiagnosticsError reports a compilation that completed with errors.
// The artifact of such a compilation is never loaded.
type DiagnosticsError struct {
	Diagnostics []diag.Diagnostic
}

func (e *DiagnosticsError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return "compilation failed"
	case 1:
		return "compilation failed with 1 error"
	default:
		return fmt.Sprintf("compilation failed with %d errors", len(e.Diagnostics))
	}
}

// RuntimeExecutionError reports that the compiled script failed.
// ExitCode is the script's own exit status, or -1 if it did not exit normally.
type RuntimeExecutionError struct {
	Path     string
	ExitCode int
	Err      error
}

func (e *RuntimeExecutionError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("script %s exited with status %d", e.Path, e.ExitCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("script %s failed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("script %s failed", e.Path)
}

func (e *RuntimeExecutionError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by the pipeline or the CLI to a process
// exit status. A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var rt *RuntimeExecutionError
	if errors.As(err, &rt) && rt.ExitCode > 0 {
		return rt.ExitCode
	}
	return 1
}
