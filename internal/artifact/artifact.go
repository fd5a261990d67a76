// Package artifact locates a compiled entrypoint and executes it.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"nextrun/internal/compiler"
	"nextrun/internal/ctxlog"
	"nextrun/internal/entrypoint"
	"nextrun/internal/runerr"
)

// Resolve returns the path of the compiled output for entry. The path is
// taken from the assets the compiler reported, never guessed.
func Resolve(res *compiler.Result, entry entrypoint.Spec) (string, error) {
	if res == nil {
		return "", errors.New("artifact: no compilation result")
	}
	want := filepath.Join(res.OutputDir, filepath.FromSlash(entry.Name))

	var matches []string
	for path := range res.Assets {
		if strings.HasSuffix(path, ".map") {
			continue
		}
		if strings.TrimSuffix(path, filepath.Ext(path)) == want {
			matches = append(matches, path)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("artifact: no output for entrypoint %q under %s", entry.Name, res.OutputDir)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("artifact: entrypoint %q produced several outputs: %s", entry.Name, strings.Join(matches, ", "))
	}
}

// Loader executes a compiled artifact.
type Loader interface {
	Load(ctx context.Context, path string, args []string) error
}

// ProcessLoader runs the artifact in a child process:
// Runtime RuntimeArgs... path args...
type ProcessLoader struct {
	Runtime     string
	RuntimeArgs []string
	Dir         string
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	// Env is appended to the current environment.
	Env []string
}

// Load runs the artifact to completion. A non-zero exit is a
// *runerr.RuntimeExecutionError carrying the script's status.
func (l *ProcessLoader) Load(ctx context.Context, path string, args []string) error {
	runtime := l.Runtime
	if runtime == "" {
		runtime = "node"
	}
	bin, err := exec.LookPath(runtime)
	if err != nil {
		return &runerr.ConfigurationError{Op: "find runtime", Path: runtime, Err: err}
	}

	argv := make([]string, 0, len(l.RuntimeArgs)+1+len(args))
	argv = append(argv, l.RuntimeArgs...)
	argv = append(argv, path)
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, bin, argv...)
	cmd.Dir = l.Dir
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if l.Stdin != nil {
		cmd.Stdin = l.Stdin
	}
	if l.Stdout != nil {
		cmd.Stdout = l.Stdout
	}
	if l.Stderr != nil {
		cmd.Stderr = l.Stderr
	}
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}

	ctxlog.FromContext(ctx).Debug("executing artifact", "runtime", bin, "path", path, "args", len(args))

	err = cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &runerr.RuntimeExecutionError{Path: path, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &runerr.RuntimeExecutionError{Path: path, ExitCode: -1, Err: err}
}
