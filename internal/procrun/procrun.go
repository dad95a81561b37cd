package procrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// waitDelay bounds how long Wait blocks on output pipes after the child
// exits or is killed.
const waitDelay = 2 * time.Second

// Request describes one child process invocation.
type Request struct {
	Path    string
	Args    []string
	Env     []string
	Dir     string
	Stdin   string
	Timeout time.Duration
}

// Result captures the outcome of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Signal   string
	Duration time.Duration
}

// Run starts req.Path, feeds Stdin, and waits for it to exit. A non-zero exit
// is reported through Result.ExitCode with a nil error. When the timeout or
// ctx expires the whole process group is killed; a timeout returns
// schema.ErrProcessTimeout.
func Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Path) == "" {
		return Result{}, schema.ErrExecutableNotFound
	}
	if req.Timeout <= 0 {
		req.Timeout = schema.DefaultProcessTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	log := pslog.Ctx(ctx)
	cmd := exec.Command(req.Path, req.Args...)
	cmd.Dir = req.Dir
	cmd.Env = req.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	log.Debug("process start", "path", req.Path, "args_len", len(req.Args), "stdin_len", len(req.Stdin), "timeout_ms", req.Timeout.Milliseconds())
	started := time.Now()
	if err := cmd.Start(); err != nil {
		log.Warn("process start failed", "path", req.Path, "err", err)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", schema.ErrExecutableNotFound, req.Path)
		}
		return Result{}, err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		if err := killProcessGroup(cmd); err != nil {
			log.Debug("process group kill failed", "pid", cmd.Process.Pid, "err", err)
		}
		<-done
		res := Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1, Duration: time.Since(started)}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			log.Warn("process timed out", "path", req.Path, "timeout_ms", req.Timeout.Milliseconds())
			return res, fmt.Errorf("%w after %s", schema.ErrProcessTimeout, req.Timeout)
		}
		log.Info("process cancelled", "path", req.Path)
		return res, ctx.Err()
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(started)}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			log.Error("process wait failed", "path", req.Path, "err", waitErr)
			return res, waitErr
		}
		res.ExitCode = exitErr.ExitCode()
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			res.Signal = status.Signal().String()
		}
	}
	fields := []any{
		"path", req.Path,
		"exit_code", res.ExitCode,
		"stdout_len", len(res.Stdout),
		"stderr_len", len(res.Stderr),
		"duration_ms", res.Duration.Milliseconds(),
	}
	if res.Signal != "" {
		fields = append(fields, "signal", res.Signal)
	}
	log.Info("process finished", fields...)
	return res, nil
}

// WithPathPrefix returns env with dir prepended to PATH.
func WithPathPrefix(env []string, dir string) []string {
	if dir == "" {
		return env
	}
	out := make([]string, 0, len(env)+1)
	path := ""
	for _, entry := range env {
		if strings.HasPrefix(entry, "PATH=") {
			path = strings.TrimPrefix(entry, "PATH=")
			continue
		}
		out = append(out, entry)
	}
	if path == "" {
		return append(out, "PATH="+dir)
	}
	return append(out, "PATH="+dir+string(os.PathListSeparator)+path)
}
