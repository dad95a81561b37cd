package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/askd/internal/procrun"
	"pkt.systems/askd/schema"
)

const shellLookupTimeout = 5 * time.Second

// installDirs are the shared install locations, in search order. A leading
// "~" is the user's home directory.
var installDirs = []string{
	"~/.local/bin",
	"~/.claude/local",
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/usr/bin",
	"~/.npm-global/bin",
	"~/.bun/bin",
}

// Locate returns the absolute path of the agent's executable. The search
// order is the configured override, the shared install locations, the
// definition's own search paths, and finally the user's login shell. A
// successful result is cached until the file disappears.
func (a *CLIAgent) Locate(ctx context.Context) (string, error) {
	a.mu.Lock()
	cached := a.cached
	a.mu.Unlock()
	if cached != "" && isExecutable(cached) {
		return cached, nil
	}

	return a.relocate(ctx)
}

// relocate runs discovery without consulting the cache and stores the result.
func (a *CLIAgent) relocate(ctx context.Context) (string, error) {
	path, err := a.locate(ctx)
	a.mu.Lock()
	a.cached = path
	a.mu.Unlock()
	if err != nil {
		return "", err
	}
	return path, nil
}

func (a *CLIAgent) locate(ctx context.Context) (string, error) {
	if override := strings.TrimSpace(a.opts.Path); override != "" {
		path := expandHome(override, a.opts.Home)
		if isExecutable(path) {
			return path, nil
		}
		a.log.Warn("agent path override is not executable", "path", path)
		if a.def.Binary == "" {
			return "", fmt.Errorf("%w: %s", schema.ErrExecutableNotFound, path)
		}
	}
	for _, dir := range a.searchDirs() {
		candidate := filepath.Join(dir, a.def.Binary)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	if a.opts.Shell != "" && a.shellLookup != nil {
		path, err := a.shellLookup(ctx, a.opts.Shell, a.def.Binary)
		if err == nil && isExecutable(path) {
			return path, nil
		}
		if err != nil {
			a.log.Debug("agent shell lookup failed", "shell", a.opts.Shell, "err", err)
		}
	}
	return "", fmt.Errorf("%w: %s", schema.ErrExecutableNotFound, a.def.Binary)
}

func (a *CLIAgent) searchDirs() []string {
	dirs := make([]string, 0, len(installDirs)+len(a.def.SearchPaths))
	for _, dir := range append(append([]string{}, installDirs...), a.def.SearchPaths...) {
		dir = expandHome(dir, a.opts.Home)
		if dir == "" || strings.HasPrefix(dir, "~") {
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

// shellLookup asks the login shell where binary lives, picking up PATH
// entries added by shell profiles.
func shellLookup(ctx context.Context, shell, binary string) (string, error) {
	res, err := procrun.Run(ctx, procrun.Request{
		Path:    shell,
		Args:    []string{"-lc", "command -v " + shellQuote(binary)},
		Timeout: shellLookupTimeout,
	})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%w: %s", schema.ErrExecutableNotFound, binary)
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if filepath.IsAbs(line) {
			return line, nil
		}
	}
	return "", fmt.Errorf("%w: %s", schema.ErrExecutableNotFound, binary)
}

func expandHome(path, home string) string {
	path = os.ExpandEnv(path)
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

func isExecutable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
