package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pkt.systems/askd/core"
	"pkt.systems/askd/internal/logx"
	"pkt.systems/askd/internal/procrun"
	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// Definition describes one external command-line agent.
type Definition struct {
	Name    schema.AgentName
	Trigger schema.Trigger
	Binary  string
	// SearchPaths are checked after the shared install locations.
	SearchPaths []string
	// Args builds the argument list for a prompt; extra holds user-configured
	// arguments.
	Args func(prompt string, extra []string) []string
	// Stdin sends the prompt on standard input instead of argv.
	Stdin       bool
	PostProcess func(stdout string) string
	VersionArgs []string
}

// Options configures a CLIAgent instance.
type Options struct {
	// Path overrides executable discovery when set.
	Path      string
	ExtraArgs []string
	Timeout   time.Duration
	Home      string
	Shell     string
	// Env is the base child environment; nil selects the daemon's own.
	Env    []string
	Logger pslog.Logger
}

// CLIAgent runs a Definition through procrun.
type CLIAgent struct {
	def  Definition
	opts Options
	log  pslog.Logger

	mu     sync.Mutex
	cached string

	shellLookup func(ctx context.Context, shell, binary string) (string, error)
}

var _ core.Agent = (*CLIAgent)(nil)

// New constructs a CLIAgent.
func New(def Definition, opts Options) (*CLIAgent, error) {
	if strings.TrimSpace(string(def.Name)) == "" {
		return nil, errors.New("agent name is required")
	}
	if def.Trigger.Word() == "" {
		return nil, fmt.Errorf("%w: agent %s has no trigger", schema.ErrInvalidTrigger, def.Name)
	}
	if strings.TrimSpace(def.Binary) == "" && strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("agent %s has no binary", def.Name)
	}
	if def.Args == nil {
		def.Args = func(prompt string, extra []string) []string {
			return append(append([]string{}, extra...), prompt)
		}
	}
	if len(def.VersionArgs) == 0 {
		def.VersionArgs = []string{"--version"}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = schema.DefaultProcessTimeout
	}
	if opts.Home == "" {
		opts.Home, _ = os.UserHomeDir()
	}
	if opts.Shell == "" {
		opts.Shell = os.Getenv("SHELL")
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &CLIAgent{
		def:         def,
		opts:        opts,
		log:         logx.WithAgent(logger, def.Name, ""),
		shellLookup: shellLookup,
	}, nil
}

// Name returns the display name.
func (a *CLIAgent) Name() schema.AgentName { return a.def.Name }

// Trigger returns the trigger that routes to this agent.
func (a *CLIAgent) Trigger() schema.Trigger { return a.def.Trigger }

// Definition returns a copy of the agent definition.
func (a *CLIAgent) Definition() Definition { return a.def }

// Execute runs the agent and returns its output. Failures are returned as
// text starting with schema.ErrorPrefix.
func (a *CLIAgent) Execute(ctx context.Context, command, environment, document string) string {
	path, err := a.Locate(ctx)
	if err != nil {
		a.log.Warn("agent executable not found", "binary", a.def.Binary, "err", err)
		return schema.ErrorPrefix + a.binaryName() + " executable not found"
	}
	log := logx.WithAgent(pslog.Ctx(ctx), a.def.Name, path)
	prompt := BuildPrompt(environment, document, command)
	req := procrun.Request{
		Path:    path,
		Args:    a.def.Args(prompt, a.opts.ExtraArgs),
		Env:     procrun.WithPathPrefix(a.baseEnv(), filepath.Dir(path)),
		Timeout: a.opts.Timeout,
	}
	if a.def.Stdin {
		req.Stdin = prompt
	}
	log.Info("agent execute", "prompt_len", len(prompt), "stdin", a.def.Stdin)
	res, err := procrun.Run(pslog.ContextWithLogger(ctx, log), req)
	if err != nil {
		if errors.Is(err, schema.ErrProcessTimeout) {
			return fmt.Sprintf("%s%s timed out after %s", schema.ErrorPrefix, a.def.Name, a.opts.Timeout)
		}
		return schema.ErrorPrefix + err.Error()
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = strings.TrimSpace(res.Stdout)
		}
		if msg == "" {
			msg = fmt.Sprintf("%s exited with status %d", a.binaryName(), res.ExitCode)
		}
		log.Warn("agent failed", "exit_code", res.ExitCode, "stderr_len", len(res.Stderr))
		return schema.ErrorPrefix + msg
	}
	if a.def.PostProcess != nil {
		return a.def.PostProcess(res.Stdout)
	}
	return strings.TrimSpace(res.Stdout)
}

// Diagnose runs discovery afresh and asks the executable for its version.
func (a *CLIAgent) Diagnose(ctx context.Context) schema.DiagnosticResult {
	path, err := a.relocate(ctx)
	if err != nil {
		return schema.DiagnosticResult{Error: err.Error()}
	}
	res, err := procrun.Run(ctx, procrun.Request{
		Path:    path,
		Args:    a.def.VersionArgs,
		Env:     procrun.WithPathPrefix(a.baseEnv(), filepath.Dir(path)),
		Timeout: schema.DefaultDiagnoseTimeout,
	})
	if err != nil {
		return schema.DiagnosticResult{Path: path, Error: err.Error()}
	}
	if res.ExitCode != 0 {
		msg := firstLine(res.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("version probe exited with status %d", res.ExitCode)
		}
		return schema.DiagnosticResult{Path: path, Error: msg}
	}
	version := firstLine(res.Stdout)
	if version == "" {
		version = firstLine(res.Stderr)
	}
	return schema.DiagnosticResult{Available: true, Path: path, Version: version}
}

func (a *CLIAgent) baseEnv() []string {
	if a.opts.Env != nil {
		return append([]string(nil), a.opts.Env...)
	}
	return os.Environ()
}

func (a *CLIAgent) binaryName() string {
	if a.def.Binary != "" {
		return a.def.Binary
	}
	return filepath.Base(a.opts.Path)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
