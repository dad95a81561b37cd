package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"pkt.systems/askd/core"
	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

const diagnoseConcurrency = 4

// Diagnosis pairs an agent with its probe result.
type Diagnosis struct {
	Name    schema.AgentName
	Trigger schema.Trigger
	Result  schema.DiagnosticResult
}

// Registry maps triggers to agents. It is safe for concurrent use and can be
// swapped wholesale when configuration changes.
type Registry struct {
	mu     sync.RWMutex
	agents []core.Agent
	byWord map[string]core.Agent
}

var _ core.AgentResolver = (*Registry)(nil)

// NewRegistry constructs a registry from agents in evaluation order.
func NewRegistry(agents ...core.Agent) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(agents); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace swaps the registered agents. Duplicate trigger words are rejected
// and the previous agents stay in place.
func (r *Registry) Replace(agents []core.Agent) error {
	byWord := make(map[string]core.Agent, len(agents))
	ordered := make([]core.Agent, 0, len(agents))
	for _, a := range agents {
		if a == nil {
			continue
		}
		word := schema.NormalizeTriggerWord(a.Trigger().Word())
		if word == "" {
			return fmt.Errorf("%w: agent %s has no trigger", schema.ErrInvalidTrigger, a.Name())
		}
		if _, exists := byWord[word]; exists {
			return fmt.Errorf("%w: duplicate trigger %q", schema.ErrInvalidTrigger, word)
		}
		byWord[word] = a
		ordered = append(ordered, a)
	}
	r.mu.Lock()
	r.agents = ordered
	r.byWord = byWord
	r.mu.Unlock()
	return nil
}

// Get returns the agent for a delimiter-terminated trigger.
func (r *Registry) Get(trigger schema.Trigger) (core.Agent, bool) {
	return r.Lookup(trigger.Word())
}

// Lookup returns the agent for a bare trigger word.
func (r *Registry) Lookup(word string) (core.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byWord[schema.NormalizeTriggerWord(word)]
	return a, ok
}

// Agents returns the registered agents in evaluation order.
func (r *Registry) Agents() []core.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]core.Agent(nil), r.agents...)
}

// Triggers returns the registered triggers in evaluation order.
func (r *Registry) Triggers() []schema.Trigger {
	agents := r.Agents()
	out := make([]schema.Trigger, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.Trigger())
	}
	return out
}

// DiagnoseAll probes every agent concurrently. Results keep registry order.
func (r *Registry) DiagnoseAll(ctx context.Context) []Diagnosis {
	agents := r.Agents()
	out := make([]Diagnosis, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(diagnoseConcurrency)
	for i, a := range agents {
		g.Go(func() error {
			out[i] = Diagnosis{Name: a.Name(), Trigger: a.Trigger(), Result: a.Diagnose(gctx)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Settings is the user configuration for one trigger word.
type Settings struct {
	// Name and Binary define a custom agent when the word is not built in.
	Name      string
	Binary    string
	Args      []string
	Stdin     bool
	Path      string
	ExtraArgs []string
	Disabled  bool
}

// BuildOptions configures Build.
type BuildOptions struct {
	Settings map[string]Settings
	Timeout  time.Duration
	Home     string
	Shell    string
	Logger   pslog.Logger
}

// PromptPlaceholder is replaced by the prompt in custom agent arguments.
const PromptPlaceholder = "{prompt}"

// Build creates the configured agents: the builtins first, then custom agents
// sorted by trigger word. Disabled agents are skipped.
func Build(opts BuildOptions) ([]core.Agent, error) {
	defs := Builtins()
	builtin := make(map[string]bool, len(defs))
	for _, def := range defs {
		builtin[def.Trigger.Word()] = true
	}
	for _, word := range sortedKeys(opts.Settings) {
		key := schema.NormalizeTriggerWord(word)
		if builtin[key] {
			continue
		}
		def, err := customDefinition(key, opts.Settings[word])
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	agents := make([]core.Agent, 0, len(defs))
	for _, def := range defs {
		settings := lookupSettings(opts.Settings, def.Trigger.Word())
		if settings.Disabled {
			continue
		}
		a, err := New(def, Options{
			Path:      settings.Path,
			ExtraArgs: settings.ExtraArgs,
			Timeout:   opts.Timeout,
			Home:      opts.Home,
			Shell:     opts.Shell,
			Logger:    opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

func customDefinition(word string, s Settings) (Definition, error) {
	if strings.TrimSpace(s.Binary) == "" && strings.TrimSpace(s.Path) == "" {
		return Definition{}, fmt.Errorf("agent %q: binary or path is required", word)
	}
	if strings.ContainsAny(word, " \t") {
		return Definition{}, fmt.Errorf("%w: %q", schema.ErrInvalidTrigger, word)
	}
	name := strings.TrimSpace(s.Name)
	if name == "" {
		name = word
	}
	template := append([]string(nil), s.Args...)
	stdin := s.Stdin
	return Definition{
		Name:    schema.AgentName(name),
		Trigger: schema.Trigger(word + " "),
		Binary:  strings.TrimSpace(s.Binary),
		Stdin:   stdin,
		Args: func(prompt string, extra []string) []string {
			args := make([]string, 0, len(template)+len(extra)+1)
			used := false
			for _, arg := range template {
				if strings.Contains(arg, PromptPlaceholder) {
					used = true
					arg = strings.ReplaceAll(arg, PromptPlaceholder, prompt)
				}
				args = append(args, arg)
			}
			args = append(args, extra...)
			if !used && !stdin {
				args = append(args, prompt)
			}
			return args
		},
	}, nil
}

func lookupSettings(settings map[string]Settings, word string) Settings {
	for key, s := range settings {
		if schema.NormalizeTriggerWord(key) == word {
			return s
		}
	}
	return Settings{}
}

func sortedKeys(m map[string]Settings) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultShell returns the login shell used for executable discovery.
func DefaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/sh"
}
