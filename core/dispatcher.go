package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"pkt.systems/askd/internal/logx"
	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

// DispatchState names the phase a command reached.
type DispatchState string

const (
	StateExtracting DispatchState = "extracting"
	StateConfirming DispatchState = "confirming"
	StateExecuting  DispatchState = "executing"
	StateWriting    DispatchState = "writing"
	StateRecorded   DispatchState = "recorded"
	StateCancelled  DispatchState = "cancelled"
	StateFailed     DispatchState = "failed"
)

// ReplacementPath names how text was written back.
type ReplacementPath string

const (
	PathAccessor  ReplacementPath = "accessor"
	PathSimulator ReplacementPath = "simulator"
)

// Outcome summarizes a dispatch.
type Outcome struct {
	State       DispatchState
	Path        ReplacementPath
	CommandText string
	Result      string
	Execution   *schema.CommandExecution
}

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// Denylist is passed to NewSafetyGate.
	Denylist []string
	// SingleLineCommit means the commit key never leaves a newline in the
	// focused field, so the simulator erases only the typed command.
	SingleLineCommit bool
}

// Dispatcher turns a committed trigger snapshot into an agent invocation and
// writes the result back where the trigger was typed.
type Dispatcher struct {
	accessor   TextAccessor
	simulator  KeystrokeSimulator
	agents     AgentResolver
	confirmer  Confirmer
	history    *History
	apps       AppReporter
	gate       SafetyGate
	singleLine bool
	log        pslog.Logger
	now        func() time.Time
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(cfg DispatcherConfig, deps DispatcherDeps) (*Dispatcher, error) {
	if deps.Simulator == nil {
		return nil, errors.New("dispatcher simulator is required")
	}
	if deps.Agents == nil {
		return nil, errors.New("dispatcher agent resolver is required")
	}
	if deps.Confirmer == nil {
		deps.Confirmer = DenyAllConfirmer{}
	}
	if deps.History == nil {
		deps.History = NewHistory(HistoryDeps{Logger: deps.Logger})
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Dispatcher{
		accessor:   deps.Accessor,
		simulator:  deps.Simulator,
		agents:     deps.Agents,
		confirmer:  deps.Confirmer,
		history:    deps.History,
		apps:       deps.Apps,
		gate:       NewSafetyGate(cfg.Denylist),
		singleLine: cfg.SingleLineCommit,
		log:        logger,
		now:        time.Now,
	}, nil
}

// History returns the dispatcher's history.
func (d *Dispatcher) History() *History {
	return d.history
}

// Dispatch runs one command to completion. It blocks for as long as the agent
// runs and must not be called on the key event path.
func (d *Dispatcher) Dispatch(ctx context.Context, fire Fire) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dispatchID := newCommandID()
	log := logx.WithCommandTrigger(pslog.ContextWithLogger(ctx, d.log), dispatchID, fire.Trigger)
	ctx = logx.ContextWithCommandLogger(ctx, log, dispatchID, fire.Trigger)
	started := d.now()

	ext := d.extract(ctx, log, fire)
	out := Outcome{State: StateExtracting, CommandText: ext.command, Path: ext.path()}
	log.Info("dispatch start", "path", out.Path, "command_len", len(ext.command), "document_len", len(ext.document))

	if ext.command == "" {
		d.writeFinal(ctx, log, &ext, "")
		out.State = StateFailed
		out.Path = ext.path()
		log.Info("dispatch skipped", "reason", "empty command")
		return out, schema.ErrEmptyCommand
	}

	if term, dangerous := d.gate.Match(ext.command); dangerous {
		out.State = StateConfirming
		log.Info("dispatch confirm requested", "matched", term)
		ok, err := d.confirmer.Confirm(ctx, ConfirmRequest{CommandText: ext.command, Trigger: fire.Trigger, Matched: term})
		if err != nil {
			log.Warn("dispatch confirm failed", "err", err)
		}
		if err != nil || !ok {
			d.writeFinal(ctx, log, &ext, schema.CancelledNotice)
			out.State = StateCancelled
			out.Path = ext.path()
			out.Result = schema.CancelledNotice
			log.Info("dispatch cancelled", "matched", term)
			return out, schema.ErrCommandCancelled
		}
	}

	agent, ok := d.agents.Get(fire.Trigger)
	if !ok {
		text := agentNotFoundText(fire.Trigger)
		d.writeFinal(ctx, log, &ext, text)
		out.State = StateFailed
		out.Path = ext.path()
		out.Result = text
		log.Warn("dispatch agent missing")
		return out, fmt.Errorf("%w for trigger %q", schema.ErrAgentNotFound, fire.Trigger.Word())
	}
	log = logx.WithAgent(log, agent.Name(), "")

	out.State = StateExecuting
	if ext.accessor {
		if err := d.accessor.WriteFocusedText(ctx, ext.prefix+schema.ExecutingMarker); err != nil {
			log.Info("dispatch marker write failed; using simulator", "err", err)
			ext.accessor = false
		} else {
			ext.erase = 0
		}
	}
	result := agent.Execute(ctx, ext.command, d.environment(ctx), ext.document)

	out.State = StateWriting
	d.writeResult(ctx, log, &ext, result)
	out.Path = ext.path()
	out.Result = result

	exec := d.history.record(dispatchID, ext.command, result, agent.Name(), fire.Trigger)
	out.State = StateRecorded
	out.Execution = &exec
	log.Info("dispatch recorded",
		"path", out.Path,
		"result_len", len(result),
		"error_result", strings.HasPrefix(result, schema.ErrorPrefix),
		"duration_ms", d.now().Sub(started).Milliseconds(),
	)
	return out, nil
}

func (d *Dispatcher) extract(ctx context.Context, log pslog.Logger, fire Fire) extraction {
	if d.accessor != nil {
		text, err := d.accessor.ReadFocusedText(ctx)
		if err == nil {
			if prefix, command, ok := splitFieldText(text, fire); ok {
				return extraction{
					command:  command,
					document: strings.TrimSpace(prefix),
					prefix:   prefix,
					accessor: true,
					erase:    fieldErase(text, prefix),
				}
			}
			log.Debug("dispatch trigger not in focused text; using snapshot")
		} else {
			log.Debug("dispatch accessor read failed; using snapshot", "err", err)
		}
	}
	return extraction{command: splitSnapshot(fire), erase: snapshotErase(fire, d.singleLine)}
}

// writeFinal replaces the trigger and command with text in one step. It is
// used for outcomes that never reach an agent.
func (d *Dispatcher) writeFinal(ctx context.Context, log pslog.Logger, ext *extraction, text string) {
	if ext.accessor {
		err := d.accessor.WriteFocusedText(ctx, ext.prefix+text)
		if err == nil {
			return
		}
		log.Info("dispatch accessor write failed; using simulator", "err", err)
		ext.accessor = false
	}
	if err := d.simulator.Replace(ctx, ext.erase, text); err != nil {
		log.Warn("dispatch simulator write failed", "err", err)
	}
}

// writeResult swaps the executing marker for the result on the accessor
// path, keeping anything the user typed around it. The simulator path erases
// whatever is still on screen and types the result.
func (d *Dispatcher) writeResult(ctx context.Context, log pslog.Logger, ext *extraction, result string) {
	if ext.accessor {
		current, err := d.accessor.ReadFocusedText(ctx)
		if err == nil {
			next := current + result
			if idx := strings.LastIndex(current, schema.ExecutingMarker); idx >= 0 {
				next = current[:idx] + result + current[idx+len(schema.ExecutingMarker):]
			}
			if err = d.accessor.WriteFocusedText(ctx, next); err == nil {
				return
			}
		}
		log.Info("dispatch accessor result write failed; using simulator", "err", err)
		ext.accessor = false
		ext.erase = len([]rune(schema.ExecutingMarker))
	}
	if err := d.simulator.Replace(ctx, ext.erase, result); err != nil {
		log.Warn("dispatch simulator write failed", "err", err)
	}
}

func (d *Dispatcher) environment(ctx context.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Operating system: %s\n", runtime.GOOS)
	if d.apps != nil {
		if app, err := d.apps.FrontmostApp(ctx); err == nil && strings.TrimSpace(app) != "" {
			fmt.Fprintf(&b, "Frontmost application: %s\n", strings.TrimSpace(app))
		}
	}
	fmt.Fprintf(&b, "Local time: %s", d.now().Format(time.RFC1123))
	return b.String()
}

func (e extraction) path() ReplacementPath {
	if e.accessor {
		return PathAccessor
	}
	return PathSimulator
}
