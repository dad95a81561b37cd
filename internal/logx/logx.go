package logx

import (
	"context"

	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	commandKey contextKey = iota
	triggerKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithCommand annotates the logger with the command id if present.
func WithCommand(ctx context.Context, id schema.CommandID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != "" {
		if current, ok := ctx.Value(commandKey).(schema.CommandID); ok && current == id {
			return log
		}
		log = log.With("command", id)
	}
	return log
}

// WithCommandTrigger annotates the logger with command and trigger identifiers.
func WithCommandTrigger(ctx context.Context, id schema.CommandID, trigger schema.Trigger) pslog.Logger {
	log := WithCommand(ctx, id)
	if word := trigger.Word(); word != "" {
		if current, ok := ctx.Value(triggerKey).(schema.Trigger); ok && current == trigger {
			return log
		}
		log = log.With("trigger", word)
	}
	return log
}

// WithAgent annotates the logger with agent metadata when available.
func WithAgent(log pslog.Logger, name schema.AgentName, path string) pslog.Logger {
	if name != "" {
		log = log.With("agent", name)
	}
	if path != "" {
		log = log.With("agent_path", path)
	}
	return log
}

// ContextWithCommand stores the command marker on the context for log de-duplication.
func ContextWithCommand(ctx context.Context, id schema.CommandID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, commandKey, id)
}

// ContextWithTrigger stores the trigger marker on the context for log de-duplication.
func ContextWithTrigger(ctx context.Context, trigger schema.Trigger) context.Context {
	if ctx == nil || trigger == "" {
		return ctx
	}
	return context.WithValue(ctx, triggerKey, trigger)
}

// ContextWithCommandLogger attaches the logger and command/trigger markers to the context.
func ContextWithCommandLogger(ctx context.Context, log pslog.Logger, id schema.CommandID, trigger schema.Trigger) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTrigger(ContextWithCommand(ctx, id), trigger)
}

// CopyContextFields copies command/trigger markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if id, ok := src.Value(commandKey).(schema.CommandID); ok && id != "" {
		dst = ContextWithCommand(dst, id)
	}
	if trigger, ok := src.Value(triggerKey).(schema.Trigger); ok && trigger != "" {
		dst = ContextWithTrigger(dst, trigger)
	}
	return dst
}
