package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/askd/internal/agent"
	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	args := applyArgv0Alias(os.Args)
	root := newRootCmd()
	root.SetArgs(args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errAgentFailed) {
			pslog.Ctx(ctx).With("err", err).Error("askd command failed")
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "askd",
		Short:         "Answer typed agent commands in place",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newListenCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// argv0Alias maps a symlinked binary name (askclaude, askcopilot, askcodex)
// to its trigger word so it behaves like `askd run <word>`.
func argv0Alias(base string) string {
	switch base {
	case agent.ClaudeWord, agent.CopilotWord, agent.CodexWord:
		return base
	default:
		return ""
	}
}

func applyArgv0Alias(args []string) []string {
	if len(args) == 0 {
		return args
	}
	alias := argv0Alias(filepath.Base(args[0]))
	if alias == "" {
		return args
	}
	out := make([]string, 0, len(args)+2)
	out = append(out, args[0], "run", alias)
	out = append(out, args[1:]...)
	return out
}
