package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/askd/core"
	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

var errAgentFailed = errors.New("agent failed")

func newRunCmd() *cobra.Command {
	var cfgPath string
	var readStdin bool
	var noHistory bool
	cmd := &cobra.Command{
		Use:   "run <trigger> <command...>",
		Short: "Run one agent command and print the result",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, _, err := loadConfig(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			registry, err := buildRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			word := args[0]
			a, ok := registry.Lookup(word)
			if !ok {
				return fmt.Errorf("%w: no agent for %q", schema.ErrAgentNotFound, word)
			}
			command := strings.TrimSpace(strings.Join(args[1:], " "))
			if command == "" {
				return schema.ErrEmptyCommand
			}
			var document string
			if readStdin {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				document = string(data)
			}

			result := a.Execute(cmd.Context(), command, runEnvironment(time.Now()), document)
			if !noHistory {
				store, err := openStore(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				history := core.NewHistory(core.HistoryDeps{Store: store, Logger: logger})
				history.Record(command, result, a.Name(), a.Trigger())
			}
			if strings.HasPrefix(result, schema.ErrorPrefix) {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), result)
				return errAgentFailed
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&readStdin, "stdin", false, "pass standard input to the agent as the existing text")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the command in history")
	return cmd
}

func runEnvironment(now time.Time) string {
	return fmt.Sprintf("Operating system: %s\nFrontmost application: terminal\nLocal time: %s", runtime.GOOS, now.Format(time.RFC1123))
}
