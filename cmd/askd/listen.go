package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pkt.systems/askd"
	"pkt.systems/askd/core"
	"pkt.systems/askd/internal/appconfig"
	"pkt.systems/askd/internal/platform"
	"pkt.systems/askd/schema"
	"pkt.systems/pslog"
)

func newListenCmd() *cobra.Command {
	var cfgPath string
	var source string
	var device string
	var printEvents bool
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Watch keystrokes and answer trigger commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, path, err := loadConfig(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(source) != "" {
				cfg.Input.Source = source
			}
			if strings.TrimSpace(device) != "" {
				cfg.Input.Device = device
			}

			registry, err := buildRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			opts := platform.Options{
				Source:   cfg.Input.Source,
				Device:   cfg.Input.Device,
				Accessor: cfg.Accessor.Enabled,
			}
			backend, err := platform.New(opts)
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()
			keys, err := platform.NewKeySource(opts)
			if err != nil {
				return err
			}
			if _, ok := keys.(*platform.StdinSource); ok && isatty.IsTerminal(os.Stdin.Fd()) {
				logger.Warn("stdin source is a terminal, injected answers will be read back as typed input")
			}
			confirmer, err := core.NewConfirmer(core.ConfirmMode(cfg.Safety.Confirm), backend.Dialog)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			daemon, err := askd.New(askd.DaemonConfig{
				MaxRunes:   cfg.Engine.BufferMax,
				QueueDepth: cfg.Engine.QueueDepth,
				Simulator:  simulatorConfig(cfg),
				Dispatcher: core.DispatcherConfig{
					Denylist:         denylist(cfg),
					SingleLineCommit: cfg.Simulator.SingleLineCommit,
				},
			}, askd.DaemonDeps{
				Keys:      keys,
				Accessor:  backend.Accessor,
				Injector:  backend.Injector,
				Confirmer: confirmer,
				Agents:    registry,
				Store:     store,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := daemon.Stop(stopCtx); err != nil {
					logger.Warn("daemon stop failed", "err", err)
				}
			}()
			if printEvents {
				events, cancelEvents := daemon.Events().Subscribe()
				defer cancelEvents()
				go printHistoryEvents(ctx, cmd.OutOrStdout(), events)
			}
			if !noWatch {
				go func() {
					err := appconfig.Watch(ctx, path, appconfig.DefaultWatchDebounce, func(next appconfig.Config) {
						agents, err := buildAgents(ctx, next)
						if err != nil {
							logger.Warn("config reload skipped", "err", err)
							return
						}
						if err := daemon.ReloadAgents(agents); err != nil {
							logger.Warn("config reload skipped", "err", err)
						}
					})
					if err != nil {
						logger.Warn("config watch stopped", "config", path, "err", err)
					}
				}()
			}

			logger.Info("listening", "config", path, "source", cfg.Input.Source, "history", store.Path())
			if err := daemon.Start(ctx); err != nil {
				return err
			}
			return daemon.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&source, "source", "", "key source: auto, evdev or stdin (stdin on a terminal reads back injected text, pipe it instead)")
	cmd.Flags().StringVar(&device, "device", "", "evdev keyboard device node")
	cmd.Flags().BoolVar(&printEvents, "print", false, "print history events to stdout")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload agents when the config file changes")
	return cmd
}

func printHistoryEvents(ctx context.Context, out io.Writer, events <-chan schema.HistoryEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_, _ = fmt.Fprintln(out, formatHistoryEvent(ev))
		}
	}
}

func formatHistoryEvent(ev schema.HistoryEvent) string {
	switch ev.Type {
	case schema.HistoryCleared:
		return "history cleared"
	default:
		e := ev.Execution
		return fmt.Sprintf("[%s] %s: %s -> %s", e.Timestamp.Format(time.RFC3339), e.AgentName, oneLine(e.CommandText), oneLine(e.ResultText))
	}
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const limit = 80
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
