package main

import (
	"context"
	"os"
	"strings"

	"pkt.systems/askd/core"
	"pkt.systems/askd/internal/agent"
	"pkt.systems/askd/internal/appconfig"
	"pkt.systems/askd/internal/persist"
	"pkt.systems/pslog"
)

func resolveConfigPath(cfgPath string) (string, error) {
	if strings.TrimSpace(cfgPath) != "" {
		return cfgPath, nil
	}
	return appconfig.DefaultConfigPath()
}

func loadConfig(ctx context.Context, cfgPath string) (appconfig.Config, string, error) {
	path, err := resolveConfigPath(cfgPath)
	if err != nil {
		return appconfig.Config{}, "", err
	}
	cfg, err := appconfig.Load(path)
	if err != nil {
		return appconfig.Config{}, "", err
	}
	pslog.Ctx(ctx).Debug("config loaded", "config", path, "state_dir", cfg.StateDir)
	return cfg, path, nil
}

func agentSettings(cfg appconfig.Config) map[string]agent.Settings {
	out := make(map[string]agent.Settings, len(cfg.Agents))
	for word, a := range cfg.Agents {
		out[word] = agent.Settings{
			Name:      a.Name,
			Binary:    a.Binary,
			Args:      a.Args,
			Stdin:     a.Stdin,
			Path:      a.Path,
			ExtraArgs: a.ExtraArgs,
			Disabled:  a.Disabled,
		}
	}
	return out
}

func buildAgents(ctx context.Context, cfg appconfig.Config) ([]core.Agent, error) {
	home, _ := os.UserHomeDir()
	return agent.Build(agent.BuildOptions{
		Settings: agentSettings(cfg),
		Timeout:  cfg.ProcessTimeout(),
		Home:     home,
		Shell:    agent.DefaultShell(),
		Logger:   pslog.Ctx(ctx),
	})
}

func buildRegistry(ctx context.Context, cfg appconfig.Config) (*agent.Registry, error) {
	agents, err := buildAgents(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return agent.NewRegistry(agents...)
}

// denylist keeps an explicitly empty list empty so the gate stays off.
func denylist(cfg appconfig.Config) []string {
	if cfg.Safety.Denylist == nil {
		return []string{}
	}
	return cfg.Safety.Denylist
}

func simulatorConfig(cfg appconfig.Config) core.SimulatorConfig {
	return core.SimulatorConfig{
		KeyDelay:       cfg.Simulator.KeyDelay(),
		Settle:         cfg.Simulator.Settle(),
		SubmitDelay:    cfg.Simulator.SubmitDelay(),
		AutoSubmitApps: cfg.Simulator.AutoSubmitApps,
	}
}

func openStore(ctx context.Context, cfg appconfig.Config) (*persist.Store, error) {
	return persist.NewStoreWithLogger(cfg.HistoryPath(), pslog.Ctx(ctx))
}
