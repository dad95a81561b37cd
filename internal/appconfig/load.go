package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("engine.buffer_max", cfg.Engine.BufferMax)
	v.SetDefault("engine.queue_depth", cfg.Engine.QueueDepth)
	v.SetDefault("agents", cfg.Agents)
	v.SetDefault("simulator.key_delay_ms", cfg.Simulator.KeyDelayMS)
	v.SetDefault("simulator.settle_ms", cfg.Simulator.SettleMS)
	v.SetDefault("simulator.submit_delay_ms", cfg.Simulator.SubmitDelayMS)
	v.SetDefault("simulator.auto_submit_apps", cfg.Simulator.AutoSubmitApps)
	v.SetDefault("simulator.single_line_commit", cfg.Simulator.SingleLineCommit)
	v.SetDefault("safety.denylist", cfg.Safety.Denylist)
	v.SetDefault("safety.confirm", cfg.Safety.Confirm)
	v.SetDefault("process.timeout_seconds", cfg.Process.TimeoutSeconds)
	v.SetDefault("input.source", cfg.Input.Source)
	v.SetDefault("input.device", cfg.Input.Device)
	v.SetDefault("accessor.enabled", cfg.Accessor.Enabled)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
		if v.IsSet("engine.triggers") {
			return Config{}, fmt.Errorf("engine.triggers is not supported; triggers come from the agents section")
		}
	}

	cfg = Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Agents == nil {
		cfg.Agents = map[string]AgentConfig{}
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// isNotFound reports whether err means the config file is absent. An
// explicit config file path surfaces the os error rather than
// viper.ConfigFileNotFoundError.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.StateDir) == "" {
		return fmt.Errorf("state_dir is required")
	}
	if cfg.Engine.BufferMax < 64 {
		return fmt.Errorf("engine.buffer_max must be at least 64, got %d", cfg.Engine.BufferMax)
	}
	if cfg.Engine.QueueDepth < 1 {
		return fmt.Errorf("engine.queue_depth must be positive, got %d", cfg.Engine.QueueDepth)
	}
	if cfg.Process.TimeoutSeconds < 1 {
		return fmt.Errorf("process.timeout_seconds must be positive, got %d", cfg.Process.TimeoutSeconds)
	}
	if cfg.Simulator.KeyDelayMS < 0 || cfg.Simulator.SettleMS < 0 || cfg.Simulator.SubmitDelayMS < 0 {
		return fmt.Errorf("simulator delays must not be negative")
	}
	switch cfg.Safety.Confirm {
	case "dialog", "allow", "deny":
	default:
		return fmt.Errorf("unsupported safety.confirm %q", cfg.Safety.Confirm)
	}
	switch cfg.Input.Source {
	case InputAuto, InputEvdev, InputStdin:
	default:
		return fmt.Errorf("unsupported input.source %q", cfg.Input.Source)
	}
	for word, agent := range cfg.Agents {
		if strings.TrimSpace(word) == "" || strings.ContainsAny(word, " \t") {
			return fmt.Errorf("agents: invalid trigger word %q", word)
		}
		if len(agent.Args) > 0 && agent.Binary == "" && agent.Path == "" {
			return fmt.Errorf("agents.%s: args require binary or path", word)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Input.Device = expandEnv(cfg.Input.Device)
	for word, agent := range cfg.Agents {
		agent.Path = expandEnv(agent.Path)
		agent.Binary = expandEnv(agent.Binary)
		cfg.Agents[word] = agent
	}
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
