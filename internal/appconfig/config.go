package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/askd/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int                    `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string                 `mapstructure:"state_dir" yaml:"state_dir"`
	Engine        EngineConfig           `mapstructure:"engine" yaml:"engine"`
	Agents        map[string]AgentConfig `mapstructure:"agents" yaml:"agents"`
	Simulator     SimulatorConfig        `mapstructure:"simulator" yaml:"simulator"`
	Safety        SafetyConfig           `mapstructure:"safety" yaml:"safety"`
	Process       ProcessConfig          `mapstructure:"process" yaml:"process"`
	Input         InputConfig            `mapstructure:"input" yaml:"input"`
	Accessor      AccessorConfig         `mapstructure:"accessor" yaml:"accessor"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// EngineConfig controls trigger detection.
type EngineConfig struct {
	BufferMax  int `mapstructure:"buffer_max" yaml:"buffer_max"`
	QueueDepth int `mapstructure:"queue_depth" yaml:"queue_depth"`
}

// AgentConfig configures one trigger word. Built-in words accept path,
// extra_args and disabled; other words define a custom agent with binary and
// args, where "{prompt}" in args is replaced by the prompt.
type AgentConfig struct {
	Name      string   `mapstructure:"name" yaml:"name,omitempty"`
	Binary    string   `mapstructure:"binary" yaml:"binary,omitempty"`
	Args      []string `mapstructure:"args" yaml:"args,omitempty"`
	Stdin     bool     `mapstructure:"stdin" yaml:"stdin,omitempty"`
	Path      string   `mapstructure:"path" yaml:"path,omitempty"`
	ExtraArgs []string `mapstructure:"extra_args" yaml:"extra_args,omitempty"`
	Disabled  bool     `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// SimulatorConfig controls synthetic keystroke pacing.
type SimulatorConfig struct {
	KeyDelayMS     int      `mapstructure:"key_delay_ms" yaml:"key_delay_ms"`
	SettleMS       int      `mapstructure:"settle_ms" yaml:"settle_ms"`
	SubmitDelayMS  int      `mapstructure:"submit_delay_ms" yaml:"submit_delay_ms"`
	AutoSubmitApps []string `mapstructure:"auto_submit_apps" yaml:"auto_submit_apps"`

	// SingleLineCommit means the committing Enter never leaves a newline in
	// the target field, so the simulator erases only the typed command.
	SingleLineCommit bool `mapstructure:"single_line_commit" yaml:"single_line_commit"`
}

// SafetyConfig controls the dangerous-command gate. An empty denylist
// disables the gate.
type SafetyConfig struct {
	Denylist []string `mapstructure:"denylist" yaml:"denylist"`
	Confirm  string   `mapstructure:"confirm" yaml:"confirm"`
}

// ProcessConfig bounds agent processes.
type ProcessConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// InputConfig selects the keystroke source.
type InputConfig struct {
	Source string `mapstructure:"source" yaml:"source"`
	Device string `mapstructure:"device" yaml:"device"`
}

// AccessorConfig toggles the structured focused-text path.
type AccessorConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Input sources.
const (
	InputAuto  = "auto"
	InputEvdev = "evdev"
	InputStdin = "stdin"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".askd", "state"),
		Engine: EngineConfig{
			BufferMax:  schema.DefaultBufferMaxRunes,
			QueueDepth: 8,
		},
		Agents: map[string]AgentConfig{},
		Simulator: SimulatorConfig{
			KeyDelayMS:     int(schema.DefaultKeyDelay / time.Millisecond),
			SettleMS:       int(schema.DefaultSettleDelay / time.Millisecond),
			SubmitDelayMS:  int(schema.DefaultSubmitDelay / time.Millisecond),
			AutoSubmitApps: append([]string(nil), schema.DefaultAutoSubmitApps...),
		},
		Safety: SafetyConfig{
			Denylist: append([]string(nil), schema.DefaultDenylist...),
			Confirm:  "dialog",
		},
		Process: ProcessConfig{
			TimeoutSeconds: int(schema.DefaultProcessTimeout / time.Second),
		},
		Input: InputConfig{
			Source: InputAuto,
		},
		Accessor: AccessorConfig{
			Enabled: true,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".askd", "config.yaml"), nil
}

// HistoryPath returns the history file inside the state directory.
func (c Config) HistoryPath() string {
	return filepath.Join(c.StateDir, "history.json")
}

// ProcessTimeout returns the agent process timeout.
func (c Config) ProcessTimeout() time.Duration {
	return time.Duration(c.Process.TimeoutSeconds) * time.Second
}

// KeyDelay returns the delay between injected keys.
func (s SimulatorConfig) KeyDelay() time.Duration {
	return time.Duration(s.KeyDelayMS) * time.Millisecond
}

// Settle returns the delay after the last injected key.
func (s SimulatorConfig) Settle() time.Duration {
	return time.Duration(s.SettleMS) * time.Millisecond
}

// SubmitDelay returns the pause before an auto-submit Enter.
func (s SimulatorConfig) SubmitDelay() time.Duration {
	return time.Duration(s.SubmitDelayMS) * time.Millisecond
}
