package models

// CLIConfig holds configuration for one subagent CLI.
type CLIConfig struct {
	Path string `yaml:"path"` // empty = probe PATH and well-known directories
}

// HeartbeatConfig enables unattended check-in turns for a lead agent.
type HeartbeatConfig struct {
	Every  string `yaml:"every,omitempty"`  // duration string, e.g. "30m"; "0" disables
	Prompt string `yaml:"prompt,omitempty"` // overrides the default check-in prompt
}

// AgentConfig describes one lead agent known to the gateway.
type AgentConfig struct {
	Channel     string           `yaml:"channel,omitempty"` // delivery channel for alerts
	Heartbeat   *HeartbeatConfig `yaml:"heartbeat,omitempty"`
	IdleMinutes int              `yaml:"idle_minutes,omitempty"` // session idle expiry override
}

// DefaultsConfig holds cross-agent defaults.
type DefaultsConfig struct {
	IdleMinutes   int      `yaml:"idle_minutes"`
	ResetTriggers []string `yaml:"reset_triggers,omitempty"`
	AbortTriggers []string `yaml:"abort_triggers,omitempty"`
	AckMaxChars   int      `yaml:"ack_max_chars"`
}

// Settings represents global application settings.
// This corresponds to ~/.agentfleet/settings.yaml.
type Settings struct {
	Version      int                     `yaml:"version"`
	ProjectsRoot string                  `yaml:"projects_root,omitempty"` // empty = ~/projects
	CLIs         map[CLI]*CLIConfig      `yaml:"clis"`
	Agents       map[string]*AgentConfig `yaml:"agents"`
	Defaults     DefaultsConfig          `yaml:"defaults"`
}

// ApplyDefaults fills in anything a hand-written settings.yaml left
// out, so a partial file behaves like the generated one. Zero and
// negative numeric values count as unset.
func (s *Settings) ApplyDefaults() {
	if s.CLIs == nil {
		s.CLIs = map[CLI]*CLIConfig{}
	}
	if s.Agents == nil {
		s.Agents = map[string]*AgentConfig{}
	}
	if s.Defaults.IdleMinutes <= 0 {
		s.Defaults.IdleMinutes = 360
	}
	if s.Defaults.AckMaxChars <= 0 {
		s.Defaults.AckMaxChars = 300
	}
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		CLIs: map[CLI]*CLIConfig{
			CLIClaude: {Path: ""},
			CLICodex:  {Path: ""},
			CLIDroid:  {Path: ""},
			CLIGemini: {Path: ""},
		},
		Agents: map[string]*AgentConfig{},
		Defaults: DefaultsConfig{
			IdleMinutes: 360,
			AckMaxChars: 300,
		},
	}
}
