// Package config loads and persists the gateway's one YAML config
// file. The running process rewrites exactly one field — the heartbeat
// interval — so a HEARTBEAT_INTERVAL: marker survives restarts.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/omega-agent/omega/pkg/shared/stringutil"
)

// ChannelConfig is the per-channel auth surface the core needs; the
// concrete transport credentials live with the adapters.
type ChannelConfig struct {
	AllowList   []string `yaml:"allow_list"`
	EnforceAuth bool     `yaml:"enforce_auth"`
}

// ProviderConfig selects and parameterizes the language-model backend.
type ProviderConfig struct {
	Kind      string `yaml:"kind"` // "openai" or "anthropic"
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// HeartbeatConfig drives the self-check loop (C7).
type HeartbeatConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes"`
	ActiveStart     string `yaml:"active_start"` // "HH:MM", empty disables the window
	ActiveEnd       string `yaml:"active_end"`
	Channel         string `yaml:"channel"`
	Target          string `yaml:"target"`
}

// SummarizerConfig drives the idle-conversation rollup (C9). The two
// prompts are injected from configuration rather than hard-coded.
type SummarizerConfig struct {
	IdleMinutes   int    `yaml:"idle_minutes"`
	SummaryPrompt string `yaml:"summary_prompt"`
	FactsPrompt   string `yaml:"facts_prompt"`
}

// WebhookConfig drives the HTTP shim (C10). PushURL, when set,
// registers an outbound "webhook" channel that POSTs replies back to
// the caller's system.
type WebhookConfig struct {
	Listen      string `yaml:"listen"`
	BearerToken string `yaml:"bearer_token"`
	PushURL     string `yaml:"push_url"`
}

// SchedulerConfig drives the due-task polling loop (C6).
type SchedulerConfig struct {
	PollInterval string `yaml:"poll_interval"` // duration string, e.g. "30s"
}

// Config is the root of config.yaml.
type Config struct {
	DataDir    string                   `yaml:"data_dir"`
	BasePrompt string                   `yaml:"base_prompt"`
	Channels   map[string]ChannelConfig `yaml:"channels"`
	Provider   ProviderConfig           `yaml:"provider"`
	Scheduler  SchedulerConfig          `yaml:"scheduler"`
	Heartbeat  HeartbeatConfig          `yaml:"heartbeat"`
	Summarizer SummarizerConfig         `yaml:"summarizer"`
	Webhook    WebhookConfig            `yaml:"webhook"`
}

// ApplyDefaults fills every unset field with its documented default.
// Called after load and before first use; defaults live here rather
// than in struct tags so they are greppable in one place.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		home, _ := os.UserHomeDir()
		c.DataDir = filepath.Join(home, ".omega")
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = "openai"
	}
	c.Provider.APIKey = stringutil.EnvOr(c.Provider.APIKey, os.Getenv("OMEGA_API_KEY"))
	if c.Scheduler.PollInterval == "" {
		c.Scheduler.PollInterval = "30s"
	}
	if c.Heartbeat.IntervalMinutes <= 0 {
		c.Heartbeat.IntervalMinutes = 30
	}
	if c.Summarizer.IdleMinutes <= 0 {
		c.Summarizer.IdleMinutes = 30
	}
	if c.Summarizer.SummaryPrompt == "" {
		c.Summarizer.SummaryPrompt = "Summarize this conversation in 1-2 sentences, " +
			"focusing on what the user wanted and what was decided."
	}
	if c.Summarizer.FactsPrompt == "" {
		c.Summarizer.FactsPrompt = "Extract key personal facts about the user from this " +
			"conversation as `key: value` lines (lowercase short keys). " +
			"If there is nothing worth remembering, reply with the single word: none"
	}
	if c.Webhook.Listen == "" {
		c.Webhook.Listen = "127.0.0.1:8300"
	}
}

// Load reads and parses path, applying defaults. A missing file yields
// a default config rather than an error so a first run works with
// nothing but environment variables.
func Load(path string) (*Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.ApplyDefaults()
			return &c, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.ApplyDefaults()
	return &c, nil
}

// Save writes the config back to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PersistHeartbeatInterval re-reads the file at path, updates only the
// heartbeat interval, and writes it back, so concurrent manual edits to
// other fields are not clobbered by a marker-driven update.
func PersistHeartbeatInterval(path string, minutes int) error {
	c, err := Load(path)
	if err != nil {
		return err
	}
	c.Heartbeat.IntervalMinutes = minutes
	return c.Save(path)
}
