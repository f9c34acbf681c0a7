// Package config loads and holds the ambient configuration for the
// orchestrator process: provider credentials, poller/executor tunables
// (C5/C6), agent template defaults (C9), notification-fabric tunables
// (C12), and the embedding backend selection for the memory store (C8).
//
// Grounded on the teacher's internal/config.Config shape — a single root
// struct assembled from nested per-concern structs, with secrets kept out
// of the on-disk file and applied from the environment after load. TOML
// (github.com/BurntSushi/toml) stands in for the teacher's JSON5 loader
// here; see DESIGN.md for why.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration for the orchestrator.
type Config struct {
	StateDir string `toml:"state_dir"`
	LogLevel string `toml:"log_level"`

	// OTLPEndpoint is the OTel collector address (host:port) spans are
	// exported to. Empty disables tracing entirely.
	OTLPEndpoint string `toml:"otlp_endpoint"`

	Providers ProvidersConfig `toml:"providers"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Agents    AgentDefaults   `toml:"agents"`
	Channels  ChannelsConfig  `toml:"channels"`
	Memory    MemoryConfig    `toml:"memory"`
	Tailscale TailscaleConfig `toml:"tailscale"`
	Database  DatabaseConfig  `toml:"database"`
}

// DatabaseConfig enables the optional Postgres-backed project store
// (internal/store.PostgresProjectStore) in place of the default
// file-backed one. DSN carries credentials and is env-only.
type DatabaseConfig struct {
	DSN string `toml:"-"`
}

// TailscaleConfig configures the optional tsnet remote-pairing listener.
// Only takes effect when built with `-tags tsnet`; the default build
// carries a no-op stub so the dependency is available without requiring
// every deployment to join a tailnet.
type TailscaleConfig struct {
	Hostname  string `toml:"hostname"`   // tailnet machine name (e.g. "commander-laptop")
	StateDir  string `toml:"state_dir"`  // tsnet persistent state dir (default: under StateDir)
	AuthKey   string `toml:"-"`          // env COMMANDER_TSNET_AUTH_KEY only, never persisted
	Ephemeral bool   `toml:"ephemeral"`  // remove node from the tailnet on exit
	EnableTLS bool   `toml:"enable_tls"` // serve via ListenTLS for auto HTTPS certs
}

// ProvidersConfig maps provider name to its credentials. API keys are
// read from the file for convenience in local dev, but every field can
// also be supplied via environment variables, which take precedence.
type ProvidersConfig struct {
	Anthropic  ProviderConfig `toml:"anthropic"`
	OpenAI     ProviderConfig `toml:"openai"`
	OpenRouter ProviderConfig `toml:"openrouter"`
	Groq       ProviderConfig `toml:"groq"`
	Gemini     ProviderConfig `toml:"gemini"`
	DeepSeek   ProviderConfig `toml:"deepseek"`
	Mistral    ProviderConfig `toml:"mistral"`
	XAI        ProviderConfig `toml:"xai"`
	MiniMax    ProviderConfig `toml:"minimax"`
	Cohere     ProviderConfig `toml:"cohere"`
	Perplexity ProviderConfig `toml:"perplexity"`
}

type ProviderConfig struct {
	APIKey  string `toml:"api_key"`
	APIBase string `toml:"api_base"`
}

// HasAnyProvider reports whether at least one provider has an API key.
func (c *Config) HasAnyProvider() bool {
	p := c.Providers
	return p.Anthropic.APIKey != "" ||
		p.OpenAI.APIKey != "" ||
		p.OpenRouter.APIKey != "" ||
		p.Groq.APIKey != "" ||
		p.Gemini.APIKey != "" ||
		p.DeepSeek.APIKey != "" ||
		p.Mistral.APIKey != "" ||
		p.XAI.APIKey != "" ||
		p.MiniMax.APIKey != "" ||
		p.Cohere.APIKey != "" ||
		p.Perplexity.APIKey != ""
}

// GatewayConfig tunes the poller (C5) and executor (C6). Zero values
// fall back to the spec defaults via the accessor methods below.
type GatewayConfig struct {
	PollBaseMS   int `toml:"poll_base_ms"`  // SmartPoller base interval (default 500)
	PollMaxMS    int `toml:"poll_max_ms"`   // SmartPoller max interval (default 5000)
	CaptureLines int `toml:"capture_lines"` // tmux capture-pane window (default 50)
	MaxInstances int `toml:"max_instances"` // concurrent live instances, 0 = unlimited
}

func (g GatewayConfig) PollBase() time.Duration {
	if g.PollBaseMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(g.PollBaseMS) * time.Millisecond
}

func (g GatewayConfig) PollMax() time.Duration {
	if g.PollMaxMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(g.PollMaxMS) * time.Millisecond
}

func (g GatewayConfig) CaptureWindow() int {
	if g.CaptureLines <= 0 {
		return 50
	}
	return g.CaptureLines
}

// AgentDefaults are the default template settings shared by every
// project's agent, matching the teacher's AgentDefaults shape. Only
// Provider, Model and Workspace are read by the commands; MaxTokens,
// Temperature, MaxToolIterations and ContextWindow are loaded but not
// consumed (the agent loop uses its own MaxToolIterations constant).
type AgentDefaults struct {
	Workspace         string  `toml:"workspace"`
	Provider          string  `toml:"provider"`
	Model             string  `toml:"model"`
	MaxTokens         int     `toml:"max_tokens"`
	Temperature       float64 `toml:"temperature"`
	MaxToolIterations int     `toml:"max_tool_iterations"`
	ContextWindow     int     `toml:"context_window"`
}

// ChannelsConfig tunes the optional notification-fabric transports (C12).
// Bot tokens are never read from the file — env-only, like the teacher
// keeps PostgresDSN/AuthKey as json:"-" fields.
type ChannelsConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
	Discord  DiscordConfig  `toml:"discord"`
}

type TelegramConfig struct {
	Enabled     bool   `toml:"enabled"`
	Token       string `toml:"-"`
	WebhookPort int    `toml:"webhook_port"`
	ChatID      int64  `toml:"chat_id"` // destination for broadcast notifications
}

type DiscordConfig struct {
	Enabled   bool   `toml:"enabled"`
	Token     string `toml:"-"`
	ChannelID string `toml:"channel_id"` // destination for broadcast notifications
}

// MemoryConfig selects the embedding backend for the memory store (C8).
type MemoryConfig struct {
	Backend          string `toml:"backend"`           // "local" (default, hash embedder), "sqlite", "remote"
	EmbeddingDim     int    `toml:"embedding_dim"`     // default 1536
	SQLitePath       string `toml:"sqlite_path"`       // used when Backend == "sqlite"
	OpenAIEmbeddings bool   `toml:"openai_embeddings"` // call the OpenAI embeddings API instead of the hash embedder
	RemoteURL        string `toml:"-"`                 // used when Backend == "remote", env QDRANT_URL
	RemoteAPIKey     string `toml:"-"`                 // env QDRANT_API_KEY
}

func (m MemoryConfig) Dim() int {
	if m.EmbeddingDim <= 0 {
		return 1536
	}
	return m.EmbeddingDim
}

// Default returns a Config with sensible defaults for local use.
func Default() *Config {
	return &Config{
		StateDir: "~/.ai-commander/state",
		LogLevel: "info",
		Gateway: GatewayConfig{
			PollBaseMS:   500,
			PollMaxMS:    5000,
			CaptureLines: 50,
		},
		Agents: AgentDefaults{
			Workspace:         "~/.ai-commander/workspace",
			Provider:          "anthropic",
			Model:             "claude-sonnet-4-5-20250929",
			MaxTokens:         8192,
			Temperature:       0.7,
			MaxToolIterations: 20,
			ContextWindow:     200000,
		},
		Memory: MemoryConfig{
			Backend:      "local",
			EmbeddingDim: 1536,
		},
	}
}

// Load reads config from a TOML file, then overlays environment
// variables. A missing file is not an error — Default() plus env
// overrides is a complete, usable configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays environment variables onto the config.
// Env vars always take precedence over file values, and are the only
// source for secrets that must never round-trip through a config file.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("OPENROUTER_API_KEY", &c.Providers.OpenRouter.APIKey)
	envStr("GROQ_API_KEY", &c.Providers.Groq.APIKey)
	envStr("GEMINI_API_KEY", &c.Providers.Gemini.APIKey)
	envStr("DEEPSEEK_API_KEY", &c.Providers.DeepSeek.APIKey)
	envStr("MISTRAL_API_KEY", &c.Providers.Mistral.APIKey)
	envStr("XAI_API_KEY", &c.Providers.XAI.APIKey)
	envStr("MINIMAX_API_KEY", &c.Providers.MiniMax.APIKey)
	envStr("COHERE_API_KEY", &c.Providers.Cohere.APIKey)
	envStr("PERPLEXITY_API_KEY", &c.Providers.Perplexity.APIKey)

	envStr("QDRANT_URL", &c.Memory.RemoteURL)
	envStr("QDRANT_API_KEY", &c.Memory.RemoteAPIKey)

	envStr("TELEGRAM_BOT_TOKEN", &c.Channels.Telegram.Token)
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_WEBHOOK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Channels.Telegram.WebhookPort = p
		}
	}

	envStr("COMMANDER_STATE_DIR", &c.StateDir)
	envStr("COMMANDER_LOG", &c.LogLevel)

	envStr("COMMANDER_PROVIDER", &c.Agents.Provider)
	envStr("COMMANDER_MODEL", &c.Agents.Model)
	envStr("COMMANDER_WORKSPACE", &c.Agents.Workspace)

	envStr("COMMANDER_TSNET_AUTH_KEY", &c.Tailscale.AuthKey)
	envStr("COMMANDER_TSNET_HOSTNAME", &c.Tailscale.Hostname)

	envStr("COMMANDER_OTLP_ENDPOINT", &c.OTLPEndpoint)
	envStr("COMMANDER_POSTGRES_DSN", &c.Database.DSN)
}

// ApplyEnvOverrides re-applies environment variable overrides onto the
// config. Call this after replacing config fields by hand (e.g. in
// tests) to restore runtime secrets from env vars.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// WorkspacePath returns the expanded default agent workspace path.
func (c *Config) WorkspacePath() string {
	return ExpandHome(c.Agents.Workspace)
}

// StatePath returns the expanded state root directory, the parent of the
// directories C7/C8/C12/C13 each keep their own files under.
func (c *Config) StatePath() string {
	return ExpandHome(c.StateDir)
}

// TsnetStatePath returns where the tsnet listener should persist its
// tailnet node state, defaulting to a subdirectory of the state root.
func (c *Config) TsnetStatePath() string {
	if c.Tailscale.StateDir != "" {
		return ExpandHome(c.Tailscale.StateDir)
	}
	return c.StatePath() + "/tsnet"
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return home
}
