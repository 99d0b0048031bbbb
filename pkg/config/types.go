package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent lilly configuration stored as config.toml
// in the .lilly/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	OpenAI      OpenAIConfig      `toml:"openai"`
	Auth        AuthConfig        `toml:"auth"`
	Chat        ChatConfig        `toml:"chat"`
	Client      ClientConfig      `toml:"client"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen        string `toml:"listen,omitempty"`
	AllowOrigins  string `toml:"allow_origins,omitempty"`
	AuthRateLimit uint   `toml:"auth_rate_limit,omitempty"`
}

// StorageConfig selects the user directory backend.
type StorageConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Database string `toml:"database,omitempty"`
}

// OpenAIConfig holds upstream completion settings.
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key,omitempty"`
	AssistantID string  `toml:"assistant_id,omitempty"`
	BaseURL     string  `toml:"base_url,omitempty"`
	Model       string  `toml:"model,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
	MaxTokens   uint    `toml:"max_tokens,omitempty"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret,omitempty"`
}

// ChatConfig holds persona and reveal settings.
type ChatConfig struct {
	PersonaFile   string `toml:"persona_file,omitempty"`
	RevealDelayMs uint   `toml:"reveal_delay_ms,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// lilly server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EventStreamConfig selects where chat events are published.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `toml:"otlp_endpoint,omitempty"`
	SampleRate   float64 `toml:"sample_rate,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get    func(c *Config) string
	set    func(c *Config, v string) error
	secret bool
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func secretKey(field func(c *Config) *string) configKeyInfo {
	info := stringKey(field)
	info.secret = true
	return info
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'g', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":          stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.allow_origins":   stringKey(func(c *Config) *string { return &c.Server.AllowOrigins }),
	"server.auth_rate_limit": uintKey("server.auth_rate_limit", func(c *Config) *uint { return &c.Server.AuthRateLimit }),

	"storage.provider": stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.target":   secretKey(func(c *Config) *string { return &c.Storage.Target }),
	"storage.database": stringKey(func(c *Config) *string { return &c.Storage.Database }),

	"openai.api_key":      secretKey(func(c *Config) *string { return &c.OpenAI.APIKey }),
	"openai.assistant_id": stringKey(func(c *Config) *string { return &c.OpenAI.AssistantID }),
	"openai.base_url":     stringKey(func(c *Config) *string { return &c.OpenAI.BaseURL }),
	"openai.model":        stringKey(func(c *Config) *string { return &c.OpenAI.Model }),
	"openai.temperature":  floatKey("openai.temperature", func(c *Config) *float64 { return &c.OpenAI.Temperature }),
	"openai.max_tokens":   uintKey("openai.max_tokens", func(c *Config) *uint { return &c.OpenAI.MaxTokens }),

	"auth.jwt_secret": secretKey(func(c *Config) *string { return &c.Auth.JWTSecret }),

	"chat.persona_file":    stringKey(func(c *Config) *string { return &c.Chat.PersonaFile }),
	"chat.reveal_delay_ms": uintKey("chat.reveal_delay_ms", func(c *Config) *uint { return &c.Chat.RevealDelayMs }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"telemetry.otlp_endpoint": stringKey(func(c *Config) *string { return &c.Telemetry.OTLPEndpoint }),
	"telemetry.sample_rate":   floatKey("telemetry.sample_rate", func(c *Config) *float64 { return &c.Telemetry.SampleRate }),
}
