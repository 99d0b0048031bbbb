package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lillylive/lilly/pkg/dotdir"
)

// legacyEnv lists the unprefixed environment variable names honoured as
// fallbacks after the LILLY_ form.
var legacyEnv = map[string]string{
	"openai.api_key":      "OPENAI_API_KEY",
	"openai.assistant_id": "OPENAI_ASSISTANT_ID",
	"auth.jwt_secret":     "JWT_SECRET",
}

// mongoURIKey carries MONGODB_URI, used as storage.target only when the
// mongo provider is selected and no target is set.
const mongoURIKey = "legacy.mongodb_uri"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the LILLY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (LILLY_SERVER_LISTEN, OPENAI_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: LILLY_SERVER_LISTEN, LILLY_STORAGE_PROVIDER, etc.
	v.SetEnvPrefix("LILLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := "LILLY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}
	if err := v.BindEnv(mongoURIKey, "MONGODB_URI"); err != nil {
		return nil, fmt.Errorf("binding env for %s: %w", mongoURIKey, err)
	}

	return v, nil
}

// FromViper materializes the resolved settings into a Config.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen:        v.GetString("server.listen"),
			AllowOrigins:  v.GetString("server.allow_origins"),
			AuthRateLimit: v.GetUint("server.auth_rate_limit"),
		},
		Storage: StorageConfig{
			Provider: v.GetString("storage.provider"),
			Target:   v.GetString("storage.target"),
			Database: v.GetString("storage.database"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      v.GetString("openai.api_key"),
			AssistantID: v.GetString("openai.assistant_id"),
			BaseURL:     v.GetString("openai.base_url"),
			Model:       v.GetString("openai.model"),
			Temperature: v.GetFloat64("openai.temperature"),
			MaxTokens:   v.GetUint("openai.max_tokens"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
		},
		Chat: ChatConfig{
			PersonaFile:   v.GetString("chat.persona_file"),
			RevealDelayMs: v.GetUint("chat.reveal_delay_ms"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  v.GetString("eventstream.brokers"),
			Topic:    v.GetString("eventstream.topic"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
			SampleRate:   v.GetFloat64("telemetry.sample_rate"),
		},
	}

	if cfg.Storage.Provider == "mongo" && cfg.Storage.Target == "" {
		cfg.Storage.Target = v.GetString(mongoURIKey)
	}
	return cfg
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for key, info := range configKeys {
		v.SetDefault(key, info.get(d))
	}
}
