package config

const (
	defaultListen        = ":8080"
	defaultAllowOrigins  = "*"
	defaultAuthRateLimit = 20

	defaultStorageProvider = "sqlite"
	defaultStorageDatabase = "lilly_db"

	defaultOpenAIBaseURL     = "https://api.openai.com/v1"
	defaultOpenAIModel       = "gpt-4.1"
	defaultOpenAITemperature = 0.7
	defaultOpenAIMaxTokens   = 800

	defaultRevealDelayMs = 50

	defaultClientAPITarget = "http://localhost:8080"

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "lilly.chat.events"

	defaultSampleRate = 1.0
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:        defaultListen,
			AllowOrigins:  defaultAllowOrigins,
			AuthRateLimit: defaultAuthRateLimit,
		},
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
			Database: defaultStorageDatabase,
		},
		OpenAI: OpenAIConfig{
			BaseURL:     defaultOpenAIBaseURL,
			Model:       defaultOpenAIModel,
			Temperature: defaultOpenAITemperature,
			MaxTokens:   defaultOpenAIMaxTokens,
		},
		Chat: ChatConfig{
			RevealDelayMs: defaultRevealDelayMs,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Telemetry: TelemetryConfig{
			SampleRate: defaultSampleRate,
		},
	}
}
