package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --api-target
// on both "lilly chat" and "lilly login").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagStorageProvider = "storage-provider"
	FlagStorageTarget   = "storage-target"
	FlagModel           = "model"
	FlagAssistantID     = "assistant-id"
	FlagPersonaFile     = "persona-file"
	FlagRevealDelay     = "reveal-delay-ms"
	FlagAPITarget       = "api-target"
	FlagEventStream     = "eventstream-provider"
	FlagOTLPEndpoint    = "otlp-endpoint"
)

// Flags is the registry shared by every lilly command.
var Flags = FlagSet{
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the server to listen on",
	},
	FlagStorageProvider: {
		Name:        "storage-provider",
		ViperKey:    "storage.provider",
		Description: "User directory backend (memory, sqlite, postgres, mongo, bolt)",
	},
	FlagStorageTarget: {
		Name:        "storage-target",
		Shorthand:   "s",
		ViperKey:    "storage.target",
		Description: "Storage path or connection string (default: lilly.db in the config dir)",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "openai.model",
		Description: "Chat completion model",
	},
	FlagAssistantID: {
		Name:        "assistant-id",
		ViperKey:    "openai.assistant_id",
		Description: "Assistant ID for thread based replies (empty uses chat completions only)",
	},
	FlagPersonaFile: {
		Name:        "persona-file",
		ViperKey:    "chat.persona_file",
		Description: "File holding the system prompt, reloaded on change",
	},
	FlagRevealDelay: {
		Name:        "reveal-delay-ms",
		ViperKey:    "chat.reveal_delay_ms",
		Description: "Delay between revealed reply lines, 0 shows replies at once",
	},
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "Lilly server URL",
	},
	FlagEventStream: {
		Name:        "eventstream-provider",
		ViperKey:    "eventstream.provider",
		Description: "Chat event sink (none, kafka)",
	},
	FlagOTLPEndpoint: {
		Name:        "otlp-endpoint",
		ViperKey:    "telemetry.otlp_endpoint",
		Description: "OTLP gRPC endpoint for traces (empty disables tracing)",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
