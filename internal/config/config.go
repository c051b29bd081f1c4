// Package config provides the configuration schema and loader for the
// Helmholtz relay. Required settings come from environment variables;
// tuning knobs may additionally be supplied through an optional YAML file,
// with environment values taking precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the relay.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration for the relay.
type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Relay     RelayConfig     `yaml:"relay"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
}

// DiscordConfig holds the gateway credentials and the relay's fixed scope.
type DiscordConfig struct {
	// Token is the bot token. Env: DISCORD_TOKEN.
	Token string `yaml:"token"`

	// GuildID is the single guild the relay serves. Env: DISCORD_GUILD_ID.
	GuildID string `yaml:"guild_id"`

	// SourceChannelID is the text channel watched for messages to speak.
	// Env: DISCORD_SOURCE_CHANNEL_ID.
	SourceChannelID string `yaml:"source_channel_id"`
}

// SynthesisConfig holds text-to-speech settings.
type SynthesisConfig struct {
	// APIKey authenticates against the Google Cloud Text-to-Speech API.
	// Env: GOOGLE_TTS_API_KEY.
	APIKey string `yaml:"api_key"`

	// Language is the BCP-47 synthesis language.
	Language string `yaml:"language"`

	// FemaleVoice and MaleVoice are the provider voice names backing the
	// two selectable genders.
	FemaleVoice string `yaml:"female_voice"`
	MaleVoice   string `yaml:"male_voice"`

	// SpeakingRate adjusts speech speed. 1.0 is the provider default.
	SpeakingRate float64 `yaml:"speaking_rate"`
}

// RelayConfig holds message handling knobs.
type RelayConfig struct {
	// MaxMessageLength caps spoken messages, in runes.
	MaxMessageLength int `yaml:"max_message_length"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// PostgresDSN enables durable voice preferences when set.
	// Env: POSTGRES_DSN. Empty means in-memory only.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ServerConfig holds the diagnostics HTTP endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the address for the metrics and health endpoint.
	// Env: LISTEN_ADDR. Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Env: LOG_LEVEL.
	LogLevel LogLevel `yaml:"log_level"`

	// CloudLogging switches log output to JSON with severity fields.
	// Env: ENABLE_CLOUD_LOGGING (any non-empty value except "false").
	CloudLogging bool `yaml:"cloud_logging"`
}

// defaults returns a Config with every tunable at its built-in value.
func defaults() *Config {
	return &Config{
		Synthesis: SynthesisConfig{
			Language:     "ja-JP",
			FemaleVoice:  "ja-JP-Wavenet-A",
			MaleVoice:    "ja-JP-Wavenet-D",
			SpeakingRate: 1.2,
		},
		Relay: RelayConfig{
			MaxMessageLength: 80,
		},
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path (empty path skips the file), and environment variables, in that
// order. The result is validated.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decodeYAML(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyEnv(cfg, os.Getenv)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeYAML merges a YAML document into cfg, rejecting unknown fields.
func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables onto cfg. Split out with an
// injectable getenv for tests.
func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Discord.Token, "DISCORD_TOKEN")
	set(&cfg.Discord.GuildID, "DISCORD_GUILD_ID")
	set(&cfg.Discord.SourceChannelID, "DISCORD_SOURCE_CHANNEL_ID")
	set(&cfg.Synthesis.APIKey, "GOOGLE_TTS_API_KEY")
	set(&cfg.Storage.PostgresDSN, "POSTGRES_DSN")
	set(&cfg.Server.ListenAddr, "LISTEN_ADDR")
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = LogLevel(v)
	}
	if v := getenv("ENABLE_CLOUD_LOGGING"); v != "" && !strings.EqualFold(v, "false") {
		cfg.Server.CloudLogging = true
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all failures found, so a misconfigured deployment
// reports every missing variable at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required (env DISCORD_TOKEN)"))
	}
	if cfg.Discord.GuildID == "" {
		errs = append(errs, errors.New("discord.guild_id is required (env DISCORD_GUILD_ID)"))
	}
	if cfg.Discord.SourceChannelID == "" {
		errs = append(errs, errors.New("discord.source_channel_id is required (env DISCORD_SOURCE_CHANNEL_ID)"))
	}
	if cfg.Synthesis.APIKey == "" {
		errs = append(errs, errors.New("synthesis.api_key is required (env GOOGLE_TTS_API_KEY)"))
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Relay.MaxMessageLength <= 0 {
		errs = append(errs, fmt.Errorf("relay.max_message_length %d must be positive", cfg.Relay.MaxMessageLength))
	}
	if cfg.Synthesis.SpeakingRate < 0.25 || cfg.Synthesis.SpeakingRate > 4.0 {
		errs = append(errs, fmt.Errorf("synthesis.speaking_rate %.2f is out of range [0.25, 4.0]", cfg.Synthesis.SpeakingRate))
	}

	return errors.Join(errs...)
}

// SlogLevel maps the configured level to its slog equivalent.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
