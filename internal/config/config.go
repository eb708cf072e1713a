// Package config loads service configuration from defaults, an optional
// YAML file, and environment variables. All external dependencies (ffmpeg,
// whisper server, language model, piper) are configured here at process
// start; nothing is configurable per request.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete service configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Transcoder    TranscoderConfig    `mapstructure:"transcoder"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Synthesis     SynthesisConfig     `mapstructure:"synthesis"`
	Roles         RolesConfig         `mapstructure:"roles"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	BodyLimitMB  int           `mapstructure:"body_limit_mb"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TranscoderConfig configures the ffmpeg subprocess.
type TranscoderConfig struct {
	FFmpegBin string        `mapstructure:"ffmpeg_bin"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// TranscriptionConfig configures the whisper transcription backend.
// Model, device and compute type are fixed at startup, never per request.
type TranscriptionConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	Model       string        `mapstructure:"model"`
	Device      string        `mapstructure:"device"`
	ComputeType string        `mapstructure:"compute_type"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the language model client.
// Provider is "ollama" (default) or "openai".
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Host     string        `mapstructure:"host"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SynthesisConfig configures the piper text-to-speech subprocess.
type SynthesisConfig struct {
	PiperBin   string        `mapstructure:"piper_bin"`
	PiperModel string        `mapstructure:"piper_model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// RolesConfig points at an optional role library file. When empty the
// built-in library is used.
type RolesConfig struct {
	File string `mapstructure:"file"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables use the SOLA_ prefix with underscores, e.g.
// SOLA_LLM_HOST. The legacy un-prefixed variables of the original deployment
// (OLLAMA_HOST, PIPER_BIN, FW_MODEL, ...) are also honored.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SOLA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.body_limit_mb", 25)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)

	v.SetDefault("transcoder.ffmpeg_bin", "ffmpeg")
	v.SetDefault("transcoder.timeout", 30*time.Second)

	v.SetDefault("transcription.endpoint", "http://localhost:9090/transcribe")
	v.SetDefault("transcription.model", "base")
	v.SetDefault("transcription.device", "cpu")
	v.SetDefault("transcription.compute_type", "int8")
	v.SetDefault("transcription.timeout", 2*time.Minute)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.host", "http://localhost:11434")
	v.SetDefault("llm.model", "llama3:8b")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", 10*time.Minute)

	v.SetDefault("synthesis.piper_bin", "piper")
	v.SetDefault("synthesis.piper_model", "./voices/en_US-ryan-high.onnx")
	v.SetDefault("synthesis.timeout", 60*time.Second)

	v.SetDefault("roles.file", "")

	v.SetDefault("logging.level", "info")
}

// bindLegacyEnv maps the environment variables the original deployment used
// onto their config keys so existing setups keep working unchanged.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"llm.host":                   "OLLAMA_HOST",
		"llm.model":                  "OLLAMA_MODEL",
		"llm.api_key":                "OPENAI_API_KEY",
		"synthesis.piper_bin":        "PIPER_BIN",
		"synthesis.piper_model":      "PIPER_MODEL",
		"transcription.model":        "FW_MODEL",
		"transcription.device":       "FW_DEVICE",
		"transcription.compute_type": "FW_COMPUTE",
	}
	for key, env := range legacy {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key, "SOLA_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
}

// Validate checks for configuration values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("config: server.address cannot be empty")
	}
	if c.Transcoder.FFmpegBin == "" {
		return fmt.Errorf("config: transcoder.ffmpeg_bin cannot be empty")
	}
	switch c.LLM.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("config: unknown llm.provider %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		return fmt.Errorf("config: llm.api_key is required for the openai provider")
	}
	if c.Synthesis.PiperBin == "" {
		return fmt.Errorf("config: synthesis.piper_bin cannot be empty")
	}
	return nil
}
