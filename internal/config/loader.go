package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path, overlays it onto
// Defaults(), applies environment secrets, and validates the result. It is
// a convenience wrapper around LoadFromReader.
func Load(path, envFile string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			slog.Warn("config: could not load env file", "path", envFile, "err", err)
		}
	}
	applyEnvSecrets(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of Defaults(). It does
// NOT apply environment secrets or validate — callers that need the full
// pipeline should use Load; this exists so tests can exercise parsing with
// config string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// applyEnvSecrets overlays API keys that must never live in the YAML
// document itself.
func applyEnvSecrets(cfg *Config) {
	if v := os.Getenv("UMEBOT_STT_API_KEY"); v != "" {
		cfg.Recognition.STTAPIKey = v
	}
	if v := os.Getenv("UMEBOT_CLOUD_LM_API_KEY"); v != "" {
		cfg.Conversation.CloudAPIKey = v
	}
}

// Validate checks that cfg contains a coherent set of values, returning a
// joined error listing every failure found. Soft issues (a configured
// feature missing a dependency it would benefit from) are logged via slog
// rather than rejected, matching the glyphoxa loader's split between hard
// and soft validation.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	switch cfg.Audio.InitialSource {
	case "local", "robot", "none", "":
	default:
		errs = append(errs, fmt.Errorf("audio.initial_source %q is invalid; valid values: local, robot, none", cfg.Audio.InitialSource))
	}
	if cfg.Audio.InitialSource == "robot" && cfg.Audio.RobotListenAddr == "" {
		errs = append(errs, errors.New("audio.robot_listen_addr is required when audio.initial_source is \"robot\""))
	}
	if cfg.Audio.TargetSampleRate <= 0 {
		errs = append(errs, errors.New("audio.target_sample_rate must be positive"))
	}

	if cfg.Recognition.FrameMillis <= 0 {
		errs = append(errs, errors.New("recognition.frame_millis must be positive"))
	}
	switch cfg.Recognition.STTProvider {
	case "groq", "deepgram", "":
	default:
		slog.Warn("recognition.stt_provider is not one of the known providers; may be a typo", "provider", cfg.Recognition.STTProvider)
	}
	if cfg.Recognition.STTProvider != "" && cfg.Recognition.STTAPIKey == "" {
		slog.Warn("recognition.stt_provider is configured but no UMEBOT_STT_API_KEY was found in the environment")
	}

	switch cfg.Conversation.InitialBackend {
	case "cloud", "local", "none", "":
	default:
		errs = append(errs, fmt.Errorf("conversation.initial_backend %q is invalid; valid values: cloud, local, none", cfg.Conversation.InitialBackend))
	}
	if cfg.Conversation.InitialBackend == "cloud" && cfg.Conversation.CloudAPIKey == "" {
		errs = append(errs, errors.New("conversation.initial_backend is \"cloud\" but UMEBOT_CLOUD_LM_API_KEY is not set"))
	}
	if cfg.Conversation.InitialBackend == "local" && cfg.Conversation.LocalModelPath == "" {
		errs = append(errs, errors.New("conversation.initial_backend is \"local\" but conversation.local_model_path is empty"))
	}

	if cfg.Motion.DeadZone < 0 || cfg.Motion.DeadZone >= 1 {
		errs = append(errs, fmt.Errorf("motion.dead_zone %.3f is out of range [0, 1)", cfg.Motion.DeadZone))
	}
	if cfg.Motion.DeadManTimeout <= 0 {
		errs = append(errs, errors.New("motion.dead_man_timeout must be positive"))
	}
	if cfg.Motion.LayerCount <= 0 {
		errs = append(errs, errors.New("motion.layer_count must be at least 1"))
	}

	if cfg.Tablet.ListenAddr == "" {
		errs = append(errs, errors.New("tablet.listen_addr is required"))
	}

	return errors.Join(errs...)
}
