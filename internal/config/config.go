// Package config loads and validates the orchestration fabric's YAML
// configuration document, grounded on the glyphoxa example's loader/
// validator shape (strict YAML decoding, joined validation errors,
// slog warnings for soft issues) and generalized to this module's
// component set.
package config

import "time"

// Config is the root configuration document for cmd/umebot.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Audio        AudioConfig        `yaml:"audio"`
	Recognition  RecognitionConfig  `yaml:"recognition"`
	Conversation ConversationConfig `yaml:"conversation"`
	Motion       MotionConfig       `yaml:"motion"`
	Expression   ExpressionConfig   `yaml:"expression"`
	Tablet       TabletConfig       `yaml:"tablet"`
	Discovery    DiscoveryConfig    `yaml:"discovery"`
}

// LogLevel is a validated server log level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is one of the known log levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return true
	default:
		return false
	}
}

// ServerConfig covers process-wide ambient concerns.
type ServerConfig struct {
	LogLevel   LogLevel `yaml:"log_level"`
	LogFile    string   `yaml:"log_file"`
	DataDir    string   `yaml:"data_dir"`
	PersistDSN string   `yaml:"persist_dsn"`
}

// AudioConfig configures C1, the Audio Source Multiplexer.
type AudioConfig struct {
	TargetSampleRate int    `yaml:"target_sample_rate"`
	InitialSource    string `yaml:"initial_source"` // "local" | "robot" | "none"

	LocalDeviceNameContains string `yaml:"local_device_name_contains"`
	LocalPreferredRate      int    `yaml:"local_preferred_rate"`
	LocalIntakeQueueSize    int    `yaml:"local_intake_queue_size"`
	LocalOpenRetryAttempts  int    `yaml:"local_open_retry_attempts"`
	LocalOpenRetryInterval  time.Duration `yaml:"local_open_retry_interval"`

	RobotListenAddr     string `yaml:"robot_listen_addr"`
	RobotSampleRate     int    `yaml:"robot_sample_rate"`
	RobotChannels       int    `yaml:"robot_channels"`
	RobotBytesPerSample int    `yaml:"robot_bytes_per_sample"`
	RobotIntakeQueueSize int   `yaml:"robot_intake_queue_size"`
}

// RecognitionConfig configures C2, the Recognition Pipeline.
type RecognitionConfig struct {
	FrameMillis          int           `yaml:"frame_millis"`
	VADEnabled           bool          `yaml:"vad_enabled"`
	VADAggressiveness    int           `yaml:"vad_aggressiveness"`
	VADThreshold         float64       `yaml:"vad_threshold"`
	SilenceTimeout       time.Duration `yaml:"silence_timeout"`
	NoVADSilenceMultiple float64       `yaml:"no_vad_silence_multiple"`
	STTProvider          string        `yaml:"stt_provider"` // "groq" | "deepgram"
	STTAPIKey            string        `yaml:"-"`            // loaded from env, never from YAML
	STTModel             string        `yaml:"stt_model"`
}

// ConversationConfig configures C3, the Conversation Core.
type ConversationConfig struct {
	PersonalityCataloguePath string `yaml:"personality_catalogue_path"`
	KnowledgeBasePath        string `yaml:"knowledge_base_path"`
	MaxContextMessages       int    `yaml:"max_context_messages"`
	RobotName                string `yaml:"robot_name"`
	InitialPersonalityKey    string `yaml:"initial_personality_key"`

	InitialBackend  string `yaml:"initial_backend"` // "cloud" | "local" | "none"
	CloudModelName  string `yaml:"cloud_model_name"`
	CloudAPIKey     string `yaml:"-"`
	LocalModelPath  string `yaml:"local_model_path"`
	LocalContextSz  int    `yaml:"local_context_size"`
	LocalChatFormat string `yaml:"local_chat_format"`
}

// MotionConfig configures C5, the Motion Arbiter.
type MotionConfig struct {
	DeadZone           float64       `yaml:"dead_zone"`
	DeadManTimeout     time.Duration `yaml:"dead_man_timeout"`
	SpeedModifierStart float64       `yaml:"speed_modifier_start"`
	LayerCount         int           `yaml:"layer_count"`
	AxisSigns          AxisSigns     `yaml:"axis_signs"`
	ButtonDispatch     [][4]ButtonAction `yaml:"button_dispatch"`
}

// AxisSigns fixes the open question on joystick axis sign convention: each
// field is +1 or -1 and multiplies the raw axis value before mapping.
type AxisSigns struct {
	ForwardSign int `yaml:"forward_sign"` // left_stick.y -> vx
	StrafeSign  int `yaml:"strafe_sign"`  // left_stick.x -> vy
	TurnSign    int `yaml:"turn_sign"`    // right_stick.x -> vtheta
}

// DefaultAxisSigns matches the common body-frame convention: forward is
// +y, strafe-left is +x, turn-left (CCW) is positive.
func DefaultAxisSigns() AxisSigns {
	return AxisSigns{ForwardSign: 1, StrafeSign: 1, TurnSign: 1}
}

// ButtonAction is one entry of the per-layer action-button dispatch table.
type ButtonAction struct {
	Kind     string `yaml:"kind"` // "local_anim" | "standard_tag" | "speak_annotated" | "none"
	Category string `yaml:"category,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Tag      string `yaml:"tag,omitempty"`
	Text     string `yaml:"text,omitempty"`
}

// ExpressionConfig configures C4, the Expression Controller.
type ExpressionConfig struct {
	AnimationCatalogueDir string `yaml:"animation_catalogue_dir"`
}

// TabletConfig configures C7, the Tablet Gateway.
type TabletConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DiscoveryConfig configures mDNS advertise/resolve service names.
type DiscoveryConfig struct {
	AdvertiseServiceType string `yaml:"advertise_service_type"`
	RobotServiceType     string `yaml:"robot_service_type"`
	ResolveTimeout       time.Duration `yaml:"resolve_timeout"`
}

// Defaults returns a Config populated with the spec's documented defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{LogLevel: LogLevelInfo, DataDir: "./data", PersistDSN: "./data/umebot.db"},
		Audio: AudioConfig{
			TargetSampleRate:       16000,
			InitialSource:          "none",
			LocalPreferredRate:     16000,
			LocalIntakeQueueSize:   64,
			LocalOpenRetryAttempts: 3,
			LocalOpenRetryInterval: 5 * time.Second,
			RobotSampleRate:        16000,
			RobotChannels:          2,
			RobotBytesPerSample:    2,
			RobotIntakeQueueSize:   64,
		},
		Recognition: RecognitionConfig{
			FrameMillis:          20,
			VADEnabled:           true,
			VADAggressiveness:    2,
			VADThreshold:         0.02,
			SilenceTimeout:       2 * time.Second,
			NoVADSilenceMultiple: 1.5,
			STTProvider:          "groq",
		},
		Conversation: ConversationConfig{
			MaxContextMessages: 20,
			InitialBackend:     "none",
			LocalContextSz:     4096,
		},
		Motion: MotionConfig{
			DeadZone:           0.08,
			DeadManTimeout:     350 * time.Millisecond,
			SpeedModifierStart: 0.5,
			LayerCount:         1,
			AxisSigns:          DefaultAxisSigns(),
		},
		Expression: ExpressionConfig{AnimationCatalogueDir: "./data/animations"},
		Tablet:     TabletConfig{ListenAddr: ":8765"},
		Discovery: DiscoveryConfig{
			AdvertiseServiceType: "_umebotlogics._tcp.local.",
			RobotServiceType:     "_naoqi._tcp.local.",
			ResolveTimeout:       7 * time.Second,
		},
	}
}
