package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete daemon configuration.
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Queue   QueueConfig   `yaml:"queue"`
	VAD     VADConfig     `yaml:"vad"`
	STT     STTConfig     `yaml:"stt"`
	Buffer  BufferConfig  `yaml:"buffer"`
	Chatlog ChatlogConfig `yaml:"chatlog"`
	Memory  MemoryConfig  `yaml:"memory"`
	HTTP    HTTPConfig    `yaml:"http"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	Notify  NotifyConfig  `yaml:"notify"`
	Logging LoggingConfig `yaml:"logging"`
}

// AudioConfig describes the two capture streams.
type AudioConfig struct {
	InputDevice       string  `yaml:"input_device"`        // "" = default input
	MonitorDevice     string  `yaml:"monitor_device"`      // "" = resolve via pactl
	InputSampleRate   int     `yaml:"input_sample_rate"`   // Hz
	MonitorSampleRate int     `yaml:"monitor_sample_rate"` // Hz
	ChunkDuration     float64 `yaml:"chunk_duration"`      // seconds
}

type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

type VADConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"` // RMS in [0,1]
}

// STTConfig selects and tunes the transcription engines.
type STTConfig struct {
	ModelPath   string `yaml:"model_path"`   // whisper.cpp ggml model
	Language    string `yaml:"language"`     // "auto", "en", ...
	OnlineModel string `yaml:"online_model"` // OpenAI transcription model
	Prefer      string `yaml:"prefer"`       // "offline" or "online"
}

type BufferConfig struct {
	QuietPeriod   float64 `yaml:"quiet_period"`   // seconds
	SweepInterval float64 `yaml:"sweep_interval"` // seconds
}

type ChatlogConfig struct {
	Path string `yaml:"path"`
}

type MemoryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	UserID     string `yaml:"user_id"`
	BatchLimit int    `yaml:"batch_limit"`
	Timeout    int    `yaml:"timeout"` // seconds
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type ProxyConfig struct {
	SocksAddr string `yaml:"socks_addr"` // "" = direct
}

type NotifyConfig struct {
	ChimePath string `yaml:"chime_path"` // "" = no chime
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the configuration used when a field is absent from the
// config file.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			InputSampleRate:   16000,
			MonitorSampleRate: 24000,
			ChunkDuration:     0.5,
		},
		Queue: QueueConfig{Capacity: 64},
		VAD: VADConfig{
			Enabled:   true,
			Threshold: 0.015,
		},
		STT: STTConfig{
			Language:    "auto",
			OnlineModel: "whisper-1",
			Prefer:      "offline",
		},
		Buffer: BufferConfig{
			QuietPeriod:   2.0,
			SweepInterval: 0.25,
		},
		Chatlog: ChatlogConfig{Path: "chatlog.db"},
		Memory: MemoryConfig{
			Enabled:    true,
			Endpoint:   "https://api.mem0.ai/v1/memories/",
			UserID:     "boss",
			BatchLimit: 100,
			Timeout:    15,
		},
		HTTP:    HTTPConfig{Address: "127.0.0.1:8093"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the config file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad: %w", err)
	}
	if err := c.STT.Validate(); err != nil {
		return fmt.Errorf("stt: %w", err)
	}
	if err := c.Buffer.Validate(); err != nil {
		return fmt.Errorf("buffer: %w", err)
	}
	if err := c.Chatlog.Validate(); err != nil {
		return fmt.Errorf("chatlog: %w", err)
	}
	if err := c.Memory.Validate(); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func (a *AudioConfig) Validate() error {
	if a.InputSampleRate <= 0 {
		return fmt.Errorf("input_sample_rate must be positive, got %d", a.InputSampleRate)
	}
	if a.MonitorSampleRate <= 0 {
		return fmt.Errorf("monitor_sample_rate must be positive, got %d", a.MonitorSampleRate)
	}
	if a.ChunkDuration <= 0 || a.ChunkDuration > 5 {
		return fmt.Errorf("chunk_duration must be in (0, 5] seconds, got %f", a.ChunkDuration)
	}
	return nil
}

func (q *QueueConfig) Validate() error {
	if q.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", q.Capacity)
	}
	return nil
}

func (v *VADConfig) Validate() error {
	if v.Threshold < 0 || v.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", v.Threshold)
	}
	return nil
}

func (s *STTConfig) Validate() error {
	switch s.Prefer {
	case "offline", "online":
	default:
		return fmt.Errorf("prefer must be 'offline' or 'online', got %q", s.Prefer)
	}
	if s.Prefer == "offline" && s.ModelPath == "" {
		return fmt.Errorf("model_path required when prefer is 'offline'")
	}
	if s.OnlineModel == "" {
		return fmt.Errorf("online_model cannot be empty")
	}
	return nil
}

func (b *BufferConfig) Validate() error {
	if b.QuietPeriod <= 0 {
		return fmt.Errorf("quiet_period must be positive, got %f", b.QuietPeriod)
	}
	if b.SweepInterval <= 0 || b.SweepInterval > b.QuietPeriod {
		return fmt.Errorf("sweep_interval must be in (0, quiet_period], got %f", b.SweepInterval)
	}
	return nil
}

func (c *ChatlogConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	return nil
}

func (m *MemoryConfig) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if m.UserID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}
	if m.BatchLimit < 1 {
		return fmt.Errorf("batch_limit must be at least 1, got %d", m.BatchLimit)
	}
	if m.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", m.Timeout)
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	switch l.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be 'text' or 'json', got %q", l.Format)
	}
	return nil
}

// GetChunkDuration returns the chunk duration as a time.Duration.
func (a *AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkDuration * float64(time.Second))
}

// GetQuietPeriod returns the quiet period as a time.Duration.
func (b *BufferConfig) GetQuietPeriod() time.Duration {
	return time.Duration(b.QuietPeriod * float64(time.Second))
}

// GetSweepInterval returns the sweep interval as a time.Duration.
func (b *BufferConfig) GetSweepInterval() time.Duration {
	return time.Duration(b.SweepInterval * float64(time.Second))
}

// GetTimeout returns the memory request timeout as a time.Duration.
func (m *MemoryConfig) GetTimeout() time.Duration {
	return time.Duration(m.Timeout) * time.Second
}
