package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scribe.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
audio:
  input_device: "USB Mic"
  input_sample_rate: 48000
stt:
  model_path: /models/ggml-base.bin
  language: en
buffer:
  quiet_period: 3.5
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.InputDevice != "USB Mic" || cfg.Audio.InputSampleRate != 48000 {
		t.Errorf("audio overrides lost: %+v", cfg.Audio)
	}
	if cfg.STT.Language != "en" {
		t.Errorf("stt language: %q", cfg.STT.Language)
	}
	if cfg.Buffer.GetQuietPeriod() != 3500*time.Millisecond {
		t.Errorf("quiet period: %v", cfg.Buffer.GetQuietPeriod())
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging overrides lost: %+v", cfg.Logging)
	}

	// untouched sections keep their defaults
	if cfg.Queue.Capacity != 64 {
		t.Errorf("queue capacity default lost: %d", cfg.Queue.Capacity)
	}
	if cfg.Memory.UserID != "boss" || cfg.Memory.BatchLimit != 100 {
		t.Errorf("memory defaults lost: %+v", cfg.Memory)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "audio: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero sample rate", func(c *Config) { c.Audio.InputSampleRate = 0 }, "audio"},
		{"huge chunk", func(c *Config) { c.Audio.ChunkDuration = 10 }, "chunk_duration"},
		{"zero capacity", func(c *Config) { c.Queue.Capacity = 0 }, "capacity"},
		{"threshold out of range", func(c *Config) { c.VAD.Threshold = 1.5 }, "threshold"},
		{"bad prefer", func(c *Config) { c.STT.Prefer = "both" }, "prefer"},
		{"offline without model", func(c *Config) { c.STT.ModelPath = "" }, "model_path"},
		{"sweep longer than quiet", func(c *Config) { c.Buffer.SweepInterval = 5 }, "sweep_interval"},
		{"empty chatlog path", func(c *Config) { c.Chatlog.Path = "" }, "chatlog"},
		{"memory without user", func(c *Config) { c.Memory.UserID = "" }, "user_id"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.STT.ModelPath = "/models/ggml-base.bin"
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestMemoryDisabledSkipsValidation(t *testing.T) {
	cfg := Default()
	cfg.STT.ModelPath = "/models/ggml-base.bin"
	cfg.Memory.Enabled = false
	cfg.Memory.Endpoint = ""
	cfg.Memory.UserID = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled memory section should not validate: %v", err)
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := Default()
	if cfg.Audio.GetChunkDuration() != 500*time.Millisecond {
		t.Errorf("chunk duration: %v", cfg.Audio.GetChunkDuration())
	}
	if cfg.Buffer.GetSweepInterval() != 250*time.Millisecond {
		t.Errorf("sweep interval: %v", cfg.Buffer.GetSweepInterval())
	}
	if cfg.Memory.GetTimeout() != 15*time.Second {
		t.Errorf("memory timeout: %v", cfg.Memory.GetTimeout())
	}
}
