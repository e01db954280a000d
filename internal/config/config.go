package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/liuscraft/pacap/internal/tone"
)

const DefaultPath = "config/pacap.yaml"

type AppConfig struct {
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Tone    ToneConfig    `json:"tone" yaml:"tone"`
	Stream  StreamConfig  `json:"stream" yaml:"stream"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type ToneConfig struct {
	Format    string  `json:"format" yaml:"format"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	// Duration 播放/录音时长（秒），0 表示直到被中断
	Duration float64 `json:"duration" yaml:"duration"`
	Rounding string  `json:"rounding" yaml:"rounding"`
}

type StreamConfig struct {
	HighLatency     bool `json:"high_latency" yaml:"high_latency"`
	FramesPerBuffer int  `json:"frames_per_buffer" yaml:"frames_per_buffer"`
}

type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{},
		Tone: ToneConfig{
			Format:    "f32",
			Frequency: 1000,
			Duration:  5,
			Rounding:  "nearest",
		},
		Stream: StreamConfig{
			HighLatency:     false,
			FramesPerBuffer: 0,
		},
	}
}

func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func (c *AppConfig) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = format
	}
	if addr := strings.TrimSpace(os.Getenv("PACAP_METRICS_ADDR")); addr != "" {
		c.Metrics.Addr = addr
	}
}

func (c *AppConfig) Validate() error {
	if _, err := tone.ParseEncoding(c.Tone.Format); err != nil {
		return fmt.Errorf("tone.format: %w", err)
	}
	if _, err := tone.ParseRounding(c.Tone.Rounding); err != nil {
		return fmt.Errorf("tone.rounding: %w", err)
	}
	if c.Tone.Frequency < 0 {
		return errors.New("tone.frequency must be non-negative")
	}
	if c.Tone.Duration < 0 {
		return errors.New("tone.duration must be non-negative")
	}
	if c.Stream.FramesPerBuffer < 0 {
		return errors.New("stream.frames_per_buffer must be non-negative")
	}
	return nil
}
