package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AudioConfig describes the capture format requested from the input device.
type AudioConfig struct {
	SampleRate      float64 `validate:"gt=0"`
	FramesPerBuffer int     `validate:"gt=0"`
	InputChannels   int     `validate:"min=1,max=2"`
}

// AnalysisConfig points at the remote fluency analysis service.
type AnalysisConfig struct {
	URL       string        `validate:"required,url"`
	HealthURL string        `validate:"omitempty,url"`
	Timeout   time.Duration `validate:"gt=0"`
}

type Config struct {
	Audio       AudioConfig
	Analysis    AnalysisConfig
	LogLevel    string `validate:"oneof=debug info warn error"`
	LogFile     string
	MetricsAddr string
	TickPeriod  time.Duration `validate:"gt=0"`
}

// LoadConfigFrom reads the given env files (when present) and the process
// environment. A missing env file is not an error.
func LoadConfigFrom(paths ...string) (*Config, error) {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		Audio: AudioConfig{
			SampleRate:      44100,
			FramesPerBuffer: 1024,
			InputChannels:   1,
		},
		Analysis: AnalysisConfig{
			URL:     "http://localhost:8000/analyze",
			Timeout: 30 * time.Second,
		},
		LogLevel:   "info",
		TickPeriod: time.Second,
	}

	var err error
	if cfg.Audio.SampleRate, err = floatEnv("SAMPLE_RATE", cfg.Audio.SampleRate); err != nil {
		return nil, err
	}
	if cfg.Audio.FramesPerBuffer, err = intEnv("FRAMES_PER_BUFFER", cfg.Audio.FramesPerBuffer); err != nil {
		return nil, err
	}
	if cfg.Audio.InputChannels, err = intEnv("INPUT_CHANNELS", cfg.Audio.InputChannels); err != nil {
		return nil, err
	}
	if cfg.Analysis.Timeout, err = durationEnv("ANALYSIS_TIMEOUT", cfg.Analysis.Timeout); err != nil {
		return nil, err
	}
	if cfg.TickPeriod, err = durationEnv("TICK_PERIOD", cfg.TickPeriod); err != nil {
		return nil, err
	}
	cfg.Analysis.URL = stringEnv("ANALYSIS_URL", cfg.Analysis.URL)
	cfg.Analysis.HealthURL = stringEnv("ANALYSIS_HEALTH_URL", "")
	cfg.LogLevel = stringEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = stringEnv("LOG_FILE", "")
	cfg.MetricsAddr = stringEnv("METRICS_ADDR", "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func stringEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
