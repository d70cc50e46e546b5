package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/d5h-foss/hwtest/internal/logging"
)

// Default action kinds accepted in config.
const (
	ActionWaitAndCheck = "wait_and_check"
	ActionCheckAndWait = "check_and_wait"
)

// Queue-full policies accepted in config.
const (
	PolicyBlock      = "block"
	PolicyDropOldest = "drop_oldest"
	PolicyFail       = "fail"
)

// Config is the rig's explicit configuration, loaded once at startup.
// Anything invalid here is a setup mistake and fails before a run can
// start.
type Config struct {
	Port     string
	LogLevel string
	DBPath   string

	SamplingPeriod   time.Duration
	FailureThreshold int
	StopGrace        time.Duration

	QueueCapacity   int
	ResultPolicy    string // queue-full policy for PASS/FAIL events
	TelemetryPolicy string // queue-full policy for TELEMETRY events

	DefaultAction string
	DefaultDelay  time.Duration

	TokenTTL   time.Duration
	SigningKey string
}

// Load reads configs/config.yml from the given directory and validates
// the result.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")

	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "hwtest.db")
	v.SetDefault("sampler.period", "20ms")
	v.SetDefault("sampler.failure_threshold", 5)
	v.SetDefault("sampler.stop_grace", "2s")
	v.SetDefault("sink.capacity", 256)
	v.SetDefault("sink.result_policy", PolicyBlock)
	v.SetDefault("sink.telemetry_policy", PolicyDropOldest)
	v.SetDefault("controller.default_action", ActionWaitAndCheck)
	v.SetDefault("controller.default_delay", "0s")
	v.SetDefault("auth.token_ttl", "1h")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		Port:             v.GetString("port"),
		LogLevel:         v.GetString("log_level"),
		DBPath:           v.GetString("db.path"),
		SamplingPeriod:   v.GetDuration("sampler.period"),
		FailureThreshold: v.GetInt("sampler.failure_threshold"),
		StopGrace:        v.GetDuration("sampler.stop_grace"),
		QueueCapacity:    v.GetInt("sink.capacity"),
		ResultPolicy:     v.GetString("sink.result_policy"),
		TelemetryPolicy:  v.GetString("sink.telemetry_policy"),
		DefaultAction:    v.GetString("controller.default_action"),
		DefaultDelay:     v.GetDuration("controller.default_delay"),
		TokenTTL:         v.GetDuration("auth.token_ttl"),
		SigningKey:       v.GetString("auth.signing_key"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails fast on malformed settings.
func (c *Config) Validate() error {
	if c.SamplingPeriod <= 0 {
		return fmt.Errorf("sampler.period must be positive, got %v", c.SamplingPeriod)
	}
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("sampler.failure_threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("sink.capacity must be at least 1, got %d", c.QueueCapacity)
	}
	if _, err := ParsePolicy(c.ResultPolicy); err != nil {
		return fmt.Errorf("sink.result_policy: %w", err)
	}
	if _, err := ParsePolicy(c.TelemetryPolicy); err != nil {
		return fmt.Errorf("sink.telemetry_policy: %w", err)
	}
	switch c.DefaultAction {
	case ActionWaitAndCheck, ActionCheckAndWait:
	default:
		return fmt.Errorf("controller.default_action %q: want %q or %q",
			c.DefaultAction, ActionWaitAndCheck, ActionCheckAndWait)
	}
	if c.DefaultDelay < 0 {
		return fmt.Errorf("controller.default_delay must not be negative, got %v", c.DefaultDelay)
	}
	return nil
}

// ParsePolicy maps a config string to a sink full-queue policy.
func ParsePolicy(s string) (logging.FullPolicy, error) {
	switch s {
	case PolicyBlock:
		return logging.Block, nil
	case PolicyDropOldest:
		return logging.DropOldest, nil
	case PolicyFail:
		return logging.Fail, nil
	}
	return logging.Block, fmt.Errorf("unknown queue policy %q", s)
}
