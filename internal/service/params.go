package service

import "time"

// LogFilter selects events by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "PASS", "FAIL", "TELEMETRY"
}

// AuthConfig carries token issuing parameters from the config file.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}
