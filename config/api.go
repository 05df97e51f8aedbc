package config

import (
	"fmt"
	"time"
)

// APIConfig configures the HTTP operator API.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
	// ReadTimeoutMS bounds the time spent reading a request.
	ReadTimeoutMS int `json:"read_timeout_ms"`
	// JWTSecret enables bearer token checks on state-changing endpoints.
	JWTSecret string `json:"jwt_secret"`
	// Stream serves snapshots over a websocket at /api/stream.
	Stream bool `json:"stream"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeoutMS <= 0 {
		c.ReadTimeoutMS = 5000
	}
}

// Validate checks mandatory fields.
func (c APIConfig) Validate() error {
	if c.Enabled && c.Address == "" {
		return fmt.Errorf("api.address is required")
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("api.jwt_secret must be at least 16 bytes")
	}
	return nil
}

// ReadTimeout returns the request read timeout.
func (c APIConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}
