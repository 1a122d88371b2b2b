package config

import (
	"fmt"
	"os"
	"strconv"
)

// JWTConfig holds configuration for control API token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig creates a new JWT configuration from environment variables.
// It reads CONTROL_JWT_SECRET (required) and CONTROL_JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("CONTROL_JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("CONTROL_JWT_SECRET is required but not set")
	}

	expirationStr := os.Getenv("CONTROL_JWT_EXPIRATION_HOURS")
	if expirationStr == "" {
		expirationStr = "24" // default
	}

	expirationHours, err := strconv.Atoi(expirationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CONTROL_JWT_EXPIRATION_HOURS: %v", err)
	}

	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}

	if err := config.normalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// OptionalJWTConfig returns nil without error when no secret is configured,
// leaving the control API unauthenticated.
func OptionalJWTConfig() (*JWTConfig, error) {
	if os.Getenv("CONTROL_JWT_SECRET") == "" {
		return nil, nil
	}
	return NewJWTConfig()
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("CONTROL_JWT_SECRET cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("CONTROL_JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
