package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Database.validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (d *DatabaseConfig) validate() error {
	if !strings.HasPrefix(d.URI, "mongodb://") && !strings.HasPrefix(d.URI, "mongodb+srv://") {
		return fmt.Errorf("uri must start with mongodb:// or mongodb+srv://")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if d.MaxPoolSize == 0 {
		return fmt.Errorf("max_pool_size must be > 0")
	}
	if d.MinPoolSize > d.MaxPoolSize {
		return fmt.Errorf("min_pool_size (%d) must not exceed max_pool_size (%d)", d.MinPoolSize, d.MaxPoolSize)
	}
	if d.ConnectAttempts < 1 {
		return fmt.Errorf("connect_attempts must be >= 1 (got %d)", d.ConnectAttempts)
	}
	if d.ConnectBackoff < 0 {
		return fmt.Errorf("connect_backoff must be >= 0 (got %v)", d.ConnectBackoff)
	}
	if d.ServerSelectionTimeout <= 0 {
		return fmt.Errorf("server_selection_timeout must be > 0 (got %v)", d.ServerSelectionTimeout)
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text (got %q)", l.Format)
	}
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	switch strings.ToLower(l.DriverLevel) {
	case "", "off", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown driver_level %q", l.DriverLevel)
	}
	return nil
}
