package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds MongoDB connection settings.
type DatabaseConfig struct {
	URI                    string        `yaml:"uri"                      env:"DATABASE_URI"                      env-required:"true"`
	Name                   string        `yaml:"name"                     env:"DATABASE_NAME"                     env-default:"proposals"`
	MaxPoolSize            uint64        `yaml:"max_pool_size"            env:"DATABASE_MAX_POOL_SIZE"            env-default:"100"`
	MinPoolSize            uint64        `yaml:"min_pool_size"            env:"DATABASE_MIN_POOL_SIZE"            env-default:"0"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout" env:"DATABASE_SERVER_SELECTION_TIMEOUT" env-default:"10s"`
	ConnectAttempts        int           `yaml:"connect_attempts"         env:"DATABASE_CONNECT_ATTEMPTS"         env-default:"3"`
	ConnectBackoff         time.Duration `yaml:"connect_backoff"          env:"DATABASE_CONNECT_BACKOFF"          env-default:"2s"`
	DisconnectTimeout      time.Duration `yaml:"disconnect_timeout"       env:"DATABASE_DISCONNECT_TIMEOUT"       env-default:"10s"`
}

// LogConfig holds logging settings. DriverLevel is the level MongoDB driver
// command events are logged at, or "off".
type LogConfig struct {
	Level       string `yaml:"level"        env:"LOG_LEVEL"        env-default:"info"`
	Format      string `yaml:"format"       env:"LOG_FORMAT"       env-default:"json"`
	DriverLevel string `yaml:"driver_level" env:"LOG_DRIVER_LEVEL" env-default:"off"`
}
