package config

import (
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/relayforge/agentgate/pkg/helper"
)

type (
	// GatewayConfig represents the agent gateway configuration
	GatewayConfig struct {
		Port     int            `yaml:"port"`
		Logger   LoggerConfig   `yaml:"logger"`
		Protocol ProtocolConfig `yaml:"protocol"`
		Session  SessionConfig  `yaml:"session"`
		Auth     AuthConfig     `yaml:"auth"`
		Metrics  MetricsConfig  `yaml:"metrics"`
	}

	// ProtocolConfig holds the tunables of the wire protocol. Every value is
	// adjustable so tests can run with sub-second intervals.
	ProtocolConfig struct {
		MaxMessageBytes   int64         `yaml:"max_message_bytes"`   // inbound text frame size limit
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`  // liveness probe period
		IdleTimeout       time.Duration `yaml:"idle_timeout"`        // absolute inbound idle limit
		AckWindow         int64         `yaml:"ack_window"`          // max unacknowledged event gap
		RateLimitMsgs     int           `yaml:"rate_limit_msgs"`     // inbound messages per window
		RateLimitInterval time.Duration `yaml:"rate_limit_interval"` // sliding window length
		ReplayBufferSize  int           `yaml:"replay_buffer_size"`  // events retained per session
	}

	// SessionConfig represents the session registry configuration
	SessionConfig struct {
		Type  string             `yaml:"type"` // "memory" or "redis"
		TTL   time.Duration      `yaml:"ttl"`  // idle session eviction; 0 disables
		Redis SessionRedisConfig `yaml:"redis"`
	}

	// SessionRedisConfig represents the Redis mirror for session replay state
	SessionRedisConfig struct {
		Addr     string        `yaml:"addr"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"` // TTL for mirrored replay data
	}

	// AuthConfig defines the token validation configuration
	AuthConfig struct {
		Mode   string              `yaml:"mode"` // "none", "jwt" or "static"
		JWT    JWTConfig           `yaml:"jwt"`
		Static []StaticTokenConfig `yaml:"static"`
	}

	// JWTConfig represents the JWT validation configuration
	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// StaticTokenConfig names a pre-shared token by its bcrypt hash
	StaticTokenConfig struct {
		Name string `yaml:"name"`
		Hash string `yaml:"hash"`
	}

	// MetricsConfig represents the Prometheus metrics configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps
		TimeFormat string `yaml:"time_format"` // time format for log timestamps
	}
)

// SetDefaults fills in the documented protocol defaults for any zero value.
func (c *ProtocolConfig) SetDefaults() {
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = 256 * 1024
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 25 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.AckWindow == 0 {
		c.AckWindow = 100
	}
	if c.RateLimitMsgs == 0 {
		c.RateLimitMsgs = 20
	}
	if c.RateLimitInterval == 0 {
		c.RateLimitInterval = 10 * time.Second
	}
	if c.ReplayBufferSize == 0 {
		c.ReplayBufferSize = 1000
	}
}

// SetDefaults fills in session registry defaults.
func (c *SessionConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "memory"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "agentgate"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 30 * time.Minute
	}
}

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*GatewayConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg GatewayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	if cfg.Port == 0 {
		cfg.Port = 8810
	}
	cfg.Protocol.SetDefaults()
	cfg.Session.SetDefaults()

	return &cfg, cfgPath, nil
}

// resolveEnv replaces ${VAR:default} placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
