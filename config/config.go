package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries the broker endpoint, connection lifecycle settings and
// per-consumer defaults. It is immutable after Load.
type Config struct {
	Host        string `envconfig:"HOST" default:"localhost"`
	Port        int    `envconfig:"PORT" default:"5672"`
	User        string `envconfig:"USER" default:"guest"`
	Password    string `envconfig:"PASSWORD" default:"guest"`
	VirtualHost string `envconfig:"VHOST" default:"/"`

	ConnectionName          string        `envconfig:"CONNECTION_NAME" default:"bus6"`
	MaxConnectionLifetime   time.Duration `envconfig:"MAX_CONNECTION_LIFETIME" default:"30m"`
	HealthCheckInterval     time.Duration `envconfig:"HEALTH_CHECK_INTERVAL" default:"0"`
	SeparateConnections     bool          `envconfig:"SEPARATE_CONNECTIONS" default:"true"`
	Heartbeat               time.Duration `envconfig:"HEARTBEAT" default:"10s"`
	NetworkRecoveryInterval time.Duration `envconfig:"NETWORK_RECOVERY_INTERVAL" default:"10s"`

	PrefetchCount int  `envconfig:"PREFETCH_COUNT" default:"10"`
	AutoAck       bool `envconfig:"AUTO_ACK" default:"false"`
}

// Load reads the configuration from BUS6_* environment variables
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("bus6", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no broker would accept
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("config: host must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.MaxConnectionLifetime <= 0 {
		return fmt.Errorf("config: max connection lifetime must be positive")
	}
	if c.HealthCheckInterval < 0 {
		return fmt.Errorf("config: health check interval must not be negative")
	}
	if c.PrefetchCount < 0 {
		return fmt.Errorf("config: prefetch count must not be negative")
	}
	return nil
}

// URI renders the AMQP connection URI for the configured endpoint. The
// default virtual host "/" maps to a bare trailing slash, the form
// amqp091-go parses back to "/".
func (c Config) URI() string {
	vhost := c.VirtualHost
	if vhost == "/" {
		vhost = ""
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + vhost,
	}
	return u.String()
}
