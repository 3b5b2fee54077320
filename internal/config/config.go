// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	Environment string         `koanf:"environment"`
	Server      ServerConfig   `koanf:"server"`
	Database    DatabaseConfig `koanf:"database"`
	Auth        AuthConfig     `koanf:"auth"`
	AMQP        AMQPConfig     `koanf:"amqp"`
	Realtime    RealtimeConfig `koanf:"realtime"`
	Logging     LoggingConfig  `koanf:"logging"`
	Tracing     TracingConfig  `koanf:"tracing"`
	Debug       DebugConfig    `koanf:"debug"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
	// GinMode is debug, release or test.
	GinMode string `koanf:"gin_mode"`
	// MessageRateLimit is how many messages one user may post per
	// MessageRateWindow. Zero disables the limit.
	MessageRateLimit  int           `koanf:"message_rate_limit"`
	MessageRateWindow time.Duration `koanf:"message_rate_window"`
}

type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
}

type AMQPConfig struct {
	// URL empty disables RabbitMQ; publishers fall back to noop.
	URL              string `koanf:"url"`
	AuditExchange    string `koanf:"audit_exchange"`
	AuditRoutingKey  string `koanf:"audit_routing_key"`
	RealtimeExchange string `koanf:"realtime_exchange"`
}

// RealtimeConfig selects how broadcast events reach WebSocket clients.
type RealtimeConfig struct {
	// Driver is local, amqp or nats.
	Driver           string        `koanf:"driver"`
	NATSURL          string        `koanf:"nats_url"`
	SubjectPrefix    string        `koanf:"subject_prefix"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
	WriteTimeout     time.Duration `koanf:"write_timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type TracingConfig struct {
	Enabled      bool    `koanf:"enabled"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	ServiceName  string  `koanf:"service_name"`
	SampleRatio  float64 `koanf:"sample_ratio"`
}

type DebugConfig struct {
	Routes bool `koanf:"routes"`
}

const (
	DriverLocal = "local"
	DriverAMQP  = "amqp"
	DriverNATS  = "nats"
)

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	} else if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("auth.jwt_secret must be changed in production"))
	}

	switch c.Realtime.Driver {
	case DriverLocal:
	case DriverAMQP:
		if c.AMQP.URL == "" {
			errs = append(errs, errors.New("realtime.driver=amqp requires amqp.url"))
		}
	case DriverNATS:
		if c.Realtime.NATSURL == "" {
			errs = append(errs, errors.New("realtime.driver=nats requires realtime.nats_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown realtime.driver %q", c.Realtime.Driver))
	}

	if c.Server.MessageRateLimit < 0 {
		errs = append(errs, errors.New("server.message_rate_limit must not be negative"))
	} else if c.Server.MessageRateLimit > 0 && c.Server.MessageRateWindow <= 0 {
		errs = append(errs, errors.New("server.message_rate_window must be positive"))
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be within [0,1]"))
	}

	return errors.Join(errs...)
}
