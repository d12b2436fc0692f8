// Package config provides configuration management for the bot.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Telegram  TelegramConfig
	Database  DatabaseConfig
	Server    ServerConfig
	Gate      GateConfig
	Routes    RoutesConfig
	Tags      TagsConfig
	Broadcast BroadcastConfig
	RabbitMQ  RabbitMQConfig
	Logging   LoggingConfig
}

// TelegramConfig contains bot credentials and the fixed channel set.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TelegramConfig struct {
	Token          string
	OwnerID        int64
	ArchiveChannel int64 // private storage channel every upload is copied to
	PollTimeout    int   // long-poll timeout in seconds
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// ServerConfig contains the keep-alive HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// GateConfig contains the force-subscribe gate configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type GateConfig struct {
	RequiredChannels []int64
	FallbackInvite   string // shown when the bot cannot fetch an invite link
	FailOpen         bool   // treat membership lookup errors as satisfied
}

// RoutesConfig maps product tags to destination channels.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RoutesConfig struct {
	Products       map[string]int64
	DefaultChannel int64 // used when a product has no mapping; 0 means unset
}

// TagsConfig enumerates the classification vocabularies.
type TagsConfig struct {
	Products []string
	Flavors  []string
}

// BroadcastConfig tunes the fan-out engine.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type BroadcastConfig struct {
	RatePerSecond    float64
	Burst            int
	ProgressInterval int // log progress every N users
}

// RabbitMQConfig contains the optional ops event publisher configuration.
// An empty Host disables publishing entirely.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	RoutingKey string
	Port       int
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the workflow cannot run with.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.OwnerID == 0 {
		return fmt.Errorf("telegram.ownerid is required")
	}
	// Callback payloads are underscore-delimited, so the vocabularies
	// must not contain underscores.
	for _, p := range c.Tags.Products {
		if strings.Contains(p, "_") {
			return fmt.Errorf("tags.products: %q must not contain underscores", p)
		}
	}
	for _, f := range c.Tags.Flavors {
		if strings.Contains(f, "_") {
			return fmt.Errorf("tags.flavors: %q must not contain underscores", f)
		}
	}
	return nil
}

func setDefaults() {
	// Telegram
	// Credentials default to empty so environment overrides are picked
	// up during Unmarshal; Validate rejects a missing token or owner.
	viper.SetDefault("telegram.token", "")
	viper.SetDefault("telegram.ownerid", 0)
	viper.SetDefault("telegram.archivechannel", 0)
	viper.SetDefault("telegram.polltimeout", 60)

	// Routes
	viper.SetDefault("routes.defaultchannel", 0)

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "freedonuts")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Gate
	viper.SetDefault("gate.failopen", true)
	viper.SetDefault("gate.fallbackinvite", "")

	// Tags
	viper.SetDefault("tags.products", []string{"clips", "movies", "shows"})
	viper.SetDefault("tags.flavors", []string{"hindi", "tamil", "telugu", "english"})

	// Broadcast
	viper.SetDefault("broadcast.ratepersecond", 20.0)
	viper.SetDefault("broadcast.burst", 5)
	viper.SetDefault("broadcast.progressinterval", 100)

	// RabbitMQ (disabled unless a host is configured)
	viper.SetDefault("rabbitmq.host", "")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "freedonuts.events")
	viper.SetDefault("rabbitmq.routingkey", "content.published")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
