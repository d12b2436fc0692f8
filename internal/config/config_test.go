package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		cleanup func()
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "load with defaults and required credentials",
			setup: func() {
				viper.Reset()
				os.Setenv("APP_TELEGRAM_TOKEN", "123:abc")
				os.Setenv("APP_TELEGRAM_OWNERID", "42")
			},
			cleanup: func() {
				os.Unsetenv("APP_TELEGRAM_TOKEN")
				os.Unsetenv("APP_TELEGRAM_OWNERID")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.Database.Host != "localhost" {
					t.Errorf("Database.Host = %s, want localhost", cfg.Database.Host)
				}
				if cfg.Database.Port != 5432 {
					t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
				}
				if cfg.Telegram.Token != "123:abc" {
					t.Errorf("Telegram.Token = %s, want 123:abc", cfg.Telegram.Token)
				}
				if cfg.Telegram.OwnerID != 42 {
					t.Errorf("Telegram.OwnerID = %d, want 42", cfg.Telegram.OwnerID)
				}
				if !cfg.Gate.FailOpen {
					t.Error("Gate.FailOpen = false, want true")
				}
				if len(cfg.Tags.Products) == 0 {
					t.Error("Tags.Products is empty, want defaults")
				}
			},
		},
		{
			name: "missing token is rejected",
			setup: func() {
				viper.Reset()
			},
			cleanup: func() {},
			wantErr: true,
		},
		{
			name: "load with environment overrides",
			setup: func() {
				viper.Reset()
				os.Setenv("APP_TELEGRAM_TOKEN", "123:abc")
				os.Setenv("APP_TELEGRAM_OWNERID", "42")
				os.Setenv("APP_SERVER_PORT", "9090")
				os.Setenv("APP_DATABASE_HOST", "testdb")
				os.Setenv("APP_DATABASE_PORT", "5433")
			},
			cleanup: func() {
				os.Unsetenv("APP_TELEGRAM_TOKEN")
				os.Unsetenv("APP_TELEGRAM_OWNERID")
				os.Unsetenv("APP_SERVER_PORT")
				os.Unsetenv("APP_DATABASE_HOST")
				os.Unsetenv("APP_DATABASE_PORT")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.Database.Host != "testdb" {
					t.Errorf("Database.Host = %s, want testdb", cfg.Database.Host)
				}
				if cfg.Database.Port != 5433 {
					t.Errorf("Database.Port = %d, want 5433", cfg.Database.Port)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			defer func() {
				if tt.cleanup != nil {
					tt.cleanup()
				}
			}()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.check != nil && cfg != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	tests := []struct {
		name string
		key  string
		want interface{}
	}{
		{"server port", "server.port", 8080},
		{"database host", "database.host", "localhost"},
		{"database port", "database.port", 5432},
		{"database name", "database.name", "freedonuts"},
		{"database user", "database.user", "postgres"},
		{"database sslmode", "database.sslmode", "disable"},
		{"database maxconnections", "database.maxconnections", 10},
		{"database minconnections", "database.minconnections", 2},
		{"telegram polltimeout", "telegram.polltimeout", 60},
		{"gate failopen", "gate.failopen", true},
		{"broadcast burst", "broadcast.burst", 5},
		{"broadcast progressinterval", "broadcast.progressinterval", 100},
		{"rabbitmq host", "rabbitmq.host", ""},
		{"rabbitmq port", "rabbitmq.port", 5672},
		{"rabbitmq exchange", "rabbitmq.exchange", "freedonuts.events"},
		{"rabbitmq routingkey", "rabbitmq.routingkey", "content.published"},
		{"logging level", "logging.level", "info"},
		{"logging file", "logging.file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := viper.Get(tt.key)
			if got != tt.want {
				t.Errorf("viper.Get(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	// Test time.Duration defaults
	if viper.GetDuration("server.shutdowntimeout") != 30*time.Second {
		t.Errorf("server.shutdowntimeout = %v, want 30s", viper.GetDuration("server.shutdowntimeout"))
	}
	if viper.GetDuration("database.maxidletime") != 10*time.Minute {
		t.Errorf("database.maxidletime = %v, want 10m", viper.GetDuration("database.maxidletime"))
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "123:abc", OwnerID: 42},
			Tags: TagsConfig{
				Products: []string{"clips", "movies"},
				Flavors:  []string{"hindi", "english"},
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := base().Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("underscore in product tag is rejected", func(t *testing.T) {
		cfg := base()
		cfg.Tags.Products = []string{"short_clips"}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() error = nil, want error")
		}
	})

	t.Run("underscore in flavor tag is rejected", func(t *testing.T) {
		cfg := base()
		cfg.Tags.Flavors = []string{"en_us"}
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() error = nil, want error")
		}
	})

	t.Run("missing owner is rejected", func(t *testing.T) {
		cfg := base()
		cfg.Telegram.OwnerID = 0
		if err := cfg.Validate(); err == nil {
			t.Error("Validate() error = nil, want error")
		}
	})
}
