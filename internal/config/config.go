package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Built-in bootstrap credentials. Override them before any real deployment.
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "admin123"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr        string
		CORSOrigins string `mapstructure:"cors_origins"`
	}
	Database struct {
		Path string
	}
	Auth struct {
		SessionSecret     string `mapstructure:"session_secret"`
		SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
		SecureCookie      bool   `mapstructure:"secure_cookie"`
		DefaultEmail      string `mapstructure:"default_email"`
		DefaultPassword   string `mapstructure:"default_password"`
	}
	Session struct {
		Backend string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Log struct {
		Level string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// a missing .env is fine; real environment variables win
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("INVENTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.cors_origins", "")
	v.SetDefault("database.path", "data/inventory.db")
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.session_ttl_minutes", 24*60)
	v.SetDefault("auth.secure_cookie", false)
	v.SetDefault("auth.default_email", DefaultAdminEmail)
	v.SetDefault("auth.default_password", DefaultAdminPassword)
	v.SetDefault("session.backend", "sqlite")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "inventory-exports")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// CORSOriginList splits the comma separated server.cors_origins value.
func (c Config) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.Server.CORSOrigins, ",") {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	return origins
}

// UsesDefaultPassword reports whether the bootstrap account keeps the built-in password.
func (c Config) UsesDefaultPassword() bool {
	return c.Auth.DefaultPassword == DefaultAdminPassword
}
