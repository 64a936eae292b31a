package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	Session SessionConfig `mapstructure:"session"`
	OIDC    OIDCConfig    `mapstructure:"oidc"`
	Log     LogConfig     `mapstructure:"log"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Lock    LockConfig    `mapstructure:"lock"`
	Backup  BackupConfig  `mapstructure:"backup"`
	Mail    MailConfig    `mapstructure:"mail"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port    string    `mapstructure:"port"`
	BaseURL string    `mapstructure:"base_url"`
	TLS     TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds TLS-specific configuration.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
}

// DBConfig holds database-specific configuration.
// Driver is either "sqlite3" or "mysql".
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// SessionConfig holds session cookie settings. Lifetime is in hours.
type SessionConfig struct {
	Lifetime int `mapstructure:"lifetime"`
}

// OIDCConfig holds OIDC client configuration. SSO is disabled when IssuerURL is empty.
type OIDCConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// Enabled reports whether an identity provider is configured.
func (c OIDCConfig) Enabled() bool {
	return c.IssuerURL != ""
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // e.g., "debug", "info", "warn", "error"
	Format string `mapstructure:"format"` // e.g., "json", "console"
}

// CacheConfig holds the location and lifetime of the render cache.
type CacheConfig struct {
	FilePath string        `mapstructure:"file_path"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LockConfig controls edit-lock expiry.
type LockConfig struct {
	Threshold     time.Duration `mapstructure:"threshold"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	PingInterval  time.Duration `mapstructure:"ping_interval"`
}

// BackupConfig controls the database snapshot schedule.
type BackupConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Dir       string        `mapstructure:"dir"`
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

// MailConfig holds SMTP settings for verification codes. An empty Host logs codes instead of sending them.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// RetryConfig is the bounded retry policy for store reads.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

// AuthConfig holds sign-in settings.
type AuthConfig struct {
	CodeTTL       time.Duration `mapstructure:"code_ttl"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	AttemptWindow time.Duration `mapstructure:"attempt_window"`
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/fyrewiki/")
	v.AddConfigPath("$HOME/.fyrewiki")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found; proceed with defaults and env vars
	}

	v.SetEnvPrefix("WIKI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("db.dsn", "data/data.db?_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("session.lifetime", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.file_path", "data/cache.db")
	v.SetDefault("cache.ttl", "1m")
	v.SetDefault("lock.threshold", "20s")
	v.SetDefault("lock.sweep_interval", "3s")
	v.SetDefault("lock.ping_interval", "5s")
	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.dir", "backups")
	v.SetDefault("backup.interval", "24h")
	v.SetDefault("backup.retention", "72h")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "wiki@localhost")
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", "1s")
	v.SetDefault("auth.code_ttl", "10m")
	v.SetDefault("auth.max_attempts", 5)
	v.SetDefault("auth.attempt_window", "15m")
}
