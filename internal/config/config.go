package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Log      LogConfig      `mapstructure:"log"`
	Export   ExportConfig   `mapstructure:"export"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // "sqlite" or "postgres"
	DSN             string `mapstructure:"dsn"`               // Connection string
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // Maximum idle connections (Postgres)
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // Maximum open connections (Postgres)
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // Connection max lifetime in minutes (Postgres)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Type                string `mapstructure:"type"`       // "basic" or "oidc"
	JWTSecret           string `mapstructure:"jwt_secret"` // Secret for JWT signing
	MaxLoginAttempts    int    `mapstructure:"max_login_attempts"`
	LockoutMinutes      int    `mapstructure:"lockout_minutes"`
	OIDCIssuer          string `mapstructure:"oidc_issuer"`
	OIDCClientID        string `mapstructure:"oidc_client_id"`
	OIDCClientSecret    string `mapstructure:"oidc_client_secret"`
	OIDCRedirectURL     string `mapstructure:"oidc_redirect_url"`
	DefaultAdminUser    string `mapstructure:"default_admin_user"`
	DefaultAdminPass    string `mapstructure:"default_admin_pass"`
	DefaultAdminEmail   string `mapstructure:"default_admin_email"`
	DisableDefaultAdmin bool   `mapstructure:"disable_default_admin"`
}

// QueueConfig holds audit queue configuration
type QueueConfig struct {
	Type       string `mapstructure:"type"`        // "memory" or "valkey"
	ValkeyAddr string `mapstructure:"valkey_addr"` // Valkey address (if type=valkey), e.g., "localhost:6379"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string `mapstructure:"format"` // "json" or "text"
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
}

// ExportConfig holds route export configuration
type ExportConfig struct {
	ChromeURL      string `mapstructure:"chrome_url"`      // Remote Chrome debugger URL; empty launches a local browser
	RenderTimeout  int    `mapstructure:"render_timeout"`  // PDF render timeout in seconds
	DisablePDF     bool   `mapstructure:"disable_pdf"`     // Disable PDF export (no Chrome available)
	CompanyName    string `mapstructure:"company_name"`    // Printed on route sheets
	SheetFootnote  string `mapstructure:"sheet_footnote"`  // Optional footer on route sheets
	TemplateDir    string `mapstructure:"template_dir"`    // Override directory for export templates
	DefaultLocale  string `mapstructure:"default_locale"`  // Locale hint for rendered documents
	MaxExportBytes int64  `mapstructure:"max_export_bytes"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8470)
	v.SetDefault("server.mode", "development")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./routecraft.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("auth.type", "basic")
	v.SetDefault("auth.jwt_secret", "change-me-in-production")
	v.SetDefault("auth.max_login_attempts", 5)
	v.SetDefault("auth.lockout_minutes", 15)
	v.SetDefault("auth.default_admin_user", "admin")
	v.SetDefault("auth.default_admin_email", "admin@localhost")
	v.SetDefault("queue.type", "memory")
	v.SetDefault("queue.valkey_addr", "localhost:6379")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("export.render_timeout", 30)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/routecraft/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	v.SetEnvPrefix("MESROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
