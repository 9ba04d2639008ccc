package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds application level configuration loaded from an optional file and the environment.
type Config struct {
	ServerPort string
	BaseURL    string

	DBDriver      string
	DatabaseDSN   string
	DBAutoMigrate bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret string

	UploadDir           string
	UploadMaxBytes      int64
	UploadMaxImageWidth int

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	LogLevel  string
	LogFormat string

	AuthRateLimit    float64
	CORSAllowOrigins []string
	SwaggerHost      string
	SMTP             SMTPConfig
}

// SMTPConfig configures outgoing mail. An empty Host disables mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether mail delivery is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// Addr returns host:port for net/smtp.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

var defaultDSN = map[string]string{
	DriverMySQL:    "user:password@tcp(localhost:3306)/storefront?charset=utf8mb4&parseTime=True&loc=Local",
	DriverPostgres: "host=localhost user=postgres password=postgres dbname=storefront port=5432 sslmode=disable",
	DriverSQLite:   "storefront.db",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("BASE_URL", "http://localhost:5000")
	v.SetDefault("DB_DRIVER", DriverMySQL)
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("MYSQL_DSN", "")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 5*1024*1024)
	v.SetDefault("UPLOAD_MAX_IMAGE_WIDTH", 2048)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_EMAIL", "admin@example.com")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("AUTH_RATE_LIMIT", 10.0)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("SWAGGER_HOST", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "no-reply@localhost")
}

// Load builds Config from defaults, the file named by CONFIG_FILE (if any) and the environment.
// Environment variables take precedence over the file.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER")))
	dsn := v.GetString("DATABASE_DSN")
	if dsn == "" {
		dsn = v.GetString("MYSQL_DSN")
	}
	if dsn == "" {
		dsn = defaultDSN[driver]
	}

	cfg := &Config{
		ServerPort:          v.GetString("SERVER_PORT"),
		BaseURL:             strings.TrimRight(v.GetString("BASE_URL"), "/"),
		DBDriver:            driver,
		DatabaseDSN:         dsn,
		DBAutoMigrate:       v.GetBool("DB_AUTO_MIGRATE"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisDB:             v.GetInt("REDIS_DB"),
		RedisPass:           v.GetString("REDIS_PASSWORD"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		UploadDir:           v.GetString("UPLOAD_DIR"),
		UploadMaxBytes:      v.GetInt64("UPLOAD_MAX_BYTES"),
		UploadMaxImageWidth: v.GetInt("UPLOAD_MAX_IMAGE_WIDTH"),
		AdminUsername:       v.GetString("ADMIN_USERNAME"),
		AdminEmail:          v.GetString("ADMIN_EMAIL"),
		AdminPassword:       v.GetString("ADMIN_PASSWORD"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		AuthRateLimit:       v.GetFloat64("AUTH_RATE_LIMIT"),
		CORSAllowOrigins:    splitList(v.GetString("CORS_ALLOW_ORIGINS")),
		SwaggerHost:         v.GetString("SWAGGER_HOST"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT must not be empty")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	if c.UploadMaxImageWidth < 0 {
		return fmt.Errorf("UPLOAD_MAX_IMAGE_WIDTH must not be negative")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
