package configs

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"feeledger_backend/internals/logger"
)

type Config struct {
	Port string

	DBDriver   string // postgres | memory
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string

	JWTSecret   string
	CORSOrigins string

	DefaultCurrency string
	Timezone        string
	OverdueCron     string

	MidtransServerKey  string
	MidtransProduction bool

	LogLevel  string
	LogFormat string
	LogOutput string
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	log := logger.WithComponent("configs")
	if os.Getenv("RAILWAY_ENVIRONMENT") != "" {
		log.Info().Msg("running in Railway, using system ENV")
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env not found, using system ENV")
	} else {
		log.Info().Msg(".env loaded")
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("PORT", "3000")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DEFAULT_CURRENCY", "IDR")
	v.SetDefault("TIMEZONE", "Asia/Jakarta")
	v.SetDefault("OVERDUE_CRON", "10 0 * * *")
	v.SetDefault("MIDTRANS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.AutomaticEnv()
	return v
}

// Load reads the settings; call LoadEnv first so .env values are visible.
func Load() (*Config, error) {
	v := newViper()
	cfg := &Config{
		Port:               v.GetString("PORT"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DBUser:             v.GetString("DB_USER"),
		DBPassword:         v.GetString("DB_PASSWORD"),
		DBHost:             v.GetString("DB_HOST"),
		DBPort:             v.GetString("DB_PORT"),
		DBName:             v.GetString("DB_NAME"),
		DBSSLMode:          v.GetString("DB_SSLMODE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		CORSOrigins:        v.GetString("CORS_ORIGINS"),
		DefaultCurrency:    strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		Timezone:           v.GetString("TIMEZONE"),
		OverdueCron:        v.GetString("OVERDUE_CRON"),
		MidtransServerKey:  v.GetString("MIDTRANS_SERVER_KEY"),
		MidtransProduction: v.GetBool("MIDTRANS_PRODUCTION"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		LogOutput:          v.GetString("LOG_OUTPUT"),
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be an ISO-4217 code")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	return nil
}

// DSN builds the postgres URL with a statement timeout, as the pool expects.
func (c *Config) DSN() string {
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	q.Set("application_name", "feeledger")
	q.Set("options", "-c statement_timeout=3000")
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// MigrateURL is the plain postgres URL golang-migrate connects with.
func (c *Config) MigrateURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: time.RFC3339,
		Output:     c.LogOutput,
	}
}
