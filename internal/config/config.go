package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// devJWTSecret signs tokens when ENV=development and JWT_SECRET is unset.
const devJWTSecret = "development-only-secret-do-not-deploy!!"

const minJWTSecretLen = 32

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	MongoURI       string        `mapstructure:"MONGODB_URI"`
	MongoDatabase  string        `mapstructure:"MONGODB_DATABASE"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTTTL         time.Duration `mapstructure:"JWT_TTL"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	SentryDSN      string        `mapstructure:"SENTRY_DSN"`
	// StrictUpdateAvailability makes appointment updates require a free
	// hourly slot, as bookings do, instead of mere window containment.
	StrictUpdateAvailability bool   `mapstructure:"STRICT_UPDATE_AVAILABILITY"`
	ClinicTimezone           string `mapstructure:"CLINIC_TIMEZONE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MONGODB_URI", "MONGODB_DATABASE", "REDIS_URL",
	"JWT_SECRET", "JWT_TTL", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"SENTRY_DSN", "STRICT_UPDATE_AVAILABILITY", "CLINIC_TIMEZONE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "clinic")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STRICT_UPDATE_AVAILABILITY", false)
	v.SetDefault("CLINIC_TIMEZONE", "UTC")

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET unset; signing tokens with the built-in development secret")
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves CLINIC_TIMEZONE. Appointment times are wall-clock
// values in this zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development (ENV=%q)", c.Env)
	}
	if len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", minJWTSecretLen, len(c.JWTSecret))
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.MongoURI == "" || c.MongoDatabase == "" {
		return fmt.Errorf("MONGODB_URI and MONGODB_DATABASE are required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
