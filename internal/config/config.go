// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/IshaNayal/swasth-saathi/internal/utils"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
}

// DSN returns DATABASE_URL when set, otherwise a postgres:// URL assembled
// from the DB_* variables. Both pgx and golang-migrate accept it.
func (c DBConfig) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
		return "", errors.New("database environment variables not set (DATABASE_URL or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String(), nil
}

// Config holds application configuration loaded from the environment.
type Config struct {
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	// Env is the deployment environment; "production" forbids OTPReturnToClient.
	Env        string `env:"APP_ENV" envDefault:"development"`
	GinMode    string `env:"GIN_MODE"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DB            DBConfig
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"swasth.db"`

	JWTSecret      string `env:"JWT_SECRET_KEY"`
	SessionTTLDays int    `env:"SESSION_TTL_DAYS" envDefault:"7"`

	OTPExpiryMinutes       int `env:"OTP_EXPIRY_MINUTES" envDefault:"5"`
	OTPLength              int `env:"OTP_LENGTH" envDefault:"6"`
	BcryptCost             int `env:"BCRYPT_COST" envDefault:"10"`
	OTPResendWindowSeconds int `env:"OTP_RESEND_WINDOW_SECONDS" envDefault:"0"`
	// RedeemMaxAttempts caps redeem attempts per phone number within one
	// code lifetime; zero disables the cap.
	RedeemMaxAttempts int `env:"REDEEM_MAX_ATTEMPTS" envDefault:"5"`
	// RateLimitPerMinute caps API requests per client IP; zero disables it.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
	// PhoneDefaultCountryCode is prefixed to numbers entered without a
	// country code.
	PhoneDefaultCountryCode string `env:"PHONE_DEFAULT_COUNTRY_CODE" envDefault:"91"`
	// OTPReturnToClient echoes the plaintext code in the request-code
	// response. Development only.
	OTPReturnToClient bool `env:"OTP_RETURN_TO_CLIENT" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER"`
}

// Load reads .env (if present), then parses and validates Config from the
// environment. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, relying on environment variables")
	}
	return Parse()
}

// Parse builds Config from the current environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET_KEY must be set")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET_KEY must be at least 16 bytes")
	}
	if c.StorageDriver != StoragePostgres && c.StorageDriver != StorageSQLite {
		return fmt.Errorf("config: STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageSQLite, c.StorageDriver)
	}
	if c.OTPReturnToClient && c.Env == "production" {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.OTPExpiryMinutes <= 0 {
		return errors.New("config: OTP_EXPIRY_MINUTES must be positive")
	}
	if c.SessionTTLDays <= 0 {
		return errors.New("config: SESSION_TTL_DAYS must be positive")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return errors.New("config: OTP_LENGTH must be between 4 and 10")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.OTPResendWindowSeconds < 0 {
		return errors.New("config: OTP_RESEND_WINDOW_SECONDS must not be negative")
	}
	if c.RedeemMaxAttempts < 0 {
		return errors.New("config: REDEEM_MAX_ATTEMPTS must not be negative")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("config: RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if !utils.ValidCountryCode(c.PhoneDefaultCountryCode) {
		return fmt.Errorf("config: PHONE_DEFAULT_COUNTRY_CODE %q must be 1 to 3 digits", c.PhoneDefaultCountryCode)
	}
	if c.OTPResendWindowSeconds > 0 && c.RedisAddr == "" {
		return errors.New("config: REDIS_ADDR must be set when OTP_RESEND_WINDOW_SECONDS is positive")
	}
	return nil
}

// OTPTTL is the lifetime of an issued one-time code.
func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPExpiryMinutes) * time.Minute
}

// SessionTTL is the lifetime of an issued session token.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

// ResendWindow is the minimum gap between codes for one phone number; zero disables it.
func (c *Config) ResendWindow() time.Duration {
	return time.Duration(c.OTPResendWindowSeconds) * time.Second
}

// TwilioEnabled reports whether all Twilio credentials are present.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}
