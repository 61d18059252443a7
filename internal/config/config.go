// Package config loads runtime configuration from the environment.
// A .env file in the working directory is honoured for local development.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries need to wire themselves up.
type Config struct {
	Port string
	Env  string

	DB   DBConfig
	SMTP SMTPConfig

	FetchTimeout    time.Duration
	FetchRatePerSec float64

	SweepSchedule string
	SweepWorkers  int

	// DefaultCurrency is the symbol assumed when a page gives no currency
	// signal at all.
	DefaultCurrency string
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// DSN builds a URL-encoded postgres DSN. sslmode=disable suits local
// development; override via DB_SSLMODE when deploying.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", envOr("DB_SSLMODE", "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// Load reads the environment (and .env, if present) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load() // load .env if present; not fatal if missing

	cfg := &Config{
		Port: envOr("PORT", "8080"),
		Env:  envOr("APP_ENV", "development"),
		DB: DBConfig{
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Host:     os.Getenv("DB_HOST"),
			Port:     envOr("DB_PORT", "5432"),
			Name:     os.Getenv("DB_NAME"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		FetchTimeout:    time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 8)) * time.Second,
		FetchRatePerSec: envFloat("FETCH_RATE_PER_SEC", 2),
		SweepSchedule:   envOr("SWEEP_SCHEDULE", "@every 6h"),
		SweepWorkers:    envInt("SWEEP_WORKERS", 4),
		DefaultCurrency: envOr("DEFAULT_CURRENCY", "₺"),
	}

	if cfg.DB.User == "" || cfg.DB.Host == "" || cfg.DB.Name == "" {
		return nil, fmt.Errorf("DB config incomplete: DB_USER/DB_HOST/DB_NAME must be set")
	}
	if cfg.SweepWorkers <= 0 {
		cfg.SweepWorkers = 1
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
