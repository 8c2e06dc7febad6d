// Package config loads meetcost settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/mmynk/meetcost/internal/mail"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Lookup table backends.
const (
	TablesCSV    = "csv"
	TablesSQLite = "sqlite"
)

var validate = validator.New()

// Config holds all runtime settings. Mail settings are only validated by
// the commands that talk to a mail server.
type Config struct {
	OrgDomain  string `env:"ORG_DOMAIN,required" validate:"required,fqdn"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	FetchLimit int    `env:"FETCH_LIMIT" envDefault:"10" validate:"min=1,max=500"`

	IMAP IMAPConfig `envPrefix:"IMAP_" validate:"-"`
	SMTP SMTPConfig `envPrefix:"SMTP_" validate:"-"`

	Store    StoreConfig
	Tables   TableConfig
	Feedback FeedbackConfig `envPrefix:"FEEDBACK_"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080" validate:"required"`
}

type IMAPConfig struct {
	Host    string `env:"HOST" validate:"required"`
	Port    int    `env:"PORT" envDefault:"993" validate:"min=1,max=65535"`
	User    string `env:"USER" validate:"required"`
	Pass    string `env:"PASS" validate:"required"`
	Mailbox string `env:"MAILBOX" envDefault:"INBOX" validate:"required"`
}

type SMTPConfig struct {
	Host string `env:"HOST" validate:"required"`
	Port int    `env:"PORT" envDefault:"465" validate:"min=1,max=65535"`
	User string `env:"USER" validate:"required"`
	Pass string `env:"PASS" validate:"required"`
	From string `env:"FROM" validate:"omitempty,email"`
}

type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER" envDefault:"sqlite" validate:"oneof=sqlite postgres"`
	DBPath      string `env:"DB_PATH" envDefault:"./data/meetcost.db" validate:"required_if=Driver sqlite"`
	DatabaseURL string `env:"DATABASE_URL" validate:"required_if=Driver postgres"`
}

// TableConfig selects where the role and wage lookup tables live.
type TableConfig struct {
	Backend  string `env:"TABLE_BACKEND" envDefault:"sqlite" validate:"oneof=csv sqlite"`
	RolePath string `env:"ROLE_TABLE_PATH" envDefault:"./data/roles.csv" validate:"required_if=Backend csv"`
	WagePath string `env:"WAGE_TABLE_PATH" envDefault:"./data/wages.csv" validate:"required_if=Backend csv"`
}

type FeedbackConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	// SigningKey signs feedback links. Empty sends raw participant tokens.
	SigningKey string        `env:"SIGNING_KEY" validate:"omitempty,min=16"`
	LinkTTL    time.Duration `env:"LINK_TTL" envDefault:"336h"`
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Parse()
}

// Parse reads the environment without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("Configuration loaded", "domain", cfg.OrgDomain, "store", cfg.Store.Driver, "tables", cfg.Tables.Backend)
	return cfg, nil
}

// Validate checks everything except the mail settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// MailSource validates the IMAP settings and returns the mailbox config.
func (c *Config) MailSource() (mail.IMAPConfig, error) {
	if err := validate.Struct(c.IMAP); err != nil {
		return mail.IMAPConfig{}, fmt.Errorf("invalid IMAP configuration: %w", err)
	}
	return mail.IMAPConfig{
		Host:       c.IMAP.Host,
		Port:       c.IMAP.Port,
		Username:   c.IMAP.User,
		Password:   c.IMAP.Pass,
		Mailbox:    c.IMAP.Mailbox,
		FetchLimit: c.FetchLimit,
		Timeout:    30 * time.Second,
	}, nil
}

// MailSink validates the SMTP settings and returns the outbound mail config.
func (c *Config) MailSink() (mail.SMTPConfig, error) {
	if err := validate.Struct(c.SMTP); err != nil {
		return mail.SMTPConfig{}, fmt.Errorf("invalid SMTP configuration: %w", err)
	}
	return mail.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.User,
		Password: c.SMTP.Pass,
		From:     c.SMTP.From,
	}, nil
}
