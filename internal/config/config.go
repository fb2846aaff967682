package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Staging modes.
const (
	StagingMultipart = "multipart"
	StagingLocal     = "local"
	StagingS3        = "s3"
)

// Config holds all application configuration.
type Config struct {
	App struct {
		Env             string `yaml:"env"`
		LogLevel        string `yaml:"log_level"`
		IntegrationName string `yaml:"integration_name"`
		HTTPAddr        string `yaml:"http_addr"`
	} `yaml:"app"`
	Vendor struct {
		BaseURL   string        `yaml:"base_url"`
		AppID     string        `yaml:"app_id"`
		SecretKey string        `yaml:"secret_key"`
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	} `yaml:"vendor"`
	Pricing struct {
		InventoryChannel string `yaml:"inventory_channel"`
	} `yaml:"pricing"`
	Platform struct {
		BaseURL     string        `yaml:"base_url"`
		StoreKey    string        `yaml:"store_key"`
		BearerToken string        `yaml:"bearer_token"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"platform"`
	Staging struct {
		Mode     string        `yaml:"mode"`
		FileName string        `yaml:"file_name"`
		LocalDir string        `yaml:"local_dir"`
		Timeout  time.Duration `yaml:"timeout"`
		S3       struct {
			Bucket        string        `yaml:"bucket"`
			Region        string        `yaml:"region"`
			Prefix        string        `yaml:"prefix"`
			PresignExpiry time.Duration `yaml:"presign_expiry"`
		} `yaml:"s3"`
	} `yaml:"staging"`
	Handoff struct {
		DirectPayloadFallback bool `yaml:"direct_payload_fallback"`
	} `yaml:"handoff"`
	SMTP struct {
		Host     string   `yaml:"host"`
		Port     int      `yaml:"port"`
		Username string   `yaml:"username"`
		Password string   `yaml:"password"`
		UseSSL   bool     `yaml:"use_ssl"`
		From     string   `yaml:"from"`
		To       []string `yaml:"to"`
		Cc       []string `yaml:"cc"`
		Bcc      []string `yaml:"bcc"`
	} `yaml:"smtp"`
	Schedule struct {
		Disabled bool          `yaml:"disabled"`
		Cron     string        `yaml:"cron"`
		Every    time.Duration `yaml:"every"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// Load reads config from a YAML file and a .env file next to the process,
// then applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			*dst = SplitList(v)
		}
	}

	str("APP_ENV", &c.App.Env)
	str("LOG_LEVEL", &c.App.LogLevel)
	str("INTEGRATION_NAME", &c.App.IntegrationName)
	str("HTTP_ADDR", &c.App.HTTPAddr)

	str("VENDOR_BASE_URL", &c.Vendor.BaseURL)
	str("VENDOR_APP_ID", &c.Vendor.AppID)
	str("VENDOR_API_KEY", &c.Vendor.SecretKey)

	str("INVENTORY_CHANNEL", &c.Pricing.InventoryChannel)

	str("PLATFORM_URL", &c.Platform.BaseURL)
	str("PLATFORM_STORE_KEY", &c.Platform.StoreKey)
	str("PLATFORM_BEARER_TOKEN", &c.Platform.BearerToken)

	str("STAGING_MODE", &c.Staging.Mode)
	str("STAGING_LOCAL_DIR", &c.Staging.LocalDir)
	str("S3_BUCKET_NAME", &c.Staging.S3.Bucket)
	str("AWS_REGION", &c.Staging.S3.Region)

	str("SMTP_HOST", &c.SMTP.Host)
	str("SMTP_USERNAME", &c.SMTP.Username)
	str("SMTP_PASSWORD", &c.SMTP.Password)
	str("NOTIFY_EMAIL_FROM", &c.SMTP.From)
	list("NOTIFY_EMAIL_TO", &c.SMTP.To)
	list("NOTIFY_EMAIL_CC", &c.SMTP.Cc)
	list("NOTIFY_EMAIL_BCC", &c.SMTP.Bcc)
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.SMTP.Port = port
	}
	if v := os.Getenv("SMTP_USE_SSL"); v != "" {
		c.SMTP.UseSSL = parseBool(v)
	}
	if v := os.Getenv("HANDOFF_DIRECT_PAYLOAD_FALLBACK"); v != "" {
		c.Handoff.DirectPayloadFallback = parseBool(v)
	}

	str("SCHEDULE_CRON", &c.Schedule.Cron)
	if v := os.Getenv("SCHEDULE_EVERY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCHEDULE_EVERY: %w", err)
		}
		c.Schedule.Every = d
	}
	if v := os.Getenv("DISABLE_INTERNAL_SCHEDULER"); v != "" {
		c.Schedule.Disabled = parseBool(v)
	}

	str("SQLITE_PATH", &c.Database.SQLitePath)
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "production"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.IntegrationName == "" {
		c.App.IntegrationName = "Integration"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":8080"
	}
	if c.Vendor.Timeout == 0 {
		c.Vendor.Timeout = 120 * time.Second
	}
	if c.Pricing.InventoryChannel == "" {
		c.Pricing.InventoryChannel = "Online Store"
	}
	if c.Platform.Timeout == 0 {
		c.Platform.Timeout = 60 * time.Second
	}
	if c.Staging.Mode == "" {
		c.Staging.Mode = StagingMultipart
	}
	if c.Staging.FileName == "" {
		c.Staging.FileName = "priced_catalog.json"
	}
	if c.Staging.LocalDir == "" {
		c.Staging.LocalDir = "data/staging"
	}
	if c.Staging.Timeout == 0 {
		c.Staging.Timeout = 60 * time.Second
	}
	if c.Staging.S3.Prefix == "" {
		c.Staging.S3.Prefix = "pricing_data"
	}
	if c.Staging.S3.PresignExpiry == 0 {
		c.Staging.S3.PresignExpiry = time.Hour
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.SMTP.From == "" {
		c.SMTP.From = "noreply@localhost"
	}
	// Interval only applies when no cron expression is set.
	if c.Schedule.Cron == "" && c.Schedule.Every == 0 {
		c.Schedule.Every = 60 * time.Minute
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Vendor.BaseURL == "" {
		return fmt.Errorf("vendor.base_url is required")
	}
	if c.Vendor.AppID == "" {
		return fmt.Errorf("vendor.app_id is required")
	}
	if c.Vendor.SecretKey == "" {
		return fmt.Errorf("vendor.secret_key is required")
	}
	if c.Vendor.RateLimit < 0 {
		return fmt.Errorf("vendor.rate_limit must not be negative")
	}
	if c.Platform.BaseURL == "" {
		return fmt.Errorf("platform.base_url is required")
	}
	if c.Platform.StoreKey == "" {
		return fmt.Errorf("platform.store_key is required")
	}
	if c.Platform.BearerToken == "" {
		return fmt.Errorf("platform.bearer_token is required")
	}
	switch c.Staging.Mode {
	case StagingMultipart, StagingLocal:
	case StagingS3:
		if c.Staging.S3.Bucket == "" {
			return fmt.Errorf("staging.s3.bucket is required in s3 mode")
		}
	default:
		return fmt.Errorf("staging.mode %q is not one of multipart, local, s3", c.Staging.Mode)
	}
	if c.SMTP.Port <= 0 {
		return fmt.Errorf("smtp.port must be positive")
	}
	if c.Schedule.Every < 0 {
		return fmt.Errorf("schedule.every must not be negative")
	}
	return nil
}

// SMTPEnabled reports whether an SMTP server is configured. Recipients may
// still be missing; the notifier rejects such sends.
func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != ""
}

// SplitList splits a comma or semicolon separated list, dropping blanks.
func SplitList(raw string) []string {
	parts := strings.Split(strings.ReplaceAll(raw, ";", ","), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
