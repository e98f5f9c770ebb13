// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host    string
	Port    string
	Env     string // "development", "production", "testing"
	BaseURL string // Absolute site URL used in mailed links and OAuth callbacks
	Secret  string // Key for signed cookies (OAuth state, flash messages)

	// Reverse proxies whose X-Forwarded-For is believed by the rate limiter
	TrustedProxies []netip.Prefix

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// API tokens
	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string
	JWTExpiration time.Duration

	// Phone number encryption (AES-256-CBC)
	EncryptionKey string // 32 bytes
	EncryptionIV  string // 16 bytes

	// Outgoing mail
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailSaveDir  string // Failed mail and texted codes are written here

	// Uploads: local directory, or S3 when S3Bucket is set
	UploadDir   string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string

	// External login providers; a provider is enabled when both values are set
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string

	// Initial administrator created by the seeder
	AdminEmail    string
	AdminPassword string
}

const (
	devSecret    = "dev-secret-change-me"
	devJWTSecret = "dev-jwt-secret-change-me-0123456789abcdef"
	devKey       = "0123456789abcdef0123456789abcdef"
	devIV        = "abcdef9876543210"
)

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. A .env file in the working directory
// is loaded first when present; it never overrides variables already set.
// Returns an error if critical values are missing in production mode.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Host:    envOrDefault("APP_HOST", "0.0.0.0"),
		Port:    envOrDefault("APP_PORT", "8080"),
		Env:     envOrDefault("APP_ENV", "development"),
		BaseURL: strings.TrimRight(envOrDefault("APP_BASE_URL", "http://localhost:8080"), "/"),
		Secret:  envOrDefault("APP_SECRET", devSecret),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "webmvc"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "webmvc"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		JWTSecret:   envOrDefault("JWT_SECRET", devJWTSecret),
		JWTIssuer:   envOrDefault("JWT_ISSUER", "webmvc"),
		JWTAudience: envOrDefault("JWT_AUDIENCE", "webmvc-api"),

		EncryptionKey: envOrDefault("ENCRYPTION_KEY", devKey),
		EncryptionIV:  envOrDefault("ENCRYPTION_IV", devIV),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     envOrDefault("MAIL_FROM", "no-reply@webmvc.local"),
		MailSaveDir:  envOrDefault("MAIL_SAVE_DIR", "mails"),

		UploadDir:   envOrDefault("UPLOAD_DIR", "uploads"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		FacebookClientID:     os.Getenv("FACEBOOK_CLIENT_ID"),
		FacebookClientSecret: os.Getenv("FACEBOOK_CLIENT_SECRET"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	hours, err := strconv.Atoi(envOrDefault("JWT_EXPIRATION_HOURS", "24"))
	if err != nil || hours <= 0 {
		return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be a positive integer")
	}
	cfg.JWTExpiration = time.Duration(hours) * time.Hour

	cfg.DBMaxConns, err = strconv.Atoi(envOrDefault("POSTGRES_MAX_CONNS", "25"))
	if err != nil || cfg.DBMaxConns <= 0 {
		return nil, fmt.Errorf("POSTGRES_MAX_CONNS must be a positive integer")
	}

	cfg.TrustedProxies, err = parsePrefixes(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	cfg.ValkeyDB, err = strconv.Atoi(envOrDefault("VALKEY_DB", "0"))
	if err != nil || cfg.ValkeyDB < 0 {
		return nil, fmt.Errorf("VALKEY_DB must be a non-negative integer")
	}

	cfg.SMTPPort, err = strconv.Atoi(envOrDefault("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT must be an integer")
	}

	if len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 32 bytes, got %d", len(cfg.EncryptionKey))
	}
	if len(cfg.EncryptionIV) != 16 {
		return nil, fmt.Errorf("ENCRYPTION_IV must be 16 bytes, got %d", len(cfg.EncryptionIV))
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.Secret == devSecret {
			return nil, fmt.Errorf("APP_SECRET must be set in production")
		}
		if cfg.JWTSecret == devJWTSecret || len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be set to at least 32 characters in production")
		}
		if cfg.EncryptionKey == devKey || cfg.EncryptionIV == devIV {
			return nil, fmt.Errorf("ENCRYPTION_KEY and ENCRYPTION_IV must be set in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// MailEnabled returns true when an SMTP host is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// S3Enabled returns true when uploads go to object storage.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// parsePrefixes reads a comma-separated list of CIDR ranges or bare
// addresses. A bare address is a single-host range.
func parsePrefixes(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
