// Package config provides configuration management for the Logging Analytics MCP server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tareqmamari/logan-mcp-server/internal/timerange"
)

// Supported values for AuthType.
const (
	AuthOCISignature = "oci_signature"
	AuthBearer       = "bearer"
	AuthBasic        = "basic"
	AuthNone         = "none"
)

// Config holds all configuration for the MCP server
type Config struct {
	// OCI Logging Analytics target
	ServiceURL             string `json:"service_url" yaml:"service_url"`
	Region                 string `json:"region" yaml:"region"`
	Namespace              string `json:"namespace" yaml:"namespace"`
	CompartmentID          string `json:"compartment_id" yaml:"compartment_id"`
	CompartmentIDInSubtree bool   `json:"compartment_id_in_subtree" yaml:"compartment_id_in_subtree"`

	// Authentication
	AuthType             string `json:"auth_type" yaml:"auth_type"`
	TenancyID            string `json:"tenancy_id,omitempty" yaml:"tenancy_id"`
	UserID               string `json:"user_id,omitempty" yaml:"user_id"`
	Fingerprint          string `json:"fingerprint,omitempty" yaml:"fingerprint"`
	PrivateKeyPath       string `json:"private_key_path,omitempty" yaml:"private_key_path"`
	PrivateKeyPassphrase string `json:"private_key_passphrase,omitempty" yaml:"-"` // env only
	BearerToken          string `json:"bearer_token,omitempty" yaml:"-"`           // env only
	Username             string `json:"username,omitempty" yaml:"username"`
	Password             string `json:"password,omitempty" yaml:"-"` // env only

	// HTTP Client Configuration
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	QueryTimeout    time.Duration `json:"query_timeout" yaml:"query_timeout"`
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`
	RetryWaitMin    time.Duration `json:"retry_wait_min" yaml:"retry_wait_min"`
	RetryWaitMax    time.Duration `json:"retry_wait_max" yaml:"retry_wait_max"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `json:"idle_conn_timeout" yaml:"idle_conn_timeout"`

	// Rate Limiting
	RateLimit       int  `json:"rate_limit" yaml:"rate_limit"` // requests per second
	RateLimitBurst  int  `json:"rate_limit_burst" yaml:"rate_limit_burst"`
	EnableRateLimit bool `json:"enable_rate_limit" yaml:"enable_rate_limit"`

	// Circuit breaker
	BreakerMaxFailures uint32        `json:"breaker_max_failures" yaml:"breaker_max_failures"`
	BreakerTimeout     time.Duration `json:"breaker_timeout" yaml:"breaker_timeout"`

	// Query defaults
	DefaultTimeRange string `json:"default_time_range" yaml:"default_time_range"`
	DefaultMaxCount  int    `json:"default_max_count" yaml:"default_max_count"`
	MaxCountLimit    int    `json:"max_count_limit" yaml:"max_count_limit"`

	// Security
	TLSVerify bool `json:"tls_verify" yaml:"tls_verify"`

	// Observability
	EnableTracing   bool          `json:"enable_tracing" yaml:"enable_tracing"`
	EnableAuditLog  bool          `json:"enable_audit_log" yaml:"enable_audit_log"`
	HealthPort      int           `json:"health_port" yaml:"health_port"` // 0 disables the health server
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Logging
	LogLevel    string `json:"log_level" yaml:"log_level"`
	LogFormat   string `json:"log_format" yaml:"log_format"` // json or console
	Environment string `json:"environment" yaml:"environment"`
}

// Default returns the configuration used before any file or environment override.
func Default() *Config {
	return &Config{
		CompartmentIDInSubtree: true,
		AuthType:               AuthOCISignature,
		Timeout:                30 * time.Second,
		QueryTimeout:           60 * time.Second,
		MaxRetries:             3,
		RetryWaitMin:           1 * time.Second,
		RetryWaitMax:           30 * time.Second,
		MaxIdleConns:           10,
		IdleConnTimeout:        90 * time.Second,
		RateLimit:              10,
		RateLimitBurst:         5,
		EnableRateLimit:        true,
		BreakerMaxFailures:     5,
		BreakerTimeout:         30 * time.Second,
		DefaultTimeRange:       timerange.DefaultToken,
		DefaultMaxCount:        1000,
		MaxCountLimit:          10000,
		TLSVerify:              true,
		EnableTracing:          false,
		EnableAuditLog:         true,
		ShutdownTimeout:        10 * time.Second,
		LogLevel:               "info",
		LogFormat:              "json",
		Environment:            "development",
	}
}

// Load configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := Default()

	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Environment variables take precedence over the file.
	loadFromEnv(cfg)

	// The tenancy root is the default compartment.
	if cfg.CompartmentID == "" {
		cfg.CompartmentID = cfg.TenancyID
	}
	if cfg.ServiceURL == "" && cfg.Region != "" {
		cfg.ServiceURL = ServiceURLForRegion(cfg.Region)
	}
	cfg.ServiceURL = strings.TrimRight(cfg.ServiceURL, "/")

	return cfg, nil
}

// ServiceURLForRegion returns the public Logging Analytics endpoint of region.
func ServiceURLForRegion(region string) string {
	return fmt.Sprintf("https://loganalytics.%s.oci.oraclecloud.com", region)
}

func loadFromFile(cfg *Config, path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid file path: path traversal detected")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path is validated above
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func loadFromEnv(cfg *Config) {
	envString(&cfg.ServiceURL, "LOGAN_SERVICE_URL")
	envString(&cfg.Region, "LOGAN_REGION", "OCI_REGION")
	envString(&cfg.Namespace, "LOGAN_NAMESPACE")
	envString(&cfg.TenancyID, "LOGAN_TENANCY_ID", "OCI_TENANCY")
	envString(&cfg.CompartmentID, "LOGAN_COMPARTMENT_ID", "OCI_COMPARTMENT_ID")
	envBool(&cfg.CompartmentIDInSubtree, "LOGAN_COMPARTMENT_IN_SUBTREE")

	envString(&cfg.AuthType, "LOGAN_AUTH_TYPE")
	envString(&cfg.UserID, "LOGAN_USER_ID", "OCI_USER")
	envString(&cfg.Fingerprint, "LOGAN_FINGERPRINT", "OCI_FINGERPRINT")
	envString(&cfg.PrivateKeyPath, "LOGAN_PRIVATE_KEY_PATH", "OCI_KEY_FILE")
	envString(&cfg.PrivateKeyPassphrase, "LOGAN_PRIVATE_KEY_PASSPHRASE", "OCI_PASS_PHRASE")
	envString(&cfg.BearerToken, "LOGAN_BEARER_TOKEN")
	envString(&cfg.Username, "LOGAN_USERNAME")
	envString(&cfg.Password, "LOGAN_PASSWORD")

	envDuration(&cfg.Timeout, "LOGAN_TIMEOUT")
	envDuration(&cfg.QueryTimeout, "LOGAN_QUERY_TIMEOUT")
	envInt(&cfg.MaxRetries, "LOGAN_MAX_RETRIES")
	envDuration(&cfg.RetryWaitMin, "LOGAN_RETRY_WAIT_MIN")
	envDuration(&cfg.RetryWaitMax, "LOGAN_RETRY_WAIT_MAX")
	envInt(&cfg.RateLimit, "LOGAN_RATE_LIMIT")
	envInt(&cfg.RateLimitBurst, "LOGAN_RATE_LIMIT_BURST")
	envBool(&cfg.EnableRateLimit, "LOGAN_ENABLE_RATE_LIMIT")
	if v := os.Getenv("LOGAN_BREAKER_MAX_FAILURES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.BreakerMaxFailures = uint32(n)
		}
	}
	envDuration(&cfg.BreakerTimeout, "LOGAN_BREAKER_TIMEOUT")

	envString(&cfg.DefaultTimeRange, "LOGAN_DEFAULT_TIME_RANGE")
	envInt(&cfg.DefaultMaxCount, "LOGAN_DEFAULT_MAX_COUNT")
	envInt(&cfg.MaxCountLimit, "LOGAN_MAX_COUNT_LIMIT")

	envBool(&cfg.TLSVerify, "LOGAN_TLS_VERIFY")
	envBool(&cfg.EnableTracing, "LOGAN_ENABLE_TRACING")
	envBool(&cfg.EnableAuditLog, "LOGAN_ENABLE_AUDIT_LOG")
	envInt(&cfg.HealthPort, "LOGAN_HEALTH_PORT")
	envDuration(&cfg.ShutdownTimeout, "LOGAN_SHUTDOWN_TIMEOUT")

	envString(&cfg.LogLevel, "LOGAN_LOG_LEVEL", "LOG_LEVEL")
	envString(&cfg.LogFormat, "LOG_FORMAT")
	envString(&cfg.Environment, "ENVIRONMENT")
}

// envString sets *dst from the first non-empty variable in names.
func envString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

func envInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func envDuration(dst *time.Duration, name string) {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServiceURL == "" {
		return errors.New("LOGAN_SERVICE_URL or LOGAN_REGION is required")
	}
	if c.Namespace == "" {
		return errors.New("LOGAN_NAMESPACE is required")
	}
	if c.CompartmentID == "" {
		return errors.New("LOGAN_COMPARTMENT_ID is required")
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must be non-negative")
	}
	if c.RateLimit <= 0 && c.EnableRateLimit {
		return errors.New("rate_limit must be positive when rate limiting is enabled")
	}
	if c.DefaultMaxCount <= 0 || c.DefaultMaxCount > c.MaxCountLimit {
		return fmt.Errorf("default_max_count must be in [1, %d]", c.MaxCountLimit)
	}
	if !timerange.IsKnown(c.DefaultTimeRange) {
		return fmt.Errorf("unknown default time range: %s", c.DefaultTimeRange)
	}
	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return fmt.Errorf("invalid health port: %d", c.HealthPort)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

func (c *Config) validateAuth() error {
	switch c.AuthType {
	case AuthOCISignature:
		if c.TenancyID == "" || c.UserID == "" || c.Fingerprint == "" || c.PrivateKeyPath == "" {
			return errors.New("oci_signature auth requires tenancy, user, fingerprint and private key path")
		}
	case AuthBearer:
		if c.BearerToken == "" {
			return errors.New("LOGAN_BEARER_TOKEN is required for bearer auth")
		}
	case AuthBasic:
		if c.Username == "" || c.Password == "" {
			return errors.New("LOGAN_USERNAME and LOGAN_PASSWORD are required for basic auth")
		}
	case AuthNone:
	default:
		return fmt.Errorf("unknown auth type: %s", c.AuthType)
	}
	return nil
}

// Redact returns a copy of the config with sensitive data removed
func (c *Config) Redact() *Config {
	redacted := *c
	redacted.BearerToken = MaskSecret(c.BearerToken)
	redacted.Password = MaskSecret(c.Password)
	redacted.PrivateKeyPassphrase = MaskSecret(c.PrivateKeyPassphrase)
	return &redacted
}

// MaskSecret returns a masked version of a secret for safe logging
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
