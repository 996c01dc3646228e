package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Admin    AdminConfig
	TMetric  TMetricConfig
	Browser  BrowserConfig
	Report   ReportConfig
	Slack    SlackConfig
	Cron     CronConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Enabled reports whether run history should be persisted.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port              int
	Env               string
	LogLevel          string
	FrontendURL       string
	APISecret         string
	DebugArtifactsDir string
}

// AdminConfig is the single dashboard account.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

type TMetricConfig struct {
	Email        string
	Password     string
	BaseURL      string
	IdentityHost string
}

type BrowserConfig struct {
	Headless    bool
	NoSandbox   bool
	ExecPath    string
	UserAgent   string
	Locale      string
	// Timezone is the IANA zone the browser runs in; empty keeps the host's zone.
	Timezone    string
	Location    *time.Location
	StepTimeout time.Duration
	SettleDelay time.Duration
}

type ReportConfig struct {
	AbsenceWorkdays   int
	ContextDays       int
	TargetHoursPerDay float64
}

type SlackConfig struct {
	WebhookURL string
}

type CronConfig struct {
	Enabled   bool
	CheckHour int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}
	var err error

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hours_watch"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:              appPort,
		Env:               getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		FrontendURL:       getEnv("APP_FRONTEND_URL", "http://localhost:3000"),
		APISecret:         getEnv("API_SECRET", ""),
		DebugArtifactsDir: getEnv("DEBUG_ARTIFACTS_DIR", ""),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "12h"),
	}

	config.Admin = AdminConfig{
		Email:        getEnv("ADMIN_EMAIL", ""),
		PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
	}

	// Time tracker
	config.TMetric = TMetricConfig{
		Email:        getEnv("TMETRIC_EMAIL", ""),
		Password:     getEnv("TMETRIC_PASSWORD", ""),
		BaseURL:      getEnv("TMETRIC_BASE_URL", "https://app.tmetric.com"),
		IdentityHost: getEnv("TMETRIC_IDENTITY_HOST", "id.tmetric.com"),
	}

	// Browser automation
	headless, err := strconv.ParseBool(getEnv("BROWSER_HEADLESS", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSER_HEADLESS: %w", err)
	}
	noSandbox, err := strconv.ParseBool(getEnv("BROWSER_NO_SANDBOX", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSER_NO_SANDBOX: %w", err)
	}
	stepTimeout, err := time.ParseDuration(getEnv("BROWSER_STEP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSER_STEP_TIMEOUT: %w", err)
	}
	settleDelay, err := time.ParseDuration(getEnv("BROWSER_SETTLE_DELAY", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSER_SETTLE_DELAY: %w", err)
	}
	timezone := getEnv("BROWSER_TIMEZONE", "")
	location := time.Local
	if timezone != "" {
		location, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid BROWSER_TIMEZONE: %w", err)
		}
	}

	config.Browser = BrowserConfig{
		Headless:    headless,
		NoSandbox:   noSandbox,
		ExecPath:    getEnv("BROWSER_EXEC_PATH", ""),
		UserAgent:   getEnv("BROWSER_USER_AGENT", ""),
		Locale:      getEnv("BROWSER_LOCALE", "en-US"),
		Timezone:    timezone,
		Location:    location,
		StepTimeout: stepTimeout,
		SettleDelay: settleDelay,
	}

	// Report windows
	absenceWorkdays, err := strconv.Atoi(getEnv("REPORT_ABSENCE_WORKDAYS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_ABSENCE_WORKDAYS: %w", err)
	}
	contextDays, err := strconv.Atoi(getEnv("REPORT_CONTEXT_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_CONTEXT_DAYS: %w", err)
	}
	target, err := strconv.ParseFloat(getEnv("REPORT_TARGET_HOURS_PER_DAY", "8"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TARGET_HOURS_PER_DAY: %w", err)
	}

	config.Report = ReportConfig{
		AbsenceWorkdays:   absenceWorkdays,
		ContextDays:       contextDays,
		TargetHoursPerDay: target,
	}

	config.Slack = SlackConfig{
		WebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
	}

	// Scheduler
	cronEnabled, err := strconv.ParseBool(getEnv("CRON_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_ENABLED: %w", err)
	}
	checkHour, err := strconv.Atoi(getEnv("CRON_CHECK_HOUR", "12"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_CHECK_HOUR: %w", err)
	}

	config.Cron = CronConfig{
		Enabled:   cronEnabled,
		CheckHour: checkHour,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks values every entry point depends on. Tracker credentials are checked
// per run so their absence surfaces as a typed run failure.
func (c *Config) Validate() error {
	if c.Report.AbsenceWorkdays < 1 {
		return fmt.Errorf("REPORT_ABSENCE_WORKDAYS must be at least 1")
	}
	if c.Report.ContextDays < 1 {
		return fmt.Errorf("REPORT_CONTEXT_DAYS must be at least 1")
	}
	if c.Report.TargetHoursPerDay < 0 {
		return fmt.Errorf("REPORT_TARGET_HOURS_PER_DAY must not be negative")
	}
	if c.Cron.CheckHour < 0 || c.Cron.CheckHour > 23 {
		return fmt.Errorf("CRON_CHECK_HOUR must be between 0 and 23")
	}
	if c.Database.Enabled() && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when DB_HOST is set")
	}
	return nil
}

// ValidateServer checks what the HTTP server needs on top of Validate.
func (c *Config) ValidateServer() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if c.Admin.Email == "" || c.Admin.PasswordHash == "" {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD_HASH are required")
	}
	if c.App.APISecret == "" {
		return fmt.Errorf("API_SECRET is required")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
