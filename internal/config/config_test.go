package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test (t.Chdir needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"DB_HOST", "REPORT_ABSENCE_WORKDAYS", "BROWSER_STEP_TIMEOUT", "BROWSER_TIMEZONE", "TMETRIC_BASE_URL", "CRON_CHECK_HOUR"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Report.AbsenceWorkdays)
	assert.Equal(t, 30, cfg.Report.ContextDays)
	assert.Equal(t, 8.0, cfg.Report.TargetHoursPerDay)
	assert.Equal(t, 30*time.Second, cfg.Browser.StepTimeout)
	assert.Equal(t, "https://app.tmetric.com", cfg.TMetric.BaseURL)
	assert.Equal(t, 12, cfg.Cron.CheckHour)
	assert.False(t, cfg.Database.Enabled())
	assert.Empty(t, cfg.Browser.Timezone)
	assert.Equal(t, time.Local, cfg.Browser.Location)
}

func TestLoad_BrowserTimezone(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("BROWSER_TIMEZONE", "Europe/Madrid")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", cfg.Browser.Timezone)
	assert.Equal(t, "Europe/Madrid", cfg.Browser.Location.String())

	t.Setenv("BROWSER_TIMEZONE", "Mars/Olympus")
	_, err = config.Load()
	assert.ErrorContains(t, err, "BROWSER_TIMEZONE")
}

func TestLoad_InvalidValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("BROWSER_STEP_TIMEOUT", "soon")
	_, err := config.Load()
	assert.ErrorContains(t, err, "BROWSER_STEP_TIMEOUT")

	t.Setenv("BROWSER_STEP_TIMEOUT", "")
	t.Setenv("CRON_CHECK_HOUR", "25")
	_, err = config.Load()
	assert.ErrorContains(t, err, "CRON_CHECK_HOUR")
}

func TestValidateServer(t *testing.T) {
	cfg := &config.Config{
		JWT:   config.JWTConfig{Secret: "s", AccessExpiration: "1h"},
		Admin: config.AdminConfig{Email: "admin@example.com", PasswordHash: "$2a$10$hash"},
		App:   config.AppConfig{APISecret: "cron"},
	}
	assert.NoError(t, cfg.ValidateServer())

	cfg.App.APISecret = ""
	assert.ErrorContains(t, cfg.ValidateServer(), "API_SECRET")
}
