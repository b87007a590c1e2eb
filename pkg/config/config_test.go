package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars clears all SlotWise-related environment variables.
func clearEnvVars() {
	envVars := []string{
		"APP_ENV", "LOG_LEVEL", "SLOTWISE_ENCRYPTION_KEY",
		"DATABASE_URL", "REDIS_URL", "RABBITMQ_URL",
		"API_ADDR", "BOOKING_RATE_LIMIT", "BOOKING_RATE_WINDOW",
		"OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE", "OUTBOX_MAX_RETRIES",
		"OUTBOX_STATS_INTERVAL", "OUTBOX_RETENTION_DAYS", "OUTBOX_CLEANUP_INTERVAL",
		"OUTBOX_PROCESSOR_ENABLED", "WORKER_HEALTH_ADDR",
		"REMINDER_SCAN_INTERVAL", "REMINDER_LEAD_TIME",
		"OAUTH_PROVIDER", "OAUTH_CLIENT_ID", "OAUTH_CLIENT_SECRET",
		"OAUTH_AUTH_URL", "OAUTH_TOKEN_URL", "OAUTH_REDIRECT_URL", "OAUTH_SCOPES",
		"SERVICE_ACCOUNT_EMAIL", "SERVICE_ACCOUNT_KEY_PATH", "SERVICE_CALENDAR_ID",
		"CALDAV_BASE_URL", "CALDAV_USERNAME", "CALDAV_PASSWORD",
		"WEBHOOK_URL",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Application defaults
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "", cfg.EncryptionKey)

	// API defaults
	assert.Equal(t, "0.0.0.0:8080", cfg.APIAddr)
	assert.Equal(t, 10, cfg.BookingRateLimit)
	assert.Equal(t, time.Minute, cfg.BookingRateWindow)

	// Outbox defaults
	assert.Equal(t, 100*time.Millisecond, cfg.OutboxPollInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, 5, cfg.OutboxMaxRetries)
	assert.Equal(t, 30*time.Second, cfg.OutboxStatsInterval)
	assert.Equal(t, 14, cfg.OutboxRetentionDays)
	assert.Equal(t, 24*time.Hour, cfg.OutboxCleanupInterval)
	assert.True(t, cfg.OutboxProcessorEnabled)

	// Worker defaults
	assert.Equal(t, "0.0.0.0:8081", cfg.WorkerHealthAddr)
	assert.Equal(t, time.Minute, cfg.ReminderScanInterval)
	assert.Equal(t, time.Hour, cfg.ReminderLeadTime)

	// OAuth defaults
	assert.Equal(t, "google", cfg.OAuthProvider)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth", cfg.OAuthAuthURL)
	assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.OAuthTokenURL)
	assert.Equal(t, "https://www.googleapis.com/auth/calendar", cfg.OAuthScopes)

	// Service account defaults
	assert.Equal(t, "primary", cfg.ServiceCalendarID)
	assert.Equal(t, "", cfg.ServiceAccountEmail)

	// CalDAV disabled by default
	assert.Equal(t, "", cfg.CalDAVBaseURL)
}

func TestLoad_WithCustomEnvVars(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("APP_ENV", "production")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("SLOTWISE_ENCRYPTION_KEY", "my-secret-key")
	os.Setenv("API_ADDR", "127.0.0.1:9090")
	os.Setenv("BOOKING_RATE_LIMIT", "25")
	os.Setenv("BOOKING_RATE_WINDOW", "30s")
	os.Setenv("OUTBOX_BATCH_SIZE", "200")
	os.Setenv("OUTBOX_POLL_INTERVAL", "500ms")
	os.Setenv("OUTBOX_PROCESSOR_ENABLED", "false")
	os.Setenv("REMINDER_LEAD_TIME", "2h")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "my-secret-key", cfg.EncryptionKey)
	assert.Equal(t, "127.0.0.1:9090", cfg.APIAddr)
	assert.Equal(t, 25, cfg.BookingRateLimit)
	assert.Equal(t, 30*time.Second, cfg.BookingRateWindow)
	assert.Equal(t, 200, cfg.OutboxBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
	assert.False(t, cfg.OutboxProcessorEnabled)
	assert.Equal(t, 2*time.Hour, cfg.ReminderLeadTime)
}

func TestLoad_OAuthConfig(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("OAUTH_PROVIDER", "google")
	os.Setenv("OAUTH_CLIENT_ID", "client-id")
	os.Setenv("OAUTH_CLIENT_SECRET", "client-secret")
	os.Setenv("OAUTH_AUTH_URL", "https://auth.example.com")
	os.Setenv("OAUTH_TOKEN_URL", "https://token.example.com")
	os.Setenv("OAUTH_REDIRECT_URL", "http://localhost:8080/callback")
	os.Setenv("OAUTH_SCOPES", "https://www.googleapis.com/auth/calendar.events")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "google", cfg.OAuthProvider)
	assert.Equal(t, "client-id", cfg.OAuthClientID)
	assert.Equal(t, "client-secret", cfg.OAuthClientSecret)
	assert.Equal(t, "https://auth.example.com", cfg.OAuthAuthURL)
	assert.Equal(t, "https://token.example.com", cfg.OAuthTokenURL)
	assert.Equal(t, "http://localhost:8080/callback", cfg.OAuthRedirectURL)
	assert.Equal(t, "https://www.googleapis.com/auth/calendar.events", cfg.OAuthScopes)
}

func TestLoad_CalDAVConfig(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("CALDAV_BASE_URL", "https://caldav.fastmail.com/dav/calendars")
	os.Setenv("CALDAV_USERNAME", "scheduler@example.com")
	os.Setenv("CALDAV_PASSWORD", "app-password")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://caldav.fastmail.com/dav/calendars", cfg.CalDAVBaseURL)
	assert.Equal(t, "scheduler@example.com", cfg.CalDAVUsername)
	assert.Equal(t, "app-password", cfg.CalDAVPassword)
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		appEnv   string
		expected bool
	}{
		{"development", true},
		{"production", false},
		{"staging", false},
		{"test", false},
	}

	for _, tt := range tests {
		t.Run(tt.appEnv, func(t *testing.T) {
			cfg := &Config{AppEnv: tt.appEnv}
			assert.Equal(t, tt.expected, cfg.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		appEnv   string
		expected bool
	}{
		{"development", false},
		{"production", true},
		{"staging", false},
		{"test", false},
	}

	for _, tt := range tests {
		t.Run(tt.appEnv, func(t *testing.T) {
			cfg := &Config{AppEnv: tt.appEnv}
			assert.Equal(t, tt.expected, cfg.IsProduction())
		})
	}
}

func TestGetEnv(t *testing.T) {
	// Test default value
	value := getEnv("NON_EXISTENT_VAR", "default")
	assert.Equal(t, "default", value)

	// Test with set value
	os.Setenv("TEST_VAR", "custom")
	defer os.Unsetenv("TEST_VAR")
	value = getEnv("TEST_VAR", "default")
	assert.Equal(t, "custom", value)

	// Test with empty string (should use default)
	os.Setenv("TEST_EMPTY", "")
	defer os.Unsetenv("TEST_EMPTY")
	value = getEnv("TEST_EMPTY", "default")
	assert.Equal(t, "default", value)
}

func TestGetIntEnv(t *testing.T) {
	// Test default value
	value := getIntEnv("NON_EXISTENT_INT", 42)
	assert.Equal(t, 42, value)

	// Test with valid int
	os.Setenv("TEST_INT", "100")
	defer os.Unsetenv("TEST_INT")
	value = getIntEnv("TEST_INT", 42)
	assert.Equal(t, 100, value)

	// Test with invalid int (should use default)
	os.Setenv("TEST_INVALID_INT", "not-a-number")
	defer os.Unsetenv("TEST_INVALID_INT")
	value = getIntEnv("TEST_INVALID_INT", 42)
	assert.Equal(t, 42, value)
}

func TestGetDurationEnv(t *testing.T) {
	// Test default value
	value := getDurationEnv("NON_EXISTENT_DUR", 5*time.Second)
	assert.Equal(t, 5*time.Second, value)

	// Test with valid duration
	os.Setenv("TEST_DUR", "10m")
	defer os.Unsetenv("TEST_DUR")
	value = getDurationEnv("TEST_DUR", 5*time.Second)
	assert.Equal(t, 10*time.Minute, value)

	// Test with invalid duration (should use default)
	os.Setenv("TEST_INVALID_DUR", "not-a-duration")
	defer os.Unsetenv("TEST_INVALID_DUR")
	value = getDurationEnv("TEST_INVALID_DUR", 5*time.Second)
	assert.Equal(t, 5*time.Second, value)
}

func TestGetBoolEnv(t *testing.T) {
	// Test default value
	value := getBoolEnv("NON_EXISTENT_BOOL", true)
	assert.True(t, value)

	// Test with true values
	trueValues := []string{"true", "1", "True", "TRUE"}
	for _, tv := range trueValues {
		os.Setenv("TEST_BOOL", tv)
		value = getBoolEnv("TEST_BOOL", false)
		assert.True(t, value, "Expected true for value: %s", tv)
	}

	// Test with false values
	falseValues := []string{"false", "0", "False", "FALSE"}
	for _, fv := range falseValues {
		os.Setenv("TEST_BOOL", fv)
		value = getBoolEnv("TEST_BOOL", true)
		assert.False(t, value, "Expected false for value: %s", fv)
	}
	os.Unsetenv("TEST_BOOL")

	// Test with invalid bool (should use default)
	os.Setenv("TEST_INVALID_BOOL", "not-a-bool")
	defer os.Unsetenv("TEST_INVALID_BOOL")
	value = getBoolEnv("TEST_INVALID_BOOL", true)
	assert.True(t, value)
}
