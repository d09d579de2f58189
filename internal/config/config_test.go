package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every COLDRM_ env var that Load() reads.
var allConfigKeys = []string{
	"COLDRM_LISTEN_ADDR",
	"COLDRM_DB_PATH",
	"COLDRM_LOG_LEVEL",
	"COLDRM_ENCRYPTION_KEY",
	"COLDRM_CSRF_MODE",
	"COLDRM_CSRF_TOKEN",
	"COLDRM_ADMIN_USER_IDS",
	"COLDRM_SMTP_HOST",
	"COLDRM_SMTP_PORT",
	"COLDRM_SMTP_IMPLICIT_TLS",
	"COLDRM_SMTP_TIMEOUT",
	"COLDRM_RATE_LIMIT_MAX",
	"COLDRM_RATE_LIMIT_WINDOW",
	"COLDRM_EMAIL_QUOTA",
	"COLDRM_CONTACT_QUOTA",
	"COLDRM_ENROLLMENT_RECIPIENT",
	"COLDRM_FEEDBACK_GITHUB_TOKEN",
	"COLDRM_FEEDBACK_GITHUB_REPO",
}

// isolateConfigEnv saves and unsets all COLDRM_ env vars so tests don't
// inherit values from the host environment.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("COLDRM_ENCRYPTION_KEY", "secret")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "coldrm.db", cfg.DBPath)
	assert.Equal(t, CSRFModeStatic, cfg.CSRFMode)
	assert.Equal(t, "coldrm-csrf-token", cfg.CSRFToken)
	assert.Equal(t, "smtp.gmail.com:465", cfg.SMTPAddr())
	assert.True(t, cfg.SMTPImplicitTLS)
	assert.Equal(t, 30*time.Second, cfg.SMTPTimeout)
	assert.Equal(t, 5, cfg.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, 15, cfg.EmailQuota)
	assert.Equal(t, 20, cfg.ContactQuota)
	assert.Empty(t, cfg.AdminUserIDs)
	assert.False(t, cfg.HasFeedbackChannel())
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("COLDRM_ENCRYPTION_KEY", "secret")
	t.Setenv("COLDRM_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("COLDRM_DB_PATH", "/tmp/test.db")
	t.Setenv("COLDRM_CSRF_MODE", "session")
	t.Setenv("COLDRM_ADMIN_USER_IDS", " admin-1 , ,admin-2")
	t.Setenv("COLDRM_SMTP_HOST", "smtp.example.com")
	t.Setenv("COLDRM_SMTP_PORT", "587")
	t.Setenv("COLDRM_SMTP_IMPLICIT_TLS", "false")
	t.Setenv("COLDRM_RATE_LIMIT_WINDOW", "2m")
	t.Setenv("COLDRM_FEEDBACK_GITHUB_TOKEN", "ghp_test")
	t.Setenv("COLDRM_FEEDBACK_GITHUB_REPO", "coldrm/feedback")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, CSRFModeSession, cfg.CSRFMode)
	assert.Equal(t, []string{"admin-1", "admin-2"}, cfg.AdminUserIDs)
	assert.Equal(t, "smtp.example.com:587", cfg.SMTPAddr())
	assert.False(t, cfg.SMTPImplicitTLS)
	assert.Equal(t, 2*time.Minute, cfg.RateLimitWindow)
	assert.True(t, cfg.HasFeedbackChannel())
}

func TestLoad_MissingEncryptionKey(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad csrf mode", key: "COLDRM_CSRF_MODE", value: "cookie"},
		{name: "zero rate limit", key: "COLDRM_RATE_LIMIT_MAX", value: "0"},
		{name: "bad duration", key: "COLDRM_RATE_LIMIT_WINDOW", value: "soon"},
		{name: "bad port", key: "COLDRM_SMTP_PORT", value: "70000"},
		{name: "bad repo", key: "COLDRM_FEEDBACK_GITHUB_REPO", value: "no-slash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("COLDRM_ENCRYPTION_KEY", "secret")
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()

			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
