// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CSRF modes accepted by COLDRM_CSRF_MODE.
const (
	CSRFModeStatic  = "static"
	CSRFModeSession = "session"
)

// Config holds the application configuration loaded from COLDRM_ environment variables.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8080"`
	DBPath     string `env:"DB_PATH" envDefault:"coldrm.db"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	EncryptionKey string `env:"ENCRYPTION_KEY,required,notEmpty,unset"`

	CSRFMode     string   `env:"CSRF_MODE" envDefault:"static"`
	CSRFToken    string   `env:"CSRF_TOKEN" envDefault:"coldrm-csrf-token"`
	AdminUserIDs []string `env:"ADMIN_USER_IDS" envSeparator:","`

	SMTPHost        string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort        int           `env:"SMTP_PORT" envDefault:"465"`
	SMTPImplicitTLS bool          `env:"SMTP_IMPLICIT_TLS" envDefault:"true"`
	SMTPTimeout     time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"`

	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"5"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	EmailQuota      int           `env:"EMAIL_QUOTA" envDefault:"15"`
	ContactQuota    int           `env:"CONTACT_QUOTA" envDefault:"20"`

	EnrollmentRecipient string `env:"ENROLLMENT_RECIPIENT"`

	FeedbackGitHubToken string `env:"FEEDBACK_GITHUB_TOKEN,unset"`
	FeedbackGitHubRepo  string `env:"FEEDBACK_GITHUB_REPO"`
}

// SMTPAddr returns the host:port of the SMTP provider.
func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

// HasFeedbackChannel returns true when both the GitHub token and target
// repository for filing feedback issues are configured.
func (c *Config) HasFeedbackChannel() bool {
	return c.FeedbackGitHubToken != "" && c.FeedbackGitHubRepo != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// COLDRM_ENCRYPTION_KEY is required; everything else has a default or is optional.
func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "COLDRM_"}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	admins := make([]string, 0, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins = append(admins, id)
		}
	}
	cfg.AdminUserIDs = admins

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.CSRFMode {
	case CSRFModeStatic:
		if c.CSRFToken == "" {
			return fmt.Errorf("COLDRM_CSRF_TOKEN must not be empty in %s mode", CSRFModeStatic)
		}
	case CSRFModeSession:
	default:
		return fmt.Errorf("COLDRM_CSRF_MODE has invalid value %q: want %q or %q", c.CSRFMode, CSRFModeStatic, CSRFModeSession)
	}

	if c.RateLimitMax <= 0 {
		return fmt.Errorf("COLDRM_RATE_LIMIT_MAX must be positive, got %d", c.RateLimitMax)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("COLDRM_RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("COLDRM_SMTP_PORT out of range: %d", c.SMTPPort)
	}
	if c.FeedbackGitHubRepo != "" {
		owner, name, ok := strings.Cut(c.FeedbackGitHubRepo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("COLDRM_FEEDBACK_GITHUB_REPO has invalid value %q: expected owner/repo", c.FeedbackGitHubRepo)
		}
	}
	return nil
}
