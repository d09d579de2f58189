package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// CredentialCipher encrypts and decrypts stored mail-account credentials.
type CredentialCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
}

// DispatchRequest is one outreach email composed in the UI. Field validation
// happens in the driving adapter.
type DispatchRequest struct {
	UserID      string
	To          string
	Subject     string
	Content     string
	ContactName string
	ContactID   string
	FromName    string
	FromCompany string
	FromEmail   string
}

// DispatchService sends outreach email on behalf of a user with the user's
// own mail-account credential.
type DispatchService struct {
	limiter  *RateLimiter
	quotas   *QuotaPolicy
	profiles driven.ProfileStore
	logs     driven.SendLogStore
	cipher   CredentialCipher
	mailer   driven.Mailer
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatchService creates a new DispatchService with the required dependencies.
func NewDispatchService(
	limiter *RateLimiter,
	quotas *QuotaPolicy,
	profiles driven.ProfileStore,
	logs driven.SendLogStore,
	cipher CredentialCipher,
	mailer driven.Mailer,
	logger *slog.Logger,
) *DispatchService {
	return &DispatchService{
		limiter:  limiter,
		quotas:   quotas,
		profiles: profiles,
		logs:     logs,
		cipher:   cipher,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

// Send checks the rate limit and quota, decrypts the user's credential and
// delivers one message in a single SMTP transaction. The sender is BCC'd.
// It returns the Message-ID of the accepted message.
//
// A send log write that fails after the relay accepted the message is logged
// and otherwise ignored; the message has already left the system.
func (s *DispatchService) Send(ctx context.Context, req DispatchRequest) (string, error) {
	ok, err := s.limiter.CanSend(ctx, req.UserID, s.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		emailsFailedCounter.WithLabelValues("rate_limited").Inc()
		return "", ErrRateLimited
	}

	if err := s.quotas.CheckEmail(ctx, req.UserID); err != nil {
		if errors.Is(err, ErrEmailQuotaReached) {
			emailsFailedCounter.WithLabelValues("quota").Inc()
		}
		return "", err
	}

	password, err := s.loadPassword(ctx, req.UserID)
	if err != nil {
		return "", err
	}

	msg := driven.OutgoingMessage{
		FromName:    senderDisplayName(req.FromName, req.FromCompany),
		FromAddress: req.FromEmail,
		To:          req.To,
		Bcc:         []string{req.FromEmail},
		Subject:     req.Subject,
		HTML:        renderOutreachEmail(req.Content, req.FromName, req.FromCompany, req.FromEmail),
	}

	messageID, err := s.mailer.Send(ctx, driven.Credentials{Username: req.FromEmail, Password: password}, msg)
	if err != nil {
		s.logSendFailure(req, err)
		return "", err
	}
	emailsSentCounter.WithLabelValues("outreach").Inc()

	entry := model.SendLogEntry{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ContactID: req.ContactID,
		Recipient: req.To,
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    model.SendStatusSent,
		MessageID: messageID,
		SentAt:    s.now(),
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		sendLogWriteFailures.Inc()
		s.logger.Error("send log write failed after delivery",
			"user_id", req.UserID,
			"message_id", messageID,
			"error", err,
		)
	}

	s.logger.Info("outreach email sent", "user_id", req.UserID, "contact_id", req.ContactID, "message_id", messageID)
	return messageID, nil
}

// loadPassword returns the user's decrypted mail-account password.
func (s *DispatchService) loadPassword(ctx context.Context, userID string) (string, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return "", mapProfileErr(err)
	}
	if !profile.HasCredential() {
		return "", ErrEmailNotConfigured
	}

	password, err := s.cipher.Decrypt(profile.EncryptedPassword)
	if err != nil {
		emailsFailedCounter.WithLabelValues("decrypt").Inc()
		s.logger.Error("credential decryption failed", "user_id", userID, "error", err)
		return "", fmt.Errorf("decrypt credential: %w", err)
	}
	return password, nil
}

func (s *DispatchService) logSendFailure(req DispatchRequest, err error) {
	attrs := []any{"user_id", req.UserID, "to", req.To, "error", err}
	reason := "unknown"
	if se, ok := driven.AsSendError(err); ok {
		reason = string(se.Code)
		attrs = append(attrs,
			"code", se.Code,
			"command", se.Command,
			"response_code", se.ResponseCode,
			"response", se.Response,
		)
	}
	emailsFailedCounter.WithLabelValues(reason).Inc()
	s.logger.Error("smtp send failed", attrs...)
}
