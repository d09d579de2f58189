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

// EnrollmentRequest is the lifetime free access application form.
type EnrollmentRequest struct {
	UserID    string
	UserEmail string
	Name      string
	Email     string
	Reason    string
	Feedback  string
}

// EnrollmentService forwards one enrollment application per user to the
// configured recipient, sent from the user's own mailbox.
type EnrollmentService struct {
	limiter   *RateLimiter
	profiles  driven.ProfileStore
	logs      driven.SendLogStore
	cipher    CredentialCipher
	mailer    driven.Mailer
	recipient string
	logger    *slog.Logger
	now       func() time.Time
}

// NewEnrollmentService creates a new EnrollmentService. An empty recipient
// disables enrollment.
func NewEnrollmentService(
	limiter *RateLimiter,
	profiles driven.ProfileStore,
	logs driven.SendLogStore,
	cipher CredentialCipher,
	mailer driven.Mailer,
	recipient string,
	logger *slog.Logger,
) *EnrollmentService {
	return &EnrollmentService{
		limiter:   limiter,
		profiles:  profiles,
		logs:      logs,
		cipher:    cipher,
		mailer:    mailer,
		recipient: recipient,
		logger:    logger,
		now:       time.Now,
	}
}

// Enroll sends the application and records it. Unlike outreach sends, a
// failed log write is returned as ErrEnrollmentNotRecorded.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollmentRequest) error {
	if s.recipient == "" {
		return ErrEnrollmentDisabled
	}

	ok, err := s.limiter.CanEnroll(ctx, req.UserID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok {
		return ErrAlreadyEnrolled
	}

	profile, err := s.profiles.Get(ctx, req.UserID)
	if err != nil {
		return mapProfileErr(err)
	}
	if !profile.HasCredential() {
		return ErrEmailNotConfigured
	}

	password, err := s.cipher.Decrypt(profile.EncryptedPassword)
	if err != nil {
		s.logger.Error("credential decryption failed", "user_id", req.UserID, "error", err)
		return fmt.Errorf("decrypt credential: %w", err)
	}

	msg := driven.OutgoingMessage{
		FromName:    req.Name,
		FromAddress: req.UserEmail,
		To:          s.recipient,
		Subject:     EnrollmentSubject,
		HTML:        renderEnrollmentEmail(req),
	}
	messageID, err := s.mailer.Send(ctx, driven.Credentials{Username: req.UserEmail, Password: password}, msg)
	if err != nil {
		s.logger.Error("enrollment email failed", "user_id", req.UserID, "error", err)
		return err
	}
	emailsSentCounter.WithLabelValues("enrollment").Inc()

	entry := model.SendLogEntry{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Recipient: s.recipient,
		Subject:   EnrollmentSubject,
		Content:   "Enrollment submission",
		Status:    model.SendStatusSent,
		MessageID: messageID,
		SentAt:    s.now(),
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		sendLogWriteFailures.Inc()
		s.logger.Error("enrollment log write failed", "user_id", req.UserID, "message_id", messageID, "error", err)
		return fmt.Errorf("%w: %w", ErrEnrollmentNotRecorded, err)
	}

	if err := s.profiles.MarkEnrolled(ctx, req.UserID); err != nil {
		s.logger.Warn("mark enrolled failed", "user_id", req.UserID, "error", err)
	}

	s.logger.Info("enrollment submitted", "user_id", req.UserID, "message_id", messageID)
	return nil
}

// mapProfileErr turns a missing profile into ErrEmailNotConfigured and any
// other store error into ErrStorage.
func mapProfileErr(err error) error {
	if errors.Is(err, driven.ErrProfileNotFound) {
		return ErrEmailNotConfigured
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
