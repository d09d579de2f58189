package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

const defaultEmailProvider = "gmail"

// maxReferralCodeAttempts bounds how many fresh codes EnsureProfile tries
// when a generated code collides with an existing one.
const maxReferralCodeAttempts = 5

// ProfileInput carries the fields a user supplies when their profile is
// first created.
type ProfileInput struct {
	ID                string
	Username          string
	CompanyName       string
	Email             string
	NotifyFullVersion bool
}

// ProfileService manages user profiles and the encrypted mail credential.
// Plaintext passwords pass through it but are never stored.
type ProfileService struct {
	profiles driven.ProfileStore
	quotas   *QuotaPolicy
	cipher   CredentialCipher
	logger   *slog.Logger
	now      func() time.Time
}

// NewProfileService creates a new ProfileService with the required dependencies.
func NewProfileService(profiles driven.ProfileStore, quotas *QuotaPolicy, cipher CredentialCipher, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		quotas:   quotas,
		cipher:   cipher,
		logger:   logger,
		now:      time.Now,
	}
}

// EncryptPassword returns the ciphertext token for password.
func (s *ProfileService) EncryptPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	token, err := s.cipher.Encrypt(password)
	if err != nil {
		return "", fmt.Errorf("encrypt password: %w", err)
	}
	return token, nil
}

// EnsureProfile returns the user's profile, creating it with a fresh referral
// code on first use. The boolean reports whether a profile was created.
func (s *ProfileService) EnsureProfile(ctx context.Context, in ProfileInput) (*model.Profile, bool, error) {
	existing, err := s.profiles.Get(ctx, in.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, driven.ErrProfileNotFound) {
		return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	p := model.Profile{
		ID:                in.ID,
		Username:          orDefault(in.Username, "User"),
		CompanyName:       orDefault(in.CompanyName, "Company"),
		Email:             in.Email,
		NotifyFullVersion: in.NotifyFullVersion,
		CreatedAt:         s.now().UTC(),
	}
	for attempt := 1; ; attempt++ {
		p.ReferralCode = newReferralCode()
		err := s.profiles.Create(ctx, p)
		switch {
		case err == nil:
			s.logger.Info("profile created", "user_id", p.ID, "referral_code", p.ReferralCode)
			return &p, true, nil
		case errors.Is(err, driven.ErrReferralCodeTaken) && attempt < maxReferralCodeAttempts:
			s.logger.Warn("referral code collision, regenerating", "user_id", p.ID, "attempt", attempt)
		case errors.Is(err, driven.ErrProfileExists):
			// Lost a race with a concurrent first visit.
			existing, err := s.profiles.Get(ctx, in.ID)
			if err != nil {
				return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
			}
			return existing, false, nil
		default:
			return nil, false, fmt.Errorf("%w: %w", ErrStorage, err)
		}
	}
}

// Get returns the user's profile or driven.ErrProfileNotFound.
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	return s.profiles.Get(ctx, userID)
}

// Usage reports the user's consumption against their quotas.
func (s *ProfileService) Usage(ctx context.Context, userID string) (*model.Usage, error) {
	return s.quotas.Usage(ctx, userID)
}

// SaveEmailConfig encrypts and stores the user's mail-account password.
// Whitespace is removed first since app passwords are displayed in groups.
func (s *ProfileService) SaveEmailConfig(ctx context.Context, userID, provider, password string) error {
	password = strings.Join(strings.Fields(password), "")
	if password == "" {
		return ErrEmptyPassword
	}
	token, err := s.cipher.Encrypt(password)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	if err := s.profiles.SetEmailCredential(ctx, userID, orDefault(provider, defaultEmailProvider), token); err != nil {
		return err
	}
	s.logger.Info("email configured", "user_id", userID)
	return nil
}

// DeleteEmailConfig removes the stored credential.
func (s *ProfileService) DeleteEmailConfig(ctx context.Context, userID string) error {
	if err := s.profiles.ClearEmailCredential(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("email configuration removed", "user_id", userID)
	return nil
}

// NotificationUsers lists profiles opted in to full-version announcements.
func (s *ProfileService) NotificationUsers(ctx context.Context) ([]model.Profile, error) {
	profiles, err := s.profiles.ListNotificationOptIns(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return profiles, nil
}

// newReferralCode returns an 8-character upper-case hex code.
func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
