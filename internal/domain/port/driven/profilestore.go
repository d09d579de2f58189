// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/coldrm/coldrm/internal/domain/model"
)

// Sentinel errors returned by ProfileStore implementations.
var (
	// ErrProfileNotFound indicates no profile exists for the given identifier.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileExists indicates a profile with the same ID already exists.
	ErrProfileExists = errors.New("profile already exists")

	// ErrReferralCodeTaken indicates another profile already owns the
	// referral code.
	ErrReferralCodeTaken = errors.New("referral code already taken")
)

// ProfileStore defines the driven port for user profiles and the encrypted
// mail-account credential they carry. The store never sees plaintext
// credentials; encryption happens in the application layer.
type ProfileStore interface {
	// Create returns ErrProfileExists for a duplicate ID and
	// ErrReferralCodeTaken for a duplicate referral code.
	Create(ctx context.Context, profile model.Profile) error

	// Get returns ErrProfileNotFound when the profile does not exist.
	Get(ctx context.Context, id string) (*model.Profile, error)

	// GetByReferralCode returns ErrProfileNotFound for an unknown code.
	GetByReferralCode(ctx context.Context, code string) (*model.Profile, error)

	// SetEmailCredential stores the encrypted credential and marks it configured.
	SetEmailCredential(ctx context.Context, id, provider, encrypted string) error

	// ClearEmailCredential removes the credential and clears the configured flag.
	ClearEmailCredential(ctx context.Context, id string) error

	MarkEnrolled(ctx context.Context, id string) error

	// ListNotificationOptIns returns profiles that asked to hear about the
	// full version, newest first.
	ListNotificationOptIns(ctx context.Context) ([]model.Profile, error)
}
