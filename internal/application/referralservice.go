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

// Referral rewards credited on redemption.
var (
	ReferrerReward = model.Reward{Emails: 10, Contacts: 10}
	RefereeReward  = model.Reward{Emails: 5, Contacts: 5}
)

// ReferralService redeems referral codes.
type ReferralService struct {
	profiles  driven.ProfileStore
	referrals driven.ReferralStore
	logger    *slog.Logger
	now       func() time.Time
}

// NewReferralService creates a new ReferralService with the required dependencies.
func NewReferralService(profiles driven.ProfileStore, referrals driven.ReferralStore, logger *slog.Logger) *ReferralService {
	return &ReferralService{profiles: profiles, referrals: referrals, logger: logger, now: time.Now}
}

// Redeem applies code for refereeID and credits both parties. Each referee
// may redeem at most one code and never their own.
func (s *ReferralService) Redeem(ctx context.Context, refereeID, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	referrer, err := s.profiles.GetByReferralCode(ctx, code)
	if errors.Is(err, driven.ErrProfileNotFound) {
		return ErrInvalidReferralCode
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if referrer.ID == refereeID {
		return ErrSelfReferral
	}

	if _, err := s.profiles.Get(ctx, refereeID); err != nil {
		if errors.Is(err, driven.ErrProfileNotFound) {
			return fmt.Errorf("referee profile %q: %w", refereeID, err)
		}
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	existing, err := s.referrals.GetByReferee(ctx, refereeID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if existing != nil {
		return ErrReferralAlreadyUsed
	}

	ref := model.Referral{
		ID:           uuid.NewString(),
		ReferrerID:   referrer.ID,
		RefereeID:    refereeID,
		ReferralCode: code,
		CreatedAt:    s.now().UTC(),
	}
	err = s.referrals.Redeem(ctx, ref, ReferrerReward, RefereeReward)
	switch {
	case errors.Is(err, driven.ErrReferralExists):
		return ErrReferralAlreadyUsed
	case err != nil:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	referralsRedeemedCounter.Inc()
	s.logger.Info("referral redeemed", "referrer_id", referrer.ID, "referee_id", refereeID)
	return nil
}
