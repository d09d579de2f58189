package driven

import (
	"context"
	"errors"

	"github.com/coldrm/coldrm/internal/domain/model"
)

// ErrReferralExists indicates the referee has already redeemed a referral code.
var ErrReferralExists = errors.New("referral already exists for referee")

// ReferralStore defines the driven port for referral bookkeeping.
type ReferralStore interface {
	// GetByReferee returns (nil, nil) when the referee has no referral.
	GetByReferee(ctx context.Context, refereeID string) (*model.Referral, error)

	// Redeem records the referral and credits both rewards atomically.
	// Returns ErrReferralExists if the referee already has a referral.
	Redeem(ctx context.Context, referral model.Referral, referrerReward, refereeReward model.Reward) error
}
