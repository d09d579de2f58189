package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// QuotaPolicy enforces the lifetime free-tier limits. Each profile's limit is
// the base quota plus any referral bonus.
type QuotaPolicy struct {
	profiles     driven.ProfileStore
	logs         driven.SendLogStore
	contacts     driven.ContactStore
	admins       AdminSet
	baseEmails   int
	baseContacts int
}

// NewQuotaPolicy creates a QuotaPolicy with the given base limits.
func NewQuotaPolicy(
	profiles driven.ProfileStore,
	logs driven.SendLogStore,
	contacts driven.ContactStore,
	admins AdminSet,
	baseEmails, baseContacts int,
) *QuotaPolicy {
	return &QuotaPolicy{
		profiles:     profiles,
		logs:         logs,
		contacts:     contacts,
		admins:       admins,
		baseEmails:   baseEmails,
		baseContacts: baseContacts,
	}
}

// Usage reports consumption against the user's limits. A user without a
// profile gets the base limits.
func (q *QuotaPolicy) Usage(ctx context.Context, userID string) (*model.Usage, error) {
	usage := &model.Usage{
		EmailLimit:   q.baseEmails,
		ContactLimit: q.baseContacts,
		Unlimited:    q.admins.Contains(userID),
	}

	p, err := q.profiles.Get(ctx, userID)
	switch {
	case errors.Is(err, driven.ErrProfileNotFound):
	case err != nil:
		return nil, fmt.Errorf("%w: load profile: %w", ErrStorage, err)
	default:
		usage.EmailLimit += p.BonusEmails
		usage.ContactLimit += p.BonusContacts
	}

	sent, err := q.logs.CountAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: count emails: %w", ErrStorage, err)
	}
	// The enrollment request is logged like a send but is not outreach.
	enrollments, err := q.logs.CountBySubject(ctx, userID, EnrollmentSubject)
	if err != nil {
		return nil, fmt.Errorf("%w: count enrollments: %w", ErrStorage, err)
	}
	usage.EmailsSent = sent - enrollments

	if usage.Contacts, err = q.contacts.Count(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: count contacts: %w", ErrStorage, err)
	}
	return usage, nil
}

// CheckEmail returns ErrEmailQuotaReached once the lifetime outreach count has
// reached the user's limit. Enrollment requests do not count.
func (q *QuotaPolicy) CheckEmail(ctx context.Context, userID string) error {
	if q.admins.Contains(userID) {
		return nil
	}
	u, err := q.Usage(ctx, userID)
	if err != nil {
		return err
	}
	if u.EmailsSent >= u.EmailLimit {
		return ErrEmailQuotaReached
	}
	return nil
}

// CheckContact returns ErrContactLimitReached when another contact would
// exceed the user's limit.
func (q *QuotaPolicy) CheckContact(ctx context.Context, userID string) error {
	if q.admins.Contains(userID) {
		return nil
	}
	u, err := q.Usage(ctx, userID)
	if err != nil {
		return err
	}
	if u.Contacts >= u.ContactLimit {
		return ErrContactLimitReached
	}
	return nil
}
