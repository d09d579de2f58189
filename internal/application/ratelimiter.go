package application

import (
	"context"
	"fmt"
	"time"

	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// EnrollmentSubject identifies enrollment messages in the send log.
const EnrollmentSubject = "COLDrm - Lifetime Free Access Enrollment"

// RateLimiter admits sends from the send log. The check and the later log
// write are not atomic: concurrent requests from one user can both pass.
type RateLimiter struct {
	logs   driven.SendLogStore
	admins AdminSet
	max    int
	window time.Duration
}

// NewRateLimiter creates a RateLimiter allowing limit sends per window.
func NewRateLimiter(logs driven.SendLogStore, admins AdminSet, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{logs: logs, admins: admins, max: limit, window: window}
}

// Max returns the number of sends allowed per window.
func (l *RateLimiter) Max() int { return l.max }

// Window returns the sliding window length.
func (l *RateLimiter) Window() time.Duration { return l.window }

// CanSend reports whether userID has sent fewer than max messages in the
// window ending at now. Administrators are admitted without a query.
func (l *RateLimiter) CanSend(ctx context.Context, userID string, now time.Time) (bool, error) {
	if l.admins.Contains(userID) {
		return true, nil
	}

	n, err := l.logs.CountSince(ctx, userID, now.Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("count recent sends: %w", err)
	}
	return n < l.max, nil
}

// CanEnroll reports whether userID has never logged an enrollment message.
func (l *RateLimiter) CanEnroll(ctx context.Context, userID string) (bool, error) {
	n, err := l.logs.CountBySubject(ctx, userID, EnrollmentSubject)
	if err != nil {
		return false, fmt.Errorf("count enrollments: %w", err)
	}
	return n == 0, nil
}
