package application

import "errors"

// Sentinel errors returned by application services. The HTTP adapter maps
// them to status codes with errors.Is.
var (
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrEmailNotConfigured  = errors.New("email not configured")
	ErrEmailQuotaReached   = errors.New("email limit reached")
	ErrContactLimitReached = errors.New("contact limit reached")

	// ErrStorage wraps database failures that the caller cannot fix.
	ErrStorage = errors.New("storage unavailable")

	ErrAlreadyEnrolled    = errors.New("already enrolled")
	ErrEnrollmentDisabled = errors.New("enrollment recipient not configured")

	// ErrEnrollmentNotRecorded means the enrollment email left the system but
	// the log write failed, so the one-time check cannot see it.
	ErrEnrollmentNotRecorded = errors.New("enrollment sent but not recorded")

	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrSelfReferral        = errors.New("cannot refer yourself")
	ErrReferralAlreadyUsed = errors.New("user already used a referral code")

	ErrInvalidStatus = errors.New("invalid contact status")
	ErrEmptyPassword = errors.New("password is required")
)
