package model

import "time"

// Referral links a referee to the profile whose code they redeemed.
type Referral struct {
	ID           string
	ReferrerID   string
	RefereeID    string
	ReferralCode string
	RewardsGiven bool
	CreatedAt    time.Time
}

// Reward is the bonus quota credited to one side of a referral.
type Reward struct {
	Emails   int `json:"emails"`
	Contacts int `json:"contacts"`
}
