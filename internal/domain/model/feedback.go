package model

import "time"

// Feedback is free-text product feedback submitted by a user.
type Feedback struct {
	ID          string
	UserEmail   string
	UserName    string
	CompanyName string
	Text        string
	IssueURL    string // Set when the feedback was also filed on the feedback channel.
	CreatedAt   time.Time
}
