package model

import "time"

// SendLogEntry is one row per email send. It is the audit trail and the basis
// for rate-limit counting and one-time action checks.
type SendLogEntry struct {
	ID        string
	UserID    string
	ContactID string // Empty when the send was not addressed to a CRM contact.
	Recipient string
	Subject   string
	Content   string
	Status    SendStatus
	MessageID string
	SentAt    time.Time
}
