package model

import "time"

// Contact is a person tracked in a user's CRM. Contacts are owned by a single
// user; OwnerID scopes every read and write.
type Contact struct {
	ID            string
	OwnerID       string
	Name          string
	Email         string
	Company       string
	Notes         string
	Tags          []string
	Status        ContactStatus
	FollowUpDate  string // YYYY-MM-DD, empty when unset.
	FollowUpNotes string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ContactFilter narrows a contact listing. Zero values match everything.
type ContactFilter struct {
	Status ContactStatus
	Search string // Case-insensitive match on name, email or company.
}
