package model

// ContactStatus represents where a contact sits in the sales pipeline.
type ContactStatus string

const (
	ContactStatusLead     ContactStatus = "lead"
	ContactStatusProspect ContactStatus = "prospect"
	ContactStatusCustomer ContactStatus = "customer"
	ContactStatusInactive ContactStatus = "inactive"
)

// Valid reports whether s is one of the known contact statuses.
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusLead, ContactStatusProspect, ContactStatusCustomer, ContactStatusInactive:
		return true
	}
	return false
}

// SendStatus records the outcome stored on a send log entry. Only accepted
// messages are logged today.
type SendStatus string

const SendStatusSent SendStatus = "sent"
