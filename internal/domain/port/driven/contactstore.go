package driven

import (
	"context"
	"errors"

	"github.com/coldrm/coldrm/internal/domain/model"
)

// ErrContactNotFound indicates the contact does not exist for the owner.
var ErrContactNotFound = errors.New("contact not found")

// ContactStore defines the driven port for CRM contacts. Every operation except
// UpdateStatus is scoped to the owning user.
type ContactStore interface {
	Create(ctx context.Context, contact model.Contact) error

	// Update returns ErrContactNotFound when no contact matches id and owner.
	Update(ctx context.Context, contact model.Contact) error

	// Delete returns ErrContactNotFound when no contact matches id and owner.
	Delete(ctx context.Context, ownerID, id string) error

	// Get returns ErrContactNotFound when no contact matches id and owner.
	Get(ctx context.Context, ownerID, id string) (*model.Contact, error)

	// List returns the owner's contacts matching filter, newest first.
	List(ctx context.Context, ownerID string, filter model.ContactFilter) ([]model.Contact, error)

	Count(ctx context.Context, ownerID string) (int, error)

	// UpdateStatus sets status and notes on a contact regardless of owner.
	// It is used by the unauthenticated CTA link; a missing contact is not an error.
	UpdateStatus(ctx context.Context, id string, status model.ContactStatus, notes string) error
}
