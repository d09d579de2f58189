package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// InterestedNote replaces a contact's notes when they click a CTA link.
const InterestedNote = "Clicked CTA button - Interested!"

// ContactInput is the editable part of a contact.
type ContactInput struct {
	Name          string
	Email         string
	Company       string
	Notes         string
	Tags          []string
	Status        model.ContactStatus
	FollowUpDate  string
	FollowUpNotes string
}

// ContactService is the CRM: owner-scoped contact CRUD, per-contact email
// history and CTA click tracking.
type ContactService struct {
	contacts driven.ContactStore
	logs     driven.SendLogStore
	quotas   *QuotaPolicy
	logger   *slog.Logger
	now      func() time.Time
}

// NewContactService creates a new ContactService with the required dependencies.
func NewContactService(contacts driven.ContactStore, logs driven.SendLogStore, quotas *QuotaPolicy, logger *slog.Logger) *ContactService {
	return &ContactService{contacts: contacts, logs: logs, quotas: quotas, logger: logger, now: time.Now}
}

// List returns the owner's contacts matching filter.
func (s *ContactService) List(ctx context.Context, ownerID string, filter model.ContactFilter) ([]model.Contact, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return s.contacts.List(ctx, ownerID, filter)
}

// Create adds a contact after checking the owner's contact quota.
func (s *ContactService) Create(ctx context.Context, ownerID string, in ContactInput) (*model.Contact, error) {
	if err := normalizeContact(&in); err != nil {
		return nil, err
	}
	if err := s.quotas.CheckContact(ctx, ownerID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := model.Contact{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyContactInput(&c, in)

	if err := s.contacts.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &c, nil
}

// Update replaces the editable fields of an owned contact.
func (s *ContactService) Update(ctx context.Context, ownerID, id string, in ContactInput) (*model.Contact, error) {
	if err := normalizeContact(&in); err != nil {
		return nil, err
	}

	c, err := s.contacts.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	applyContactInput(c, in)
	c.UpdatedAt = s.now().UTC()

	if err := s.contacts.Update(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes an owned contact.
func (s *ContactService) Delete(ctx context.Context, ownerID, id string) error {
	return s.contacts.Delete(ctx, ownerID, id)
}

// History returns the emails sent to an owned contact, newest first.
func (s *ContactService) History(ctx context.Context, ownerID, id string) ([]model.SendLogEntry, error) {
	if _, err := s.contacts.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	entries, err := s.logs.ListByContact(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return entries, nil
}

// MarkInterested moves the contact to prospect after a CTA click. Unknown
// IDs are ignored so the link always lands on the thank-you page.
func (s *ContactService) MarkInterested(ctx context.Context, contactID string) error {
	if err := s.contacts.UpdateStatus(ctx, contactID, model.ContactStatusProspect, InterestedNote); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.logger.Info("cta clicked", "contact_id", contactID)
	return nil
}

func normalizeContact(in *ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Company = strings.TrimSpace(in.Company)
	if in.Status == "" {
		in.Status = model.ContactStatusLead
	}
	if !in.Status.Valid() {
		return ErrInvalidStatus
	}

	tags := in.Tags[:0:0]
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	in.Tags = tags
	return nil
}

func applyContactInput(c *model.Contact, in ContactInput) {
	c.Name = in.Name
	c.Email = in.Email
	c.Company = in.Company
	c.Notes = in.Notes
	c.Tags = in.Tags
	c.Status = in.Status
	c.FollowUpDate = in.FollowUpDate
	c.FollowUpNotes = in.FollowUpNotes
}
