package driven

import (
	"context"
	"time"

	"github.com/coldrm/coldrm/internal/domain/model"
)

// SendLogStore defines the driven port for the email send log.
type SendLogStore interface {
	Insert(ctx context.Context, entry model.SendLogEntry) error

	// CountSince counts the user's entries with SentAt at or after since.
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)

	// CountBySubject counts all of the user's entries carrying exactly subject.
	CountBySubject(ctx context.Context, userID, subject string) (int, error)

	// CountAll counts every entry the user has ever logged.
	CountAll(ctx context.Context, userID string) (int, error)

	// ListByContact returns the contact's entries for the owning user, newest first.
	ListByContact(ctx context.Context, userID, contactID string) ([]model.SendLogEntry, error)
}
