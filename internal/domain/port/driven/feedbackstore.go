package driven

import (
	"context"

	"github.com/coldrm/coldrm/internal/domain/model"
)

// FeedbackStore defines the driven port for persisted user feedback.
type FeedbackStore interface {
	Insert(ctx context.Context, feedback model.Feedback) error
	SetIssueURL(ctx context.Context, id, url string) error
	ListAll(ctx context.Context) ([]model.Feedback, error)
}

// FeedbackChannel forwards feedback to an external tracker. Implementations
// return the URL of the created item.
type FeedbackChannel interface {
	Submit(ctx context.Context, feedback model.Feedback) (string, error)
}
