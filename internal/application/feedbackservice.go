package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

const notProvided = "Not provided"

// FeedbackInput is a feedback form submission.
type FeedbackInput struct {
	UserEmail   string
	UserName    string
	CompanyName string
	Text        string
}

// FeedbackService stores user feedback and optionally forwards it to an
// external tracker.
type FeedbackService struct {
	store   driven.FeedbackStore
	channel driven.FeedbackChannel // nil when no tracker is configured
	logger  *slog.Logger
	now     func() time.Time
}

// NewFeedbackService creates a new FeedbackService. channel may be nil.
func NewFeedbackService(store driven.FeedbackStore, channel driven.FeedbackChannel, logger *slog.Logger) *FeedbackService {
	return &FeedbackService{store: store, channel: channel, logger: logger, now: time.Now}
}

// Submit persists the feedback. Forwarding to the tracker is best effort: a
// failure there is logged and the stored feedback is still returned.
func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (*model.Feedback, error) {
	f := model.Feedback{
		ID:          uuid.NewString(),
		UserEmail:   in.UserEmail,
		UserName:    orDefault(in.UserName, notProvided),
		CompanyName: orDefault(in.CompanyName, notProvided),
		Text:        in.Text,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Insert(ctx, f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if s.channel == nil {
		return &f, nil
	}

	url, err := s.channel.Submit(ctx, f)
	if err != nil {
		s.logger.Warn("feedback forwarding failed", "feedback_id", f.ID, "error", err)
		return &f, nil
	}
	f.IssueURL = url
	if err := s.store.SetIssueURL(ctx, f.ID, url); err != nil {
		s.logger.Warn("store feedback issue url failed", "feedback_id", f.ID, "error", err)
	}
	return &f, nil
}

// List returns all feedback, newest first.
func (s *FeedbackService) List(ctx context.Context) ([]model.Feedback, error) {
	items, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return items, nil
}
