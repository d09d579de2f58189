package sqlite

import (
	"context"
	"fmt"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FeedbackStore = (*FeedbackRepo)(nil)

// FeedbackRepo is the SQLite implementation of the FeedbackStore port interface.
type FeedbackRepo struct {
	db *DB
}

// NewFeedbackRepo creates a new FeedbackRepo backed by the given DB.
func NewFeedbackRepo(db *DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

// Insert stores a feedback submission.
func (r *FeedbackRepo) Insert(ctx context.Context, f model.Feedback) error {
	const query = `INSERT INTO feedback (id, user_email, user_name, company_name, feedback_text, issue_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query,
		f.ID, f.UserEmail, f.UserName, f.CompanyName, f.Text, f.IssueURL, formatTime(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// SetIssueURL records where the feedback was filed on the external channel.
func (r *FeedbackRepo) SetIssueURL(ctx context.Context, id, url string) error {
	const query = `UPDATE feedback SET issue_url = ? WHERE id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, url, id); err != nil {
		return fmt.Errorf("set issue url for feedback %q: %w", id, err)
	}
	return nil
}

// ListAll returns all feedback, newest first.
func (r *FeedbackRepo) ListAll(ctx context.Context) ([]model.Feedback, error) {
	const query = `SELECT id, user_email, user_name, company_name, feedback_text, issue_url, created_at
		FROM feedback ORDER BY created_at DESC`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []model.Feedback
	for rows.Next() {
		var f model.Feedback
		var createdAt string
		if err := rows.Scan(&f.ID, &f.UserEmail, &f.UserName, &f.CompanyName, &f.Text, &f.IssueURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		f.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}
