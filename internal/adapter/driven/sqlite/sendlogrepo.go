package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SendLogStore = (*SendLogRepo)(nil)

// SendLogRepo is the SQLite implementation of the SendLogStore port interface.
type SendLogRepo struct {
	db *DB
}

// NewSendLogRepo creates a new SendLogRepo backed by the given DB.
func NewSendLogRepo(db *DB) *SendLogRepo {
	return &SendLogRepo{db: db}
}

// Insert appends a send log entry.
func (r *SendLogRepo) Insert(ctx context.Context, e model.SendLogEntry) error {
	const query = `INSERT INTO email_logs (id, user_id, contact_id, recipient, subject, content,
		status, message_id, sent_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var contactID sql.NullString
	if e.ContactID != "" {
		contactID = sql.NullString{String: e.ContactID, Valid: true}
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		e.ID, e.UserID, contactID, e.Recipient, e.Subject, e.Content,
		string(e.Status), e.MessageID, formatTime(e.SentAt),
	)
	if err != nil {
		return fmt.Errorf("insert send log for user %q: %w", e.UserID, err)
	}
	return nil
}

// CountSince counts the user's entries sent at or after since.
func (r *SendLogRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM email_logs WHERE user_id = ? AND sent_at >= ?`
	return r.count(ctx, query, userID, formatTime(since))
}

// CountBySubject counts all of the user's entries with exactly subject.
func (r *SendLogRepo) CountBySubject(ctx context.Context, userID, subject string) (int, error) {
	const query = `SELECT COUNT(*) FROM email_logs WHERE user_id = ? AND subject = ?`
	return r.count(ctx, query, userID, subject)
}

// CountAll counts every entry for the user.
func (r *SendLogRepo) CountAll(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM email_logs WHERE user_id = ?`
	return r.count(ctx, query, userID)
}

func (r *SendLogRepo) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.Reader.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count send logs: %w", err)
	}
	return n, nil
}

// ListByContact returns the contact's entries, newest first.
func (r *SendLogRepo) ListByContact(ctx context.Context, userID, contactID string) ([]model.SendLogEntry, error) {
	const query = `SELECT id, user_id, COALESCE(contact_id, ''), recipient, subject, content,
		status, message_id, sent_at FROM email_logs
		WHERE user_id = ? AND contact_id = ? ORDER BY sent_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, userID, contactID)
	if err != nil {
		return nil, fmt.Errorf("list send logs for contact %q: %w", contactID, err)
	}
	defer rows.Close()

	var entries []model.SendLogEntry
	for rows.Next() {
		var e model.SendLogEntry
		var status, sentAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.ContactID, &e.Recipient, &e.Subject,
			&e.Content, &status, &e.MessageID, &sentAt); err != nil {
			return nil, fmt.Errorf("scan send log: %w", err)
		}
		e.Status = model.SendStatus(status)

		e.SentAt, err = parseTime(sentAt)
		if err != nil {
			return nil, fmt.Errorf("parse sent_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate send logs: %w", err)
	}
	return entries, nil
}
