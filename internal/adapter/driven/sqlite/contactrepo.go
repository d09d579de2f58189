package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ContactStore = (*ContactRepo)(nil)

// ContactRepo is the SQLite implementation of the ContactStore port interface.
// Tags are stored as a JSON array in a single column.
type ContactRepo struct {
	db *DB
}

// NewContactRepo creates a new ContactRepo backed by the given DB.
func NewContactRepo(db *DB) *ContactRepo {
	return &ContactRepo{db: db}
}

const contactColumns = `id, owner_id, name, email, company, notes, tags, status,
	follow_up_date, follow_up_notes, created_at, updated_at`

// Create inserts a new contact.
func (r *ContactRepo) Create(ctx context.Context, c model.Contact) error {
	tags, err := encodeTags(c.Tags)
	if err != nil {
		return err
	}

	const query = `INSERT INTO contacts (` + contactColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Writer.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Name, c.Email, c.Company, c.Notes, tags, string(c.Status),
		c.FollowUpDate, c.FollowUpNotes, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create contact %q: %w", c.ID, err)
	}
	return nil
}

// Update replaces the editable fields of an owned contact.
func (r *ContactRepo) Update(ctx context.Context, c model.Contact) error {
	tags, err := encodeTags(c.Tags)
	if err != nil {
		return err
	}

	const query = `UPDATE contacts SET name = ?, email = ?, company = ?, notes = ?, tags = ?,
		status = ?, follow_up_date = ?, follow_up_notes = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`
	result, err := r.db.Writer.ExecContext(ctx, query,
		c.Name, c.Email, c.Company, c.Notes, tags, string(c.Status),
		c.FollowUpDate, c.FollowUpNotes, formatTime(c.UpdatedAt), c.ID, c.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update contact %q: %w", c.ID, err)
	}
	return requireAffected(result, driven.ErrContactNotFound)
}

// Delete removes an owned contact.
func (r *ContactRepo) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM contacts WHERE id = ? AND owner_id = ?`
	result, err := r.db.Writer.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete contact %q: %w", id, err)
	}
	return requireAffected(result, driven.ErrContactNotFound)
}

// Get returns an owned contact.
func (r *ContactRepo) Get(ctx context.Context, ownerID, id string) (*model.Contact, error) {
	const query = `SELECT ` + contactColumns + ` FROM contacts WHERE id = ? AND owner_id = ?`
	c, err := scanContact(r.db.Reader.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact %q: %w", id, err)
	}
	return c, nil
}

// List returns the owner's contacts matching filter, newest first.
func (r *ContactRepo) List(ctx context.Context, ownerID string, filter model.ContactFilter) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE owner_id = ?`
	args := []any{ownerID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query += ` AND (instr(lower(name), ?) > 0 OR instr(lower(email), ?) > 0 OR instr(lower(company), ?) > 0)`
		s := strings.ToLower(search)
		args = append(args, s, s, s)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

// Count returns how many contacts the owner has.
func (r *ContactRepo) Count(ctx context.Context, ownerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM contacts WHERE owner_id = ?`
	var n int
	if err := r.db.Reader.QueryRowContext(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

// UpdateStatus sets status and notes on any contact. Unknown IDs are a no-op.
func (r *ContactRepo) UpdateStatus(ctx context.Context, id string, status model.ContactStatus, notes string) error {
	const query = `UPDATE contacts SET status = ?, notes = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(status), notes, id); err != nil {
		return fmt.Errorf("update contact status %q: %w", id, err)
	}
	return nil
}

func scanContact(row rowScanner) (*model.Contact, error) {
	var c model.Contact
	var tags, status, createdAt, updatedAt string

	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Company, &c.Notes, &tags,
		&status, &c.FollowUpDate, &c.FollowUpNotes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Status = model.ContactStatus(status)

	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &c, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
