package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/coldrm/coldrm/internal/domain/model"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProfileStore = (*ProfileRepo)(nil)

// ProfileRepo is the SQLite implementation of the ProfileStore port interface.
// The credential column only ever holds ciphertext produced by the application layer.
type ProfileRepo struct {
	db *DB
}

// NewProfileRepo creates a new ProfileRepo backed by the given DB.
func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `id, username, company_name, email, COALESCE(email_provider, ''),
	COALESCE(encrypted_email_password, ''), email_configured, referral_code,
	COALESCE(referred_by, ''), bonus_emails, bonus_contacts, enrolled,
	notify_full_version, created_at`

// Create inserts a new profile. Returns driven.ErrProfileExists on a duplicate
// ID and driven.ErrReferralCodeTaken on a duplicate referral code.
func (r *ProfileRepo) Create(ctx context.Context, p model.Profile) error {
	const query = `INSERT INTO profiles (id, username, company_name, email, referral_code,
		notify_full_version, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		p.ID, p.Username, p.CompanyName, p.Email, p.ReferralCode,
		boolToInt(p.NotifyFullVersion), formatTime(p.CreatedAt),
	)
	if err != nil {
		switch msg := err.Error(); {
		case strings.Contains(msg, "UNIQUE constraint failed: profiles.id"):
			return driven.ErrProfileExists
		case strings.Contains(msg, "UNIQUE constraint failed: profiles.referral_code"):
			return fmt.Errorf("create profile %q: %w", p.ID, driven.ErrReferralCodeTaken)
		}
		return fmt.Errorf("create profile %q: %w", p.ID, err)
	}
	return nil
}

// Get returns the profile with the given ID.
func (r *ProfileRepo) Get(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`
	p, err := scanProfile(r.db.Reader.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", id, err)
	}
	return p, nil
}

// GetByReferralCode returns the profile owning code. Codes are stored upper-case.
func (r *ProfileRepo) GetByReferralCode(ctx context.Context, code string) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE referral_code = ?`
	p, err := scanProfile(r.db.Reader.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("get profile by referral code: %w", err)
	}
	return p, nil
}

// SetEmailCredential stores the encrypted credential and marks it configured.
func (r *ProfileRepo) SetEmailCredential(ctx context.Context, id, provider, encrypted string) error {
	const query = `UPDATE profiles SET email_provider = ?, encrypted_email_password = ?,
		email_configured = 1 WHERE id = ?`
	return r.execOne(ctx, query, "set email credential", id, provider, encrypted, id)
}

// ClearEmailCredential removes the stored credential.
func (r *ProfileRepo) ClearEmailCredential(ctx context.Context, id string) error {
	const query = `UPDATE profiles SET email_provider = NULL, encrypted_email_password = NULL,
		email_configured = 0 WHERE id = ?`
	return r.execOne(ctx, query, "clear email credential", id, id)
}

// MarkEnrolled flags the profile as having submitted the enrollment form.
func (r *ProfileRepo) MarkEnrolled(ctx context.Context, id string) error {
	const query = `UPDATE profiles SET enrolled = 1 WHERE id = ?`
	return r.execOne(ctx, query, "mark enrolled", id, id)
}

// ListNotificationOptIns returns opted-in profiles, newest first.
func (r *ProfileRepo) ListNotificationOptIns(ctx context.Context) ([]model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE notify_full_version = 1 ORDER BY created_at DESC`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notification opt-ins: %w", err)
	}
	defer rows.Close()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

func (r *ProfileRepo) execOne(ctx context.Context, query, op, id string, args ...any) error {
	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %q: %w", op, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %q: %w", op, id, driven.ErrProfileNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var p model.Profile
	var configured, enrolled, notify int
	var createdAt string

	err := row.Scan(&p.ID, &p.Username, &p.CompanyName, &p.Email, &p.EmailProvider,
		&p.EncryptedPassword, &configured, &p.ReferralCode, &p.ReferredBy,
		&p.BonusEmails, &p.BonusContacts, &enrolled, &notify, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	p.EmailConfigured = configured != 0
	p.Enrolled = enrolled != 0
	p.NotifyFullVersion = notify != 0

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &p, nil
}
