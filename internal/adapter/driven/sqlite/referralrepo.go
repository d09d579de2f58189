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
var _ driven.ReferralStore = (*ReferralRepo)(nil)

// ReferralRepo is the SQLite implementation of the ReferralStore port interface.
type ReferralRepo struct {
	db *DB
}

// NewReferralRepo creates a new ReferralRepo backed by the given DB.
func NewReferralRepo(db *DB) *ReferralRepo {
	return &ReferralRepo{db: db}
}

// GetByReferee returns the referee's referral, or nil if there is none.
func (r *ReferralRepo) GetByReferee(ctx context.Context, refereeID string) (*model.Referral, error) {
	const query = `SELECT id, referrer_id, referee_id, referral_code, rewards_given, created_at
		FROM referrals WHERE referee_id = ?`

	var ref model.Referral
	var rewards int
	var createdAt string
	err := r.db.Reader.QueryRowContext(ctx, query, refereeID).Scan(
		&ref.ID, &ref.ReferrerID, &ref.RefereeID, &ref.ReferralCode, &rewards, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get referral for %q: %w", refereeID, err)
	}
	ref.RewardsGiven = rewards != 0

	ref.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &ref, nil
}

// Redeem inserts the referral and credits both profiles in one transaction.
func (r *ReferralRepo) Redeem(ctx context.Context, ref model.Referral, referrerReward, refereeReward model.Reward) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const insertQuery = `INSERT INTO referrals (id, referrer_id, referee_id, referral_code, rewards_given, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`
	if _, err := tx.ExecContext(ctx, insertQuery,
		ref.ID, ref.ReferrerID, ref.RefereeID, ref.ReferralCode, formatTime(ref.CreatedAt)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: referrals.referee_id") {
			return driven.ErrReferralExists
		}
		return fmt.Errorf("insert referral: %w", err)
	}

	const referrerQuery = `UPDATE profiles SET bonus_emails = bonus_emails + ?,
		bonus_contacts = bonus_contacts + ? WHERE id = ?`
	if err := execOneTx(ctx, tx, referrerQuery, referrerReward.Emails, referrerReward.Contacts, ref.ReferrerID); err != nil {
		return fmt.Errorf("credit referrer %q: %w", ref.ReferrerID, err)
	}

	const refereeQuery = `UPDATE profiles SET bonus_emails = bonus_emails + ?,
		bonus_contacts = bonus_contacts + ?, referred_by = ? WHERE id = ?`
	if err := execOneTx(ctx, tx, refereeQuery, refereeReward.Emails, refereeReward.Contacts, ref.ReferralCode, ref.RefereeID); err != nil {
		return fmt.Errorf("credit referee %q: %w", ref.RefereeID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit referral: %w", err)
	}
	return nil
}

func execOneTx(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireAffected(result, driven.ErrProfileNotFound)
}
