package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lunara/internal/access"
	"lunara/internal/database"
	"lunara/internal/models"
)

// MoonRepository handles the moon award ledger
type MoonRepository struct {
	db database.DBTX
}

// NewMoonRepository creates a new moon repository
func NewMoonRepository(db database.DBTX) *MoonRepository {
	return &MoonRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *MoonRepository) WithTx(tx *database.Tx) *MoonRepository {
	return &MoonRepository{db: tx}
}

// RecordAward inserts a ledger row unless one already exists for the same
// (kid, reason, ref, date). It reports whether a new row was written.
func (r *MoonRepository) RecordAward(ctx context.Context, award models.MoonAward) (bool, error) {
	query := r.db.GetDialect().InsertIgnore(`
		INSERT INTO moon_awards (kid_id, reason, ref_id, award_date, amount)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.ExecReturningID(ctx, query, award.KidID, award.Reason, award.RefID, award.AwardDate, award.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record moon award: %w", err)
	}
	return true, nil
}

// HasAward reports whether a ledger row exists
func (r *MoonRepository) HasAward(ctx context.Context, kidID int64, reason string, refID int64, date string) (bool, error) {
	query := "SELECT COUNT(*) FROM moon_awards WHERE kid_id = ? AND reason = ? AND ref_id = ? AND award_date = ?"
	var count int
	if err := r.db.GetContext(ctx, &count, query, kidID, reason, refID, date); err != nil {
		return false, fmt.Errorf("failed to check moon award: %w", err)
	}
	return count > 0, nil
}

// BonusDates returns the kid's daily bonus dates, newest first
func (r *MoonRepository) BonusDates(ctx context.Context, mode access.Mode, kidID int64, limit int) ([]string, error) {
	scope, scopeArgs := mode.KidScope("kid_id")
	query := `
		SELECT award_date FROM moon_awards
		WHERE kid_id = ? AND reason = ? AND ` + scope + `
		ORDER BY award_date DESC
		LIMIT ?`

	args := append([]any{kidID, models.AwardDailyBonus}, scopeArgs...)
	dates := []string{}
	if err := r.db.SelectContext(ctx, &dates, query, append(args, limit)...); err != nil {
		return nil, fmt.Errorf("failed to query bonus dates: %w", err)
	}
	return dates, nil
}

// ListAwards returns the most recent ledger entries for a kid
func (r *MoonRepository) ListAwards(ctx context.Context, mode access.Mode, kidID int64, limit int) ([]models.MoonAward, error) {
	scope, scopeArgs := mode.KidScope("kid_id")
	query := `
		SELECT id, kid_id, reason, ref_id, award_date, amount, created_at
		FROM moon_awards
		WHERE kid_id = ? AND ` + scope + `
		ORDER BY id DESC
		LIMIT ?`

	args := append([]any{kidID}, scopeArgs...)
	awards := []models.MoonAward{}
	if err := r.db.SelectContext(ctx, &awards, query, append(args, limit)...); err != nil {
		return nil, fmt.Errorf("failed to query moon awards: %w", err)
	}
	return awards, nil
}
