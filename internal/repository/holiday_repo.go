package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lunara/internal/access"
	"lunara/internal/database"
	"lunara/internal/models"
)

// HolidayRepository handles family holidays
type HolidayRepository struct {
	db database.DBTX
}

// NewHolidayRepository creates a new holiday repository
func NewHolidayRepository(db database.DBTX) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// CreateHoliday adds a holiday to a family visible to mode
func (r *HolidayRepository) CreateHoliday(ctx context.Context, mode access.Mode, familyID int64, date, name string) (*models.Holiday, error) {
	scope, scopeArgs := mode.FamilyScope("id")
	query := `
		INSERT INTO holidays (family_id, holiday_date, name)
		SELECT id, ?, ? FROM families WHERE id = ? AND ` + scope

	id, err := r.db.ExecReturningID(ctx, query, append([]any{date, name, familyID}, scopeArgs...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create holiday: %w", err)
	}

	return &models.Holiday{ID: id, FamilyID: familyID, HolidayDate: date, Name: name, CreatedAt: time.Now()}, nil
}

// ListHolidays returns a family's holidays between from and to inclusive
func (r *HolidayRepository) ListHolidays(ctx context.Context, mode access.Mode, familyID int64, from, to string) ([]models.Holiday, error) {
	scope, scopeArgs := mode.FamilyScope("family_id")
	query := `
		SELECT id, family_id, holiday_date, name, created_at
		FROM holidays
		WHERE family_id = ? AND ` + scope + ` AND holiday_date >= ? AND holiday_date <= ?
		ORDER BY holiday_date ASC`

	args := append([]any{familyID}, scopeArgs...)
	holidays := []models.Holiday{}
	if err := r.db.SelectContext(ctx, &holidays, query, append(args, from, to)...); err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	return holidays, nil
}

// IsHoliday reports whether date is a holiday for the kid's family
func (r *HolidayRepository) IsHoliday(ctx context.Context, mode access.Mode, kidID int64, date string) (bool, error) {
	scope, scopeArgs := mode.KidScope("k.id")
	query := `
		SELECT COUNT(*) FROM holidays h
		INNER JOIN kids k ON k.family_id = h.family_id
		WHERE k.id = ? AND h.holiday_date = ? AND ` + scope

	var count int
	if err := r.db.GetContext(ctx, &count, query, append([]any{kidID, date}, scopeArgs...)...); err != nil {
		return false, fmt.Errorf("failed to check holiday: %w", err)
	}
	return count > 0, nil
}

// DeleteHoliday removes a holiday visible to mode
func (r *HolidayRepository) DeleteHoliday(ctx context.Context, mode access.Mode, holidayID int64) error {
	scope, scopeArgs := mode.FamilyScope("family_id")
	result, err := r.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ? AND "+scope, append([]any{holidayID}, scopeArgs...)...)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return requireAffected(result, "holiday")
}
