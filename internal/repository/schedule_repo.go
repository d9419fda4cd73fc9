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

const scheduleColumns = "id, kid_id, title, item_date, status, completed_at, created_at, updated_at"

// ScheduleRepository handles database operations for schedule items
type ScheduleRepository struct {
	db database.DBTX
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db database.DBTX) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ScheduleRepository) WithTx(tx *database.Tx) *ScheduleRepository {
	return &ScheduleRepository{db: tx}
}

// CreateItem adds an item for a kid visible to mode
func (r *ScheduleRepository) CreateItem(ctx context.Context, mode access.Mode, kidID int64, title, date string) (*models.ScheduleItem, error) {
	scope, scopeArgs := mode.KidRowScope("id", "family_id")
	query := `
		INSERT INTO schedule_items (kid_id, title, item_date)
		SELECT id, ?, ? FROM kids WHERE id = ? AND ` + scope

	args := append([]any{title, date, kidID}, scopeArgs...)
	id, err := r.db.ExecReturningID(ctx, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule item: %w", err)
	}

	now := time.Now()
	return &models.ScheduleItem{
		ID:        id,
		KidID:     kidID,
		Title:     title,
		ItemDate:  date,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetItem retrieves an item visible to mode
func (r *ScheduleRepository) GetItem(ctx context.Context, mode access.Mode, itemID int64) (*models.ScheduleItem, error) {
	scope, scopeArgs := mode.KidScope("kid_id")
	query := "SELECT " + scheduleColumns + " FROM schedule_items WHERE id = ? AND " + scope

	item := &models.ScheduleItem{}
	err := r.db.GetContext(ctx, item, query, append([]any{itemID}, scopeArgs...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule item: %w", err)
	}
	return item, nil
}

// ListForDay retrieves a kid's items for date
func (r *ScheduleRepository) ListForDay(ctx context.Context, mode access.Mode, kidID int64, date string) ([]models.ScheduleItem, error) {
	scope, scopeArgs := mode.KidScope("kid_id")
	query := "SELECT " + scheduleColumns + " FROM schedule_items WHERE kid_id = ? AND item_date = ? AND " + scope + " ORDER BY id ASC"

	items := []models.ScheduleItem{}
	if err := r.db.SelectContext(ctx, &items, query, append([]any{kidID, date}, scopeArgs...)...); err != nil {
		return nil, fmt.Errorf("failed to query schedule items: %w", err)
	}
	return items, nil
}

// SetDone sets an item's completion state. Re-applying the current state still
// counts as a match; ErrNoRows means the item is missing or out of scope.
func (r *ScheduleRepository) SetDone(ctx context.Context, mode access.Mode, itemID int64, done bool, now time.Time) error {
	scope, scopeArgs := mode.KidScope("kid_id")

	var query string
	var args []any
	if done {
		query = "UPDATE schedule_items SET status = ?, completed_at = COALESCE(completed_at, ?), updated_at = ? WHERE id = ? AND " + scope
		args = []any{models.StatusCompleted, now.UTC(), now.UTC(), itemID}
	} else {
		query = "UPDATE schedule_items SET status = ?, completed_at = NULL, updated_at = ? WHERE id = ? AND " + scope
		args = []any{models.StatusPending, now.UTC(), itemID}
	}

	result, err := r.db.ExecContext(ctx, query, append(args, scopeArgs...)...)
	if err != nil {
		return fmt.Errorf("failed to update schedule item: %w", err)
	}
	return requireAffected(result, "schedule item")
}

// DeleteItem removes an item visible to mode
func (r *ScheduleRepository) DeleteItem(ctx context.Context, mode access.Mode, itemID int64) error {
	scope, scopeArgs := mode.KidScope("kid_id")
	result, err := r.db.ExecContext(ctx, "DELETE FROM schedule_items WHERE id = ? AND "+scope, append([]any{itemID}, scopeArgs...)...)
	if err != nil {
		return fmt.Errorf("failed to delete schedule item: %w", err)
	}
	return requireAffected(result, "schedule item")
}

// DayProgress counts a kid's items for a date
type DayProgress struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
}

// AllDone reports whether the day has items and every one is completed
func (p DayProgress) AllDone() bool {
	return p.Total > 0 && p.Completed == p.Total
}

// Progress returns the item counts for a kid and date
func (r *ScheduleRepository) Progress(ctx context.Context, mode access.Mode, kidID int64, date string) (DayProgress, error) {
	scope, scopeArgs := mode.KidScope("kid_id")
	query := `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed
		FROM schedule_items
		WHERE kid_id = ? AND item_date = ? AND ` + scope

	var p DayProgress
	if err := r.db.GetContext(ctx, &p, query, append([]any{kidID, date}, scopeArgs...)...); err != nil {
		return DayProgress{}, fmt.Errorf("failed to count schedule items: %w", err)
	}
	return p, nil
}
