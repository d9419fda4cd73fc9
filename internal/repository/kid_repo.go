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

const kidColumns = `id, family_id, name, pin_hash, failed_pin_attempts, pin_locked_until,
	total_stars, avatar_color, avatar_items, created_at, updated_at`

// KidRepository handles database operations for kids
type KidRepository struct {
	db database.DBTX
}

// NewKidRepository creates a new kid repository
func NewKidRepository(db database.DBTX) *KidRepository {
	return &KidRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *KidRepository) WithTx(tx *database.Tx) *KidRepository {
	return &KidRepository{db: tx}
}

// CreateKid creates a kid in a family visible to mode
func (r *KidRepository) CreateKid(ctx context.Context, mode access.Mode, familyID int64, name, pinHash, avatarColor string) (*models.Kid, error) {
	scope, scopeArgs := mode.FamilyScope("id")
	query := `
		INSERT INTO kids (family_id, name, pin_hash, avatar_color)
		SELECT id, ?, ?, ? FROM families WHERE id = ? AND ` + scope

	args := append([]any{name, pinHash, avatarColor, familyID}, scopeArgs...)
	kidID, err := r.db.ExecReturningID(ctx, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create kid: %w", err)
	}

	now := time.Now()
	return &models.Kid{
		ID:          kidID,
		FamilyID:    familyID,
		Name:        name,
		PinHash:     pinHash,
		AvatarColor: avatarColor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetKid retrieves a kid visible to mode
func (r *KidRepository) GetKid(ctx context.Context, mode access.Mode, kidID int64) (*models.Kid, error) {
	scope, scopeArgs := mode.KidRowScope("id", "family_id")
	return r.getKid(ctx, "id = ? AND "+scope, append([]any{kidID}, scopeArgs...)...)
}

// GetKidForLogin retrieves a kid without an access scope. It serves PIN
// verification, which runs before any identity exists.
func (r *KidRepository) GetKidForLogin(ctx context.Context, kidID int64) (*models.Kid, error) {
	return r.getKid(ctx, "id = ?", kidID)
}

func (r *KidRepository) getKid(ctx context.Context, where string, args ...any) (*models.Kid, error) {
	kid := &models.Kid{}
	err := r.db.GetContext(ctx, kid, "SELECT "+kidColumns+" FROM kids WHERE "+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kid: %w", err)
	}
	return kid, nil
}

// GetFamilyKids retrieves the kids of a family visible to mode
func (r *KidRepository) GetFamilyKids(ctx context.Context, mode access.Mode, familyID int64) ([]models.Kid, error) {
	scope, scopeArgs := mode.KidRowScope("id", "family_id")
	query := "SELECT " + kidColumns + " FROM kids WHERE family_id = ? AND " + scope + " ORDER BY created_at ASC, id ASC"

	kids := []models.Kid{}
	if err := r.db.SelectContext(ctx, &kids, query, append([]any{familyID}, scopeArgs...)...); err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	return kids, nil
}

// GetVisibleKids retrieves every kid mode can see
func (r *KidRepository) GetVisibleKids(ctx context.Context, mode access.Mode) ([]models.Kid, error) {
	scope, scopeArgs := mode.KidRowScope("id", "family_id")
	query := "SELECT " + kidColumns + " FROM kids WHERE " + scope + " ORDER BY family_id ASC, id ASC"

	kids := []models.Kid{}
	if err := r.db.SelectContext(ctx, &kids, query, scopeArgs...); err != nil {
		return nil, fmt.Errorf("failed to query kids: %w", err)
	}
	return kids, nil
}

// SetPinHash replaces a kid's PIN and clears any lockout
func (r *KidRepository) SetPinHash(ctx context.Context, mode access.Mode, kidID int64, pinHash string) error {
	scope, scopeArgs := mode.KidRowScope("id", "family_id")
	query := `
		UPDATE kids
		SET pin_hash = ?, failed_pin_attempts = 0, pin_locked_until = NULL, updated_at = ?
		WHERE id = ? AND ` + scope

	args := append([]any{pinHash, time.Now().UTC(), kidID}, scopeArgs...)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set kid pin: %w", err)
	}
	return requireAffected(result, "kid pin")
}

// RecordPinFailure counts a failed PIN attempt in the database. Once the
// count reaches maxAttempts the kid is locked until lockedUntil and the count
// starts over; locked reports whether this call applied the lock.
func (r *KidRepository) RecordPinFailure(ctx context.Context, kidID int64, maxAttempts int, lockedUntil time.Time) (locked bool, err error) {
	query := "UPDATE kids SET failed_pin_attempts = failed_pin_attempts + 1 WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, kidID); err != nil {
		return false, fmt.Errorf("failed to record pin failure: %w", err)
	}

	query = `
		UPDATE kids SET failed_pin_attempts = 0, pin_locked_until = ?
		WHERE id = ? AND failed_pin_attempts >= ?
	`
	result, err := r.db.ExecContext(ctx, query, lockedUntil.UTC(), kidID, maxAttempts)
	if err != nil {
		return false, fmt.Errorf("failed to lock kid pin: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to lock kid pin: %w", err)
	}
	return n > 0, nil
}

// ResetPinFailures clears the failed attempt counter and lockout
func (r *KidRepository) ResetPinFailures(ctx context.Context, kidID int64) error {
	query := "UPDATE kids SET failed_pin_attempts = 0, pin_locked_until = NULL WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, kidID)
	if err != nil {
		return fmt.Errorf("failed to reset pin failures: %w", err)
	}
	return requireAffected(result, "kid pin reset")
}

// UpdateAvatar stores the avatar colour and equipped item list
func (r *KidRepository) UpdateAvatar(ctx context.Context, mode access.Mode, kidID int64, color, items string) error {
	scope, scopeArgs := mode.KidRowScope("id", "family_id")
	query := "UPDATE kids SET avatar_color = ?, avatar_items = ?, updated_at = ? WHERE id = ? AND " + scope

	args := append([]any{color, items, time.Now().UTC(), kidID}, scopeArgs...)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	return requireAffected(result, "avatar")
}

// AddStars increases a kid's balance. It is only called after a scoped write
// in the same transaction has proven access to the kid.
func (r *KidRepository) AddStars(ctx context.Context, kidID int64, amount int) error {
	query := "UPDATE kids SET total_stars = total_stars + ?, updated_at = ? WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, amount, time.Now().UTC(), kidID)
	if err != nil {
		return fmt.Errorf("failed to add stars: %w", err)
	}
	return requireAffected(result, "stars")
}

// SpendStars deducts cost when the balance covers it. ErrNoRows means the kid is
// out of scope or cannot afford it.
func (r *KidRepository) SpendStars(ctx context.Context, mode access.Mode, kidID int64, cost int) error {
	scope, scopeArgs := mode.KidRowScope("id", "family_id")
	query := `
		UPDATE kids SET total_stars = total_stars - ?, updated_at = ?
		WHERE id = ? AND total_stars >= ? AND ` + scope

	args := append([]any{cost, time.Now().UTC(), kidID, cost}, scopeArgs...)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to spend stars: %w", err)
	}
	return requireAffected(result, "stars")
}
