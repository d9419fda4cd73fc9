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

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *FamilyRepository) WithTx(tx *database.Tx) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

// CreateFamily inserts a family row. Callers add the first member.
func (r *FamilyRepository) CreateFamily(ctx context.Context, name string) (*models.Family, error) {
	id, err := r.db.ExecReturningID(ctx, "INSERT INTO families (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	now := time.Now()
	return &models.Family{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// AddMember adds a user to a family
func (r *FamilyRepository) AddMember(ctx context.Context, familyID, userID int64, role string) error {
	query := "INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, familyID, userID, role); err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to add family member: %w", err)
	}
	return nil
}

// GetFamily retrieves a family visible to mode
func (r *FamilyRepository) GetFamily(ctx context.Context, mode access.Mode, familyID int64) (*models.Family, error) {
	scope, scopeArgs := mode.FamilyScope("id")
	query := "SELECT id, name, created_at, updated_at FROM families WHERE id = ? AND " + scope

	family := &models.Family{}
	err := r.db.GetContext(ctx, family, query, append([]any{familyID}, scopeArgs...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetUserFamilies retrieves all families a user belongs to
func (r *FamilyRepository) GetUserFamilies(ctx context.Context, userID int64) ([]models.Family, error) {
	query := `
		SELECT f.id, f.name, f.created_at, f.updated_at
		FROM families f
		INNER JOIN family_members fm ON f.id = fm.family_id
		WHERE fm.user_id = ?
		ORDER BY f.id ASC
	`
	families := []models.Family{}
	if err := r.db.SelectContext(ctx, &families, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	return families, nil
}

// GetMembership returns the membership of userID in familyID, or nil
func (r *FamilyRepository) GetMembership(ctx context.Context, familyID, userID int64) (*models.FamilyMember, error) {
	query := "SELECT id, family_id, user_id, role, joined_at FROM family_members WHERE family_id = ? AND user_id = ?"

	member := &models.FamilyMember{}
	err := r.db.GetContext(ctx, member, query, familyID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family membership: %w", err)
	}
	return member, nil
}

// GetMembers retrieves the members of a family visible to mode
func (r *FamilyRepository) GetMembers(ctx context.Context, mode access.Mode, familyID int64) ([]models.FamilyMember, error) {
	scope, scopeArgs := mode.FamilyScope("fm.family_id")
	query := `
		SELECT fm.id, fm.family_id, fm.user_id, fm.role, fm.joined_at, u.name, u.email
		FROM family_members fm
		INNER JOIN users u ON fm.user_id = u.id
		WHERE fm.family_id = ? AND ` + scope + `
		ORDER BY fm.joined_at ASC, fm.id ASC
	`
	members := []models.FamilyMember{}
	if err := r.db.SelectContext(ctx, &members, query, append([]any{familyID}, scopeArgs...)...); err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	return members, nil
}

// UpdateFamilyName renames a family visible to mode
func (r *FamilyRepository) UpdateFamilyName(ctx context.Context, mode access.Mode, familyID int64, name string) error {
	scope, scopeArgs := mode.FamilyScope("id")
	query := "UPDATE families SET name = ?, updated_at = ? WHERE id = ? AND " + scope

	args := append([]any{name, time.Now().UTC(), familyID}, scopeArgs...)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return requireAffected(result, "family update")
}
