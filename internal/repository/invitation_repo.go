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

const inviteColumns = "id, family_id, code, email, invited_by, status, created_at, expires_at, accepted_at, accepted_by"

// InvitationRepository handles family invites
type InvitationRepository struct {
	db database.DBTX
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *InvitationRepository) WithTx(tx *database.Tx) *InvitationRepository {
	return &InvitationRepository{db: tx}
}

// CreateInvite stores a pending invite for a family visible to mode
func (r *InvitationRepository) CreateInvite(ctx context.Context, mode access.Mode, invite *models.FamilyInvite) error {
	scope, scopeArgs := mode.FamilyScope("id")
	query := `
		INSERT INTO family_invites (family_id, code, email, invited_by, status, expires_at)
		SELECT id, ?, ?, ?, ?, ? FROM families WHERE id = ? AND ` + scope

	args := append([]any{invite.Code, invite.Email, invite.InvitedBy, models.InviteStatusPending, invite.ExpiresAt.UTC(), invite.FamilyID}, scopeArgs...)
	id, err := r.db.ExecReturningID(ctx, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create invite: %w", err)
	}

	invite.ID = id
	invite.Status = models.InviteStatusPending
	invite.CreatedAt = time.Now()
	return nil
}

// GetByCode retrieves an invite by its code. Invitees are not family members
// yet, so this lookup is unscoped.
func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (*models.FamilyInvite, error) {
	invite := &models.FamilyInvite{}
	err := r.db.GetContext(ctx, invite, "SELECT "+inviteColumns+" FROM family_invites WHERE code = ?", code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

// ListForFamily returns a family's invites, newest first
func (r *InvitationRepository) ListForFamily(ctx context.Context, mode access.Mode, familyID int64) ([]models.FamilyInvite, error) {
	scope, scopeArgs := mode.FamilyScope("family_id")
	query := "SELECT " + inviteColumns + " FROM family_invites WHERE family_id = ? AND " + scope + " ORDER BY id DESC"

	invites := []models.FamilyInvite{}
	if err := r.db.SelectContext(ctx, &invites, query, append([]any{familyID}, scopeArgs...)...); err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	return invites, nil
}

// MarkAccepted moves a pending invite to accepted. ErrNoRows means it was no
// longer pending.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, inviteID, userID int64, now time.Time) error {
	query := `
		UPDATE family_invites
		SET status = ?, accepted_at = ?, accepted_by = ?
		WHERE id = ? AND status = ?`
	result, err := r.db.ExecContext(ctx, query, models.InviteStatusAccepted, now.UTC(), userID, inviteID, models.InviteStatusPending)
	if err != nil {
		return fmt.Errorf("failed to accept invite: %w", err)
	}
	return requireAffected(result, "invite")
}

// ExpireStale marks pending invites past their expiry as expired
func (r *InvitationRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := "UPDATE family_invites SET status = ? WHERE status = ? AND expires_at < ?"
	result, err := r.db.ExecContext(ctx, query, models.InviteStatusExpired, models.InviteStatusPending, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire invites: %w", err)
	}
	return result.RowsAffected()
}
