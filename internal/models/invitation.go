package models

import "time"

// Invite statuses
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
)

// FamilyInvite is a single-use, email-bound invitation into a family
type FamilyInvite struct {
	ID         int64      `db:"id" json:"id"`
	FamilyID   int64      `db:"family_id" json:"familyId"`
	Code       string     `db:"code" json:"code"`
	Email      string     `db:"email" json:"email"`
	InvitedBy  int64      `db:"invited_by" json:"invitedBy"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt"`
	AcceptedAt *time.Time `db:"accepted_at" json:"acceptedAt,omitempty"`
	AcceptedBy *int64     `db:"accepted_by" json:"acceptedBy,omitempty"`
}

func (i *FamilyInvite) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

func (i *FamilyInvite) IsPending() bool {
	return i.Status == InviteStatusPending
}

// IsUsable reports whether the invite can still be accepted
func (i *FamilyInvite) IsUsable(now time.Time) bool {
	return i.IsPending() && !i.IsExpired(now)
}
