package models

import "time"

// Family membership roles
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Family represents a group of parents managing kids together
type Family struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"-"`
}

// FamilyMember represents the relationship between a user and a family
type FamilyMember struct {
	ID       int64     `db:"id" json:"id"`
	FamilyID int64     `db:"family_id" json:"familyId"`
	UserID   int64     `db:"user_id" json:"userId"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joinedAt"`

	// Populated via JOIN on users
	Name  string `db:"name" json:"name,omitempty"`
	Email string `db:"email" json:"email,omitempty"`
}

// IsOwner reports whether the member owns the family
func (m *FamilyMember) IsOwner() bool {
	return m.Role == RoleOwner
}
