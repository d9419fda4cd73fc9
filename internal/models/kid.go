package models

import (
	"strconv"
	"strings"
	"time"
)

// Kid represents a child profile in the system
type Kid struct {
	ID                int64      `db:"id" json:"id"`
	FamilyID          int64      `db:"family_id" json:"familyId"`
	Name              string     `db:"name" json:"name"`
	PinHash           string     `db:"pin_hash" json:"-"`
	FailedPinAttempts int        `db:"failed_pin_attempts" json:"-"`
	PinLockedUntil    *time.Time `db:"pin_locked_until" json:"-"`
	TotalStars        int        `db:"total_stars" json:"totalStars"`
	AvatarColor       string     `db:"avatar_color" json:"avatarColor"`
	AvatarItems       string     `db:"avatar_items" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"-"`
}

// IsLocked reports whether PIN entry is currently locked out
func (k *Kid) IsLocked(now time.Time) bool {
	return k.PinLockedUntil != nil && now.Before(*k.PinLockedUntil)
}

// HasPin reports whether a PIN has been set for the kid
func (k *Kid) HasPin() bool {
	return k.PinHash != ""
}

// EquippedItems parses the stored comma-separated list of equipped shop item ids
func (k *Kid) EquippedItems() []int64 {
	return ParseItemIDs(k.AvatarItems)
}

// ParseItemIDs parses a comma-separated id list, skipping malformed entries
func ParseItemIDs(s string) []int64 {
	ids := []int64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// FormatItemIDs renders ids in the stored comma-separated form
func FormatItemIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
