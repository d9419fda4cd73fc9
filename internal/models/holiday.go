package models

import "time"

// Holiday is a family-wide day off
type Holiday struct {
	ID          int64     `db:"id" json:"id"`
	FamilyID    int64     `db:"family_id" json:"familyId"`
	HolidayDate string    `db:"holiday_date" json:"date"`
	Name        string    `db:"name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
