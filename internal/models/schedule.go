package models

import "time"

// Schedule item statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// DateLayout is the storage format for calendar dates
const DateLayout = "2006-01-02"

// ScheduleItem is a single piece of assigned work for a kid on a day
type ScheduleItem struct {
	ID          int64      `db:"id" json:"id"`
	KidID       int64      `db:"kid_id" json:"kidId"`
	Title       string     `db:"title" json:"title"`
	ItemDate    string     `db:"item_date" json:"date"`
	Status      string     `db:"status" json:"status"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"-"`
}

// IsDone reports whether the item is completed
func (s *ScheduleItem) IsDone() bool {
	return s.Status == StatusCompleted
}

// StatusFor maps a done flag to the stored status
func StatusFor(done bool) string {
	if done {
		return StatusCompleted
	}
	return StatusPending
}
