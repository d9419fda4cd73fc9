package models

import "time"

// Award reasons recorded in the moon ledger
const (
	AwardItemCompletion = "item_completion"
	AwardDailyBonus     = "daily_bonus"
)

// Award amounts
const (
	ItemCompletionStars = 5
	DailyBonusStars     = 10
)

// MoonAward is one ledger entry; (kid, reason, ref, date) is unique
type MoonAward struct {
	ID        int64     `db:"id" json:"id"`
	KidID     int64     `db:"kid_id" json:"kidId"`
	Reason    string    `db:"reason" json:"reason"`
	RefID     int64     `db:"ref_id" json:"refId"`
	AwardDate string    `db:"award_date" json:"date"`
	Amount    int       `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// MoonBalance is the authoritative currency view for a kid
type MoonBalance struct {
	KidID      int64 `json:"kidId"`
	TotalStars int   `json:"totalStars"`
	Streak     int   `json:"streak"`
}

// CurrentStreak counts consecutive bonus days ending today or yesterday.
// dates must be sorted newest first in DateLayout form.
func CurrentStreak(dates []string, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	day := today.Format(DateLayout)
	yesterday := today.AddDate(0, 0, -1).Format(DateLayout)

	var cursor time.Time
	switch dates[0] {
	case day:
		cursor = today
	case yesterday:
		cursor = today.AddDate(0, 0, -1)
	default:
		return 0
	}

	streak := 0
	for _, d := range dates {
		if d != cursor.Format(DateLayout) {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
