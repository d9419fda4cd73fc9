package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

// streakLookback bounds how many bonus days are read to compute a streak
const streakLookback = 366

// awardHistoryLimit bounds the ledger entries returned to callers
const awardHistoryLimit = 50

// ErrDayIncomplete is returned when a bonus is claimed before every item is done
var ErrDayIncomplete = apperr.New(apperr.ErrConflict, "Not every item is complete yet")

// BonusResult reports the outcome of a daily bonus claim
type BonusResult struct {
	KidID      int64  `json:"kidId"`
	Date       string `json:"date"`
	Awarded    bool   `json:"awarded"`
	Amount     int    `json:"amount"`
	TotalStars int    `json:"totalStars"`
}

// MoonService owns the moon ledger and balances
type MoonService struct {
	db           *database.DB
	moonRepo     *repository.MoonRepository
	kidRepo      *repository.KidRepository
	scheduleRepo *repository.ScheduleRepository
	clock        Clock
	logger       *zap.SugaredLogger
}

// NewMoonService creates a new moon service
func NewMoonService(db *database.DB, clock Clock, logger *zap.SugaredLogger) *MoonService {
	return &MoonService{
		db:           db,
		moonRepo:     repository.NewMoonRepository(db),
		kidRepo:      repository.NewKidRepository(db),
		scheduleRepo: repository.NewScheduleRepository(db),
		clock:        clock,
		logger:       logger,
	}
}

// awardTx writes a ledger row and credits the kid when the row is new. Callers
// must already have proven access to the kid inside tx.
func (s *MoonService) awardTx(ctx context.Context, tx *database.Tx, award models.MoonAward) (bool, error) {
	inserted, err := s.moonRepo.WithTx(tx).RecordAward(ctx, award)
	if err != nil || !inserted {
		return false, err
	}
	if err := s.kidRepo.WithTx(tx).AddStars(ctx, award.KidID, award.Amount); err != nil {
		return false, err
	}
	s.logger.Infow("moons awarded",
		"kid_id", award.KidID,
		"reason", award.Reason,
		"ref_id", award.RefID,
		"date", award.AwardDate,
		"amount", award.Amount,
	)
	return true, nil
}

// ClaimDailyBonus awards the daily bonus once per kid and date, provided the
// kid has at least one item that day and all of them are complete.
func (s *MoonService) ClaimDailyBonus(ctx context.Context, mode access.Mode, kidID int64, date string) (*BonusResult, error) {
	if date == "" {
		date = s.clock.TodayString()
	}
	if !validation.IsDate(date) {
		return nil, validation.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	if date > s.clock.TodayString() {
		return nil, validation.ValidationError{Field: "date", Message: "date cannot be in the future"}
	}

	result := &BonusResult{KidID: kidID, Date: date}
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		kid, err := s.kidRepo.WithTx(tx).GetKid(ctx, mode, kidID)
		if err != nil {
			return err
		}
		if kid == nil {
			return apperr.Unauthorized()
		}

		progress, err := s.scheduleRepo.WithTx(tx).Progress(ctx, mode, kidID, date)
		if err != nil {
			return err
		}
		if !progress.AllDone() {
			return ErrDayIncomplete
		}

		awarded, err := s.awardTx(ctx, tx, models.MoonAward{
			KidID:     kidID,
			Reason:    models.AwardDailyBonus,
			AwardDate: date,
			Amount:    models.DailyBonusStars,
		})
		if err != nil {
			return err
		}

		result.Awarded = awarded
		result.TotalStars = kid.TotalStars
		if awarded {
			result.Amount = models.DailyBonusStars
			result.TotalStars += models.DailyBonusStars
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Balance returns the kid's authoritative moon total and bonus streak
func (s *MoonService) Balance(ctx context.Context, mode access.Mode, kidID int64) (*models.MoonBalance, error) {
	kid, err := s.kidRepo.GetKid(ctx, mode, kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, apperr.Unauthorized()
	}

	dates, err := s.moonRepo.BonusDates(ctx, mode, kidID, streakLookback)
	if err != nil {
		return nil, fmt.Errorf("failed to load bonus dates: %w", err)
	}

	return &models.MoonBalance{
		KidID:      kid.ID,
		TotalStars: kid.TotalStars,
		Streak:     models.CurrentStreak(dates, s.clock.Today()),
	}, nil
}

// History returns the kid's most recent ledger entries
func (s *MoonService) History(ctx context.Context, mode access.Mode, kidID int64) ([]models.MoonAward, error) {
	return s.moonRepo.ListAwards(ctx, mode, kidID, awardHistoryLimit)
}
