package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

// ItemDoneResult reports the state after a completion toggle
type ItemDoneResult struct {
	ItemID  int64 `json:"itemId"`
	KidID   int64 `json:"kidId"`
	Done    bool  `json:"done"`
	Awarded int   `json:"awarded"`
}

// DayView is a kid's work for one date
type DayView struct {
	KidID     int64                 `json:"kidId"`
	Date      string                `json:"date"`
	Holiday   bool                  `json:"holiday"`
	Items     []models.ScheduleItem `json:"items"`
	Total     int                   `json:"total"`
	Completed int                   `json:"completed"`
}

// ScheduleService manages kids' daily work items
type ScheduleService struct {
	db           *database.DB
	scheduleRepo *repository.ScheduleRepository
	holidayRepo  *repository.HolidayRepository
	moons        *MoonService
	clock        Clock
	logger       *zap.SugaredLogger
}

// NewScheduleService creates a new schedule service
func NewScheduleService(db *database.DB, moons *MoonService, clock Clock, logger *zap.SugaredLogger) *ScheduleService {
	return &ScheduleService{
		db:           db,
		scheduleRepo: repository.NewScheduleRepository(db),
		holidayRepo:  repository.NewHolidayRepository(db),
		moons:        moons,
		clock:        clock,
		logger:       logger,
	}
}

func checkDate(date string) error {
	if !validation.IsDate(date) {
		return validation.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	return nil
}

// CreateItem assigns a new item to a kid on date
func (s *ScheduleService) CreateItem(ctx context.Context, mode access.Mode, kidID int64, title, date string) (*models.ScheduleItem, error) {
	if !access.IsParent(mode) {
		return nil, ErrParentOnly
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validation.ValidationError{Field: "title", Message: "title is required"}
	}
	if err := checkDate(date); err != nil {
		return nil, err
	}

	item, err := s.scheduleRepo.CreateItem(ctx, mode, kidID, title, date)
	if err := scoped(err); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns a kid's items for date
func (s *ScheduleService) ListItems(ctx context.Context, mode access.Mode, kidID int64, date string) ([]models.ScheduleItem, error) {
	if date == "" {
		date = s.clock.TodayString()
	}
	if err := checkDate(date); err != nil {
		return nil, err
	}
	return s.scheduleRepo.ListForDay(ctx, mode, kidID, date)
}

// Day returns a kid's items for date along with holiday and progress state
func (s *ScheduleService) Day(ctx context.Context, mode access.Mode, kidID int64, date string) (*DayView, error) {
	items, err := s.ListItems(ctx, mode, kidID, date)
	if err != nil {
		return nil, err
	}
	if date == "" {
		date = s.clock.TodayString()
	}

	holiday, err := s.holidayRepo.IsHoliday(ctx, mode, kidID, date)
	if err != nil {
		return nil, err
	}

	view := &DayView{KidID: kidID, Date: date, Holiday: holiday, Items: items, Total: len(items)}
	for i := range items {
		if items[i].IsDone() {
			view.Completed++
		}
	}
	return view, nil
}

// SetItemDone sets an item's completion flag. Repeating the same value is not
// an error. The first completion of an item awards moons once; the award is
// keyed on the item's own date, so toggling off and on again on any later day
// does not award a second time.
func (s *ScheduleService) SetItemDone(ctx context.Context, mode access.Mode, itemID int64, done bool) (*ItemDoneResult, error) {
	result := &ItemDoneResult{ItemID: itemID, Done: done}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		items := s.scheduleRepo.WithTx(tx)
		if err := items.SetDone(ctx, mode, itemID, done, s.clock.now()); err != nil {
			return scoped(err)
		}

		item, err := items.GetItem(ctx, mode, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.Unauthorized()
		}
		result.KidID = item.KidID

		if !done {
			return nil
		}

		awarded, err := s.moons.awardTx(ctx, tx, models.MoonAward{
			KidID:     item.KidID,
			Reason:    models.AwardItemCompletion,
			RefID:     item.ID,
			AwardDate: item.ItemDate,
			Amount:    models.ItemCompletionStars,
		})
		if err != nil {
			return err
		}
		if awarded {
			result.Awarded = models.ItemCompletionStars
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteItem removes an item
func (s *ScheduleService) DeleteItem(ctx context.Context, mode access.Mode, itemID int64) error {
	if !access.IsParent(mode) {
		return ErrParentOnly
	}
	return scoped(s.scheduleRepo.DeleteItem(ctx, mode, itemID))
}
