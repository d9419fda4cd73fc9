package service

import (
	"context"
	"errors"
	"strings"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

// HolidayService manages family-wide days off
type HolidayService struct {
	holidayRepo *repository.HolidayRepository
}

// NewHolidayService creates a new holiday service
func NewHolidayService(db *database.DB) *HolidayService {
	return &HolidayService{holidayRepo: repository.NewHolidayRepository(db)}
}

// Create adds a holiday to a family
func (s *HolidayService) Create(ctx context.Context, mode access.Mode, familyID int64, date, name string) (*models.Holiday, error) {
	if !access.IsParent(mode) {
		return nil, ErrParentOnly
	}
	if err := checkDate(date); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.ValidationError{Field: "name", Message: "name is required"}
	}

	holiday, err := s.holidayRepo.CreateHoliday(ctx, mode, familyID, date, name)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.New(apperr.ErrConflict, "A holiday already exists on that date")
	}
	if err := scoped(err); err != nil {
		return nil, err
	}
	return holiday, nil
}

// List returns a family's holidays between from and to inclusive
func (s *HolidayService) List(ctx context.Context, mode access.Mode, familyID int64, from, to string) ([]models.Holiday, error) {
	if err := checkDate(from); err != nil {
		return nil, err
	}
	if err := checkDate(to); err != nil {
		return nil, err
	}
	if from > to {
		return nil, validation.ValidationError{Field: "from", Message: "from must not be after to"}
	}
	return s.holidayRepo.ListHolidays(ctx, mode, familyID, from, to)
}

// Delete removes a holiday
func (s *HolidayService) Delete(ctx context.Context, mode access.Mode, holidayID int64) error {
	if !access.IsParent(mode) {
		return ErrParentOnly
	}
	return scoped(s.holidayRepo.DeleteHoliday(ctx, mode, holidayID))
}
