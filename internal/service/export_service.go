package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
)

// exportAwardLimit caps the ledger entries exported per kid
const exportAwardLimit = 100000

// KidExport is one kid's data in a family export
type KidExport struct {
	Kid    models.Kid         `json:"kid"`
	Awards []models.MoonAward `json:"awards"`
	Owned  []models.ShopItem  `json:"owned"`
}

// FamilyExport is a JSON snapshot of one family
type FamilyExport struct {
	ExportedAt time.Time             `json:"exportedAt"`
	Family     *models.Family        `json:"family"`
	Members    []models.FamilyMember `json:"members"`
	Kids       []KidExport           `json:"kids"`
	Holidays   []models.Holiday      `json:"holidays"`
	Invites    []models.FamilyInvite `json:"invites"`
}

// ExportService produces family snapshots
type ExportService struct {
	familyRepo  *repository.FamilyRepository
	kidRepo     *repository.KidRepository
	moonRepo    *repository.MoonRepository
	shopRepo    *repository.ShopRepository
	holidayRepo *repository.HolidayRepository
	inviteRepo  *repository.InvitationRepository
	clock       Clock
}

// NewExportService creates a new export service
func NewExportService(db *database.DB, clock Clock) *ExportService {
	return &ExportService{
		familyRepo:  repository.NewFamilyRepository(db),
		kidRepo:     repository.NewKidRepository(db),
		moonRepo:    repository.NewMoonRepository(db),
		shopRepo:    repository.NewShopRepository(db),
		holidayRepo: repository.NewHolidayRepository(db),
		inviteRepo:  repository.NewInvitationRepository(db),
		clock:       clock,
	}
}

// ExportFamily collects everything mode may see about a family
func (s *ExportService) ExportFamily(ctx context.Context, mode access.Mode, familyID int64) (*FamilyExport, error) {
	if !access.IsParent(mode) {
		return nil, ErrParentOnly
	}

	family, err := s.familyRepo.GetFamily(ctx, mode, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, apperr.Unauthorized()
	}

	out := &FamilyExport{ExportedAt: s.clock.now(), Family: family}
	if out.Members, err = s.familyRepo.GetMembers(ctx, mode, familyID); err != nil {
		return nil, err
	}
	if out.Holidays, err = s.holidayRepo.ListHolidays(ctx, mode, familyID, "0000-01-01", "9999-12-31"); err != nil {
		return nil, err
	}
	if out.Invites, err = s.inviteRepo.ListForFamily(ctx, mode, familyID); err != nil {
		return nil, err
	}

	kids, err := s.kidRepo.GetFamilyKids(ctx, mode, familyID)
	if err != nil {
		return nil, err
	}
	out.Kids = make([]KidExport, 0, len(kids))
	for _, kid := range kids {
		ke := KidExport{Kid: kid}
		if ke.Awards, err = s.moonRepo.ListAwards(ctx, mode, kid.ID, exportAwardLimit); err != nil {
			return nil, err
		}
		if ke.Owned, err = s.shopRepo.ListOwned(ctx, mode, kid.ID); err != nil {
			return nil, err
		}
		out.Kids = append(out.Kids, ke)
	}
	return out, nil
}

// ExportToFile writes a family snapshot to path as indented JSON
func (s *ExportService) ExportToFile(ctx context.Context, mode access.Mode, familyID int64, path string) error {
	snapshot, err := s.ExportFamily(ctx, mode, familyID)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
