package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"lunara/internal/access"
	"lunara/internal/apperr"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

var (
	ErrAlreadyOwned   = apperr.New(apperr.ErrConflict, "Item already owned")
	ErrNotEnoughMoons = apperr.New(apperr.ErrConflict, "Not enough moons")
	ErrItemNotOwned   = validation.ValidationError{Field: "equipped", Message: "only owned items can be equipped"}
)

// PurchaseResult reports a completed purchase
type PurchaseResult struct {
	Item       models.ShopItem `json:"item"`
	TotalStars int             `json:"totalStars"`
}

// ShopService sells avatar items for moons and manages the avatar look
type ShopService struct {
	db       *database.DB
	shopRepo *repository.ShopRepository
	kidRepo  *repository.KidRepository
	logger   *zap.SugaredLogger
}

// NewShopService creates a new shop service
func NewShopService(db *database.DB, logger *zap.SugaredLogger) *ShopService {
	return &ShopService{
		db:       db,
		shopRepo: repository.NewShopRepository(db),
		kidRepo:  repository.NewKidRepository(db),
		logger:   logger,
	}
}

// Catalog lists every item, flagging those the kid already owns. A kid outside
// mode's scope is unauthorized.
func (s *ShopService) Catalog(ctx context.Context, mode access.Mode, kidID int64) ([]models.ShopItem, error) {
	kid, err := s.kidRepo.GetKid(ctx, mode, kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, apperr.Unauthorized()
	}

	catalog, err := s.shopRepo.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := s.shopRepo.ListOwned(ctx, mode, kidID)
	if err != nil {
		return nil, err
	}

	ownedIDs := make(map[int64]bool, len(owned))
	for _, item := range owned {
		ownedIDs[item.ID] = true
	}
	for i := range catalog {
		catalog[i].Owned = ownedIDs[catalog[i].ID]
	}
	return catalog, nil
}

// Purchase buys an item for a kid. The balance check and deduction are a
// single guarded update.
func (s *ShopService) Purchase(ctx context.Context, mode access.Mode, kidID, itemID int64) (*PurchaseResult, error) {
	item, err := s.shopRepo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.New(apperr.ErrNotFound, "Item not found")
	}

	result := &PurchaseResult{Item: *item}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		kids := s.kidRepo.WithTx(tx)
		shop := s.shopRepo.WithTx(tx)

		kid, err := kids.GetKid(ctx, mode, kidID)
		if err != nil {
			return err
		}
		if kid == nil {
			return apperr.Unauthorized()
		}

		owned, err := shop.IsOwned(ctx, kidID, itemID)
		if err != nil {
			return err
		}
		if owned {
			return ErrAlreadyOwned
		}

		err = kids.SpendStars(ctx, mode, kidID, item.Cost)
		if errors.Is(err, repository.ErrNoRows) {
			return ErrNotEnoughMoons
		}
		if err != nil {
			return err
		}

		err = shop.AddOwned(ctx, kidID, itemID)
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyOwned
		}
		if err != nil {
			return err
		}

		result.Item.Owned = true
		result.TotalStars = kid.TotalStars - item.Cost
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("shop item purchased", "kid_id", kidID, "item_id", itemID, "cost", item.Cost, "actor", mode.Actor())
	return result, nil
}

// Avatar returns the kid's current look and owned items
func (s *ShopService) Avatar(ctx context.Context, mode access.Mode, kidID int64) (*models.AvatarState, error) {
	kid, err := s.kidRepo.GetKid(ctx, mode, kidID)
	if err != nil {
		return nil, err
	}
	if kid == nil {
		return nil, apperr.Unauthorized()
	}

	owned, err := s.shopRepo.ListOwned(ctx, mode, kidID)
	if err != nil {
		return nil, err
	}

	return &models.AvatarState{
		KidID:    kid.ID,
		Color:    kid.AvatarColor,
		Equipped: kid.EquippedItems(),
		Owned:    owned,
	}, nil
}

// UpdateAvatar stores a new colour and equipped set. Every equipped item must
// be owned, and at most one item per slot may be worn.
func (s *ShopService) UpdateAvatar(ctx context.Context, mode access.Mode, kidID int64, color string, equipped []int64) (*models.AvatarState, error) {
	if err := validation.ValidateColor(color); err != nil {
		return nil, err
	}

	owned, err := s.shopRepo.ListOwned(ctx, mode, kidID)
	if err != nil {
		return nil, err
	}
	bySlot := make(map[string]bool, len(owned))
	ownedByID := make(map[int64]models.ShopItem, len(owned))
	for _, item := range owned {
		ownedByID[item.ID] = item
	}

	seen := make(map[int64]bool, len(equipped))
	items := make([]int64, 0, len(equipped))
	for _, id := range equipped {
		if seen[id] {
			continue
		}
		seen[id] = true

		item, ok := ownedByID[id]
		if !ok {
			return nil, ErrItemNotOwned
		}
		if bySlot[item.Slot] {
			return nil, validation.ValidationError{Field: "equipped", Message: "only one item per slot can be equipped"}
		}
		bySlot[item.Slot] = true
		items = append(items, id)
	}

	if err := scoped(s.kidRepo.UpdateAvatar(ctx, mode, kidID, color, models.FormatItemIDs(items))); err != nil {
		return nil, err
	}

	return &models.AvatarState{KidID: kidID, Color: color, Equipped: items, Owned: owned}, nil
}
