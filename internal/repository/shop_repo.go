package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lunara/internal/access"
	"lunara/internal/database"
	"lunara/internal/models"
)

// ShopRepository handles the shop catalog and owned items
type ShopRepository struct {
	db database.DBTX
}

// NewShopRepository creates a new shop repository
func NewShopRepository(db database.DBTX) *ShopRepository {
	return &ShopRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ShopRepository) WithTx(tx *database.Tx) *ShopRepository {
	return &ShopRepository{db: tx}
}

// ListCatalog returns every shop item, cheapest first
func (r *ShopRepository) ListCatalog(ctx context.Context) ([]models.ShopItem, error) {
	items := []models.ShopItem{}
	if err := r.db.SelectContext(ctx, &items, "SELECT id, name, slot, cost FROM shop_items ORDER BY cost ASC, id ASC"); err != nil {
		return nil, fmt.Errorf("failed to query shop items: %w", err)
	}
	return items, nil
}

// GetItem retrieves a shop item by id
func (r *ShopRepository) GetItem(ctx context.Context, itemID int64) (*models.ShopItem, error) {
	item := &models.ShopItem{}
	err := r.db.GetContext(ctx, item, "SELECT id, name, slot, cost FROM shop_items WHERE id = ?", itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop item: %w", err)
	}
	return item, nil
}

// ListOwned returns the items a kid owns
func (r *ShopRepository) ListOwned(ctx context.Context, mode access.Mode, kidID int64) ([]models.ShopItem, error) {
	scope, scopeArgs := mode.KidScope("o.kid_id")
	query := `
		SELECT s.id, s.name, s.slot, s.cost
		FROM owned_items o
		INNER JOIN shop_items s ON s.id = o.shop_item_id
		WHERE o.kid_id = ? AND ` + scope + `
		ORDER BY o.id ASC`

	items := []models.ShopItem{}
	if err := r.db.SelectContext(ctx, &items, query, append([]any{kidID}, scopeArgs...)...); err != nil {
		return nil, fmt.Errorf("failed to query owned items: %w", err)
	}
	for i := range items {
		items[i].Owned = true
	}
	return items, nil
}

// IsOwned reports whether a kid owns an item
func (r *ShopRepository) IsOwned(ctx context.Context, kidID, itemID int64) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM owned_items WHERE kid_id = ? AND shop_item_id = ?", kidID, itemID); err != nil {
		return false, fmt.Errorf("failed to check owned item: %w", err)
	}
	return count > 0, nil
}

// AddOwned records a purchase. It is only called after a scoped balance
// deduction in the same transaction.
func (r *ShopRepository) AddOwned(ctx context.Context, kidID, itemID int64) error {
	if _, err := r.db.ExecContext(ctx, "INSERT INTO owned_items (kid_id, shop_item_id) VALUES (?, ?)", kidID, itemID); err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to add owned item: %w", err)
	}
	return nil
}
