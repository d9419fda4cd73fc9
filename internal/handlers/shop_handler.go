package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"lunara/internal/service"
)

// ShopHandler handles the moon shop and avatar customisation
type ShopHandler struct {
	shopService *service.ShopService
	logger      *zap.SugaredLogger
}

// NewShopHandler creates a new shop handler
func NewShopHandler(shopService *service.ShopService, logger *zap.SugaredLogger) *ShopHandler {
	return &ShopHandler{shopService: shopService, logger: logger}
}

type updateAvatarRequest struct {
	Color    string  `json:"color" validate:"required"`
	Equipped []int64 `json:"equipped" validate:"max=16"`
}

// Catalog lists shop items with the kid's ownership flags
func (h *ShopHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	items, err := h.shopService.Catalog(r.Context(), mode, kidID)
	respond(w, r, h.logger, items, err)
}

// Purchase buys a shop item for the kid
func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	result, err := h.shopService.Purchase(r.Context(), mode, kidID, itemID)
	respond(w, r, h.logger, result, err)
}

// Avatar returns the kid's avatar state
func (h *ShopHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	state, err := h.shopService.Avatar(r.Context(), mode, kidID)
	respond(w, r, h.logger, state, err)
}

// UpdateAvatar stores the kid's colour and equipped items
func (h *ShopHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req updateAvatarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	state, err := h.shopService.UpdateAvatar(r.Context(), mode, kidID, req.Color, req.Equipped)
	respond(w, r, h.logger, state, err)
}
