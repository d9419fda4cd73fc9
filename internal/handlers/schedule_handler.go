package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"lunara/internal/service"
)

// ScheduleHandler handles schedule items and moon awards
type ScheduleHandler struct {
	scheduleService *service.ScheduleService
	moonService     *service.MoonService
	logger          *zap.SugaredLogger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(scheduleService *service.ScheduleService, moonService *service.MoonService, logger *zap.SugaredLogger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		moonService:     moonService,
		logger:          logger,
	}
}

type createItemRequest struct {
	Title string `json:"title" validate:"notblank,max=200"`
	Date  string `json:"date" validate:"isodate"`
}

type setDoneRequest struct {
	Done *bool `json:"done" validate:"required"`
}

type claimBonusRequest struct {
	Date string `json:"date" validate:"omitempty,isodate"`
}

// CreateItem assigns an item to a kid
func (h *ScheduleHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	item, err := h.scheduleService.CreateItem(r.Context(), mode, kidID, req.Title, req.Date)
	respond(w, r, h.logger, item, err)
}

// Day lists a kid's items for the date query parameter, defaulting to today
func (h *ScheduleHandler) Day(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	view, err := h.scheduleService.Day(r.Context(), mode, kidID, r.URL.Query().Get("date"))
	respond(w, r, h.logger, view, err)
}

// SetDone sets an item's completion flag
func (h *ScheduleHandler) SetDone(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req setDoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	result, err := h.scheduleService.SetItemDone(r.Context(), mode, itemID, *req.Done)
	respond(w, r, h.logger, result, err)
}

// DeleteItem removes an item
func (h *ScheduleHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, nil, h.scheduleService.DeleteItem(r.Context(), mode, itemID))
}

// ClaimBonus claims the daily bonus for a completed day
func (h *ScheduleHandler) ClaimBonus(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req claimBonusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	result, err := h.moonService.ClaimDailyBonus(r.Context(), mode, kidID, req.Date)
	respond(w, r, h.logger, result, err)
}

// Balance returns a kid's moon total and streak
func (h *ScheduleHandler) Balance(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	balance, err := h.moonService.Balance(r.Context(), mode, kidID)
	respond(w, r, h.logger, balance, err)
}

// History returns a kid's recent moon awards
func (h *ScheduleHandler) History(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	awards, err := h.moonService.History(r.Context(), mode, kidID)
	respond(w, r, h.logger, awards, err)
}
