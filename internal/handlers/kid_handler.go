package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"lunara/internal/kidsession"
	"lunara/internal/models"
	"lunara/internal/service"
)

// KidHandler handles kid sign-in and the kid portal
type KidHandler struct {
	familyService   *service.FamilyService
	scheduleService *service.ScheduleService
	moonService     *service.MoonService
	shopService     *service.ShopService
	sessions        *kidsession.Store
	logger          *zap.SugaredLogger
}

// NewKidHandler creates a new kid handler
func NewKidHandler(familyService *service.FamilyService, scheduleService *service.ScheduleService, moonService *service.MoonService, shopService *service.ShopService, sessions *kidsession.Store, logger *zap.SugaredLogger) *KidHandler {
	return &KidHandler{
		familyService:   familyService,
		scheduleService: scheduleService,
		moonService:     moonService,
		shopService:     shopService,
		sessions:        sessions,
		logger:          logger,
	}
}

type kidLoginRequest struct {
	KidID    int64  `json:"kidId" validate:"required,gt=0"`
	PIN      string `json:"pin" validate:"pin"`
	Remember bool   `json:"remember"`
}

type kidLoginResponse struct {
	KidID int64  `json:"kidId"`
	Name  string `json:"name"`
	Home  string `json:"home"`
}

// Login verifies a kid's PIN and starts a kid session. With remember set the
// cookie persists; otherwise it lasts for the browser session.
func (h *KidHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req kidLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	kid, err := h.familyService.VerifyKidPIN(r.Context(), req.KidID, req.PIN)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	var maxAge = h.sessions.MaxAge()
	if !req.Remember {
		maxAge = 0
	}
	kidID := strconv.FormatInt(kid.ID, 10)
	if err := h.sessions.Create(w, r, kidID, kid.Name, maxAge); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	h.logger.Infow("kid signed in", "kid_id", kid.ID, "remember", req.Remember)
	respond(w, r, h.logger, kidLoginResponse{KidID: kid.ID, Name: kid.Name, Home: "/kid/" + kidID}, nil)
}

// Logout clears the kid session
func (h *KidHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w, r)
	respond(w, r, h.logger, nil, nil)
}

type portalView struct {
	Kid     *models.Kid         `json:"kid"`
	Today   *service.DayView    `json:"today"`
	Balance *models.MoonBalance `json:"balance"`
	Avatar  *models.AvatarState `json:"avatar"`
}

// Portal returns everything the kid portal shows for today
func (h *KidHandler) Portal(w http.ResponseWriter, r *http.Request) {
	mode, kidID, err := kidScope(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	ctx := r.Context()

	var view portalView
	if view.Kid, err = h.familyService.GetKid(ctx, mode, kidID); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if view.Today, err = h.scheduleService.Day(ctx, mode, kidID, ""); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	if view.Balance, err = h.moonService.Balance(ctx, mode, kidID); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	view.Avatar, err = h.shopService.Avatar(ctx, mode, kidID)
	respond(w, r, h.logger, view, err)
}
