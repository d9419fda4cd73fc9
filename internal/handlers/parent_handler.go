package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"lunara/internal/models"
	"lunara/internal/service"
)

// ParentHandler handles family management requests
type ParentHandler struct {
	familyService  *service.FamilyService
	inviteService  *service.InviteService
	holidayService *service.HolidayService
	logger         *zap.SugaredLogger
}

// NewParentHandler creates a new parent handler
func NewParentHandler(familyService *service.FamilyService, inviteService *service.InviteService, holidayService *service.HolidayService, logger *zap.SugaredLogger) *ParentHandler {
	return &ParentHandler{
		familyService:  familyService,
		inviteService:  inviteService,
		holidayService: holidayService,
		logger:         logger,
	}
}

type familyRequest struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

type createKidRequest struct {
	Name  string `json:"name" validate:"notblank,max=50"`
	PIN   string `json:"pin" validate:"omitempty,pin"`
	Color string `json:"color"`
}

type createKidResponse struct {
	Kid *models.Kid `json:"kid"`
	PIN string      `json:"pin"`
}

type setPINRequest struct {
	PIN string `json:"pin" validate:"pin"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type acceptInviteRequest struct {
	Code string `json:"code" validate:"notblank"`
}

type holidayRequest struct {
	Date string `json:"date" validate:"isodate"`
	Name string `json:"name" validate:"notblank,max=100"`
}

// Families lists the parent's families
func (h *ParentHandler) Families(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	families, err := h.familyService.ListFamilies(r.Context(), mode)
	respond(w, r, h.logger, families, err)
}

// CreateFamily creates a family owned by the parent
func (h *ParentHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req familyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	family, err := h.familyService.CreateFamily(r.Context(), mode, req.Name)
	respond(w, r, h.logger, family, err)
}

// Family returns a family with its members and kids
func (h *ParentHandler) Family(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	familyID, err := pathID(r, "familyID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	overview, err := h.familyService.Overview(r.Context(), mode, familyID)
	respond(w, r, h.logger, overview, err)
}

// RenameFamily changes a family's name
func (h *ParentHandler) RenameFamily(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	familyID, err := pathID(r, "familyID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req familyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, nil, h.familyService.RenameFamily(r.Context(), mode, familyID, req.Name))
}

// Kids lists every kid in the parent's families
func (h *ParentHandler) Kids(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	kids, err := h.familyService.ListKids(r.Context(), mode)
	respond(w, r, h.logger, kids, err)
}

// CreateKid adds a kid to a family. The PIN is returned only in this response.
func (h *ParentHandler) CreateKid(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	familyID, err := pathID(r, "familyID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req createKidRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	kid, pin, err := h.familyService.CreateKid(r.Context(), mode, familyID, req.Name, req.PIN, req.Color)
	respond(w, r, h.logger, createKidResponse{Kid: kid, PIN: pin}, err)
}

// SetKidPIN replaces a kid's PIN
func (h *ParentHandler) SetKidPIN(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	kidID, err := pathID(r, "kidID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req setPINRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, nil, h.familyService.SetKidPIN(r.Context(), mode, kidID, req.PIN))
}

// Invites lists a family's invites
func (h *ParentHandler) Invites(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	familyID, err := pathID(r, "familyID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	invites, err := h.inviteService.List(r.Context(), mode, familyID)
	respond(w, r, h.logger, invites, err)
}

// CreateInvite invites a parent by email
func (h *ParentHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	familyID, err := pathID(r, "familyID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	invite, err := h.inviteService.Create(r.Context(), mode, familyID, req.Email)
	respond(w, r, h.logger, invite, err)
}

// AcceptInvite joins the family behind an invite code
func (h *ParentHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req acceptInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	family, err := h.inviteService.Accept(r.Context(), mode, req.Code)
	respond(w, r, h.logger, family, err)
}

// CreateHoliday adds a family day off
func (h *ParentHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	familyID, err := pathID(r, "familyID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	var req holidayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	holiday, err := h.holidayService.Create(r.Context(), mode, familyID, req.Date, req.Name)
	respond(w, r, h.logger, holiday, err)
}

// DeleteHoliday removes a family day off
func (h *ParentHandler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	holidayID, err := pathID(r, "holidayID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	respond(w, r, h.logger, nil, h.holidayService.Delete(r.Context(), mode, holidayID))
}

// Holidays lists a family's holidays between the from and to query dates.
// Kids may read their own family's holidays.
func (h *ParentHandler) Holidays(w http.ResponseWriter, r *http.Request) {
	mode, err := modeFrom(r)
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}
	familyID, err := pathID(r, "familyID")
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	holidays, err := h.holidayService.List(r.Context(), mode, familyID, q.Get("from"), q.Get("to"))
	respond(w, r, h.logger, holidays, err)
}
