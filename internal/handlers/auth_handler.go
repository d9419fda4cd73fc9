package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"lunara/internal/apperr"
	"lunara/internal/models"
	"lunara/internal/security"
	"lunara/internal/service"
)

// AuthHandler handles parent authentication requests
type AuthHandler struct {
	authService          *service.AuthService
	cookies              security.CookieOptions
	csrf                 *security.CSRFGenerator
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	logger               *zap.SugaredLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, cookies security.CookieOptions, csrf *security.CSRFGenerator, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		cookies:              cookies,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		logger:               logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"notblank"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	User      *models.User `json:"user"`
	CSRFToken string       `json:"csrfToken"`
}

// Register creates a parent account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	if _, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	h.startSession(w, r, session, user, err)
}

// Login handles email and password sign-in
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	h.startSession(w, r, session, user, err)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, session *models.Session, user *models.User, err error) {
	if err != nil {
		respondWithError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, h.cookies.CreateSessionCookie(r, SessionCookieName, session.ID, time.Until(session.ExpiresAt)))

	token, err := h.csrf.GenerateToken(session.ID)
	respond(w, r, h.logger, sessionResponse{User: user, CSRFToken: token}, err)
}

// Logout ends the parent session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warnw("failed to delete session", "error", err)
		}
	}
	http.SetCookie(w, h.cookies.CreateDeleteCookie(r, SessionCookieName))
	respond(w, r, h.logger, nil, nil)
}

// Me returns the signed-in parent and a fresh CSRF token
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		respondWithError(w, r, h.logger, apperr.New(apperr.ErrUnauthorized, ErrUnauthorized))
		return
	}
	token, err := h.csrf.GenerateToken(cookie.Value)
	respond(w, r, h.logger, sessionResponse{User: GetUserFromContext(r.Context()), CSRFToken: token}, err)
}
