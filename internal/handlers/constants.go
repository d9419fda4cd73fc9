package handlers

import "lunara/internal/access"

const (
	SessionCookieName = access.ParentCookieName
	CSRFHeaderName    = "X-CSRF-Token"

	ErrInvalidRequestBody = "Invalid request body"
	ErrInvalidID          = "Invalid id"
	ErrCSRF               = "Invalid CSRF token"
	ErrTooManyRequests    = "Too many requests"
	ErrUnauthorized       = "Unauthorized"

	maxBodyBytes = 1 << 20
)
