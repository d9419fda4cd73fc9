package access

import (
	"context"
	"net/http"

	"lunara/internal/apperr"
	"lunara/internal/kidsession"
	"lunara/internal/models"
)

// ParentCookieName is the cookie holding a parent's server-side session id
const ParentCookieName = "session_id"

// SessionValidator looks up the parent behind a session id. It returns a nil
// user for unknown or expired sessions.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (*models.User, error)
}

// KidSessionReader reads the kid identity from a request
type KidSessionReader interface {
	Read(r *http.Request) *kidsession.KidSession
}

// Resolver picks the access mode for a request
type Resolver struct {
	parents SessionValidator
	kids    KidSessionReader
}

// NewResolver creates a new resolver
func NewResolver(parents SessionValidator, kids KidSessionReader) *Resolver {
	return &Resolver{parents: parents, kids: kids}
}

// Resolve returns Standard for a valid parent session, otherwise Privileged for
// a valid kid session. A parent session wins over a stale kid cookie.
func (res *Resolver) Resolve(r *http.Request) (Mode, error) {
	user, err := res.Parent(r)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return Standard{UserID: user.ID}, nil
	}

	if session := res.kids.Read(r); session != nil {
		if kidID, ok := session.NumericID(); ok {
			return Privileged{KidID: kidID}, nil
		}
	}

	return nil, apperr.New(apperr.ErrUnauthorized, "Unauthorized")
}

// ResolveForKid is Resolve for an operation on kidID. A kid session for any
// other kid is rejected. Parent access is left to the membership predicate.
func (res *Resolver) ResolveForKid(r *http.Request, kidID int64) (Mode, error) {
	mode, err := res.Resolve(r)
	if err != nil {
		return nil, err
	}
	if p, ok := mode.(Privileged); ok && p.KidID != kidID {
		return nil, apperr.Unauthorized()
	}
	return mode, nil
}

// Parent returns the authenticated parent, or nil when there is none
func (res *Resolver) Parent(r *http.Request) (*models.User, error) {
	cookie, err := r.Cookie(ParentCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	user, err := res.parents.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrInternal, "failed to validate session", err)
	}
	return user, nil
}

type modeKey struct{}

// WithMode stores mode in ctx
func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, modeKey{}, mode)
}

// FromContext returns the mode stored by WithMode
func FromContext(ctx context.Context) (Mode, bool) {
	mode, ok := ctx.Value(modeKey{}).(Mode)
	return mode, ok
}
