package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"lunara/internal/security"
)

// Router bundles the handlers mounted by NewRouter
type Router struct {
	Middleware   *Middleware
	Auth         *AuthHandler
	Kid          *KidHandler
	Parent       *ParentHandler
	Schedule     *ScheduleHandler
	Shop         *ShopHandler
	LoginLimiter *security.RateLimiter
	Logger       *zap.SugaredLogger
}

// NewRouter mounts every route and wraps the mux with the global middleware
func NewRouter(rt Router) http.Handler {
	m := rt.Middleware
	limited := RateLimit(rt.LoginLimiter, rt.Logger)

	parent := func(h http.HandlerFunc) http.HandlerFunc { return m.RequireParent(m.CSRF(h)) }
	shared := func(h http.HandlerFunc) http.HandlerFunc { return m.ResolveAccess(m.CSRF(h)) }
	kid := func(h http.HandlerFunc) http.HandlerFunc { return m.ResolveKidAccess(m.CSRF(h)) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/auth/register", limited(rt.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", limited(rt.Auth.Login))
	mux.HandleFunc("POST /api/auth/logout", m.CSRF(rt.Auth.Logout))
	mux.HandleFunc("GET /auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", rt.Auth.OAuthCallback)

	mux.HandleFunc("POST /api/kid/login", limited(rt.Kid.Login))
	mux.HandleFunc("POST /api/kid/logout", rt.Kid.Logout)

	mux.HandleFunc("GET /api/parent/me", parent(rt.Auth.Me))
	mux.HandleFunc("GET /api/parent/csrf", parent(rt.Auth.Me))
	mux.HandleFunc("GET /api/parent/families", parent(rt.Parent.Families))
	mux.HandleFunc("POST /api/parent/families", parent(rt.Parent.CreateFamily))
	mux.HandleFunc("GET /api/parent/families/{familyID}", parent(rt.Parent.Family))
	mux.HandleFunc("PATCH /api/parent/families/{familyID}", parent(rt.Parent.RenameFamily))
	mux.HandleFunc("POST /api/parent/families/{familyID}/kids", parent(rt.Parent.CreateKid))
	mux.HandleFunc("GET /api/parent/families/{familyID}/invites", parent(rt.Parent.Invites))
	mux.HandleFunc("POST /api/parent/families/{familyID}/invites", parent(rt.Parent.CreateInvite))
	mux.HandleFunc("POST /api/parent/families/{familyID}/holidays", parent(rt.Parent.CreateHoliday))
	mux.HandleFunc("POST /api/parent/invites/accept", parent(rt.Parent.AcceptInvite))
	mux.HandleFunc("DELETE /api/parent/holidays/{holidayID}", parent(rt.Parent.DeleteHoliday))
	mux.HandleFunc("GET /api/parent/kids", parent(rt.Parent.Kids))
	mux.HandleFunc("PUT /api/parent/kids/{kidID}/pin", parent(rt.Parent.SetKidPIN))
	mux.HandleFunc("POST /api/parent/kids/{kidID}/items", parent(rt.Schedule.CreateItem))
	mux.HandleFunc("DELETE /api/parent/items/{itemID}", parent(rt.Schedule.DeleteItem))

	mux.HandleFunc("GET /kid/{kidID}", kid(rt.Kid.Portal))
	mux.HandleFunc("GET /api/kids/{kidID}/items", kid(rt.Schedule.Day))
	mux.HandleFunc("POST /api/kids/{kidID}/bonus", kid(rt.Schedule.ClaimBonus))
	mux.HandleFunc("GET /api/kids/{kidID}/moons", kid(rt.Schedule.Balance))
	mux.HandleFunc("GET /api/kids/{kidID}/moons/history", kid(rt.Schedule.History))
	mux.HandleFunc("GET /api/kids/{kidID}/shop", kid(rt.Shop.Catalog))
	mux.HandleFunc("POST /api/kids/{kidID}/shop/{itemID}/purchase", kid(rt.Shop.Purchase))
	mux.HandleFunc("GET /api/kids/{kidID}/avatar", kid(rt.Shop.Avatar))
	mux.HandleFunc("PUT /api/kids/{kidID}/avatar", kid(rt.Shop.UpdateAvatar))
	mux.HandleFunc("POST /api/items/{itemID}/done", shared(rt.Schedule.SetDone))
	mux.HandleFunc("GET /api/families/{familyID}/holidays", shared(rt.Parent.Holidays))

	return Logging(rt.Logger)(SecurityHeaders(m.KidRoutingPolicy(mux)))
}
