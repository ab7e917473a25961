package main

import (
	"net/http"

	"github.com/md-rashed-zaman/inkdesk/libs/httpx"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/handlers"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
)

type routes struct {
	sessions    *handlers.SessionHandler
	elevation   *handlers.ElevationHandler
	permissions *handlers.PermissionHandler
	settings    *handlers.SettingsHandler
	// authn runs before every /api route; elevationLimit only guards the master code endpoint.
	authn          httpx.Middleware
	elevationLimit httpx.Middleware
}

func (rt routes) register(mux *http.ServeMux) {
	authed := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, rt.authn)
	}
	mux.Handle("/api/v1/sessions", authed(rt.sessions.Sessions))
	mux.Handle("/api/v1/sessions/update", authed(rt.sessions.Update))
	mux.Handle("/api/v1/sessions/cancel", authed(rt.sessions.Cancel))
	mux.Handle("/api/v1/sessions/complete", authed(rt.sessions.Complete))
	mux.Handle("/api/v1/artists/slots", authed(rt.sessions.Slots))
	mux.Handle("/api/v1/permissions/check", authed(rt.permissions.Check))
	mux.Handle("/api/v1/settings/master-code", authed(rt.settings.MasterCode))
	mux.Handle("/api/v1/elevation", httpx.Chain(rt.elevation, rt.authn, rt.elevationLimit))
}

// limitKey buckets elevation attempts per authenticated user, falling back to the client IP.
func limitKey(r *http.Request) string {
	if u, ok := identity.FromContext(r.Context()); ok && u.ID != "" {
		return "user:" + u.ID
	}
	return "ip:" + httpx.ClientIP(r)
}
