package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/httpx"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/outbox"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/permissions"
)

// AuditSink records standalone audit events.
type AuditSink interface {
	Record(ctx context.Context, evt outbox.Event) error
}

type ElevationHandler struct {
	elevations *permissions.Elevations
	creds      permissions.CredentialStore
	audit      AuditSink
	logger     *slog.Logger
}

func NewElevationHandler(elevations *permissions.Elevations, creds permissions.CredentialStore, audit AuditSink, logger *slog.Logger) *ElevationHandler {
	return &ElevationHandler{elevations: elevations, creds: creds, audit: audit, logger: logger}
}

type elevateRequest struct {
	Code string `json:"code"`
}

type elevationResponse struct {
	Elevated  bool   `json:"elevated"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (h *ElevationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.writeState(w, user.ID)
	case http.MethodPost:
		h.elevate(w, r, user)
	case http.MethodDelete:
		h.elevations.Clear(user.ID)
		h.logger.Info("elevation cleared", "user_id", user.ID)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (h *ElevationHandler) elevate(w http.ResponseWriter, r *http.Request, user identity.User) {
	var req elevateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	ctx := r.Context()
	if !permissions.VerifyMasterCode(ctx, req.Code, h.creds) {
		h.logger.Warn("master code rejected", "user_id", user.ID, "role", user.Role, "request_id", httpx.RequestIDFromContext(ctx))
		h.recordAudit(ctx, outbox.TopicElevationDenied, user, time.Time{})
		httpx.WriteError(w, http.StatusForbidden, CodePermissionDenied, "invalid master code")
		return
	}
	exp := h.elevations.Elevate(user.ID, 0)
	h.logger.Info("elevation granted", "user_id", user.ID, "role", user.Role, "expires_at", exp)
	h.recordAudit(ctx, outbox.TopicElevationGranted, user, exp)
	httpx.WriteJSON(w, http.StatusOK, elevationResponse{Elevated: true, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

func (h *ElevationHandler) writeState(w http.ResponseWriter, userID string) {
	exp, ok := h.elevations.ExpiresAt(userID)
	resp := elevationResponse{Elevated: ok}
	if ok {
		resp.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// recordAudit never fails the request; the elevation decision has already been made.
func (h *ElevationHandler) recordAudit(ctx context.Context, topic string, user identity.User, exp time.Time) {
	if h.audit == nil {
		return
	}
	payload := map[string]any{
		"user_id": user.ID,
		"role":    string(user.Role),
		"at":      time.Now().UTC().Format(time.RFC3339),
	}
	if !exp.IsZero() {
		payload["expires_at"] = exp.UTC().Format(time.RFC3339)
	}
	evt, err := outbox.NewEvent(topic, outbox.AggregateUser, user.ID, payload)
	if err == nil {
		err = h.audit.Record(ctx, evt)
	}
	if err != nil {
		h.logger.Error("elevation audit write failed", "err", err, "user_id", user.ID)
	}
}
