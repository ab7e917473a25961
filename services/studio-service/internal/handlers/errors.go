package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/inkdesk/libs/httpx"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/payments"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/permissions"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
)

// Error codes carried in the "code" field of error bodies.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeValidation         = "validation_error"
	CodeUnauthenticated    = "unauthenticated"
	CodePermissionDenied   = "permission_denied"
	CodeElevationRequired  = "elevation_required"
	CodeNotFound           = "not_found"
	CodeScheduleConflict   = "schedule_conflict"
	CodeInvalidTransition  = "invalid_transition"
	CodePaymentNotVerified = "payment_not_verified"
	CodeInternal           = "internal"
)

// writeError maps service errors onto HTTP statuses. Unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var perr *permissions.PermissionError
	switch {
	case errors.As(err, &perr):
		switch {
		case perr.Role == "":
			httpx.WriteError(w, http.StatusUnauthorized, CodeUnauthenticated, err.Error())
		case perr.Role == identity.RoleAssistant && permissions.NeedsCode(perr.Resource, perr.Action):
			httpx.WriteError(w, http.StatusForbidden, CodeElevationRequired, err.Error())
		default:
			httpx.WriteError(w, http.StatusForbidden, CodePermissionDenied, err.Error())
		}
	case errors.Is(err, scheduling.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, scheduling.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, scheduling.ErrConflict):
		httpx.WriteError(w, http.StatusConflict, CodeScheduleConflict, err.Error())
	case errors.Is(err, scheduling.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, CodeInvalidTransition, err.Error())
	case errors.Is(err, payments.ErrPaymentNotVerified):
		httpx.WriteError(w, http.StatusPaymentRequired, CodePaymentNotVerified, err.Error())
	default:
		logger.Error("request failed", "err", err, "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()))
		httpx.WriteError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, CodeInvalidRequest, msg)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	httpx.WriteError(w, http.StatusMethodNotAllowed, CodeInvalidRequest, "method not allowed")
}
