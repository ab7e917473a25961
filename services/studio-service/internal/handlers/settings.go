package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/permissions"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/settings"
)

type MasterCodeSetter interface {
	SetMasterCode(ctx context.Context, plain string) error
}

type SettingsHandler struct {
	creds  MasterCodeSetter
	perms  *permissions.Engine
	logger *slog.Logger
}

func NewSettingsHandler(creds MasterCodeSetter, perms *permissions.Engine, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{creds: creds, perms: perms, logger: logger}
}

type setMasterCodeRequest struct {
	Code string `json:"code"`
}

// MasterCode replaces the studio master code used for elevation.
func (h *SettingsHandler) MasterCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	ctx := r.Context()
	if err := h.perms.Enforce(ctx, "settings", "edit", nil); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req setMasterCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if err := h.creds.SetMasterCode(ctx, req.Code); err != nil {
		if errors.Is(err, settings.ErrWeakMasterCode) {
			badRequest(w, err.Error())
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("master code changed")
	w.WriteHeader(http.StatusNoContent)
}
