package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/inkdesk/libs/httpx"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/permissions"
)

type PermissionHandler struct {
	perms *permissions.Engine
}

func NewPermissionHandler(perms *permissions.Engine) *PermissionHandler {
	return &PermissionHandler{perms: perms}
}

type permissionCheckResponse struct {
	Resource  string `json:"resource"`
	Action    string `json:"action"`
	Policy    string `json:"policy"`
	Allowed   bool   `json:"allowed"`
	NeedsCode bool   `json:"needs_code"`
}

// Check reports whether the caller may perform resource.action, so clients can grey out controls.
func (h *PermissionHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, CodeUnauthenticated, "authentication required")
		return
	}
	q := r.URL.Query()
	resource := strings.TrimSpace(q.Get("resource"))
	action := strings.TrimSpace(q.Get("action"))
	if resource == "" || action == "" {
		badRequest(w, "resource and action are required")
		return
	}
	var owner *int64
	if raw := strings.TrimSpace(q.Get("owner_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(w, "invalid owner_id")
			return
		}
		owner = &id
	}

	httpx.WriteJSON(w, http.StatusOK, permissionCheckResponse{
		Resource:  resource,
		Action:    action,
		Policy:    string(permissions.PolicyFor(user.Role, resource, action)),
		Allowed:   h.perms.Can(user.Role, resource, action, owner, user.ArtistID, user.ID),
		NeedsCode: user.Role == identity.RoleAssistant && permissions.NeedsCode(resource, action),
	})
}
