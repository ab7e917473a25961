package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
)

var ErrPermissionDenied = errors.New("permission denied")

type PermissionError struct {
	Role     identity.Role
	Resource string
	Action   string
}

func (e *PermissionError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("permission denied: %s.%s requires an authenticated user", e.Resource, e.Action)
	}
	return fmt.Sprintf("permission denied: role %s may not %s %s", e.Role, e.Action, e.Resource)
}

func (e *PermissionError) Is(target error) bool { return target == ErrPermissionDenied }

type Engine struct {
	users      identity.Provider
	elevations *Elevations
}

func NewEngine(users identity.Provider, elevations *Elevations) *Engine {
	return &Engine{users: users, elevations: elevations}
}

func (e *Engine) Elevations() *Elevations { return e.elevations }

// Can evaluates the policy for role. ownerID is the artist owning the target record and
// actingArtistID the artist linked to the caller; both are needed for "own" policies.
func (e *Engine) Can(role identity.Role, resource, action string, ownerID, actingArtistID *int64, actingUserID string) bool {
	switch PolicyFor(role, resource, action) {
	case Allow:
		if role == identity.RoleAssistant && assistantLocks[Pair{resource, action}] {
			return e.elevations.IsElevated(actingUserID)
		}
		return true
	case Own:
		return role == identity.RoleArtist && ownerID != nil && actingArtistID != nil && *ownerID == *actingArtistID
	case Locked:
		if role == identity.RoleAdmin {
			return true
		}
		return role == identity.RoleAssistant && e.elevations.IsElevated(actingUserID)
	default:
		return false
	}
}

// Enforce checks the current caller and returns a *PermissionError when the action is not allowed.
func (e *Engine) Enforce(ctx context.Context, resource, action string, ownerID *int64) error {
	user, ok := e.users.CurrentUser(ctx)
	if !ok {
		return &PermissionError{Resource: resource, Action: action}
	}
	if !e.Can(user.Role, resource, action, ownerID, user.ArtistID, user.ID) {
		return &PermissionError{Role: user.Role, Resource: resource, Action: action}
	}
	return nil
}

// EnforceRole checks the caller before the target record is loaded. An "own" policy passes
// here for artists linked to a calendar; Enforce then runs against the loaded owner.
func (e *Engine) EnforceRole(ctx context.Context, resource, action string) error {
	user, ok := e.users.CurrentUser(ctx)
	if !ok {
		return &PermissionError{Resource: resource, Action: action}
	}
	if !e.Can(user.Role, resource, action, user.ArtistID, user.ArtistID, user.ID) {
		return &PermissionError{Role: user.Role, Resource: resource, Action: action}
	}
	return nil
}
