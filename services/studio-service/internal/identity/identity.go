// Package identity carries the authenticated studio user through request contexts.
package identity

import (
	"context"
	"strings"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleArtist    Role = "artist"
	RoleAssistant Role = "assistant"
)

// ParseRole maps token roles onto the three studio roles. "owner" is admin-equivalent.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin", "owner":
		return RoleAdmin, true
	case "artist", "tatuador":
		return RoleArtist, true
	case "assistant", "asistente":
		return RoleAssistant, true
	default:
		return "", false
	}
}

type User struct {
	ID   string
	Role Role
	// ArtistID is set when the user is linked to an artist record.
	ArtistID *int64
}

// Provider resolves the acting user for a request.
type Provider interface {
	CurrentUser(ctx context.Context) (User, bool)
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}

// ContextProvider reads the user placed in the context by Middleware.
type ContextProvider struct{}

func (ContextProvider) CurrentUser(ctx context.Context) (User, bool) {
	return FromContext(ctx)
}
