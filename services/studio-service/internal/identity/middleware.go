package identity

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/inkdesk/libs/auth"
	"github.com/md-rashed-zaman/inkdesk/libs/httpx"
)

// KeySource resolves RS256 verification keys by key id.
type KeySource interface {
	Get(ctx context.Context, keyID string) (*rsa.PublicKey, error)
}

type Verifier struct {
	secret string
	keys   KeySource
}

// NewVerifier accepts HS256 tokens signed with secret and, when keys is non-nil,
// RS256 tokens whose kid resolves through keys.
func NewVerifier(secret string, keys KeySource) *Verifier {
	return &Verifier{secret: secret, keys: keys}
}

func (v *Verifier) Verify(ctx context.Context, token string) (User, error) {
	var (
		claims *auth.Claims
		err    error
	)
	header, err := auth.ParseHeader(token)
	if err != nil {
		return User{}, err
	}
	switch {
	case header.Alg == "RS256" && header.Kid != "" && v.keys != nil:
		pub, kerr := v.keys.Get(ctx, header.Kid)
		if kerr != nil {
			return User{}, kerr
		}
		claims, err = auth.VerifyRS256(token, pub)
	case header.Alg == "HS256" && v.secret != "":
		claims, err = auth.ParseAndVerifyHS256(token, v.secret)
	default:
		return User{}, auth.ErrInvalidToken
	}
	if err != nil {
		return User{}, err
	}
	return userFromClaims(claims)
}

func userFromClaims(c *auth.Claims) (User, error) {
	role, ok := ParseRole(c.Role)
	if !ok {
		return User{}, auth.ErrInvalidToken
	}
	u := User{ID: c.Sub, Role: role}
	if c.ArtistID > 0 {
		id := c.ArtistID
		u.ArtistID = &id
	}
	return u, nil
}

// Middleware rejects requests without a valid bearer token and stores the user in the context.
func Middleware(v *Verifier, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid Authorization header")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			user, err := v.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token rejected", "err", err, "request_id", httpx.RequestIDFromContext(r.Context()))
				httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
