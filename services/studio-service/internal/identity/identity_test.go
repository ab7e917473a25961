package identity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/auth"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{"admin": RoleAdmin, "Owner": RoleAdmin, "ARTIST": RoleArtist, "asistente": RoleAssistant}
	for raw, want := range cases {
		got, ok := ParseRole(raw)
		if !ok || got != want {
			t.Fatalf("ParseRole(%q) = %q,%v", raw, got, ok)
		}
	}
	if _, ok := ParseRole("guest"); ok {
		t.Fatal("unexpected role accepted")
	}
}

func TestMiddleware(t *testing.T) {
	const secret = "test-secret"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen User
	h := Middleware(NewVerifier(secret, nil), logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := ContextProvider{}.CurrentUser(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		seen = u
		w.WriteHeader(http.StatusNoContent)
	}))

	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{Sub: "u-7", Role: "artist", ArtistID: 7, Iat: now.Unix(), Exp: now.Add(time.Hour).Unix()}, secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seen.ID != "u-7" || seen.Role != RoleArtist || seen.ArtistID == nil || *seen.ArtistID != 7 {
		t.Fatalf("unexpected user %+v", seen)
	}

	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": token,
		"bad sig":   "Bearer " + token + "x",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rr.Code)
		}
	}
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{Sub: "u-1", Role: "guest", Iat: now.Unix(), Exp: now.Add(time.Hour).Unix()}, "s")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewVerifier("s", nil).Verify(context.Background(), token); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}
