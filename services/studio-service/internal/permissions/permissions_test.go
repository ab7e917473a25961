package permissions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/auth"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type staticUsers struct {
	user identity.User
	ok   bool
}

func (s staticUsers) CurrentUser(context.Context) (identity.User, bool) { return s.user, s.ok }

type codeStore struct {
	hash string
	err  error
}

func (s codeStore) MasterCodeHash(context.Context) (string, bool, error) {
	return s.hash, s.hash != "", s.err
}

func int64p(v int64) *int64 { return &v }

func newEngine(clock *fakeClock) *Engine {
	return NewEngine(identity.ContextProvider{}, NewElevations(WithClock(clock.Now)))
}

func TestPolicyTableCoversRequiredPairs(t *testing.T) {
	if err := Validate(RequiredPairs...); err != nil {
		t.Fatal(err)
	}
	if err := Validate(Pair{"sessions", "teleport"}); err == nil {
		t.Fatal("expected missing pair to fail validation")
	}
}

func TestUnknownPairsDenied(t *testing.T) {
	e := newEngine(&fakeClock{t: time.Now()})
	e.Elevations().Elevate("u", 0)
	for _, role := range []identity.Role{identity.RoleAdmin, identity.RoleArtist, identity.RoleAssistant, "guest"} {
		if e.Can(role, "spaceships", "launch", int64p(1), int64p(1), "u") {
			t.Fatalf("%s: unknown resource must be denied", role)
		}
		if e.Can(role, "sessions", "teleport", int64p(1), int64p(1), "u") {
			t.Fatalf("%s: unknown action must be denied", role)
		}
	}
}

func TestOwnPolicy(t *testing.T) {
	e := newEngine(&fakeClock{t: time.Now()})
	if !e.Can(identity.RoleArtist, "sessions", "edit", int64p(7), int64p(7), "u7") {
		t.Fatal("artist must edit own session")
	}
	if e.Can(identity.RoleArtist, "sessions", "edit", int64p(8), int64p(7), "u7") {
		t.Fatal("artist must not edit another artist's session")
	}
	if e.Can(identity.RoleArtist, "sessions", "edit", nil, int64p(7), "u7") {
		t.Fatal("missing owner must deny")
	}
	if e.Can(identity.RoleArtist, "sessions", "edit", int64p(7), nil, "u7") {
		t.Fatal("unlinked artist must be denied")
	}
	if !e.Can(identity.RoleAdmin, "sessions", "edit", int64p(8), nil, "admin") {
		t.Fatal("admin must edit any session")
	}
}

func TestLockedActionNeedsElevation(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	e := newEngine(clock)

	if !NeedsCode("sessions", "cancel") {
		t.Fatal("sessions.cancel must need a code")
	}
	if e.Can(identity.RoleAssistant, "sessions", "cancel", nil, nil, "asst") {
		t.Fatal("assistant must not cancel without elevation")
	}
	if !e.Can(identity.RoleAdmin, "sessions", "cancel", nil, nil, "admin") {
		t.Fatal("admin passes locked actions")
	}

	e.Elevations().Elevate("asst", 0)
	if !e.Can(identity.RoleAssistant, "sessions", "cancel", nil, nil, "asst") {
		t.Fatal("elevated assistant must cancel")
	}
	if e.Can(identity.RoleAssistant, "sessions", "cancel", nil, nil, "other") {
		t.Fatal("elevation is per user")
	}
	if e.Can(identity.RoleArtist, "sessions", "delete", int64p(1), int64p(1), "asst") {
		t.Fatal("elevation never lifts a deny")
	}

	e.Elevations().Clear("asst")
	if e.Can(identity.RoleAssistant, "sessions", "cancel", nil, nil, "asst") {
		t.Fatal("cleared elevation must deny")
	}
}

func TestIndependentLockList(t *testing.T) {
	e := newEngine(&fakeClock{t: time.Now()})
	if PolicyFor(identity.RoleAssistant, "sessions", "complete") != Allow {
		t.Fatal("sessions.complete is allowed for assistants in the table")
	}
	if !NeedsCode("sessions", "complete") {
		t.Fatal("sessions.complete is on the assistant lock list")
	}
	if e.Can(identity.RoleAssistant, "sessions", "complete", nil, nil, "asst") {
		t.Fatal("lock list must gate allowed assistant actions")
	}
	e.Elevations().Elevate("asst", 0)
	if !e.Can(identity.RoleAssistant, "sessions", "complete", nil, nil, "asst") {
		t.Fatal("elevated assistant must complete")
	}
	if NeedsCode("sessions", "view") {
		t.Fatal("sessions.view needs no code")
	}
}

func TestElevationExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	el := NewElevations(WithClock(clock.Now))

	exp := el.Elevate("asst", 0)
	if !exp.Equal(clock.t.Add(5 * time.Minute)) {
		t.Fatalf("expected default 5 minute window, got %s", exp)
	}
	if !el.IsElevated("asst") {
		t.Fatal("expected elevated immediately")
	}
	clock.Advance(4*time.Minute + 59*time.Second)
	if !el.IsElevated("asst") {
		t.Fatal("expected still elevated before expiry")
	}
	clock.Advance(2 * time.Second)
	if el.IsElevated("asst") {
		t.Fatal("expected elevation to expire")
	}

	el.Elevate("asst", 10)
	clock.Advance(9 * time.Minute)
	if !el.IsElevated("asst") {
		t.Fatal("explicit minutes must be honored")
	}
	el.Reset()
	if el.IsElevated("asst") {
		t.Fatal("reset must clear everything")
	}
	if el.IsElevated("") {
		t.Fatal("empty user is never elevated")
	}
}

func TestEnforce(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	el := NewElevations(WithClock(clock.Now))

	anon := NewEngine(staticUsers{}, el)
	err := anon.Enforce(context.Background(), "sessions", "view", nil)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected denial without user, got %v", err)
	}

	artist := NewEngine(staticUsers{user: identity.User{ID: "u7", Role: identity.RoleArtist, ArtistID: int64p(7)}, ok: true}, el)
	if err := artist.Enforce(context.Background(), "sessions", "cancel", int64p(7)); err != nil {
		t.Fatalf("expected own cancel allowed: %v", err)
	}
	err = artist.Enforce(context.Background(), "sessions", "cancel", int64p(9))
	var perr *PermissionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PermissionError, got %v", err)
	}
	if perr.Resource != "sessions" || perr.Action != "cancel" || perr.Role != identity.RoleArtist {
		t.Fatalf("unexpected error fields %+v", perr)
	}
}

func TestEnforceRole(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	el := NewElevations(WithClock(clock.Now))
	ctx := context.Background()

	linked := NewEngine(staticUsers{user: identity.User{ID: "u7", Role: identity.RoleArtist, ArtistID: int64p(7)}, ok: true}, el)
	if err := linked.EnforceRole(ctx, "sessions", "cancel"); err != nil {
		t.Fatalf("linked artist: %v", err)
	}
	if err := linked.EnforceRole(ctx, "sessions", "delete"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("artist delete: expected denial, got %v", err)
	}
	unlinked := NewEngine(staticUsers{user: identity.User{ID: "u0", Role: identity.RoleArtist}, ok: true}, el)
	if err := unlinked.EnforceRole(ctx, "sessions", "cancel"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("unlinked artist: expected denial, got %v", err)
	}

	assistant := NewEngine(staticUsers{user: identity.User{ID: "a1", Role: identity.RoleAssistant}, ok: true}, el)
	if err := assistant.EnforceRole(ctx, "sessions", "cancel"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("assistant before elevation: expected denial, got %v", err)
	}
	el.Elevate("a1", 5)
	if err := assistant.EnforceRole(ctx, "sessions", "cancel"); err != nil {
		t.Fatalf("elevated assistant: %v", err)
	}
}

func TestVerifyMasterCode(t *testing.T) {
	hash, err := auth.HashPassword("1234")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ctx := context.Background()
	if !VerifyMasterCode(ctx, "1234", codeStore{hash: hash}) {
		t.Fatal("expected match")
	}
	if VerifyMasterCode(ctx, "4321", codeStore{hash: hash}) {
		t.Fatal("expected mismatch")
	}
	if VerifyMasterCode(ctx, "1234", codeStore{}) {
		t.Fatal("missing code must fail")
	}
	if VerifyMasterCode(ctx, "1234", codeStore{hash: hash, err: errors.New("db down")}) {
		t.Fatal("lookup error must fail")
	}
	if VerifyMasterCode(ctx, "", codeStore{hash: hash}) {
		t.Fatal("empty code must fail")
	}
}
