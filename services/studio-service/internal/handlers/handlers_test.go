package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/httpx"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/outbox"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/permissions"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/settings"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/storage/memory"
	"github.com/shopspring/decimal"
)

var (
	admin     = identity.User{ID: "admin-1", Role: identity.RoleAdmin}
	assistant = identity.User{ID: "asst-1", Role: identity.RoleAssistant}
)

func artist(id int64) identity.User {
	return identity.User{ID: "artist-user", Role: identity.RoleArtist, ArtistID: &id}
}

type fixture struct {
	store    *memory.Store
	creds    *settings.Credentials
	sessions *SessionHandler
	elevate  *ElevationHandler
	checks   *PermissionHandler
	settings *SettingsHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	rate := decimal.RequireFromString("0.50")
	store.PutArtist(model.Artist{ID: 7, Name: "Ana", CommissionRate: &rate, Active: true})

	creds := settings.NewCredentials(settings.NewMemoryStore())
	if err := creds.SetMasterCode(context.Background(), "2468"); err != nil {
		t.Fatalf("set master code: %v", err)
	}
	elevations := permissions.NewElevations()
	engine := permissions.NewEngine(identity.ContextProvider{}, elevations)
	svc := scheduling.NewService(store, scheduling.WithLogger(logger), scheduling.WithClock(func() time.Time {
		return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	}))
	return &fixture{
		store:    store,
		creds:    creds,
		sessions: NewSessionHandler(svc, engine, logger, time.UTC),
		elevate:  NewElevationHandler(elevations, creds, store, logger),
		checks:   NewPermissionHandler(engine),
		settings: NewSettingsHandler(creds, engine, logger),
	}
}

func do(t *testing.T, h http.HandlerFunc, method, target string, user *identity.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if user != nil {
		req = req.WithContext(identity.WithUser(req.Context(), *user))
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpx.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return body.Code
}

func createBody(artistID int64, start, end string) map[string]any {
	return map[string]any{
		"client_id":  1,
		"artist_id":  artistID,
		"start_time": start,
		"end_time":   end,
		"price":      "800",
	}
}

func (f *fixture) create(t *testing.T, start, end string) int64 {
	t.Helper()
	rr := do(t, f.sessions.Sessions, http.MethodPost, "/api/v1/sessions", &admin, createBody(7, start, end))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	var resp createSessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.SessionID
}

func TestCreateSessionStatuses(t *testing.T) {
	f := newFixture(t)
	f.create(t, "2026-05-04T10:00:00Z", "2026-05-04T11:00:00Z")

	cases := []struct {
		name     string
		user     *identity.User
		body     any
		status   int
		wantCode string
	}{
		{"no identity", nil, createBody(7, "2026-05-04T12:00:00Z", "2026-05-04T13:00:00Z"), http.StatusUnauthorized, CodeUnauthenticated},
		{"artist for another artist", ptrUser(artist(8)), createBody(7, "2026-05-04T12:00:00Z", "2026-05-04T13:00:00Z"), http.StatusForbidden, CodePermissionDenied},
		{"overlap", &admin, createBody(7, "2026-05-04T10:30:00Z", "2026-05-04T11:30:00Z"), http.StatusConflict, CodeScheduleConflict},
		{"inverted window", &admin, createBody(7, "2026-05-04T13:00:00Z", "2026-05-04T12:00:00Z"), http.StatusBadRequest, CodeValidation},
		{"bad time", &admin, createBody(7, "tomorrow", "2026-05-04T12:00:00Z"), http.StatusBadRequest, CodeInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, f.sessions.Sessions, http.MethodPost, "/api/v1/sessions", tc.user, tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d %s", tc.status, rr.Code, rr.Body.String())
			}
			if got := errorCode(t, rr); got != tc.wantCode {
				t.Fatalf("code = %q, want %q", got, tc.wantCode)
			}
		})
	}

	own := artist(7)
	rr := do(t, f.sessions.Sessions, http.MethodPost, "/api/v1/sessions", &own, createBody(7, "2026-05-04T11:00:00Z", "2026-05-04T12:00:00Z"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("artist creating own session: expected 201, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCompleteAndList(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "2026-05-04T10:00:00Z", "2026-05-04T11:00:00Z")

	rr := do(t, f.sessions.Complete, http.MethodPost, "/api/v1/sessions/complete", &admin, map[string]any{
		"session_id":     id,
		"payment_method": "Tarjeta",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	var resp completeSessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.TransactionID == 0 {
		t.Fatalf("unexpected response %s", rr.Body.String())
	}
	txns := f.store.Transactions(id)
	if len(txns) != 1 || !txns[0].CommissionAmount.Equal(decimal.RequireFromString("400")) {
		t.Fatalf("unexpected transactions %+v", txns)
	}

	rr = do(t, f.sessions.Complete, http.MethodPost, "/api/v1/sessions/complete", &admin, map[string]any{
		"session_id":     id,
		"payment_method": "cash",
	})
	if rr.Code != http.StatusConflict || errorCode(t, rr) != CodeInvalidTransition {
		t.Fatalf("second complete: expected 409 invalid_transition, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, f.sessions.Cancel, http.MethodPost, "/api/v1/sessions/cancel", &admin, map[string]any{"session_id": id})
	if rr.Code != http.StatusConflict || errorCode(t, rr) != CodeInvalidTransition {
		t.Fatalf("cancel completed: expected 409 invalid_transition, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, f.sessions.Sessions, http.MethodGet, "/api/v1/sessions?artist_id=7&status=completed,Cancelada", &admin, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	var items []sessionItem
	if err := json.Unmarshal(rr.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 || items[0].Status != "completed" || items[0].Price != "800.00" {
		t.Fatalf("unexpected list %+v", items)
	}

	rr = do(t, f.sessions.Sessions, http.MethodGet, "/api/v1/sessions?status=archived", &admin, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown status filter: expected 400, got %d", rr.Code)
	}
}

func TestUpdateAndNotFound(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "2026-05-04T10:00:00Z", "2026-05-04T11:00:00Z")

	rr := do(t, f.sessions.Update, http.MethodPost, "/api/v1/sessions/update", &admin, map[string]any{
		"session_id": id,
		"notes":      "bring reference",
		"price":      "950.50",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	var item sessionItem
	if err := json.Unmarshal(rr.Body.Bytes(), &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.Notes != "bring reference" || item.Price != "950.50" {
		t.Fatalf("unexpected session %+v", item)
	}

	rr = do(t, f.sessions.Update, http.MethodPost, "/api/v1/sessions/update", &admin, map[string]any{
		"session_id": id,
		"status":     "completed",
	})
	if rr.Code != http.StatusConflict || errorCode(t, rr) != CodeInvalidTransition {
		t.Fatalf("status completed via update: expected 409, got %d %s", rr.Code, rr.Body.String())
	}

	other := artist(8)
	rr = do(t, f.sessions.Update, http.MethodPost, "/api/v1/sessions/update", &other, map[string]any{"session_id": id, "notes": "x"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign artist update: expected 403, got %d", rr.Code)
	}

	rr = do(t, f.sessions.Cancel, http.MethodPost, "/api/v1/sessions/cancel", &admin, map[string]any{"session_id": 999})
	if rr.Code != http.StatusNotFound || errorCode(t, rr) != CodeNotFound {
		t.Fatalf("missing session: expected 404, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, f.sessions.Update, http.MethodPost, "/api/v1/sessions/update", &admin, map[string]any{"session_id": 999})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("empty update of missing session: expected 404, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, f.sessions.Update, http.MethodGet, "/api/v1/sessions/update", &admin, nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestDeniedCallersCannotProbeSessionIDs(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "2026-05-04T10:00:00Z", "2026-05-04T11:00:00Z")
	unlinked := identity.User{ID: "artist-x", Role: identity.RoleArtist}

	for _, target := range []int64{id, 999} {
		rr := do(t, f.sessions.Cancel, http.MethodPost, "/api/v1/sessions/cancel", &assistant, map[string]any{"session_id": target})
		if rr.Code != http.StatusForbidden {
			t.Fatalf("assistant cancel %d: expected 403, got %d %s", target, rr.Code, rr.Body.String())
		}
		rr = do(t, f.sessions.Complete, http.MethodPost, "/api/v1/sessions/complete", &unlinked, map[string]any{"session_id": target, "payment_method": "cash"})
		if rr.Code != http.StatusForbidden {
			t.Fatalf("unlinked artist complete %d: expected 403, got %d %s", target, rr.Code, rr.Body.String())
		}
	}
}

func TestAssistantElevationFlow(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, "2026-05-04T10:00:00Z", "2026-05-04T11:00:00Z")
	cancel := map[string]any{"session_id": id, "no_show": true}

	rr := do(t, f.sessions.Cancel, http.MethodPost, "/api/v1/sessions/cancel", &assistant, cancel)
	if rr.Code != http.StatusForbidden || errorCode(t, rr) != CodeElevationRequired {
		t.Fatalf("expected 403 elevation_required, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, f.elevate.ServeHTTP, http.MethodPost, "/api/v1/elevation", &assistant, map[string]any{"code": "0000"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("wrong code: expected 403, got %d", rr.Code)
	}
	rr = do(t, f.elevate.ServeHTTP, http.MethodPost, "/api/v1/elevation", &assistant, map[string]any{"code": "2468"})
	if rr.Code != http.StatusOK {
		t.Fatalf("right code: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	var state elevationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil || !state.Elevated || state.ExpiresAt == "" {
		t.Fatalf("unexpected elevation response %s", rr.Body.String())
	}

	rr = do(t, f.sessions.Cancel, http.MethodPost, "/api/v1/sessions/cancel", &assistant, cancel)
	if rr.Code != http.StatusOK {
		t.Fatalf("elevated cancel: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	var item sessionItem
	if err := json.Unmarshal(rr.Body.Bytes(), &item); err != nil || item.Status != "no_show" {
		t.Fatalf("expected no_show session, got %s", rr.Body.String())
	}

	rr = do(t, f.elevate.ServeHTTP, http.MethodDelete, "/api/v1/elevation", &assistant, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("clear: expected 204, got %d", rr.Code)
	}
	rr = do(t, f.elevate.ServeHTTP, http.MethodGet, "/api/v1/elevation", &assistant, nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &state); err != nil || state.Elevated {
		t.Fatalf("expected elevation cleared, got %s", rr.Body.String())
	}

	var topics []string
	for _, evt := range f.store.Events() {
		if evt.AggregateType == outbox.AggregateUser {
			topics = append(topics, evt.EventType)
		}
	}
	if len(topics) != 2 || topics[0] != outbox.TopicElevationDenied || topics[1] != outbox.TopicElevationGranted {
		t.Fatalf("unexpected audit events %v", topics)
	}
}

func TestPermissionCheck(t *testing.T) {
	f := newFixture(t)
	rr := do(t, f.checks.Check, http.MethodGet, "/api/v1/permissions/check?resource=sessions&action=complete", &assistant, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp permissionCheckResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Allowed || !resp.NeedsCode || resp.Policy != "allow" {
		t.Fatalf("unexpected check %+v", resp)
	}

	own := artist(7)
	rr = do(t, f.checks.Check, http.MethodGet, "/api/v1/permissions/check?resource=sessions&action=edit&owner_id=7", &own, nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || !resp.Allowed || resp.Policy != "own" {
		t.Fatalf("expected own edit allowed, got %s", rr.Body.String())
	}

	rr = do(t, f.checks.Check, http.MethodGet, "/api/v1/permissions/check?resource=sessions", &own, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing action: expected 400, got %d", rr.Code)
	}
}

func TestSetMasterCode(t *testing.T) {
	f := newFixture(t)
	own := artist(7)
	rr := do(t, f.settings.MasterCode, http.MethodPut, "/api/v1/settings/master-code", &own, map[string]any{"code": "1357"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("artist: expected 403, got %d", rr.Code)
	}
	rr = do(t, f.settings.MasterCode, http.MethodPut, "/api/v1/settings/master-code", &admin, map[string]any{"code": "1"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("weak code: expected 400, got %d", rr.Code)
	}
	rr = do(t, f.settings.MasterCode, http.MethodPut, "/api/v1/settings/master-code", &admin, map[string]any{"code": "1357"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("admin: expected 204, got %d %s", rr.Code, rr.Body.String())
	}
	if !permissions.VerifyMasterCode(context.Background(), "1357", f.creds) {
		t.Fatal("new master code must verify")
	}
}

func TestSlots(t *testing.T) {
	f := newFixture(t)
	f.create(t, "2026-05-04T12:00:00Z", "2026-05-04T14:00:00Z")

	rr := do(t, f.sessions.Slots, http.MethodGet,
		"/api/v1/artists/slots?artist_id=7&date=2026-05-04&duration_minutes=120&workday_start=10:00&workday_end=18:00", &admin, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	var slots []slotItem
	if err := json.Unmarshal(rr.Body.Bytes(), &slots); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"2026-05-04T10:00:00Z", "2026-05-04T14:00:00Z", "2026-05-04T16:00:00Z"}
	if len(slots) != len(want) {
		t.Fatalf("slots = %+v, want starts %v", slots, want)
	}
	for i := range want {
		if slots[i].StartTime != want[i] {
			t.Fatalf("slots = %+v, want starts %v", slots, want)
		}
	}

	rr = do(t, f.sessions.Slots, http.MethodGet, "/api/v1/artists/slots?artist_id=7&date=May4", &admin, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", rr.Code)
	}
}

func ptrUser(u identity.User) *identity.User { return &u }
