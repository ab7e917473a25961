package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/httpx"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/permissions"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
	"github.com/shopspring/decimal"
)

type SessionHandler struct {
	svc    *scheduling.Service
	perms  *permissions.Engine
	logger *slog.Logger
	loc    *time.Location
}

// NewSessionHandler serves the session endpoints. loc is the studio's timezone, used for slot search days.
func NewSessionHandler(svc *scheduling.Service, perms *permissions.Engine, logger *slog.Logger, loc *time.Location) *SessionHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionHandler{svc: svc, perms: perms, logger: logger, loc: loc}
}

type createSessionRequest struct {
	ClientID           int64            `json:"client_id"`
	ArtistID           int64            `json:"artist_id"`
	StartTime          string           `json:"start_time"`
	EndTime            string           `json:"end_time"`
	Price              *decimal.Decimal `json:"price"`
	Notes              string           `json:"notes"`
	CommissionOverride *decimal.Decimal `json:"commission_override"`
	Status             string           `json:"status"`
}

type createSessionResponse struct {
	SessionID int64 `json:"session_id"`
}

type updateSessionRequest struct {
	SessionID               int64            `json:"session_id"`
	StartTime               *string          `json:"start_time"`
	EndTime                 *string          `json:"end_time"`
	Price                   *decimal.Decimal `json:"price"`
	Notes                   *string          `json:"notes"`
	Status                  *string          `json:"status"`
	ArtistID                *int64           `json:"artist_id"`
	CommissionOverride      *decimal.Decimal `json:"commission_override"`
	ClearCommissionOverride bool             `json:"clear_commission_override"`
}

type cancelSessionRequest struct {
	SessionID int64  `json:"session_id"`
	NoShow    bool   `json:"no_show"`
	Reason    string `json:"reason"`
}

type completeSessionRequest struct {
	SessionID        int64  `json:"session_id"`
	PaymentMethod    string `json:"payment_method"`
	PaymentReference string `json:"payment_reference"`
}

type completeSessionResponse struct {
	SessionID     int64  `json:"session_id"`
	TransactionID int64  `json:"transaction_id"`
	Status        string `json:"status"`
}

type sessionItem struct {
	SessionID          int64   `json:"session_id"`
	ClientID           int64   `json:"client_id"`
	ArtistID           int64   `json:"artist_id"`
	StartTime          string  `json:"start_time"`
	EndTime            string  `json:"end_time"`
	Status             string  `json:"status"`
	Price              string  `json:"price"`
	Notes              string  `json:"notes,omitempty"`
	CommissionOverride *string `json:"commission_override,omitempty"`
	CancelReason       string  `json:"cancel_reason,omitempty"`
	CancelledAt        string  `json:"cancelled_at,omitempty"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Sessions serves GET (list) and POST (create) on the collection path.
func (h *SessionHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	start, err := parseTime(req.StartTime)
	if err != nil {
		badRequest(w, "invalid start_time")
		return
	}
	end, err := parseTime(req.EndTime)
	if err != nil {
		badRequest(w, "invalid end_time")
		return
	}

	ctx := r.Context()
	if err := h.perms.Enforce(ctx, "sessions", "create", &req.ArtistID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	in := scheduling.CreateInput{
		ClientID:           req.ClientID,
		ArtistID:           req.ArtistID,
		Start:              start,
		End:                end,
		Notes:              req.Notes,
		CommissionOverride: req.CommissionOverride,
		Status:             req.Status,
	}
	if req.Price != nil {
		in.Price = *req.Price
	}
	id, err := h.svc.Create(ctx, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.perms.Enforce(ctx, "sessions", "view", nil); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	var f scheduling.ListFilter
	var err error
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		if f.From, err = parseTime(raw); err != nil {
			badRequest(w, "invalid from")
			return
		}
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		if f.To, err = parseTime(raw); err != nil {
			badRequest(w, "invalid to")
			return
		}
	}
	if raw := strings.TrimSpace(q.Get("artist_id")); raw != "" {
		if f.ArtistID, err = strconv.ParseInt(raw, 10, 64); err != nil || f.ArtistID <= 0 {
			badRequest(w, "invalid artist_id")
			return
		}
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			st, ok := model.ParseStatus(part)
			if !ok {
				badRequest(w, "invalid status "+strconv.Quote(part))
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	views, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	items := make([]sessionItem, 0, len(views))
	for _, v := range views {
		items = append(items, toSessionItem(v))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if req.SessionID <= 0 {
		badRequest(w, "session_id required")
		return
	}
	in := scheduling.UpdateInput{
		Price:                   req.Price,
		Notes:                   req.Notes,
		Status:                  req.Status,
		ArtistID:                req.ArtistID,
		CommissionOverride:      req.CommissionOverride,
		ClearCommissionOverride: req.ClearCommissionOverride,
	}
	if req.StartTime != nil {
		start, err := parseTime(*req.StartTime)
		if err != nil {
			badRequest(w, "invalid start_time")
			return
		}
		in.Start = &start
	}
	if req.EndTime != nil {
		end, err := parseTime(*req.EndTime)
		if err != nil {
			badRequest(w, "invalid end_time")
			return
		}
		in.End = &end
	}

	ctx := r.Context()
	if err := h.perms.EnforceRole(ctx, "sessions", "edit"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Update(ctx, req.SessionID, in, h.guard(ctx, "edit")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	updated, err := h.svc.Get(ctx, req.SessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSessionItem(updated))
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req cancelSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if req.SessionID <= 0 {
		badRequest(w, "session_id required")
		return
	}

	ctx := r.Context()
	if err := h.perms.EnforceRole(ctx, "sessions", "cancel"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Cancel(ctx, req.SessionID, req.NoShow, req.Reason, h.guard(ctx, "cancel")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	cancelled, err := h.svc.Get(ctx, req.SessionID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSessionItem(cancelled))
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req completeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if req.SessionID <= 0 {
		badRequest(w, "session_id required")
		return
	}

	ctx := r.Context()
	if err := h.perms.EnforceRole(ctx, "sessions", "complete"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	txnID, err := h.svc.Complete(ctx, req.SessionID, scheduling.CompleteInput{
		Method:    req.PaymentMethod,
		Reference: req.PaymentReference,
	}, h.guard(ctx, "complete"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, completeSessionResponse{
		SessionID:     req.SessionID,
		TransactionID: txnID,
		Status:        string(model.StatusCompleted),
	})
}

// guard enforces action against the artist owning the row locked by the mutation.
func (h *SessionHandler) guard(ctx context.Context, action string) scheduling.Guard {
	return func(artistID int64) error {
		return h.perms.Enforce(ctx, "sessions", action, &artistID)
	}
}

// Slots lists free start times for one artist on one studio day.
func (h *SessionHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := r.URL.Query()
	artistID, err := strconv.ParseInt(strings.TrimSpace(q.Get("artist_id")), 10, 64)
	if err != nil || artistID <= 0 {
		badRequest(w, "artist_id required")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(q.Get("date")), h.loc)
	if err != nil {
		badRequest(w, "date must be YYYY-MM-DD")
		return
	}
	duration, ok := minutesParam(q.Get("duration_minutes"), 60)
	if !ok {
		badRequest(w, "invalid duration_minutes")
		return
	}
	step, ok := minutesParam(q.Get("slot_step_minutes"), duration)
	if !ok {
		badRequest(w, "invalid slot_step_minutes")
		return
	}
	open, ok := clockParam(day, q.Get("workday_start"), "10:00")
	if !ok {
		badRequest(w, "workday_start must be HH:MM")
		return
	}
	closeAt, ok := clockParam(day, q.Get("workday_end"), "20:00")
	if !ok {
		badRequest(w, "workday_end must be HH:MM")
		return
	}

	ctx := r.Context()
	if err := h.perms.Enforce(ctx, "sessions", "view", &artistID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	starts, err := h.svc.FreeSlots(ctx, artistID, open, closeAt, time.Duration(duration)*time.Minute, time.Duration(step)*time.Minute)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	resp := make([]slotItem, 0, len(starts))
	for _, s := range starts {
		resp = append(resp, slotItem{
			StartTime: s.UTC().Format(time.RFC3339),
			EndTime:   s.Add(time.Duration(duration) * time.Minute).UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func toSessionItem(v scheduling.SessionView) sessionItem {
	item := sessionItem{
		SessionID:    v.ID,
		ClientID:     v.ClientID,
		ArtistID:     v.ArtistID,
		StartTime:    v.Start.UTC().Format(time.RFC3339),
		EndTime:      v.End.UTC().Format(time.RFC3339),
		Status:       string(v.Status),
		Price:        v.Price.StringFixed(2),
		Notes:        v.Notes,
		CancelReason: v.CancelReason,
	}
	if v.CommissionOverride != nil {
		rate := v.CommissionOverride.String()
		item.CommissionOverride = &rate
	}
	if v.CancelledAt != nil {
		item.CancelledAt = v.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}

func minutesParam(raw string, fallback int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 24*60 {
		return 0, false
	}
	return n, true
}

func clockParam(day time.Time, raw, fallback string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), true
}
