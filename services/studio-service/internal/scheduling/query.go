package scheduling

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/availability"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/shopspring/decimal"
)

// ListFilter narrows List. Zero values mean "no bound".
type ListFilter struct {
	// From is inclusive and To exclusive, both compared against the session start.
	From     time.Time
	To       time.Time
	ArtistID int64
	Statuses []model.Status
}

// SessionView is the flat read projection handed to callers.
type SessionView struct {
	ID                 int64
	ClientID           int64
	ArtistID           int64
	Start              time.Time
	End                time.Time
	Status             model.Status
	Price              decimal.Decimal
	Notes              string
	CommissionOverride *decimal.Decimal
	CancelReason       string
	CancelledAt        *time.Time
}

func viewOf(s model.Session) SessionView {
	return SessionView{
		ID:                 s.ID,
		ClientID:           s.ClientID,
		ArtistID:           s.ArtistID,
		Start:              s.Start,
		End:                s.End,
		Status:             s.Status,
		Price:              s.Price,
		Notes:              s.Notes,
		CommissionOverride: s.CommissionOverride,
		CancelReason:       s.CancelReason,
		CancelledAt:        s.CancelledAt,
	}
}

// List returns matching sessions ordered by start, then id.
func (s *Service) List(ctx context.Context, f ListFilter) ([]SessionView, error) {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, invalid("to", f.To.Format(time.RFC3339), "must be after from")
	}
	if f.ArtistID < 0 {
		return nil, invalid("artist_id", strconv.FormatInt(f.ArtistID, 10), "must be positive")
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, invalid("status", string(st), "unknown status")
		}
	}

	sessions, err := s.store.ListSessions(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Start.Equal(sessions[j].Start) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].Start.Before(sessions[j].Start)
	})
	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, viewOf(sess))
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, id int64) (SessionView, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return viewOf(sess), nil
}

// FreeSlots lists slot starts in [windowStart, windowEnd) where the artist has no blocking session.
// Slots already in the past are skipped.
func (s *Service) FreeSlots(ctx context.Context, artistID int64, windowStart, windowEnd time.Time, duration, step time.Duration) ([]time.Time, error) {
	if artistID <= 0 {
		return nil, invalid("artist_id", strconv.FormatInt(artistID, 10), "must be positive")
	}
	if err := validateWindow(windowStart, windowEnd); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, invalid("duration", duration.String(), "must be positive")
	}
	if step <= 0 {
		step = duration
	}

	busySessions, err := s.store.BlockingSessions(ctx, artistID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	busy := make([]availability.Interval, 0, len(busySessions))
	for _, b := range busySessions {
		busy = append(busy, availability.Interval{Start: b.Start, End: b.End})
	}
	return availability.FreeSlots(windowStart, windowEnd, duration, step, busy, s.now()), nil
}
