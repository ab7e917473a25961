package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var statusAliases = map[string]Status{
	"active":     StatusActive,
	"activa":     StatusActive,
	"waiting":    StatusWaiting,
	"en espera":  StatusWaiting,
	"completed":  StatusCompleted,
	"completada": StatusCompleted,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"cancelada":  StatusCancelled,
	"no_show":    StatusNoShow,
	"no-show":    StatusNoShow,
	"no asistió": StatusNoShow,
}

// ParseStatus accepts wire codes and the studio's Spanish labels, case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	s, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusWaiting, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Blocking reports whether a session in this status occupies the artist's calendar.
func (s Status) Blocking() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Terminal statuses never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Session is one appointment row. The window is half-open: [Start, End).
type Session struct {
	ID                 int64
	ClientID           int64
	ArtistID           int64
	Start              time.Time
	End                time.Time
	Status             Status
	Price              decimal.Decimal
	Notes              string
	CommissionOverride *decimal.Decimal
	CancelReason       string
	CancelledAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Overlaps uses the half-open rule, so back-to-back sessions do not collide.
func (s Session) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && s.End.After(start)
}
