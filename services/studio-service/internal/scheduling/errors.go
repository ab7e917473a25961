package scheduling

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("schedule conflict")
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid transition")
)

type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError names the blocking session that overlaps the requested window.
// ConflictingID is zero when the database constraint caught the overlap.
type ConflictError struct {
	ArtistID      int64
	Start         time.Time
	End           time.Time
	ConflictingID int64
}

func (e *ConflictError) Error() string {
	window := e.Start.UTC().Format(time.RFC3339) + "/" + e.End.UTC().Format(time.RFC3339)
	if e.ConflictingID == 0 {
		return fmt.Sprintf("schedule conflict: artist %d already has a session overlapping %s", e.ArtistID, window)
	}
	return fmt.Sprintf("schedule conflict: artist %d window %s overlaps session %d", e.ArtistID, window, e.ConflictingID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// TransitionError describes a lifecycle move the state machine forbids.
// To is "transaction" when a second completion is attempted.
type TransitionError struct {
	From   model.Status
	To     string
	Detail string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func invalid(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}
