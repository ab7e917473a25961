package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
)

func TestClassify(t *testing.T) {
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	scope := txScope{artistID: 7, start: start, end: start.Add(time.Hour), session: model.Session{ID: 3, Status: model.StatusActive}}

	if classify(nil, scope) != nil {
		t.Fatal("nil must stay nil")
	}

	err := classify(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "23P01", ConstraintName: constraintNoOverlap}), scope)
	var cerr *scheduling.ConflictError
	if !errors.As(err, &cerr) || cerr.ArtistID != 7 || !cerr.Start.Equal(start) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	err = classify(&pgconn.PgError{Code: "23505", ConstraintName: constraintOneTxnPerSession}, scope)
	var terr *scheduling.TransitionError
	if !errors.As(err, &terr) || terr.From != model.StatusActive {
		t.Fatalf("expected transition error, got %v", err)
	}

	err = classify(&pgconn.PgError{Code: "23514", ConstraintName: constraintSessionWindow}, scope)
	if !errors.Is(err, scheduling.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = classify(&pgconn.PgError{Code: "23503", ConstraintName: "sessions_client_id_fkey"}, scope)
	var verr *scheduling.ValidationError
	if !errors.As(err, &verr) || verr.Field != "client_id" {
		t.Fatalf("expected client_id validation error, got %v", err)
	}

	other := &pgconn.PgError{Code: "23505", ConstraintName: "settings_pkey"}
	if got := classify(other, scope); got != other {
		t.Fatalf("unrelated unique violation must pass through, got %v", got)
	}
	plain := errors.New("connection reset")
	if got := classify(plain, scope); got != plain {
		t.Fatalf("non-postgres errors must pass through, got %v", got)
	}
}

func TestUniqueSorted(t *testing.T) {
	got := uniqueSorted([]int64{9, 3, 9, 0, 3, 5})
	want := []int64{3, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v", got)
		}
	}
}
