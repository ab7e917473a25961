package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
)

const (
	sqlStateExclusionViolation = "23P01"
	sqlStateUniqueViolation    = "23505"
	sqlStateCheckViolation     = "23514"
	sqlStateForeignKey         = "23503"

	constraintNoOverlap        = "sessions_no_overlap"
	constraintOneTxnPerSession = "transactions_one_per_session"
	constraintSessionWindow    = "sessions_window_valid"
)

// classify maps constraint violations that slipped past the service checks onto
// scheduling errors. Anything else is returned unchanged.
func classify(err error, scope txScope) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateExclusionViolation:
		return &scheduling.ConflictError{ArtistID: scope.artistID, Start: scope.start, End: scope.end}
	case sqlStateUniqueViolation:
		if pgErr.ConstraintName == constraintOneTxnPerSession {
			from := scope.session.Status
			if from == "" {
				from = model.StatusCompleted
			}
			return &scheduling.TransitionError{From: from, To: string(model.StatusCompleted), Detail: "session already has a transaction"}
		}
	case sqlStateCheckViolation:
		if pgErr.ConstraintName == constraintSessionWindow {
			return &scheduling.ValidationError{Field: "end", Reason: "must be after start"}
		}
	case sqlStateForeignKey:
		return &scheduling.ValidationError{Field: fkField(pgErr.ConstraintName), Reason: "references a missing record"}
	}
	return err
}

func fkField(constraint string) string {
	switch constraint {
	case "sessions_client_id_fkey":
		return "client_id"
	case "sessions_artist_id_fkey", "transactions_artist_id_fkey":
		return "artist_id"
	default:
		return constraint
	}
}
