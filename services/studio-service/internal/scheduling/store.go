package scheduling

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/outbox"
	"github.com/shopspring/decimal"
)

// Store is the persistence boundary for the session calendar.
type Store interface {
	// InTx runs fn in one unit of work. Any error from fn discards every write made through tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	GetSession(ctx context.Context, id int64) (model.Session, error)
	ListSessions(ctx context.Context, f ListFilter) ([]model.Session, error)
	// BlockingSessions returns the artist's blocking sessions that intersect [from, to).
	BlockingSessions(ctx context.Context, artistID int64, from, to time.Time) ([]model.Session, error)
}

// Tx is the set of reads and writes available inside a unit of work.
// Lookups of missing sessions return ErrNotFound.
type Tx interface {
	// LockArtists serializes writers on the given artists' calendars until the unit of work ends.
	LockArtists(ctx context.Context, artistIDs ...int64) error
	GetSessionForUpdate(ctx context.Context, id int64) (model.Session, error)
	// FindOverlap returns the id of a blocking session of artistID that overlaps [start, end), skipping excludeID.
	FindOverlap(ctx context.Context, artistID int64, start, end time.Time, excludeID int64) (int64, bool, error)
	InsertSession(ctx context.Context, s *model.Session) (int64, error)
	UpdateSession(ctx context.Context, s *model.Session) error
	// CountTransactions includes soft-deleted rows.
	CountTransactions(ctx context.Context, sessionID int64) (int, error)
	InsertTransaction(ctx context.Context, t *model.Transaction) (int64, error)
	// ArtistRate is nil when the artist has no rate of its own.
	ArtistRate(ctx context.Context, artistID int64) (*decimal.Decimal, error)
	AppendEvent(ctx context.Context, evt outbox.Event) error
}
