// Package storage is the Postgres Store for the session calendar.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/inkdesk/libs/db"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/outbox"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
	"github.com/shopspring/decimal"
)

type SessionRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewSessionRepository(pool *db.Pool, outboxRepo *outbox.Repository) *SessionRepository {
	return &SessionRepository{pool: pool, outbox: outboxRepo}
}

var _ scheduling.Store = (*SessionRepository)(nil)

// InTx runs fn in a database transaction and translates constraint violations into
// scheduling errors.
func (r *SessionRepository) InTx(ctx context.Context, fn func(tx scheduling.Tx) error) error {
	var scope txScope
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&sessionTx{tx: tx, outbox: r.outbox, scope: &scope})
	})
	return classify(err, scope)
}

const sessionColumns = `
	id, client_id, artist_id, start_time, end_time, status, price::text, notes,
	commission_override::text, cancel_reason, cancelled_at, created_at, updated_at
`

func (r *SessionRepository) GetSession(ctx context.Context, id int64) (model.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Session{}, fmt.Errorf("session %d: %w", id, scheduling.ErrNotFound)
	}
	return sess, err
}

func (r *SessionRepository) ListSessions(ctx context.Context, f scheduling.ListFilter) ([]model.Session, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.From.IsZero() {
		add("start_time >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("start_time < $%d", f.To)
	}
	if f.ArtistID > 0 {
		add("artist_id = $%d", f.ArtistID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		add("status = ANY($%d)", statuses)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY start_time ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *SessionRepository) BlockingSessions(ctx context.Context, artistID int64, from, to time.Time) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE artist_id = $1
			AND status NOT IN ('cancelled', 'no_show')
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, artistID, from, to)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// Record writes a standalone audit event outside any session transaction.
func (r *SessionRepository) Record(ctx context.Context, evt outbox.Event) error {
	return r.outbox.Record(ctx, evt)
}

// txScope remembers what the unit of work touched so constraint errors can be described.
type txScope struct {
	artistID int64
	start    time.Time
	end      time.Time
	session  model.Session
}

type sessionTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
	scope  *txScope
}

// LockArtists takes transaction-scoped advisory locks in ascending id order.
// Ids above the int4 range wrap; a collision only serializes two calendars together.
func (t *sessionTx) LockArtists(ctx context.Context, artistIDs ...int64) error {
	ids := uniqueSorted(artistIDs)
	for _, id := range ids {
		if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('studio.artist'), $1::int)`, int32(id)); err != nil {
			return err
		}
	}
	return nil
}

func (t *sessionTx) GetSessionForUpdate(ctx context.Context, id int64) (model.Session, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Session{}, fmt.Errorf("session %d: %w", id, scheduling.ErrNotFound)
	}
	if err == nil {
		t.scope.session = sess
	}
	return sess, err
}

func (t *sessionTx) FindOverlap(ctx context.Context, artistID int64, start, end time.Time, excludeID int64) (int64, bool, error) {
	t.scope.artistID, t.scope.start, t.scope.end = artistID, start, end
	var id int64
	err := t.tx.QueryRow(ctx, `
		SELECT id
		FROM sessions
		WHERE artist_id = $1
			AND status NOT IN ('cancelled', 'no_show')
			AND start_time < $3
			AND end_time > $2
			AND id <> $4
		ORDER BY start_time ASC, id ASC
		LIMIT 1
	`, artistID, start, end, excludeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *sessionTx) InsertSession(ctx context.Context, s *model.Session) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sessions
			(client_id, artist_id, start_time, end_time, status, price, notes, commission_override, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8::numeric, $9, $10)
		RETURNING id
	`, s.ClientID, s.ArtistID, s.Start, s.End, string(s.Status), s.Price.String(), s.Notes,
		decimalArg(s.CommissionOverride), s.CreatedAt, s.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	s.ID = id
	return id, nil
}

func (t *sessionTx) UpdateSession(ctx context.Context, s *model.Session) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE sessions
		SET client_id = $2,
			artist_id = $3,
			start_time = $4,
			end_time = $5,
			status = $6,
			price = $7::numeric,
			notes = $8,
			commission_override = $9::numeric,
			cancel_reason = $10,
			cancelled_at = $11,
			updated_at = $12
		WHERE id = $1
	`, s.ID, s.ClientID, s.ArtistID, s.Start, s.End, string(s.Status), s.Price.String(), s.Notes,
		decimalArg(s.CommissionOverride), s.CancelReason, s.CancelledAt, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %d: %w", s.ID, scheduling.ErrNotFound)
	}
	return nil
}

func (t *sessionTx) CountTransactions(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE session_id = $1`, sessionID).Scan(&n)
	return n, err
}

func (t *sessionTx) InsertTransaction(ctx context.Context, txn *model.Transaction) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transactions
			(session_id, artist_id, amount, method, payment_reference, txn_date, commission_amount, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7::numeric, $8)
		RETURNING id
	`, txn.SessionID, txn.ArtistID, txn.Amount.StringFixed(2), string(txn.Method), txn.PaymentReference,
		txn.Date, txn.CommissionAmount.StringFixed(2), txn.CreatedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	txn.ID = id
	return id, nil
}

func (t *sessionTx) ArtistRate(ctx context.Context, artistID int64) (*decimal.Decimal, error) {
	var raw *string
	err := t.tx.QueryRow(ctx, `SELECT commission_rate::text FROM artists WHERE id = $1`, artistID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parseDecimalPtr(raw)
}

func (t *sessionTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func scanSession(row pgx.Row) (model.Session, error) {
	var (
		s        model.Session
		status   string
		price    string
		override *string
	)
	if err := row.Scan(
		&s.ID,
		&s.ClientID,
		&s.ArtistID,
		&s.Start,
		&s.End,
		&status,
		&price,
		&s.Notes,
		&override,
		&s.CancelReason,
		&s.CancelledAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return model.Session{}, err
	}
	s.Status = model.Status(status)
	p, err := decimal.NewFromString(price)
	if err != nil {
		return model.Session{}, fmt.Errorf("session %d price: %w", s.ID, err)
	}
	s.Price = p
	s.CommissionOverride, err = parseDecimalPtr(override)
	if err != nil {
		return model.Session{}, fmt.Errorf("session %d commission override: %w", s.ID, err)
	}
	return s, nil
}

func collectSessions(rows pgx.Rows) ([]model.Session, error) {
	defer rows.Close()
	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimalPtr(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func uniqueSorted(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
