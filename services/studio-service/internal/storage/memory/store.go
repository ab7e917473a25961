// Package memory is an in-process Store used for local runs and tests.
//
// One mutex serializes every unit of work. Writes are staged on a copy of the state
// and only become visible when the unit of work returns nil.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/outbox"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
	"github.com/shopspring/decimal"
)

type state struct {
	sessions      map[int64]model.Session
	transactions  map[int64]model.Transaction
	artists       map[int64]model.Artist
	events        []outbox.Event
	nextSessionID int64
	nextTxnID     int64
}

func (s state) clone() state {
	c := state{
		sessions:      make(map[int64]model.Session, len(s.sessions)),
		transactions:  make(map[int64]model.Transaction, len(s.transactions)),
		artists:       make(map[int64]model.Artist, len(s.artists)),
		events:        append([]outbox.Event(nil), s.events...),
		nextSessionID: s.nextSessionID,
		nextTxnID:     s.nextTxnID,
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.artists {
		c.artists[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st state
}

func New() *Store {
	return &Store{st: state{
		sessions:     map[int64]model.Session{},
		transactions: map[int64]model.Transaction{},
		artists:      map[int64]model.Artist{},
	}}
}

var _ scheduling.Store = (*Store)(nil)

func (s *Store) PutArtist(a model.Artist) {
	s.mu.Lock()
	s.st.artists[a.ID] = a
	s.mu.Unlock()
}

func (s *Store) InTx(ctx context.Context, fn func(tx scheduling.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	staged := s.st.clone()
	if err := fn(&memTx{st: &staged}); err != nil {
		return err
	}
	s.st = staged
	return nil
}

func (s *Store) GetSession(_ context.Context, id int64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.st.sessions[id]
	if !ok {
		return model.Session{}, notFound(id)
	}
	return sess, nil
}

func (s *Store) ListSessions(_ context.Context, f scheduling.ListFilter) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := map[model.Status]bool{}
	for _, st := range f.Statuses {
		wanted[st] = true
	}
	var out []model.Session
	for _, sess := range s.st.sessions {
		if !f.From.IsZero() && sess.Start.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !sess.Start.Before(f.To) {
			continue
		}
		if f.ArtistID > 0 && sess.ArtistID != f.ArtistID {
			continue
		}
		if len(wanted) > 0 && !wanted[sess.Status] {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *Store) BlockingSessions(_ context.Context, artistID int64, from, to time.Time) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Session
	for _, sess := range s.st.sessions {
		if sess.ArtistID == artistID && sess.Status.Blocking() && sess.Overlaps(from, to) {
			out = append(out, sess)
		}
	}
	return out, nil
}

// Record appends a standalone audit event.
func (s *Store) Record(_ context.Context, evt outbox.Event) error {
	s.mu.Lock()
	s.st.events = append(s.st.events, evt)
	s.mu.Unlock()
	return nil
}

// Events returns a copy of every event written so far.
func (s *Store) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.st.events...)
}

// Transactions returns the transactions recorded for a session, soft-deleted ones included.
func (s *Store) Transactions(sessionID int64) []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Transaction
	for _, t := range s.st.transactions {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out
}

type memTx struct {
	st *state
}

// LockArtists is a no-op: the store mutex is held for the whole unit of work.
func (t *memTx) LockArtists(context.Context, ...int64) error { return nil }

func (t *memTx) GetSessionForUpdate(_ context.Context, id int64) (model.Session, error) {
	sess, ok := t.st.sessions[id]
	if !ok {
		return model.Session{}, notFound(id)
	}
	return sess, nil
}

func (t *memTx) FindOverlap(_ context.Context, artistID int64, start, end time.Time, excludeID int64) (int64, bool, error) {
	var found int64
	for id, sess := range t.st.sessions {
		if id == excludeID || sess.ArtistID != artistID || !sess.Status.Blocking() {
			continue
		}
		if sess.Overlaps(start, end) && (found == 0 || id < found) {
			found = id
		}
	}
	return found, found != 0, nil
}

func (t *memTx) InsertSession(_ context.Context, sess *model.Session) (int64, error) {
	t.st.nextSessionID++
	sess.ID = t.st.nextSessionID
	t.st.sessions[sess.ID] = *sess
	return sess.ID, nil
}

func (t *memTx) UpdateSession(_ context.Context, sess *model.Session) error {
	if _, ok := t.st.sessions[sess.ID]; !ok {
		return notFound(sess.ID)
	}
	t.st.sessions[sess.ID] = *sess
	return nil
}

func (t *memTx) CountTransactions(_ context.Context, sessionID int64) (int, error) {
	n := 0
	for _, txn := range t.st.transactions {
		if txn.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn *model.Transaction) (int64, error) {
	for _, existing := range t.st.transactions {
		if existing.SessionID == txn.SessionID && !existing.Deleted {
			return 0, &scheduling.TransitionError{From: model.StatusCompleted, To: string(model.StatusCompleted), Detail: "session already has a transaction"}
		}
	}
	t.st.nextTxnID++
	txn.ID = t.st.nextTxnID
	t.st.transactions[txn.ID] = *txn
	return txn.ID, nil
}

func (t *memTx) ArtistRate(_ context.Context, artistID int64) (*decimal.Decimal, error) {
	a, ok := t.st.artists[artistID]
	if !ok || a.CommissionRate == nil {
		return nil, nil
	}
	rate := *a.CommissionRate
	return &rate, nil
}

func (t *memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.st.events = append(t.st.events, evt)
	return nil
}

func notFound(id int64) error {
	return fmt.Errorf("session %d: %w", id, scheduling.ErrNotFound)
}
