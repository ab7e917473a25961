// Package scheduling owns the session calendar: creation, edits, cancellation and completion.
//
// Every mutating call runs in a single Store unit of work. The artist's calendar is locked
// before the overlap check so concurrent writers cannot both pass it.
package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/commission"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/model"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/outbox"
	"github.com/shopspring/decimal"
)

// CardVerifier confirms an external card payment covers amount.
type CardVerifier interface {
	VerifyCardPayment(ctx context.Context, reference string, amount decimal.Decimal) error
}

type Service struct {
	store  Store
	now    func() time.Time
	cards  CardVerifier
	logger *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCardVerifier(v CardVerifier) Option {
	return func(s *Service) { s.cards = v }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	ClientID           int64
	ArtistID           int64
	Start              time.Time
	End                time.Time
	Price              decimal.Decimal
	Notes              string
	CommissionOverride *decimal.Decimal
	// Status defaults to active. Only active and waiting are accepted.
	Status string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	if in.ClientID <= 0 {
		return 0, invalid("client_id", strconv.FormatInt(in.ClientID, 10), "must be positive")
	}
	if in.ArtistID <= 0 {
		return 0, invalid("artist_id", strconv.FormatInt(in.ArtistID, 10), "must be positive")
	}
	if err := validateWindow(in.Start, in.End); err != nil {
		return 0, err
	}
	if err := validatePrice(in.Price); err != nil {
		return 0, err
	}
	if err := validateOverride(in.CommissionOverride); err != nil {
		return 0, err
	}
	status := model.StatusActive
	if strings.TrimSpace(in.Status) != "" {
		parsed, ok := model.ParseStatus(in.Status)
		if !ok || (parsed != model.StatusActive && parsed != model.StatusWaiting) {
			return 0, invalid("status", in.Status, "new sessions must be active or waiting")
		}
		status = parsed
	}

	now := s.now().UTC()
	sess := model.Session{
		ClientID:           in.ClientID,
		ArtistID:           in.ArtistID,
		Start:              in.Start,
		End:                in.End,
		Status:             status,
		Price:              in.Price,
		Notes:              strings.TrimSpace(in.Notes),
		CommissionOverride: in.CommissionOverride,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var id int64
	err := s.store.InTx(ctx, func(tx Tx) error {
		if err := tx.LockArtists(ctx, sess.ArtistID); err != nil {
			return fmt.Errorf("lock artist calendar: %w", err)
		}
		if err := checkOverlap(ctx, tx, sess.ArtistID, sess.Start, sess.End, 0); err != nil {
			return err
		}
		var err error
		id, err = tx.InsertSession(ctx, &sess)
		if err != nil {
			return err
		}
		sess.ID = id
		return appendSessionEvent(ctx, tx, outbox.TopicSessionCreated, sess, nil)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("session created", "session_id", id, "artist_id", sess.ArtistID, "start", sess.Start, "end", sess.End)
	return id, nil
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	Start              *time.Time
	End                *time.Time
	Price              *decimal.Decimal
	Notes              *string
	Status             *string
	ArtistID           *int64
	CommissionOverride *decimal.Decimal
	// ClearCommissionOverride removes the override; it wins over CommissionOverride.
	ClearCommissionOverride bool
}

func (u UpdateInput) empty() bool {
	return u.Start == nil && u.End == nil && u.Price == nil && u.Notes == nil && u.Status == nil &&
		u.ArtistID == nil && u.CommissionOverride == nil && !u.ClearCommissionOverride
}

// Guard authorizes a mutation against the artist owning the locked session row.
// Update also calls it with the new artist when a session is reassigned.
type Guard func(artistID int64) error

func runGuards(guards []Guard, artistID int64) error {
	for _, g := range guards {
		if g == nil {
			continue
		}
		if err := g(artistID); err != nil {
			return err
		}
	}
	return nil
}

// Update applies a partial edit. An empty edit still fails with ErrNotFound for unknown ids.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, guards ...Guard) error {
	var newStatus model.Status
	if in.Status != nil {
		parsed, ok := model.ParseStatus(*in.Status)
		if !ok {
			return invalid("status", *in.Status, "unknown status")
		}
		newStatus = parsed
	}
	if in.ArtistID != nil && *in.ArtistID <= 0 {
		return invalid("artist_id", strconv.FormatInt(*in.ArtistID, 10), "must be positive")
	}
	if in.Price != nil {
		if err := validatePrice(*in.Price); err != nil {
			return err
		}
	}
	if !in.ClearCommissionOverride {
		if err := validateOverride(in.CommissionOverride); err != nil {
			return err
		}
	}

	var changed []string
	err := s.store.InTx(ctx, func(tx Tx) error {
		cur, err := tx.GetSessionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := runGuards(guards, cur.ArtistID); err != nil {
			return err
		}
		if in.ArtistID != nil && *in.ArtistID != cur.ArtistID {
			if err := runGuards(guards, *in.ArtistID); err != nil {
				return err
			}
		}
		if in.empty() {
			return nil
		}
		if cur.Status == model.StatusCompleted {
			return &TransitionError{From: cur.Status, To: "edited", Detail: "completed sessions are read-only"}
		}
		if in.Status != nil {
			if newStatus == model.StatusCompleted {
				return &TransitionError{From: cur.Status, To: string(model.StatusCompleted), Detail: "use complete to close a session"}
			}
			if cur.Status.Terminal() && newStatus != cur.Status {
				return &TransitionError{From: cur.Status, To: string(newStatus)}
			}
		}

		next := cur
		windowChanged := false
		if in.Start != nil && !in.Start.Equal(cur.Start) {
			next.Start = *in.Start
			windowChanged = true
			changed = append(changed, "start")
		}
		if in.End != nil && !in.End.Equal(cur.End) {
			next.End = *in.End
			windowChanged = true
			changed = append(changed, "end")
		}
		if in.ArtistID != nil && *in.ArtistID != cur.ArtistID {
			next.ArtistID = *in.ArtistID
			windowChanged = true
			changed = append(changed, "artist_id")
		}
		if in.Price != nil {
			next.Price = *in.Price
			changed = append(changed, "price")
		}
		if in.Notes != nil {
			next.Notes = strings.TrimSpace(*in.Notes)
			changed = append(changed, "notes")
		}
		switch {
		case in.ClearCommissionOverride:
			next.CommissionOverride = nil
			changed = append(changed, "commission_override")
		case in.CommissionOverride != nil:
			rate := *in.CommissionOverride
			next.CommissionOverride = &rate
			changed = append(changed, "commission_override")
		}
		if in.Status != nil && newStatus != cur.Status {
			next.Status = newStatus
			changed = append(changed, "status")
			if !newStatus.Blocking() {
				at := s.now().UTC()
				next.CancelledAt = &at
			}
		}

		if err := validateWindow(next.Start, next.End); err != nil {
			return err
		}
		if windowChanged && next.Status.Blocking() {
			if err := tx.LockArtists(ctx, cur.ArtistID, next.ArtistID); err != nil {
				return fmt.Errorf("lock artist calendar: %w", err)
			}
			if err := checkOverlap(ctx, tx, next.ArtistID, next.Start, next.End, next.ID); err != nil {
				return err
			}
		}

		next.UpdatedAt = s.now().UTC()
		if err := tx.UpdateSession(ctx, &next); err != nil {
			return err
		}
		return appendSessionEvent(ctx, tx, outbox.TopicSessionUpdated, next, map[string]any{"changed": changed})
	})
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return nil
	}
	s.logger.Info("session updated", "session_id", id, "changed", changed)
	return nil
}

// Cancel moves a session to cancelled, or no_show when asNoShow is set.
// Cancelling an already cancelled session is a no-op.
func (s *Service) Cancel(ctx context.Context, id int64, asNoShow bool, reason string, guards ...Guard) error {
	target := model.StatusCancelled
	if asNoShow {
		target = model.StatusNoShow
	}
	reason = strings.TrimSpace(reason)

	noop := false
	err := s.store.InTx(ctx, func(tx Tx) error {
		sess, err := tx.GetSessionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := runGuards(guards, sess.ArtistID); err != nil {
			return err
		}
		switch sess.Status {
		case model.StatusCompleted:
			return &TransitionError{From: sess.Status, To: string(target), Detail: "completed sessions cannot be cancelled"}
		case model.StatusCancelled, model.StatusNoShow:
			noop = true
			return nil
		}

		now := s.now().UTC()
		sess.Status = target
		sess.CancelledAt = &now
		sess.CancelReason = reason
		sess.UpdatedAt = now
		if err := tx.UpdateSession(ctx, &sess); err != nil {
			return err
		}
		return appendSessionEvent(ctx, tx, outbox.TopicSessionCancelled, sess, map[string]any{
			"no_show": asNoShow,
			"reason":  reason,
		})
	})
	if err != nil {
		return err
	}
	if noop {
		s.logger.Debug("session already cancelled", "session_id", id)
		return nil
	}
	s.logger.Info("session cancelled", "session_id", id, "status", target)
	return nil
}

type CompleteInput struct {
	// Method is a payment method code or label, e.g. "card" or "Tarjeta".
	Method string
	// Reference is the external payment id, checked with the card verifier for card payments.
	Reference string
}

// Complete closes the session and records its transaction. It returns the transaction id.
func (s *Service) Complete(ctx context.Context, id int64, in CompleteInput, guards ...Guard) (int64, error) {
	method, ok := model.ParsePaymentMethod(in.Method)
	if !ok {
		return 0, invalid("payment_method", in.Method, "must be cash, card or transfer")
	}
	reference := strings.TrimSpace(in.Reference)

	var txn model.Transaction
	err := s.store.InTx(ctx, func(tx Tx) error {
		sess, err := tx.GetSessionForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := runGuards(guards, sess.ArtistID); err != nil {
			return err
		}
		switch sess.Status {
		case model.StatusCompleted:
			return &TransitionError{From: sess.Status, To: string(model.StatusCompleted), Detail: "session already completed"}
		case model.StatusCancelled, model.StatusNoShow:
			return &TransitionError{From: sess.Status, To: string(model.StatusCompleted)}
		}
		n, err := tx.CountTransactions(ctx, sess.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return &TransitionError{From: sess.Status, To: string(model.StatusCompleted), Detail: "session already has a transaction"}
		}

		if method == model.PaymentCard && reference != "" && s.cards != nil {
			if err := s.cards.VerifyCardPayment(ctx, reference, sess.Price); err != nil {
				return fmt.Errorf("verify card payment: %w", err)
			}
		}

		artistRate, err := tx.ArtistRate(ctx, sess.ArtistID)
		if err != nil {
			return fmt.Errorf("load artist rate: %w", err)
		}
		rate := commission.EffectiveRate(sess.CommissionOverride, artistRate)

		now := s.now().UTC()
		date := sess.End
		if date.IsZero() {
			date = now
		}
		sess.Status = model.StatusCompleted
		sess.UpdatedAt = now
		if err := tx.UpdateSession(ctx, &sess); err != nil {
			return err
		}

		txn = model.Transaction{
			SessionID:        sess.ID,
			ArtistID:         sess.ArtistID,
			Amount:           sess.Price,
			Method:           method,
			PaymentReference: reference,
			Date:             date,
			CommissionAmount: commission.Amount(sess.Price, rate),
			CreatedAt:        now,
		}
		txn.ID, err = tx.InsertTransaction(ctx, &txn)
		if err != nil {
			return err
		}
		return appendSessionEvent(ctx, tx, outbox.TopicSessionCompleted, sess, map[string]any{
			"transaction_id":    txn.ID,
			"amount":            txn.Amount.StringFixed(2),
			"commission_amount": txn.CommissionAmount.StringFixed(2),
			"commission_rate":   rate.String(),
			"payment_method":    string(method),
		})
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("session completed", "session_id", id, "transaction_id", txn.ID, "amount", txn.Amount.StringFixed(2), "commission", txn.CommissionAmount.StringFixed(2))
	return txn.ID, nil
}

func checkOverlap(ctx context.Context, tx Tx, artistID int64, start, end time.Time, excludeID int64) error {
	conflictID, found, err := tx.FindOverlap(ctx, artistID, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if found {
		return &ConflictError{ArtistID: artistID, Start: start, End: end, ConflictingID: conflictID}
	}
	return nil
}

func appendSessionEvent(ctx context.Context, tx Tx, topic string, sess model.Session, extra map[string]any) error {
	payload := map[string]any{
		"session_id": sess.ID,
		"client_id":  sess.ClientID,
		"artist_id":  sess.ArtistID,
		"start_time": sess.Start.UTC().Format(time.RFC3339),
		"end_time":   sess.End.UTC().Format(time.RFC3339),
		"status":     string(sess.Status),
		"price":      sess.Price.StringFixed(2),
	}
	for k, v := range extra {
		payload[k] = v
	}
	evt, err := outbox.NewEvent(topic, outbox.AggregateSession, strconv.FormatInt(sess.ID, 10), payload)
	if err != nil {
		return err
	}
	if err := tx.AppendEvent(ctx, evt); err != nil {
		return fmt.Errorf("write outbox event: %w", err)
	}
	return nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() {
		return invalid("start", "", "required")
	}
	if end.IsZero() {
		return invalid("end", "", "required")
	}
	if !start.Before(end) {
		return invalid("end", end.Format(time.RFC3339), "must be after start "+start.Format(time.RFC3339))
	}
	return nil
}

var maxPrice = decimal.New(1, 10)

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return invalid("price", price.String(), "must not be negative")
	}
	if !price.Equal(price.Truncate(2)) {
		return invalid("price", price.String(), "at most 2 decimal places")
	}
	if !price.LessThan(maxPrice) {
		return invalid("price", price.String(), "must be below "+maxPrice.String())
	}
	return nil
}

func validateOverride(rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if err := commission.ValidateRate(*rate); err != nil {
		return invalid("commission_override", rate.String(), "must be between 0 and 1")
	}
	if !rate.Equal(rate.Truncate(4)) {
		return invalid("commission_override", rate.String(), "at most 4 decimal places")
	}
	return nil
}
