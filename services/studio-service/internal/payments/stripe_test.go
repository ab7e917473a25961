package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
)

func TestVerifyCardPayment(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	intents := map[string]*stripe.PaymentIntent{
		"pi_ok":      {ID: "pi_ok", Status: stripe.PaymentIntentStatusSucceeded, AmountReceived: 80000, Currency: "mxn"},
		"pi_short":   {ID: "pi_short", Status: stripe.PaymentIntentStatusSucceeded, AmountReceived: 79999, Currency: "mxn"},
		"pi_pending": {ID: "pi_pending", Status: stripe.PaymentIntentStatusProcessing, AmountReceived: 0, Currency: "mxn"},
		"pi_usd":     {ID: "pi_usd", Status: stripe.PaymentIntentStatusSucceeded, AmountReceived: 80000, Currency: "usd"},
	}
	outage := errors.New("stripe unreachable")
	fetch := func(_ context.Context, id string) (*stripe.PaymentIntent, error) {
		switch id {
		case "pi_down":
			return nil, outage
		case "pi_missing":
			return nil, &stripe.Error{HTTPStatusCode: 404}
		}
		return intents[id], nil
	}
	v := NewVerifierWithFetcher(fetch, "MXN", logger)
	price := decimal.RequireFromString("800.00")
	ctx := context.Background()

	if err := v.VerifyCardPayment(ctx, "pi_ok", price); err != nil {
		t.Fatalf("expected verified payment, got %v", err)
	}
	for _, ref := range []string{"pi_short", "pi_pending", "pi_usd", "pi_missing", "ch_123"} {
		if err := v.VerifyCardPayment(ctx, ref, price); !errors.Is(err, ErrPaymentNotVerified) {
			t.Fatalf("%s: expected ErrPaymentNotVerified, got %v", ref, err)
		}
	}
	if err := v.VerifyCardPayment(ctx, "pi_down", price); !errors.Is(err, outage) || errors.Is(err, ErrPaymentNotVerified) {
		t.Fatalf("outages must surface as infrastructure errors, got %v", err)
	}
}
