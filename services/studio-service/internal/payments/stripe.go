// Package payments checks card payments against Stripe before a session is completed.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	stripepaymentintent "github.com/stripe/stripe-go/v79/paymentintent"
)

var ErrPaymentNotVerified = errors.New("card payment not verified")

type PaymentIntentFetcher func(ctx context.Context, id string) (*stripe.PaymentIntent, error)

type StripeVerifier struct {
	fetch    PaymentIntentFetcher
	currency string
	logger   *slog.Logger
}

// NewStripeVerifier uses the Stripe API with secretKey. currency is the studio's ISO code, e.g. "mxn".
func NewStripeVerifier(secretKey, currency string, logger *slog.Logger) *StripeVerifier {
	stripe.Key = secretKey
	return NewVerifierWithFetcher(fetchFromStripe, currency, logger)
}

func NewVerifierWithFetcher(fetch PaymentIntentFetcher, currency string, logger *slog.Logger) *StripeVerifier {
	return &StripeVerifier{fetch: fetch, currency: strings.ToLower(strings.TrimSpace(currency)), logger: logger}
}

func fetchFromStripe(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return stripepaymentintent.Get(id, params)
}

// VerifyCardPayment requires a succeeded PaymentIntent whose received amount covers amount.
func (v *StripeVerifier) VerifyCardPayment(ctx context.Context, reference string, amount decimal.Decimal) error {
	if !strings.HasPrefix(reference, "pi_") {
		return fmt.Errorf("%w: %q is not a payment intent id", ErrPaymentNotVerified, reference)
	}
	pi, err := v.fetch(ctx, reference)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == 404 {
			return fmt.Errorf("%w: payment intent %s not found", ErrPaymentNotVerified, reference)
		}
		v.logger.Error("stripe payment intent lookup failed", "err", err, "payment_intent", reference)
		return fmt.Errorf("fetch payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: payment intent %s is %s", ErrPaymentNotVerified, reference, pi.Status)
	}
	if v.currency != "" && !strings.EqualFold(string(pi.Currency), v.currency) {
		return fmt.Errorf("%w: payment intent %s is in %s", ErrPaymentNotVerified, reference, pi.Currency)
	}
	want := amount.Shift(2).Round(0).IntPart()
	if pi.AmountReceived < want {
		return fmt.Errorf("%w: received %d of %d minor units", ErrPaymentNotVerified, pi.AmountReceived, want)
	}
	return nil
}
