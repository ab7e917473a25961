package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

// card-payment-sim creates a confirmed test-mode PaymentIntent for a session price and,
// when a session id is given, completes the session with it as the card reference.
func main() {
	var (
		baseURL   = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "studio-service base url")
		secret    = flag.String("secret", getenv("STRIPE_SECRET_KEY", ""), "stripe test secret key (sk_test_...)")
		amount    = flag.String("amount", getenv("AMOUNT", ""), "session price, e.g. 800.00")
		currency  = flag.String("currency", getenv("STUDIO_CURRENCY", "mxn"), "charge currency")
		sessionID = flag.Int64("session-id", 0, "session to complete after charging (0 only charges)")
		token     = flag.String("token", getenv("STUDIO_TOKEN", ""), "bearer token used to complete the session")
	)
	flag.Parse()

	if !strings.HasPrefix(strings.TrimSpace(*secret), "sk_test_") {
		fatal("STRIPE_SECRET_KEY must be a test key (sk_test_...)")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(*amount))
	if err != nil || !price.IsPositive() {
		fatal("AMOUNT must be a positive decimal")
	}

	stripe.Key = *secret
	pi, err := paymentintent.New(&stripe.PaymentIntentParams{
		Amount:             stripe.Int64(price.Shift(2).Round(0).IntPart()),
		Currency:           stripe.String(strings.ToLower(*currency)),
		PaymentMethod:      stripe.String("pm_card_visa"),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	})
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("payment_intent=%s status=%s\n", pi.ID, pi.Status)

	if *sessionID <= 0 {
		return
	}
	if strings.TrimSpace(*token) == "" {
		fatal("STUDIO_TOKEN is required to complete a session")
	}
	body, err := json.Marshal(map[string]any{
		"session_id":        *sessionID,
		"payment_method":    "card",
		"payment_reference": pi.ID,
	})
	if err != nil {
		fatal(err.Error())
	}
	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/sessions/complete", bytes.NewReader(body))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+*token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	fmt.Printf("status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(respBody)))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
