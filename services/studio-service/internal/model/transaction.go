package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

var paymentAliases = map[string]PaymentMethod{
	"cash":          PaymentCash,
	"efectivo":      PaymentCash,
	"card":          PaymentCard,
	"tarjeta":       PaymentCard,
	"transfer":      PaymentTransfer,
	"transferencia": PaymentTransfer,
}

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	m, ok := paymentAliases[strings.ToLower(strings.TrimSpace(raw))]
	return m, ok
}

// Transaction is the cash-register entry produced when a session is completed.
type Transaction struct {
	ID               int64
	SessionID        int64
	ArtistID         int64
	Amount           decimal.Decimal
	Method           PaymentMethod
	PaymentReference string
	Date             time.Time
	CommissionAmount decimal.Decimal
	Deleted          bool
	CreatedAt        time.Time
}
