package model

import "github.com/shopspring/decimal"

type Artist struct {
	ID   int64
	Name string
	// CommissionRate is nil when the studio default applies.
	CommissionRate *decimal.Decimal
	Active         bool
}
