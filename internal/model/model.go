// Package model defines the core domain types shared across the risk engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one observation in a historical price series, ordered by
// timestamp. Series are caller-provided and read-only to the engine.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	Price     decimal.Decimal `json:"price" db:"price"`
}

// RateCurvePoint is one tenor/rate pair on a risk-free curve.
// Rate is a decimal fraction (0.05 = 5%), signed; negative nominal
// rates are valid.
type RateCurvePoint struct {
	TenorYears float64 `json:"tenor_years" db:"tenor_years"`
	Rate       float64 `json:"rate" db:"rate"`
}

// RateCurve is an immutable snapshot of the risk-free term structure.
// It is rebuilt wholesale whenever the rate-data collaborator refreshes;
// the engine never mutates one.
type RateCurve struct {
	AsOf   time.Time        `json:"as_of" db:"as_of"`
	Points []RateCurvePoint `json:"points" db:"points"`
}

// ValuationRecord is an immutable record of one completed valuation.
// Once created, these are never modified or deleted.
type ValuationRecord struct {
	ID          string          `json:"id" db:"id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Instrument  string          `json:"instrument" db:"instrument"` // "option" or "bond"
	Model       string          `json:"model" db:"model"`           // "black_scholes", "crr_binomial", "bond_cashflow"
	FairValue   decimal.Decimal `json:"fair_value" db:"fair_value"`
	RequestedAt time.Time       `json:"requested_at" db:"requested_at"`
}

// InvalidInputError reports a violated instrument invariant. It names the
// offending field so the calling layer can build an actionable message.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Invalid constructs an InvalidInputError for the given field.
func Invalid(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}
