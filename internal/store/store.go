// Package store defines the persistence interface for the risk engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/quantdesk/risk-engine/internal/model"
)

// ErrNotFound is returned when a curve, series, or valuation does not
// exist. Callers match it with errors.Is.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// --- Rate curves ---

	// SaveRateCurve persists a full curve snapshot. Snapshots are
	// append-only; the latest one wins.
	SaveRateCurve(ctx context.Context, curve *model.RateCurve) error

	// LatestRateCurve returns the most recent curve snapshot.
	LatestRateCurve(ctx context.Context) (*model.RateCurve, error)

	// --- Price series ---

	// SavePriceSeries replaces the stored series for a symbol.
	SavePriceSeries(ctx context.Context, symbol string, points []model.PricePoint) error

	// GetPriceSeries returns the stored series for a symbol, ordered by
	// timestamp ascending.
	GetPriceSeries(ctx context.Context, symbol string) ([]model.PricePoint, error)

	// --- Immutable valuation ledger ---

	// InsertValuation appends an immutable valuation record.
	InsertValuation(ctx context.Context, rec *model.ValuationRecord) error

	// ListValuationsBySymbol returns all valuations recorded for a
	// symbol, oldest first.
	ListValuationsBySymbol(ctx context.Context, symbol string) ([]model.ValuationRecord, error)
}
