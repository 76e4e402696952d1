package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantdesk/risk-engine/internal/model"
)

func TestMemoryStore_RateCurveRoundTrip(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	if _, err := ms.LatestRateCurve(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	curve := &model.RateCurve{
		AsOf: time.Now().UTC(),
		Points: []model.RateCurvePoint{
			{TenorYears: 1, Rate: 0.045},
			{TenorYears: 5, Rate: 0.055},
		},
	}
	if err := ms.SaveRateCurve(ctx, curve); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ms.LatestRateCurve(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got.Points))
	}

	// Mutating the returned copy must not affect the stored snapshot.
	got.Points[0].Rate = 0.99
	again, _ := ms.LatestRateCurve(ctx)
	if again.Points[0].Rate != 0.045 {
		t.Error("stored curve mutated through returned copy")
	}
}

func TestMemoryStore_PriceSeriesRoundTrip(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	if _, err := ms.GetPriceSeries(ctx, "ACME"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown symbol, got %v", err)
	}

	points := []model.PricePoint{
		{Timestamp: time.Now().UTC(), Price: decimal.NewFromInt(100)},
		{Timestamp: time.Now().UTC().Add(24 * time.Hour), Price: decimal.NewFromInt(101)},
	}
	if err := ms.SavePriceSeries(ctx, "ACME", points); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ms.GetPriceSeries(ctx, "ACME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || !got[1].Price.Equal(decimal.NewFromInt(101)) {
		t.Errorf("unexpected series: %+v", got)
	}
}

func TestMemoryStore_ValuationLedger(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	for i, symbol := range []string{"ACME", "ACME", "OTHER"} {
		rec := &model.ValuationRecord{
			ID:          string(rune('a' + i)),
			Symbol:      symbol,
			Instrument:  "option",
			Model:       "black_scholes",
			FairValue:   decimal.NewFromFloat(2.844406),
			RequestedAt: time.Now().UTC(),
		}
		if err := ms.InsertValuation(ctx, rec); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	records, err := ms.ListValuationsBySymbol(ctx, "ACME")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records for ACME, got %d", len(records))
	}

	none, err := ms.ListValuationsBySymbol(ctx, "MISSING")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no records, got %d", len(none))
	}
}
