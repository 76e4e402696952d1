package store

import (
	"context"
	"sync"

	"github.com/quantdesk/risk-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	curve      *model.RateCurve
	series     map[string][]model.PricePoint
	valuations []model.ValuationRecord
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		series: make(map[string][]model.PricePoint),
	}
}

func (s *MemoryStore) SaveRateCurve(_ context.Context, curve *model.RateCurve) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	c := *curve
	c.Points = append([]model.RateCurvePoint(nil), curve.Points...)
	s.curve = &c
	return nil
}

func (s *MemoryStore) LatestRateCurve(_ context.Context) (*model.RateCurve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.curve == nil {
		return nil, ErrNotFound
	}
	c := *s.curve
	c.Points = append([]model.RateCurvePoint(nil), s.curve.Points...)
	return &c, nil
}

func (s *MemoryStore) SavePriceSeries(_ context.Context, symbol string, points []model.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series[symbol] = append([]model.PricePoint(nil), points...)
	return nil
}

func (s *MemoryStore) GetPriceSeries(_ context.Context, symbol string) ([]model.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.series[symbol]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]model.PricePoint(nil), points...), nil
}

func (s *MemoryStore) InsertValuation(_ context.Context, rec *model.ValuationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.valuations = append(s.valuations, *rec)
	return nil
}

func (s *MemoryStore) ListValuationsBySymbol(_ context.Context, symbol string) ([]model.ValuationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.ValuationRecord
	for _, v := range s.valuations {
		if v.Symbol == symbol {
			result = append(result, v)
		}
	}
	return result, nil
}
