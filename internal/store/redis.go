package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantdesk/risk-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot read paths: the latest rate curve and price series.
// Writes go to the primary store and invalidate the cache; the immutable
// valuation ledger passes through uncached.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, refresh or invalidate cache) ---

func (s *CachedStore) SaveRateCurve(ctx context.Context, curve *model.RateCurve) error {
	if err := s.primary.SaveRateCurve(ctx, curve); err != nil {
		return err
	}
	s.cacheCurve(ctx, curve)
	return nil
}

func (s *CachedStore) SavePriceSeries(ctx context.Context, symbol string, points []model.PricePoint) error {
	if err := s.primary.SavePriceSeries(ctx, symbol, points); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, seriesKey(symbol))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) LatestRateCurve(ctx context.Context) (*model.RateCurve, error) {
	data, err := s.rdb.Get(ctx, curveKey()).Bytes()
	if err == nil {
		var curve model.RateCurve
		if json.Unmarshal(data, &curve) == nil {
			return &curve, nil
		}
	}

	// Cache miss: read from primary.
	curve, err := s.primary.LatestRateCurve(ctx)
	if err != nil {
		return nil, err
	}

	s.cacheCurve(ctx, curve)
	return curve, nil
}

func (s *CachedStore) GetPriceSeries(ctx context.Context, symbol string) ([]model.PricePoint, error) {
	data, err := s.rdb.Get(ctx, seriesKey(symbol)).Bytes()
	if err == nil {
		var points []model.PricePoint
		if json.Unmarshal(data, &points) == nil {
			return points, nil
		}
	}

	// Cache miss.
	points, err := s.primary.GetPriceSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(points); err == nil {
		s.rdb.Set(ctx, seriesKey(symbol), data, s.ttl)
	}
	return points, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) InsertValuation(ctx context.Context, rec *model.ValuationRecord) error {
	return s.primary.InsertValuation(ctx, rec)
}

func (s *CachedStore) ListValuationsBySymbol(ctx context.Context, symbol string) ([]model.ValuationRecord, error) {
	return s.primary.ListValuationsBySymbol(ctx, symbol)
}

// --- Cache helpers ---

func (s *CachedStore) cacheCurve(ctx context.Context, curve *model.RateCurve) {
	if data, err := json.Marshal(curve); err == nil {
		s.rdb.Set(ctx, curveKey(), data, s.ttl)
	}
}

func curveKey() string               { return "ratecurve:latest" }
func seriesKey(symbol string) string { return fmt.Sprintf("series:%s", symbol) }
