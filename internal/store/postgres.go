package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quantdesk/risk-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Curve points travel as JSONB; monetary values are stored as NUMERIC for
// exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveRateCurve(ctx context.Context, curve *model.RateCurve) error {
	points, err := json.Marshal(curve.Points)
	if err != nil {
		return fmt.Errorf("marshal curve points: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO rate_curves (as_of, points) VALUES ($1, $2::JSONB)`,
		curve.AsOf, points,
	)
	return err
}

func (s *PostgresStore) LatestRateCurve(ctx context.Context) (*model.RateCurve, error) {
	var curve model.RateCurve
	var points []byte

	err := s.pool.QueryRow(ctx,
		`SELECT as_of, points FROM rate_curves ORDER BY as_of DESC LIMIT 1`).
		Scan(&curve.AsOf, &points)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest rate curve: %w", err)
	}

	if err := json.Unmarshal(points, &curve.Points); err != nil {
		return nil, fmt.Errorf("unmarshal curve points: %w", err)
	}
	return &curve, nil
}

func (s *PostgresStore) SavePriceSeries(ctx context.Context, symbol string, points []model.PricePoint) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Replace wholesale; the series is a caller-owned snapshot, not an
	// append-only stream.
	if _, err := tx.Exec(ctx,
		`DELETE FROM price_points WHERE symbol = $1`, symbol); err != nil {
		return err
	}
	for _, p := range points {
		if _, err := tx.Exec(ctx,
			`INSERT INTO price_points (symbol, timestamp, price)
			 VALUES ($1, $2, $3::NUMERIC)`,
			symbol, p.Timestamp, p.Price.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetPriceSeries(ctx context.Context, symbol string) ([]model.PricePoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT timestamp, price::TEXT
		 FROM price_points WHERE symbol = $1 ORDER BY timestamp`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		var priceS string
		if err := rows.Scan(&p.Timestamp, &priceS); err != nil {
			return nil, err
		}
		p.Price, _ = decimal.NewFromString(priceS)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrNotFound
	}
	return points, nil
}

func (s *PostgresStore) InsertValuation(ctx context.Context, rec *model.ValuationRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO valuations (id, symbol, instrument, model, fair_value, requested_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6)`,
		rec.ID, rec.Symbol, rec.Instrument, rec.Model,
		rec.FairValue.String(), rec.RequestedAt,
	)
	return err
}

func (s *PostgresStore) ListValuationsBySymbol(ctx context.Context, symbol string) ([]model.ValuationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, symbol, instrument, model, fair_value::TEXT, requested_at
		 FROM valuations WHERE symbol = $1 ORDER BY requested_at`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ValuationRecord
	for rows.Next() {
		var rec model.ValuationRecord
		var fairS string
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Instrument, &rec.Model,
			&fairS, &rec.RequestedAt); err != nil {
			return nil, err
		}
		rec.FairValue, _ = decimal.NewFromString(fairS)
		records = append(records, rec)
	}
	return records, rows.Err()
}
