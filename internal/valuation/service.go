// Package valuation provides the HTTP handlers for pricing requests,
// curve and series management, and the valuation ledger.
//
// Pricing math runs in float64 inside the engine packages; every monetary
// value crossing the wire is a shopspring/decimal rounded at this
// boundary — never raw float64 for money.
package valuation

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantdesk/risk-engine/internal/bond"
	"github.com/quantdesk/risk-engine/internal/metrics"
	"github.com/quantdesk/risk-engine/internal/model"
	"github.com/quantdesk/risk-engine/internal/numeric"
	"github.com/quantdesk/risk-engine/internal/option"
	"github.com/quantdesk/risk-engine/internal/ratecurve"
	"github.com/quantdesk/risk-engine/internal/store"
	"github.com/quantdesk/risk-engine/internal/volatility"
)

// Model identifiers recorded in the valuation ledger.
const (
	ModelBlackScholes = "black_scholes"
	ModelCRRBinomial  = "crr_binomial"
	ModelBondCashflow = "bond_cashflow"
)

// Service handles valuation operations. Stateless apart from the store;
// concurrent requests need no serialization because the engine packages
// are pure functions.
type Service struct {
	store store.Store
	steps int // binomial step count for american pricing
}

// NewService creates a new valuation service. steps <= 0 selects the
// engine default.
func NewService(st store.Store, steps int) *Service {
	if steps <= 0 {
		steps = option.DefaultSteps
	}
	return &Service{store: st, steps: steps}
}

// --- Request/Response types ---

// OptionRequest is the JSON body shared by the option endpoints. With
// resolve_rate set, risk_free_rate is ignored and the rate is
// interpolated from the stored curve at the contract's expiry horizon.
type OptionRequest struct {
	Symbol       string          `json:"symbol,omitempty"`
	Underlying   decimal.Decimal `json:"underlying_price"`
	Strike       decimal.Decimal `json:"strike"`
	TimeToExpiry float64         `json:"time_to_expiry_years"`
	RiskFreeRate float64         `json:"risk_free_rate,omitempty"`
	ResolveRate  bool            `json:"resolve_rate,omitempty"`
	Volatility   float64         `json:"volatility,omitempty"`
	Type         string          `json:"option_type"`
	Style        string          `json:"exercise_style"`
	Steps        int             `json:"steps,omitempty"`        // 0 → configured default
	MarketPrice  decimal.Decimal `json:"market_price,omitempty"` // implied-vol endpoint only
}

// OptionPriceResponse is the JSON body returned from POST /options/price.
type OptionPriceResponse struct {
	ValuationID string          `json:"valuation_id,omitempty"`
	Symbol      string          `json:"symbol,omitempty"`
	Model       string          `json:"model"`
	FairValue   decimal.Decimal `json:"fair_value"`
	RequestedAt time.Time       `json:"requested_at"`
}

// GreeksResponse is the JSON body returned from POST /options/greeks.
// Sensitivities are dimensionless or per-unit quantities, not money, so
// they travel as float64: theta per year, vega per unit volatility, rho
// per unit rate.
type GreeksResponse struct {
	Model string  `json:"model"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// ImpliedVolResponse is the JSON body returned from
// POST /options/implied-volatility.
type ImpliedVolResponse struct {
	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
	Model             string          `json:"model"`
}

// BondRequest is the JSON body for POST /bonds/analytics.
type BondRequest struct {
	Symbol          string          `json:"symbol,omitempty"`
	FaceValue       decimal.Decimal `json:"face_value"`
	CouponRate      float64         `json:"coupon_rate"`
	YearsToMaturity float64         `json:"years_to_maturity"`
	Frequency       int             `json:"frequency"`
	Yield           float64         `json:"yield_to_maturity"`
}

// BondResponse is the JSON body returned from POST /bonds/analytics.
// Durations are in years, convexity in years².
type BondResponse struct {
	ValuationID      string          `json:"valuation_id,omitempty"`
	Symbol           string          `json:"symbol,omitempty"`
	Model            string          `json:"model"`
	Price            decimal.Decimal `json:"price"`
	MacaulayDuration float64         `json:"macaulay_duration"`
	ModifiedDuration float64         `json:"modified_duration"`
	Convexity        float64         `json:"convexity"`
	RequestedAt      time.Time       `json:"requested_at"`
}

// HistoricalVolRequest is the JSON body for POST /volatility/historical.
// Either an inline series or a stored symbol, not both.
type HistoricalVolRequest struct {
	Symbol              string             `json:"symbol,omitempty"`
	Points              []model.PricePoint `json:"points,omitempty"`
	AnnualizationFactor float64            `json:"annualization_factor,omitempty"` // 0 → daily (252)
}

// HistoricalVolResponse is the JSON body returned from
// POST /volatility/historical.
type HistoricalVolResponse struct {
	Volatility          decimal.Decimal `json:"volatility"`
	AnnualizationFactor float64         `json:"annualization_factor"`
	Observations        int             `json:"observations"`
}

// CurveRequest is the JSON body for PUT /rates/curve.
type CurveRequest struct {
	AsOf   time.Time              `json:"as_of,omitempty"` // zero → now
	Points []model.RateCurvePoint `json:"points"`
}

// InterpolatedRateResponse is the JSON body returned from
// GET /rates/interpolated.
type InterpolatedRateResponse struct {
	TenorYears float64         `json:"tenor_years"`
	Rate       decimal.Decimal `json:"rate"`
	AsOf       time.Time       `json:"as_of"`
}

// --- HTTP Handlers ---

// PriceOption handles POST /api/v1/options/price
func (s *Service) PriceOption(w http.ResponseWriter, r *http.Request) {
	var req OptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	spec, err := s.optionSpec(r, req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	modelName := modelFor(spec.Style)

	start := time.Now()
	price, err := s.priceWithSteps(spec, req.Steps)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	metrics.ValuationLatency.WithLabelValues(modelName).Observe(time.Since(start).Seconds())
	metrics.ValuationsTotal.WithLabelValues(modelName).Inc()

	resp := OptionPriceResponse{
		Symbol:      req.Symbol,
		Model:       modelName,
		FairValue:   numeric.RoundPrice(price),
		RequestedAt: time.Now().UTC(),
	}
	resp.ValuationID = s.record(r, req.Symbol, "option", modelName, resp.FairValue, resp.RequestedAt)

	slog.Info("option priced",
		"symbol", req.Symbol,
		"model", modelName,
		"fair_value", resp.FairValue.String(),
	)

	writeJSON(w, http.StatusOK, resp)
}

// OptionGreeks handles POST /api/v1/options/greeks
func (s *Service) OptionGreeks(w http.ResponseWriter, r *http.Request) {
	var req OptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	spec, err := s.optionSpec(r, req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	steps := req.Steps
	if steps == 0 {
		steps = s.steps
	}

	g, err := option.ComputeWithSteps(spec, steps)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GreeksResponse{
		Model: modelFor(spec.Style),
		Delta: g.Delta,
		Gamma: g.Gamma,
		Theta: g.Theta,
		Vega:  g.Vega,
		Rho:   g.Rho,
	})
}

// ImpliedVolatility handles POST /api/v1/options/implied-volatility
func (s *Service) ImpliedVolatility(w http.ResponseWriter, r *http.Request) {
	var req OptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	spec, err := s.optionSpec(r, req)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	iv, err := option.ImpliedVolatility(spec, req.MarketPrice.InexactFloat64())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ImpliedVolResponse{
		ImpliedVolatility: numeric.RoundRate(iv),
		Model:             modelFor(spec.Style),
	})
}

// BondAnalytics handles POST /api/v1/bonds/analytics
func (s *Service) BondAnalytics(w http.ResponseWriter, r *http.Request) {
	var req BondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	a, err := bond.Analyze(bond.Spec{
		FaceValue:       req.FaceValue.InexactFloat64(),
		CouponRate:      req.CouponRate,
		YearsToMaturity: req.YearsToMaturity,
		Frequency:       req.Frequency,
		Yield:           req.Yield,
	})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	metrics.ValuationLatency.WithLabelValues(ModelBondCashflow).Observe(time.Since(start).Seconds())
	metrics.ValuationsTotal.WithLabelValues(ModelBondCashflow).Inc()

	resp := BondResponse{
		Symbol:           req.Symbol,
		Model:            ModelBondCashflow,
		Price:            numeric.RoundPrice(a.Price),
		MacaulayDuration: a.MacaulayDuration,
		ModifiedDuration: a.ModifiedDuration,
		Convexity:        a.Convexity,
		RequestedAt:      time.Now().UTC(),
	}
	resp.ValuationID = s.record(r, req.Symbol, "bond", ModelBondCashflow, resp.Price, resp.RequestedAt)

	slog.Info("bond analyzed",
		"symbol", req.Symbol,
		"price", resp.Price.String(),
		"modified_duration", a.ModifiedDuration,
	)

	writeJSON(w, http.StatusOK, resp)
}

// HistoricalVolatility handles POST /api/v1/volatility/historical
func (s *Service) HistoricalVolatility(w http.ResponseWriter, r *http.Request) {
	var req HistoricalVolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	points := req.Points
	if req.Symbol != "" {
		if len(points) > 0 {
			writeError(w, "provide either symbol or points, not both", http.StatusBadRequest)
			return
		}
		stored, err := s.store.GetPriceSeries(r.Context(), req.Symbol)
		if err != nil {
			s.writeEngineError(w, err)
			return
		}
		points = stored
	}

	factor := req.AnnualizationFactor
	if factor == 0 {
		factor = volatility.Daily
	}

	vol, err := volatility.Historical(points, factor)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HistoricalVolResponse{
		Volatility:          numeric.RoundRate(vol),
		AnnualizationFactor: factor,
		Observations:        len(points),
	})
}

// SaveCurve handles PUT /api/v1/rates/curve
func (s *Service) SaveCurve(w http.ResponseWriter, r *http.Request) {
	var req CurveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	curve, err := ratecurve.Normalize(model.RateCurve{AsOf: asOf, Points: req.Points})
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if err := s.store.SaveRateCurve(r.Context(), &curve); err != nil {
		writeError(w, "failed to save curve", http.StatusInternalServerError)
		return
	}
	metrics.CurveRefreshes.Inc()

	slog.Info("rate curve accepted", "as_of", curve.AsOf, "points", len(curve.Points))

	writeJSON(w, http.StatusOK, curve)
}

// GetCurve handles GET /api/v1/rates/curve
func (s *Service) GetCurve(w http.ResponseWriter, r *http.Request) {
	curve, err := s.store.LatestRateCurve(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, curve)
}

// InterpolatedRate handles GET /api/v1/rates/interpolated?tenor_years=1.5
func (s *Service) InterpolatedRate(w http.ResponseWriter, r *http.Request) {
	tenor, err := strconv.ParseFloat(r.URL.Query().Get("tenor_years"), 64)
	if err != nil {
		writeError(w, "tenor_years must be a number", http.StatusBadRequest)
		return
	}

	curve, err := s.store.LatestRateCurve(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	rate, err := ratecurve.Rate(*curve, tenor)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InterpolatedRateResponse{
		TenorYears: tenor,
		Rate:       numeric.RoundRate(rate),
		AsOf:       curve.AsOf,
	})
}

// SaveSeries handles PUT /api/v1/series/{symbol}
func (s *Service) SaveSeries(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var points []model.PricePoint
	if err := json.NewDecoder(r.Body).Decode(&points); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(points) == 0 {
		writeError(w, "series must contain at least one point", http.StatusBadRequest)
		return
	}
	for i := 1; i < len(points); i++ {
		if !points[i].Timestamp.After(points[i-1].Timestamp) {
			writeError(w, "series must be strictly increasing in timestamp", http.StatusBadRequest)
			return
		}
	}

	if err := s.store.SavePriceSeries(r.Context(), symbol, points); err != nil {
		writeError(w, "failed to save series", http.StatusInternalServerError)
		return
	}

	slog.Info("price series stored", "symbol", symbol, "points", len(points))

	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "points": len(points)})
}

// ListValuations handles GET /api/v1/valuations/{symbol}
func (s *Service) ListValuations(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	records, err := s.store.ListValuationsBySymbol(r.Context(), symbol)
	if err != nil {
		writeError(w, "failed to list valuations", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.ValuationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// --- Helpers ---

// spec converts the wire DTO into an engine spec. Decimal money fields
// drop to float64 here; results are re-rounded on the way out.
func (r OptionRequest) spec() option.Spec {
	return option.Spec{
		Underlying:   r.Underlying.InexactFloat64(),
		Strike:       r.Strike.InexactFloat64(),
		TimeToExpiry: r.TimeToExpiry,
		Rate:         r.RiskFreeRate,
		Volatility:   r.Volatility,
		Type:         option.Type(r.Type),
		Style:        option.ExerciseStyle(r.Style),
	}
}

// optionSpec builds the engine spec, resolving the risk-free rate from
// the stored curve at the expiry horizon when the request asks for it.
func (s *Service) optionSpec(r *http.Request, req OptionRequest) (option.Spec, error) {
	spec := req.spec()
	if req.ResolveRate {
		curve, err := s.store.LatestRateCurve(r.Context())
		if err != nil {
			return option.Spec{}, err
		}
		rate, err := ratecurve.Rate(*curve, req.TimeToExpiry)
		if err != nil {
			return option.Spec{}, err
		}
		spec.Rate = rate
	}
	return spec, nil
}

func modelFor(style option.ExerciseStyle) string {
	if style == option.American {
		return ModelCRRBinomial
	}
	return ModelBlackScholes
}

func (s *Service) priceWithSteps(spec option.Spec, steps int) (float64, error) {
	if spec.Style == option.American {
		if steps == 0 {
			steps = s.steps
		}
		return option.BinomialPrice(spec, steps)
	}
	return option.Price(spec)
}

// record appends an immutable ledger entry when the request names a
// symbol; anonymous valuations are priced but not recorded.
func (s *Service) record(r *http.Request, symbol, instrument, modelName string, fairValue decimal.Decimal, at time.Time) string {
	if symbol == "" {
		return ""
	}
	rec := &model.ValuationRecord{
		ID:          uuid.New().String(),
		Symbol:      symbol,
		Instrument:  instrument,
		Model:       modelName,
		FairValue:   fairValue,
		RequestedAt: at,
	}
	if err := s.store.InsertValuation(r.Context(), rec); err != nil {
		slog.Error("valuation record insert failed", "symbol", symbol, "err", err)
		return ""
	}
	return rec.ID
}

// writeEngineError maps engine and store errors onto HTTP statuses:
// validation → 400, unreachable quote → 422, missing data → 404.
func (s *Service) writeEngineError(w http.ResponseWriter, err error) {
	var invalid *model.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		metrics.InvalidInputs.WithLabelValues(invalid.Field).Inc()
		writeError(w, invalid.Error(), http.StatusBadRequest)
	case errors.Is(err, volatility.ErrInsufficientData),
		errors.Is(err, volatility.ErrNonPositivePrice):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, option.ErrNoConvergence):
		metrics.SolverIterationsExhausted.Inc()
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, "not found", http.StatusNotFound)
	case errors.Is(err, ratecurve.ErrEmptyCurve):
		writeError(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("valuation failed", "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
