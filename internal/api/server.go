// Package api serves read-only engine state over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"spiceEngine/internal/engine"
	"spiceEngine/internal/model"
	"spiceEngine/internal/token"
)

// Engine is the read side of the engine used by the API.
type Engine interface {
	Settings(ctx context.Context) (model.Settings, error)
	Pools(ctx context.Context) ([]model.Pool, error)
	Pool(ctx context.Context, asset common.Address) (model.Pool, error)
	Provider(ctx context.Context, asset, owner common.Address) (model.Provider, error)
	Entitlement(ctx context.Context, asset, owner common.Address) (uint64, error)
	Quote(ctx context.Context, req engine.QuoteRequest) (model.SwapQuote, error)
}

// Server exposes engine state.
type Server struct {
	engine   Engine
	tokens   token.Registry
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	timeout  time.Duration
}

// NewServer builds a server. tokens and gatherer are optional; without tokens
// amounts are reported in base units only.
func NewServer(eng Engine, tokens token.Registry, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: eng, tokens: tokens, gatherer: gatherer, logger: logger, timeout: 10 * time.Second}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	s.mount(r)
	return r
}

func (s *Server) mount(r chi.Router) {
	r.Get("/healthz", s.healthz)
	r.Get("/settings", s.getSettings)
	r.Get("/pools", s.listPools)
	r.Get("/pools/{asset}", s.getPool)
	r.Get("/pools/{asset}/providers/{owner}", s.getProvider)
	r.Get("/quote", s.getQuote)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Server) context(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

type poolView struct {
	model.Pool
	Decimals         *uint8 `json:"decimals,omitempty"`
	CurrentFormatted string `json:"current_liquidity_formatted,omitempty"`
	InitialFormatted string `json:"initial_liquidity_formatted,omitempty"`
}

type providerView struct {
	model.Provider
	Entitlement          uint64 `json:"entitlement"`
	EntitlementFormatted string `json:"entitlement_formatted,omitempty"`
}

type quoteView struct {
	model.SwapQuote
	NetFormatted string `json:"net_amount_out_formatted,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r.Context())
	defer cancel()

	settings, err := s.engine.Settings(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) listPools(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r.Context())
	defer cancel()

	pools, err := s.engine.Pools(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]poolView, 0, len(pools))
	for _, pool := range pools {
		views = append(views, s.poolView(ctx, pool))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	pool, err := s.engine.Pool(ctx, asset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.poolView(ctx, pool))
}

func (s *Server) getProvider(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAddress(chi.URLParam(r, "asset"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	owner, err := parseAddress(chi.URLParam(r, "owner"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	provider, err := s.engine.Provider(ctx, asset, owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	owed, err := s.engine.Entitlement(ctx, asset, owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := providerView{Provider: provider, Entitlement: owed}
	if d, ok := s.decimals(ctx, asset); ok {
		view.EntitlementFormatted = token.FormatAmount(owed, d)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r.Context())
	defer cancel()

	req, err := s.parseQuote(ctx, r)
	if err != nil {
		if errors.Is(err, model.ErrMissingAccount) {
			s.writeError(w, err)
			return
		}
		writeBadRequest(w, err)
		return
	}
	quote, err := s.engine.Quote(ctx, req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := quoteView{SwapQuote: quote}
	if d, ok := s.decimals(ctx, quote.AssetOut); ok {
		view.NetFormatted = token.FormatAmount(quote.NetAmountOut, d)
	}
	writeJSON(w, http.StatusOK, view)
}

// parseQuote reads the quote query. Feeds default to the ones registered on
// the pools.
func (s *Server) parseQuote(ctx context.Context, r *http.Request) (engine.QuoteRequest, error) {
	q := r.URL.Query()
	var req engine.QuoteRequest
	var err error

	if req.AssetIn, err = parseAddress(q.Get("asset_in")); err != nil {
		return req, fmt.Errorf("asset_in: %w", err)
	}
	if req.AssetOut, err = parseAddress(q.Get("asset_out")); err != nil {
		return req, fmt.Errorf("asset_out: %w", err)
	}
	if req.AmountIn, err = parseUint(q.Get("amount_in"), true); err != nil {
		return req, fmt.Errorf("amount_in: %w", err)
	}
	if req.MinAmountOut, err = parseUint(q.Get("min_amount_out"), false); err != nil {
		return req, fmt.Errorf("min_amount_out: %w", err)
	}
	if req.PartnerFeeRate, err = parseUint(q.Get("partner_fee_rate"), false); err != nil {
		return req, fmt.Errorf("partner_fee_rate: %w", err)
	}
	if raw := q.Get("partner"); raw != "" {
		partner, err := parseAddress(raw)
		if err != nil {
			return req, fmt.Errorf("partner: %w", err)
		}
		req.Partner = &partner
	}

	if req.FeedIn, err = s.feed(ctx, q.Get("feed_in"), req.AssetIn); err != nil {
		return req, err
	}
	if req.FeedOut, err = s.feed(ctx, q.Get("feed_out"), req.AssetOut); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) feed(ctx context.Context, raw string, asset common.Address) (common.Address, error) {
	if raw != "" {
		return parseAddress(raw)
	}
	pool, err := s.engine.Pool(ctx, asset)
	if err != nil {
		return common.Address{}, err
	}
	return pool.OracleFeed, nil
}

func (s *Server) poolView(ctx context.Context, pool model.Pool) poolView {
	view := poolView{Pool: pool}
	if d, ok := s.decimals(ctx, pool.Asset); ok {
		view.Decimals = &d
		view.CurrentFormatted = token.FormatAmount(pool.CurrentLiquidity, d)
		view.InitialFormatted = token.FormatAmount(pool.InitialLiquidity, d)
	}
	return view
}

func (s *Server) decimals(ctx context.Context, asset common.Address) (uint8, bool) {
	if s.tokens == nil {
		return 0, false
	}
	d, err := s.tokens.Decimals(ctx, asset)
	if err != nil {
		s.logger.Debug("decimals lookup failed", zap.String("asset", asset.Hex()), zap.Error(err))
		return 0, false
	}
	return d, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrMissingAccount):
		status = http.StatusNotFound
	case isDomainError(err):
		status = http.StatusUnprocessableEntity
	default:
		s.logger.Warn("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func isDomainError(err error) bool {
	for _, target := range []error{
		model.ErrDivideByZero, model.ErrOverflow, model.ErrNoLiquidity, model.ErrInsufficientLiquidity,
		model.ErrHighSlippage, model.ErrStoptapActivated, model.ErrInvalidPythAccount,
		model.ErrPoolANotActive, model.ErrPoolBNotActive, model.ErrMissingSPLAccount,
		model.ErrPriceNotAvailable, model.ErrSameAsset,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseAddress(raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func parseUint(raw string, required bool) (uint64, error) {
	if raw == "" {
		if required {
			return 0, fmt.Errorf("value is required")
		}
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
