// Package engine runs the pool operations: swaps, liquidity changes,
// harvests and treasury administration.
//
// Every operation loads the state it needs once, computes the full outcome,
// and then commits the records together with the custody transfers. Nothing
// is written unless every check passed.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"spiceEngine/internal/custody"
	"spiceEngine/internal/model"
	"spiceEngine/internal/oracle"
	"spiceEngine/internal/storage"
	"spiceEngine/internal/token"
)

// Config wires the engine collaborators.
type Config struct {
	Store     storage.Store
	Custodian custody.Custodian
	Oracle    oracle.PriceOracle
	Tokens    token.Registry
	// Administrator is the only caller allowed to initialise the treasury.
	Administrator common.Address
	Registerer    prometheus.Registerer
	Logger        *zap.Logger
}

// Engine executes pool operations against a Store.
type Engine struct {
	mu            sync.Mutex
	store         storage.Store
	custodian     custody.Custodian
	oracle        oracle.PriceOracle
	tokens        token.Registry
	administrator common.Address
	metrics       *Metrics
	logger        *zap.Logger
}

func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if cfg.Custodian == nil {
		return nil, fmt.Errorf("custodian is nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics, err := NewMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:         cfg.Store,
		custodian:     cfg.Custodian,
		oracle:        cfg.Oracle,
		tokens:        cfg.Tokens,
		administrator: cfg.Administrator,
		metrics:       metrics,
		logger:        logger,
	}, nil
}

func (e *Engine) fail(op string, err error) error {
	e.logger.Debug("operation rejected", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w", op, err)
}

func (e *Engine) settings(ctx context.Context) (model.Settings, error) {
	settings, ok, err := e.store.Settings(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return model.Settings{}, model.ErrMissingAccount
	}
	return settings, nil
}

func (e *Engine) pool(ctx context.Context, asset common.Address) (model.Pool, error) {
	pool, ok, err := e.store.Pool(ctx, asset)
	if err != nil {
		return model.Pool{}, fmt.Errorf("load pool: %w", err)
	}
	if !ok {
		return model.Pool{}, model.ErrMissingAccount
	}
	return pool, nil
}

// provider returns the stored provider or a zero record when the owner never
// deposited.
func (e *Engine) provider(ctx context.Context, pool, owner common.Address) (model.Provider, bool, error) {
	provider, ok, err := e.store.Provider(ctx, pool, owner)
	if err != nil {
		return model.Provider{}, false, fmt.Errorf("load provider: %w", err)
	}
	if !ok {
		return model.Provider{Pool: pool, Owner: owner}, false, nil
	}
	return provider, true, nil
}

// requireAdmin loads the settings and checks caller against the admin.
func (e *Engine) requireAdmin(ctx context.Context, caller common.Address) (model.Settings, error) {
	settings, err := e.settings(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	if settings.Admin != caller {
		return model.Settings{}, model.ErrInvalidAdmin
	}
	return settings, nil
}

// requireOpen loads the settings and rejects value-moving operations while
// the stoptap is on.
func (e *Engine) requireOpen(ctx context.Context) (model.Settings, error) {
	settings, err := e.settings(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	if settings.Stoptap {
		return model.Settings{}, model.ErrStoptapActivated
	}
	return settings, nil
}

func (e *Engine) commit(ctx context.Context, changes storage.ChangeSet, transfers []model.Transfer) error {
	batch := make([]model.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if t.Amount > 0 {
			batch = append(batch, t)
		}
	}
	return e.store.Commit(ctx, changes, func(ctx context.Context) error {
		if len(batch) == 0 {
			return nil
		}
		return e.custodian.Settle(ctx, batch)
	})
}

func validBaseFee(baseFee uint64) error {
	if baseFee > model.FeeScale {
		return model.ErrInvalidBaseFee
	}
	return nil
}
