// Package postgres stores engine state in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spiceEngine/internal/model"
	"spiceEngine/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS spice_settings (
	id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	admin TEXT NOT NULL,
	income_distribution NUMERIC(20,0) NOT NULL,
	stoptap BOOLEAN NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS spice_pools (
	asset TEXT PRIMARY KEY,
	oracle_feed TEXT NOT NULL,
	lp_share_asset TEXT NOT NULL,
	active BOOLEAN NOT NULL,
	base_fee NUMERIC(20,0) NOT NULL,
	initial_liquidity NUMERIC(20,0) NOT NULL,
	current_liquidity NUMERIC(20,0) NOT NULL,
	cumulative_yield NUMERIC(20,0) NOT NULL,
	protocol_income NUMERIC(20,0) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS spice_providers (
	pool TEXT NOT NULL REFERENCES spice_pools (asset),
	owner TEXT NOT NULL,
	lp_balance NUMERIC(20,0) NOT NULL,
	last_cumulative_yield NUMERIC(20,0) NOT NULL,
	pending_claim NUMERIC(20,0) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool, owner)
);
`

// Store provides Postgres persistence for engine state.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the state tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Settings(ctx context.Context) (model.Settings, bool, error) {
	var (
		admin, income string
		settings      model.Settings
	)
	row := s.pool.QueryRow(ctx, `SELECT admin, income_distribution::text, stoptap FROM spice_settings WHERE id = 1`)
	if err := row.Scan(&admin, &income, &settings.Stoptap); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Settings{}, false, nil
		}
		return model.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}
	settings.Admin = common.HexToAddress(admin)
	var err error
	if settings.IncomeDistribution, err = parseNumeric(income); err != nil {
		return model.Settings{}, false, fmt.Errorf("income distribution: %w", err)
	}
	return settings, true, nil
}

const poolColumns = `asset, oracle_feed, lp_share_asset, active, base_fee::text, initial_liquidity::text,
	current_liquidity::text, cumulative_yield::text, protocol_income::text`

func (s *Store) Pool(ctx context.Context, asset common.Address) (model.Pool, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM spice_pools WHERE asset = $1`, asset.Hex())
	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, false, nil
		}
		return model.Pool{}, false, fmt.Errorf("load pool: %w", err)
	}
	return pool, true, nil
}

func (s *Store) Pools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+poolColumns+` FROM spice_pools ORDER BY asset`)
	if err != nil {
		return nil, fmt.Errorf("load pools: %w", err)
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

func (s *Store) Provider(ctx context.Context, pool, owner common.Address) (model.Provider, bool, error) {
	var balance, last, pending string
	row := s.pool.QueryRow(ctx, `
		SELECT lp_balance::text, last_cumulative_yield::text, pending_claim::text
		FROM spice_providers WHERE pool = $1 AND owner = $2
	`, pool.Hex(), owner.Hex())
	if err := row.Scan(&balance, &last, &pending); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Provider{}, false, nil
		}
		return model.Provider{}, false, fmt.Errorf("load provider: %w", err)
	}

	provider := model.Provider{Pool: pool, Owner: owner}
	var err error
	if provider.LPBalance, err = parseNumeric(balance); err != nil {
		return model.Provider{}, false, fmt.Errorf("lp balance: %w", err)
	}
	if provider.LastCumulativeYield, err = parseNumeric(last); err != nil {
		return model.Provider{}, false, fmt.Errorf("last cumulative yield: %w", err)
	}
	if provider.PendingClaim, err = parseNumeric(pending); err != nil {
		return model.Provider{}, false, fmt.Errorf("pending claim: %w", err)
	}
	return provider, true, nil
}

// Commit upserts the change set and settles inside one transaction.
func (s *Store) Commit(ctx context.Context, changes storage.ChangeSet, settle storage.SettleFunc) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := queueChanges(changes)
		if batch.Len() > 0 {
			br := tx.SendBatch(ctx, batch)
			for i := 0; i < batch.Len(); i++ {
				if _, err := br.Exec(); err != nil {
					br.Close()
					return fmt.Errorf("upsert state: %w", err)
				}
			}
			if err := br.Close(); err != nil {
				return fmt.Errorf("upsert state: %w", err)
			}
		}
		if settle != nil {
			return settle(ctx)
		}
		return nil
	})
}

func queueChanges(changes storage.ChangeSet) *pgx.Batch {
	batch := &pgx.Batch{}
	if st := changes.Settings; st != nil {
		batch.Queue(`
			INSERT INTO spice_settings (id, admin, income_distribution, stoptap, updated_at)
			VALUES (1, $1, $2::numeric, $3, now())
			ON CONFLICT (id) DO UPDATE SET
				admin = EXCLUDED.admin,
				income_distribution = EXCLUDED.income_distribution,
				stoptap = EXCLUDED.stoptap,
				updated_at = now()
		`, st.Admin.Hex(), formatNumeric(st.IncomeDistribution), st.Stoptap)
	}
	for _, p := range changes.Pools {
		batch.Queue(`
			INSERT INTO spice_pools (
				asset, oracle_feed, lp_share_asset, active, base_fee, initial_liquidity,
				current_liquidity, cumulative_yield, protocol_income, updated_at
			) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, now())
			ON CONFLICT (asset) DO UPDATE SET
				oracle_feed = EXCLUDED.oracle_feed,
				lp_share_asset = EXCLUDED.lp_share_asset,
				active = EXCLUDED.active,
				base_fee = EXCLUDED.base_fee,
				initial_liquidity = EXCLUDED.initial_liquidity,
				current_liquidity = EXCLUDED.current_liquidity,
				cumulative_yield = EXCLUDED.cumulative_yield,
				protocol_income = EXCLUDED.protocol_income,
				updated_at = now()
		`,
			p.Asset.Hex(),
			p.OracleFeed.Hex(),
			p.LPShareAsset.Hex(),
			p.Active,
			formatNumeric(p.BaseFee),
			formatNumeric(p.InitialLiquidity),
			formatNumeric(p.CurrentLiquidity),
			formatNumeric(p.CumulativeYield),
			formatNumeric(p.ProtocolIncome),
		)
	}
	for _, p := range changes.Providers {
		batch.Queue(`
			INSERT INTO spice_providers (pool, owner, lp_balance, last_cumulative_yield, pending_claim, updated_at)
			VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, now())
			ON CONFLICT (pool, owner) DO UPDATE SET
				lp_balance = EXCLUDED.lp_balance,
				last_cumulative_yield = EXCLUDED.last_cumulative_yield,
				pending_claim = EXCLUDED.pending_claim,
				updated_at = now()
		`,
			p.Pool.Hex(),
			p.Owner.Hex(),
			formatNumeric(p.LPBalance),
			formatNumeric(p.LastCumulativeYield),
			formatNumeric(p.PendingClaim),
		)
	}
	return batch
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPool(row rowScanner) (model.Pool, error) {
	var (
		asset, feed, share                     string
		baseFee, initial, current, cum, income string
		pool                                   model.Pool
	)
	if err := row.Scan(&asset, &feed, &share, &pool.Active, &baseFee, &initial, &current, &cum, &income); err != nil {
		return model.Pool{}, err
	}
	pool.Asset = common.HexToAddress(asset)
	pool.OracleFeed = common.HexToAddress(feed)
	pool.LPShareAsset = common.HexToAddress(share)

	fields := []struct {
		name string
		raw  string
		dst  *uint64
	}{
		{"base fee", baseFee, &pool.BaseFee},
		{"initial liquidity", initial, &pool.InitialLiquidity},
		{"current liquidity", current, &pool.CurrentLiquidity},
		{"cumulative yield", cum, &pool.CumulativeYield},
		{"protocol income", income, &pool.ProtocolIncome},
	}
	for _, f := range fields {
		v, err := parseNumeric(f.raw)
		if err != nil {
			return model.Pool{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return pool, nil
}

func formatNumeric(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseNumeric(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
