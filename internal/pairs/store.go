package pairs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Store reads pair configuration from PostgreSQL. Config only; queues and
// runtime state never touch the database.
type Store struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStore connects a pgx pool and pings it.
func NewStore(dsn string, logger zerolog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{
		Pool:   pool,
		logger: logger.With().Str("component", "PairStore").Logger(),
	}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// RunMigrations creates the configuration tables when missing.
func (s *Store) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pairs_config (
			symbol VARCHAR(20) PRIMARY KEY,
			is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			margin_mode VARCHAR(10) NOT NULL,
			leverage INT NOT NULL,
			order_size_type VARCHAR(20) NOT NULL,
			order_size_value DECIMAL(20, 8) NOT NULL,
			sl_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			sl_pct DECIMAL(10, 6) NOT NULL,
			tp_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			breakeven_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			breakeven_trigger_pct DECIMAL(10, 6) NOT NULL DEFAULT 0,
			breakeven_offset_pct DECIMAL(10, 6) NOT NULL DEFAULT 0,
			trailing_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			trailing_trigger_pct DECIMAL(10, 6) NOT NULL DEFAULT 0.02,
			trailing_step_pct DECIMAL(10, 6) NOT NULL DEFAULT 0,
			trailing_distance_pct DECIMAL(10, 6) NOT NULL DEFAULT 0,
			trailing_move_immediately BOOLEAN NOT NULL DEFAULT FALSE,
			same_side_policy VARCHAR(20) NOT NULL DEFAULT 'IGNORE',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tp_levels (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL REFERENCES pairs_config(symbol) ON DELETE CASCADE,
			level INT NOT NULL,
			target_pct DECIMAL(10, 6) NOT NULL,
			close_frac DECIMAL(10, 6) NOT NULL,
			is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE (symbol, level)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tp_levels_symbol ON tp_levels(symbol)`,
	}

	for i, migration := range migrations {
		if _, err := s.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	s.logger.Info().Msg("pair config migrations completed")
	return nil
}

// LoadView reads every pair and its TP ladder and returns the frozen view.
func (s *Store) LoadView(ctx context.Context) (*View, error) {
	ladders, err := s.loadTPLevels(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT symbol, is_enabled, margin_mode, leverage,
		       order_size_type, order_size_value,
		       sl_enabled, sl_pct, tp_enabled,
		       breakeven_enabled, breakeven_trigger_pct, breakeven_offset_pct,
		       trailing_enabled, COALESCE(trailing_trigger_pct, 0.02),
		       trailing_step_pct, trailing_distance_pct, trailing_move_immediately,
		       same_side_policy
		FROM pairs_config`)
	if err != nil {
		return nil, fmt.Errorf("query pairs_config: %w", err)
	}
	defer rows.Close()

	var configs []PairConfig
	for rows.Next() {
		var p PairConfig
		var orderSizeValue, slPct, beTrigger, beOffset, trTrigger, trStep, trDist string
		err := rows.Scan(
			&p.Symbol, &p.Enabled, &p.MarginMode, &p.Leverage,
			&p.OrderSizeType, &orderSizeValue,
			&p.SlEnabled, &slPct, &p.TpEnabled,
			&p.BreakevenEnabled, &beTrigger, &beOffset,
			&p.TrailingEnabled, &trTrigger,
			&trStep, &trDist, &p.TrailingMoveImmediately,
			&p.SameSidePolicy,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pairs_config: %w", err)
		}
		if p.OrderSizeValue, err = decimal.NewFromString(orderSizeValue); err != nil {
			return nil, fmt.Errorf("%s: bad order_size_value: %w", p.Symbol, err)
		}
		for _, f := range []struct {
			raw string
			dst *decimal.Decimal
		}{
			{slPct, &p.SlPct},
			{beTrigger, &p.BreakevenTriggerPct},
			{beOffset, &p.BreakevenOffsetPct},
			{trTrigger, &p.TrailingTriggerPct},
			{trStep, &p.TrailingStepPct},
			{trDist, &p.TrailingDistancePct},
		} {
			if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
				return nil, fmt.Errorf("%s: bad percentage %q: %w", p.Symbol, f.raw, err)
			}
		}
		p.TPLevels = ladders[strings.ToUpper(strings.TrimSpace(p.Symbol))]
		configs = append(configs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pairs_config: %w", err)
	}

	view, err := NewView(configs)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("pairs", view.Len()).Msg("pair configuration loaded")
	return view, nil
}

func (s *Store) loadTPLevels(ctx context.Context) (map[string][]TPLevel, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT symbol, level, target_pct, close_frac, is_enabled
		FROM tp_levels
		ORDER BY symbol, level`)
	if err != nil {
		return nil, fmt.Errorf("query tp_levels: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]TPLevel)
	for rows.Next() {
		var symbol, target, frac string
		var lvl TPLevel
		if err := rows.Scan(&symbol, &lvl.Level, &target, &frac, &lvl.Enabled); err != nil {
			return nil, fmt.Errorf("scan tp_levels: %w", err)
		}
		if lvl.TargetPct, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("%s TP level=%d: bad target_pct: %w", symbol, lvl.Level, err)
		}
		if lvl.CloseFrac, err = decimal.NewFromString(frac); err != nil {
			return nil, fmt.Errorf("%s TP level=%d: bad close_frac: %w", symbol, lvl.Level, err)
		}
		key := strings.ToUpper(strings.TrimSpace(symbol))
		out[key] = append(out[key], lvl)
	}
	return out, rows.Err()
}
