package pairs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ==================== MODELS ====================

// Percentages are stored as decimals: 0.01 means 1%.

// TPLevel is one rung of a partial take-profit ladder.
type TPLevel struct {
	Level     int
	TargetPct decimal.Decimal
	CloseFrac decimal.Decimal
	Enabled   bool
}

// MarginModeName values accepted in pair configuration.
const (
	MarginIsolation = "ISOLATION"
	MarginCross     = "CROSS"
)

// Order sizing modes.
const (
	SizeMarginUSDT   = "MARGIN_USDT"
	SizeNotionalUSDT = "NOTIONAL_USDT"
	SizePctBalance   = "PCT_BALANCE"
)

// Same-side signal policies.
const (
	PolicyIgnore      = "IGNORE"
	PolicyResetOrders = "RESET_ORDERS"
)

// PairConfig is the per-symbol trading profile. Loaded once at startup and
// treated as immutable afterwards.
type PairConfig struct {
	Symbol  string
	Enabled bool

	MarginMode string
	Leverage   int

	OrderSizeType  string
	OrderSizeValue decimal.Decimal

	SlEnabled bool
	SlPct     decimal.Decimal

	TpEnabled bool

	BreakevenEnabled    bool
	BreakevenTriggerPct decimal.Decimal
	BreakevenOffsetPct  decimal.Decimal

	TrailingEnabled         bool
	TrailingTriggerPct      decimal.Decimal
	TrailingStepPct         decimal.Decimal
	TrailingDistancePct     decimal.Decimal
	TrailingMoveImmediately bool

	SameSidePolicy string

	// Enabled levels only, sorted by level ascending.
	TPLevels []TPLevel
}

// ==================== VALIDATION ====================

var one = decimal.NewFromInt(1)

func pctInRange(v decimal.Decimal) bool {
	return v.Sign() >= 0 && v.LessThanOrEqual(one)
}

// Validate rejects configurations the executor cannot act on safely.
func (p *PairConfig) Validate() error {
	if strings.TrimSpace(p.Symbol) == "" {
		return fmt.Errorf("pair config: empty symbol")
	}
	switch p.MarginMode {
	case MarginIsolation, MarginCross:
	default:
		return fmt.Errorf("%s: invalid margin_mode %q", p.Symbol, p.MarginMode)
	}
	switch p.SameSidePolicy {
	case PolicyIgnore, PolicyResetOrders:
	default:
		return fmt.Errorf("%s: invalid same_side_policy %q", p.Symbol, p.SameSidePolicy)
	}
	switch p.OrderSizeType {
	case SizeMarginUSDT, SizeNotionalUSDT, SizePctBalance:
	default:
		return fmt.Errorf("%s: invalid order_size_type %q", p.Symbol, p.OrderSizeType)
	}
	if p.Leverage < 1 {
		return fmt.Errorf("%s: invalid leverage %d", p.Symbol, p.Leverage)
	}
	if !pctInRange(p.SlPct) {
		return fmt.Errorf("%s: sl_pct out of [0..1]: %s", p.Symbol, p.SlPct)
	}
	for _, f := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"breakeven_trigger_pct", p.BreakevenTriggerPct},
		{"breakeven_offset_pct", p.BreakevenOffsetPct},
		{"trailing_trigger_pct", p.TrailingTriggerPct},
		{"trailing_step_pct", p.TrailingStepPct},
		{"trailing_distance_pct", p.TrailingDistancePct},
	} {
		if !pctInRange(f.v) {
			return fmt.Errorf("%s: %s out of [0..1]: %s", p.Symbol, f.name, f.v)
		}
	}
	for _, lvl := range p.TPLevels {
		if lvl.TargetPct.Sign() <= 0 || lvl.TargetPct.GreaterThan(one) {
			return fmt.Errorf("%s TP level=%d: invalid target_pct %s", p.Symbol, lvl.Level, lvl.TargetPct)
		}
		if lvl.CloseFrac.Sign() <= 0 || lvl.CloseFrac.GreaterThan(one) {
			return fmt.Errorf("%s TP level=%d: invalid close_frac %s", p.Symbol, lvl.Level, lvl.CloseFrac)
		}
	}
	return nil
}

// ==================== VIEW ====================

// View is an immutable symbol -> PairConfig lookup. Loaded at startup; the
// per-symbol workers and monitors read it concurrently without locking.
type View struct {
	pairs map[string]PairConfig
}

// NewView validates every config, normalizes TP ladders (enabled only,
// sorted ascending) and freezes the result.
func NewView(configs []PairConfig) (*View, error) {
	m := make(map[string]PairConfig, len(configs))
	for _, p := range configs {
		p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
		p.MarginMode = strings.ToUpper(p.MarginMode)
		p.SameSidePolicy = strings.ToUpper(p.SameSidePolicy)
		p.OrderSizeType = strings.ToUpper(p.OrderSizeType)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		levels := make([]TPLevel, 0, len(p.TPLevels))
		for _, lvl := range p.TPLevels {
			if lvl.Enabled {
				levels = append(levels, lvl)
			}
		}
		sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })
		p.TPLevels = levels
		m[p.Symbol] = p
	}
	return &View{pairs: m}, nil
}

// Get looks a symbol up case-insensitively.
func (v *View) Get(symbol string) (PairConfig, bool) {
	p, ok := v.pairs[strings.ToUpper(strings.TrimSpace(symbol))]
	return p, ok
}

// Symbols returns the configured symbols, sorted.
func (v *View) Symbols() []string {
	out := make([]string, 0, len(v.pairs))
	for s := range v.pairs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Len reports how many pairs are configured.
func (v *View) Len() int { return len(v.pairs) }
