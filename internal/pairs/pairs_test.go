package pairs

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validPair() PairConfig {
	return PairConfig{
		Symbol:              "btcusdt",
		Enabled:             true,
		MarginMode:          MarginIsolation,
		Leverage:            5,
		OrderSizeType:       SizeMarginUSDT,
		OrderSizeValue:      dec("100"),
		SlEnabled:           true,
		SlPct:               dec("0.01"),
		TpEnabled:           true,
		BreakevenTriggerPct: dec("0.01"),
		BreakevenOffsetPct:  dec("0.001"),
		TrailingTriggerPct:  dec("0.02"),
		TrailingStepPct:     dec("0.01"),
		TrailingDistancePct: dec("0.005"),
		SameSidePolicy:      PolicyIgnore,
		TPLevels: []TPLevel{
			{Level: 2, TargetPct: dec("0.02"), CloseFrac: dec("0.3"), Enabled: true},
			{Level: 1, TargetPct: dec("0.01"), CloseFrac: dec("0.3"), Enabled: true},
			{Level: 3, TargetPct: dec("0.03"), CloseFrac: dec("0.4"), Enabled: false},
		},
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PairConfig)
	}{
		{"empty symbol", func(p *PairConfig) { p.Symbol = " " }},
		{"margin mode", func(p *PairConfig) { p.MarginMode = "ISOLATED" }},
		{"same side policy", func(p *PairConfig) { p.SameSidePolicy = "FLIP" }},
		{"order size type", func(p *PairConfig) { p.OrderSizeType = "USDT" }},
		{"leverage zero", func(p *PairConfig) { p.Leverage = 0 }},
		{"sl pct over one", func(p *PairConfig) { p.SlPct = dec("1.5") }},
		{"negative trigger", func(p *PairConfig) { p.BreakevenTriggerPct = dec("-0.01") }},
		{"tp target zero", func(p *PairConfig) { p.TPLevels[0].TargetPct = decimal.Zero }},
		{"tp frac over one", func(p *PairConfig) { p.TPLevels[1].CloseFrac = dec("1.1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPair()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewViewNormalizes(t *testing.T) {
	view, err := NewView([]PairConfig{validPair()})
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}

	p, ok := view.Get("BtcUsdt")
	if !ok {
		t.Fatal("lookup must be case-insensitive")
	}
	if p.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %s", p.Symbol)
	}

	// Disabled levels dropped, remainder sorted ascending.
	if len(p.TPLevels) != 2 {
		t.Fatalf("tp levels = %d, want 2", len(p.TPLevels))
	}
	if p.TPLevels[0].Level != 1 || p.TPLevels[1].Level != 2 {
		t.Errorf("tp order = %d,%d", p.TPLevels[0].Level, p.TPLevels[1].Level)
	}

	if _, ok := view.Get("ETHUSDT"); ok {
		t.Error("unknown symbol must miss")
	}
	if view.Len() != 1 {
		t.Errorf("Len = %d", view.Len())
	}
}

func TestNewViewPropagatesValidation(t *testing.T) {
	p := validPair()
	p.Leverage = 0
	if _, err := NewView([]PairConfig{p}); err == nil {
		t.Error("expected error from invalid pair")
	}
}
