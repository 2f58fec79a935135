package monitor

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bitunix-signal-bot/internal/bitunix"
	"bitunix-signal-bot/internal/pairs"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// testMonitor builds a monitor without its background loop so tests drive
// check() deterministically.
func testMonitor(g bitunix.Gateway) *SymbolMonitor {
	return &SymbolMonitor{
		gateway:      g,
		symbol:       "BTCUSDT",
		minTicksAway: 2,
		logger:       zerolog.Nop(),
		stop:         make(chan struct{}),
	}
}

func longPosition() *OpenPosition {
	return &OpenPosition{
		Symbol:         "BTCUSDT",
		PositionID:     "P1",
		Side:           bitunix.PositionSideLong,
		EntryPrice:     dec("100"),
		InitialQty:     dec("1"),
		BasePrecision:  3,
		QuotePrecision: 2,
		MarginCoin:     "USDT",
	}
}

func livePositions(slPrice string) []bitunix.Position {
	raw := fmt.Sprintf(`[{"positionId":"P1","symbol":"BTCUSDT","qty":"1","side":"BUY","avgOpenPrice":"100","slPrice":"%s"}]`, slPrice)
	var ps []bitunix.Position
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		panic(err)
	}
	return ps
}

func modifies(g *bitunix.MockGateway) []string {
	var out []string
	for _, c := range g.CallLog() {
		if strings.HasPrefix(c, "ModifyPositionSL(") {
			out = append(out, c)
		}
	}
	return out
}

func TestIdleWithoutProtections(t *testing.T) {
	g := &bitunix.MockGateway{}
	m := testMonitor(g)
	cfg := &pairs.PairConfig{SlEnabled: true} // neither breakeven nor trailing
	m.SetPosition(longPosition(), cfg)

	m.check()
	if len(g.CallLog()) != 0 {
		t.Errorf("monitor must not touch the exchange: %v", g.CallLog())
	}
}

func TestDetachesWhenPositionGone(t *testing.T) {
	g := &bitunix.MockGateway{
		GetPendingPositionsFunc: func(string) ([]bitunix.Position, error) { return nil, nil },
	}
	m := testMonitor(g)
	m.SetPosition(longPosition(), &pairs.PairConfig{
		SlEnabled:        true,
		BreakevenEnabled: true,
	})

	m.check()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos != nil {
		t.Error("externally closed position must detach the monitor")
	}
}

func TestBreakevenAtExactTrigger(t *testing.T) {
	g := &bitunix.MockGateway{
		GetPendingPositionsFunc: func(string) ([]bitunix.Position, error) { return livePositions(""), nil },
		GetLastPriceFunc:        func(string) (decimal.Decimal, error) { return dec("101"), nil },
	}
	m := testMonitor(g)
	m.SetPosition(longPosition(), &pairs.PairConfig{
		SlEnabled:           true,
		BreakevenEnabled:    true,
		BreakevenTriggerPct: dec("0.01"),
		BreakevenOffsetPct:  dec("0.001"),
	})

	// price 101 == entry * (1 + trigger): fires.
	m.check()
	mods := modifies(g)
	if len(mods) != 1 || mods[0] != "ModifyPositionSL(BTCUSDT,P1,100.10)" {
		t.Fatalf("modifies = %v", mods)
	}

	// One-shot: the next pass must not re-apply.
	m.check()
	if got := modifies(g); len(got) != 1 {
		t.Errorf("breakeven re-applied: %v", got)
	}
}

func TestBreakevenBelowTriggerWaits(t *testing.T) {
	g := &bitunix.MockGateway{
		GetPendingPositionsFunc: func(string) ([]bitunix.Position, error) { return livePositions(""), nil },
		GetLastPriceFunc:        func(string) (decimal.Decimal, error) { return dec("100.99"), nil },
	}
	m := testMonitor(g)
	m.SetPosition(longPosition(), &pairs.PairConfig{
		SlEnabled:           true,
		BreakevenEnabled:    true,
		BreakevenTriggerPct: dec("0.01"),
		BreakevenOffsetPct:  dec("0.001"),
	})

	m.check()
	if got := modifies(g); len(got) != 0 {
		t.Errorf("breakeven must wait below trigger: %v", got)
	}
}

func TestSeededStopBlocksLooserCandidate(t *testing.T) {
	// Exchange already holds an SL at 100.50; a breakeven candidate at
	// 100.10 would loosen it and must be skipped.
	g := &bitunix.MockGateway{
		GetPendingPositionsFunc: func(string) ([]bitunix.Position, error) { return livePositions("100.50"), nil },
		GetLastPriceFunc:        func(string) (decimal.Decimal, error) { return dec("101"), nil },
	}
	m := testMonitor(g)
	m.SetPosition(longPosition(), &pairs.PairConfig{
		SlEnabled:           true,
		BreakevenEnabled:    true,
		BreakevenTriggerPct: dec("0.01"),
		BreakevenOffsetPct:  dec("0.001"),
	})

	m.check()
	if got := modifies(g); len(got) != 0 {
		t.Errorf("looser stop must not replace the seeded one: %v", got)
	}
}

func TestTrailingActivationAndFollow(t *testing.T) {
	price := dec("203")
	g := &bitunix.MockGateway{
		GetPendingPositionsFunc: func(string) ([]bitunix.Position, error) {
			return []bitunix.Position{{PositionID: "P1", Symbol: "BTCUSDT", Qty: "1", Side: "BUY", AvgOpenPrice: "200"}}, nil
		},
		GetLastPriceFunc: func(string) (decimal.Decimal, error) { return price, nil },
	}
	m := testMonitor(g)
	pos := longPosition()
	pos.EntryPrice = dec("200")
	m.SetPosition(pos, &pairs.PairConfig{
		SlEnabled:               true,
		TrailingEnabled:         true,
		TrailingTriggerPct:      dec("0.02"),
		TrailingStepPct:         dec("0.01"),
		TrailingDistancePct:     dec("0.005"),
		TrailingMoveImmediately: true,
	})

	// 203 < 200*1.02: not armed yet.
	m.check()
	if m.trailActive {
		t.Fatal("trailing armed below trigger")
	}

	// 204 arms trailing and, with move-immediately, drops an SL at
	// 204*(1-0.005) = 202.98.
	price = dec("204")
	m.check()
	if !m.trailActive {
		t.Fatal("trailing not armed at trigger")
	}
	mods := modifies(g)
	if len(mods) != 1 || mods[0] != "ModifyPositionSL(BTCUSDT,P1,202.98)" {
		t.Fatalf("activation modifies = %v", mods)
	}

	// 205 is under the next step (204*1.01 = 206.04): no move.
	price = dec("205")
	m.check()
	if got := modifies(g); len(got) != 1 {
		t.Fatalf("moved before step reached: %v", got)
	}

	// 206.04 reaches the step: SL -> trunc(206.04*0.995, 2) = 205.00.
	price = dec("206.04")
	m.check()
	mods = modifies(g)
	if len(mods) != 2 || mods[1] != "ModifyPositionSL(BTCUSDT,P1,205.00)" {
		t.Fatalf("follow modifies = %v", mods)
	}
	if !m.trailAnchor.Equal(dec("206.04")) {
		t.Errorf("anchor = %s", m.trailAnchor)
	}
}

func TestTrailingShortFollowsDown(t *testing.T) {
	price := dec("196")
	g := &bitunix.MockGateway{
		GetPendingPositionsFunc: func(string) ([]bitunix.Position, error) {
			return []bitunix.Position{{PositionID: "P1", Symbol: "BTCUSDT", Qty: "1", Side: "SELL", AvgOpenPrice: "200"}}, nil
		},
		GetLastPriceFunc: func(string) (decimal.Decimal, error) { return price, nil },
	}
	m := testMonitor(g)
	pos := longPosition()
	pos.Side = bitunix.PositionSideShort
	pos.EntryPrice = dec("200")
	m.SetPosition(pos, &pairs.PairConfig{
		SlEnabled:           true,
		TrailingEnabled:     true,
		TrailingTriggerPct:  dec("0.02"),
		TrailingStepPct:     dec("0.01"),
		TrailingDistancePct: dec("0.005"),
	})

	// 196 <= 200*0.98 arms without an immediate move.
	m.check()
	if !m.trailActive || len(modifies(g)) != 0 {
		t.Fatalf("short arm: active=%v modifies=%v", m.trailActive, modifies(g))
	}

	// 194.04 <= 196*0.99: SL -> trunc(194.04*1.005, 2) = 195.01.
	price = dec("194.04")
	m.check()
	mods := modifies(g)
	if len(mods) != 1 || mods[0] != "ModifyPositionSL(BTCUSDT,P1,195.01)" {
		t.Fatalf("short follow modifies = %v", mods)
	}
}

func TestClampKeepsStopAwayFromPrice(t *testing.T) {
	// Offset pushes the breakeven stop above price-2-ticks; the clamp
	// must pull it back to 100.98 when price is 101.
	g := &bitunix.MockGateway{
		GetPendingPositionsFunc: func(string) ([]bitunix.Position, error) { return livePositions(""), nil },
		GetLastPriceFunc:        func(string) (decimal.Decimal, error) { return dec("101"), nil },
	}
	m := testMonitor(g)
	m.SetPosition(longPosition(), &pairs.PairConfig{
		SlEnabled:           true,
		BreakevenEnabled:    true,
		BreakevenTriggerPct: dec("0.01"),
		BreakevenOffsetPct:  dec("0.05"),
	})

	m.check()
	mods := modifies(g)
	if len(mods) != 1 || mods[0] != "ModifyPositionSL(BTCUSDT,P1,100.98)" {
		t.Fatalf("modifies = %v", mods)
	}
}
