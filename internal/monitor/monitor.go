package monitor

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bitunix-signal-bot/internal/bitunix"
	"bitunix-signal-bot/internal/notification"
	"bitunix-signal-bot/internal/numeric"
	"bitunix-signal-bot/internal/pairs"
)

const pollInterval = 1 * time.Second

// OpenPosition is the runtime snapshot a monitor manages. Built by the
// executor once the exchange confirms the position.
type OpenPosition struct {
	Symbol         string
	PositionID     string
	Side           bitunix.PositionSide
	EntryPrice     decimal.Decimal
	InitialQty     decimal.Decimal
	BasePrecision  int
	QuotePrecision int
	MarginCoin     string
}

// SymbolMonitor watches one symbol's open position and tightens its
// stop-loss: break-even once, then price-anchored trailing. Stops are only
// ever moved in the protective direction.
type SymbolMonitor struct {
	gateway      bitunix.Gateway
	symbol       string
	logger       zerolog.Logger
	notifier     *notification.Manager
	minTicksAway int

	stop     chan struct{}
	stopOnce sync.Once

	mu  sync.Mutex
	pos *OpenPosition
	cfg *pairs.PairConfig

	lastSL      decimal.Decimal
	beDone      bool
	trailActive bool
	trailBest   decimal.Decimal
	trailAnchor decimal.Decimal
}

// NewSymbolMonitor starts the watch loop immediately. The monitor idles
// until SetPosition hands it a position.
func NewSymbolMonitor(gateway bitunix.Gateway, symbol string, minTicksAway int, notifier *notification.Manager, logger zerolog.Logger) *SymbolMonitor {
	m := &SymbolMonitor{
		gateway:      gateway,
		symbol:       symbol,
		notifier:     notifier,
		minTicksAway: minTicksAway,
		logger:       logger.With().Str("component", "SymbolMonitor").Str("symbol", symbol).Logger(),
		stop:         make(chan struct{}),
	}
	go m.loop()
	return m
}

// Stop terminates the watch loop.
func (m *SymbolMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// SetPosition swaps the watched position and resets all adjustment state.
// Passing nil detaches the monitor.
func (m *SymbolMonitor) SetPosition(pos *OpenPosition, cfg *pairs.PairConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = pos
	m.cfg = cfg
	m.lastSL = decimal.Zero
	m.beDone = false
	m.trailActive = false
	m.trailBest = decimal.Zero
	m.trailAnchor = decimal.Zero
}

func (m *SymbolMonitor) loop() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// check runs one monitor pass. Split from loop so tests can drive it
// without waiting out the ticker.
func (m *SymbolMonitor) check() {
	m.mu.Lock()
	pos := m.pos
	cfg := m.cfg
	m.mu.Unlock()

	if pos == nil || cfg == nil {
		return
	}
	if !cfg.SlEnabled || (!cfg.BreakevenEnabled && !cfg.TrailingEnabled) {
		return
	}

	positions, err := m.gateway.GetPendingPositions(pos.Symbol)
	if err != nil {
		m.logger.Warn().Err(err).Msg("position poll failed")
		return
	}

	var live *bitunix.Position
	anyOpen := false
	for i := range positions {
		if positions[i].Quantity().Abs().Sign() > 0 {
			anyOpen = true
		}
		if positions[i].PositionID.String() == pos.PositionID {
			live = &positions[i]
		}
	}
	if live == nil {
		// Closed externally (SL hit, manual close): detach.
		if !anyOpen {
			m.SetPosition(nil, nil)
		}
		return
	}
	if live.Quantity().Abs().Sign() <= 0 {
		m.SetPosition(nil, nil)
		return
	}

	// Seed from the stop the exchange already holds so the first
	// tightening never loosens it.
	m.mu.Lock()
	if exchSL := live.StopLoss(); exchSL.Sign() > 0 && m.lastSL.Sign() == 0 {
		m.lastSL = exchSL
	}
	m.mu.Unlock()

	price, err := m.gateway.GetLastPrice(pos.Symbol)
	if err != nil || price.Sign() <= 0 {
		return
	}

	if cfg.BreakevenEnabled && !m.breakevenDone() {
		m.maybeBreakeven(pos, cfg, price)
	}
	if cfg.TrailingEnabled {
		m.maybeTrailing(pos, cfg, price)
	}
}

func (m *SymbolMonitor) breakevenDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.beDone
}

// tightenSL clamps the candidate away from the current price, enforces
// monotone movement and pushes the result to the exchange.
func (m *SymbolMonitor) tightenSL(pos *OpenPosition, newSL decimal.Decimal) error {
	qp := pos.QuotePrecision

	if price, err := m.gateway.GetLastPrice(pos.Symbol); err == nil && price.Sign() > 0 {
		newSL = numeric.ClampSLNotInstant(string(pos.Side), newSL, price, qp, m.minTicksAway)
	}

	m.mu.Lock()
	lastSL := m.lastSL
	m.mu.Unlock()

	if lastSL.Sign() > 0 {
		if pos.Side == bitunix.PositionSideLong && newSL.LessThanOrEqual(lastSL) {
			return nil
		}
		if pos.Side == bitunix.PositionSideShort && newSL.GreaterThanOrEqual(lastSL) {
			return nil
		}
	}

	slStr := numeric.Format(newSL, qp)
	if _, err := m.gateway.ModifyPositionSL(pos.Symbol, pos.PositionID, slStr); err != nil {
		return err
	}
	m.mu.Lock()
	m.lastSL = newSL
	m.mu.Unlock()
	m.logger.Info().Str("side", string(pos.Side)).Str("sl", slStr).Msg("stop-loss tightened")
	if m.notifier != nil {
		m.notifier.SendStopMoved(pos.Symbol, string(pos.Side), slStr)
	}
	return nil
}

func (m *SymbolMonitor) maybeBreakeven(pos *OpenPosition, cfg *pairs.PairConfig, price decimal.Decimal) {
	entry := pos.EntryPrice
	if entry.Sign() <= 0 {
		return
	}
	one := decimal.NewFromInt(1)

	var beSL decimal.Decimal
	if pos.Side == bitunix.PositionSideLong {
		if price.LessThan(entry.Mul(one.Add(cfg.BreakevenTriggerPct))) {
			return
		}
		beSL = entry.Mul(one.Add(cfg.BreakevenOffsetPct))
	} else {
		if price.GreaterThan(entry.Mul(one.Sub(cfg.BreakevenTriggerPct))) {
			return
		}
		beSL = entry.Mul(one.Sub(cfg.BreakevenOffsetPct))
	}

	beSL = numeric.RoundDown(beSL, pos.QuotePrecision)
	if err := m.tightenSL(pos, beSL); err != nil {
		m.logger.Warn().Err(err).Msg("breakeven move failed")
		return
	}
	m.mu.Lock()
	m.beDone = true
	m.mu.Unlock()
	m.logger.Info().Str("side", string(pos.Side)).Msg("breakeven applied")
}

// maybeTrailing activates once price moves trailing_trigger_pct away from
// entry, then follows the best price: every step_pct of further progress
// drags the stop to distance_pct behind the best print.
func (m *SymbolMonitor) maybeTrailing(pos *OpenPosition, cfg *pairs.PairConfig, price decimal.Decimal) {
	entry := pos.EntryPrice
	if entry.Sign() <= 0 {
		return
	}
	one := decimal.NewFromInt(1)

	m.mu.Lock()
	active := m.trailActive
	m.mu.Unlock()

	if !active {
		if pos.Side == bitunix.PositionSideLong {
			if price.LessThan(entry.Mul(one.Add(cfg.TrailingTriggerPct))) {
				return
			}
		} else {
			if price.GreaterThan(entry.Mul(one.Sub(cfg.TrailingTriggerPct))) {
				return
			}
		}

		m.mu.Lock()
		m.trailActive = true
		m.trailBest = price
		m.trailAnchor = price
		m.mu.Unlock()
		m.logger.Info().Str("side", string(pos.Side)).Str("trigger", cfg.TrailingTriggerPct.String()).Msg("trailing activated")

		if cfg.TrailingMoveImmediately {
			var newSL decimal.Decimal
			if pos.Side == bitunix.PositionSideLong {
				newSL = price.Mul(one.Sub(cfg.TrailingDistancePct))
			} else {
				newSL = price.Mul(one.Add(cfg.TrailingDistancePct))
			}
			newSL = numeric.RoundDown(newSL, pos.QuotePrecision)
			if err := m.tightenSL(pos, newSL); err != nil {
				m.logger.Warn().Err(err).Msg("immediate trailing move failed")
			}
		}
		return
	}

	m.mu.Lock()
	if pos.Side == bitunix.PositionSideLong {
		if price.GreaterThan(m.trailBest) {
			m.trailBest = price
		}
	} else {
		if m.trailBest.Sign() == 0 || price.LessThan(m.trailBest) {
			m.trailBest = price
		}
	}
	best := m.trailBest
	anchor := m.trailAnchor
	m.mu.Unlock()

	var stepReached bool
	var newSL decimal.Decimal
	if pos.Side == bitunix.PositionSideLong {
		stepReached = best.GreaterThanOrEqual(anchor.Mul(one.Add(cfg.TrailingStepPct)))
		newSL = best.Mul(one.Sub(cfg.TrailingDistancePct))
	} else {
		stepReached = best.LessThanOrEqual(anchor.Mul(one.Sub(cfg.TrailingStepPct)))
		newSL = best.Mul(one.Add(cfg.TrailingDistancePct))
	}
	if !stepReached {
		return
	}

	newSL = numeric.RoundDown(newSL, pos.QuotePrecision)
	if err := m.tightenSL(pos, newSL); err != nil {
		m.logger.Warn().Err(err).Msg("trailing move failed")
		return
	}
	m.mu.Lock()
	m.trailAnchor = best
	m.mu.Unlock()
}
