package executor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bitunix-signal-bot/internal/bitunix"
	"bitunix-signal-bot/internal/metrics"
	"bitunix-signal-bot/internal/monitor"
	"bitunix-signal-bot/internal/notification"
	"bitunix-signal-bot/internal/numeric"
	"bitunix-signal-bot/internal/pairs"
	"bitunix-signal-bot/internal/queue"
)

// ==================== SIGNALS ====================

// Signal is a normalized webhook instruction.
type Signal string

const (
	SignalLong   Signal = "LONG"
	SignalShort  Signal = "SHORT"
	SignalBuyTP  Signal = "BUY_TP"  // closes a LONG
	SignalSellTP Signal = "SELL_TP" // closes a SHORT
)

func validSignal(s Signal) bool {
	switch s {
	case SignalLong, SignalShort, SignalBuyTP, SignalSellTP:
		return true
	}
	return false
}

// ResolveSignal normalizes the payload's instruction. Explicit keys win;
// otherwise the alert text is scanned, with TP phrases checked before the
// LONG/SHORT words they may contain.
func ResolveSignal(payload map[string]any) Signal {
	for _, key := range []string{"signal", "action", "side"} {
		if v, ok := payload[key]; ok {
			raw := Signal(strings.ToUpper(strings.TrimSpace(fmt.Sprint(v))))
			switch raw {
			case "BUY":
				return SignalLong
			case "SELL":
				return SignalShort
			}
			if validSignal(raw) {
				return raw
			}
		}
	}

	var content string
	for _, key := range []string{"content", "message", "alert_message"} {
		if v, ok := payload[key]; ok {
			content += " " + strings.ToUpper(fmt.Sprint(v))
		}
	}
	switch {
	case strings.Contains(content, "BUY TP") || strings.Contains(content, "TP ALCISTA"):
		return SignalBuyTP
	case strings.Contains(content, "SELL TP") || strings.Contains(content, "TP BAJISTA"):
		return SignalSellTP
	case strings.Contains(content, "LONG"):
		return SignalLong
	case strings.Contains(content, "SHORT"):
		return SignalShort
	}
	return ""
}

// ==================== EXECUTOR ====================

// TradeExecutor turns queued signals into exchange actions. One instance
// serves all symbols; per-symbol serialization is the queue's job.
type TradeExecutor struct {
	gateway      bitunix.Gateway
	view         *pairs.View
	marginCoin   string
	minTicksAway int
	logger       zerolog.Logger
	notifier     *notification.Manager

	// Polling knobs, shortened in tests.
	fillPollInterval time.Duration
	fillTimeout      time.Duration
	posPollInterval  time.Duration
	posTimeout       time.Duration
	captureTries     int
	captureSleep     time.Duration
	captureLookback  time.Duration

	monitorsMu sync.Mutex
	monitors   map[string]*monitor.SymbolMonitor
}

// NewTradeExecutor wires the executor with production polling cadence.
func NewTradeExecutor(gateway bitunix.Gateway, view *pairs.View, notifier *notification.Manager, logger zerolog.Logger) *TradeExecutor {
	return &TradeExecutor{
		gateway:          gateway,
		view:             view,
		marginCoin:       "USDT",
		minTicksAway:     2,
		logger:           logger.With().Str("component", "TradeExecutor").Logger(),
		notifier:         notifier,
		fillPollInterval: 1500 * time.Millisecond,
		fillTimeout:      60 * time.Second,
		posPollInterval:  1500 * time.Millisecond,
		posTimeout:       45 * time.Second,
		captureTries:     6,
		captureSleep:     350 * time.Millisecond,
		captureLookback:  5 * time.Second,
		monitors:         make(map[string]*monitor.SymbolMonitor),
	}
}

// SetMarginCoin overrides the settlement coin used for position lookups
// and market orders. Defaults to USDT.
func (e *TradeExecutor) SetMarginCoin(coin string) {
	if coin != "" {
		e.marginCoin = coin
	}
}

// Stop shuts every monitor down.
func (e *TradeExecutor) Stop() {
	e.monitorsMu.Lock()
	defer e.monitorsMu.Unlock()
	for _, m := range e.monitors {
		m.Stop()
	}
}

// ProcessEnqueuedSignal handles one queued signal, blocking until the full
// open/close sequence settles. Runs on the symbol's worker goroutine.
func (e *TradeExecutor) ProcessEnqueuedSignal(sig queue.EnqueuedSignal) {
	symbol := strings.ToUpper(sig.Symbol)
	log := e.logger.With().Str("symbol", symbol).Logger()

	cfg, ok := e.view.Get(symbol)
	if !ok {
		log.Warn().Msg("no configuration for symbol, dropping signal")
		metrics.SignalsRejected.WithLabelValues("unconfigured").Inc()
		return
	}
	if !cfg.Enabled {
		log.Info().Msg("symbol disabled, dropping signal")
		metrics.SignalsRejected.WithLabelValues("disabled").Inc()
		return
	}

	raw := ResolveSignal(sig.Payload)
	if !validSignal(raw) {
		log.Warn().Str("signal", string(raw)).Msg("invalid signal, dropping")
		metrics.SignalsRejected.WithLabelValues("invalid_signal").Inc()
		return
	}

	e.ensureMonitor(symbol)

	var err error
	switch raw {
	case SignalBuyTP:
		err = e.handleTPClose(symbol, bitunix.PositionSideLong)
	case SignalSellTP:
		err = e.handleTPClose(symbol, bitunix.PositionSideShort)
	case SignalLong:
		err = e.handleSignal(symbol, bitunix.PositionSideLong, &cfg)
	case SignalShort:
		err = e.handleSignal(symbol, bitunix.PositionSideShort, &cfg)
	}
	if err != nil {
		log.Error().Err(err).Str("signal", string(raw)).Msg("signal processing failed")
		if e.notifier != nil {
			e.notifier.SendError(fmt.Sprintf("%s: %s failed", symbol, raw), err.Error())
		}
	}
}

// handleTPClose services a manual take-profit: close the position on the
// matching side, never open a new one. Pending partial TPs are cancelled
// first so no reduce-only orders dangle after the close.
func (e *TradeExecutor) handleTPClose(symbol string, targetSide bitunix.PositionSide) error {
	log := e.logger.With().Str("symbol", symbol).Logger()

	cur, err := e.getOpenPosition(symbol)
	if err != nil {
		return err
	}
	if cur == nil {
		log.Info().Str("target", string(targetSide)).Msg("manual TP with no open position, ignoring")
		return nil
	}
	if cur.Side != targetSide {
		log.Info().Str("target", string(targetSide)).Str("current", string(cur.Side)).Msg("manual TP for the other side, ignoring")
		return nil
	}

	e.cancelPendingTPs(symbol)

	log.Info().Str("side", string(cur.Side)).Msg("manual TP, closing position")
	if err := e.closePositionMarket(symbol, "manual_tp"); err != nil {
		return err
	}
	return nil
}

func (e *TradeExecutor) handleSignal(symbol string, side bitunix.PositionSide, cfg *pairs.PairConfig) error {
	log := e.logger.With().Str("symbol", symbol).Logger()

	// Margin and leverage are idempotent and may fail when a position is
	// already open; both are best-effort.
	if err := e.gateway.SetMarginMode(symbol, e.marginCoin, bitunix.MarginMode(cfg.MarginMode)); err != nil {
		log.Warn().Err(err).Msg("set margin mode failed")
	}
	if err := e.gateway.SetLeverage(symbol, e.marginCoin, cfg.Leverage); err != nil {
		log.Warn().Err(err).Msg("set leverage failed")
	}

	cur, err := e.getOpenPosition(symbol)
	if err != nil {
		return err
	}

	if cur == nil {
		return e.openNewPosition(symbol, side, cfg)
	}

	if cur.Side == side {
		if cfg.SameSidePolicy == pairs.PolicyIgnore {
			log.Info().Str("side", string(side)).Msg("already positioned, policy IGNORE")
			return nil
		}
		log.Info().Str("side", string(side)).Msg("already positioned, policy RESET_ORDERS")
		return e.resetOrders(symbol, cfg)
	}

	log.Info().Str("from", string(cur.Side)).Str("to", string(side)).Msg("flipping position")
	if err := e.closePositionMarket(symbol, "flip"); err != nil {
		return err
	}
	return e.openNewPosition(symbol, side, cfg)
}

// getOpenPosition snapshots the largest live position for the symbol, nil
// when flat.
func (e *TradeExecutor) getOpenPosition(symbol string) (*monitor.OpenPosition, error) {
	positions, err := e.gateway.GetPendingPositions(symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch positions: %w", symbol, err)
	}

	var best *bitunix.Position
	for i := range positions {
		p := &positions[i]
		if p.Quantity().Sign() <= 0 {
			continue
		}
		if best == nil || p.Quantity().GreaterThan(best.Quantity()) {
			best = p
		}
	}
	if best == nil {
		return nil, nil
	}

	info, err := e.gateway.GetSymbolInfo(symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch symbol info: %w", symbol, err)
	}

	return &monitor.OpenPosition{
		Symbol:         symbol,
		PositionID:     best.PositionID.String(),
		Side:           best.NormalizedSide(),
		EntryPrice:     best.Entry(),
		InitialQty:     best.Quantity(),
		BasePrecision:  info.BasePrec(),
		QuotePrecision: info.QuotePrec(),
		MarginCoin:     e.marginCoin,
	}, nil
}

// calcQty sizes the order per configuration, truncated to base precision
// and raised to the exchange minimum when under it.
func (e *TradeExecutor) calcQty(symbol string, cfg *pairs.PairConfig, lastPrice decimal.Decimal, basePrecision int, minTradeVolume decimal.Decimal) (decimal.Decimal, error) {
	if lastPrice.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%s: invalid last price %s", symbol, lastPrice)
	}

	leverage := decimal.NewFromInt(int64(cfg.Leverage))
	var notional decimal.Decimal
	switch cfg.OrderSizeType {
	case pairs.SizeMarginUSDT:
		notional = cfg.OrderSizeValue.Mul(leverage)
	case pairs.SizeNotionalUSDT:
		notional = cfg.OrderSizeValue
	case pairs.SizePctBalance:
		available, err := e.gateway.GetAccountAvailable(e.marginCoin)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: fetch balance: %w", symbol, err)
		}
		notional = available.Mul(cfg.OrderSizeValue).Mul(leverage)
	default:
		return decimal.Zero, fmt.Errorf("%s: invalid order_size_type %q", symbol, cfg.OrderSizeType)
	}

	qty := numeric.RoundDown(notional.Div(lastPrice), basePrecision)
	if minTradeVolume.Sign() > 0 && qty.LessThan(minTradeVolume) {
		qty = numeric.RoundDown(minTradeVolume, basePrecision)
	}
	return qty, nil
}

// openNewPosition runs the full open sequence: market order with a
// provisional stop, wait for the fill and the position, recompute the stop
// from the actual entry, lay the TP ladder and hand the position to the
// monitor. The provisional stop covers the window before the
// position-scoped one exists; leftovers are cancelled at the end.
func (e *TradeExecutor) openNewPosition(symbol string, side bitunix.PositionSide, cfg *pairs.PairConfig) error {
	log := e.logger.With().Str("symbol", symbol).Str("side", string(side)).Logger()

	info, err := e.gateway.GetSymbolInfo(symbol)
	if err != nil {
		return fmt.Errorf("%s: fetch symbol info: %w", symbol, err)
	}
	bp := info.BasePrec()
	qp := info.QuotePrec()
	minVol := info.MinVolume()

	lastPrice, err := e.gateway.GetLastPrice(symbol)
	if err != nil {
		return fmt.Errorf("%s: fetch last price: %w", symbol, err)
	}

	qty, err := e.calcQty(symbol, cfg, lastPrice, bp, minVol)
	if err != nil {
		return err
	}
	if qty.Sign() <= 0 {
		return fmt.Errorf("%s: calculated qty <= 0", symbol)
	}
	qtyStr := numeric.Format(qty, bp)

	openTs := time.Now()
	var slProvStr string
	var orderID string

	if cfg.SlEnabled {
		slProv := numeric.ComputeSLFromEntry(lastPrice, qp, string(side), cfg.SlPct)
		slProv = numeric.ClampSLNotInstant(string(side), slProv, lastPrice, qp, e.minTicksAway)
		slProvStr = numeric.Format(slProv, qp)

		log.Info().Str("qty", qtyStr).Str("provisional_sl", slProvStr).Msg("opening market position")
		orderID, err = e.gateway.OpenMarketWithProvisionalSL(symbol, qtyStr, side, slProvStr)
	} else {
		log.Info().Str("qty", qtyStr).Msg("opening market position without stop")
		orderID, err = e.gateway.OpenMarket(symbol, qtyStr, side)
	}
	if err != nil {
		return fmt.Errorf("%s: open market: %w", symbol, err)
	}
	if orderID == "" {
		return fmt.Errorf("%s: exchange returned no order id", symbol)
	}

	od, err := e.waitOrderFilled(orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", symbol, err)
	}
	tradeQty := decimal.Zero
	fillPrice := lastPrice
	if od != nil {
		tradeQty = od.FilledQty()
		if fp := od.FillPrice(); fp.Sign() > 0 {
			fillPrice = fp
		}
	}

	var provIDs []string
	if cfg.SlEnabled && slProvStr != "" {
		sinceMs := openTs.Add(-e.captureLookback).UnixMilli()
		provIDs, err = e.gateway.CaptureProvisionalSLIDs(symbol, slProvStr, sinceMs, e.captureTries, e.captureSleep)
		if err != nil {
			log.Warn().Err(err).Msg("provisional stop capture failed")
		}
	}

	approxQty := qty
	if tradeQty.Sign() > 0 {
		approxQty = tradeQty
	}
	pos := e.waitPosition(symbol, approxQty, side)
	if pos == nil {
		return fmt.Errorf("%s: position never appeared (provisional stop may have fired)", symbol)
	}

	positionID := pos.PositionID.String()
	posQty := pos.Quantity()
	entry := pos.Entry()
	if entry.Sign() <= 0 {
		entry = fillPrice
	}
	if positionID == "" || posQty.Sign() <= 0 {
		return fmt.Errorf("%s: invalid positionId/qty in %+v", symbol, pos)
	}

	var posSLOrderID string
	if cfg.SlEnabled {
		slPos := numeric.ComputeSLFromEntry(entry, qp, string(side), cfg.SlPct)
		if cur, err := e.gateway.GetLastPrice(symbol); err == nil && cur.Sign() > 0 {
			slPos = numeric.ClampSLNotInstant(string(side), slPos, cur, qp, e.minTicksAway)
		}
		slPosStr := numeric.Format(slPos, qp)
		log.Info().Str("sl", slPosStr).Msg("attaching position stop-loss")
		posSLOrderID, err = e.gateway.EnsurePositionSL(symbol, positionID, slPosStr)
		if err != nil {
			return fmt.Errorf("%s: ensure position SL: %w", symbol, err)
		}
		metrics.StopLossMoves.WithLabelValues(symbol).Inc()
	}

	if cfg.TpEnabled && len(cfg.TPLevels) > 0 {
		e.placeTPs(symbol, positionID, side, entry, bp, qp, posQty, cfg.TPLevels)
	}

	for _, oid := range provIDs {
		if posSLOrderID != "" && oid == posSLOrderID {
			continue
		}
		if err := e.gateway.CancelConditional(symbol, oid); err != nil {
			log.Warn().Err(err).Str("order_id", oid).Msg("could not cancel provisional stop")
		}
	}

	e.setMonitorPosition(symbol, &monitor.OpenPosition{
		Symbol:         symbol,
		PositionID:     positionID,
		Side:           side,
		EntryPrice:     entry,
		InitialQty:     posQty,
		BasePrecision:  bp,
		QuotePrecision: qp,
		MarginCoin:     e.marginCoin,
	}, cfg)

	metrics.PositionsOpened.WithLabelValues(symbol, string(side)).Inc()
	if e.notifier != nil {
		e.notifier.SendPositionOpened(symbol, string(side), entry.String(), posQty.String(), slProvStr)
	}
	log.Info().Str("position_id", positionID).Str("qty", posQty.String()).Str("entry", entry.String()).Msg("position ready")
	return nil
}

// closePositionMarket re-reads the live quantity (partial TPs may have
// reduced it) and fires a reduce-only market close.
func (e *TradeExecutor) closePositionMarket(symbol, trigger string) error {
	log := e.logger.With().Str("symbol", symbol).Logger()

	cur, err := e.getOpenPosition(symbol)
	if err != nil {
		return err
	}
	if cur == nil {
		log.Warn().Msg("no position to close")
		e.setMonitorPosition(symbol, nil, nil)
		return nil
	}
	if cur.InitialQty.Sign() <= 0 {
		log.Warn().Msg("zero quantity, nothing to close")
		e.setMonitorPosition(symbol, nil, nil)
		return nil
	}

	qtyStr := numeric.Format(cur.InitialQty, cur.BasePrecision)
	log.Info().Str("side", string(cur.Side)).Str("qty", qtyStr).Msg("closing position at market")
	if err := e.gateway.CloseMarket(symbol, qtyStr, cur.Side, cur.PositionID); err != nil {
		return fmt.Errorf("%s: close market: %w", symbol, err)
	}

	e.setMonitorPosition(symbol, nil, nil)
	metrics.PositionsClosed.WithLabelValues(symbol, trigger).Inc()
	if e.notifier != nil {
		e.notifier.SendPositionClosed(symbol, string(cur.Side), trigger)
	}
	return nil
}

// resetOrders re-arms the protective orders of an existing same-side
// position: cancel pending TPs, re-derive the stop from entry, rebuild the
// ladder from the remaining quantity.
func (e *TradeExecutor) resetOrders(symbol string, cfg *pairs.PairConfig) error {
	log := e.logger.With().Str("symbol", symbol).Logger()

	cur, err := e.getOpenPosition(symbol)
	if err != nil {
		return err
	}
	if cur == nil {
		return nil
	}

	e.cancelPendingTPs(symbol)

	if cfg.SlEnabled {
		newSL := numeric.ComputeSLFromEntry(cur.EntryPrice, cur.QuotePrecision, string(cur.Side), cfg.SlPct)
		if price, err := e.gateway.GetLastPrice(symbol); err == nil && price.Sign() > 0 {
			newSL = numeric.ClampSLNotInstant(string(cur.Side), newSL, price, cur.QuotePrecision, e.minTicksAway)
		}
		slStr := numeric.Format(newSL, cur.QuotePrecision)
		if _, err := e.gateway.EnsurePositionSL(symbol, cur.PositionID, slStr); err != nil {
			log.Warn().Err(err).Msg("could not reset stop-loss")
		} else {
			metrics.StopLossMoves.WithLabelValues(symbol).Inc()
		}
	}

	if cfg.TpEnabled && len(cfg.TPLevels) > 0 {
		e.placeTPs(symbol, cur.PositionID, cur.Side, cur.EntryPrice, cur.BasePrecision, cur.QuotePrecision, cur.InitialQty, cfg.TPLevels)
	}

	e.setMonitorPosition(symbol, cur, cfg)
	return nil
}

// cancelPendingTPs cancels pending conditional orders that carry a
// tpPrice. Stops are left alone.
func (e *TradeExecutor) cancelPendingTPs(symbol string) {
	log := e.logger.With().Str("symbol", symbol).Logger()

	pending, err := e.gateway.GetPendingConditionals(symbol, 200)
	if err != nil {
		log.Warn().Err(err).Msg("could not list pending conditionals")
		return
	}
	for i := range pending {
		o := &pending[i]
		if !o.IsTakeProfit() {
			continue
		}
		oid := o.Identifier()
		if oid == "" {
			continue
		}
		if err := e.gateway.CancelConditional(symbol, oid); err != nil {
			log.Warn().Err(err).Str("order_id", oid).Msg("could not cancel pending TP")
		}
	}
}

// placeTPs lays the partial take-profit ladder. Each tranche is truncated
// to base precision; a sub-minimum runner folds into the last tranche so
// no uncloseable tail is left behind.
func (e *TradeExecutor) placeTPs(symbol, positionID string, side bitunix.PositionSide, entry decimal.Decimal, bp, qp int, totalQty decimal.Decimal, levels []pairs.TPLevel) {
	log := e.logger.With().Str("symbol", symbol).Logger()
	if len(levels) == 0 || totalQty.Sign() <= 0 {
		return
	}

	used := decimal.Zero
	qtys := make([]decimal.Decimal, 0, len(levels))
	for _, lvl := range levels {
		q := numeric.RoundDown(totalQty.Mul(lvl.CloseFrac), bp)
		if q.Sign() < 0 {
			q = decimal.Zero
		}
		qtys = append(qtys, q)
		used = used.Add(q)
	}

	runner := numeric.RoundDown(totalQty.Sub(used), bp)
	if runner.Sign() < 0 {
		runner = decimal.Zero
	}

	if runner.Sign() > 0 && len(qtys) > 0 {
		if info, err := e.gateway.GetSymbolInfo(symbol); err == nil {
			if minVol := info.MinVolume(); minVol.Sign() > 0 && runner.LessThan(minVol) {
				qtys[len(qtys)-1] = numeric.RoundDown(qtys[len(qtys)-1].Add(runner), bp)
				runner = decimal.Zero
			}
		}
	}

	for i, lvl := range levels {
		q := qtys[i]
		if q.Sign() <= 0 {
			continue
		}
		tpPrice := numeric.ComputeTPFromEntry(entry, qp, string(side), lvl.TargetPct)
		tpPriceStr := numeric.Format(tpPrice, qp)
		tpQtyStr := numeric.Format(q, bp)
		if _, err := e.gateway.PlaceTpPartial(symbol, positionID, tpPriceStr, tpQtyStr); err != nil {
			log.Warn().Err(err).Int("level", lvl.Level).Msg("take-profit placement failed")
			continue
		}
		metrics.TakeProfitsPlaced.WithLabelValues(symbol).Inc()
		log.Info().Int("level", lvl.Level).Str("price", tpPriceStr).Str("qty", tpQtyStr).Msg("take-profit placed")
	}

	if runner.Sign() > 0 {
		log.Info().Str("qty", numeric.Format(runner, bp)).Msg("runner left without take-profit")
	}
}

// waitOrderFilled polls the order until it reports a fill. A CANCELED
// order is fatal; a timeout hands back the last snapshot so the caller can
// fall through to the position poll.
func (e *TradeExecutor) waitOrderFilled(orderID string) (*bitunix.OrderDetail, error) {
	deadline := time.Now().Add(e.fillTimeout)
	var last *bitunix.OrderDetail
	for {
		od, err := e.gateway.GetOrderDetail(orderID)
		if err == nil && od != nil {
			last = od
			status := bitunix.OrderStatus(strings.ToUpper(od.Status.String()))
			if (status == bitunix.OrderStatusFilled || status == bitunix.OrderStatusPartFilled) && od.FilledQty().Sign() > 0 {
				return od, nil
			}
			if status == bitunix.OrderStatusCanceled {
				return nil, fmt.Errorf("order %s canceled", orderID)
			}
		}
		if time.Now().After(deadline) {
			return last, nil
		}
		time.Sleep(e.fillPollInterval)
	}
}

// waitPosition polls for the opened position, preferring the requested
// side and, among candidates, the quantity closest to the fill.
func (e *TradeExecutor) waitPosition(symbol string, approxQty decimal.Decimal, preferSide bitunix.PositionSide) *bitunix.Position {
	deadline := time.Now().Add(e.posTimeout)
	for {
		positions, err := e.gateway.GetPendingPositions(symbol)
		if err == nil {
			var candidates []bitunix.Position
			for _, p := range positions {
				if p.Quantity().Sign() > 0 {
					candidates = append(candidates, p)
				}
			}
			if len(candidates) > 0 {
				if preferSide != "" {
					var preferred []bitunix.Position
					for _, p := range candidates {
						if numeric.SideMatches(string(preferSide), p.Side.String()) {
							preferred = append(preferred, p)
						}
					}
					if len(preferred) > 0 {
						candidates = preferred
					}
				}
				best := candidates[0]
				bestDist := best.Quantity().Sub(approxQty).Abs()
				for _, p := range candidates[1:] {
					if d := p.Quantity().Sub(approxQty).Abs(); d.LessThan(bestDist) {
						best, bestDist = p, d
					}
				}
				return &best
			}
		}
		if time.Now().After(deadline) {
			return nil
		}
		time.Sleep(e.posPollInterval)
	}
}

// ==================== MONITORS ====================

func (e *TradeExecutor) ensureMonitor(symbol string) {
	e.monitorsMu.Lock()
	defer e.monitorsMu.Unlock()
	if _, ok := e.monitors[symbol]; ok {
		return
	}
	e.monitors[symbol] = monitor.NewSymbolMonitor(e.gateway, symbol, e.minTicksAway, e.notifier, e.logger)
}

func (e *TradeExecutor) setMonitorPosition(symbol string, pos *monitor.OpenPosition, cfg *pairs.PairConfig) {
	e.monitorsMu.Lock()
	m := e.monitors[symbol]
	e.monitorsMu.Unlock()
	if m != nil {
		m.SetPosition(pos, cfg)
	}
}
