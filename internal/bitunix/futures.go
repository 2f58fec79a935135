package bitunix

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	pathTradingPairs     = "/api/v1/futures/market/trading_pairs"
	pathTickers          = "/api/v1/futures/market/tickers"
	pathAccount          = "/api/v1/futures/account"
	pathPendingPositions = "/api/v1/futures/position/get_pending_positions"
	pathPendingTpsl      = "/api/v1/futures/tpsl/get_pending_orders"
	pathOrderDetail      = "/api/v1/futures/trade/get_order_detail"
	pathChangeMarginMode = "/api/v1/futures/account/change_margin_mode"
	pathChangeLeverage   = "/api/v1/futures/account/change_leverage"
	pathPlaceOrder       = "/api/v1/futures/trade/place_order"
	pathPositionSLPlace  = "/api/v1/futures/tpsl/position/place_order"
	pathPositionSLModify = "/api/v1/futures/tpsl/position/modify_order"
	pathTpslPlace        = "/api/v1/futures/tpsl/place_order"
	pathTpslCancel       = "/api/v1/futures/tpsl/cancel_order"
)

// ==================== MARKET DATA ====================

// GetSymbolInfo fetches precision metadata for one trading pair.
func (c *Client) GetSymbolInfo(symbol string) (*SymbolInfo, error) {
	data, err := c.publicRequest(pathTradingPairs, map[string]string{"symbols": symbol})
	if err != nil {
		return nil, err
	}
	var infos []SymbolInfo
	if err := json.Unmarshal(data, &infos); err != nil {
		return nil, fmt.Errorf("parse trading pairs: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("no symbol info for %s", symbol)
	}
	for i := range infos {
		if strings.EqualFold(infos[i].Symbol, symbol) {
			return &infos[i], nil
		}
	}
	return &infos[0], nil
}

// GetLastPrice fetches the last traded (or mark) price for a symbol.
func (c *Client) GetLastPrice(symbol string) (decimal.Decimal, error) {
	data, err := c.publicRequest(pathTickers, map[string]string{"symbols": symbol})
	if err != nil {
		return decimal.Zero, err
	}
	var tickers []Ticker
	if err := json.Unmarshal(data, &tickers); err != nil {
		return decimal.Zero, fmt.Errorf("parse tickers: %w", err)
	}
	if len(tickers) == 0 {
		return decimal.Zero, fmt.Errorf("no ticker for %s", symbol)
	}
	for i := range tickers {
		if strings.EqualFold(tickers[i].Symbol, symbol) {
			return tickers[i].Price(), nil
		}
	}
	return tickers[0].Price(), nil
}

// ==================== ACCOUNT / POSITIONS ====================

// GetAccountAvailable returns the available balance for a margin coin.
func (c *Client) GetAccountAvailable(marginCoin string) (decimal.Decimal, error) {
	data, err := c.signedRequest("GET", pathAccount, map[string]string{"marginCoin": marginCoin}, nil)
	if err != nil {
		return decimal.Zero, err
	}
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		// Some deployments answer with a bare object.
		var one Account
		if err2 := json.Unmarshal(data, &one); err2 != nil {
			return decimal.Zero, fmt.Errorf("parse account: %w", err)
		}
		return one.Available.Decimal(), nil
	}
	if len(accounts) == 0 {
		return decimal.Zero, nil
	}
	return accounts[0].Available.Decimal(), nil
}

// GetPendingPositions lists positions with non-zero quantity. An empty
// symbol lists every symbol.
func (c *Client) GetPendingPositions(symbol string) ([]Position, error) {
	params := map[string]string{}
	if symbol != "" {
		params["symbol"] = symbol
	}
	data, err := c.signedRequest("GET", pathPendingPositions, params, nil)
	if err != nil {
		return nil, err
	}
	var positions []Position
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("parse positions: %w", err)
	}
	return positions, nil
}

// GetPendingConditionals lists live SL- and TP-type conditional orders.
func (c *Client) GetPendingConditionals(symbol string, limit int) ([]ConditionalOrder, error) {
	if limit <= 0 {
		limit = 200
	}
	params := map[string]string{
		"limit": strconv.Itoa(limit),
		"skip":  "0",
	}
	if symbol != "" {
		params["symbol"] = symbol
	}
	data, err := c.signedRequest("GET", pathPendingTpsl, params, nil)
	if err != nil {
		return nil, err
	}
	var orders []ConditionalOrder
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("parse conditional orders: %w", err)
	}
	return orders, nil
}

// GetOrderDetail fetches the detail record for one order id.
func (c *Client) GetOrderDetail(orderID string) (*OrderDetail, error) {
	data, err := c.signedRequest("GET", pathOrderDetail, map[string]string{"orderId": orderID}, nil)
	if err != nil {
		return nil, err
	}
	var detail OrderDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("parse order detail: %w", err)
	}
	return &detail, nil
}

// ==================== MARGIN / LEVERAGE ====================

// SetMarginMode switches the symbol between isolated and cross margin. The
// exchange rejects the call when a position is open with identical settings;
// callers treat failures as best-effort.
func (c *Client) SetMarginMode(symbol, marginCoin string, mode MarginMode) error {
	_, err := c.signedRequest("POST", pathChangeMarginMode, nil, map[string]any{
		"symbol":     symbol,
		"marginCoin": marginCoin,
		"marginMode": string(mode),
	})
	return err
}

// SetLeverage sets the leverage for a symbol.
func (c *Client) SetLeverage(symbol, marginCoin string, leverage int) error {
	_, err := c.signedRequest("POST", pathChangeLeverage, nil, map[string]any{
		"symbol":     symbol,
		"marginCoin": marginCoin,
		"leverage":   leverage,
	})
	return err
}

// ==================== TRADING ====================

// OpenMarket fires a market open order and returns its order id.
func (c *Client) OpenMarket(symbol, qty string, side PositionSide) (string, error) {
	data, err := c.signedRequest("POST", pathPlaceOrder, nil, map[string]any{
		"symbol":    symbol,
		"qty":       qty,
		"side":      string(orderSideFor(side)),
		"tradeSide": string(TradeSideOpen),
		"orderType": "MARKET",
	})
	if err != nil {
		return "", err
	}
	return extractOrderID(data), nil
}

// OpenMarketWithProvisionalSL opens at market with an order-scoped stop-loss
// attached. The exchange materializes the stop as a separate conditional
// order whose id is not part of this response; see CaptureProvisionalSLIDs.
func (c *Client) OpenMarketWithProvisionalSL(symbol, qty string, side PositionSide, slPrice string) (string, error) {
	data, err := c.signedRequest("POST", pathPlaceOrder, nil, map[string]any{
		"symbol":      symbol,
		"qty":         qty,
		"side":        string(orderSideFor(side)),
		"tradeSide":   string(TradeSideOpen),
		"orderType":   "MARKET",
		"slPrice":     slPrice,
		"slStopType":  string(StopTypeLastPrice),
		"slOrderType": "MARKET",
	})
	if err != nil {
		return "", err
	}
	return extractOrderID(data), nil
}

// CloseMarket reduces a position at market. Bitunix hedge-mode close keeps
// the side of the position being closed (BUY closes a LONG) and requires the
// positionId.
func (c *Client) CloseMarket(symbol, qty string, side PositionSide, positionID string) error {
	if positionID == "" {
		return fmt.Errorf("close %s: positionId is required for tradeSide=CLOSE", symbol)
	}
	_, err := c.signedRequest("POST", pathPlaceOrder, nil, map[string]any{
		"symbol":     symbol,
		"qty":        qty,
		"side":       string(orderSideFor(side)),
		"tradeSide":  string(TradeSideClose),
		"positionId": positionID,
		"orderType":  "MARKET",
		"reduceOnly": true,
	})
	return err
}

// ==================== POSITION STOP-LOSS ====================

// PlacePositionSL attaches a position-scoped stop-loss.
func (c *Client) PlacePositionSL(symbol, positionID, slPrice string) (string, error) {
	data, err := c.signedRequest("POST", pathPositionSLPlace, nil, map[string]any{
		"symbol":     symbol,
		"positionId": positionID,
		"slPrice":    slPrice,
		"slStopType": string(StopTypeLastPrice),
	})
	if err != nil {
		return "", err
	}
	return extractOrderID(data), nil
}

// ModifyPositionSL moves an existing position-scoped stop-loss in place.
func (c *Client) ModifyPositionSL(symbol, positionID, slPrice string) (string, error) {
	data, err := c.signedRequest("POST", pathPositionSLModify, nil, map[string]any{
		"symbol":     symbol,
		"positionId": positionID,
		"slPrice":    slPrice,
		"slStopType": string(StopTypeLastPrice),
	})
	if err != nil {
		return "", err
	}
	return extractOrderID(data), nil
}

// EnsurePositionSL places the position stop-loss, falling back to modify
// when place fails (a stop already exists for the position).
func (c *Client) EnsurePositionSL(symbol, positionID, slPrice string) (string, error) {
	id, err := c.PlacePositionSL(symbol, positionID, slPrice)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil {
		c.logger.Debug().Err(err).Str("symbol", symbol).Msg("place position SL failed, trying modify")
	}
	return c.ModifyPositionSL(symbol, positionID, slPrice)
}

// ==================== PARTIAL TAKE-PROFIT ====================

// PlaceTpPartial attaches a reduce-only partial take-profit to a position.
func (c *Client) PlaceTpPartial(symbol, positionID, tpPrice, tpQty string) (string, error) {
	data, err := c.signedRequest("POST", pathTpslPlace, nil, map[string]any{
		"symbol":      symbol,
		"positionId":  positionID,
		"tpPrice":     tpPrice,
		"tpStopType":  string(StopTypeLastPrice),
		"tpOrderType": "MARKET",
		"tpQty":       tpQty,
	})
	if err != nil {
		return "", err
	}
	return extractOrderID(data), nil
}

// CancelConditional cancels a TP/SL conditional order. Two id schemas exist
// in the wild ("orderId" vs "id"); both are tried before the failure
// surfaces.
func (c *Client) CancelConditional(symbol, id string) error {
	_, err := c.signedRequest("POST", pathTpslCancel, nil, map[string]any{
		"symbol":  symbol,
		"orderId": id,
	})
	if err == nil {
		return nil
	}
	_, err2 := c.signedRequest("POST", pathTpslCancel, nil, map[string]any{
		"symbol": symbol,
		"id":     id,
	})
	if err2 == nil {
		return nil
	}
	return fmt.Errorf("cancel conditional %s: %w", id, err2)
}

// ==================== PROVISIONAL SL RECONCILIATION ====================

// CaptureProvisionalSLIDs polls pending conditionals for the order-scoped
// stop-loss created by OpenMarketWithProvisionalSL: same symbol, created at
// or after sinceMs, slPrice equal to the submitted string, positive sl
// quantity and no tpPrice. Returns after the first non-empty match set or
// after tries attempts; an empty result is not an error — the exchange may
// have reconciled the provisional itself.
func (c *Client) CaptureProvisionalSLIDs(symbol, slPriceStr string, sinceMs int64, tries int, sleep time.Duration) ([]string, error) {
	if tries < 1 {
		tries = 1
	}
	var ids []string
	seen := make(map[string]bool)

	for attempt := 0; attempt < tries; attempt++ {
		pending, err := c.GetPendingConditionals(symbol, 200)
		if err != nil {
			c.logger.Debug().Err(err).Str("symbol", symbol).Msg("pending conditionals poll failed")
			pending = nil
		}

		for i := range pending {
			o := &pending[i]
			if !strings.EqualFold(o.Symbol, symbol) {
				continue
			}
			if ctime := o.CreatedAtMs(); ctime > 0 && ctime < sinceMs {
				continue
			}
			slp := strings.TrimSpace(o.SlPrice.String())
			if slp == "" || o.IsTakeProfit() || o.SlQty.Decimal().Sign() <= 0 {
				continue
			}
			if slPriceStr != "" && slp != slPriceStr {
				continue
			}
			if id := o.Identifier(); id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}

		if len(ids) > 0 {
			break
		}
		time.Sleep(sleep)
	}

	return ids, nil
}
