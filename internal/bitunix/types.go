package bitunix

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"bitunix-signal-bot/internal/numeric"
)

// ==================== ENUMS ====================

// MarginMode is the per-symbol margin configuration on the account.
type MarginMode string

const (
	MarginModeIsolation MarginMode = "ISOLATION"
	MarginModeCross     MarginMode = "CROSS"
)

// PositionSide is the logical direction of a position.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Opposite returns the flipped side.
func (s PositionSide) Opposite() PositionSide {
	if s == PositionSideLong {
		return PositionSideShort
	}
	return PositionSideLong
}

// OrderSide is the wire-level side field. Opening a LONG and closing a LONG
// both send BUY; the tradeSide field disambiguates.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// orderSideFor maps a logical position side to the wire side used for both
// OPEN and CLOSE of that position.
func orderSideFor(side PositionSide) OrderSide {
	if side == PositionSideLong {
		return OrderSideBuy
	}
	return OrderSideSell
}

// TradeSide distinguishes opening from reducing trades.
type TradeSide string

const (
	TradeSideOpen  TradeSide = "OPEN"
	TradeSideClose TradeSide = "CLOSE"
)

// OrderStatus values reported by the order-detail endpoint.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "NEW"
	OrderStatusPartFilled OrderStatus = "PART_FILLED"
	OrderStatusFilled     OrderStatus = "FILLED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

// StopType selects the price feed that triggers conditional orders.
type StopType string

const (
	StopTypeLastPrice StopType = "LAST_PRICE"
	StopTypeMarkPrice StopType = "MARK_PRICE"
)

// ==================== WIRE HELPERS ====================

// flexString decodes JSON fields the exchange serves inconsistently as
// either a string or a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

func (f flexString) String() string { return string(f) }

func (f flexString) Decimal() decimal.Decimal { return numeric.D(string(f)) }

func (f flexString) Int64() int64 {
	n, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ==================== MARKET DATA ====================

// SymbolInfo carries the precision metadata the executor needs to size and
// price orders for one trading pair.
type SymbolInfo struct {
	Symbol         string     `json:"symbol"`
	BasePrecision  flexString `json:"basePrecision"`
	QuotePrecision flexString `json:"quotePrecision"`
	MinTradeVolume flexString `json:"minTradeVolume"`
}

// BasePrec is the number of fractional digits allowed on quantities.
func (s *SymbolInfo) BasePrec() int { return int(s.BasePrecision.Int64()) }

// QuotePrec is the number of fractional digits allowed on prices.
func (s *SymbolInfo) QuotePrec() int { return int(s.QuotePrecision.Int64()) }

// MinVolume returns the minimum order quantity as a decimal.
func (s *SymbolInfo) MinVolume() decimal.Decimal { return s.MinTradeVolume.Decimal() }

// Ticker is one row of the public tickers endpoint.
type Ticker struct {
	Symbol    string     `json:"symbol"`
	LastPrice flexString `json:"lastPrice"`
	Last      flexString `json:"last"`
	MarkPrice flexString `json:"markPrice"`
}

// Price returns the first usable price field.
func (t *Ticker) Price() decimal.Decimal {
	for _, f := range []flexString{t.LastPrice, t.Last, t.MarkPrice} {
		if v := f.Decimal(); v.Sign() > 0 {
			return v
		}
	}
	return decimal.Zero
}

// ==================== ACCOUNT / POSITIONS ====================

// Account is the futures account snapshot for one margin coin.
type Account struct {
	MarginCoin string     `json:"marginCoin"`
	Available  flexString `json:"available"`
}

// Position is one row of the pending-positions endpoint.
type Position struct {
	PositionID    flexString `json:"positionId"`
	Symbol        string     `json:"symbol"`
	Qty           flexString `json:"qty"`
	Side          flexString `json:"side"`
	AvgOpenPrice  flexString `json:"avgOpenPrice"`
	EntryPrice    flexString `json:"entryPrice"`
	SlPrice       flexString `json:"slPrice"`
	StopLossPrice flexString `json:"stopLossPrice"`
	Sl            flexString `json:"sl"`
}

// Quantity returns the absolute remaining quantity.
func (p *Position) Quantity() decimal.Decimal { return p.Qty.Decimal().Abs() }

// Entry returns the average open price, trying the synonym keys in order.
func (p *Position) Entry() decimal.Decimal {
	if v := p.AvgOpenPrice.Decimal(); v.Sign() > 0 {
		return v
	}
	return p.EntryPrice.Decimal()
}

// StopLoss returns the exchange-reported stop price, if any.
func (p *Position) StopLoss() decimal.Decimal {
	for _, f := range []flexString{p.SlPrice, p.StopLossPrice, p.Sl} {
		if v := f.Decimal(); v.Sign() > 0 {
			return v
		}
	}
	return decimal.Zero
}

// NormalizedSide maps the wire side (BUY/SELL or LONG/SHORT) to a
// PositionSide, empty when unrecognized.
func (p *Position) NormalizedSide() PositionSide {
	switch p.Side.String() {
	case "BUY", "LONG":
		return PositionSideLong
	case "SELL", "SHORT":
		return PositionSideShort
	}
	return ""
}

// ==================== ORDERS ====================

// OrderDetail is the order-detail endpoint payload for a market order.
type OrderDetail struct {
	OrderID       flexString `json:"orderId"`
	Status        flexString `json:"status"`
	TradeQty      flexString `json:"tradeQty"`
	AvgPrice      flexString `json:"avgPrice"`
	AvgTradePrice flexString `json:"avgTradePrice"`
	AvgDealPrice  flexString `json:"avgDealPrice"`
	AvgFillPrice  flexString `json:"avgFillPrice"`
	DealMoney     flexString `json:"dealMoney"`
	TradeAmount   flexString `json:"tradeAmount"`
	Amount        flexString `json:"amount"`
}

// FilledQty returns the executed quantity.
func (o *OrderDetail) FilledQty() decimal.Decimal { return o.TradeQty.Decimal() }

// FillPrice returns the average execution price: first non-zero of the
// synonym keys, then dealMoney/tradeQty, then zero.
func (o *OrderDetail) FillPrice() decimal.Decimal {
	for _, f := range []flexString{o.AvgPrice, o.AvgTradePrice, o.AvgDealPrice, o.AvgFillPrice} {
		if v := f.Decimal(); v.Sign() > 0 {
			return v
		}
	}
	qty := o.TradeQty.Decimal()
	for _, f := range []flexString{o.DealMoney, o.TradeAmount, o.Amount} {
		if money := f.Decimal(); money.Sign() > 0 && qty.Sign() > 0 {
			return money.Div(qty)
		}
	}
	return decimal.Zero
}

// ConditionalOrder is one row of the pending TP/SL orders endpoint. A pure
// stop-loss carries slPrice and no tpPrice; a partial take-profit the
// reverse.
type ConditionalOrder struct {
	ID         flexString `json:"id"`
	OrderID    flexString `json:"orderId"`
	Symbol     string     `json:"symbol"`
	SlPrice    flexString `json:"slPrice"`
	SlQty      flexString `json:"slQty"`
	TpPrice    flexString `json:"tpPrice"`
	TpQty      flexString `json:"tpQty"`
	CreateTime flexString `json:"createTime"`
	Ctime      flexString `json:"ctime"`
	Time       flexString `json:"time"`
	Mtime      flexString `json:"mtime"`
}

// Identifier returns the conditional-order id, trying both wire schemas.
func (c *ConditionalOrder) Identifier() string {
	if c.ID != "" {
		return c.ID.String()
	}
	return c.OrderID.String()
}

// CreatedAtMs returns the creation timestamp in milliseconds, zero when the
// exchange omitted every variant.
func (c *ConditionalOrder) CreatedAtMs() int64 {
	for _, f := range []flexString{c.CreateTime, c.Ctime, c.Time, c.Mtime} {
		if ms := f.Int64(); ms > 0 {
			return ms
		}
	}
	return 0
}

// IsTakeProfit reports whether the conditional carries a take-profit leg.
func (c *ConditionalOrder) IsTakeProfit() bool { return c.TpPrice.String() != "" }

// placeOrderResponse covers the shapes the place endpoints answer with: an
// object, or a single-element list of objects.
type placeOrderResponse struct {
	OrderID flexString `json:"orderId"`
	ID      flexString `json:"id"`
}

// extractOrderID pulls the order id out of a raw place-order response.
func extractOrderID(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var one placeOrderResponse
	if err := json.Unmarshal(data, &one); err == nil {
		if one.OrderID != "" {
			return one.OrderID.String()
		}
		if one.ID != "" {
			return one.ID.String()
		}
	}
	var many []placeOrderResponse
	if err := json.Unmarshal(data, &many); err == nil && len(many) > 0 {
		if many[0].OrderID != "" {
			return many[0].OrderID.String()
		}
		return many[0].ID.String()
	}
	return ""
}
