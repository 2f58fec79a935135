package bitunix

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gateway defines the exchange operations the trading core consumes.
// Implementations must be safe for concurrent use: the per-symbol workers
// and the position monitors share one instance.
type Gateway interface {
	// ==================== MARKET DATA ====================

	// GetSymbolInfo fetches precision metadata for a trading pair.
	GetSymbolInfo(symbol string) (*SymbolInfo, error)

	// GetLastPrice fetches the last traded or mark price; always > 0 on success.
	GetLastPrice(symbol string) (decimal.Decimal, error)

	// ==================== ACCOUNT / POSITIONS ====================

	// GetAccountAvailable returns the available balance for a margin coin.
	GetAccountAvailable(marginCoin string) (decimal.Decimal, error)

	// GetPendingPositions lists positions with non-zero quantity.
	GetPendingPositions(symbol string) ([]Position, error)

	// GetPendingConditionals lists live SL/TP conditional orders.
	GetPendingConditionals(symbol string, limit int) ([]ConditionalOrder, error)

	// GetOrderDetail fetches one order's status and fill information.
	GetOrderDetail(orderID string) (*OrderDetail, error)

	// ==================== MARGIN / LEVERAGE ====================

	// SetMarginMode switches isolated/cross margin; best-effort for callers.
	SetMarginMode(symbol, marginCoin string, mode MarginMode) error

	// SetLeverage sets symbol leverage; best-effort for callers.
	SetLeverage(symbol, marginCoin string, leverage int) error

	// ==================== TRADING ====================

	// OpenMarket fires a market open order, returning the order id.
	OpenMarket(symbol, qty string, side PositionSide) (string, error)

	// OpenMarketWithProvisionalSL opens at market with an order-scoped SL attached.
	OpenMarketWithProvisionalSL(symbol, qty string, side PositionSide, slPrice string) (string, error)

	// CloseMarket reduces a position at market; positionID is mandatory.
	CloseMarket(symbol, qty string, side PositionSide, positionID string) error

	// PlacePositionSL attaches a position-scoped stop-loss.
	PlacePositionSL(symbol, positionID, slPrice string) (string, error)

	// ModifyPositionSL moves the position-scoped stop-loss in place.
	ModifyPositionSL(symbol, positionID, slPrice string) (string, error)

	// EnsurePositionSL tries place, then modify; returns the live SL order id.
	EnsurePositionSL(symbol, positionID, slPrice string) (string, error)

	// PlaceTpPartial attaches a reduce-only partial take-profit.
	PlaceTpPartial(symbol, positionID, tpPrice, tpQty string) (string, error)

	// CancelConditional cancels a conditional order, tolerating both id schemas.
	CancelConditional(symbol, id string) error

	// CaptureProvisionalSLIDs diffs pending conditionals for the provisional
	// stop created at open time.
	CaptureProvisionalSLIDs(symbol, slPriceStr string, sinceMs int64, tries int, sleep time.Duration) ([]string, error)
}

var _ Gateway = (*Client)(nil)
var _ Gateway = (*CachedClient)(nil)
var _ Gateway = (*MockGateway)(nil)
