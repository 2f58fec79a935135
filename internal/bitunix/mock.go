package bitunix

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MockGateway is a scriptable Gateway for tests and dry-run wiring. Each
// operation delegates to the corresponding Func field when set and falls
// back to a benign default otherwise. Every invocation is appended to Calls
// so tests can assert ordering.
type MockGateway struct {
	mu    sync.Mutex
	Calls []string

	GetSymbolInfoFunc               func(symbol string) (*SymbolInfo, error)
	GetLastPriceFunc                func(symbol string) (decimal.Decimal, error)
	GetAccountAvailableFunc         func(marginCoin string) (decimal.Decimal, error)
	GetPendingPositionsFunc         func(symbol string) ([]Position, error)
	GetPendingConditionalsFunc      func(symbol string, limit int) ([]ConditionalOrder, error)
	GetOrderDetailFunc              func(orderID string) (*OrderDetail, error)
	SetMarginModeFunc               func(symbol, marginCoin string, mode MarginMode) error
	SetLeverageFunc                 func(symbol, marginCoin string, leverage int) error
	OpenMarketFunc                  func(symbol, qty string, side PositionSide) (string, error)
	OpenMarketWithProvisionalSLFunc func(symbol, qty string, side PositionSide, slPrice string) (string, error)
	CloseMarketFunc                 func(symbol, qty string, side PositionSide, positionID string) error
	PlacePositionSLFunc             func(symbol, positionID, slPrice string) (string, error)
	ModifyPositionSLFunc            func(symbol, positionID, slPrice string) (string, error)
	EnsurePositionSLFunc            func(symbol, positionID, slPrice string) (string, error)
	PlaceTpPartialFunc              func(symbol, positionID, tpPrice, tpQty string) (string, error)
	CancelConditionalFunc           func(symbol, id string) error
	CaptureProvisionalSLIDsFunc     func(symbol, slPriceStr string, sinceMs int64, tries int, sleep time.Duration) ([]string, error)
}

func (m *MockGateway) record(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, fmt.Sprintf(format, args...))
}

// CallLog returns a copy of the recorded call sequence.
func (m *MockGateway) CallLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

func (m *MockGateway) GetSymbolInfo(symbol string) (*SymbolInfo, error) {
	m.record("GetSymbolInfo(%s)", symbol)
	if m.GetSymbolInfoFunc != nil {
		return m.GetSymbolInfoFunc(symbol)
	}
	return &SymbolInfo{Symbol: symbol, BasePrecision: "3", QuotePrecision: "2", MinTradeVolume: "0.001"}, nil
}

func (m *MockGateway) GetLastPrice(symbol string) (decimal.Decimal, error) {
	m.record("GetLastPrice(%s)", symbol)
	if m.GetLastPriceFunc != nil {
		return m.GetLastPriceFunc(symbol)
	}
	return decimal.NewFromInt(100), nil
}

func (m *MockGateway) GetAccountAvailable(marginCoin string) (decimal.Decimal, error) {
	m.record("GetAccountAvailable(%s)", marginCoin)
	if m.GetAccountAvailableFunc != nil {
		return m.GetAccountAvailableFunc(marginCoin)
	}
	return decimal.NewFromInt(1000), nil
}

func (m *MockGateway) GetPendingPositions(symbol string) ([]Position, error) {
	m.record("GetPendingPositions(%s)", symbol)
	if m.GetPendingPositionsFunc != nil {
		return m.GetPendingPositionsFunc(symbol)
	}
	return nil, nil
}

func (m *MockGateway) GetPendingConditionals(symbol string, limit int) ([]ConditionalOrder, error) {
	m.record("GetPendingConditionals(%s)", symbol)
	if m.GetPendingConditionalsFunc != nil {
		return m.GetPendingConditionalsFunc(symbol, limit)
	}
	return nil, nil
}

func (m *MockGateway) GetOrderDetail(orderID string) (*OrderDetail, error) {
	m.record("GetOrderDetail(%s)", orderID)
	if m.GetOrderDetailFunc != nil {
		return m.GetOrderDetailFunc(orderID)
	}
	return &OrderDetail{OrderID: flexString(orderID), Status: "FILLED", TradeQty: "1"}, nil
}

func (m *MockGateway) SetMarginMode(symbol, marginCoin string, mode MarginMode) error {
	m.record("SetMarginMode(%s,%s)", symbol, mode)
	if m.SetMarginModeFunc != nil {
		return m.SetMarginModeFunc(symbol, marginCoin, mode)
	}
	return nil
}

func (m *MockGateway) SetLeverage(symbol, marginCoin string, leverage int) error {
	m.record("SetLeverage(%s,%d)", symbol, leverage)
	if m.SetLeverageFunc != nil {
		return m.SetLeverageFunc(symbol, marginCoin, leverage)
	}
	return nil
}

func (m *MockGateway) OpenMarket(symbol, qty string, side PositionSide) (string, error) {
	m.record("OpenMarket(%s,%s,%s)", symbol, qty, side)
	if m.OpenMarketFunc != nil {
		return m.OpenMarketFunc(symbol, qty, side)
	}
	return "MOCK-ORDER", nil
}

func (m *MockGateway) OpenMarketWithProvisionalSL(symbol, qty string, side PositionSide, slPrice string) (string, error) {
	m.record("OpenMarketWithProvisionalSL(%s,%s,%s,%s)", symbol, qty, side, slPrice)
	if m.OpenMarketWithProvisionalSLFunc != nil {
		return m.OpenMarketWithProvisionalSLFunc(symbol, qty, side, slPrice)
	}
	return "MOCK-ORDER", nil
}

func (m *MockGateway) CloseMarket(symbol, qty string, side PositionSide, positionID string) error {
	m.record("CloseMarket(%s,%s,%s,%s)", symbol, qty, side, positionID)
	if m.CloseMarketFunc != nil {
		return m.CloseMarketFunc(symbol, qty, side, positionID)
	}
	return nil
}

func (m *MockGateway) PlacePositionSL(symbol, positionID, slPrice string) (string, error) {
	m.record("PlacePositionSL(%s,%s,%s)", symbol, positionID, slPrice)
	if m.PlacePositionSLFunc != nil {
		return m.PlacePositionSLFunc(symbol, positionID, slPrice)
	}
	return "MOCK-SL", nil
}

func (m *MockGateway) ModifyPositionSL(symbol, positionID, slPrice string) (string, error) {
	m.record("ModifyPositionSL(%s,%s,%s)", symbol, positionID, slPrice)
	if m.ModifyPositionSLFunc != nil {
		return m.ModifyPositionSLFunc(symbol, positionID, slPrice)
	}
	return "MOCK-SL", nil
}

func (m *MockGateway) EnsurePositionSL(symbol, positionID, slPrice string) (string, error) {
	m.record("EnsurePositionSL(%s,%s,%s)", symbol, positionID, slPrice)
	if m.EnsurePositionSLFunc != nil {
		return m.EnsurePositionSLFunc(symbol, positionID, slPrice)
	}
	id, err := m.PlacePositionSL(symbol, positionID, slPrice)
	if err == nil && id != "" {
		return id, nil
	}
	return m.ModifyPositionSL(symbol, positionID, slPrice)
}

func (m *MockGateway) PlaceTpPartial(symbol, positionID, tpPrice, tpQty string) (string, error) {
	m.record("PlaceTpPartial(%s,%s,%s,%s)", symbol, positionID, tpPrice, tpQty)
	if m.PlaceTpPartialFunc != nil {
		return m.PlaceTpPartialFunc(symbol, positionID, tpPrice, tpQty)
	}
	return "MOCK-TP", nil
}

func (m *MockGateway) CancelConditional(symbol, id string) error {
	m.record("CancelConditional(%s,%s)", symbol, id)
	if m.CancelConditionalFunc != nil {
		return m.CancelConditionalFunc(symbol, id)
	}
	return nil
}

func (m *MockGateway) CaptureProvisionalSLIDs(symbol, slPriceStr string, sinceMs int64, tries int, sleep time.Duration) ([]string, error) {
	m.record("CaptureProvisionalSLIDs(%s,%s)", symbol, slPriceStr)
	if m.CaptureProvisionalSLIDsFunc != nil {
		return m.CaptureProvisionalSLIDsFunc(symbol, slPriceStr, sinceMs, tries, sleep)
	}
	return nil, nil
}
