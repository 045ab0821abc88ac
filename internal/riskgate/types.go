package riskgate

import (
	"papertrader/internal/position"
)

// OrderRequest is consumed once by the gate; the gate may rewrite quantity,
// stop loss and take profit before the order reaches portfolio mutation.
type OrderRequest struct {
	Symbol     string           `json:"symbol"`
	Side       string           `json:"side"` // buy/long or sell/short
	Quantity   float64          `json:"quantity"`
	Price      float64          `json:"price"`
	OrderType  string           `json:"order_type,omitempty"`
	StopLoss   float64          `json:"stop_loss,omitempty"`
	TakeProfit float64          `json:"take_profit,omitempty"`
	Overrides  *PolicyOverrides `json:"risk_overrides,omitempty"`
}

type ViolationType string

const (
	ViolationMaxDrawdown         ViolationType = "max_drawdown"
	ViolationDailyLossLimit      ViolationType = "daily_loss_limit"
	ViolationMaxPositions        ViolationType = "max_positions"
	ViolationRiskPerTrade        ViolationType = "risk_per_trade"
	ViolationPositionSizePercent ViolationType = "position_size_percent"
	ViolationConcurrentExecution ViolationType = "concurrent_execution"
)

type Severity string

const (
	SeverityHard Severity = "hard" // 拒单，不得改仓
	SeveritySoft Severity = "soft" // 调整后放行
)

type Violation struct {
	Type     ViolationType `json:"type"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
}

// Result 表达闸门的全部结论。Allowed=false 时组合不得变更；
// Allowed=true 时必须使用 AdjustedQuantity / StopLossPrice / TakeProfitPrice
// 而不是原始请求字段。
type Result struct {
	Allowed          bool        `json:"allowed"`
	Reasons          []string    `json:"reasons"`
	Violations       []Violation `json:"violations"`
	AdjustedQuantity float64     `json:"adjusted_quantity"`
	StopLossPrice    float64     `json:"stop_loss_price"`
	TakeProfitPrice  float64     `json:"take_profit_price"`
}

// PortfolioSnapshot 是闸门看到的只读组合视图。
type PortfolioSnapshot struct {
	Cash            float64
	TotalValue      float64
	PeakBalance     float64
	DayStartBalance float64
	Positions       map[string]position.Position
}

// MarketData carries already-resolved indicator data; the gate never fetches.
type MarketData struct {
	ATR float64
}

func (s PortfolioSnapshot) openPositionCount() int {
	return len(s.Positions)
}

func (s PortfolioSnapshot) hasPosition(symbol string) bool {
	_, ok := s.Positions[symbol]
	return ok
}
