// Package position models an open paper-trading position. Extrema updates and
// averaging-in are pure transitions returning a new value; callers thread the
// updated position forward instead of mutating shared state.
package position

import (
	"strings"
	"time"

	"papertrader/internal/market"
)

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide normalizes an externally supplied side string.
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return SideLong, true
	case "short", "sell":
		return SideShort, true
	default:
		return "", false
	}
}

// Position 表示一笔未平仓头寸。
// HighestSeen / LowestSeen 是自开仓以来的单调极值：前者只升，后者只降，
// 初始值均为 EntryPrice。
type Position struct {
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	EntryPrice  float64   `json:"entry_price"`
	Quantity    float64   `json:"quantity"`
	EntryDate   time.Time `json:"entry_date"`
	HighestSeen float64   `json:"highest_seen"`
	LowestSeen  float64   `json:"lowest_seen"`
	StopLoss    float64   `json:"stop_loss,omitempty"`
	TakeProfit  float64   `json:"take_profit,omitempty"`
}

// New opens a position with extrema initialized at the entry price.
func New(symbol string, side Side, entryPrice, quantity float64, entryDate time.Time) Position {
	return Position{
		Symbol:      strings.ToUpper(strings.TrimSpace(symbol)),
		Side:        side,
		EntryPrice:  entryPrice,
		Quantity:    quantity,
		EntryDate:   entryDate,
		HighestSeen: entryPrice,
		LowestSeen:  entryPrice,
	}
}

// Valid reports whether the position carries enough data to be evaluated.
func (p Position) Valid() bool {
	if p.Symbol == "" || p.EntryDate.IsZero() {
		return false
	}
	if p.Side != SideLong && p.Side != SideShort {
		return false
	}
	return market.ValidPrice(p.EntryPrice) && p.Quantity > 0
}

// RecordObservation 根据一次价格观测推进极值，返回新的 Position。
// 非法观测被忽略；极值永不回退。
func (p Position) RecordObservation(high, low float64) Position {
	if market.ValidPrice(high) && high > p.HighestSeen {
		p.HighestSeen = high
	}
	if market.ValidPrice(low) && (p.LowestSeen <= 0 || low < p.LowestSeen) {
		p.LowestSeen = low
	}
	return p
}

// AverageIn 加仓并按数量加权重算入场价，极值保持不变。
func (p Position) AverageIn(quantity, price float64) Position {
	if quantity <= 0 || !market.ValidPrice(price) {
		return p
	}
	total := p.Quantity + quantity
	p.EntryPrice = (p.EntryPrice*p.Quantity + price*quantity) / total
	p.Quantity = total
	return p
}

// DaysHeld returns the whole days elapsed since entry.
func (p Position) DaysHeld(now time.Time) int {
	if p.EntryDate.IsZero() || now.Before(p.EntryDate) {
		return 0
	}
	return int(now.Sub(p.EntryDate).Hours() / 24)
}

// UnrealizedGainPct 返回相对入场价的未实现涨跌幅（做空取反）。
func (p Position) UnrealizedGainPct(price float64) float64 {
	if !market.ValidPrice(price) || !market.ValidPrice(p.EntryPrice) {
		return 0
	}
	pct := (price - p.EntryPrice) / p.EntryPrice
	if p.Side == SideShort {
		pct = -pct
	}
	return pct
}
