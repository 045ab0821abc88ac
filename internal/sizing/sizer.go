// Package sizing computes risk-bounded position sizes. The adjustment chain is
// order sensitive: volatility, regime, trend, correlation, confidence, then the
// policy caps. Sizes are notional values in account currency; Shares is derived
// from the entry price for convenience.
package sizing

import (
	"math"

	"github.com/shopspring/decimal"

	"papertrader/internal/market"
	"papertrader/internal/position"
)

type Regime string

const (
	RegimeBull     Regime = "bull"
	RegimeBear     Regime = "bear"
	RegimeSideways Regime = "sideways"
)

// Policy 限定仓位边界，字段含义与配置键一一对应。
type Policy struct {
	MaxPositionPercent  float64 // 单笔最大占账户比例（0~100）
	MinPositionPercent  float64 // 低于该比例的仓位直接归零（不值得交易）
	MaxLossPerTrade     float64 // 单笔最大亏损金额
	LowConfidenceFactor float64 // confidence<60 时的额外缩减系数
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPositionPercent:  10,
		MinPositionPercent:  0.5,
		MaxLossPerTrade:     20000,
		LowConfidenceFactor: 0.8,
	}
}

type Input struct {
	EntryPrice     float64       `json:"entry_price"`
	StopLossPrice  float64       `json:"stop_loss_price"`
	AccountBalance float64       `json:"account_balance"`
	RiskPercentage float64       `json:"risk_percentage"` // 0~100
	Side           position.Side `json:"side"`
	Volatility     float64       `json:"volatility"`  // >=0，无量纲
	MarketRegime   Regime        `json:"regime"`
	TrendStrength  float64       `json:"trend"`       // 有符号，通常 -1..1
	Correlation    float64       `json:"correlation"` // -1..1
	Confidence     float64       `json:"confidence"`  // 0~100
}

type Result struct {
	PositionValue float64 `json:"position_value"`
	Shares        float64 `json:"shares"`
	RiskAmount    float64 `json:"risk_amount"`
	RiskPercent   float64 `json:"risk_percent"`
}

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	if policy.LowConfidenceFactor <= 0 {
		policy.LowConfidenceFactor = DefaultPolicy().LowConfidenceFactor
	}
	return &Calculator{policy: policy}
}

// Calculate 按固定顺序应用各调整项。stop 距离为 0 时无法定仓，返回零值。
func (c *Calculator) Calculate(in Input) Result {
	if !market.ValidPrice(in.EntryPrice) || in.AccountBalance <= 0 || in.RiskPercentage <= 0 {
		return Result{}
	}
	priceRisk := math.Abs(in.EntryPrice-in.StopLossPrice) / in.EntryPrice
	if priceRisk == 0 || !market.ValidPrice(in.StopLossPrice) {
		return Result{}
	}

	riskAmount := in.AccountBalance * in.RiskPercentage / 100
	size := riskAmount / priceRisk

	// 波动率与市场状态
	size *= 1 / math.Max(1, 1+in.Volatility*1.5)
	switch in.MarketRegime {
	case RegimeBull:
		size *= 1.15
	case RegimeBear:
		size *= 0.7
	case RegimeSideways:
		size *= 0.9
	}

	// 趋势一致性
	trendFactor := 1 + math.Min(math.Abs(in.TrendStrength), 0.5)
	if trendAligned(in.Side, in.TrendStrength) {
		size *= trendFactor
	} else {
		size /= trendFactor
	}

	// 相关性：0.5 以下无影响，趋近 1 时线性压缩到 0
	size *= 1 - math.Max(0, in.Correlation-0.5)*2

	// 置信度：60 以下二次衰减，60~100 从 0.5x 线性放大到 1.2x
	if in.Confidence < 60 {
		ratio := math.Max(in.Confidence, 0) / 60
		size *= ratio * ratio * c.policy.LowConfidenceFactor
	} else {
		size *= 0.5 + (math.Min(in.Confidence, 100)-60)/40*0.7
	}

	// 策略上限
	if c.policy.MaxPositionPercent > 0 {
		if limit := in.AccountBalance * c.policy.MaxPositionPercent / 100; size > limit {
			size = limit
		}
	}
	if c.policy.MaxLossPerTrade > 0 {
		if limit := c.policy.MaxLossPerTrade / priceRisk; size > limit {
			size = limit
		}
	}

	// 太小的仓位直接放弃
	if size < in.AccountBalance*c.policy.MinPositionPercent/100 {
		return Result{}
	}

	size = roundValue(size)
	risk := roundValue(size * priceRisk)
	return Result{
		PositionValue: size,
		Shares:        roundValue(size / in.EntryPrice),
		RiskAmount:    risk,
		RiskPercent:   risk / in.AccountBalance * 100,
	}
}

func trendAligned(side position.Side, trend float64) bool {
	if trend == 0 {
		return true
	}
	if side == position.SideShort {
		return trend < 0
	}
	return trend > 0
}

func roundValue(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}
