package handlers

import (
	"papertrader/internal/market"
	"papertrader/internal/position"
)

func priorityOrDefault(p, def int) int {
	if p > 0 {
		return p
	}
	return def
}

// observe 推进仓位极值：优先使用观测区间的 High/Low，缺省退回现价。
func observe(pos position.Position, ctx evalPrices) position.Position {
	high := ctx.High
	if !market.ValidPrice(high) {
		high = ctx.Price
	}
	low := ctx.Low
	if !market.ValidPrice(low) {
		low = ctx.Price
	}
	return pos.RecordObservation(high, low)
}

type evalPrices struct {
	Price float64
	High  float64
	Low   float64
}

// tightenedMultiplier 随浮盈收紧追踪倍数：
// 浮盈 <5% 用全额倍数，5%~10% 乘 0.85，>10% 乘 0.7。
func tightenedMultiplier(base, gainPct float64) float64 {
	switch {
	case gainPct > 0.10:
		return base * 0.7
	case gainPct >= 0.05:
		return base * 0.85
	default:
		return base
	}
}
