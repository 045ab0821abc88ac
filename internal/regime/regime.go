// Package regime classifies a candle window as trending or ranging and grades
// its volatility. Detection is a pure function of the window; nothing is kept
// between calls.
package regime

import (
	"papertrader/internal/indicator"
	"papertrader/internal/market"
)

type Regime string

const (
	Trending Regime = "trending"
	Ranging  Regime = "ranging"
	Unknown  Regime = "unknown"
)

type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

type Volatility string

const (
	VolatilityHigh   Volatility = "high"
	VolatilityMedium Volatility = "medium"
	VolatilityLow    Volatility = "low"
)

type Confidence string

const (
	ConfidenceInitial   Confidence = "initial"
	ConfidenceConfirmed Confidence = "confirmed"
)

type Result struct {
	Regime       Regime     `json:"regime"`
	Direction    Direction  `json:"direction"`
	Volatility   Volatility `json:"volatility"`
	ADX          float64    `json:"adx"`
	ATR          float64    `json:"atr"`
	Confidence   Confidence `json:"confidence"`
	DaysInRegime int        `json:"days_in_regime"`
}

const (
	adxPeriod        = 14
	atrPeriod        = 14
	trendADX         = 25.0
	highVolPct       = 0.03
	mediumVolPct     = 0.015
	confirmAfterDays = 3
	// MinWindow 是可靠分类所需的最小K线数（2*ADX 周期加一点余量）。
	MinWindow = 2*adxPeriod + 4
)

// Detect classifies the supplied window. Too-short or unusable windows come
// back as Unknown instead of an error.
func Detect(candles []market.Candle) Result {
	out := Result{
		Regime:     Unknown,
		Direction:  DirectionNeutral,
		Volatility: VolatilityLow,
		Confidence: ConfidenceInitial,
	}
	if len(candles) < MinWindow {
		return out
	}
	highs := market.Highs(candles)
	lows := market.Lows(candles)
	closes := market.Closes(candles)

	adxSeries := indicator.ADX(highs, lows, closes, adxPeriod)
	atrSeries := indicator.ATR(highs, lows, closes, atrPeriod)
	adx := indicator.Last(adxSeries)
	atr := indicator.Last(atrSeries)
	lastClose, ok := market.LastClose(candles)
	if !ok || !indicator.Finite(adx) || !indicator.Finite(atr) {
		return out
	}
	out.ADX = adx
	out.ATR = atr

	atrPct := atr / lastClose
	switch {
	case atrPct >= highVolPct:
		out.Volatility = VolatilityHigh
	case atrPct >= mediumVolPct:
		out.Volatility = VolatilityMedium
	default:
		out.Volatility = VolatilityLow
	}

	if adx >= trendADX {
		out.Regime = Trending
		out.Direction = trendDirection(highs, lows, closes)
	} else {
		out.Regime = Ranging
	}

	out.DaysInRegime = daysInRegime(adxSeries, out.Regime)
	if out.DaysInRegime >= confirmAfterDays {
		out.Confidence = ConfidenceConfirmed
	}
	return out
}

// trendDirection 用 +DI/−DI 判方向，二者不可用时退回 SMA 斜率。
func trendDirection(highs, lows, closes []float64) Direction {
	plus := indicator.Last(indicator.PlusDI(highs, lows, closes, adxPeriod))
	minus := indicator.Last(indicator.MinusDI(highs, lows, closes, adxPeriod))
	if indicator.Finite(plus) && indicator.Finite(minus) {
		switch {
		case plus > minus:
			return DirectionUp
		case minus > plus:
			return DirectionDown
		}
		return DirectionNeutral
	}
	sma := indicator.SMA(closes, 10)
	n := len(sma)
	if n >= 2 && indicator.Finite(sma[n-1]) && indicator.Finite(sma[n-2]) {
		switch {
		case sma[n-1] > sma[n-2]:
			return DirectionUp
		case sma[n-1] < sma[n-2]:
			return DirectionDown
		}
	}
	return DirectionNeutral
}

// daysInRegime 从窗口末尾向前数 ADX 连续停留在同一侧的K线数。
func daysInRegime(adxSeries []float64, current Regime) int {
	days := 0
	for i := len(adxSeries) - 1; i >= 0; i-- {
		v := adxSeries[i]
		if !indicator.Finite(v) {
			break
		}
		trending := v >= trendADX
		if (current == Trending) != trending {
			break
		}
		days++
	}
	return days
}
