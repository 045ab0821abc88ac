package market

import "math"

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// ValidPrice 判断价格是否可用：必须是有限正数。
// 非法值（0、负数、NaN、Inf）一律视为缺失观测，不做静默修正。
func ValidPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// Valid reports whether all four OHLC legs of the candle are usable prices.
func (c Candle) Valid() bool {
	return ValidPrice(c.Open) && ValidPrice(c.High) && ValidPrice(c.Low) && ValidPrice(c.Close)
}

func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// LastClose 返回最后一根可用收盘价，没有则返回 0,false。
func LastClose(candles []Candle) (float64, bool) {
	for i := len(candles) - 1; i >= 0; i-- {
		if ValidPrice(candles[i].Close) {
			return candles[i].Close, true
		}
	}
	return 0, false
}

// PeriodExtremes 返回窗口内的最高 High 与最低 Low（忽略非法值）。
func PeriodExtremes(candles []Candle) (high, low float64, ok bool) {
	low = math.MaxFloat64
	for _, c := range candles {
		if ValidPrice(c.High) && c.High > high {
			high = c.High
		}
		if ValidPrice(c.Low) && c.Low < low {
			low = c.Low
		}
	}
	if high <= 0 || low == math.MaxFloat64 {
		return 0, 0, false
	}
	return high, low, true
}
