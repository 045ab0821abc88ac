// Package indicator wraps go-talib behind a fixed series contract: outputs are
// the same length as inputs, the warm-up prefix is NaN, and any invalid input
// price (NaN, Inf, <=0) poisons every window that contains it instead of being
// coerced to zero.
package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"papertrader/internal/market"
)

// invalidMask marks the indexes whose price cannot be used.
func invalidMask(prices []float64) []bool {
	mask := make([]bool, len(prices))
	for i, p := range prices {
		mask[i] = !market.ValidPrice(p)
	}
	return mask
}

// sanitized returns a copy where invalid points are replaced by the previous
// valid value so talib's recursions stay finite; the mask is applied afterwards
// to restore NaN at every poisoned window.
func sanitized(prices []float64, mask []bool) []float64 {
	out := make([]float64, len(prices))
	last := math.NaN()
	for i, p := range prices {
		if mask[i] {
			if math.IsNaN(last) {
				out[i] = 0
			} else {
				out[i] = last
			}
			continue
		}
		out[i] = p
		last = p
	}
	return out
}

// applyContract 把 warm-up 前缀与被污染的窗口统一置为 NaN。
func applyContract(series []float64, mask []bool, period int) []float64 {
	if period < 1 {
		period = 1
	}
	out := make([]float64, len(series))
	copy(out, series)
	for i := range out {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		for j := i - period + 1; j <= i; j++ {
			if mask[j] {
				out[i] = math.NaN()
				break
			}
		}
	}
	return out
}

func SMA(prices []float64, period int) []float64 {
	if len(prices) < period || period < 1 {
		return allNaN(len(prices))
	}
	mask := invalidMask(prices)
	return applyContract(talib.Sma(sanitized(prices, mask), period), mask, period)
}

func EMA(prices []float64, period int) []float64 {
	if len(prices) < period || period < 1 {
		return allNaN(len(prices))
	}
	mask := invalidMask(prices)
	return applyContract(talib.Ema(sanitized(prices, mask), period), mask, period)
}

func RSI(prices []float64, period int) []float64 {
	if len(prices) < period+1 || period < 1 {
		return allNaN(len(prices))
	}
	mask := invalidMask(prices)
	return applyContract(talib.Rsi(sanitized(prices, mask), period), mask, period+1)
}

// MACD returns the macd, signal and histogram series.
func MACD(prices []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	n := len(prices)
	if fast < 1 || slow < 1 || signalPeriod < 1 || n < slow+signalPeriod {
		return allNaN(n), allNaN(n), allNaN(n)
	}
	mask := invalidMask(prices)
	m, s, h := talib.Macd(sanitized(prices, mask), fast, slow, signalPeriod)
	warm := slow + signalPeriod - 1
	return applyContract(m, mask, warm), applyContract(s, mask, warm), applyContract(h, mask, warm)
}

// BollingerBands returns the upper, middle and lower bands.
func BollingerBands(prices []float64, period int, devUp, devDown float64) (upper, middle, lower []float64) {
	n := len(prices)
	if period < 1 || n < period {
		return allNaN(n), allNaN(n), allNaN(n)
	}
	mask := invalidMask(prices)
	u, m, l := talib.BBands(sanitized(prices, mask), period, devUp, devDown, talib.SMA)
	return applyContract(u, mask, period), applyContract(m, mask, period), applyContract(l, mask, period)
}

func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period < 1 || n < period+1 || len(highs) != n || len(lows) != n {
		return allNaN(n)
	}
	mask := invalidMask(closes)
	hm := invalidMask(highs)
	lm := invalidMask(lows)
	for i := range mask {
		mask[i] = mask[i] || hm[i] || lm[i]
	}
	out := talib.Atr(sanitized(highs, mask), sanitized(lows, mask), sanitized(closes, mask), period)
	return applyContract(out, mask, period+1)
}

// SAR 计算抛物线 SAR（加速因子用 talib 默认 0.02/0.2）。
func SAR(highs, lows []float64) []float64 {
	n := len(highs)
	if n < 2 || len(lows) != n {
		return allNaN(n)
	}
	mask := invalidMask(highs)
	lm := invalidMask(lows)
	for i := range mask {
		mask[i] = mask[i] || lm[i]
	}
	return applyContract(talib.Sar(sanitized(highs, mask), sanitized(lows, mask), 0.02, 0.2), mask, 2)
}

func ADX(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period < 1 || n < 2*period || len(highs) != n || len(lows) != n {
		return allNaN(n)
	}
	mask := invalidMask(closes)
	hm := invalidMask(highs)
	lm := invalidMask(lows)
	for i := range mask {
		mask[i] = mask[i] || hm[i] || lm[i]
	}
	out := talib.Adx(sanitized(highs, mask), sanitized(lows, mask), sanitized(closes, mask), period)
	return applyContract(out, mask, 2*period)
}

func PlusDI(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period < 1 || n < period+1 {
		return allNaN(n)
	}
	mask := invalidMask(closes)
	return applyContract(talib.PlusDI(highs, lows, sanitized(closes, mask), period), mask, period+1)
}

func MinusDI(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period < 1 || n < period+1 {
		return allNaN(n)
	}
	mask := invalidMask(closes)
	return applyContract(talib.MinusDI(highs, lows, sanitized(closes, mask), period), mask, period+1)
}

// Last 返回序列最后一个有限值；全部无效时返回 NaN。
func Last(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return math.NaN()
}

// Finite reports whether v can be used in a calculation.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allNaN(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
