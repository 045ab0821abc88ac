package signal

import (
	"fmt"

	"papertrader/internal/indicator"
	"papertrader/internal/market"
)

// OptimizedParams 是网格搜索出的指标参数组合。
type OptimizedParams struct {
	RSIPeriod int     `json:"rsi_period"`
	SMAPeriod int     `json:"sma_period"`
	HitRate   float64 `json:"hit_rate"`
	Samples   int     `json:"samples"`
}

var (
	rsiCandidates = []int{7, 9, 11, 14, 21}
	smaCandidates = []int{10, 20, 50}
)

const (
	optStride       = 5   // 模拟入场的抽样步长
	optHorizon      = 5   // 持有期（K线数）
	atrTargetFactor = 0.5 // 有利波动需达到的 ATR 倍数
	rsiOversold     = 30.0
	rsiOverbought   = 70.0
)

// Optimize 网格搜索 (RSI 周期, SMA 周期)，最大化历史方向命中率。
//
// 命中率并列时取更小的 RSI 周期、再取更小的 SMA 周期——候选按升序
// 迭代且只有严格更优才替换，保证平局规则确定且与迭代顺序无关。
func Optimize(candles []market.Candle) OptimizedParams {
	best := OptimizedParams{RSIPeriod: 14, SMAPeriod: 20}
	if len(candles) == 0 {
		return best
	}
	closes := market.Closes(candles)
	highs := market.Highs(candles)
	lows := market.Lows(candles)
	atrSeries := indicator.ATR(highs, lows, closes, 14)

	first := true
	for _, rsiP := range rsiCandidates {
		rsiSeries := indicator.RSI(closes, rsiP)
		for _, smaP := range smaCandidates {
			smaSeries := indicator.SMA(closes, smaP)
			rate, samples := hitRate(closes, rsiSeries, smaSeries, atrSeries, maxInt(rsiP, smaP)+1)
			if samples == 0 {
				continue
			}
			if first || rate > best.HitRate {
				best = OptimizedParams{RSIPeriod: rsiP, SMAPeriod: smaP, HitRate: rate, Samples: samples}
				first = false
			}
		}
	}
	return best
}

// hitRate 在历史窗口上模拟入场规则，统计 horizon 根K线内
// 出现 >= atrTargetFactor*ATR 有利波动的比例。
func hitRate(closes, rsiSeries, smaSeries, atrSeries []float64, warmup int) (float64, int) {
	hits, samples := 0, 0
	for i := warmup; i < len(closes)-optHorizon; i += optStride {
		price := closes[i]
		rsi := rsiSeries[i]
		sma := smaSeries[i]
		atr := atrSeries[i]
		if !market.ValidPrice(price) || !indicator.Finite(rsi) || !indicator.Finite(sma) || !indicator.Finite(atr) || atr <= 0 {
			continue
		}
		long := price > sma && rsi < rsiOversold+10
		short := price < sma && rsi > rsiOverbought
		if !long && !short {
			continue
		}
		samples++
		target := atr * atrTargetFactor
		if favorableMove(closes[i+1:i+1+optHorizon], price, target, long) {
			hits++
		}
	}
	if samples == 0 {
		return 0, 0
	}
	return float64(hits) / float64(samples), samples
}

func favorableMove(window []float64, entry, target float64, long bool) bool {
	for _, p := range window {
		if !market.ValidPrice(p) {
			continue
		}
		if long && p-entry >= target {
			return true
		}
		if !long && entry-p >= target {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (p OptimizedParams) String() string {
	return fmt.Sprintf("rsi=%d sma=%d hit=%.2f n=%d", p.RSIPeriod, p.SMAPeriod, p.HitRate, p.Samples)
}
