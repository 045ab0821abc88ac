// Package signal turns OHLCV history into trade signals: regime detection,
// indicator parameter optimization, threshold classification and a regime-fit
// exit recommendation. Analyze is deterministic for identical input.
package signal

import (
	"context"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"papertrader/internal/indicator"
	"papertrader/internal/logger"
	"papertrader/internal/market"
	"papertrader/internal/regime"
)

type Type string

const (
	TypeBuy  Type = "buy"
	TypeSell Type = "sell"
	TypeHold Type = "hold"
)

// Signal 是对外可见的决策输出，生成后不再修改。
type Signal struct {
	Symbol          string          `json:"symbol"`
	Type            Type            `json:"type"`
	Confidence      float64         `json:"confidence"` // 0~100
	Price           float64         `json:"price"`
	TargetPrice     float64         `json:"target_price,omitempty"`
	StopLoss        float64         `json:"stop_loss,omitempty"`
	PredictedChange float64         `json:"predicted_change,omitempty"` // 百分比，带符号
	Regime          regime.Result   `json:"regime"`
	ExitBundle      Bundle          `json:"exit_bundle"`
	Params          OptimizedParams `json:"optimized_params"`
	Reason          string          `json:"reason,omitempty"`
}

const (
	// MinHistory 以下的窗口直接回 HOLD，绝不报错。
	MinHistory = 60

	stopATRFactor       = 1.5
	takeProfitATRFactor = 2.5
)

type Engine struct {
	bundles *BundleRegistry
}

func NewEngine(bundles *BundleRegistry) *Engine {
	if bundles == nil {
		bundles = DefaultBundles()
	}
	return &Engine{bundles: bundles}
}

// Analyze 产出一支标的的完整信号。短历史、脏数据都以中性结果表达。
func (e *Engine) Analyze(symbol string, candles []market.Candle) Signal {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	sig := Signal{
		Symbol:     symbol,
		Type:       TypeHold,
		Regime:     regime.Result{Regime: regime.Unknown, Direction: regime.DirectionNeutral, Volatility: regime.VolatilityLow, Confidence: regime.ConfidenceInitial},
		ExitBundle: e.bundles.ForRegime(regime.Result{Regime: regime.Unknown}),
	}
	if len(candles) < MinHistory {
		sig.Reason = "insufficient history"
		return sig
	}
	price, ok := market.LastClose(candles)
	if !ok {
		sig.Reason = "no valid close price"
		return sig
	}
	sig.Price = price

	sig.Regime = regime.Detect(candles)
	sig.Params = Optimize(candles)

	closes := market.Closes(candles)
	rsi := indicator.Last(indicator.RSI(closes, sig.Params.RSIPeriod))
	sma := indicator.Last(indicator.SMA(closes, sig.Params.SMAPeriod))
	if !indicator.Finite(rsi) || !indicator.Finite(sma) {
		sig.Reason = "indicators unavailable"
		sig.ExitBundle = e.bundles.ForRegime(sig.Regime)
		return sig
	}

	sig.Type, sig.Reason = classify(price, sma, rsi)
	sig.Confidence = confidence(sig.Type, rsi, sig.Regime)

	if sig.Type != TypeHold {
		atr := indicator.Last(indicator.ATR(market.Highs(candles), market.Lows(candles), closes, 14))
		if indicator.Finite(atr) && atr > 0 {
			if sig.Type == TypeBuy {
				sig.StopLoss = price - atr*stopATRFactor
				sig.TargetPrice = price + atr*takeProfitATRFactor
			} else {
				sig.StopLoss = price + atr*stopATRFactor
				sig.TargetPrice = price - atr*takeProfitATRFactor
			}
			sig.PredictedChange = (sig.TargetPrice - price) / price * 100
		}
	}

	sig.ExitBundle = e.bundles.ForRegime(sig.Regime)
	logger.Debugf("signal: %s %s conf=%.1f %s regime=%s/%s", symbol, sig.Type, sig.Confidence, sig.Params, sig.Regime.Regime, sig.Regime.Volatility)
	return sig
}

// AnalyzeAll 并发分析多支标的，结果按 symbol 汇总。
func (e *Engine) AnalyzeAll(ctx context.Context, series map[string][]market.Candle) (map[string]Signal, error) {
	out := make(map[string]Signal, len(series))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for symbol, candles := range series {
		symbol, candles := symbol, candles
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sig := e.Analyze(symbol, candles)
			mu.Lock()
			out[sig.Symbol] = sig
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// classify 应用阈值规则。
func classify(price, sma, rsi float64) (Type, string) {
	switch {
	case price > sma && rsi < rsiOversold+10:
		return TypeBuy, "price above SMA with RSI near oversold"
	case price < sma && rsi > rsiOverbought:
		return TypeSell, "price below SMA with RSI overbought"
	case rsi <= rsiOversold:
		return TypeBuy, "RSI oversold"
	case rsi >= rsiOverbought:
		return TypeSell, "RSI overbought"
	default:
		return TypeHold, "no threshold rule met"
	}
}

// confidence 由 RSI 偏离中性的程度打底，再按市场状态乘性修正。
func confidence(t Type, rsi float64, reg regime.Result) float64 {
	if t == TypeHold {
		return 0
	}
	conf := math.Abs(rsi-50) / 50 * 100

	if reg.Confidence == regime.ConfidenceInitial {
		conf *= 0.8
	}
	if reg.Volatility == regime.VolatilityHigh {
		conf *= 0.85
	}
	switch reg.Regime {
	case regime.Trending:
		aligned := (t == TypeBuy && reg.Direction == regime.DirectionUp) ||
			(t == TypeSell && reg.Direction == regime.DirectionDown)
		if aligned {
			conf *= 1.15
		} else {
			conf *= 0.7
		}
	case regime.Ranging:
		// 震荡市里的均值回归信号略微加分。
		if (t == TypeBuy && rsi <= rsiOversold+10) || (t == TypeSell && rsi >= rsiOverbought) {
			conf *= 1.05
		}
	}
	return math.Max(0, math.Min(100, conf))
}
