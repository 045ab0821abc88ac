package handlers

import (
	"fmt"

	"papertrader/internal/indicator"
	"papertrader/internal/market"
	"papertrader/internal/position"
	"papertrader/internal/strategy/exit"
)

// TrailingATRConfig 控制 ATR 追踪止损参数。
type TrailingATRConfig struct {
	Multiplier float64 // ATR 倍数，默认 2
	Priority   int
}

type trailingATRHandler struct {
	multiplier float64
	priority   int
}

// NewTrailingATR 构造 ATR 追踪止损策略。
// 止损位 = 最高见价 − ATR×倍数（做多），做空镜像；倍数随浮盈收紧。
func NewTrailingATR(cfg TrailingATRConfig) exit.Handler {
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = 2
	}
	return &trailingATRHandler{
		multiplier: mult,
		priority:   priorityOrDefault(cfg.Priority, exit.PriorityTrailingStop),
	}
}

func (h *trailingATRHandler) ID() string    { return "trailing_atr" }
func (h *trailingATRHandler) Priority() int { return h.priority }

func (h *trailingATRHandler) Evaluate(ctx exit.EvalContext) exit.ExitSignal {
	if !ctx.Position.Valid() {
		return exit.InvalidPosition(h.priority)
	}
	updated := observe(ctx.Position, evalPrices{Price: ctx.Price, High: ctx.High, Low: ctx.Low})

	if !market.ValidPrice(ctx.Price) {
		sig := exit.CannotEvaluate(exit.ExitTypeTrailingStop, h.priority, "insufficient data: no valid price")
		sig.UpdatedPosition = &updated
		return sig
	}
	if !indicator.Finite(ctx.ATR) || ctx.ATR <= 0 {
		sig := exit.CannotEvaluate(exit.ExitTypeTrailingStop, h.priority, "insufficient data: ATR unavailable")
		sig.UpdatedPosition = &updated
		return sig
	}

	gain := updated.UnrealizedGainPct(ctx.Price)
	mult := tightenedMultiplier(h.multiplier, gain)

	var stop float64
	var breached bool
	if updated.Side == position.SideShort {
		stop = updated.LowestSeen + ctx.ATR*mult
		breached = ctx.Price >= stop
	} else {
		stop = updated.HighestSeen - ctx.ATR*mult
		breached = ctx.Price <= stop
	}

	meta := map[string]any{
		"stop_level": stop,
		"multiplier": mult,
		"gain_pct":   gain,
	}
	if breached {
		return exit.ExitSignal{
			ShouldExit:      true,
			ExitPrice:       ctx.Price,
			Reason:          fmt.Sprintf("trailing ATR stop hit at %.4f (stop %.4f)", ctx.Price, stop),
			ExitType:        exit.ExitTypeTrailingStop,
			Priority:        h.priority,
			Outcome:         exit.OutcomeTriggered,
			Metadata:        meta,
			UpdatedPosition: &updated,
		}
	}
	sig := exit.NoTrigger(exit.ExitTypeTrailingStop, h.priority, fmt.Sprintf("price %.4f above stop %.4f", ctx.Price, stop))
	if updated.Side == position.SideShort {
		sig.Reason = fmt.Sprintf("price %.4f below stop %.4f", ctx.Price, stop)
	}
	sig.Metadata = meta
	sig.UpdatedPosition = &updated
	return sig
}
