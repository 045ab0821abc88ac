package handlers

import (
	"fmt"

	"papertrader/internal/market"
	"papertrader/internal/position"
	"papertrader/internal/strategy/exit"
)

// HighLowConfig 控制周期高低点突破退出参数。
type HighLowConfig struct {
	Priority int
}

type highLowHandler struct {
	priority int
}

// NewHighLowBreak 构造高低点突破退出策略：做多跌破周期低点、
// 做空突破周期高点时触发。
func NewHighLowBreak(cfg HighLowConfig) exit.Handler {
	return &highLowHandler{priority: priorityOrDefault(cfg.Priority, exit.PriorityHighLowBreak)}
}

func (h *highLowHandler) ID() string    { return "high_low_break" }
func (h *highLowHandler) Priority() int { return h.priority }

func (h *highLowHandler) Evaluate(ctx exit.EvalContext) exit.ExitSignal {
	if !ctx.Position.Valid() {
		return exit.InvalidPosition(h.priority)
	}
	if !market.ValidPrice(ctx.Price) {
		return exit.CannotEvaluate(exit.ExitTypeHighLowBreak, h.priority, "insufficient data: no valid price")
	}

	if ctx.Position.Side == position.SideShort {
		if !market.ValidPrice(ctx.PeriodHigh) {
			return exit.CannotEvaluate(exit.ExitTypeHighLowBreak, h.priority, "insufficient data: period high unavailable")
		}
		if ctx.Price > ctx.PeriodHigh {
			return exit.ExitSignal{
				ShouldExit: true,
				ExitPrice:  ctx.Price,
				Reason:     fmt.Sprintf("price %.4f broke above period high %.4f", ctx.Price, ctx.PeriodHigh),
				ExitType:   exit.ExitTypeHighLowBreak,
				Priority:   h.priority,
				Outcome:    exit.OutcomeTriggered,
				Metadata:   map[string]any{"period_high": ctx.PeriodHigh},
			}
		}
		return exit.NoTrigger(exit.ExitTypeHighLowBreak, h.priority, "price within period range")
	}

	if !market.ValidPrice(ctx.PeriodLow) {
		return exit.CannotEvaluate(exit.ExitTypeHighLowBreak, h.priority, "insufficient data: period low unavailable")
	}
	if ctx.Price < ctx.PeriodLow {
		return exit.ExitSignal{
			ShouldExit: true,
			ExitPrice:  ctx.Price,
			Reason:     fmt.Sprintf("price %.4f broke below period low %.4f", ctx.Price, ctx.PeriodLow),
			ExitType:   exit.ExitTypeHighLowBreak,
			Priority:   h.priority,
			Outcome:    exit.OutcomeTriggered,
			Metadata:   map[string]any{"period_low": ctx.PeriodLow},
		}
	}
	return exit.NoTrigger(exit.ExitTypeHighLowBreak, h.priority, "price within period range")
}
