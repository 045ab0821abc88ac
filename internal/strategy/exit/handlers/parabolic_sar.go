package handlers

import (
	"fmt"

	"papertrader/internal/indicator"
	"papertrader/internal/market"
	"papertrader/internal/position"
	"papertrader/internal/strategy/exit"
)

// ParabolicSARConfig 控制 SAR 反转退出参数。
type ParabolicSARConfig struct {
	Priority int
}

type parabolicSARHandler struct {
	priority int
}

// NewParabolicSAR 构造 SAR 反转退出策略：SAR 在两次观测之间
// 从趋势同侧穿越到另一侧即触发。
func NewParabolicSAR(cfg ParabolicSARConfig) exit.Handler {
	return &parabolicSARHandler{priority: priorityOrDefault(cfg.Priority, exit.PriorityParabolicSAR)}
}

func (h *parabolicSARHandler) ID() string    { return "parabolic_sar" }
func (h *parabolicSARHandler) Priority() int { return h.priority }

func (h *parabolicSARHandler) Evaluate(ctx exit.EvalContext) exit.ExitSignal {
	if !ctx.Position.Valid() {
		return exit.InvalidPosition(h.priority)
	}
	if !market.ValidPrice(ctx.Price) {
		return exit.CannotEvaluate(exit.ExitTypeParabolicSAR, h.priority, "insufficient data: no valid price")
	}
	curr := ctx.Snapshot.Value(indicator.IDSAR)
	prev := ctx.Snapshot.Prev(indicator.IDSAR)
	if !indicator.Finite(curr) || !indicator.Finite(prev) {
		return exit.CannotEvaluate(exit.ExitTypeParabolicSAR, h.priority, "insufficient data: SAR unavailable")
	}

	var reversed bool
	if ctx.Position.Side == position.SideShort {
		reversed = prev > ctx.Price && curr < ctx.Price
	} else {
		reversed = prev < ctx.Price && curr > ctx.Price
	}
	meta := map[string]any{"sar": curr, "previous_sar": prev}
	if reversed {
		return exit.ExitSignal{
			ShouldExit: true,
			ExitPrice:  ctx.Price,
			Reason:     fmt.Sprintf("SAR reversal: %.4f -> %.4f across price %.4f", prev, curr, ctx.Price),
			ExitType:   exit.ExitTypeParabolicSAR,
			Priority:   h.priority,
			Outcome:    exit.OutcomeTriggered,
			Metadata:   meta,
		}
	}
	sig := exit.NoTrigger(exit.ExitTypeParabolicSAR, h.priority, "SAR on trend side")
	sig.Metadata = meta
	return sig
}
