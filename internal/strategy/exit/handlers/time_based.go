package handlers

import (
	"fmt"
	"math"

	"papertrader/internal/strategy/exit"
)

// TimeBasedConfig 控制时间退出参数。
type TimeBasedConfig struct {
	MaxHoldingDays int // 默认 10
	Priority       int
}

type timeBasedHandler struct {
	maxHoldingDays int
	priority       int
}

// NewTimeBased 构造时间退出策略：持仓天数到达上限即触发，
// 触发前通过 time_decay_factor 提供软信号。
func NewTimeBased(cfg TimeBasedConfig) exit.Handler {
	days := cfg.MaxHoldingDays
	if days <= 0 {
		days = 10
	}
	return &timeBasedHandler{
		maxHoldingDays: days,
		priority:       priorityOrDefault(cfg.Priority, exit.PriorityTimeBased),
	}
}

func (h *timeBasedHandler) ID() string    { return "time_based" }
func (h *timeBasedHandler) Priority() int { return h.priority }

func (h *timeBasedHandler) Evaluate(ctx exit.EvalContext) exit.ExitSignal {
	if !ctx.Position.Valid() {
		return exit.InvalidPosition(h.priority)
	}
	if ctx.Now.IsZero() {
		return exit.CannotEvaluate(exit.ExitTypeTimeBased, h.priority, "insufficient data: evaluation time missing")
	}
	days := ctx.Position.DaysHeld(ctx.Now)
	decay := math.Min(1, float64(days)/float64(h.maxHoldingDays))
	meta := map[string]any{
		"time_held_days":    days,
		"max_holding_days":  h.maxHoldingDays,
		"time_decay_factor": decay,
	}
	if days >= h.maxHoldingDays {
		return exit.ExitSignal{
			ShouldExit: true,
			ExitPrice:  ctx.Price,
			Reason:     fmt.Sprintf("held %d days, limit %d", days, h.maxHoldingDays),
			ExitType:   exit.ExitTypeTimeBased,
			Priority:   h.priority,
			Outcome:    exit.OutcomeTriggered,
			Metadata:   meta,
		}
	}
	sig := exit.NoTrigger(exit.ExitTypeTimeBased, h.priority, fmt.Sprintf("held %d of %d days", days, h.maxHoldingDays))
	sig.Metadata = meta
	return sig
}
