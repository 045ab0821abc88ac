package handlers

import (
	"fmt"
	"math"
	"strings"

	"papertrader/internal/indicator"
	"papertrader/internal/strategy/exit"
)

type Operator string

const (
	OpAbove      Operator = "above"
	OpBelow      Operator = "below"
	OpTouch      Operator = "touch"
	OpCrossAbove Operator = "cross_above"
	OpCrossBelow Operator = "cross_below"
)

// touchTolerance：TOUCH 判定的相对容差。
const touchTolerance = 0.01

// Condition 是复合条件里的一项。Indicator 必须是封闭枚举里的值，
// 字符串形态的外部配置在构造前经 indicator.Normalize 转换。
type Condition struct {
	Indicator indicator.ID `json:"indicator" yaml:"indicator"`
	Threshold float64      `json:"threshold" yaml:"threshold"`
	Operator  Operator     `json:"operator" yaml:"operator"`
}

// CompoundConfig 控制复合条件退出参数。
type CompoundConfig struct {
	Conditions []Condition
	RequireAll bool // true=AND，false=OR
	Priority   int
}

type compoundHandler struct {
	conditions []Condition
	requireAll bool
	priority   int
}

// NewCompound 构造复合条件退出策略。
func NewCompound(cfg CompoundConfig) exit.Handler {
	return &compoundHandler{
		conditions: cfg.Conditions,
		requireAll: cfg.RequireAll,
		priority:   priorityOrDefault(cfg.Priority, exit.PriorityCompound),
	}
}

func (h *compoundHandler) ID() string    { return "compound" }
func (h *compoundHandler) Priority() int { return h.priority }

func (h *compoundHandler) Evaluate(ctx exit.EvalContext) exit.ExitSignal {
	if !ctx.Position.Valid() {
		return exit.InvalidPosition(h.priority)
	}
	if len(h.conditions) == 0 {
		return exit.CannotEvaluate(exit.ExitTypeCompound, h.priority, "insufficient data: no conditions configured")
	}

	met := make([]string, 0, len(h.conditions))
	evaluated := 0
	allMet := true
	for _, cond := range h.conditions {
		ok, evalErr := h.check(cond, ctx)
		if evalErr != "" {
			if h.requireAll {
				return exit.CannotEvaluate(exit.ExitTypeCompound, h.priority, evalErr)
			}
			continue
		}
		evaluated++
		if ok {
			met = append(met, fmt.Sprintf("%s %s %.4f", cond.Indicator, cond.Operator, cond.Threshold))
		} else {
			allMet = false
		}
	}
	if evaluated == 0 {
		return exit.CannotEvaluate(exit.ExitTypeCompound, h.priority, "insufficient data: no evaluable conditions")
	}

	triggered := false
	if h.requireAll {
		triggered = allMet && len(met) == len(h.conditions)
	} else {
		triggered = len(met) > 0
	}
	meta := map[string]any{"conditions_met": met, "require_all": h.requireAll}
	if triggered {
		return exit.ExitSignal{
			ShouldExit: true,
			ExitPrice:  ctx.Price,
			Reason:     "compound condition met: " + strings.Join(met, "; "),
			ExitType:   exit.ExitTypeCompound,
			Priority:   h.priority,
			Outcome:    exit.OutcomeTriggered,
			Metadata:   meta,
		}
	}
	sig := exit.NoTrigger(exit.ExitTypeCompound, h.priority, fmt.Sprintf("%d of %d conditions met", len(met), len(h.conditions)))
	sig.Metadata = meta
	return sig
}

// check 返回 (是否满足, 无法评估原因)。
func (h *compoundHandler) check(cond Condition, ctx exit.EvalContext) (bool, string) {
	if cond.Indicator == indicator.IDUnknown {
		return false, "insufficient data: unknown indicator in condition"
	}
	value := ctx.Snapshot.Value(cond.Indicator)
	if !indicator.Finite(value) {
		return false, fmt.Sprintf("insufficient data: %s unavailable", cond.Indicator)
	}
	switch cond.Operator {
	case OpAbove:
		return value > cond.Threshold, ""
	case OpBelow:
		return value < cond.Threshold, ""
	case OpTouch:
		// threshold 为 0 时（如布林带触碰），以现价作为参照。
		ref := cond.Threshold
		if ref == 0 {
			ref = ctx.Price
		}
		if ref == 0 {
			return false, "insufficient data: touch reference price missing"
		}
		return math.Abs(value-ref)/math.Abs(ref) <= touchTolerance, ""
	case OpCrossAbove:
		prev := ctx.Snapshot.Prev(cond.Indicator)
		if !indicator.Finite(prev) {
			return false, fmt.Sprintf("insufficient data: %s has no previous observation", cond.Indicator)
		}
		return prev <= cond.Threshold && value > cond.Threshold, ""
	case OpCrossBelow:
		prev := ctx.Snapshot.Prev(cond.Indicator)
		if !indicator.Finite(prev) {
			return false, fmt.Sprintf("insufficient data: %s has no previous observation", cond.Indicator)
		}
		return prev >= cond.Threshold && value < cond.Threshold, ""
	default:
		return false, fmt.Sprintf("insufficient data: unsupported operator %q", cond.Operator)
	}
}

// ParseOperator 把外部配置字符串映射到封闭算子集合。
func ParseOperator(s string) (Operator, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above":
		return OpAbove, true
	case "below":
		return OpBelow, true
	case "touch":
		return OpTouch, true
	case "cross_above", "crossabove":
		return OpCrossAbove, true
	case "cross_below", "crossbelow":
		return OpCrossBelow, true
	default:
		return "", false
	}
}
