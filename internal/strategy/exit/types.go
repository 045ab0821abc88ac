package exit

import (
	"time"

	"papertrader/internal/indicator"
	"papertrader/internal/position"
)

// Outcome 区分「触发」「评估过但未触发」「数据不足无法评估」。
// 后两者在旧系统里共用一个占位枚举，这里显式分开。
type Outcome string

const (
	OutcomeTriggered      Outcome = "triggered"
	OutcomeNoTrigger      Outcome = "no_trigger"
	OutcomeCannotEvaluate Outcome = "cannot_evaluate"
)

type ExitType string

const (
	ExitTypeTrailingStop ExitType = "trailing_stop"
	ExitTypeTimeBased    ExitType = "time_based"
	ExitTypeParabolicSAR ExitType = "parabolic_sar"
	ExitTypeCompound     ExitType = "compound"
	ExitTypeHighLowBreak ExitType = "high_low_break"
	ExitTypeInvalidData  ExitType = "invalid_data"
)

// 默认优先级：compound > SAR > trailing/high-low > time-based，
// 数值越大越紧急。可在 handler 配置里覆盖。
const (
	PriorityCompound     = 5
	PriorityParabolicSAR = 4
	PriorityTrailingStop = 3
	PriorityHighLowBreak = 3
	PriorityTimeBased    = 2
)

// ExitSignal 是单个策略的评估输出。
// UpdatedPosition 仅由需要推进极值的策略填写（追踪止损），
// 由上层负责把新值接回仓位记录。
type ExitSignal struct {
	ShouldExit      bool               `json:"should_exit"`
	ExitPrice       float64            `json:"exit_price,omitempty"`
	Reason          string             `json:"reason"`
	ExitType        ExitType           `json:"exit_type"`
	Priority        int                `json:"priority"`
	Outcome         Outcome            `json:"outcome"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
	UpdatedPosition *position.Position `json:"-"`
}

// EvalContext 是一次评估可见的全部市场信息。策略本身无状态。
type EvalContext struct {
	Position   position.Position
	Price      float64
	High       float64 // 本次观测区间内的最高价（缺省可与 Price 相同）
	Low        float64
	Now        time.Time
	ATR        float64
	Snapshot   *indicator.Snapshot
	PeriodHigh float64 // 跟踪周期高点，用于 high/low break
	PeriodLow  float64
}

// NoTrigger 构造一个「已评估、未触发」信号。
func NoTrigger(t ExitType, priority int, reason string) ExitSignal {
	return ExitSignal{ExitType: t, Priority: priority, Outcome: OutcomeNoTrigger, Reason: reason}
}

// CannotEvaluate 构造一个「数据不足」信号。
func CannotEvaluate(t ExitType, priority int, reason string) ExitSignal {
	return ExitSignal{ExitType: t, Priority: priority, Outcome: OutcomeCannotEvaluate, Reason: reason}
}

// InvalidPosition 是所有策略对非法仓位的统一短路输出。
func InvalidPosition(priority int) ExitSignal {
	return ExitSignal{ExitType: ExitTypeInvalidData, Priority: priority, Outcome: OutcomeCannotEvaluate, Reason: "invalid position data"}
}
