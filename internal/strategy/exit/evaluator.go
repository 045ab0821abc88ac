package exit

import (
	"sort"

	"papertrader/internal/position"
)

// Evaluator 对同一市场快照运行一组策略，返回优先级最高的触发信号。
type Evaluator struct {
	handlers []Handler
}

func NewEvaluator(handlers ...Handler) *Evaluator {
	return &Evaluator{handlers: handlers}
}

// Handlers 返回当前参与评估的策略（按装配顺序）。
func (e *Evaluator) Handlers() []Handler {
	return e.handlers
}

// Evaluate 依次运行全部策略并聚合结果。
//
// 返回值：
//   - best：触发信号中优先级最高者；没有任何触发时为 nil。
//   - updated：经极值推进后的仓位，调用方必须以它覆盖原仓位记录。
//
// 同优先级时止损类策略优先（追踪止损 > 高低点突破），
// 再按装配顺序取先者；绝不依赖排序稳定性之外的隐式规则。
func (e *Evaluator) Evaluate(ctx EvalContext) (best *ExitSignal, updated position.Position) {
	updated = ctx.Position
	if !ctx.Position.Valid() {
		return nil, updated
	}

	type candidate struct {
		sig   ExitSignal
		index int
	}
	var triggered []candidate
	for i, h := range e.handlers {
		ctx.Position = updated
		sig := h.Evaluate(ctx)
		if sig.UpdatedPosition != nil {
			updated = *sig.UpdatedPosition
		}
		if sig.ShouldExit && sig.Outcome == OutcomeTriggered {
			triggered = append(triggered, candidate{sig: sig, index: i})
		}
	}
	if len(triggered) == 0 {
		return nil, updated
	}

	sort.SliceStable(triggered, func(a, b int) bool {
		if triggered[a].sig.Priority != triggered[b].sig.Priority {
			return triggered[a].sig.Priority > triggered[b].sig.Priority
		}
		ra, rb := stopClassRank(triggered[a].sig.ExitType), stopClassRank(triggered[b].sig.ExitType)
		if ra != rb {
			return ra < rb
		}
		return triggered[a].index < triggered[b].index
	})
	win := triggered[0].sig
	win.UpdatedPosition = nil
	return &win, updated
}

// stopClassRank 定义同优先级下的确定性顺序：止损类最先。
func stopClassRank(t ExitType) int {
	switch t {
	case ExitTypeTrailingStop:
		return 0
	case ExitTypeHighLowBreak:
		return 1
	default:
		return 2
	}
}
