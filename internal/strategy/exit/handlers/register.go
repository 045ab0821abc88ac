package handlers

import "papertrader/internal/strategy/exit"

// RegisterCoreHandlers 把全部内建策略以默认参数注册进 registry。
func RegisterCoreHandlers(reg *exit.HandlerRegistry) {
	reg.Register(NewTrailingATR(TrailingATRConfig{}))
	reg.Register(NewHighLowBreak(HighLowConfig{}))
	reg.Register(NewParabolicSAR(ParabolicSARConfig{}))
	reg.Register(NewTimeBased(TimeBasedConfig{}))
	reg.Register(NewCompound(CompoundConfig{
		Conditions: []Condition{
			{Indicator: "rsi", Threshold: 70, Operator: OpAbove},
			{Indicator: "macd_hist", Threshold: 0, Operator: OpCrossBelow},
		},
		RequireAll: true,
	}))
}
