package riskgate

import "time"

// Policy 是全局风控策略。每个字段都可被单笔订单的 PolicyOverrides 覆盖。
type Policy struct {
	MaxPositionPercent    float64       // 单仓位市值占组合上限（0~100）
	MinRiskRewardRatio    float64       // 最低收益/风险比
	MaxRiskPerTrade       float64       // 单笔风险占组合上限（0~100）
	MaxDrawdownPercent    float64       // 回撤熔断阈值（0~100）
	DailyLossLimitPercent float64       // 当日亏损熔断阈值（0~100）
	MaxPositions          int           // 最大并存仓位数（按 symbol 计）
	KellyFraction         float64       // Kelly 建议的 fraction
	EnableAutoStopLoss    bool          // 缺省止损自动推导
	EnableCircuitBreaker  bool          // 回撤熔断开关
	AutoStopLossPercent   float64       // 无 ATR 时的固定百分比止损
	ATRStopMultiplier     float64       // ATR 止损倍数
	MinOrderSpacing       time.Duration // 同一组合两笔订单的最小间隔
	BreakerCooldown       time.Duration // 熔断后重新探测前的冷却时间
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPositionPercent:    20,
		MinRiskRewardRatio:    1.5,
		MaxRiskPerTrade:       2,
		MaxDrawdownPercent:    20,
		DailyLossLimitPercent: 5,
		MaxPositions:          10,
		KellyFraction:         0.25,
		EnableAutoStopLoss:    true,
		EnableCircuitBreaker:  true,
		AutoStopLossPercent:   5,
		ATRStopMultiplier:     2,
		MinOrderSpacing:       50 * time.Millisecond,
		BreakerCooldown:       10 * time.Minute,
	}
}

// PolicyOverrides 是单笔订单级别的覆盖：字段存在（非 nil）即覆盖全局值。
type PolicyOverrides struct {
	MaxPositionPercent    *float64 `json:"max_position_percent,omitempty"`
	MinRiskRewardRatio    *float64 `json:"min_risk_reward_ratio,omitempty"`
	MaxRiskPerTrade       *float64 `json:"max_risk_per_trade,omitempty"`
	MaxDrawdownPercent    *float64 `json:"max_drawdown_percent,omitempty"`
	DailyLossLimitPercent *float64 `json:"daily_loss_limit_percent,omitempty"`
	MaxPositions          *int     `json:"max_positions,omitempty"`
	KellyFraction         *float64 `json:"kelly_fraction,omitempty"`
	EnableAutoStopLoss    *bool    `json:"enable_auto_stop_loss,omitempty"`
	EnableCircuitBreaker  *bool    `json:"enable_circuit_breaker,omitempty"`
	AutoStopLossPercent   *float64 `json:"auto_stop_loss_percent,omitempty"`
	ATRStopMultiplier     *float64 `json:"atr_stop_multiplier,omitempty"`
}

// Merge 把订单级覆盖按字段合入全局策略，返回新值，不修改输入。
func Merge(base Policy, o *PolicyOverrides) Policy {
	if o == nil {
		return base
	}
	if o.MaxPositionPercent != nil {
		base.MaxPositionPercent = *o.MaxPositionPercent
	}
	if o.MinRiskRewardRatio != nil {
		base.MinRiskRewardRatio = *o.MinRiskRewardRatio
	}
	if o.MaxRiskPerTrade != nil {
		base.MaxRiskPerTrade = *o.MaxRiskPerTrade
	}
	if o.MaxDrawdownPercent != nil {
		base.MaxDrawdownPercent = *o.MaxDrawdownPercent
	}
	if o.DailyLossLimitPercent != nil {
		base.DailyLossLimitPercent = *o.DailyLossLimitPercent
	}
	if o.MaxPositions != nil {
		base.MaxPositions = *o.MaxPositions
	}
	if o.KellyFraction != nil {
		base.KellyFraction = *o.KellyFraction
	}
	if o.EnableAutoStopLoss != nil {
		base.EnableAutoStopLoss = *o.EnableAutoStopLoss
	}
	if o.EnableCircuitBreaker != nil {
		base.EnableCircuitBreaker = *o.EnableCircuitBreaker
	}
	if o.AutoStopLossPercent != nil {
		base.AutoStopLossPercent = *o.AutoStopLossPercent
	}
	if o.ATRStopMultiplier != nil {
		base.ATRStopMultiplier = *o.ATRStopMultiplier
	}
	return base
}
