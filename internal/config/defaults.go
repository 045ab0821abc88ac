package config

import "github.com/spf13/viper"

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9985"

	defaultInitialBalance = 1_000_000
	defaultRiskPercentage = 2

	defaultMaxPositionPercent    = 20.0
	defaultMinRiskRewardRatio    = 1.5
	defaultMaxRiskPerTrade       = 2.0
	defaultMaxDrawdownPercent    = 20.0
	defaultDailyLossLimitPercent = 5.0
	defaultMaxPositions          = 10
	defaultKellyFraction         = 0.25
	defaultAutoStopLossPercent   = 5.0
	defaultATRStopMultiplier     = 2.0
	defaultMinOrderSpacingMs     = 50
	defaultBreakerCooldownMin    = 10

	defaultSizingMaxPositionPct = 10.0
	defaultSizingMinPositionPct = 0.5
	defaultSizingMaxLoss        = 20000.0
	defaultLowConfidenceFactor  = 0.8

	defaultMaxHoldingDays  = 10
	defaultTrailingATRMult = 2.0
)

// setDefaults 在解码前注册全部默认值；布尔开关默认开启，
// 因此必须走 viper 默认值而不是零值判断。
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", defaultAppEnv)
	v.SetDefault("app.log_level", defaultAppLogLevel)
	v.SetDefault("app.http_addr", defaultAppHTTPAddr)

	v.SetDefault("trading.initial_balance", defaultInitialBalance)
	v.SetDefault("trading.risk_percentage", defaultRiskPercentage)

	v.SetDefault("risk.max_position_percent", defaultMaxPositionPercent)
	v.SetDefault("risk.min_risk_reward_ratio", defaultMinRiskRewardRatio)
	v.SetDefault("risk.max_risk_per_trade", defaultMaxRiskPerTrade)
	v.SetDefault("risk.max_drawdown_percent", defaultMaxDrawdownPercent)
	v.SetDefault("risk.daily_loss_limit_percent", defaultDailyLossLimitPercent)
	v.SetDefault("risk.max_positions", defaultMaxPositions)
	v.SetDefault("risk.kelly_fraction", defaultKellyFraction)
	v.SetDefault("risk.enable_auto_stop_loss", true)
	v.SetDefault("risk.enable_circuit_breaker", true)
	v.SetDefault("risk.auto_stop_loss_percent", defaultAutoStopLossPercent)
	v.SetDefault("risk.atr_stop_multiplier", defaultATRStopMultiplier)
	v.SetDefault("risk.min_order_spacing_ms", defaultMinOrderSpacingMs)
	v.SetDefault("risk.breaker_cooldown_minutes", defaultBreakerCooldownMin)

	v.SetDefault("sizing.max_position_percent", defaultSizingMaxPositionPct)
	v.SetDefault("sizing.min_position_percent", defaultSizingMinPositionPct)
	v.SetDefault("sizing.max_loss_per_trade", defaultSizingMaxLoss)
	v.SetDefault("sizing.low_confidence_factor", defaultLowConfidenceFactor)

	v.SetDefault("exit.max_holding_days", defaultMaxHoldingDays)
	v.SetDefault("exit.trailing_atr_multiplier", defaultTrailingATRMult)
}
