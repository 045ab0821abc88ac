package config

import (
	"time"

	"papertrader/internal/riskgate"
	"papertrader/internal/sizing"
)

// Config 是 papertrader 的主配置载体。
type Config struct {
	App     AppConfig     `toml:"app"`
	Trading TradingConfig `toml:"trading"`
	Risk    RiskConfig    `toml:"risk"`
	Sizing  SizingConfig  `toml:"sizing"`
	Exit    ExitConfig    `toml:"exit"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// TradingConfig 控制模拟账户的初始资金与默认风险比例。
type TradingConfig struct {
	InitialBalance float64 `toml:"initial_balance"`
	RiskPercentage float64 `toml:"risk_percentage"` // 每笔投入的账户风险 0~100
	StorePath      string  `toml:"store_path"`      // SQLite 审计/日志库路径，空则不持久化
}

// RiskConfig 对应订单闸门的全局策略，每个键都可被单笔订单覆盖。
type RiskConfig struct {
	MaxPositionPercent    float64 `toml:"max_position_percent"`
	MinRiskRewardRatio    float64 `toml:"min_risk_reward_ratio"`
	MaxRiskPerTrade       float64 `toml:"max_risk_per_trade"`
	MaxDrawdownPercent    float64 `toml:"max_drawdown_percent"`
	DailyLossLimitPercent float64 `toml:"daily_loss_limit_percent"`
	MaxPositions          int     `toml:"max_positions"`
	KellyFraction         float64 `toml:"kelly_fraction"`
	EnableAutoStopLoss    bool    `toml:"enable_auto_stop_loss"`
	EnableCircuitBreaker  bool    `toml:"enable_circuit_breaker"`
	AutoStopLossPercent   float64 `toml:"auto_stop_loss_percent"`
	ATRStopMultiplier     float64 `toml:"atr_stop_multiplier"`
	MinOrderSpacingMs     int     `toml:"min_order_spacing_ms"`
	BreakerCooldownMin    int     `toml:"breaker_cooldown_minutes"`
}

// SizingConfig 对应仓位计算器的策略边界。
type SizingConfig struct {
	MaxPositionPercent  float64 `toml:"max_position_percent"`
	MinPositionPercent  float64 `toml:"min_position_percent"`
	MaxLossPerTrade     float64 `toml:"max_loss_per_trade"`
	LowConfidenceFactor float64 `toml:"low_confidence_factor"`
}

// ExitConfig 控制退出策略装配。
type ExitConfig struct {
	BundlesPath           string  `toml:"bundles_path"`
	MaxHoldingDays        int     `toml:"max_holding_days"`
	TrailingATRMultiplier float64 `toml:"trailing_atr_multiplier"`
}

// GatePolicy 把配置翻译成闸门策略值。
func (r RiskConfig) GatePolicy() riskgate.Policy {
	return riskgate.Policy{
		MaxPositionPercent:    r.MaxPositionPercent,
		MinRiskRewardRatio:    r.MinRiskRewardRatio,
		MaxRiskPerTrade:       r.MaxRiskPerTrade,
		MaxDrawdownPercent:    r.MaxDrawdownPercent,
		DailyLossLimitPercent: r.DailyLossLimitPercent,
		MaxPositions:          r.MaxPositions,
		KellyFraction:         r.KellyFraction,
		EnableAutoStopLoss:    r.EnableAutoStopLoss,
		EnableCircuitBreaker:  r.EnableCircuitBreaker,
		AutoStopLossPercent:   r.AutoStopLossPercent,
		ATRStopMultiplier:     r.ATRStopMultiplier,
		MinOrderSpacing:       time.Duration(r.MinOrderSpacingMs) * time.Millisecond,
		BreakerCooldown:       time.Duration(r.BreakerCooldownMin) * time.Minute,
	}
}

// SizerPolicy 把配置翻译成仓位策略值。
func (s SizingConfig) SizerPolicy() sizing.Policy {
	return sizing.Policy{
		MaxPositionPercent:  s.MaxPositionPercent,
		MinPositionPercent:  s.MinPositionPercent,
		MaxLossPerTrade:     s.MaxLossPerTrade,
		LowConfidenceFactor: s.LowConfidenceFactor,
	}
}
