package config

import "fmt"

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Sizing.validate(); err != nil {
		return err
	}
	if err := c.Exit.validate(); err != nil {
		return err
	}
	return nil
}

func (t TradingConfig) validate() error {
	if t.InitialBalance <= 0 {
		return fmt.Errorf("trading.initial_balance must be > 0")
	}
	if t.RiskPercentage <= 0 || t.RiskPercentage > 100 {
		return fmt.Errorf("trading.risk_percentage must be in (0, 100]")
	}
	return nil
}

func (r RiskConfig) validate() error {
	percents := map[string]float64{
		"risk.max_position_percent":     r.MaxPositionPercent,
		"risk.max_risk_per_trade":       r.MaxRiskPerTrade,
		"risk.max_drawdown_percent":     r.MaxDrawdownPercent,
		"risk.daily_loss_limit_percent": r.DailyLossLimitPercent,
		"risk.auto_stop_loss_percent":   r.AutoStopLossPercent,
	}
	for key, val := range percents {
		if val < 0 || val > 100 {
			return fmt.Errorf("%s must be in [0, 100]", key)
		}
	}
	if r.MinRiskRewardRatio < 0 {
		return fmt.Errorf("risk.min_risk_reward_ratio must be >= 0")
	}
	if r.MaxPositions < 0 {
		return fmt.Errorf("risk.max_positions must be >= 0")
	}
	if r.KellyFraction < 0 || r.KellyFraction > 1 {
		return fmt.Errorf("risk.kelly_fraction must be in [0, 1]")
	}
	if r.MinOrderSpacingMs < 0 {
		return fmt.Errorf("risk.min_order_spacing_ms must be >= 0")
	}
	return nil
}

func (s SizingConfig) validate() error {
	if s.MaxPositionPercent < 0 || s.MaxPositionPercent > 100 {
		return fmt.Errorf("sizing.max_position_percent must be in [0, 100]")
	}
	if s.MinPositionPercent < 0 || s.MinPositionPercent > s.MaxPositionPercent {
		return fmt.Errorf("sizing.min_position_percent must be in [0, max_position_percent]")
	}
	if s.MaxLossPerTrade < 0 {
		return fmt.Errorf("sizing.max_loss_per_trade must be >= 0")
	}
	if s.LowConfidenceFactor <= 0 || s.LowConfidenceFactor > 1 {
		return fmt.Errorf("sizing.low_confidence_factor must be in (0, 1]")
	}
	return nil
}

func (e ExitConfig) validate() error {
	if e.MaxHoldingDays <= 0 {
		return fmt.Errorf("exit.max_holding_days must be > 0")
	}
	if e.TrailingATRMultiplier <= 0 {
		return fmt.Errorf("exit.trailing_atr_multiplier must be > 0")
	}
	return nil
}
