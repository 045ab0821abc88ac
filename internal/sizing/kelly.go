package sizing

import "math"

// DefaultKellyFraction 是默认的 quarter-Kelly 系数。
// 全 Kelly 在收益估计噪声下容易超配，从不直接使用。
const DefaultKellyFraction = 0.25

type KellyResult struct {
	KellyPercent    float64 `json:"kelly_percent"`    // 原始 Kelly 百分比（0~100）
	AdjustedPercent float64 `json:"adjusted_percent"` // 乘以 fraction 后的百分比
	PositionValue   float64 `json:"position_value"`
}

// Kelly computes the Kelly-criterion sizing recommendation.
// winProb is 0..1, payoffRatio is the win/loss payoff ratio b. The raw fraction
// is (b*p - (1-p)) / b, clamped to [0,1]; b <= 0 yields zero.
func Kelly(winProb, payoffRatio, fraction, accountBalance float64) KellyResult {
	if fraction <= 0 {
		fraction = DefaultKellyFraction
	}
	if payoffRatio <= 0 || winProb <= 0 {
		return KellyResult{}
	}
	p := math.Min(winProb, 1)
	raw := (payoffRatio*p - (1 - p)) / payoffRatio
	if raw <= 0 {
		return KellyResult{}
	}
	if raw > 1 {
		raw = 1
	}
	kellyPct := raw * 100
	adjusted := kellyPct * fraction
	return KellyResult{
		KellyPercent:    kellyPct,
		AdjustedPercent: adjusted,
		PositionValue:   roundValue(accountBalance * adjusted / 100),
	}
}
