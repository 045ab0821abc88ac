// Package riskgate is the order-admission control: it merges per-order policy
// overrides, derives missing stops, shrinks quantity to the per-trade risk cap
// and signals circuit-breaker conditions before the portfolio may mutate.
//
// Business-rule outcomes are values on Result, never errors. Only malformed
// input (non-finite price, missing side) comes back as an error.
package riskgate

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"papertrader/internal/logger"
	"papertrader/internal/market"
	"papertrader/internal/position"
)

type Gate struct {
	policy  Policy
	breaker *DrawdownBreaker

	mu        sync.Mutex
	lastOrder time.Time

	now func() time.Time
}

// NewGate 构造闸门。policy 的零值字段保持为零：调用方要么传完整策略，
// 要么从 DefaultPolicy() 起步修改。
func NewGate(policy Policy) *Gate {
	return &Gate{
		policy:  policy,
		breaker: NewDrawdownBreaker(policy.BreakerCooldown),
		now:     time.Now,
	}
}

// Reset 清空防抖与熔断状态（显式生命周期，测试亦用）。
func (g *Gate) Reset() {
	g.mu.Lock()
	g.lastOrder = time.Time{}
	g.mu.Unlock()
	g.breaker.Reset()
}

// SetClock 注入时钟，仅测试使用。
func (g *Gate) SetClock(now func() time.Time) { g.now = now }

// Validate 按固定顺序检查一笔订单。硬性违规（回撤、当日亏损、仓位数、
// 重复提交）返回 Allowed=false；软性违规改写数量/止损/止盈后放行。
func (g *Gate) Validate(req OrderRequest, snap PortfolioSnapshot, md *MarketData) (Result, error) {
	if !market.ValidPrice(req.Price) {
		return Result{}, fmt.Errorf("riskgate: invalid order price %v", req.Price)
	}
	if req.Quantity <= 0 || math.IsNaN(req.Quantity) || math.IsInf(req.Quantity, 0) {
		return Result{}, fmt.Errorf("riskgate: invalid order quantity %v", req.Quantity)
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return Result{}, fmt.Errorf("riskgate: order symbol is empty")
	}
	side, ok := position.ParseSide(req.Side)
	if !ok {
		return Result{}, fmt.Errorf("riskgate: unknown order side %q", req.Side)
	}

	policy := Merge(g.policy, req.Overrides)
	now := g.now()

	res := Result{
		Allowed:          true,
		AdjustedQuantity: req.Quantity,
		StopLossPrice:    req.StopLoss,
		TakeProfitPrice:  req.TakeProfit,
	}

	// 防抖：与上一笔订单间隔过近按并发提交拒绝。
	g.mu.Lock()
	if !g.lastOrder.IsZero() && now.Sub(g.lastOrder) < policy.MinOrderSpacing {
		g.mu.Unlock()
		return g.reject(res, ViolationConcurrentExecution,
			fmt.Sprintf("order submitted within %s of the previous one", policy.MinOrderSpacing)), nil
	}
	g.lastOrder = now
	g.mu.Unlock()

	// 回撤熔断：无论其余检查结果如何都优先拒绝。
	if snap.PeakBalance > 0 {
		drawdown := (snap.PeakBalance - snap.TotalValue) / snap.PeakBalance
		threshold := policy.MaxDrawdownPercent / 100
		if threshold > 0 && drawdown > threshold {
			if policy.EnableCircuitBreaker {
				g.breaker.Allow(drawdown, threshold, now)
			}
			return g.reject(res, ViolationMaxDrawdown,
				fmt.Sprintf("drawdown %.2f%% exceeds limit %.2f%%", drawdown*100, policy.MaxDrawdownPercent)), nil
		}
		if policy.EnableCircuitBreaker && !g.breaker.Allow(drawdown, threshold, now) {
			return g.reject(res, ViolationMaxDrawdown, "drawdown circuit breaker open, cooling down"), nil
		}
	}

	// 当日亏损限制
	if snap.DayStartBalance > 0 && policy.DailyLossLimitPercent > 0 {
		loss := (snap.DayStartBalance - snap.TotalValue) / snap.DayStartBalance
		if loss > policy.DailyLossLimitPercent/100 {
			return g.reject(res, ViolationDailyLossLimit,
				fmt.Sprintf("daily loss %.2f%% exceeds limit %.2f%%", loss*100, policy.DailyLossLimitPercent)), nil
		}
	}

	// 仓位数限制：加仓已有 symbol 永远放行。
	if policy.MaxPositions > 0 && !snap.hasPosition(symbol) && snap.openPositionCount() >= policy.MaxPositions {
		return g.reject(res, ViolationMaxPositions,
			fmt.Sprintf("open positions %d reached limit %d", snap.openPositionCount(), policy.MaxPositions)), nil
	}

	// 自动止损推导：优先 ATR，退回固定百分比。
	if res.StopLossPrice <= 0 && policy.EnableAutoStopLoss {
		res.StopLossPrice = autoStopLoss(req.Price, side, policy, md)
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("stop loss auto-derived at %.4f", res.StopLossPrice))
	}

	// 单笔风险上限：按需缩量。
	riskPerShare := math.Abs(req.Price - res.StopLossPrice)
	if res.StopLossPrice > 0 && riskPerShare > 0 && policy.MaxRiskPerTrade > 0 && snap.TotalValue > 0 {
		maxLoss := snap.TotalValue * policy.MaxRiskPerTrade / 100
		maxQty := floorQty(maxLoss / riskPerShare)
		if res.AdjustedQuantity > maxQty {
			adjusted := math.Max(1, maxQty)
			res.Violations = append(res.Violations, Violation{
				Type:     ViolationRiskPerTrade,
				Severity: SeveritySoft,
				Message:  fmt.Sprintf("quantity %.4f exceeds per-trade risk cap, shrunk to %.0f", res.AdjustedQuantity, adjusted),
			})
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("quantity reduced from %.4f to %.0f to respect max risk per trade %.2f%%",
					res.AdjustedQuantity, adjusted, policy.MaxRiskPerTrade))
			res.AdjustedQuantity = adjusted
		}
	}

	// 最低收益/风险比：止盈缺失或不足时重新推导。
	if res.StopLossPrice > 0 && riskPerShare > 0 && policy.MinRiskRewardRatio > 0 {
		reward := rewardFor(side, req.Price, res.TakeProfitPrice)
		if res.TakeProfitPrice <= 0 || reward/riskPerShare < policy.MinRiskRewardRatio {
			res.TakeProfitPrice = takeProfitFor(side, req.Price, riskPerShare*policy.MinRiskRewardRatio)
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("take profit set to %.4f for %.1f:1 reward/risk", res.TakeProfitPrice, policy.MinRiskRewardRatio))
		}
	}

	// 单仓位市值占比：超限缩量，可缩到 0（等价于无害拒绝）。
	if policy.MaxPositionPercent > 0 && snap.TotalValue > 0 {
		limit := snap.TotalValue * policy.MaxPositionPercent / 100
		if res.AdjustedQuantity*req.Price > limit {
			shrunk := floorQty(limit / req.Price)
			res.Violations = append(res.Violations, Violation{
				Type:     ViolationPositionSizePercent,
				Severity: SeveritySoft,
				Message:  fmt.Sprintf("order value exceeds %.2f%% of portfolio, quantity shrunk to %.0f", policy.MaxPositionPercent, shrunk),
			})
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("quantity reduced to %.0f to stay within %.2f%% position size limit", shrunk, policy.MaxPositionPercent))
			res.AdjustedQuantity = shrunk
		}
	}

	// 调整只会缩小，绝不放大。
	if res.AdjustedQuantity > req.Quantity {
		res.AdjustedQuantity = req.Quantity
	}
	if res.AdjustedQuantity < 0 {
		res.AdjustedQuantity = 0
	}
	logger.Debugf("riskgate: %s %s qty=%.4f -> %.4f stop=%.4f tp=%.4f reasons=%d",
		symbol, side, req.Quantity, res.AdjustedQuantity, res.StopLossPrice, res.TakeProfitPrice, len(res.Reasons))
	return res, nil
}

func (g *Gate) reject(res Result, vt ViolationType, msg string) Result {
	res.Allowed = false
	res.AdjustedQuantity = 0
	res.Violations = append(res.Violations, Violation{Type: vt, Severity: SeverityHard, Message: msg})
	res.Reasons = append(res.Reasons, msg)
	logger.Infof("riskgate: order rejected (%s): %s", vt, msg)
	return res
}

func autoStopLoss(price float64, side position.Side, policy Policy, md *MarketData) float64 {
	dist := price * policy.AutoStopLossPercent / 100
	if md != nil && md.ATR > 0 && policy.ATRStopMultiplier > 0 {
		dist = md.ATR * policy.ATRStopMultiplier
	}
	if side == position.SideShort {
		return price + dist
	}
	return price - dist
}

func rewardFor(side position.Side, price, takeProfit float64) float64 {
	if takeProfit <= 0 {
		return 0
	}
	if side == position.SideShort {
		return price - takeProfit
	}
	return takeProfit - price
}

func takeProfitFor(side position.Side, price, reward float64) float64 {
	if side == position.SideShort {
		return price - reward
	}
	return price + reward
}

func floorQty(q float64) float64 {
	f, _ := decimal.NewFromFloat(q).Floor().Float64()
	if f < 0 {
		return 0
	}
	return f
}
