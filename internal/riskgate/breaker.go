package riskgate

import (
	"sync"
	"time"

	"papertrader/internal/logger"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "CLOSED"
	case breakerOpen:
		return "OPEN"
	case breakerHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// DrawdownBreaker 是回撤熔断器。一旦回撤超过阈值即 OPEN，
// 冷却期内一律拒单；冷却结束后进入 HALF-OPEN，用当前回撤重新探测。
type DrawdownBreaker struct {
	mu       sync.Mutex
	state    breakerState
	tripped  time.Time
	cooldown time.Duration
}

func NewDrawdownBreaker(cooldown time.Duration) *DrawdownBreaker {
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	return &DrawdownBreaker{state: breakerClosed, cooldown: cooldown}
}

// Allow 评估当前回撤（0~1）是否放行，并推进熔断状态。
func (b *DrawdownBreaker) Allow(drawdown, threshold float64, now time.Time) bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	breached := threshold > 0 && drawdown > threshold

	switch b.state {
	case breakerClosed:
		if breached {
			b.transition(breakerOpen, drawdown)
			b.tripped = now
			return false
		}
		return true
	case breakerOpen:
		if now.Sub(b.tripped) <= b.cooldown {
			return false
		}
		b.transition(breakerHalfOpen, drawdown)
		fallthrough
	case breakerHalfOpen:
		if breached {
			b.transition(breakerOpen, drawdown)
			b.tripped = now
			return false
		}
		b.transition(breakerClosed, drawdown)
		return true
	default:
		return true
	}
}

// Reset 强制回到 CLOSED（测试与显式生命周期用）。
func (b *DrawdownBreaker) Reset() {
	b.mu.Lock()
	b.state = breakerClosed
	b.tripped = time.Time{}
	b.mu.Unlock()
}

func (b *DrawdownBreaker) transition(to breakerState, drawdown float64) {
	from := b.state
	b.state = to
	logger.Warnf("DrawdownBreaker state change: %s -> %s (drawdown=%.2f%%)", from, to, drawdown*100)
}
