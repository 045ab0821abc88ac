// Package portfolio owns the mutable paper-trading account. Order admission
// and the resulting mutation happen under one lock so two validate-then-commit
// sequences can never interleave; reads go through a lock-free snapshot that is
// refreshed on every commit.
package portfolio

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"papertrader/internal/logger"
	"papertrader/internal/market"
	"papertrader/internal/position"
	"papertrader/internal/riskgate"
)

// AuditRecorder 在每次闸门裁决后收到一条记录（可为 nil）。
type AuditRecorder interface {
	RecordValidation(req riskgate.OrderRequest, res riskgate.Result) error
}

// JournalRecorder 在平仓后收到一条已结束交易（可为 nil）。
type JournalRecorder interface {
	RecordClosedTrade(t ClosedTrade) error
}

type ClosedTrade struct {
	Symbol      string
	Side        position.Side
	Quantity    float64
	EntryPrice  float64
	ExitPrice   float64
	RealizedPnL float64
	Reason      string
	OpenedAt    time.Time
	ClosedAt    time.Time
}

// Snapshot 是对外暴露的只读视图。
type Snapshot struct {
	Cash            float64                      `json:"cash"`
	Equity          float64                      `json:"equity"`
	PeakBalance     float64                      `json:"peak_balance"`
	DayStartBalance float64                      `json:"day_start_balance"`
	Positions       map[string]position.Position `json:"positions"`
	UpdatedAt       time.Time                    `json:"updated_at"`
}

type Portfolio struct {
	mu         sync.Mutex
	cash       float64
	positions  map[string]position.Position
	lastPrices map[string]float64
	peak       float64
	dayStart   float64
	day        string // UTC 日期，跨日时滚动 dayStart

	gate    *riskgate.Gate
	audit   AuditRecorder
	journal JournalRecorder

	snapshot atomic.Value // Snapshot
	now      func() time.Time
}

func New(initialCash float64, gate *riskgate.Gate) *Portfolio {
	p := &Portfolio{
		cash:       initialCash,
		positions:  make(map[string]position.Position),
		lastPrices: make(map[string]float64),
		peak:       initialCash,
		dayStart:   initialCash,
		gate:       gate,
		now:        time.Now,
	}
	p.day = p.now().UTC().Format("2006-01-02")
	p.refreshSnapshot()
	return p
}

// SetRecorders 挂接审计与交易日志存储（可选）。
func (p *Portfolio) SetRecorders(audit AuditRecorder, journal JournalRecorder) {
	p.mu.Lock()
	p.audit = audit
	p.journal = journal
	p.mu.Unlock()
}

// SetClock 注入时钟，仅测试使用。
func (p *Portfolio) SetClock(now func() time.Time) {
	p.mu.Lock()
	p.now = now
	p.mu.Unlock()
}

// Snapshot 返回最近一次提交后的只读视图，读取无锁。
func (p *Portfolio) Snapshot() Snapshot {
	if v := p.snapshot.Load(); v != nil {
		return v.(Snapshot)
	}
	return Snapshot{}
}

// Position 返回指定 symbol 的当前仓位。
func (p *Portfolio) Position(symbol string) (position.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[symbol]
	return pos, ok
}

// SubmitOrder 校验并提交一笔订单。校验与组合变更在同一临界区内完成，
// 返回的 Result 含最终生效数量。
func (p *Portfolio) SubmitOrder(req riskgate.OrderRequest, md *riskgate.MarketData) (riskgate.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.rollDayLocked(now)
	p.trackPeakLocked()

	res, err := p.gate.Validate(req, p.gateSnapshotLocked(), md)
	if err != nil {
		return res, err
	}
	if p.audit != nil {
		if aerr := p.audit.RecordValidation(req, res); aerr != nil {
			logger.Warnf("portfolio: audit record failed: %v", aerr)
		}
	}
	if !res.Allowed || res.AdjustedQuantity <= 0 {
		p.refreshSnapshot()
		return res, nil
	}

	side, _ := position.ParseSide(req.Side)
	qty := res.AdjustedQuantity

	// 资金约束：组合层最后一道缩量。
	if cost := qty * req.Price; cost > p.cash {
		qty = float64(int(p.cash / req.Price))
		res.Reasons = append(res.Reasons, fmt.Sprintf("quantity reduced to %.0f by available cash", qty))
		res.AdjustedQuantity = qty
		if qty <= 0 {
			p.refreshSnapshot()
			return res, nil
		}
	}

	p.applyFillLocked(req.Symbol, side, qty, req.Price, res, now)
	p.trackPeakLocked()
	p.refreshSnapshot()
	return res, nil
}

func (p *Portfolio) applyFillLocked(symbol string, side position.Side, qty, price float64, res riskgate.Result, now time.Time) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	existing, ok := p.positions[symbol]
	switch {
	case !ok:
		pos := position.New(symbol, side, price, qty, now)
		pos.StopLoss = res.StopLossPrice
		pos.TakeProfit = res.TakeProfitPrice
		p.positions[pos.Symbol] = pos
		p.cash -= qty * price
		logger.Infof("portfolio: opened %s %s qty=%.4f @ %.4f", pos.Symbol, side, qty, price)
	case existing.Side == side:
		p.positions[symbol] = existing.AverageIn(qty, price)
		p.cash -= qty * price
		logger.Infof("portfolio: averaged in %s qty=%.4f @ %.4f", symbol, qty, price)
	default:
		// 反向订单按减仓处理，最多减到零。
		reduce := qty
		if reduce > existing.Quantity {
			reduce = existing.Quantity
		}
		p.closePartialLocked(existing, reduce, price, "reduced by opposite order", now)
	}
	p.lastPrices[symbol] = price
}

// MarkPrice 记录一次价格观测：推进极值并刷新市值。
// 对同一仓位的观测与退出检查由组合锁串行化。
func (p *Portfolio) MarkPrice(symbol string, high, low, last float64) {
	if !market.ValidPrice(last) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastPrices[symbol] = last
	if pos, ok := p.positions[symbol]; ok {
		p.positions[symbol] = pos.RecordObservation(high, low)
	}
	p.trackPeakLocked()
	p.refreshSnapshot()
}

// ReplacePosition 用评估后的仓位（极值已推进）覆盖记录。
func (p *Portfolio) ReplacePosition(pos position.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.positions[pos.Symbol]; ok {
		p.positions[pos.Symbol] = pos
		p.refreshSnapshot()
	}
}

// ClosePosition 全平指定仓位并写入交易日志。
func (p *Portfolio) ClosePosition(symbol string, price float64, reason string) (ClosedTrade, error) {
	if !market.ValidPrice(price) {
		return ClosedTrade{}, fmt.Errorf("portfolio: invalid close price %v", price)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[symbol]
	if !ok {
		return ClosedTrade{}, fmt.Errorf("portfolio: no open position for %s", symbol)
	}
	trade := p.closePartialLocked(pos, pos.Quantity, price, reason, p.now())
	p.trackPeakLocked()
	p.refreshSnapshot()
	return trade, nil
}

func (p *Portfolio) closePartialLocked(pos position.Position, qty, price float64, reason string, now time.Time) ClosedTrade {
	pnl := (price - pos.EntryPrice) * qty
	if pos.Side == position.SideShort {
		pnl = -pnl
	}
	p.cash += qty*pos.EntryPrice + pnl
	remaining := pos.Quantity - qty
	if remaining > 1e-9 {
		pos.Quantity = remaining
		p.positions[pos.Symbol] = pos
	} else {
		delete(p.positions, pos.Symbol)
	}
	trade := ClosedTrade{
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		Quantity:    qty,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   price,
		RealizedPnL: pnl,
		Reason:      reason,
		OpenedAt:    pos.EntryDate,
		ClosedAt:    now,
	}
	if p.journal != nil {
		if err := p.journal.RecordClosedTrade(trade); err != nil {
			logger.Warnf("portfolio: journal record failed: %v", err)
		}
	}
	logger.Infof("portfolio: closed %s qty=%.4f @ %.4f pnl=%.2f (%s)", pos.Symbol, qty, price, pnl, reason)
	return trade
}

// equityLocked = 现金 + 各仓位的保证金与浮动盈亏。
func (p *Portfolio) equityLocked() float64 {
	eq := p.cash
	for sym, pos := range p.positions {
		last, ok := p.lastPrices[sym]
		if !ok || !market.ValidPrice(last) {
			last = pos.EntryPrice
		}
		pnl := (last - pos.EntryPrice) * pos.Quantity
		if pos.Side == position.SideShort {
			pnl = -pnl
		}
		eq += pos.Quantity*pos.EntryPrice + pnl
	}
	return eq
}

func (p *Portfolio) gateSnapshotLocked() riskgate.PortfolioSnapshot {
	positions := make(map[string]position.Position, len(p.positions))
	for k, v := range p.positions {
		positions[k] = v
	}
	return riskgate.PortfolioSnapshot{
		Cash:            p.cash,
		TotalValue:      p.equityLocked(),
		PeakBalance:     p.peak,
		DayStartBalance: p.dayStart,
		Positions:       positions,
	}
}

func (p *Portfolio) trackPeakLocked() {
	if eq := p.equityLocked(); eq > p.peak {
		p.peak = eq
	}
}

func (p *Portfolio) rollDayLocked(now time.Time) {
	day := now.UTC().Format("2006-01-02")
	if day != p.day {
		p.day = day
		p.dayStart = p.equityLocked()
		logger.Debugf("portfolio: day rolled to %s, day-start balance %.2f", day, p.dayStart)
	}
}

func (p *Portfolio) refreshSnapshot() {
	positions := make(map[string]position.Position, len(p.positions))
	for k, v := range p.positions {
		positions[k] = v
	}
	p.snapshot.Store(Snapshot{
		Cash:            p.cash,
		Equity:          p.equityLocked(),
		PeakBalance:     p.peak,
		DayStartBalance: p.dayStart,
		Positions:       positions,
		UpdatedAt:       p.now(),
	})
}
