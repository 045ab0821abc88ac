package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"papertrader/internal/position"
	"papertrader/internal/riskgate"
)

var baseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordValidation(req riskgate.OrderRequest, res riskgate.Result) error {
	args := m.Called(req, res)
	return args.Error(0)
}

func (m *MockRecorder) RecordClosedTrade(t ClosedTrade) error {
	args := m.Called(t)
	return args.Error(0)
}

// newTestPortfolio 用步进时钟构建组合，避免闸门防抖干扰。
func newTestPortfolio(cash float64) *Portfolio {
	gate := riskgate.NewGate(riskgate.DefaultPolicy())
	now := baseTime
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	gate.SetClock(clock)
	p := New(cash, gate)
	p.SetClock(clock)
	return p
}

func buyOrder(qty float64) riskgate.OrderRequest {
	return riskgate.OrderRequest{Symbol: "AAPL", Side: "buy", Quantity: qty, Price: 100, StopLoss: 90}
}

func TestSubmitOrder_OpensPosition(t *testing.T) {
	p := newTestPortfolio(1_000_000)

	res, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	pos, ok := p.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, position.SideLong, pos.Side)
	assert.InDelta(t, 100, pos.Quantity, 1e-9)
	assert.InDelta(t, 100, pos.EntryPrice, 1e-9)
	assert.InDelta(t, 90, pos.StopLoss, 1e-9)

	snap := p.Snapshot()
	assert.InDelta(t, 990_000, snap.Cash, 1e-6)
	assert.InDelta(t, 1_000_000, snap.Equity, 1e-6)
}

func TestSubmitOrder_RejectedLeavesStateUntouched(t *testing.T) {
	p := newTestPortfolio(1_000_000)

	// 做亏到当日亏损限制之上，触发硬拒绝。
	p.mu.Lock()
	p.cash = 900_000
	p.mu.Unlock()

	res, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	_, ok := p.Position("AAPL")
	assert.False(t, ok)
}

func TestSubmitOrder_AveragesIn(t *testing.T) {
	p := newTestPortfolio(1_000_000)

	_, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)

	second := buyOrder(100)
	second.Price = 110
	second.StopLoss = 100
	_, err = p.SubmitOrder(second, nil)
	require.NoError(t, err)

	pos, ok := p.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 200, pos.Quantity, 1e-9)
	assert.InDelta(t, 105, pos.EntryPrice, 1e-9)
}

func TestSubmitOrder_OppositeSideReduces(t *testing.T) {
	p := newTestPortfolio(1_000_000)

	_, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)

	sell := riskgate.OrderRequest{Symbol: "AAPL", Side: "sell", Quantity: 40, Price: 110, StopLoss: 120}
	_, err = p.SubmitOrder(sell, nil)
	require.NoError(t, err)

	pos, ok := p.Position("AAPL")
	require.True(t, ok)
	assert.InDelta(t, 60, pos.Quantity, 1e-9)
}

func TestSubmitOrder_CashConstraint(t *testing.T) {
	p := newTestPortfolio(5_000)

	// 放开闸门的软性缩量，让资金约束成为唯一限制。
	looseRisk := 100.0
	loosePct := 1000.0
	req := buyOrder(100)
	req.Overrides = &riskgate.PolicyOverrides{
		MaxRiskPerTrade:    &looseRisk,
		MaxPositionPercent: &loosePct,
	}
	res, err := p.SubmitOrder(req, nil)
	require.NoError(t, err)
	require.True(t, res.Allowed)
	// 现金只够 50 股。
	assert.InDelta(t, 50, res.AdjustedQuantity, 1e-9)
	pos, _ := p.Position("AAPL")
	assert.InDelta(t, 50, pos.Quantity, 1e-9)
}

func TestSubmitOrder_RecordsAudit(t *testing.T) {
	p := newTestPortfolio(1_000_000)
	rec := new(MockRecorder)
	rec.On("RecordValidation", mock.Anything, mock.Anything).Return(nil)
	p.SetRecorders(rec, nil)

	_, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)
	rec.AssertNumberOfCalls(t, "RecordValidation", 1)
}

func TestMarkPrice_AdvancesExtrema(t *testing.T) {
	p := newTestPortfolio(1_000_000)
	_, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)

	p.MarkPrice("AAPL", 120, 95, 118)
	pos, _ := p.Position("AAPL")
	assert.InDelta(t, 120, pos.HighestSeen, 1e-9)
	assert.InDelta(t, 95, pos.LowestSeen, 1e-9)

	// 极值永不回退。
	p.MarkPrice("AAPL", 110, 105, 108)
	pos, _ = p.Position("AAPL")
	assert.InDelta(t, 120, pos.HighestSeen, 1e-9)
	assert.InDelta(t, 95, pos.LowestSeen, 1e-9)
}

func TestClosePosition(t *testing.T) {
	p := newTestPortfolio(1_000_000)
	rec := new(MockRecorder)
	rec.On("RecordClosedTrade", mock.Anything).Return(nil)
	p.SetRecorders(nil, rec)

	_, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)

	trade, err := p.ClosePosition("AAPL", 110, "take profit")
	require.NoError(t, err)
	assert.InDelta(t, 1000, trade.RealizedPnL, 1e-6)
	assert.InDelta(t, 100, trade.Quantity, 1e-9)

	_, ok := p.Position("AAPL")
	assert.False(t, ok)
	snap := p.Snapshot()
	assert.InDelta(t, 1_001_000, snap.Cash, 1e-6)
	rec.AssertNumberOfCalls(t, "RecordClosedTrade", 1)

	t.Run("closing again fails", func(t *testing.T) {
		_, err := p.ClosePosition("AAPL", 110, "again")
		assert.Error(t, err)
	})
	t.Run("invalid price fails", func(t *testing.T) {
		_, err := p.ClosePosition("AAPL", 0, "bad")
		assert.Error(t, err)
	})
}

func TestClosePosition_ShortPnL(t *testing.T) {
	p := newTestPortfolio(1_000_000)
	sell := riskgate.OrderRequest{Symbol: "TSLA", Side: "sell", Quantity: 50, Price: 200, StopLoss: 220}
	_, err := p.SubmitOrder(sell, nil)
	require.NoError(t, err)

	trade, err := p.ClosePosition("TSLA", 180, "cover")
	require.NoError(t, err)
	assert.InDelta(t, 1000, trade.RealizedPnL, 1e-6)
}

func TestReplacePosition(t *testing.T) {
	p := newTestPortfolio(1_000_000)
	_, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)

	pos, _ := p.Position("AAPL")
	advanced := pos.RecordObservation(130, 90)
	p.ReplacePosition(advanced)

	got, _ := p.Position("AAPL")
	assert.InDelta(t, 130, got.HighestSeen, 1e-9)

	// 未知 symbol 不会被凭空插入。
	ghost := position.New("GHOST", position.SideLong, 10, 1, baseTime)
	p.ReplacePosition(ghost)
	_, ok := p.Position("GHOST")
	assert.False(t, ok)
}

func TestSnapshot_LockFreeRead(t *testing.T) {
	p := newTestPortfolio(1_000_000)
	snap := p.Snapshot()
	assert.InDelta(t, 1_000_000, snap.Cash, 1e-6)
	assert.Empty(t, snap.Positions)

	_, err := p.SubmitOrder(buyOrder(100), nil)
	require.NoError(t, err)
	assert.Len(t, p.Snapshot().Positions, 1)
	// 旧快照不受后续提交影响。
	assert.Empty(t, snap.Positions)
}
