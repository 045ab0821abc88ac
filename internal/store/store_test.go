package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrader/internal/portfolio"
	"papertrader/internal/position"
	"papertrader/internal/riskgate"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestRecordValidation_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	req := riskgate.OrderRequest{Symbol: "aapl", Side: "buy", Quantity: 5000, Price: 100}
	res := riskgate.Result{
		Allowed:          true,
		AdjustedQuantity: 2000,
		StopLossPrice:    95,
		TakeProfitPrice:  107.5,
		Reasons:          []string{"quantity reduced"},
		Violations: []riskgate.Violation{
			{Type: riskgate.ViolationRiskPerTrade, Severity: riskgate.SeveritySoft, Message: "shrunk"},
		},
	}
	require.NoError(t, s.RecordValidation(req, res))

	records, err := s.RecentAudits(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	got := records[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.InDelta(t, 5000, got.RequestedQty, 1e-9)
	assert.InDelta(t, 2000, got.AdjustedQty, 1e-9)
	assert.True(t, got.Allowed)
	assert.Contains(t, got.ReasonsJSON, "quantity reduced")
	assert.Contains(t, got.ViolationsJSON, "risk_per_trade")
}

func TestRecordClosedTrade_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	opened := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	trade := portfolio.ClosedTrade{
		Symbol:      "TSLA",
		Side:        position.SideShort,
		Quantity:    50,
		EntryPrice:  200,
		ExitPrice:   180,
		RealizedPnL: 1000,
		Reason:      "cover",
		OpenedAt:    opened,
		ClosedAt:    opened.AddDate(0, 0, 3),
	}
	require.NoError(t, s.RecordClosedTrade(trade))

	records, err := s.RecentTrades(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TSLA", records[0].Symbol)
	assert.Equal(t, "short", records[0].Side)
	assert.InDelta(t, 1000, records[0].RealizedPnL, 1e-9)
}

func TestRecentLimits(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		req := riskgate.OrderRequest{Symbol: "AAPL", Side: "buy", Quantity: 1, Price: 100}
		require.NoError(t, s.RecordValidation(req, riskgate.Result{Allowed: true, AdjustedQuantity: 1}))
	}
	records, err := s.RecentAudits(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	// limit<=0 使用默认值。
	records, err = s.RecentAudits(0)
	require.NoError(t, err)
	assert.Len(t, records, 5)
}
