package position

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var entryTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestParseSide(t *testing.T) {
	cases := map[string]Side{
		"long":  SideLong,
		"BUY":   SideLong,
		" buy ": SideLong,
		"short": SideShort,
		"Sell":  SideShort,
	}
	for in, want := range cases {
		got, ok := ParseSide(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSide("hold")
	assert.False(t, ok)
}

func TestNew_InitializesExtremaAtEntry(t *testing.T) {
	p := New("aapl", SideLong, 150, 10, entryTime)
	assert.Equal(t, "AAPL", p.Symbol)
	assert.InDelta(t, 150, p.HighestSeen, 1e-9)
	assert.InDelta(t, 150, p.LowestSeen, 1e-9)
	assert.True(t, p.Valid())
}

func TestRecordObservation_MonotonicExtrema(t *testing.T) {
	p := New("AAPL", SideLong, 100, 10, entryTime)

	p = p.RecordObservation(110, 95)
	assert.InDelta(t, 110, p.HighestSeen, 1e-9)
	assert.InDelta(t, 95, p.LowestSeen, 1e-9)

	// 极值永不回退。
	p = p.RecordObservation(105, 98)
	assert.InDelta(t, 110, p.HighestSeen, 1e-9)
	assert.InDelta(t, 95, p.LowestSeen, 1e-9)

	// 非法观测被忽略。
	p = p.RecordObservation(math.NaN(), -1)
	assert.InDelta(t, 110, p.HighestSeen, 1e-9)
	assert.InDelta(t, 95, p.LowestSeen, 1e-9)
}

func TestAverageIn(t *testing.T) {
	p := New("AAPL", SideLong, 100, 100, entryTime)
	p = p.AverageIn(100, 110)
	assert.InDelta(t, 200, p.Quantity, 1e-9)
	assert.InDelta(t, 105, p.EntryPrice, 1e-9)

	// 非法加仓不改变状态。
	q := p.AverageIn(0, 120)
	assert.Equal(t, p, q)
	q = p.AverageIn(10, math.Inf(1))
	assert.Equal(t, p, q)
}

func TestDaysHeld(t *testing.T) {
	p := New("AAPL", SideLong, 100, 10, entryTime)
	assert.Equal(t, 0, p.DaysHeld(entryTime))
	assert.Equal(t, 0, p.DaysHeld(entryTime.Add(23*time.Hour)))
	assert.Equal(t, 6, p.DaysHeld(entryTime.AddDate(0, 0, 6)))
	assert.Equal(t, 0, p.DaysHeld(entryTime.Add(-time.Hour)))
}

func TestUnrealizedGainPct(t *testing.T) {
	long := New("AAPL", SideLong, 100, 10, entryTime)
	assert.InDelta(t, 0.08, long.UnrealizedGainPct(108), 1e-9)

	short := New("AAPL", SideShort, 100, 10, entryTime)
	assert.InDelta(t, 0.08, short.UnrealizedGainPct(92), 1e-9)
	assert.InDelta(t, -0.08, short.UnrealizedGainPct(108), 1e-9)

	assert.Zero(t, long.UnrealizedGainPct(math.NaN()))
}

func TestValid(t *testing.T) {
	assert.False(t, Position{}.Valid())
	assert.False(t, New("AAPL", SideLong, 0, 10, entryTime).Valid())
	assert.False(t, New("AAPL", SideLong, 100, 0, entryTime).Valid())
	assert.False(t, New("AAPL", "flat", 100, 10, entryTime).Valid())
	assert.False(t, New("AAPL", SideLong, 100, 10, time.Time{}).Valid())
	assert.True(t, New("AAPL", SideShort, 100, 10, entryTime).Valid())
}
