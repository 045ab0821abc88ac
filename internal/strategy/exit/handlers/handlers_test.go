package handlers

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrader/internal/indicator"
	"papertrader/internal/position"
	"papertrader/internal/strategy/exit"
)

var entryTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func longPosition() position.Position {
	return position.New("AAPL", position.SideLong, 100, 10, entryTime)
}

func shortPosition() position.Position {
	return position.New("AAPL", position.SideShort, 100, 10, entryTime)
}

func TestTrailingATR(t *testing.T) {
	h := NewTrailingATR(TrailingATRConfig{Multiplier: 2})

	t.Run("long stop hit", func(t *testing.T) {
		// 最高见价 110，ATR 2.5，倍数 2 → 止损位 105。
		sig := h.Evaluate(exit.EvalContext{
			Position: longPosition(),
			Price:    104, High: 110, Low: 104,
			ATR: 2.5,
		})
		assert.True(t, sig.ShouldExit)
		assert.Equal(t, exit.OutcomeTriggered, sig.Outcome)
		assert.Equal(t, exit.ExitTypeTrailingStop, sig.ExitType)
		assert.InDelta(t, 105.0, sig.Metadata["stop_level"], 1e-9)
		require.NotNil(t, sig.UpdatedPosition)
		assert.InDelta(t, 110, sig.UpdatedPosition.HighestSeen, 1e-9)
	})

	t.Run("long above stop", func(t *testing.T) {
		// 浮盈 8% 把倍数收紧到 1.7 → 止损位 105.75。
		sig := h.Evaluate(exit.EvalContext{
			Position: longPosition(),
			Price:    108, High: 110, Low: 108,
			ATR: 2.5,
		})
		assert.False(t, sig.ShouldExit)
		assert.Equal(t, exit.OutcomeNoTrigger, sig.Outcome)
		assert.InDelta(t, 105.75, sig.Metadata["stop_level"], 1e-9)
	})

	t.Run("short stop hit", func(t *testing.T) {
		// 最低见价 90，止损位 90+5=95。
		sig := h.Evaluate(exit.EvalContext{
			Position: shortPosition(),
			Price:    96, High: 96, Low: 90,
			ATR: 2.5,
		})
		assert.True(t, sig.ShouldExit)
	})

	t.Run("missing ATR still advances extrema", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position: longPosition(),
			Price:    104, High: 112, Low: 104,
		})
		assert.False(t, sig.ShouldExit)
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
		require.NotNil(t, sig.UpdatedPosition)
		assert.InDelta(t, 112, sig.UpdatedPosition.HighestSeen, 1e-9)
	})

	t.Run("invalid position", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{Price: 100})
		assert.Equal(t, exit.ExitTypeInvalidData, sig.ExitType)
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
	})
}

func TestTightenedMultiplier(t *testing.T) {
	assert.InDelta(t, 2.0, tightenedMultiplier(2, 0.03), 1e-9)
	assert.InDelta(t, 1.7, tightenedMultiplier(2, 0.05), 1e-9)
	assert.InDelta(t, 1.4, tightenedMultiplier(2, 0.12), 1e-9)
}

func TestTimeBased(t *testing.T) {
	h := NewTimeBased(TimeBasedConfig{MaxHoldingDays: 10})

	t.Run("within limit", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position: longPosition(),
			Price:    100,
			Now:      entryTime.AddDate(0, 0, 6),
		})
		assert.False(t, sig.ShouldExit)
		assert.Equal(t, 6, sig.Metadata["time_held_days"])
		assert.InDelta(t, 0.6, sig.Metadata["time_decay_factor"].(float64), 1e-9)
	})

	t.Run("limit reached", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position: longPosition(),
			Price:    100,
			Now:      entryTime.AddDate(0, 0, 10),
		})
		assert.True(t, sig.ShouldExit)
		assert.Equal(t, exit.OutcomeTriggered, sig.Outcome)
	})

	t.Run("missing time", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100})
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
	})
}

func TestParabolicSAR(t *testing.T) {
	h := NewParabolicSAR(ParabolicSARConfig{})

	snapshotWithSAR := func(prev, curr float64) *indicator.Snapshot {
		s := indicator.NewSnapshot()
		s.Set(indicator.IDSAR, prev)
		s.Set(indicator.IDSAR, curr)
		return s
	}

	t.Run("long reversal", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position: longPosition(),
			Price:    100,
			Snapshot: snapshotWithSAR(98, 102),
		})
		assert.True(t, sig.ShouldExit)
		assert.Equal(t, exit.ExitTypeParabolicSAR, sig.ExitType)
	})

	t.Run("long no reversal", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position: longPosition(),
			Price:    100,
			Snapshot: snapshotWithSAR(97, 98),
		})
		assert.False(t, sig.ShouldExit)
		assert.Equal(t, exit.OutcomeNoTrigger, sig.Outcome)
	})

	t.Run("short reversal", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position: shortPosition(),
			Price:    100,
			Snapshot: snapshotWithSAR(103, 97),
		})
		assert.True(t, sig.ShouldExit)
	})

	t.Run("no previous observation", func(t *testing.T) {
		s := indicator.NewSnapshot()
		s.Set(indicator.IDSAR, 102)
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100, Snapshot: s})
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
	})

	t.Run("nil snapshot", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100})
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
	})
}

func TestHighLowBreak(t *testing.T) {
	h := NewHighLowBreak(HighLowConfig{})

	t.Run("long breaks period low", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position:  longPosition(),
			Price:     95,
			PeriodLow: 96, PeriodHigh: 120,
		})
		assert.True(t, sig.ShouldExit)
		assert.Equal(t, exit.ExitTypeHighLowBreak, sig.ExitType)
	})

	t.Run("short breaks period high", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position:   shortPosition(),
			Price:      121,
			PeriodHigh: 120, PeriodLow: 96,
		})
		assert.True(t, sig.ShouldExit)
	})

	t.Run("within range", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{
			Position:  longPosition(),
			Price:     100,
			PeriodLow: 96, PeriodHigh: 120,
		})
		assert.False(t, sig.ShouldExit)
		assert.Equal(t, exit.OutcomeNoTrigger, sig.Outcome)
	})

	t.Run("missing extremes", func(t *testing.T) {
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100})
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
	})
}

func TestCompound(t *testing.T) {
	snapshot := func() *indicator.Snapshot {
		s := indicator.NewSnapshot()
		s.Set(indicator.IDRSI, 75)
		s.Set(indicator.IDMACDHist, 0.5)
		s.Set(indicator.IDMACDHist, -0.2)
		return s
	}

	t.Run("AND all met", func(t *testing.T) {
		h := NewCompound(CompoundConfig{
			Conditions: []Condition{
				{Indicator: indicator.IDRSI, Threshold: 70, Operator: OpAbove},
				{Indicator: indicator.IDMACDHist, Threshold: 0, Operator: OpCrossBelow},
			},
			RequireAll: true,
		})
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100, Snapshot: snapshot()})
		assert.True(t, sig.ShouldExit)
		assert.Equal(t, exit.ExitTypeCompound, sig.ExitType)
	})

	t.Run("AND one unmet", func(t *testing.T) {
		h := NewCompound(CompoundConfig{
			Conditions: []Condition{
				{Indicator: indicator.IDRSI, Threshold: 80, Operator: OpAbove},
				{Indicator: indicator.IDMACDHist, Threshold: 0, Operator: OpCrossBelow},
			},
			RequireAll: true,
		})
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100, Snapshot: snapshot()})
		assert.False(t, sig.ShouldExit)
		assert.Equal(t, exit.OutcomeNoTrigger, sig.Outcome)
	})

	t.Run("AND with unevaluable condition", func(t *testing.T) {
		h := NewCompound(CompoundConfig{
			Conditions: []Condition{
				{Indicator: indicator.IDRSI, Threshold: 70, Operator: OpAbove},
				{Indicator: indicator.IDADX, Threshold: 25, Operator: OpAbove},
			},
			RequireAll: true,
		})
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100, Snapshot: snapshot()})
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
	})

	t.Run("OR skips unevaluable", func(t *testing.T) {
		h := NewCompound(CompoundConfig{
			Conditions: []Condition{
				{Indicator: indicator.IDADX, Threshold: 25, Operator: OpAbove},
				{Indicator: indicator.IDRSI, Threshold: 70, Operator: OpAbove},
			},
		})
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100, Snapshot: snapshot()})
		assert.True(t, sig.ShouldExit)
	})

	t.Run("OR all unevaluable", func(t *testing.T) {
		h := NewCompound(CompoundConfig{
			Conditions: []Condition{{Indicator: indicator.IDADX, Threshold: 25, Operator: OpAbove}},
		})
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100, Snapshot: snapshot()})
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
	})

	t.Run("touch with explicit threshold", func(t *testing.T) {
		s := indicator.NewSnapshot()
		s.Set(indicator.IDBBUpper, 100.5)
		h := NewCompound(CompoundConfig{
			Conditions: []Condition{{Indicator: indicator.IDBBUpper, Threshold: 100, Operator: OpTouch}},
		})
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100, Snapshot: s})
		assert.True(t, sig.ShouldExit)
	})

	t.Run("no conditions configured", func(t *testing.T) {
		h := NewCompound(CompoundConfig{})
		sig := h.Evaluate(exit.EvalContext{Position: longPosition(), Price: 100, Snapshot: snapshot()})
		assert.Equal(t, exit.OutcomeCannotEvaluate, sig.Outcome)
	})
}

func TestParseOperator(t *testing.T) {
	op, ok := ParseOperator(" Cross_Above ")
	assert.True(t, ok)
	assert.Equal(t, OpCrossAbove, op)
	_, ok = ParseOperator("between")
	assert.False(t, ok)
}

func TestObserveFallsBackToPrice(t *testing.T) {
	pos := longPosition()
	updated := observe(pos, evalPrices{Price: 107, High: math.NaN(), Low: math.NaN()})
	assert.InDelta(t, 107, updated.HighestSeen, 1e-9)
	assert.InDelta(t, 100, updated.LowestSeen, 1e-9)
}
