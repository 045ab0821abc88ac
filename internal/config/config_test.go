package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.InDelta(t, 1_000_000, cfg.Trading.InitialBalance, 1e-6)
	assert.InDelta(t, 20, cfg.Risk.MaxPositionPercent, 1e-9)
	assert.True(t, cfg.Risk.EnableAutoStopLoss)
	assert.True(t, cfg.Risk.EnableCircuitBreaker)
	assert.InDelta(t, 0.25, cfg.Risk.KellyFraction, 1e-9)
	assert.Equal(t, 10, cfg.Exit.MaxHoldingDays)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Risk.MaxPositions)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
app:
  log_level: debug
trading:
  initial_balance: 50000
risk:
  max_positions: 3
  enable_circuit_breaker: false
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.InDelta(t, 50000, cfg.Trading.InitialBalance, 1e-6)
	assert.Equal(t, 3, cfg.Risk.MaxPositions)
	assert.False(t, cfg.Risk.EnableCircuitBreaker)
	// 未出现的键保持默认。
	assert.InDelta(t, 2, cfg.Trading.RiskPercentage, 1e-9)
	assert.True(t, cfg.Risk.EnableAutoStopLoss)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"negative balance":  "trading:\n  initial_balance: -5\n",
		"risk out of range": "risk:\n  max_risk_per_trade: 150\n",
		"bad kelly":         "risk:\n  kelly_fraction: 1.5\n",
		"min above max":     "sizing:\n  min_position_percent: 50\n  max_position_percent: 10\n",
		"zero holding days": "exit:\n  max_holding_days: 0\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestGatePolicy(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	policy := cfg.Risk.GatePolicy()
	assert.InDelta(t, 20, policy.MaxDrawdownPercent, 1e-9)
	assert.Equal(t, 50*time.Millisecond, policy.MinOrderSpacing)
	assert.Equal(t, 10*time.Minute, policy.BreakerCooldown)
}

func TestSizerPolicy(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	policy := cfg.Sizing.SizerPolicy()
	assert.InDelta(t, 10, policy.MaxPositionPercent, 1e-9)
	assert.InDelta(t, 0.5, policy.MinPositionPercent, 1e-9)
	assert.InDelta(t, 0.8, policy.LowConfidenceFactor, 1e-9)
}
