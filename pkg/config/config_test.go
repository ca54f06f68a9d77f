package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
trading:
  symbols: [AAPL, BTC-USD]
`

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, ModeShortTerm, cfg.Trading.Mode)
	assert.True(t, cfg.Trading.DryRun)
	assert.Equal(t, 0.6, cfg.Trading.MinConfidence)
	assert.True(t, cfg.Trading.RequireMultiStrategy)
	assert.Equal(t, 0.7, cfg.Trading.ExecutionConfidence)
	assert.Equal(t, 500*time.Millisecond, cfg.Trading.CycleBudget)
	assert.Equal(t, 1000, cfg.Trading.SignalHistorySize)
	assert.Equal(t, 4, cfg.Escalation.Workers)
	assert.Equal(t, "sqlite", cfg.Journal.Backend)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Len(t, cfg.Strategies.ShortTerm, 5)
	assert.Len(t, cfg.Strategies.LongTerm, 3)
}

func TestParse_ExplicitFalseOverridesDefault(t *testing.T) {
	cfg, err := Parse([]byte(`
trading:
  symbols: [AAPL]
  dry_run: false
  require_multi_strategy: false
`))
	require.NoError(t, err)
	assert.False(t, cfg.Trading.DryRun)
	assert.False(t, cfg.Trading.RequireMultiStrategy)
}

func TestParse_Validation(t *testing.T) {
	_, err := Parse([]byte(`trading: {symbols: []}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`
trading:
  symbols: [AAPL]
  mode: day_trading
`))
	assert.Error(t, err)

	_, err = Parse([]byte(`
trading:
  symbols: [AAPL]
kafka:
  enabled: true
`))
	assert.Error(t, err)
}

func TestIntervals(t *testing.T) {
	short := IntervalsFor(ModeShortTerm)
	assert.Equal(t, 5*time.Second, short.Market)
	assert.Equal(t, 15*time.Minute, short.News)
	assert.Equal(t, 15*time.Minute, short.Announcements)

	long := IntervalsFor(ModeLongTerm)
	assert.Equal(t, 15*time.Second, long.Market)
	assert.Equal(t, time.Hour, long.News)
	assert.Equal(t, time.Hour, long.Announcements)
}

func TestStrategySet_FollowsMode(t *testing.T) {
	cfg, err := Parse([]byte(`
trading:
  symbols: [AAPL]
  mode: long_term
strategies:
  long_term:
    - {name: trend_following, enabled: true, weight: 2}
`))
	require.NoError(t, err)

	set := cfg.StrategySet()
	require.Len(t, set, 1)
	assert.Equal(t, "trend_following", set[0].Name)
	assert.Equal(t, 2.0, set[0].Weight)
	assert.Len(t, cfg.Strategies.ShortTerm, 5)
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	t.Setenv("TRADING_MODE", "long_term")
	t.Setenv("SYMBOLS", "msft, nvda")
	t.Setenv("DRY_RUN", "false")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")

	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, ModeLongTerm, cfg.Trading.Mode)
	assert.Equal(t, []string{"MSFT", "NVDA"}, cfg.Trading.Symbols)
	assert.False(t, cfg.Trading.DryRun)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, 15*time.Second, cfg.Intervals().Market)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
