package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, validate(cfg))
	assert.Equal(t, "BTCUSDT", cfg.Market.Symbol)
	assert.Equal(t, 60, cfg.Market.IntervalSeconds)
	assert.Equal(t, MarginModeIsolated, cfg.Trading.MarginMode)
	assert.Equal(t, 2.0, cfg.Trading.NeutralClosePct)
	assert.False(t, cfg.Trading.LongOnly())
}

func TestLoad_IncludeChainAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
market:
  symbol: ethusdt
  interval_seconds: 3
trading:
  leverage: 5
`)
	main := writeFile(t, dir, "planc.yaml", `
include:
  - base.yaml
trading:
  leverage: 10
  margin_mode: crossed
  trade_mode: LONG_ONLY
`)
	t.Setenv(EnvAPIKey, "k-env")
	t.Setenv(EnvAPISecret, "s-env")

	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", cfg.Market.Symbol)
	assert.Equal(t, MinMarketIntervalSeconds, cfg.Market.IntervalSeconds)
	assert.Equal(t, 10, cfg.Trading.Leverage)
	assert.Equal(t, MarginModeCrossed, cfg.Trading.MarginMode)
	assert.True(t, cfg.Trading.LongOnly())
	assert.Equal(t, "k-env", cfg.Exchange.APIKey)
	assert.Equal(t, "s-env", cfg.Exchange.APISecret)
}

func TestLoad_IncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoad_RejectsInvalidTrading(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "trading:\n  leverage: 200\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoad_ExplicitZeroIsNotDefaulted(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "zero.yaml", "exchange:\n  http_timeout_seconds: 0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http_timeout_seconds")
}

func TestValidateHelpers(t *testing.T) {
	assert.NoError(t, ValidateLeverage(1))
	assert.NoError(t, ValidateLeverage(125))
	assert.Error(t, ValidateLeverage(0))
	assert.Error(t, ValidatePositionSize(0))
	assert.Error(t, ValidateAutoPercent(101))

	got, err := ValidateInterval(2)
	require.NoError(t, err)
	assert.Equal(t, 5, got)
	got, err = ValidateInterval(30)
	require.NoError(t, err)
	assert.Equal(t, 30, got)
	_, err = ValidateInterval(0)
	assert.Error(t, err)
}

func TestValidate_TelegramRequiresCredentials(t *testing.T) {
	cfg := Default()
	cfg.Notify.Telegram.Enabled = true
	assert.Error(t, validate(cfg))
	cfg.Notify.Telegram.BotToken = "t"
	cfg.Notify.Telegram.ChatID = "1"
	assert.NoError(t, validate(cfg))
}
