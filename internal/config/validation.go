package config

import (
	"errors"
	"fmt"
	"strings"

	"planc/internal/scheduler"
)

// ErrInvalidConfig 标记所有配置/输入校验错误，便于调用方区分。
var ErrInvalidConfig = errors.New("invalid config")

const maxLeverage = 125

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Strategy.validate(); err != nil {
		return err
	}
	if err := c.Ledger.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	if strings.TrimSpace(e.RESTBaseURL) == "" {
		return invalidf("exchange.rest_base_url cannot be empty")
	}
	if e.HTTPTimeoutSeconds <= 0 {
		return invalidf("exchange.http_timeout_seconds must be > 0")
	}
	if e.LotRulesTTLSeconds <= 0 {
		return invalidf("exchange.lot_rules_ttl_seconds must be > 0")
	}
	return nil
}

func (m *MarketConfig) validate() error {
	if strings.TrimSpace(m.Symbol) == "" {
		return invalidf("market.symbol cannot be empty")
	}
	if m.UniverseSize <= 0 || m.UniverseSize > 500 {
		return invalidf("market.universe_size must be in [1,500]")
	}
	if _, err := ValidateInterval(m.IntervalSeconds); err != nil {
		return err
	}
	if m.PriceRefreshSeconds <= 0 {
		return invalidf("market.price_refresh_seconds must be > 0")
	}
	if _, ok := scheduler.ParseIntervalDuration(m.KlineInterval); !ok {
		return invalidf("market.kline_interval %q is not a valid kline interval", m.KlineInterval)
	}
	if m.KlineLimit < 100 || m.KlineLimit > 1500 {
		return invalidf("market.kline_limit must be in [100,1500]")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if err := ValidateLeverage(t.Leverage); err != nil {
		return err
	}
	if err := ValidatePositionSize(t.PositionSizeUSD); err != nil {
		return err
	}
	if err := ValidateAutoPercent(t.AutoPercent); err != nil {
		return err
	}
	switch t.MarginMode {
	case MarginModeIsolated, MarginModeCrossed:
	default:
		return invalidf("trading.margin_mode must be ISOLATED or CROSSED, got %s", t.MarginMode)
	}
	switch t.TradeMode {
	case TradeModeBoth, TradeModeLongOnly:
	default:
		return invalidf("trading.trade_mode must be both or long_only, got %s", t.TradeMode)
	}
	if t.NeutralClosePct < 0 {
		return invalidf("trading.neutral_close_pct must be >= 0")
	}
	if t.TargetPnLUSD < 0 {
		return invalidf("trading.target_pnl_usd must be >= 0")
	}
	return nil
}

func (s *StrategyConfig) validate() error {
	if s.ATRPeriod <= 1 || s.ADXPeriod <= 1 {
		return invalidf("strategy periods must be > 1")
	}
	if s.MinCandles < s.ATRPeriod+1 || s.MinCandles < 2*s.ADXPeriod {
		return invalidf("strategy.min_candles too small for atr_period=%d adx_period=%d", s.ATRPeriod, s.ADXPeriod)
	}
	if s.TrailStdActivation > s.TrailHighActivation {
		return invalidf("strategy.trail_std_activation must be <= trail_high_activation")
	}
	if s.EmergencyStopPct >= 1 {
		return invalidf("strategy.emergency_stop_pct must be < 1")
	}
	return nil
}

func (l *LedgerConfig) validate() error {
	if strings.TrimSpace(l.TradesPath) == "" || strings.TrimSpace(l.TotalsPath) == "" {
		return invalidf("ledger.trades_path and ledger.totals_path are required")
	}
	if l.IncomeRefreshSeconds <= 0 {
		return invalidf("ledger.income_refresh_seconds must be > 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return invalidf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}

// ValidateLeverage 校验杠杆倍数。
func ValidateLeverage(lev int) error {
	if lev < 1 || lev > maxLeverage {
		return invalidf("leverage must be in [1,%d], got %d", maxLeverage, lev)
	}
	return nil
}

// ValidatePositionSize 校验固定开仓金额（USDT）。
func ValidatePositionSize(usd float64) error {
	if usd <= 0 {
		return invalidf("position size must be > 0, got %.4f", usd)
	}
	return nil
}

// ValidateAutoPercent 校验余额百分比开仓（0 表示关闭）。
func ValidateAutoPercent(pct float64) error {
	if pct < 0 || pct > 100 {
		return invalidf("auto percent must be in [0,100], got %.2f", pct)
	}
	return nil
}

// ValidateInterval 校验市场循环周期，低于下限时抬到下限。
func ValidateInterval(seconds int) (int, error) {
	if seconds <= 0 {
		return 0, invalidf("interval must be > 0 seconds, got %d", seconds)
	}
	if seconds < MinMarketIntervalSeconds {
		return MinMarketIntervalSeconds, nil
	}
	return seconds, nil
}
