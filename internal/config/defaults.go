package config

import (
	"strings"
)

const (
	TradeModeBoth     = "both"
	TradeModeLongOnly = "long_only"

	MarginModeIsolated = "ISOLATED"
	MarginModeCrossed  = "CROSSED"
)

// 默认值常量
const (
	defaultAppEnv           = "test"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9992"
	defaultAppLogMaxMB      = 50
	defaultAppEventLines    = 500
	defaultExchangeREST     = "https://fapi.binance.com"
	defaultExchangeTimeout  = 15
	defaultLotRulesTTL      = 600
	defaultMarketSymbol     = "BTCUSDT"
	defaultUniverseSize     = 100
	defaultUniverseRefresh  = 60
	defaultPaprikaURL       = "https://api.coinpaprika.com/v1"
	defaultMarketInterval   = 60
	defaultPriceRefresh     = 1
	defaultKlineInterval    = "15m"
	defaultKlineLimit       = 200
	defaultLeverage         = 3
	defaultPositionSizeUSD  = 20
	defaultNeutralClosePct  = 2
	defaultATRPeriod        = 10
	defaultATRMultiplier    = 3.0
	defaultADXPeriod        = 14
	defaultADXThreshold     = 25
	defaultMinCandles       = 100
	defaultEmergencyStop    = 0.05
	defaultBreakevenTrigger = 0.003
	defaultFeeBuffer        = 0.0015
	defaultTrailStdAct      = 0.015
	defaultTrailStdCallback = 0.005
	defaultTrailHighAct     = 0.020
	defaultTrailHighCb      = 0.004
	defaultTradesPath       = "data/trades_history.csv"
	defaultTotalsPath       = "data/totals_history.csv"
	defaultIncomeDB         = "data/income.db"
	defaultIncomeRefresh    = 60
	defaultIncomeLookback   = 7
)

// MinMarketIntervalSeconds 是市场循环允许的最小周期。
const MinMarketIntervalSeconds = 5

// Default 返回全部字段取默认值的配置，用于无配置文件启动与测试。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(keySet{})
	return cfg
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Strategy.applyDefaults(keys)
	c.Ledger.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		intFieldDefault("app.log_max_mb", &a.LogMaxMB, defaultAppLogMaxMB),
		intFieldDefault("app.event_lines", &a.EventLines, defaultAppEventLines),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.rest_base_url", &e.RESTBaseURL, defaultExchangeREST),
		intFieldDefault("exchange.http_timeout_seconds", &e.HTTPTimeoutSeconds, defaultExchangeTimeout),
		intFieldDefault("exchange.lot_rules_ttl_seconds", &e.LotRulesTTLSeconds, defaultLotRulesTTL),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.symbol", &m.Symbol, defaultMarketSymbol),
		intFieldDefault("market.universe_size", &m.UniverseSize, defaultUniverseSize),
		intFieldDefault("market.universe_refresh_minutes", &m.UniverseRefreshMinutes, defaultUniverseRefresh),
		stringFieldDefault("market.paprika_url", &m.PaprikaURL, defaultPaprikaURL),
		intFieldDefault("market.interval_seconds", &m.IntervalSeconds, defaultMarketInterval),
		intFieldDefault("market.price_refresh_seconds", &m.PriceRefreshSeconds, defaultPriceRefresh),
		stringFieldDefault("market.kline_interval", &m.KlineInterval, defaultKlineInterval),
		intFieldDefault("market.kline_limit", &m.KlineLimit, defaultKlineLimit),
	)
	m.Symbol = strings.ToUpper(strings.TrimSpace(m.Symbol))
	// 与界面行为一致：低于下限的周期直接抬到下限
	if m.IntervalSeconds > 0 && m.IntervalSeconds < MinMarketIntervalSeconds {
		m.IntervalSeconds = MinMarketIntervalSeconds
	}
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("trading.leverage", &t.Leverage, defaultLeverage),
		stringFieldDefault("trading.margin_mode", &t.MarginMode, MarginModeIsolated),
		stringFieldDefault("trading.trade_mode", &t.TradeMode, TradeModeBoth),
		fieldDefault{
			key:   "trading.position_size_usd",
			need:  func() bool { return t.PositionSizeUSD <= 0 },
			apply: func() { t.PositionSizeUSD = defaultPositionSizeUSD },
		},
		fieldDefault{
			key:   "trading.neutral_close_pct",
			need:  func() bool { return t.NeutralClosePct <= 0 },
			apply: func() { t.NeutralClosePct = defaultNeutralClosePct },
		},
	)
	t.MarginMode = strings.ToUpper(strings.TrimSpace(t.MarginMode))
	t.TradeMode = strings.ToLower(strings.TrimSpace(t.TradeMode))
	if t.AutoPercent < 0 {
		t.AutoPercent = 0
	}
}

func (s *StrategyConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("strategy.atr_period", &s.ATRPeriod, defaultATRPeriod),
		floatFieldDefault("strategy.atr_multiplier", &s.ATRMultiplier, defaultATRMultiplier),
		intFieldDefault("strategy.adx_period", &s.ADXPeriod, defaultADXPeriod),
		floatFieldDefault("strategy.adx_threshold", &s.ADXThreshold, defaultADXThreshold),
		intFieldDefault("strategy.min_candles", &s.MinCandles, defaultMinCandles),
		floatFieldDefault("strategy.emergency_stop_pct", &s.EmergencyStopPct, defaultEmergencyStop),
		floatFieldDefault("strategy.breakeven_trigger_pct", &s.BreakevenTriggerPct, defaultBreakevenTrigger),
		floatFieldDefault("strategy.fee_buffer_pct", &s.FeeBufferPct, defaultFeeBuffer),
		floatFieldDefault("strategy.trail_std_activation", &s.TrailStdActivation, defaultTrailStdAct),
		floatFieldDefault("strategy.trail_std_callback", &s.TrailStdCallback, defaultTrailStdCallback),
		floatFieldDefault("strategy.trail_high_activation", &s.TrailHighActivation, defaultTrailHighAct),
		floatFieldDefault("strategy.trail_high_callback", &s.TrailHighCallback, defaultTrailHighCb),
	)
}

func (l *LedgerConfig) applyDefaults(keys keySet) {
	if l == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ledger.trades_path", &l.TradesPath, defaultTradesPath),
		stringFieldDefault("ledger.totals_path", &l.TotalsPath, defaultTotalsPath),
		stringFieldDefault("ledger.income_db_path", &l.IncomeDBPath, defaultIncomeDB),
		intFieldDefault("ledger.income_refresh_seconds", &l.IncomeRefreshSeconds, defaultIncomeRefresh),
		intFieldDefault("ledger.income_lookback_days", &l.IncomeLookbackDays, defaultIncomeLookback),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
