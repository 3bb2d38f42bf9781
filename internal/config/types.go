package config

import "strings"

// Config 是 planc 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Exchange ExchangeConfig `toml:"exchange"`
	Market   MarketConfig   `toml:"market"`
	Trading  TradingConfig  `toml:"trading"`
	Strategy StrategyConfig `toml:"strategy"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env        string `toml:"env"`
	LogLevel   string `toml:"log_level"`
	HTTPAddr   string `toml:"http_addr"`
	LogPath    string `toml:"log_path"`
	LogMaxMB   int    `toml:"log_max_mb"`
	EventLines int    `toml:"event_lines"`
	WatchFile  bool   `toml:"watch_config"`
}

// ExchangeConfig 描述 Binance U 本位合约接入方式；密钥优先读取环境变量。
type ExchangeConfig struct {
	RESTBaseURL        string `toml:"rest_base_url"`
	Testnet            bool   `toml:"testnet"`
	APIKey             string `toml:"api_key"`
	APISecret          string `toml:"api_secret"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	LotRulesTTLSeconds int    `toml:"lot_rules_ttl_seconds"`
}

// MarketConfig 控制市场宽度监控与 K 线获取。
type MarketConfig struct {
	Symbol                 string `toml:"symbol"`
	UniverseSize           int    `toml:"universe_size"`
	UniverseRefreshMinutes int    `toml:"universe_refresh_minutes"`
	PaprikaURL             string `toml:"paprika_url"`
	IntervalSeconds        int    `toml:"interval_seconds"`
	PriceRefreshSeconds    int    `toml:"price_refresh_seconds"`
	KlineInterval          string `toml:"kline_interval"`
	KlineLimit             int    `toml:"kline_limit"`
}

// TradingConfig 是运行期可调整的交易参数。
type TradingConfig struct {
	AutoEnabled     bool    `toml:"auto_enabled"`
	Leverage        int     `toml:"leverage"`
	MarginMode      string  `toml:"margin_mode"`
	PositionSizeUSD float64 `toml:"position_size_usd"`
	AutoPercent     float64 `toml:"auto_percent"`      // 可用余额百分比，>0 时优先于固定金额
	NeutralClosePct float64 `toml:"neutral_close_pct"` // 中性行情下 |24h 涨跌幅| 超过该值强平
	TargetPnLUSD    float64 `toml:"target_pnl_usd"`
	TradeMode       string  `toml:"trade_mode"` // "both" | "long_only"
}

// StrategyConfig 是 PLANC 策略参数，运行期间不可变。
type StrategyConfig struct {
	ATRPeriod           int     `toml:"atr_period"`
	ATRMultiplier       float64 `toml:"atr_multiplier"`
	ADXPeriod           int     `toml:"adx_period"`
	ADXThreshold        float64 `toml:"adx_threshold"`
	MinCandles          int     `toml:"min_candles"`
	EmergencyStopPct    float64 `toml:"emergency_stop_pct"`
	BreakevenTriggerPct float64 `toml:"breakeven_trigger_pct"`
	FeeBufferPct        float64 `toml:"fee_buffer_pct"`
	TrailStdActivation  float64 `toml:"trail_std_activation"`
	TrailStdCallback    float64 `toml:"trail_std_callback"`
	TrailHighActivation float64 `toml:"trail_high_activation"`
	TrailHighCallback   float64 `toml:"trail_high_callback"`
}

type LedgerConfig struct {
	TradesPath           string `toml:"trades_path"`
	TotalsPath           string `toml:"totals_path"`
	IncomeDBPath         string `toml:"income_db_path"`
	IncomeRefreshSeconds int    `toml:"income_refresh_seconds"`
	IncomeLookbackDays   int    `toml:"income_lookback_days"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// LongOnly 判断是否禁止开空。
func (t TradingConfig) LongOnly() bool {
	return strings.EqualFold(strings.TrimSpace(t.TradeMode), TradeModeLongOnly)
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
