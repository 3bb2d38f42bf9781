package engine

import (
	"context"
	"fmt"
	"strings"

	"planc/internal/config"
	"planc/internal/logger"
	"planc/internal/pkg/symbol"
)

// Settings 是运行期可调整的参数，读写都经过 Engine 的锁。
type Settings struct {
	Symbol              string  `json:"symbol"`
	Leverage            int     `json:"leverage"`
	MarginMode          string  `json:"margin_mode"`
	PositionSizeUSD     float64 `json:"position_size_usd"`
	AutoPercent         float64 `json:"auto_percent"`
	IntervalSeconds     int     `json:"interval_seconds"`
	PriceRefreshSeconds int     `json:"price_refresh_seconds"`
	AutoEnabled         bool    `json:"auto_enabled"`
	NeutralClosePct     float64 `json:"neutral_close_pct"`
	TargetPnLUSD        float64 `json:"target_pnl_usd"`
	TradeMode           string  `json:"trade_mode"`
	KlineInterval       string  `json:"kline_interval"`
	KlineLimit          int     `json:"kline_limit"`
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Symbol:              symbol.Normalize(cfg.Market.Symbol),
		Leverage:            cfg.Trading.Leverage,
		MarginMode:          cfg.Trading.MarginMode,
		PositionSizeUSD:     cfg.Trading.PositionSizeUSD,
		AutoPercent:         cfg.Trading.AutoPercent,
		IntervalSeconds:     cfg.Market.IntervalSeconds,
		PriceRefreshSeconds: cfg.Market.PriceRefreshSeconds,
		AutoEnabled:         cfg.Trading.AutoEnabled,
		NeutralClosePct:     cfg.Trading.NeutralClosePct,
		TargetPnLUSD:        cfg.Trading.TargetPnLUSD,
		TradeMode:           cfg.Trading.TradeMode,
		KlineInterval:       cfg.Market.KlineInterval,
		KlineLimit:          cfg.Market.KlineLimit,
	}
}

// SettingsPatch 描述一次部分更新，nil 字段保持不变。
type SettingsPatch struct {
	Leverage        *int     `json:"leverage,omitempty"`
	PositionSizeUSD *float64 `json:"position_size_usd,omitempty"`
	AutoPercent     *float64 `json:"auto_percent,omitempty"`
	IntervalSeconds *int     `json:"interval_seconds,omitempty"`
	NeutralClosePct *float64 `json:"neutral_close_pct,omitempty"`
	TargetPnLUSD    *float64 `json:"target_pnl_usd,omitempty"`
	TradeMode       *string  `json:"trade_mode,omitempty"`
	MarginMode      *string  `json:"margin_mode,omitempty"`
}

// apply 先校验全部字段再写入，任一字段非法时整个 patch 被拒绝。
func (p SettingsPatch) apply(s Settings) (Settings, error) {
	next := s
	if p.Leverage != nil {
		if err := config.ValidateLeverage(*p.Leverage); err != nil {
			return s, err
		}
		next.Leverage = *p.Leverage
	}
	if p.PositionSizeUSD != nil {
		if err := config.ValidatePositionSize(*p.PositionSizeUSD); err != nil {
			return s, err
		}
		next.PositionSizeUSD = *p.PositionSizeUSD
	}
	if p.AutoPercent != nil {
		if err := config.ValidateAutoPercent(*p.AutoPercent); err != nil {
			return s, err
		}
		next.AutoPercent = *p.AutoPercent
	}
	if p.IntervalSeconds != nil {
		sec, err := config.ValidateInterval(*p.IntervalSeconds)
		if err != nil {
			return s, err
		}
		next.IntervalSeconds = sec
	}
	if p.NeutralClosePct != nil {
		if *p.NeutralClosePct < 0 {
			return s, fmt.Errorf("%w: neutral close pct must be >= 0", config.ErrInvalidConfig)
		}
		next.NeutralClosePct = *p.NeutralClosePct
	}
	if p.TargetPnLUSD != nil {
		if *p.TargetPnLUSD < 0 {
			return s, fmt.Errorf("%w: target pnl must be >= 0", config.ErrInvalidConfig)
		}
		next.TargetPnLUSD = *p.TargetPnLUSD
	}
	if p.TradeMode != nil {
		mode := strings.ToLower(strings.TrimSpace(*p.TradeMode))
		if mode != config.TradeModeBoth && mode != config.TradeModeLongOnly {
			return s, fmt.Errorf("%w: trade mode must be both or long_only, got %q", config.ErrInvalidConfig, *p.TradeMode)
		}
		next.TradeMode = mode
	}
	if p.MarginMode != nil {
		mode := strings.ToUpper(strings.TrimSpace(*p.MarginMode))
		if mode != config.MarginModeIsolated && mode != config.MarginModeCrossed {
			return s, fmt.Errorf("%w: margin mode must be ISOLATED or CROSSED, got %q", config.ErrInvalidConfig, *p.MarginMode)
		}
		next.MarginMode = mode
	}
	return next, nil
}

func (e *Engine) Settings() Settings {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	return e.settings
}

// UpdateSettings 校验并应用部分参数；校验失败时保留原值。
func (e *Engine) UpdateSettings(p SettingsPatch) (Settings, error) {
	e.settingsMu.Lock()
	next, err := p.apply(e.settings)
	if err != nil {
		e.settingsMu.Unlock()
		logger.Warnf("settings rejected: %v", err)
		return e.Settings(), err
	}
	e.settings = next
	e.settingsMu.Unlock()
	e.strategy.SetLongOnly(next.TradeMode == config.TradeModeLongOnly)
	logger.Infof("settings updated: lev=%d size=%.2f auto%%=%.2f interval=%ds neutral=%.2f%% target=%.2f mode=%s margin=%s",
		next.Leverage, next.PositionSizeUSD, next.AutoPercent, next.IntervalSeconds,
		next.NeutralClosePct, next.TargetPnLUSD, next.TradeMode, next.MarginMode)
	return next, nil
}

func (e *Engine) SetLeverage(lev int) error {
	_, err := e.UpdateSettings(SettingsPatch{Leverage: &lev})
	return err
}

func (e *Engine) SetPositionSize(usd float64) error {
	_, err := e.UpdateSettings(SettingsPatch{PositionSizeUSD: &usd})
	return err
}

func (e *Engine) SetAutoPercent(pct float64) error {
	_, err := e.UpdateSettings(SettingsPatch{AutoPercent: &pct})
	return err
}

// SetInterval 设置市场循环周期，返回实际生效的秒数（低于下限时被抬高）。
func (e *Engine) SetInterval(seconds int) (int, error) {
	s, err := e.UpdateSettings(SettingsPatch{IntervalSeconds: &seconds})
	return s.IntervalSeconds, err
}

func (e *Engine) SetAuto(enabled bool) {
	e.settingsMu.Lock()
	e.settings.AutoEnabled = enabled
	e.settingsMu.Unlock()
	logger.Infof("auto trading %s", map[bool]string{true: "enabled", false: "disabled"}[enabled])
}

// SetSymbol 切换跟踪交易对：清空编排器冷却，并重建宽度与动量基线。
func (e *Engine) SetSymbol(ctx context.Context, raw string) error {
	sym := symbol.Normalize(raw)
	if sym == "" {
		return fmt.Errorf("%w: symbol cannot be empty", config.ErrInvalidConfig)
	}
	if e.rules != nil && e.Connected() {
		tradable, err := e.rules.Tradable(ctx)
		if err == nil && len(tradable) > 0 && !tradable[sym] {
			return fmt.Errorf("%w: %s is not a tradable USDT perpetual", config.ErrInvalidConfig, sym)
		}
	}
	e.settingsMu.Lock()
	prev := e.settings.Symbol
	e.settings.Symbol = sym
	e.settingsMu.Unlock()
	if prev == sym {
		return nil
	}
	e.orch.Reset()
	e.priceMu.Lock()
	e.lastPrice = 0
	e.priceMu.Unlock()
	logger.Infof("tracked symbol changed: %s -> %s", prev, sym)
	if err := e.monitor.Reset(ctx, sym); err != nil {
		logger.Warnf("breadth baseline reset for %s failed, will reseed next cycle: %v", sym, err)
	}
	return nil
}

// ApplyConfig 把重新加载的配置中的可调参数应用到运行中的引擎。
func (e *Engine) ApplyConfig(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		return
	}
	t := cfg.Trading
	interval := cfg.Market.IntervalSeconds
	patch := SettingsPatch{
		Leverage:        &t.Leverage,
		PositionSizeUSD: &t.PositionSizeUSD,
		AutoPercent:     &t.AutoPercent,
		IntervalSeconds: &interval,
		NeutralClosePct: &t.NeutralClosePct,
		TargetPnLUSD:    &t.TargetPnLUSD,
		TradeMode:       &t.TradeMode,
		MarginMode:      &t.MarginMode,
	}
	if _, err := e.UpdateSettings(patch); err != nil {
		logger.Errorf("config reload rejected, keeping previous settings: %v", err)
		return
	}
	e.SetAuto(t.AutoEnabled)
	if err := e.SetSymbol(ctx, cfg.Market.Symbol); err != nil {
		logger.Errorf("config reload: symbol rejected: %v", err)
	}
}
