package app

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"planc/internal/config"
	"planc/internal/logger"
	"planc/internal/strategy"
)

type StartupSummary struct {
	Exchange ExchangeSummary
	Trading  TradingSummary
	Strategy StrategySummary
	Services []string
}

type ExchangeSummary struct {
	Name     string
	Testnet  bool
	HasKeys  bool
	Symbol   string
	Universe int
}

type TradingSummary struct {
	Auto        bool
	Leverage    int
	MarginMode  string
	SizeUSD     float64
	AutoPercent float64
	Interval    int
	TradeMode   string
}

type StrategySummary struct {
	Name      string
	ATR       string
	ADX       string
	Exits     []string
	Timeframe string
}

func newStartupSummary(cfg *config.Config, exchangeName string, services []string) *StartupSummary {
	st := cfg.Strategy
	return &StartupSummary{
		Exchange: ExchangeSummary{
			Name:     exchangeName,
			Testnet:  cfg.Exchange.Testnet,
			HasKeys:  cfg.Exchange.APIKey != "" && cfg.Exchange.APISecret != "",
			Symbol:   cfg.Market.Symbol,
			Universe: cfg.Market.UniverseSize,
		},
		Trading: TradingSummary{
			Auto:        cfg.Trading.AutoEnabled,
			Leverage:    cfg.Trading.Leverage,
			MarginMode:  cfg.Trading.MarginMode,
			SizeUSD:     cfg.Trading.PositionSizeUSD,
			AutoPercent: cfg.Trading.AutoPercent,
			Interval:    cfg.Market.IntervalSeconds,
			TradeMode:   cfg.Trading.TradeMode,
		},
		Strategy: StrategySummary{
			Name:      strategy.Name,
			ATR:       fmt.Sprintf("period=%d mult=%.2f", st.ATRPeriod, st.ATRMultiplier),
			ADX:       fmt.Sprintf("period=%d threshold=%.1f", st.ADXPeriod, st.ADXThreshold),
			Timeframe: fmt.Sprintf("%s x%d", cfg.Market.KlineInterval, cfg.Market.KlineLimit),
			Exits: []string{
				fmt.Sprintf("emergency_stop %.2f%%", st.EmergencyStopPct*100),
				fmt.Sprintf("breakeven trigger %.2f%% buffer %.2f%%", st.BreakevenTriggerPct*100, st.FeeBufferPct*100),
				fmt.Sprintf("trailing_std >%.2f%% cb %.2f%%", st.TrailStdActivation*100, st.TrailStdCallback*100),
				fmt.Sprintf("trailing_high >=%.2f%% cb %.2f%%", st.TrailHighActivation*100, st.TrailHighCallback*100),
				"trend_reversal supertrend",
			},
		},
		Services: services,
	}
}

// Log 逐行写入日志，同时进入事件流。
func (s *StartupSummary) Log() {
	var buf bytes.Buffer
	s.Fprint(&buf)
	logger.InfoBlock(buf.String())
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[交易所 (EXCHANGE)]")
	fmt.Fprintf(w, "  名称: %s (testnet=%v)\n", s.Exchange.Name, s.Exchange.Testnet)
	fmt.Fprintf(w, "  密钥: %s\n", map[bool]string{true: "已配置", false: "未配置"}[s.Exchange.HasKeys])
	fmt.Fprintf(w, "  跟踪币种: %s\n", s.Exchange.Symbol)
	fmt.Fprintf(w, "  宽度宇宙: top %d\n", s.Exchange.Universe)
	fmt.Fprintln(w)

	t := s.Trading
	fmt.Fprintln(w, "[交易参数 (TRADING)]")
	fmt.Fprintf(w, "  自动交易: %v  模式: %s\n", t.Auto, t.TradeMode)
	fmt.Fprintf(w, "  杠杆: x%d  保证金: %s\n", t.Leverage, t.MarginMode)
	if t.AutoPercent > 0 {
		fmt.Fprintf(w, "  开仓金额: 可用余额 %.2f%%\n", t.AutoPercent)
	} else {
		fmt.Fprintf(w, "  开仓金额: %.2f USDT\n", t.SizeUSD)
	}
	fmt.Fprintf(w, "  市场周期: %ds\n", t.Interval)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "[策略 (%s)]\n", s.Strategy.Name)
	fmt.Fprintf(w, "  K线: %s\n", s.Strategy.Timeframe)
	fmt.Fprintf(w, "  SuperTrend ATR: %s\n", s.Strategy.ATR)
	fmt.Fprintf(w, "  ADX: %s\n", s.Strategy.ADX)
	fmt.Fprintln(w, "  出场规则:")
	for _, e := range s.Strategy.Exits {
		fmt.Fprintf(w, "    - %s\n", e)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "[服务 (SERVICES)]: %s\n", formatList(s.Services))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
