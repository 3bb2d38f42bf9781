package livehttp

import (
	"context"
	"time"

	"planc/internal/engine"
	"planc/internal/gateway/exchange"
	"planc/internal/logger"
	"planc/internal/position"
)

// Controller 是 HTTP 层驱动引擎所需的能力，由 *engine.Engine 实现。
type Controller interface {
	State() engine.State
	Positions(ctx context.Context) ([]exchange.Position, error)
	PnL() position.Summary
	RecentTrades(limit int) ([]position.Trade, error)
	Connect(ctx context.Context) error
	SetSymbol(ctx context.Context, raw string) error
	UpdateSettings(p engine.SettingsPatch) (engine.Settings, error)
	SetAuto(enabled bool)
	ClosePosition(ctx context.Context, symbol, reason string) error
	CloseAll(ctx context.Context, reason string) error
}

// EventSource 提供最近事件与实时订阅。
type EventSource interface {
	Recent(limit int) []logger.Event
	Subscribe(buffer int) (<-chan logger.Event, func())
}

type symbolRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

type autoRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type pnlResponse struct {
	Summary position.Summary `json:"summary"`
	Trades  []position.Trade `json:"trades"`
}

type actionResponse struct {
	OK   bool      `json:"ok"`
	At   time.Time `json:"at"`
	Note string    `json:"note,omitempty"`
}
