package execution

import (
	"context"
	"fmt"

	"planc/internal/gateway/exchange"
	"planc/internal/logger"
)

type MarginGateway interface {
	SetMarginType(ctx context.Context, symbol, marginType string) error
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// MarginGuard 在下单前确认保证金模式与杠杆。
type MarginGuard struct {
	gw MarginGateway
}

func NewMarginGuard(gw MarginGateway) *MarginGuard {
	return &MarginGuard{gw: gw}
}

// Ensure 设置保证金模式与杠杆。
// “无需变更”视为成功；其余保证金错误返回给调用方；杠杆设置失败只记录日志，不阻塞下单。
func (g *MarginGuard) Ensure(ctx context.Context, symbol, marginMode string, leverage int) error {
	if err := g.gw.SetMarginType(ctx, symbol, marginMode); err != nil {
		if !exchange.IsNoChangeNeeded(err) {
			logger.Errorf("margin type change failed: %s -> %s: %v", symbol, marginMode, err)
			return fmt.Errorf("ensure margin %s %s: %w", symbol, marginMode, err)
		}
		logger.Debugf("margin type already %s: %s", marginMode, symbol)
	} else {
		logger.Infof("margin type set to %s: %s", marginMode, symbol)
	}
	if leverage <= 0 {
		return nil
	}
	if err := g.gw.SetLeverage(ctx, symbol, leverage); err != nil {
		logger.Warnf("leverage change failed (continuing): %s x%d: %v", symbol, leverage, err)
		return nil
	}
	logger.Debugf("leverage set: %s x%d", symbol, leverage)
	return nil
}
