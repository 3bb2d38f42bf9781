// Package execution 负责下单：保证金/杠杆前置设置与带精度降级的市价单。
package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"planc/internal/gateway/exchange"
	"planc/internal/logger"
	"planc/internal/lot"
	"planc/internal/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotActionable 表示规整后数量为零，订单未提交。
var ErrNotActionable = errors.New("order not actionable")

type OrderGateway interface {
	PlaceMarketOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error)
}

type RulesProvider interface {
	Rules(ctx context.Context, symbol string) (lot.Rules, error)
}

// attempt 是一种数量规整策略；precision 为 nil 表示使用交易对原生规则。
type attempt struct {
	name      string
	precision *lot.Precision
}

// ladder 按顺序尝试：原生步长 -> 0.1 -> 1。
var ladder = []attempt{
	{name: "native"},
	{name: "step_0.1", precision: &lot.CoarseTenth},
	{name: "step_1", precision: &lot.WholeUnit},
}

type Executor struct {
	gw      OrderGateway
	rules   RulesProvider
	metrics *metrics.Metrics
	newID   func() string
}

func NewExecutor(gw OrderGateway, rules RulesProvider, m *metrics.Metrics) *Executor {
	return &Executor{gw: gw, rules: rules, metrics: m, newID: newClientOrderID}
}

// PlaceMarketOrder 提交市价单。数量精度被拒（-1111）时换下一种规整策略，
// 其他错误立即返回；所有策略都被拒时返回最后一次错误。
func (e *Executor) PlaceMarketOrder(ctx context.Context, symbol string, side exchange.Side, rawQty, priceHint float64) (*exchange.OrderResult, error) {
	return e.place(ctx, symbol, side, rawQty, priceHint, false)
}

// ClosePosition 以反向 reduce-only 市价单平掉 signedQty 对应的持仓。
func (e *Executor) ClosePosition(ctx context.Context, symbol string, signedQty float64) (*exchange.OrderResult, error) {
	if signedQty == 0 {
		return nil, fmt.Errorf("close %s: %w", symbol, ErrNotActionable)
	}
	side := exchange.SideSell
	qty := signedQty
	if signedQty < 0 {
		side = exchange.SideBuy
		qty = -signedQty
	}
	// 平仓不做名义价值补足，避免超过持仓数量
	return e.place(ctx, symbol, side, qty, 0, true)
}

func (e *Executor) place(ctx context.Context, symbol string, side exchange.Side, rawQty, priceHint float64, reduceOnly bool) (*exchange.OrderResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	rules, err := e.rules.Rules(ctx, symbol)
	if err != nil {
		logger.Warnf("OrderTry %s: lot rules unavailable, using defaults: %v", symbol, err)
	}
	raw := decimal.NewFromFloat(rawQty)
	price := decimal.NewFromFloat(priceHint)

	var lastErr error
	for _, a := range ladder {
		qty := lot.Normalize(raw, price, rules, a.precision)
		step, decimals := rules.StepSize, rules.QuantityDecimals
		if a.precision != nil {
			step, decimals = a.precision.Step, a.precision.Decimals
		}
		if qty.IsZero() {
			logger.Warnf("OrderTry %s %s strategy=%s step=%s dec=%d raw=%.8f -> zero quantity, skipped",
				symbol, side, a.name, step, decimals, rawQty)
			e.metrics.ObserveOrder(string(side), "skipped")
			return nil, fmt.Errorf("place %s %s raw=%.8f: %w", symbol, side, rawQty, ErrNotActionable)
		}
		logger.Infof("OrderTry %s %s strategy=%s step=%s dec=%d -> qty=%s", symbol, side, a.name, step, decimals, qty.Text)
		e.metrics.ObserveOrderAttempt(a.name)

		res, err := e.gw.PlaceMarketOrder(ctx, exchange.OrderRequest{
			Symbol:        symbol,
			Side:          side,
			Quantity:      qty.Text,
			ClientOrderID: e.newID(),
			ReduceOnly:    reduceOnly,
		})
		if err == nil {
			if res == nil {
				res = &exchange.OrderResult{Symbol: symbol, Side: side, Quantity: qty.Text}
			}
			logger.Infof("Order filled %s %s qty=%s status=%s avg=%.8f", symbol, side, qty.Text, res.Status, res.AvgPrice)
			e.metrics.ObserveOrder(string(side), "ok")
			return res, nil
		}
		lastErr = fmt.Errorf("place %s %s qty=%s step=%s: %w", symbol, side, qty.Text, step, err)
		if !exchange.IsPrecisionError(err) {
			logger.Errorf("Order failed %s %s qty=%s: %v", symbol, side, qty.Text, err)
			e.metrics.ObserveOrder(string(side), "error")
			return nil, lastErr
		}
		logger.Warnf("Order precision rejected %s qty=%s step=%s, trying next strategy", symbol, qty.Text, step)
	}
	logger.Errorf("Order failed %s %s: all normalization strategies rejected: %v", symbol, side, lastErr)
	e.metrics.ObserveOrder(string(side), "error")
	return nil, lastErr
}

func newClientOrderID() string {
	return "pc-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
