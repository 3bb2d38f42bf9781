package binance

import (
	"context"
	"fmt"
	"strings"

	"planc/internal/gateway/exchange"
	symbolpkg "planc/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2/futures"
)

// PlaceMarketOrder 提交市价单；数量必须已按交易规则格式化，失败不重试。
func (c *Client) PlaceMarketOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	clean := symbolpkg.Normalize(req.Symbol)
	if clean == "" || strings.TrimSpace(req.Quantity) == "" {
		return nil, fmt.Errorf("invalid order request: symbol=%q qty=%q", req.Symbol, req.Quantity)
	}
	svc := c.client.NewCreateOrderService().
		Symbol(clean).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(req.Quantity).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	return convertOrder(resp, req), nil
}

func (c *Client) SetMarginType(ctx context.Context, sym, marginType string) error {
	mt := futures.MarginTypeIsolated
	if strings.EqualFold(marginType, string(futures.MarginTypeCrossed)) {
		mt = futures.MarginTypeCrossed
	}
	err := c.client.NewChangeMarginTypeService().Symbol(symbolpkg.Normalize(sym)).MarginType(mt).Do(ctx)
	return translateError(err)
}

func (c *Client) SetLeverage(ctx context.Context, sym string, leverage int) error {
	_, err := c.client.NewChangeLeverageService().Symbol(symbolpkg.Normalize(sym)).Leverage(leverage).Do(ctx)
	return translateError(err)
}
