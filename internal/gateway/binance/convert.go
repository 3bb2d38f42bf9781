package binance

import (
	"strings"
	"time"

	"planc/internal/gateway/exchange"
	"planc/internal/market"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/spf13/cast"
)

func parseFloat(v string) float64 {
	return cast.ToFloat64(strings.TrimSpace(v))
}

func convertSymbol(s futures.Symbol) exchange.SymbolInfo {
	info := exchange.SymbolInfo{
		Symbol:            s.Symbol,
		BaseAsset:         s.BaseAsset,
		QuoteAsset:        s.QuoteAsset,
		ContractType:      string(s.ContractType),
		Status:            s.Status,
		QuantityPrecision: s.QuantityPrecision,
	}
	for _, f := range s.Filters {
		switch cast.ToString(f["filterType"]) {
		case "LOT_SIZE":
			info.StepSize = cast.ToString(f["stepSize"])
			info.MinQty = cast.ToString(f["minQty"])
		case "MARKET_LOT_SIZE":
			info.MarketStepSize = cast.ToString(f["stepSize"])
			info.MarketMinQty = cast.ToString(f["minQty"])
		case "MIN_NOTIONAL":
			info.MinNotional = cast.ToString(f["notional"])
			if info.MinNotional == "" {
				info.MinNotional = cast.ToString(f["minNotional"])
			}
		}
	}
	return info
}

func convertTicker(st *futures.PriceChangeStats) market.Ticker {
	return market.Ticker{
		Symbol:        strings.ToUpper(st.Symbol),
		LastPrice:     parseFloat(st.LastPrice),
		ChangePercent: parseFloat(st.PriceChangePercent),
		QuoteVolume:   parseFloat(st.QuoteVolume),
	}
}

func convertPosition(r *futures.PositionRisk) exchange.Position {
	return exchange.Position{
		Symbol:        r.Symbol,
		Amount:        parseFloat(r.PositionAmt),
		EntryPrice:    parseFloat(r.EntryPrice),
		UnrealizedPnL: parseFloat(r.UnRealizedProfit),
		MarkPrice:     parseFloat(r.MarkPrice),
		Leverage:      cast.ToInt(r.Leverage),
	}
}

func convertIncome(h *futures.IncomeHistory) exchange.Income {
	return exchange.Income{
		TranID:     h.TranID,
		Symbol:     h.Symbol,
		IncomeType: h.IncomeType,
		Income:     parseFloat(h.Income),
		Asset:      h.Asset,
		Info:       h.Info,
		Time:       time.UnixMilli(h.Time).UTC(),
	}
}

func convertOrder(resp *futures.CreateOrderResponse, req exchange.OrderRequest) *exchange.OrderResult {
	if resp == nil {
		return &exchange.OrderResult{Symbol: req.Symbol, Side: req.Side, Quantity: req.Quantity, ClientOrderID: req.ClientOrderID}
	}
	return &exchange.OrderResult{
		OrderID:       resp.OrderID,
		ClientOrderID: resp.ClientOrderID,
		Symbol:        resp.Symbol,
		Side:          exchange.Side(resp.Side),
		Status:        string(resp.Status),
		Quantity:      req.Quantity,
		ExecutedQty:   parseFloat(resp.ExecutedQuantity),
		AvgPrice:      parseFloat(resp.AvgPrice),
	}
}
