// Package exchange 定义引擎与 U 本位永续合约交易所之间的边界。
package exchange

import (
	"math"
	"time"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回反向订单方向，用于平仓。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Position 是交易所返回的单个交易对持仓，Amount 带符号：正数为多，负数为空。
type Position struct {
	Symbol        string  `json:"symbol"`
	Amount        float64 `json:"amount"`
	EntryPrice    float64 `json:"entry_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	MarkPrice     float64 `json:"mark_price"`
	Leverage      int     `json:"leverage"`
}

func (p Position) IsFlat() bool  { return p.Amount == 0 }
func (p Position) IsLong() bool  { return p.Amount > 0 }
func (p Position) IsShort() bool { return p.Amount < 0 }

// Size 返回持仓数量绝对值。
func (p Position) Size() float64 { return math.Abs(p.Amount) }

// Side 返回持仓方向字符串；空仓返回 "flat"。
func (p Position) Side() string {
	switch {
	case p.Amount > 0:
		return "long"
	case p.Amount < 0:
		return "short"
	default:
		return "flat"
	}
}

// SymbolInfo 是 exchangeInfo 中与下单数量相关的元数据，数值保持交易所原始字符串。
type SymbolInfo struct {
	Symbol            string `json:"symbol"`
	BaseAsset         string `json:"base_asset"`
	QuoteAsset        string `json:"quote_asset"`
	ContractType      string `json:"contract_type"`
	Status            string `json:"status"`
	QuantityPrecision int    `json:"quantity_precision"`
	StepSize          string `json:"step_size"`
	MinQty            string `json:"min_qty"`
	MarketStepSize    string `json:"market_step_size"`
	MarketMinQty      string `json:"market_min_qty"`
	MinNotional       string `json:"min_notional"`
}

// Tradable 判断是否为正在交易的 USDT 永续合约。
func (s SymbolInfo) Tradable() bool {
	return s.Status == "TRADING" && s.ContractType == "PERPETUAL" && s.QuoteAsset == "USDT"
}

type OrderRequest struct {
	Symbol        string
	Side          Side
	Quantity      string
	ClientOrderID string
	ReduceOnly    bool
}

type OrderResult struct {
	OrderID       int64   `json:"order_id"`
	ClientOrderID string  `json:"client_order_id"`
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	Status        string  `json:"status"`
	Quantity      string  `json:"quantity"`
	ExecutedQty   float64 `json:"executed_qty"`
	AvgPrice      float64 `json:"avg_price"`
}

// Income 是一条资金流水（已实现盈亏、手续费、资金费等）。
type Income struct {
	TranID     int64     `json:"tran_id"`
	Symbol     string    `json:"symbol"`
	IncomeType string    `json:"income_type"`
	Income     float64   `json:"income"`
	Asset      string    `json:"asset"`
	Info       string    `json:"info"`
	Time       time.Time `json:"time"`
}

const (
	IncomeRealizedPnL = "REALIZED_PNL"
	IncomeCommission  = "COMMISSION"
	IncomeFundingFee  = "FUNDING_FEE"
)
