package exchange

import (
	"context"
	"time"

	"planc/internal/market"
)

// Exchange 是 U 本位永续合约 REST 能力的最小集合。
type Exchange interface {
	Name() string

	// Ping 校验凭证，凭证无效时返回错误。
	Ping(ctx context.Context) error

	ExchangeInfo(ctx context.Context) ([]SymbolInfo, error)

	Tickers(ctx context.Context) ([]market.Ticker, error)

	Price(ctx context.Context, symbol string) (float64, error)

	Klines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)

	// Positions 返回持仓；symbol 为空时返回全部非零持仓。
	Positions(ctx context.Context, symbol string) ([]Position, error)

	AvailableBalance(ctx context.Context) (float64, error)

	PlaceMarketOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)

	SetMarginType(ctx context.Context, symbol, marginType string) error

	SetLeverage(ctx context.Context, symbol string, leverage int) error

	IncomeHistory(ctx context.Context, start, end time.Time) ([]Income, error)
}
