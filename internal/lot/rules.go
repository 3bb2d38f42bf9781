package lot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"planc/internal/gateway/exchange"
	"planc/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	defaultStep     = "0.000001"
	defaultDecimals = 6
	DefaultTTL      = 10 * time.Minute
)

// 常用降级精度：粗步长 0.1 与整数步长。
var (
	CoarseTenth = Precision{Step: decimal.RequireFromString("0.1"), Decimals: 1}
	WholeUnit   = Precision{Step: decimal.NewFromInt(1), Decimals: 0}
)

// DefaultRules 是交易所元数据缺失时使用的保守规则。
func DefaultRules(symbol string) Rules {
	return Rules{
		Symbol:           symbol,
		StepSize:         decimal.RequireFromString(defaultStep),
		MinQty:           decZero,
		MinNotional:      decZero,
		QuantityDecimals: defaultDecimals,
	}
}

// RulesFromInfo 优先使用 LOT_SIZE，缺失时回退到 MARKET_LOT_SIZE。
// 小数位取步长小数位与 quantityPrecision 的较小值。
func RulesFromInfo(info exchange.SymbolInfo) Rules {
	stepStr := firstNonEmpty(info.StepSize, info.MarketStepSize, defaultStep)
	minStr := firstNonEmpty(info.MinQty, info.MarketMinQty, "0")
	step, err := decimal.NewFromString(stepStr)
	if err != nil || !step.IsPositive() {
		logger.Warnf("lot rules %s: invalid stepSize %q, using default", info.Symbol, stepStr)
		return DefaultRules(info.Symbol)
	}
	minQty, err := decimal.NewFromString(minStr)
	if err != nil || minQty.IsNegative() {
		minQty = decZero
	}
	minNotional, err := decimal.NewFromString(firstNonEmpty(info.MinNotional, "0"))
	if err != nil || minNotional.IsNegative() {
		minNotional = decZero
	}
	decimals := StepDecimals(stepStr)
	if info.QuantityPrecision > 0 && int32(info.QuantityPrecision) < decimals {
		decimals = int32(info.QuantityPrecision)
	}
	return Rules{
		Symbol:           info.Symbol,
		StepSize:         step,
		MinQty:           minQty,
		MinNotional:      minNotional,
		QuantityDecimals: decimals,
	}
}

// Native 返回规则自身的步长与小数位。
func (r Rules) Native() Precision {
	return Precision{Step: r.StepSize, Decimals: r.QuantityDecimals}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type InfoSource interface {
	ExchangeInfo(ctx context.Context) ([]exchange.SymbolInfo, error)
}

// Cache 缓存 exchangeInfo，过期后按需整体刷新；并发刷新合并为一次请求。
type Cache struct {
	src   InfoSource
	ttl   time.Duration
	nowFn func() time.Time
	group singleflight.Group

	mu        sync.RWMutex
	rules     map[string]Rules
	tradable  map[string]bool
	fetchedAt time.Time
}

func NewCache(src InfoSource, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{src: src, ttl: ttl, nowFn: time.Now}
}

// Rules 返回交易对规则；元数据拉取失败或不含该交易对时返回默认规则和错误。
func (c *Cache) Rules(ctx context.Context, symbol string) (Rules, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := c.ensureFresh(ctx); err != nil {
		if r, ok := c.lookup(symbol); ok {
			logger.Warnf("lot rules refresh failed, serving stale %s: %v", symbol, err)
			return r, nil
		}
		return DefaultRules(symbol), err
	}
	if r, ok := c.lookup(symbol); ok {
		return r, nil
	}
	return DefaultRules(symbol), fmt.Errorf("lot rules: symbol %s not listed", symbol)
}

// Tradable 返回当前正在交易的 USDT 永续合约集合。
func (c *Cache) Tradable(ctx context.Context) (map[string]bool, error) {
	if err := c.ensureFresh(ctx); err != nil {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if len(c.tradable) == 0 {
			return nil, err
		}
		return copySet(c.tradable), nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copySet(c.tradable), nil
}

// Invalidate 强制下一次查询重新拉取元数据。
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) lookup(symbol string) (Rules, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rules[symbol]
	return r, ok
}

func (c *Cache) ensureFresh(ctx context.Context) error {
	c.mu.RLock()
	fresh := c.rules != nil && c.nowFn().Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return nil
	}
	_, err, _ := c.group.Do("exchangeInfo", func() (any, error) {
		infos, err := c.src.ExchangeInfo(ctx)
		if err != nil {
			return nil, err
		}
		rules := make(map[string]Rules, len(infos))
		tradable := make(map[string]bool, len(infos))
		for _, info := range infos {
			sym := strings.ToUpper(info.Symbol)
			rules[sym] = RulesFromInfo(info)
			if info.Tradable() {
				tradable[sym] = true
			}
		}
		c.mu.Lock()
		c.rules = rules
		c.tradable = tradable
		c.fetchedAt = c.nowFn()
		c.mu.Unlock()
		logger.Debugf("lot rules refreshed: %d symbols", len(rules))
		return nil, nil
	})
	return err
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
