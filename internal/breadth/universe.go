package breadth

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"planc/internal/logger"
	"planc/internal/market"
	"planc/internal/pkg/symbol"
)

// ErrEmptyUniverse 表示主备来源都没有给出可用的币种列表。
var ErrEmptyUniverse = errors.New("breadth universe is empty")

const (
	SourceCoinPaprika = "coinpaprika"
	SourceBinance     = "binance"
)

// TopSource 提供按市值排名的基础资产代码。
type TopSource interface {
	TopSymbols(ctx context.Context, n int) ([]string, error)
}

// TradableSource 提供当前可交易的 USDT 永续合约集合。
type TradableSource interface {
	Tradable(ctx context.Context) (map[string]bool, error)
}

type UniverseConfig struct {
	Size    int
	Refresh time.Duration
	// MinPrimary 主来源少于该数量时改用成交额排名。
	MinPrimary int
}

// Universe 缓存宽度统计使用的币种宇宙，按 Refresh 周期刷新；
// 刷新失败时沿用上一份列表。
type Universe struct {
	primary  TopSource
	tradable TradableSource
	cfg      UniverseConfig
	now      func() time.Time

	mu        sync.Mutex
	bases     []string
	source    string
	fetchedAt time.Time
}

func NewUniverse(primary TopSource, tradable TradableSource, cfg UniverseConfig) *Universe {
	if cfg.Size <= 0 {
		cfg.Size = 100
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = time.Hour
	}
	if cfg.MinPrimary <= 0 {
		cfg.MinPrimary = 50
	}
	return &Universe{primary: primary, tradable: tradable, cfg: cfg, now: time.Now}
}

// Bases 返回基础资产列表（按排名）。tickers 用于备用的成交额排名。
func (u *Universe) Bases(ctx context.Context, tickers []market.Ticker) ([]string, error) {
	u.mu.Lock()
	if len(u.bases) > 0 && u.now().Sub(u.fetchedAt) < u.cfg.Refresh {
		out := append([]string(nil), u.bases...)
		u.mu.Unlock()
		return out, nil
	}
	u.mu.Unlock()

	bases, source := u.fetch(ctx, tickers)

	u.mu.Lock()
	defer u.mu.Unlock()
	if len(bases) == 0 {
		if len(u.bases) > 0 {
			logger.Warnf("breadth universe refresh returned nothing, keeping %d cached symbols (%s)", len(u.bases), u.source)
			return append([]string(nil), u.bases...), nil
		}
		return nil, ErrEmptyUniverse
	}
	u.bases = bases
	u.source = source
	u.fetchedAt = u.now()
	logger.Infof("breadth universe refreshed: %d symbols from %s", len(bases), source)
	return append([]string(nil), bases...), nil
}

// Source 返回最近一次成功刷新使用的来源。
func (u *Universe) Source() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.source
}

// Invalidate 使下一次 Bases 调用强制刷新。
func (u *Universe) Invalidate() {
	u.mu.Lock()
	u.fetchedAt = time.Time{}
	u.mu.Unlock()
}

func (u *Universe) fetch(ctx context.Context, tickers []market.Ticker) ([]string, string) {
	var tradable map[string]bool
	if u.tradable != nil {
		set, err := u.tradable.Tradable(ctx)
		if err != nil {
			logger.Warnf("breadth universe: tradable symbols unavailable, not filtering: %v", err)
		} else {
			tradable = set
		}
	}
	if u.primary != nil {
		top, err := u.primary.TopSymbols(ctx, u.cfg.Size)
		if err != nil {
			logger.Warnf("breadth universe: %s failed: %v", SourceCoinPaprika, err)
		}
		bases := filterTradable(top, tradable)
		if len(bases) >= u.cfg.MinPrimary {
			return bases, SourceCoinPaprika
		}
		logger.Warnf("breadth universe: %s returned %d tradable symbols (< %d), falling back to %s volume ranking",
			SourceCoinPaprika, len(bases), u.cfg.MinPrimary, SourceBinance)
	}
	return topByQuoteVolume(tickers, tradable, u.cfg.Size), SourceBinance
}

func filterTradable(bases []string, tradable map[string]bool) []string {
	out := make([]string, 0, len(bases))
	seen := make(map[string]struct{}, len(bases))
	for _, b := range bases {
		b = strings.ToUpper(strings.TrimSpace(b))
		if b == "" {
			continue
		}
		if _, dup := seen[b]; dup {
			continue
		}
		if tradable != nil && !tradable[symbol.Perp(b)] {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// topByQuoteVolume 取 USDT 永续中 24h 成交额最高的 n 个。
func topByQuoteVolume(tickers []market.Ticker, tradable map[string]bool, n int) []string {
	candidates := make([]market.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, symbol.QuoteUSDT) {
			continue
		}
		if tradable != nil && !tradable[t.Symbol] {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].QuoteVolume > candidates[j].QuoteVolume
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]string, 0, len(candidates))
	for _, t := range candidates {
		out = append(out, symbol.Base(t.Symbol))
	}
	return out
}

// rotate 把宇宙轮转为从 base 开始；base 不在宇宙中时放在最前。
// 返回 USDT 永续合约代码。
func rotate(bases []string, base string) []string {
	base = strings.ToUpper(strings.TrimSpace(base))
	idx := -1
	for i, b := range bases {
		if b == base {
			idx = i
			break
		}
	}
	ordered := make([]string, 0, len(bases)+1)
	if idx >= 0 {
		ordered = append(ordered, bases[idx:]...)
		ordered = append(ordered, bases[:idx]...)
	} else {
		ordered = append(ordered, base)
		ordered = append(ordered, bases...)
	}
	out := make([]string, len(ordered))
	for i, b := range ordered {
		out[i] = symbol.Perp(b)
	}
	return out
}
