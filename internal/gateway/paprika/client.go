// Package paprika 从 CoinPaprika 拉取按市值排名的币种列表，作为市场宽度统计的宇宙来源。
package paprika

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"planc/internal/logger"
	"planc/internal/pkg/circuit"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.coinpaprika.com/v1"
	userAgent      = "planc/1.0"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// FailureThreshold 次连续失败后熔断，Cooldown 后放行探测。
	FailureThreshold int
	Cooldown         time.Duration
}

type Client struct {
	http    *resty.Client
	breaker *circuit.CircuitBreaker
}

func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Minute
	}
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "application/json")
	breaker := circuit.NewCircuitBreaker("coinpaprika", cfg.FailureThreshold, cfg.Cooldown)
	breaker.SetStateChangeHandler(func(name string, from, to circuit.State) {
		logger.Warnf("[%s] circuit %s -> %s", name, from, to)
	})
	return &Client{http: client, breaker: breaker}
}

type rankedCoin struct {
	symbol string
	rank   int64
}

// TopSymbols 返回市值排名前 n 的币种代码（大写，仅字母），按排名升序。
func (c *Client) TopSymbols(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	var body []byte
	err := c.breaker.Do(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("quotes", "USD").
			Get("/tickers")
		if err != nil {
			return fmt.Errorf("coinpaprika tickers: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("coinpaprika tickers: status=%d", resp.StatusCode())
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}
	symbols, err := parseTopSymbols(body, n)
	if err != nil {
		return nil, err
	}
	logger.Debugf("coinpaprika: top %d symbols loaded (requested %d)", len(symbols), n)
	return symbols, nil
}

func parseTopSymbols(body []byte, n int) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("coinpaprika tickers: invalid json")
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("coinpaprika tickers: expected array")
	}
	var coins []rankedCoin
	parsed.ForEach(func(_, item gjson.Result) bool {
		rank := item.Get("rank").Int()
		if rank <= 0 {
			return true
		}
		coins = append(coins, rankedCoin{
			symbol: strings.ToUpper(strings.TrimSpace(item.Get("symbol").String())),
			rank:   rank,
		})
		return true
	})
	sort.SliceStable(coins, func(i, j int) bool { return coins[i].rank < coins[j].rank })
	// 先按排名截取前 n 个再过滤，被过滤的名额不由后续排名补位
	if len(coins) > n {
		coins = coins[:n]
	}

	out := make([]string, 0, len(coins))
	seen := make(map[string]struct{}, len(coins))
	for _, coin := range coins {
		if !isAlpha(coin.symbol) {
			continue
		}
		if _, dup := seen[coin.symbol]; dup {
			continue
		}
		seen[coin.symbol] = struct{}{}
		out = append(out, coin.symbol)
	}
	return out, nil
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
