package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"planc/internal/gateway/exchange"
	"planc/internal/logger"

	"github.com/adshao/go-binance/v2/futures"
)

// Client 基于 go-binance SDK 实现 exchange.Exchange（U 本位永续）。
type Client struct {
	cfg    Config
	client *futures.Client
}

var _ exchange.Exchange = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	futures.UseTestnet = final.Testnet
	client := futures.NewClient(final.APIKey, final.APISecret)
	if final.RESTBaseURL != "" && !final.Testnet {
		client.BaseURL = final.RESTBaseURL
	}
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyEnabled && final.RESTProxyURL != "" {
		proxyURL, err := url.Parse(final.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Client{cfg: final, client: client}, nil
}

func (c *Client) Name() string {
	if c.cfg.Testnet {
		return "binance-futures-testnet"
	}
	return "binance-futures"
}

// Ping 通过账户接口校验 API 密钥，失败说明凭证无效或权限不足。
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return fmt.Errorf("binance credentials missing: %w", exchange.ErrNotConnected)
	}
	if _, err := c.client.NewGetAccountService().Do(ctx); err != nil {
		return fmt.Errorf("validate credentials: %w", translateError(err))
	}
	return nil
}

// readWithRetry 对查询类请求做有限次指数退避重试，业务错误立即返回。
func readWithRetry[T any](ctx context.Context, c *Client, op string, fn func() (T, error)) (T, error) {
	var (
		zero  T
		delay time.Duration
		err   error
	)
	for attempt := 1; attempt <= c.cfg.ReadRetries; attempt++ {
		var out T
		out, err = fn()
		if err == nil {
			return out, nil
		}
		err = translateError(err)
		if !isTransient(err) || attempt == c.cfg.ReadRetries {
			break
		}
		delay = nextDelay(delay)
		logger.Debugf("binance %s failed (attempt %d/%d), retry in %s: %v", op, attempt, c.cfg.ReadRetries, delay, err)
		if !sleepWithContext(ctx, delay) {
			return zero, ctx.Err()
		}
	}
	return zero, fmt.Errorf("binance %s: %w", op, err)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func nextDelay(current time.Duration) time.Duration {
	if current <= 0 {
		return 500 * time.Millisecond
	}
	next := current * 2
	if next > 5*time.Second {
		next = 5 * time.Second
	}
	return next
}
