package binance

import (
	"strings"
	"time"
)

type Config struct {
	APIKey      string
	APISecret   string
	RESTBaseURL string
	Testnet     bool
	HTTPTimeout time.Duration

	ProxyEnabled bool
	RESTProxyURL string

	// ReadRetries 只作用于查询接口；下单接口从不自动重试。
	ReadRetries int
}

func (c *Config) withDefaults() Config {
	out := *c
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.APISecret = strings.TrimSpace(out.APISecret)
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" && !out.Testnet {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.ReadRetries <= 0 {
		out.ReadRetries = 3
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	return out
}
