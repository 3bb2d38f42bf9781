package symbol

import (
	"strings"
)

// QuoteUSDT 是 U 本位永续合约的计价资产。
const QuoteUSDT = "USDT"

type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

// Parse 解析 "BTCUSDT"、"BTC/USDT"、"BTC/USDT:USDT" 等写法。
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{
			Base:  strings.TrimSpace(parts[0]),
			Quote: strings.TrimSpace(parts[1]),
		}
	}
	for _, quote := range []string{"USDT", "USDC", "BUSD"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{}
}

// Normalize 把任意写法转换成交易所格式；无法识别计价资产时按 USDT 永续补全。
func Normalize(s string) string {
	if sym := Parse(s).Binance(); sym != "" {
		return sym
	}
	return Perp(s)
}

// Perp 由基础资产代码得到对应的 USDT 永续合约代码。
func Perp(base string) string {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		return ""
	}
	return base + QuoteUSDT
}

// Base 返回交易对的基础资产，无法解析时原样返回大写形式。
func Base(s string) string {
	if sym := Parse(s); sym.Base != "" {
		return sym.Base
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}
