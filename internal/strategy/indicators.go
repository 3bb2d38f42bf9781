package strategy

import (
	"math"

	"planc/internal/market"

	"github.com/markcheno/go-talib"
)

// Trend 方向：1 为多头，-1 为空头，0 表示数据不足。
type Trend int

const (
	TrendNone Trend = 0
	TrendUp   Trend = 1
	TrendDown Trend = -1
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "none"
	}
}

// SuperTrendResult 是最后一根 K 线上的 SuperTrend 状态。
type SuperTrendResult struct {
	Trend     Trend
	PrevTrend Trend
	Upper     float64
	Lower     float64
}

// SuperTrend 基于 Wilder ATR 计算带棘轮的上下轨。
// 上轨只在基础上轨更低或前收盘突破上轨时下移，下轨对称。
func SuperTrend(candles market.Candles, period int, multiplier float64) SuperTrendResult {
	n := len(candles)
	if period <= 0 || n < period+1 {
		return SuperTrendResult{}
	}
	highs, lows, closes := candles.Series()
	atr := talib.Atr(highs, lows, closes, period)

	trend := TrendUp
	history := make([]Trend, n)
	var finalUpper, finalLower float64
	for i := period; i < n; i++ {
		hl2 := (highs[i] + lows[i]) / 2
		basicUpper := hl2 + multiplier*atr[i]
		basicLower := hl2 - multiplier*atr[i]
		prevUpper, prevLower, prevClose := finalUpper, finalLower, closes[i-1]

		if basicUpper < prevUpper || prevClose > prevUpper {
			finalUpper = basicUpper
		} else {
			finalUpper = prevUpper
		}
		if basicLower > prevLower || prevClose < prevLower {
			finalLower = basicLower
		} else {
			finalLower = prevLower
		}

		if trend == TrendUp && closes[i] < finalLower {
			trend = TrendDown
		} else if trend == TrendDown && closes[i] > finalUpper {
			trend = TrendUp
		}
		history[i] = trend
	}
	return SuperTrendResult{
		Trend:     trend,
		PrevTrend: history[n-2],
		Upper:     finalUpper,
		Lower:     finalLower,
	}
}

// ADX 返回最近 period 根 K 线的方向强度（DX）：+DM/-DM/TR 取简单求和，
// 不做 Wilder 平滑，因此趋势停滞后会迅速回落。数据不足或 TR 为零时返回 0。
func ADX(candles market.Candles, period int) float64 {
	n := len(candles)
	if period <= 0 || n < 2*period {
		return 0
	}
	var sumTR, sumPlus, sumMinus float64
	for i := n - period; i < n; i++ {
		cur, prev := candles[i], candles[i-1]
		up := cur.High - prev.High
		down := prev.Low - cur.Low
		switch {
		case up > down && up > 0:
			sumPlus += up
		case down > up && down > 0:
			sumMinus += down
		}
		sumTR += math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
	}
	if sumTR == 0 {
		return 0
	}
	diPlus := sumPlus / sumTR * 100
	diMinus := sumMinus / sumTR * 100
	if diPlus+diMinus <= 0 {
		return 0
	}
	return math.Abs(diPlus-diMinus) / (diPlus + diMinus) * 100
}
