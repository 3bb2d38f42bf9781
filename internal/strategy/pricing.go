package strategy

import (
	"math"

	"github.com/shopspring/decimal"
)

var decOne = decimal.NewFromInt(1)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

// gainRatio 返回相对入场价的有利变动比例，空头方向取反。
func gainRatio(long bool, entry, price float64) decimal.Decimal {
	e := decFromFloat(entry)
	if e.IsZero() {
		return decimal.Zero
	}
	diff := decFromFloat(price).Sub(e)
	if !long {
		diff = diff.Neg()
	}
	return diff.Div(e)
}

// offsetPrice 按有利方向偏移：多头 base*(1+pct)，空头 base*(1-pct)。
func offsetPrice(long bool, base, pct float64) decimal.Decimal {
	p := decFromFloat(pct)
	if !long {
		p = p.Neg()
	}
	return decFromFloat(base).Mul(decOne.Add(p))
}

// retraceStop 是从极值回撤 callback 后的止损价。
func retraceStop(long bool, extreme, callback float64) decimal.Decimal {
	return offsetPrice(!long, extreme, callback)
}

// worseThan 判断 price 是否越过 level 向不利方向。
func worseThan(long bool, price float64, level decimal.Decimal) bool {
	p := decFromFloat(price)
	if long {
		return p.LessThan(level)
	}
	return p.GreaterThan(level)
}
