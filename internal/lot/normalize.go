// Package lot 把期望下单数量规整为交易所可接受的数量。
package lot

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	decZero = decimal.Zero
	decOne  = decimal.NewFromInt(1)
)

// Rules 是单个交易对的数量规则。
type Rules struct {
	Symbol           string
	StepSize         decimal.Decimal
	MinQty           decimal.Decimal
	MinNotional      decimal.Decimal
	QuantityDecimals int32
}

// Precision 强制覆盖步长与小数位，用于精度被拒后的降级重试。
type Precision struct {
	Step     decimal.Decimal
	Decimals int32
}

func (p Precision) String() string {
	return p.Step.String()
}

// Quantity 是规整后的数量；Text 是提交给交易所的字符串。
type Quantity struct {
	Value decimal.Decimal
	Text  string
}

// IsZero 为 true 时订单不可执行，调用方应跳过。
func (q Quantity) IsZero() bool {
	return !q.Value.IsPositive()
}

func (q Quantity) Float() float64 {
	f, _ := q.Value.Float64()
	return f
}

// Normalize 按步长向下取整，并保证不低于最小数量、名义价值不低于最小名义价值。
// 输入非正数时返回零数量。price 为 0 时跳过名义价值检查。
func Normalize(raw, price decimal.Decimal, rules Rules, forced *Precision) Quantity {
	if !raw.IsPositive() {
		return Quantity{Value: decZero, Text: "0"}
	}
	step := rules.StepSize
	decimals := rules.QuantityDecimals
	if forced != nil {
		step = forced.Step
		decimals = forced.Decimals
	}
	if decimals < 0 {
		decimals = 0
	}
	if !step.IsPositive() {
		step = unitForDecimals(decimals)
	}

	q := decimal.Max(raw, rules.MinQty)
	q = floorToStep(q, step)
	if q.LessThan(rules.MinQty) {
		q = ceilToStep(rules.MinQty, step)
	}
	if !q.IsPositive() {
		q = step
	}
	if rules.MinNotional.IsPositive() && price.IsPositive() && q.Mul(price).LessThan(rules.MinNotional) {
		q = ceilToStep(rules.MinNotional.DivRound(price, 16), step)
	}

	unit := unitForDecimals(decimals)
	q = q.Truncate(decimals)
	if !q.IsPositive() {
		q = unit
	}
	// 小数位比步长粗时截断可能再次跌破最小名义价值
	if rules.MinNotional.IsPositive() && price.IsPositive() && q.Mul(price).LessThan(rules.MinNotional) {
		q = ceilToStep(rules.MinNotional.DivRound(price, 16), unit)
	}
	return Quantity{Value: q, Text: q.StringFixed(decimals)}
}

// NormalizeFloat 是 Normalize 的 float 入口。
func NormalizeFloat(raw, price float64, rules Rules, forced *Precision) Quantity {
	return Normalize(decimal.NewFromFloat(raw), decimal.NewFromFloat(price), rules, forced)
}

func floorToStep(v, step decimal.Decimal) decimal.Decimal {
	quo, _ := v.QuoRem(step, 0)
	return quo.Mul(step)
}

func ceilToStep(v, step decimal.Decimal) decimal.Decimal {
	quo, rem := v.QuoRem(step, 0)
	if rem.IsPositive() {
		quo = quo.Add(decOne)
	}
	return quo.Mul(step)
}

func unitForDecimals(decimals int32) decimal.Decimal {
	return decimal.New(1, -decimals)
}

// StepDecimals 返回步长字符串的有效小数位，例如 "0.0010" -> 3。
func StepDecimals(step string) int32 {
	step = strings.TrimSpace(step)
	idx := strings.IndexByte(step, '.')
	if idx < 0 {
		return 0
	}
	return int32(len(strings.TrimRight(step[idx+1:], "0")))
}
