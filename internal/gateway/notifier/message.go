package notifier

import (
	"fmt"
	"strings"
	"time"
)

const maxMessageLen = 3800

// Field 是通知中的一行键值。
type Field struct {
	Key   string
	Value string
}

// Message 是统一格式的推送内容，字段渲染在代码块中避免 Markdown 转义问题。
type Message struct {
	Icon      string
	Title     string
	Fields    []Field
	Timestamp time.Time
}

func (m Message) RenderMarkdown() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString("*" + sanitize(header) + "*\n")
	}
	width := 0
	for _, f := range m.Fields {
		if len(f.Key) > width {
			width = len(f.Key)
		}
	}
	if len(m.Fields) > 0 {
		b.WriteString("```\n")
		for _, f := range m.Fields {
			fmt.Fprintf(&b, "%-*s  %s\n", width, sanitize(f.Key), sanitize(f.Value))
		}
		b.WriteString("```\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString(m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxMessageLen {
		body = body[:maxMessageLen] + "..."
	}
	return body
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	s = strings.ReplaceAll(s, "*", "")
	return strings.TrimSpace(s)
}

// OrderOpened 描述一次开仓。
func OrderOpened(symbol, side, qty string, price float64, reason string, at time.Time) Message {
	icon := "🟢"
	if strings.EqualFold(side, "SELL") || strings.EqualFold(side, "SHORT") {
		icon = "🔴"
	}
	return Message{
		Icon:  icon,
		Title: fmt.Sprintf("%s %s opened", symbol, strings.ToUpper(side)),
		Fields: []Field{
			{Key: "qty", Value: qty},
			{Key: "price", Value: fmt.Sprintf("%.8g", price)},
			{Key: "reason", Value: reason},
		},
		Timestamp: at,
	}
}

// PositionClosed 描述一次平仓及其已实现盈亏。
func PositionClosed(symbol string, qty, entry, exit, pnl float64, reason string, at time.Time) Message {
	icon := "✅"
	if pnl < 0 {
		icon = "❌"
	}
	return Message{
		Icon:  icon,
		Title: symbol + " closed",
		Fields: []Field{
			{Key: "qty", Value: fmt.Sprintf("%.8g", qty)},
			{Key: "entry", Value: fmt.Sprintf("%.8g", entry)},
			{Key: "exit", Value: fmt.Sprintf("%.8g", exit)},
			{Key: "pnl", Value: fmt.Sprintf("%+.4f USDT", pnl)},
			{Key: "reason", Value: reason},
		},
		Timestamp: at,
	}
}
