package position

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Trade 是一笔已平仓交易的审计记录。
type Trade struct {
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
}

func (t Trade) line() string {
	return fmt.Sprintf("%s,%s,%s,%s,%s,%s\n",
		t.Time.Format(timeLayout), t.Symbol,
		formatFloat(t.Quantity), formatFloat(t.EntryPrice), formatFloat(t.ExitPrice), formatFloat(t.PnL))
}

func parseTrade(line string, loc *time.Location) (Trade, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 6 {
		return Trade{}, errors.New("want 6 fields")
	}
	ts, err := time.ParseInLocation(timeLayout, parts[0], loc)
	if err != nil {
		return Trade{}, err
	}
	nums := make([]float64, 4)
	for i, raw := range parts[2:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Trade{}, err
		}
		nums[i] = v
	}
	return Trade{Time: ts, Symbol: parts[1], Quantity: nums[0], EntryPrice: nums[1], ExitPrice: nums[2], PnL: nums[3]}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TradeLog 是只追加的本地成交账本：每次写入一整行并落盘，读取时跳过无法解析的行。
type TradeLog struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

func NewTradeLog(path string) (*TradeLog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("trade log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &TradeLog{path: path, loc: time.Local}, nil
}

func (l *TradeLog) Append(t Trade) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return appendLine(l.path, "", t.line())
}

// ReadAll 返回全部可解析的记录；maxRows > 0 时只保留最后 maxRows 条。
func (l *TradeLog) ReadAll(maxRows int) ([]Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	var trades []Trade
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		t, err := parseTrade(line, l.loc)
		if err != nil {
			continue
		}
		trades = append(trades, t)
	}
	if err := scanner.Err(); err != nil {
		return trades, fmt.Errorf("scan trade log: %w", err)
	}
	if maxRows > 0 && len(trades) > maxRows {
		trades = trades[len(trades)-maxRows:]
	}
	return trades, nil
}

// appendLine 以 O_APPEND 打开文件写入一行并 fsync；header 非空且文件为空时先写表头。
func appendLine(path, header, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if header != "" {
		if info, err := f.Stat(); err == nil && info.Size() == 0 {
			line = header + "\n" + line
		}
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return f.Sync()
}
