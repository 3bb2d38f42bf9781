package position

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const totalsHeader = "time,local_total,binance_realized,total"

// Totals 是一次累计盈亏快照。
type Totals struct {
	Time             time.Time `json:"time"`
	LocalTotal       float64   `json:"local_total"`
	ExchangeRealized float64   `json:"exchange_realized"`
}

func (t Totals) Total() float64 { return t.LocalTotal + t.ExchangeRealized }

// TotalsLog 追加写入累计盈亏快照文件。
type TotalsLog struct {
	path string
	mu   sync.Mutex
}

func NewTotalsLog(path string) (*TotalsLog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("totals path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &TotalsLog{path: path}, nil
}

func (l *TotalsLog) Append(t Totals) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s,%.2f,%.2f,%.2f\n", t.Time.Format(timeLayout), t.LocalTotal, t.ExchangeRealized, t.Total())
	return appendLine(l.path, totalsHeader, line)
}
