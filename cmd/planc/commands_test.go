package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"planc/internal/position"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["run"])
	assert.True(t, names["ledger"])
	assert.True(t, names["rules"])
}

func TestRulesCmd_RequiresSymbol(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"rules"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestLedgerCmd_PrintsTotals(t *testing.T) {
	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	cfgPath := filepath.Join(dir, "planc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("ledger:\n  trades_path: "+tradesPath+"\n  totals_path: "+filepath.Join(dir, "totals.csv")+"\n"), 0o644))

	log, err := position.NewTradeLog(tradesPath)
	require.NoError(t, err)
	require.NoError(t, log.Append(position.Trade{Time: time.Now(), Symbol: "BTCUSDT", Quantity: 0.01, EntryPrice: 100, ExitPrice: 101, PnL: 0.01}))
	require.NoError(t, log.Append(position.Trade{Time: time.Now(), Symbol: "ETHUSDT", Quantity: 0.1, EntryPrice: 2000, ExitPrice: 1990, PnL: 1}))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "ledger", "-n", "1"})
	root.SetOut(&out)
	require.NoError(t, root.Execute())

	text := out.String()
	assert.Contains(t, text, "trades:      2")
	assert.Contains(t, text, "total pnl:   1.0100 USDT")
	assert.Contains(t, text, "ETHUSDT")
	assert.NotContains(t, text, "BTCUSDT")
}
