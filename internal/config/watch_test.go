package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadNotifiesAndKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "planc.yaml", "trading:\n  leverage: 5\n")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.Equal(t, 5, w.Current().Trading.Leverage)

	var got []int
	w.Subscribe(func(c *Config) { got = append(got, c.Trading.Leverage) })
	w.Subscribe(func(*Config) { panic("listener boom") })
	w.Subscribe(nil)

	require.NoError(t, os.WriteFile(path, []byte("trading:\n  leverage: 8\n"), 0o644))
	w.reload()
	assert.Equal(t, []int{8}, got)
	assert.Equal(t, 8, w.Current().Trading.Leverage)

	require.NoError(t, os.WriteFile(path, []byte("trading:\n  leverage: 500\n"), 0o644))
	w.reload()
	assert.Equal(t, []int{8}, got)
	assert.Equal(t, 8, w.Current().Trading.Leverage)
}

func TestNewWatcher_RequiresPath(t *testing.T) {
	_, err := NewWatcher("  ", nil)
	assert.Error(t, err)
}
