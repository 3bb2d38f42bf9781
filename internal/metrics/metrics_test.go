package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveOrder("BUY", "ok")
	m.ObserveOrder("BUY", "ok")
	m.ObserveOrderAttempt("native")
	m.ObserveExitSignal("trailing_stop")
	m.ObserveLoopError("market")
	m.SetTrendState(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.orders.WithLabelValues("BUY", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orderAttempts.WithLabelValues("native")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exitSignals.WithLabelValues("trailing_stop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loopErrors.WithLabelValues("market")))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.trendState))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOrder("SELL", "error")
		m.SetTrendState(1)
		m.ObserveLoopError("price")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveOrder("SELL", "ok")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `planc_orders_total{result="ok",side="SELL"} 1`)
}
