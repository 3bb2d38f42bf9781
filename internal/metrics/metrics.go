// Package metrics 暴露引擎的 Prometheus 指标：
//   - planc_orders_total{side,result}       下单结果（ok|skipped|error）
//   - planc_order_attempts_total{strategy}  每种精度策略的下单尝试次数
//   - planc_trend_state                     市场宽度状态（-1 down, 0 neutral, 1 up）
//   - planc_exit_signals_total{reason}      平仓信号原因
//   - planc_loop_errors_total{loop}         轮询循环失败次数
//
// 所有方法对 nil 接收者安全，组件可以不注入指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	orders        *prometheus.CounterVec
	orderAttempts *prometheus.CounterVec
	trendState    prometheus.Gauge
	exitSignals   *prometheus.CounterVec
	loopErrors    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planc_orders_total",
			Help: "Market orders by side and result",
		}, []string{"side", "result"}),
		orderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planc_order_attempts_total",
			Help: "Order submissions per normalization strategy",
		}, []string{"strategy"}),
		trendState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "planc_trend_state",
			Help: "Latched market breadth state (-1 down, 0 neutral, 1 up)",
		}),
		exitSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planc_exit_signals_total",
			Help: "Exit signals by reason",
		}, []string{"reason"}),
		loopErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planc_loop_errors_total",
			Help: "Failed polling loop iterations",
		}, []string{"loop"}),
	}
	m.registry.MustRegister(
		m.orders, m.orderAttempts, m.trendState, m.exitSignals, m.loopErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveOrder(side, result string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(side, result).Inc()
}

func (m *Metrics) ObserveOrderAttempt(strategy string) {
	if m == nil {
		return
	}
	m.orderAttempts.WithLabelValues(strategy).Inc()
}

func (m *Metrics) SetTrendState(v float64) {
	if m == nil {
		return
	}
	m.trendState.Set(v)
}

func (m *Metrics) ObserveExitSignal(reason string) {
	if m == nil {
		return
	}
	m.exitSignals.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveLoopError(loop string) {
	if m == nil {
		return
	}
	m.loopErrors.WithLabelValues(loop).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler 返回 /metrics 的 HTTP handler。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
