package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"planc/internal/breadth"
	"planc/internal/config"
	"planc/internal/engine"
	"planc/internal/execution"
	"planc/internal/gateway/binance"
	"planc/internal/gateway/exchange"
	"planc/internal/gateway/notifier"
	"planc/internal/gateway/paprika"
	"planc/internal/logger"
	"planc/internal/lot"
	"planc/internal/metrics"
	"planc/internal/position"
	"planc/internal/store/sqlite"
	"planc/internal/strategy"
	livehttp "planc/internal/transport/http/live"
)

// minPrimaryUniverse 是 CoinPaprika 结果可用的最小币种数，低于该值改用成交额排名。
const minPrimaryUniverse = 50

type AppBuilder struct {
	cfg        *config.Config
	configPath string

	exchangeFn func(config.ExchangeConfig) (exchange.Exchange, error)
	storeFn    func(string) (*sqlite.SqliteStore, error)
	notifierFn func(config.NotifyConfig) notifier.TextNotifier
	liveHTTPFn func(config.AppConfig, livehttp.Controller, livehttp.EventSource, http.Handler) (*livehttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithConfigPath 记录配置文件路径，用于热加载。
func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.configPath = strings.TrimSpace(path) }
}

// WithExchange 替换交易所实现（测试或模拟盘）。
func WithExchange(ex exchange.Exchange) AppBuilderOption {
	return func(b *AppBuilder) {
		b.exchangeFn = func(config.ExchangeConfig) (exchange.Exchange, error) { return ex, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		exchangeFn: newBinanceExchange,
		storeFn:    sqlite.NewSqliteStore,
		notifierFn: newTelegram,
		liveHTTPFn: buildLiveHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func newBinanceExchange(cfg config.ExchangeConfig) (exchange.Exchange, error) {
	return binance.New(binance.Config{
		APIKey:      cfg.APIKey,
		APISecret:   cfg.APISecret,
		RESTBaseURL: cfg.RESTBaseURL,
		Testnet:     cfg.Testnet,
		HTTPTimeout: seconds(cfg.HTTPTimeoutSeconds),
	})
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (b *AppBuilder) Build(ctx context.Context) (app *App, err error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	var closers []io.Closer
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				_ = closers[i].Close()
			}
		}
	}()

	events := logger.NewEventLog(cfg.App.EventLines)
	logger.SetSink(events)
	logFile, err := logger.SetOutputFile(logger.FileOptions{
		Path:       cfg.App.LogPath,
		MaxSizeMB:  cfg.App.LogMaxMB,
		MaxBackups: 5,
		MaxAgeDays: 30,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志文件失败: %w", err)
	}
	if logFile != nil {
		closers = append(closers, logFile)
	}

	ex, err := b.exchangeFn(cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("初始化交易所失败: %w", err)
	}
	httpTimeout := seconds(cfg.Exchange.HTTPTimeoutSeconds)
	m := metrics.New()

	rules := lot.NewCache(ex, seconds(cfg.Exchange.LotRulesTTLSeconds))
	top := paprika.New(paprika.Config{BaseURL: cfg.Market.PaprikaURL, Timeout: httpTimeout})
	universe := breadth.NewUniverse(top, rules, breadth.UniverseConfig{
		Size:       cfg.Market.UniverseSize,
		Refresh:    time.Duration(cfg.Market.UniverseRefreshMinutes) * time.Minute,
		MinPrimary: minPrimaryUniverse,
	})
	monitor := breadth.NewMonitor(universe, ex, cfg.Market.Symbol, m)

	var income *position.IncomeReconciler
	if path := strings.TrimSpace(cfg.Ledger.IncomeDBPath); path != "" {
		st, err := b.storeFn(path)
		if err != nil {
			return nil, fmt.Errorf("初始化资金流水库失败: %w", err)
		}
		closers = append(closers, st)
		income = position.NewIncomeReconciler(ex, st,
			time.Duration(cfg.Ledger.IncomeLookbackDays)*24*time.Hour,
			seconds(cfg.Ledger.IncomeRefreshSeconds))
	}
	trades, err := position.NewTradeLog(cfg.Ledger.TradesPath)
	if err != nil {
		return nil, err
	}
	totals, err := position.NewTotalsLog(cfg.Ledger.TotalsPath)
	if err != nil {
		return nil, err
	}
	ledger := position.NewLedger(ex, trades, totals, income)

	dispatcher := buildDispatcher(b.notifierFn(cfg.Notify))
	eng, err := engine.New(cfg, engine.Deps{
		Exchange:    ex,
		Executor:    execution.NewExecutor(ex, rules, m),
		Guard:       execution.NewMarginGuard(ex),
		Ledger:      ledger,
		Monitor:     monitor,
		Strategy:    strategy.NewPLANC(cfg.Strategy, m),
		Rules:       rules,
		Metrics:     m,
		Notifier:    dispatcher,
		HTTPTimeout: httpTimeout,
	})
	if err != nil {
		return nil, err
	}

	server, err := b.liveHTTPFn(cfg.App, eng, events, m.Handler())
	if err != nil {
		return nil, err
	}

	var watcher *config.Watcher
	if b.configPath != "" && cfg.App.WatchFile {
		if watcher, err = config.NewWatcher(b.configPath, cfg); err != nil {
			return nil, fmt.Errorf("初始化配置监听失败: %w", err)
		}
	}

	services := []string{"engine"}
	if server != nil {
		services = append(services, "http "+server.Addr())
	}
	if dispatcher != nil {
		services = append(services, "telegram")
	}
	if watcher != nil {
		services = append(services, "config-watch")
	}
	if income != nil {
		services = append(services, "income-reconcile")
	}

	return &App{
		cfg:      cfg,
		engine:   eng,
		liveHTTP: server,
		notify:   dispatcher,
		watcher:  watcher,
		closers:  closers,
		Summary:  newStartupSummary(cfg, ex.Name(), services),
	}, nil
}
