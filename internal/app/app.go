package app

import (
	"context"
	"fmt"
	"io"

	"planc/internal/config"
	"planc/internal/engine"
	"planc/internal/gateway/notifier"
	"planc/internal/logger"
	livehttp "planc/internal/transport/http/live"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动引擎、HTTP 与通知。
type App struct {
	cfg      *config.Config
	engine   *engine.Engine
	liveHTTP *livehttp.Server
	notify   *notifier.Dispatcher
	watcher  *config.Watcher
	closers  []io.Closer
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）；configPath 非空且开启 watch_config 时监听配置变更。
func NewApp(cfg *config.Config, configPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, configPath)
}

// Run 启动全部组件，直到 ctx 结束或任一组件出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.engine == nil {
		return fmt.Errorf("engine not initialized")
	}
	defer a.Close()
	if a.Summary != nil {
		a.Summary.Log()
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	if a.notify != nil {
		group.Go(func() error {
			return a.notify.Run(ctx)
		})
	}
	if a.watcher != nil {
		a.watcher.Subscribe(func(cfg *config.Config) {
			logger.SetLevel(cfg.App.LogLevel)
			a.engine.ApplyConfig(ctx, cfg)
		})
		group.Go(func() error {
			return a.watcher.Run(ctx)
		})
	}
	group.Go(func() error {
		return a.engine.Run(ctx, true)
	})
	return group.Wait()
}

// Engine 暴露引擎实例，供命令行子命令与测试使用。
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Close 释放数据库与日志文件等资源。
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errs
}
