package app

import (
	"fmt"
	"net/http"

	"planc/internal/config"
	"planc/internal/gateway/notifier"
	"planc/internal/logger"
	livehttp "planc/internal/transport/http/live"
)

func buildLiveHTTPServer(cfg config.AppConfig, ctl livehttp.Controller, events livehttp.EventSource, metrics http.Handler) (*livehttp.Server, error) {
	if cfg.HTTPAddr == "" || cfg.HTTPAddr == "off" {
		return nil, nil
	}
	server, err := livehttp.NewServer(livehttp.ServerConfig{
		Addr:       cfg.HTTPAddr,
		Controller: ctl,
		Events:     events,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 live HTTP 失败: %w", err)
	}
	logger.Infof("✓ Live HTTP 接口监听 %s", server.Addr())
	return server, nil
}

func newTelegram(cfg config.NotifyConfig) notifier.TextNotifier {
	if !cfg.Telegram.Enabled {
		return nil
	}
	return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}

func buildDispatcher(target notifier.TextNotifier) *notifier.Dispatcher {
	if target == nil {
		return nil
	}
	logger.Infof("✓ Telegram 通知已启用")
	return notifier.NewDispatcher(target, 64)
}
