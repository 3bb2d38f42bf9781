package app

import (
	"context"

	"planc/internal/config"
)

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *config.Config, configPath string) *AppBuilder {
	return NewAppBuilder(cfg, WithConfigPath(configPath))
}
