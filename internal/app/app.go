// Package app 负责应用级编排：加载配置→装配决策组件→启动 HTTP 服务。
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	ptcfg "papertrader/internal/config"
	"papertrader/internal/logger"
	"papertrader/internal/portfolio"
	"papertrader/internal/riskgate"
	sig "papertrader/internal/signal"
	"papertrader/internal/sizing"
	"papertrader/internal/store"
	"papertrader/internal/strategy/exit"
	"papertrader/internal/strategy/exit/handlers"
	papihttp "papertrader/internal/transport/http"
)

// App 持有全部已装配的依赖。
type App struct {
	cfg       *ptcfg.Config
	portfolio *portfolio.Portfolio
	engine    *sig.Engine
	sizer     *sizing.Calculator
	registry  *exit.HandlerRegistry
	store     *store.Store
	server    *papihttp.Server
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *ptcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	gate := riskgate.NewGate(cfg.Risk.GatePolicy())
	pf := portfolio.New(cfg.Trading.InitialBalance, gate)
	sizer := sizing.NewCalculator(cfg.Sizing.SizerPolicy())

	registry := exit.NewHandlerRegistry()
	handlers.RegisterCoreHandlers(registry)

	bundles := sig.DefaultBundles()
	if cfg.Exit.BundlesPath != "" {
		var err error
		bundles, err = sig.LoadBundles(cfg.Exit.BundlesPath)
		if err != nil {
			return nil, fmt.Errorf("loading exit bundles failed: %w", err)
		}
	}
	engine := sig.NewEngine(bundles)

	var st *store.Store
	if cfg.Trading.StorePath != "" {
		opened, err := store.Open(cfg.Trading.StorePath)
		if err != nil {
			return nil, fmt.Errorf("opening store failed: %w", err)
		}
		st = opened
		pf.SetRecorders(st, st)
		logger.Infof("app: store enabled at %s", cfg.Trading.StorePath)
	}

	server, err := papihttp.NewServer(papihttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Portfolio: pf,
		Engine:    engine,
		Sizer:     sizer,
		Store:     st,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		portfolio: pf,
		engine:    engine,
		sizer:     sizer,
		registry:  registry,
		store:     st,
		server:    server,
	}, nil
}

// Portfolio 暴露组合实例（供测试/回放使用）。
func (a *App) Portfolio() *portfolio.Portfolio {
	if a == nil {
		return nil
	}
	return a.portfolio
}

// ExitRegistry 暴露退出策略注册表。
func (a *App) ExitRegistry() *exit.HandlerRegistry {
	if a == nil {
		return nil
	}
	return a.registry
}

// Run 启动 HTTP 服务并阻塞到 ctx 取消或收到退出信号。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer a.close()

	logger.Infof("app: listening on %s (env=%s)", a.server.Addr(), a.cfg.App.Env)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

func (a *App) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("app: closing store failed: %v", err)
		}
	}
}
