package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"pmm-quoter-go/config"
	"pmm-quoter-go/gateway"
	"pmm-quoter-go/indicator"
	"pmm-quoter-go/infrastructure/alert"
	"pmm-quoter-go/infrastructure/logger"
	"pmm-quoter-go/internal/engine"
	"pmm-quoter-go/inventory"
	"pmm-quoter-go/market"
	"pmm-quoter-go/metrics"
	"pmm-quoter-go/order"
	"pmm-quoter-go/risk"
	"pmm-quoter-go/sim"
	"pmm-quoter-go/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	dryRun := flag.Bool("dryRun", false, "纸面网关：仅记录下单，不触达交易所")
	restRate := flag.Float64("restRate", 5, "REST 限流：每秒令牌数")
	restBurst := flag.Int("restBurst", 10, "REST 限流：最大突发令牌数")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	lg, err := logger.New(logger.Config{
		Level:   cfg.Logger.Level,
		Outputs: []string{"stdout"},
		Format:  cfg.Logger.Format,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	if cfg.Feed.Endpoint == "" {
		lg.Error("feed.endpoint is required; offline runs use the replay binary")
		os.Exit(1)
	}

	if cfg.Metrics.Addr != "" {
		metrics.StartMetricsServer(cfg.Metrics.Addr)
		lg.Info("Metrics server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 配置热更新：收到有效新配置时重建引擎
	reloadCh := make(chan config.AppConfig, 1)
	watcher, err := config.NewWatcher(*cfgPath, 2*time.Second)
	if err != nil {
		lg.Warn("Config watcher unavailable", zap.Error(err))
	} else {
		if err := watcher.Start(ctx, func(next config.AppConfig) {
			select {
			case reloadCh <- next:
			default:
			}
		}); err != nil {
			lg.Warn("Config watcher start failed", zap.Error(err))
		}
		defer watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdogLoop(ctx)

	for {
		eng, feed, err := buildEngine(ctx, cfg, lg, *dryRun, *restRate, *restBurst)
		if err != nil {
			lg.Error("Failed to build engine", zap.Error(err))
			os.Exit(1)
		}
		if err := eng.Start(ctx); err != nil {
			lg.Error("Failed to start engine", zap.Error(err))
			os.Exit(1)
		}

		select {
		case sig := <-sigCh:
			lg.Info("Signal received, shutting down", zap.String("signal", sig.String()))
			_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
			stopAll(eng, feed, lg)
			return
		case next := <-reloadCh:
			lg.Info("Config changed, rebuilding engine")
			_, _ = daemon.SdNotify(false, daemon.SdNotifyReloading)
			stopAll(eng, feed, lg)
			cfg = next
			_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
		case <-ctx.Done():
			stopAll(eng, feed, lg)
			return
		}
	}
}

// buildEngine 按配置组装一套完整的组件栈。
func buildEngine(ctx context.Context, cfg config.AppConfig, lg *logger.Logger, dryRun bool, restRate float64, restBurst int) (*engine.QuoteEngine, *gateway.BookTickerFeed, error) {
	quoter, err := strategy.NewQuoter(strategy.Config{
		BaseSpreadPct:        cfg.Quote.BaseSpreadPct,
		BaseOrderSize:        cfg.Quote.BaseOrderSize,
		VolatilityMultiplier: cfg.Quote.VolatilityMultiplier,
		MaxInventoryPct:      cfg.Quote.MaxInventoryPct,
		MaxInventory:         cfg.Quote.MaxInventory,
	})
	if err != nil {
		return nil, nil, err
	}

	gate, err := risk.NewStopLossGate(cfg.Risk.StopLossPct)
	if err != nil {
		return nil, nil, err
	}

	inv := inventory.NewTracker(cfg.Inventory.InitialBase, cfg.Inventory.InitialQuote)

	var gw order.Gateway
	if cfg.Exchange.RestURL != "" && !dryRun {
		gw = &gateway.RESTGateway{
			BaseURL:    cfg.Exchange.RestURL,
			APIKey:     cfg.Exchange.APIKey,
			Secret:     cfg.Exchange.APISecret,
			Symbol:     cfg.Symbol,
			HTTPClient: gateway.NewDefaultHTTPClient(),
			Limiter:    gateway.NewTokenBucketLimiter(restRate, restBurst),
		}
	} else {
		lg.Info("Using paper gateway", zap.Bool("dry_run", dryRun))
		gw = &sim.PaperGateway{}
	}

	mgr := order.NewManager(gw)
	mgr.OnFill(func(side order.Side, price, qty float64) {
		inv.OnFill(qty, price)
	})

	rec := order.NewReconciler(mgr, order.ReconcilerConfig{
		Symbol: cfg.Symbol,
		Constraints: order.Constraints{
			TickSize:    cfg.Exchange.TickSize,
			StepSize:    cfg.Exchange.StepSize,
			MinQty:      cfg.Exchange.MinQty,
			MinNotional: cfg.Exchange.MinNotional,
		},
		ToleranceTicks: 1,
	})

	guards := risk.MultiGuard{Guards: []risk.Guard{
		&risk.HaltGuard{Source: gate},
		&risk.InventoryCapGuard{Source: inv, MaxInventory: cfg.Quote.MaxInventory},
		&risk.NotionalGuard{MaxNotional: cfg.Risk.MaxOrderNotional},
	}}

	feed, err := gateway.NewBookTickerFeed(cfg.Feed.Endpoint, cfg.Symbol, lg.Logger)
	if err != nil {
		return nil, nil, err
	}
	feed.Start(ctx)

	var agg *market.KlineAggregator
	if cfg.Indicators.KlineInterval() > 0 {
		agg = market.NewKlineAggregator(cfg.Indicators.KlineInterval())
	}

	channels := []alert.Channel{alert.NewLogChannel("log", nil)}
	if cfg.Alert.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookChannel("webhook", cfg.Alert.WebhookURL))
	}
	alerts := alert.NewManager(channels, cfg.Alert.ThrottleInterval())

	eng, err := engine.New(engine.Config{
		Symbol:          cfg.Symbol,
		RefreshInterval: cfg.Engine.RefreshInterval(),
	}, engine.Components{
		Quoter:     quoter,
		Indicators: indicator.NewTracker(cfg.Indicators.SMAPeriod, cfg.Indicators.ATRPeriod),
		Inventory:  inv,
		Gate:       gate,
		Guards:     guards,
		Reconciler: rec,
		Prices:     feed,
		Klines:     agg,
		Alerts:     alerts,
		Logger:     lg,
	})
	if err != nil {
		feed.Stop()
		return nil, nil, err
	}
	return eng, feed, nil
}

func stopAll(eng *engine.QuoteEngine, feed *gateway.BookTickerFeed, lg *logger.Logger) {
	if err := eng.Stop(); err != nil {
		lg.Error("Engine stop failed", zap.Error(err))
	}
	feed.Stop()
}

// watchdogLoop 按 systemd watchdog 周期发送心跳。
func watchdogLoop(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
