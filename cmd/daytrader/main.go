package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pquerna/otp/totp"

	"daytrader-systemv1/config"
	"daytrader-systemv1/internal/engine"
	"daytrader-systemv1/internal/execution"
	"daytrader-systemv1/internal/gateway"
	"daytrader-systemv1/internal/logger"
	"daytrader-systemv1/internal/marketdata"
	"daytrader-systemv1/internal/markethours"
	"daytrader-systemv1/internal/metrics"
	"daytrader-systemv1/internal/model"
	"daytrader-systemv1/internal/notification"
	"daytrader-systemv1/internal/risk"
	"daytrader-systemv1/internal/scanner"
	redisstore "daytrader-systemv1/internal/store/redis"
	sqlitestore "daytrader-systemv1/internal/store/sqlite"
	"daytrader-systemv1/pkg/smartconnect"
)

const loginRetryDelay = 30 * time.Second

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("daytrader", slog.LevelInfo)
	log.Println("[daytrader] starting...")

	cfg := config.Load()
	symbols := cfg.Symbols()
	watchlist := model.NewWatchlist(symbols)

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Broker session ----
	client := smartconnect.NewClient(smartconnect.Config{APIKey: cfg.AngelAPIKey})
	client.SessionExpiryHook = func() {
		log.Println("[daytrader] session expired, renewing tokens")
		renewCtx, renewCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer renewCancel()
		if err := client.RenewAccessToken(renewCtx); err != nil {
			log.Printf("[daytrader] token renewal failed: %v", err)
			health.SetBrokerLoggedIn(false)
		}
	}
	if err := login(ctx, client, cfg); err != nil {
		log.Fatalf("[daytrader] broker login failed: %v", err)
	}
	health.SetBrokerLoggedIn(true)
	log.Printf("[daytrader] logged in as %s", cfg.AngelClientCode)

	// ---- Market data: resolver, quote cache, live feed ----
	resolver := marketdata.NewResolver(client)
	quotes := marketdata.NewService(client, resolver, cfg.QuoteMaxAge)
	feed := marketdata.NewFeed(client, resolver, quotes)
	if err := feed.Subscribe(ctx, symbols); err != nil {
		log.Printf("[daytrader] feed subscribe failed: %v (REST quotes still work)", err)
	}
	go feed.Run(ctx)

	// Reflect feed liveness into health.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				health.SetFeedConnected(feed.Healthy())
			}
		}
	}()

	// ---- Event sinks: journal, redis, ws hub, notifier ----
	var sinks []engine.Sink

	os.MkdirAll("data", 0o755)
	journal, err := sqlitestore.New(cfg.SQLitePath)
	if err != nil {
		log.Printf("[daytrader] WARNING: sqlite init failed: %v (continuing without journal)", err)
	} else {
		defer journal.Close()
		health.SetSQLiteOK(true)
		sinks = append(sinks, journal)
	}

	publisher, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[daytrader] WARNING: redis init failed: %v (continuing without pubsub)", err)
	} else {
		defer publisher.Close()
		health.SetRedisConnected(true)
		sinks = append(sinks, publisher)
	}

	hub := gateway.NewHub()
	sinks = append(sinks, hub)

	var notifier notification.Notifier
	switch {
	case cfg.TelegramBotToken != "" && cfg.TelegramChatID != "":
		notifier = notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		log.Println("[daytrader] telegram notifications enabled")
	case cfg.WebhookURL != "":
		notifier = notification.NewWebhookNotifier(cfg.WebhookURL)
		log.Println("[daytrader] webhook notifications enabled")
	default:
		notifier = notification.NewLogNotifier()
	}
	sinks = append(sinks, notification.Sink(notifier))

	// ---- Trading engine ----
	var broker engine.Broker = quotes
	if cfg.PaperMode {
		log.Printf("[daytrader] *** PAPER MODE: simulated fills, slippage %.1f bps ***", cfg.SlippageBps)
		broker = execution.NewPaperBroker(quotes, cfg.SlippageBps)
	}
	limits := &risk.Limits{
		MaxQty:           cfg.RiskMaxQty,
		MaxOpenPositions: cfg.RiskMaxOpenPos,
		MaxExposure:      cfg.RiskMaxExposure,
		MaxDailyLoss:     cfg.RiskMaxDailyLoss,
	}
	eng := engine.New(engine.Options{
		Broker:          broker,
		ConfirmToken:    cfg.ConfirmToken,
		MonitorInterval: cfg.MonitorInterval,
		Metrics:         prom,
		Sinks:           sinks,
		Risk:            limits,
	})
	eng.StartMonitor(ctx)
	health.SetMonitorRunning(true)

	// ---- Scanner & HTTP API ----
	scan := scanner.New(quotes, prom)
	api := gateway.NewServer(gateway.Config{
		Engine:    eng,
		Scanner:   scan,
		Quotes:    quotes,
		Watchlist: watchlist,
		Hub:       hub,
		ScanDefaults: scanner.Config{
			Symbols:      symbols,
			Interval:     cfg.ScanInterval,
			Bars:         cfg.ScanBars,
			InvestAmount: cfg.InvestAmount,
			TPPct:        cfg.TPPct,
			SLPct:        cfg.SLPct,
			EntryType:    model.OrderTypeMarket,
			ExitPref:     model.ExitAuto,
		},
	})
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		log.Printf("[daytrader] API listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[daytrader] http server: %v", err)
		}
	}()

	log.Printf("[daytrader] ready: %d symbols, monitor every %s", len(symbols), cfg.MonitorInterval)
	log.Printf("[daytrader] %s", markethours.StatusString(time.Now()))

	// ---- Wait for shutdown signal ----
	<-sigCh
	log.Println("[daytrader] shutdown signal received, cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	client.TerminateSession(shutdownCtx)

	log.Println("[daytrader] shutdown complete.")
}

// login generates a fresh TOTP and opens a broker session, retrying a few
// times before giving up.
func login(ctx context.Context, client *smartconnect.Client, cfg *config.Config) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		var code string
		code, err = totp.GenerateCode(cfg.AngelTOTPSecret, time.Now())
		if err != nil {
			return err
		}
		if err = client.GenerateSession(ctx, cfg.AngelClientCode, cfg.AngelPassword, code); err == nil {
			return nil
		}
		log.Printf("[daytrader] login attempt %d failed: %v, retrying in %s", attempt, err, loginRetryDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(loginRetryDelay):
		}
	}
	return err
}
