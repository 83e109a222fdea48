package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/imagebot/internal/config"
	"github.com/kitbuilder587/imagebot/internal/imagesearch"
	"github.com/kitbuilder587/imagebot/internal/imagesearch/bing"
	"github.com/kitbuilder587/imagebot/internal/metrics"
	"github.com/kitbuilder587/imagebot/internal/ratelimit"
	"github.com/kitbuilder587/imagebot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	pacer := ratelimit.NewPacer(ratelimit.PacerConfig{
		RequestsPerSecond: cfg.Bing.RequestsPerSecond,
		Burst:             1,
	})

	bingCfg := bing.Config{
		APIKey:         cfg.Bing.APIKey,
		BaseURL:        cfg.Bing.BaseURL,
		Timeout:        cfg.Bing.Timeout,
		QueryThreshold: cfg.Bing.QueryThreshold,
		SafeSearch:     cfg.SafeSearchMode(),
	}
	// один http.Client на все сессии, чтобы переиспользовать соединения
	httpClient := &http.Client{Timeout: cfg.Bing.Timeout}
	newSearcher := func() imagesearch.ImageSearcher {
		// предупреждения уже залогированы из конфига
		c, _ := bing.New(bingCfg, logger,
			bing.WithHTTPClient(httpClient),
			bing.WithMetrics(m),
			bing.WithPacer(pacer),
			bing.WithResolveConcurrency(cfg.Bing.ResolveConcurrency),
		)
		return c
	}

	bot, err := telegram.New(telegram.BotConfig{
		Token:      cfg.Telegram.Token,
		Debug:      cfg.Telegram.Debug,
		BatchSize:  cfg.Telegram.BatchSize,
		SessionTTL: cfg.Session.TTL,
	}, newSearcher, logger, m)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := bot.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("metrics server started", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("imagebot stopped")
	return err
}

func metricsMux(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HandlerFor(g))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
