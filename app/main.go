package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/dtube-pinner/app/cfg"
	"github.com/lysyi3m/dtube-pinner/app/config"
	"github.com/lysyi3m/dtube-pinner/app/dtube"
	"github.com/lysyi3m/dtube-pinner/app/ipfs"
	"github.com/lysyi3m/dtube-pinner/app/metrics"
	"github.com/lysyi3m/dtube-pinner/app/pipeline"
	"github.com/lysyi3m/dtube-pinner/app/steem"
	"github.com/lysyi3m/dtube-pinner/app/tasks"
)

const pushTimeout = 10 * time.Second

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger()

	slog.Info("Starting DTube pinner", "version", appCfg.Version)

	pinnerConfig, err := config.LoadFile(appCfg.ConfigPath, appCfg.ConfigFormat)
	if err != nil {
		slog.Error("Failed to load pinner configuration", "path", appCfg.ConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("Pinner configuration loaded",
		"feeds", len(pinnerConfig.Names),
		"concurrent_requests", pinnerConfig.ConcurrentRequests,
		"concurrent_pins", pinnerConfig.ConcurrentPins,
		"interval", pinnerConfig.Interval())

	mode, err := tasks.ParseMode(appCfg.Schedule)
	if err != nil {
		slog.Error("Invalid schedule", "error", err)
		os.Exit(1)
	}

	steemClient := steem.NewClient(appCfg.SteemEndpoint, newHTTPClient(pinnerConfig.ConcurrentRequests), appCfg.UserAgent)
	ipfsClient := ipfs.NewClient(appCfg.IPFSAPI, newHTTPClient(pinnerConfig.ConcurrentPins))

	recorder := metrics.New()
	logger := slog.Default()

	pinPipeline := pipeline.New(steemClient, ipfsClient, dtube.NewExtractor(pinnerConfig.Flags(), logger), pipeline.Options{
		ConcurrentRequests: pinnerConfig.ConcurrentRequests,
		ConcurrentPins:     pinnerConfig.ConcurrentPins,
		FetchTimeout:       appCfg.RequestTimeout,
		PinTimeout:         appCfg.PinTimeout,
		FeedRateLimit:      appCfg.FeedRateLimit,
		PinRetries:         appCfg.PinRetries,
		Metrics:            recorder,
		Logger:             logger,
	})

	scheduler := tasks.NewScheduler(pinPipeline, pinnerConfig.Names, pinnerConfig.Interval(), mode)

	if appCfg.PushgatewayURL != "" {
		pusher := metrics.NewPusher(appCfg.PushgatewayURL, "dtube_pinner", recorder)
		scheduler.OnCycleDone = func(pipeline.CycleStats) {
			ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			defer cancel()

			if err := pusher.Push(ctx); err != nil {
				slog.Warn("Metrics push failed", "url", appCfg.PushgatewayURL, "error", err)
			}
		}
	}

	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("DTube pinner started", "schedule", string(mode))

	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig.String())

	scheduler.Stop()

	slog.Info("DTube pinner shutdown complete")
}

func setupLogger() {
	appCfg := cfg.Get()

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if appCfg.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if appCfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// newHTTPClient sizes the idle pool to the number of concurrent requests made
// against a single host. Timeouts are applied per request by the pipeline.
func newHTTPClient(concurrency int) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        concurrency + 5,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: concurrency,
		},
	}
}
