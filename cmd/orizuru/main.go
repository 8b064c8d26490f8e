// Copyright 2025 James Ross
// Command orizuru is an example driver over the core library: a producer
// role that scans a directory and pushes file jobs, a consumer role that
// claims and acknowledges them, a gc role that runs the rescue sweep on a
// cron schedule, and an admin-api role that serves read/purge introspection.
// This driver is an example; library consumers are expected to build their
// own CLI or service glue on top of the core packages.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flyingrobots/orizuru/internal/adminapi"
	"github.com/flyingrobots/orizuru/internal/breaker"
	"github.com/flyingrobots/orizuru/internal/codec"
	"github.com/flyingrobots/orizuru/internal/config"
	"github.com/flyingrobots/orizuru/internal/consumer"
	"github.com/flyingrobots/orizuru/internal/gc"
	"github.com/flyingrobots/orizuru/internal/obs"
	"github.com/flyingrobots/orizuru/internal/producer"
	"github.com/flyingrobots/orizuru/internal/redisclient"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var version = "dev"

// Job is the example payload used by this driver. Library consumers provide
// their own types; only the Codec capability is required.
type Job struct {
	ID      string `codec:"id"`
	Payload string `codec:"payload"`
}

func main() {
	var role, configPath, sourceQueue, consumerName string
	var showVersion bool
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&role, "role", "consumer", "Role to run: producer|consumer|gc|admin-api")
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.StringVar(&sourceQueue, "queue", "orizuru:jobs", "Source queue name")
	fs.StringVar(&consumerName, "name", "", "Consumer name (default: random)")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}
	if consumerName == "" {
		consumerName = uuid.NewString()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := obs.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	rdb := redisclient.New(cfg)
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", obs.String("signal", sig.String()))
		cancel()
		select {
		case sig2 := <-sigCh:
			logger.Warn("second signal received, exiting immediately", obs.String("signal", sig2.String()))
			os.Exit(1)
		case <-time.After(5 * time.Second):
		}
	}()

	if role != "admin-api" {
		readyCheck := func(c context.Context) error {
			_, err := rdb.Ping(c).Result()
			return err
		}
		httpSrv := obs.StartHTTPServer(cfg, readyCheck)
		defer func() { _ = httpSrv.Shutdown(context.Background()) }()
	}

	switch role {
	case "producer":
		runProducer(ctx, cfg, rdb, logger, sourceQueue)
	case "consumer":
		runConsumer(ctx, cfg, rdb, logger, sourceQueue, consumerName)
	case "gc":
		runGC(ctx, cfg, rdb, logger)
	case "admin-api":
		runAdminAPI(ctx, cfg, rdb, logger)
	default:
		logger.Fatal("unknown role", obs.String("role", role))
	}
}

// runProducer scans cfg.Producer.ScanDir once and pushes one FileJob per
// matched path onto sourceQueue, then exits.
func runProducer(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger, sourceQueue string) {
	p := producer.New(sourceQueue, rdb, logger)
	dp := producer.NewDirProducer(p, logger)
	dp.IncludeGlobs = cfg.Producer.IncludeGlobs
	dp.ExcludeGlobs = cfg.Producer.ExcludeGlobs

	if err := dp.Scan(ctx, cfg.Producer.ScanDir); err != nil {
		logger.Error("scan failed", obs.Err(err))
		os.Exit(1)
	}
	obs.QueueLength.WithLabelValues(sourceQueue).Set(float64(p.Size(ctx)))
	logger.Info("producer scan complete", obs.String("queue", sourceQueue), obs.Int("size", int(p.Size(ctx))))
}

// runConsumer registers, heartbeats on a ticker, and loops claiming and
// acknowledging jobs until ctx is cancelled or Stop is called.
func runConsumer(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger, sourceQueue, name string) {
	cb := breaker.New(cfg.CircuitBreaker.Window, cfg.CircuitBreaker.CooldownPeriod, cfg.CircuitBreaker.FailureThreshold, cfg.CircuitBreaker.MinSamples)
	c := consumer.New(name, sourceQueue, rdb, logger, consumer.WithCircuitBreaker(cb))
	cd := codec.NewMsgpack[Job]()

	if err := c.Register(ctx); err != nil {
		logger.Error("register failed", obs.Err(err))
		os.Exit(1)
	}
	defer func() {
		if err := c.Stop(context.Background()); err != nil {
			logger.Warn("deregister on shutdown failed", obs.Err(err))
		}
	}()

	heartbeatTicker := time.NewTicker(cfg.Consumer.HeartbeatTTL / 3)
	defer heartbeatTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeatTicker.C:
				if _, err := c.Heartbeat(ctx, cfg.Consumer.HeartbeatTTL); err != nil {
					logger.Warn("heartbeat failed", obs.Err(err))
				}
			}
		}
	}()

	logger.Info("consumer started", obs.String("name", name), obs.String("source_queue", sourceQueue))
	for {
		select {
		case <-ctx.Done():
			logger.Info("consumer stopping", obs.String("name", name))
			return
		default:
		}

		res := consumer.Next[Job](ctx, c, cd, cfg.Consumer.BRPopLPushTimeout)
		if res == nil {
			logger.Info("consumer stopped", obs.String("name", name))
			return
		}
		if res.Err != nil {
			if cfg.Consumer.BreakerPause > 0 {
				time.Sleep(cfg.Consumer.BreakerPause)
			}
			continue
		}

		obs.PayloadsClaimed.Inc()
		func() {
			guard := res.Guard
			defer guard.Release(ctx)

			job := guard.Message()
			logger.Debug("claimed job", obs.String("id", job.ID))

			if _, err := guard.Ack(ctx); err != nil {
				logger.Warn("ack failed", obs.Err(err))
				return
			}
			obs.PayloadsAcked.Inc()
		}()
	}
}

// runGC starts the cron-scheduled rescue sweep and blocks until ctx is
// cancelled.
func runGC(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) {
	g := gc.New(rdb, logger)
	cronRunner, err := g.StartCron(ctx, cfg.GC.CronSpec)
	if err != nil {
		logger.Error("gc cron start failed", obs.Err(err))
		os.Exit(1)
	}
	logger.Info("gc started", obs.String("cron_spec", cfg.GC.CronSpec))
	<-ctx.Done()
	stopCtx := cronRunner.Stop()
	<-stopCtx.Done()
	logger.Info("gc stopped")
}

// runAdminAPI serves the read/purge introspection HTTP API until ctx is
// cancelled.
func runAdminAPI(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) {
	srv := adminapi.New(rdb, logger)
	httpSrv := &http.Server{Addr: cfg.AdminAPI.Addr, Handler: srv.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("admin-api listening", obs.String("addr", cfg.AdminAPI.Addr))
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("admin-api server error", obs.Err(err))
		os.Exit(1)
	}
}
