package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/likhith0410/expensegw/expenseapi"
	"github.com/likhith0410/expensegw/internal/config"
	"github.com/likhith0410/expensegw/internal/events"
	"github.com/likhith0410/expensegw/internal/jobs"
	"github.com/likhith0410/expensegw/internal/metrics"
	"github.com/likhith0410/expensegw/internal/queue"
	"github.com/likhith0410/expensegw/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "worker").Logger()

	q, err := queue.Open(cfg.QueuePath)
	if err != nil {
		log.Fatal("unable to open queue database:", err)
	}

	api := expenseapi.New(
		expenseapi.WithBaseURL(cfg.UpstreamURL),
		expenseapi.WithHTTPClient(&http.Client{Timeout: cfg.NetworkTimeout}),
	)

	engine := syncer.NewEngine(q, api, events.NewBus(64), metrics.New(prometheus.DefaultRegisterer), logger)
	reporter := syncer.NewReporter(&http.Client{Timeout: cfg.NetworkTimeout}, cfg.GatewayURL, logger)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		// The drain itself is strictly sequential; concurrency only
		// overlaps distinct task kinds.
		Concurrency:    2,
		StrictPriority: false,
		Queues: map[string]int{
			"sync":    10, // higher priority
			"default": 5,  // default priority
		},
	})
	mux := asynq.NewServeMux()

	drain := func(ctx context.Context, t *asynq.Task) error {
		var p jobs.DrainPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			log.Printf("[asynq] bad payload: %v", err)
			return err
		}
		log.Printf("[sync] start reason=%q", p.Reason)
		start := time.Now()
		res, err := engine.Drain(ctx)
		duration := time.Since(start)

		if err != nil {
			// Listing failures are transient storage trouble; let asynq retry.
			log.Printf("[sync] error duration=%v: %v", duration, err)
			return err
		}
		log.Printf("[sync] done attempted=%d synced=%d failed=%d duration=%v",
			res.Attempted, res.Synced, res.Failed, duration)

		// Best effort; the gateway feed lagging is not worth a retry.
		if res.Attempted > 0 {
			if err := reporter.Report(ctx, res); err != nil {
				log.Printf("[sync] report to gateway failed: %v", err)
			}
		}
		return nil
	}

	mux.HandleFunc(jobs.TaskDrainQueue, drain)
	mux.HandleFunc(jobs.TaskPeriodicSync, drain)

	// Scheduled drain: catches anything the connectivity watcher and host
	// triggers missed.
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, nil)
	periodic, _ := json.Marshal(jobs.DrainPayload{Reason: "periodic"})
	if _, err := scheduler.Register(cfg.SyncEvery,
		asynq.NewTask(jobs.TaskPeriodicSync, periodic), asynq.Queue("sync")); err != nil {
		log.Fatalf("register periodic sync: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	log.Println("Worker running...")
	log.Fatal(srv.Run(mux))
}
