package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/oauth2"

	"github.com/likhith0410/expensegw/cachestore"
	"github.com/likhith0410/expensegw/expenseapi"
	"github.com/likhith0410/expensegw/internal/config"
	"github.com/likhith0410/expensegw/internal/events"
	"github.com/likhith0410/expensegw/internal/http/routes"
	"github.com/likhith0410/expensegw/internal/jobs"
	"github.com/likhith0410/expensegw/internal/lifecycle"
	"github.com/likhith0410/expensegw/internal/metrics"
	"github.com/likhith0410/expensegw/internal/notify"
	"github.com/likhith0410/expensegw/internal/queue"
	"github.com/likhith0410/expensegw/internal/router"
	"github.com/likhith0410/expensegw/internal/strategy"
	"github.com/likhith0410/expensegw/internal/syncer"
	"github.com/likhith0410/expensegw/rates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Printf("starting gateway on :%s", cfg.Port)

	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		log.Fatalf("invalid upstream url: %v", err)
	}

	// Durable stores
	store, err := cachestore.NewFileStore(cfg.CacheDir)
	if err != nil {
		log.Fatalf("cache store error: %v", err)
	}
	q, err := queue.Open(cfg.QueuePath)
	if err != nil {
		log.Fatalf("queue error: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	bus := events.NewBus(64)

	netClient := &http.Client{Timeout: cfg.NetworkTimeout}

	// Lifecycle: install the current generation, then take over
	// immediately. A single-process gateway has no prior version to wait
	// for at boot; the waiting path is exercised on SKIP_WAITING updates.
	lm := lifecycle.New(cfg.Version, store, precacheFetcher(netClient, upstream, cfg.ServiceToken),
		cfg.Precache, bus, logger.With().Str("component", "lifecycle").Logger())

	ctx := context.Background()
	if err := lm.Install(ctx); err != nil {
		log.Fatalf("install error: %v", err)
	}
	if err := lm.SkipWaiting(ctx); err != nil {
		log.Fatalf("activate error: %v", err)
	}

	stratOpts := strategy.Options{
		Cache:    lm.Generation,
		Client:   netClient,
		Upstream: upstream,
		Queue:    q,
		Metrics:  m,
		Log:      logger.With().Str("component", "strategy").Logger(),
	}
	strategies := map[router.Class]strategy.Strategy{
		router.ClassAPI:        strategy.NewAPI(stratOpts),
		router.ClassNavigation: strategy.NewNavigation(stratOpts),
		router.ClassStatic:     strategy.NewStatic(stratOpts),
	}

	// Background-sync trigger: drains run in the worker process.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asynqClient.Close()
	triggerSync := func(reason string) error {
		payload, _ := json.Marshal(jobs.DrainPayload{Reason: reason})
		_, err := asynqClient.Enqueue(asynq.NewTask(jobs.TaskDrainQueue, payload), asynq.Queue("sync"))
		if err != nil {
			return fmt.Errorf("enqueue drain task: %w", err)
		}
		return nil
	}

	dispatcher := events.NewDispatcher(logger.With().Str("component", "events").Logger())
	dispatcher.Handle(events.MsgSkipWaiting, func(ctx context.Context, _ events.Message) error {
		return lm.SkipWaiting(ctx)
	})
	dispatcher.Handle(events.MsgCacheExpense, func(_ context.Context, msg events.Message) error {
		return cacheExpense(lm.Generation(), cfg.APIPrefix, msg.Expense, bus)
	})
	dispatcher.Handle(events.MsgSyncOfflineData, func(_ context.Context, _ events.Message) error {
		return triggerSync("host message")
	})
	dispatcher.Handle(events.MsgCheckUpdate, func(_ context.Context, _ events.Message) error {
		logger.Info().Str("version", cfg.Version).Msg("update check requested")
		return nil
	})
	dispatcher.Handle(events.MsgSyncCompleted, func(_ context.Context, msg events.Message) error {
		var counts map[string]any
		if err := json.Unmarshal(msg.Data, &counts); err != nil {
			return fmt.Errorf("sync completion payload: %w", err)
		}
		bus.Publish(events.EventSyncCompleted, counts)
		return nil
	})

	ratesClient, err := rates.New(cfg.RatesURL)
	if err != nil {
		log.Fatalf("rates client error: %v", err)
	}

	notifier := notify.NewService(
		notify.LogDisplayer{Log: logger.With().Str("component", "notify").Logger()},
		nil,
		logger.With().Str("component", "notify").Logger(),
	)

	s := routes.New(routes.ServerOptions{
		Classifier:  router.New(cfg.APIPrefix),
		Strategies:  strategies,
		Client:      netClient,
		Upstream:    upstream,
		Dispatcher:  dispatcher,
		Bus:         bus,
		TriggerSync: triggerSync,
		Rates:       ratesClient,
		Queue:       q,
		Lifecycle:   lm,
		Notify:      notifier,
		Log:         logger,
	})

	// Connectivity watcher: schedule a drain whenever upstream comes back.
	watcherLog := logger.With().Str("component", "watcher").Logger()
	watcher := syncer.NewWatcher(netClient, upstream.String(), cfg.WatchInterval, func() {
		if err := triggerSync("connectivity restored"); err != nil {
			watcherLog.Error().Err(err).Msg("schedule drain failed")
		}
	}, watcherLog)
	go watcher.Run(ctx)

	h := hlog.NewHandler(logger)(s.Router)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	log.Fatal(srv.ListenAndServe())
}

// precacheFetcher builds the install-time fetcher on the upstream client.
// When a service token is configured it rides along as a token source so
// authenticated API warm-up URLs succeed.
func precacheFetcher(base *http.Client, upstream *url.URL, token string) lifecycle.Fetcher {
	opts := []expenseapi.Option{
		expenseapi.WithBaseURL(upstream.String()),
		expenseapi.WithHTTPClient(base),
	}
	if token != "" {
		opts = append(opts, expenseapi.WithTokenSource(
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})))
	}
	return expenseapi.New(opts...).Fetch
}

// cacheExpense stores a host-pushed expense payload under its API read URL
// so it stays visible while offline.
func cacheExpense(gen cachestore.Generation, apiPrefix string, expense json.RawMessage, bus *events.Bus) error {
	if gen == nil {
		return fmt.Errorf("no active cache generation")
	}
	var payload struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(expense, &payload); err != nil || payload.ID.String() == "" {
		return fmt.Errorf("expense payload missing id")
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	entry := &cachestore.Entry{
		Status:    http.StatusOK,
		Header:    header,
		Body:      expense,
		FetchedAt: time.Now(),
	}

	path := strings.TrimSuffix(apiPrefix, "/") + "/expenses/expenses/" + payload.ID.String() + "/"
	if err := gen.Put(cachestore.Descriptor{Method: http.MethodGet, URL: path}, entry); err != nil {
		return fmt.Errorf("cache expense: %w", err)
	}
	bus.Publish(events.EventCacheUpdated, map[string]any{"path": path})
	return nil
}
