// Package syncer drains the persistent mutation queue against the remote
// API once connectivity returns.
package syncer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/likhith0410/expensegw/internal/events"
	"github.com/likhith0410/expensegw/internal/metrics"
	"github.com/likhith0410/expensegw/internal/queue"
)

// Replayer reissues one queued mutation against the backend.
type Replayer interface {
	Replay(ctx context.Context, method, path string, payload []byte, token string) error
}

// Result summarizes one drain pass.
type Result struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
}

// Engine replays queued mutations in enqueue order.
type Engine struct {
	queue   *queue.Store
	api     Replayer
	bus     *events.Bus
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewEngine(q *queue.Store, api Replayer, bus *events.Bus, m *metrics.Metrics, log zerolog.Logger) *Engine {
	return &Engine{queue: q, api: api, bus: bus, metrics: m, log: log}
}

// Drain replays all unsynced mutations sequentially, oldest first. Records
// are removed only on confirmed remote acceptance; a failed replay is left
// in place for the next trigger and does not block later records.
func (e *Engine) Drain(ctx context.Context) (Result, error) {
	pending, err := e.queue.ListUnsynced(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("drain: %w", err)
	}

	var res Result
	for i := range pending {
		m := &pending[i]
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Attempted++

		if err := e.api.Replay(ctx, m.Method, m.Path, m.Payload, m.AuthToken); err != nil {
			e.log.Warn().Err(err).Str("id", m.ID).Str("method", m.Method).Str("path", m.Path).
				Msg("replay failed, keeping record for retry")
			e.metrics.SyncReplayed.WithLabelValues("failed").Inc()
			res.Failed++
			continue
		}

		if err := e.queue.MarkSynced(ctx, m.ID); err != nil {
			e.log.Error().Err(err).Str("id", m.ID).Msg("remove synced mutation failed")
			res.Failed++
			continue
		}
		e.metrics.SyncReplayed.WithLabelValues("synced").Inc()
		e.log.Info().Str("id", m.ID).Str("method", m.Method).Str("path", m.Path).
			Msg("replayed queued mutation")
		res.Synced++
	}

	if res.Attempted > 0 && e.bus != nil {
		e.bus.Publish(events.EventSyncCompleted, map[string]any{
			"attempted": res.Attempted,
			"synced":    res.Synced,
			"failed":    res.Failed,
		})
	}
	return res, nil
}
