package syncer

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Watcher polls upstream reachability and fires a callback on each
// offline → online transition, the connectivity-restored trigger for a
// drain.
type Watcher struct {
	check    func(ctx context.Context) bool
	interval time.Duration
	onOnline func()
	log      zerolog.Logger
}

// NewWatcher builds a watcher that probes probeURL every interval.
func NewWatcher(client *http.Client, probeURL string, interval time.Duration, onOnline func(), log zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		check: func(ctx context.Context) bool {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
			if err != nil {
				return false
			}
			resp, err := client.Do(req)
			if err != nil {
				return false
			}
			_ = resp.Body.Close()
			return true
		},
		interval: interval,
		onOnline: onOnline,
		log:      log,
	}
}

// Run blocks until ctx is done. The first successful probe after a failed
// one counts as a restore.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	online := w.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := w.check(ctx)
			if now && !online {
				w.log.Info().Msg("connectivity restored")
				w.onOnline()
			} else if !now && online {
				w.log.Warn().Msg("upstream unreachable")
			}
			online = now
		}
	}
}
