package strategy

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/likhith0410/expensegw/cachestore"
	"github.com/likhith0410/expensegw/internal/metrics"
	"github.com/likhith0410/expensegw/internal/queue"
)

// testOptions builds strategy options backed by a real file cache and a
// throwaway queue database, pointed at the given upstream.
func testOptions(t *testing.T, upstream string) (Options, cachestore.Generation) {
	t.Helper()

	fs, err := cachestore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	gen, err := fs.Open("v-test")
	if err != nil {
		t.Fatalf("Open generation: %v", err)
	}
	q, err := queue.Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	u, err := url.Parse(upstream)
	if err != nil {
		t.Fatalf("parse upstream: %v", err)
	}

	return Options{
		Cache:    func() cachestore.Generation { return gen },
		Client:   &http.Client{Timeout: 2 * time.Second},
		Upstream: u,
		Queue:    q,
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Log:      zerolog.Nop(),
	}, gen
}
