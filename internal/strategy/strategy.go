// Package strategy implements the per-class cache strategies: network-first
// for API requests, network-first with shell fallback for navigations, and
// cache-first for static assets. A strategy always resolves to some
// response; no error ever reaches the intercepting caller.
package strategy

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/likhith0410/expensegw/cachestore"
	"github.com/likhith0410/expensegw/internal/metrics"
	"github.com/likhith0410/expensegw/internal/queue"
)

// Well-known fallback documents for offline navigation.
const (
	AppShellPath    = "/"
	OfflinePagePath = "/offline.html"
)

const offlineMessage = "You are currently offline. Some features may not be available."

// Strategy turns an intercepted request into a response.
type Strategy interface {
	Respond(req *http.Request) *http.Response
}

// Options carries the collaborators shared by all strategies. Cache is a
// provider so strategies always see the current generation, even across an
// update.
type Options struct {
	Cache    func() cachestore.Generation
	Client   *http.Client
	Upstream *url.URL
	Queue    *queue.Store
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
}

// desc builds the cache descriptor for a request. Keys are host-independent
// (path + query) so precached entries and proxied requests agree.
func desc(req *http.Request) cachestore.Descriptor {
	return cachestore.Descriptor{Method: req.Method, URL: req.URL.RequestURI()}
}

// outbound rebuilds req against the upstream origin, carrying body and
// headers over.
func (o Options) outbound(req *http.Request, body []byte) (*http.Request, error) {
	u := *req.URL
	u.Scheme = o.Upstream.Scheme
	u.Host = o.Upstream.Host

	var r io.Reader
	if len(body) > 0 {
		r = bytes.NewReader(body)
	}
	out, err := http.NewRequestWithContext(req.Context(), req.Method, u.String(), r)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			out.Header.Add(k, v)
		}
	}
	return out, nil
}

// store snapshots resp into the current generation. The snapshot duplicates
// the body, so resp stays readable by the caller. Storage failures are
// logged and otherwise ignored; caching is best-effort.
func (o Options) store(class string, req *http.Request, resp *http.Response) {
	entry, err := cachestore.Snapshot(resp)
	if err != nil {
		o.Log.Warn().Err(err).Str("url", req.URL.RequestURI()).Msg("snapshot response failed")
		return
	}
	if err := o.Cache().Put(desc(req), entry); err != nil {
		o.Log.Warn().Err(err).Str("url", req.URL.RequestURI()).Msg("cache write failed")
	}
}

// cacheable reports whether a response may be written to the cache store.
// Only read requests with success status are ever cached.
func cacheable(req *http.Request, resp *http.Response) bool {
	return req.Method == http.MethodGet && resp.StatusCode >= 200 && resp.StatusCode < 300
}

// readBody drains the request body so the payload can be both forwarded and
// queued. Returns nil for bodyless requests.
func readBody(req *http.Request) []byte {
	if req.Body == nil {
		return nil
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil
	}
	return body
}
