package strategy

import (
	"net/http"

	"github.com/likhith0410/expensegw/cachestore"
)

// Navigation is the network-first strategy for full-page navigations. On
// failure it falls back through the exact cached page, the app shell, and
// the offline placeholder document before synthesizing a 503.
type Navigation struct {
	Options
}

func NewNavigation(o Options) *Navigation {
	return &Navigation{Options: o}
}

// Respond implements Strategy.
func (s *Navigation) Respond(req *http.Request) *http.Response {
	payload := readBody(req)

	out, err := s.outbound(req, payload)
	if err == nil {
		var resp *http.Response
		resp, err = s.Client.Do(out)
		if err == nil {
			if cacheable(req, resp) {
				s.store("navigation", req, resp)
				return resp
			}
			// A navigation POST (form submission) that reached upstream
			// already executed; the caller must see its real answer.
			if req.Method != http.MethodGet {
				return resp
			}
			// Non-success upstream answer for a page read: prefer a
			// cached copy.
			_ = resp.Body.Close()
		}
	}
	if err != nil {
		s.Log.Warn().Err(err).Str("url", req.URL.RequestURI()).
			Msg("network failed for navigation request")
	}

	gen := s.Cache()
	if entry, ok := gen.Match(desc(req)); ok {
		s.Metrics.CacheHits.WithLabelValues("navigation").Inc()
		return entry.Response(req)
	}
	s.Metrics.CacheMisses.WithLabelValues("navigation").Inc()

	// App shell supports client-side-routed pages while offline.
	if entry, ok := gen.Match(cachestore.Descriptor{Method: http.MethodGet, URL: AppShellPath}); ok {
		return entry.Response(req)
	}
	if entry, ok := gen.Match(cachestore.Descriptor{Method: http.MethodGet, URL: OfflinePagePath}); ok {
		return entry.Response(req)
	}

	s.Metrics.OfflineResponses.Inc()
	return unavailableResponse(req, "Offline")
}
