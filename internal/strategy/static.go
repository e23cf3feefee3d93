package strategy

import "net/http"

// Static is the cache-first strategy for assets. A cache hit returns
// immediately with no network call, favoring speed and offline
// availability over freshness.
type Static struct {
	Options
}

func NewStatic(o Options) *Static {
	return &Static{Options: o}
}

// Respond implements Strategy.
func (s *Static) Respond(req *http.Request) *http.Response {
	if entry, ok := s.Cache().Match(desc(req)); ok {
		s.Metrics.CacheHits.WithLabelValues("static").Inc()
		return entry.Response(req)
	}
	s.Metrics.CacheMisses.WithLabelValues("static").Inc()

	out, err := s.outbound(req, readBody(req))
	if err == nil {
		var resp *http.Response
		resp, err = s.Client.Do(out)
		if err == nil {
			if cacheable(req, resp) {
				s.store("static", req, resp)
			}
			return resp
		}
	}

	s.Log.Warn().Err(err).Str("url", req.URL.RequestURI()).
		Msg("failed to fetch static resource")
	s.Metrics.OfflineResponses.Inc()
	return unavailableResponse(req, "Resource not available offline")
}
