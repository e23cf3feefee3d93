package strategy

import (
	"net/http"

	"github.com/likhith0410/expensegw/internal/queue"
)

// API is the network-first strategy for backend API requests. Reads fall
// back to the cache store; failed mutations are queued for replay.
type API struct {
	Options
}

func NewAPI(o Options) *API {
	return &API{Options: o}
}

// Respond implements Strategy.
func (s *API) Respond(req *http.Request) *http.Response {
	payload := readBody(req)

	out, err := s.outbound(req, payload)
	if err == nil {
		var resp *http.Response
		resp, err = s.Client.Do(out)
		if err == nil {
			if cacheable(req, resp) {
				s.store("api", req, resp)
			}
			return resp
		}
	}
	s.Log.Warn().Err(err).Str("method", req.Method).Str("url", req.URL.RequestURI()).
		Msg("network failed for API request, trying cache")

	// Mutations are never served from cache; queue the write and tell the
	// caller it was deferred.
	if req.Method != http.MethodGet {
		m := &queue.Mutation{
			Method:    req.Method,
			Path:      req.URL.RequestURI(),
			Payload:   payload,
			AuthToken: req.Header.Get("Authorization"),
		}
		if qErr := s.Queue.Enqueue(req.Context(), m); qErr != nil {
			s.Log.Error().Err(qErr).Msg("enqueue mutation failed")
			s.Metrics.OfflineResponses.Inc()
			return offlineAPIResponse(req, offlineMessage, "")
		}
		s.Metrics.QueuedMutations.Inc()
		s.Metrics.OfflineResponses.Inc()
		return offlineAPIResponse(req, "Saved locally and queued for sync.", m.ID)
	}

	if entry, ok := s.Cache().Match(desc(req)); ok {
		s.Metrics.CacheHits.WithLabelValues("api").Inc()
		return entry.Response(req)
	}

	s.Metrics.CacheMisses.WithLabelValues("api").Inc()
	s.Metrics.OfflineResponses.Inc()
	return offlineAPIResponse(req, offlineMessage, "")
}
