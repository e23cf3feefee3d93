// Package routes wires the gateway's HTTP surface: the catch-all
// intercepting proxy plus the host messaging and introspection endpoints.
package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/likhith0410/expensegw/internal/events"
	"github.com/likhith0410/expensegw/internal/lifecycle"
	"github.com/likhith0410/expensegw/internal/notify"
	"github.com/likhith0410/expensegw/internal/queue"
	"github.com/likhith0410/expensegw/internal/router"
	"github.com/likhith0410/expensegw/internal/strategy"
	"github.com/likhith0410/expensegw/rates"
)

type Server struct {
	Router *chi.Mux

	classifier  *router.Router
	strategies  map[router.Class]strategy.Strategy
	client      *http.Client
	upstream    *url.URL
	dispatcher  *events.Dispatcher
	bus         *events.Bus
	triggerSync func(reason string) error
	rates       *rates.Client
	queue       *queue.Store
	lifecycle   *lifecycle.Manager
	notify      *notify.Service
	log         zerolog.Logger
}

type ServerOptions struct {
	Classifier  *router.Router
	Strategies  map[router.Class]strategy.Strategy
	Client      *http.Client
	Upstream    *url.URL
	Dispatcher  *events.Dispatcher
	Bus         *events.Bus
	TriggerSync func(reason string) error
	Rates       *rates.Client
	Queue       *queue.Store
	Lifecycle   *lifecycle.Manager
	Notify      *notify.Service
	Log         zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:      r,
		classifier:  opts.Classifier,
		strategies:  opts.Strategies,
		client:      opts.Client,
		upstream:    opts.Upstream,
		dispatcher:  opts.Dispatcher,
		bus:         opts.Bus,
		triggerSync: opts.TriggerSync,
		rates:       opts.Rates,
		queue:       opts.Queue,
		lifecycle:   opts.Lifecycle,
		notify:      opts.Notify,
		log:         opts.Log,
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/internal", func(ir chi.Router) {
		ir.Post("/message", s.handleMessage)
		ir.Get("/events", s.handleEvents)
		ir.Post("/sync", s.handleSync)
		ir.Get("/status", s.handleStatus)
		ir.Get("/rates/{base}", s.handleRates)
		ir.Post("/push", s.handlePush)
		ir.Post("/notification-click", s.handleNotificationClick)
	})

	r.HandleFunc("/*", s.handleIntercept)

	return s
}

// handleIntercept is the fetch-interception analog: classify, pick a
// strategy, and relay whatever response it resolves to.
func (s *Server) handleIntercept(w http.ResponseWriter, r *http.Request) {
	class := s.classifier.Classify(r)

	if class == router.ClassPassThrough {
		s.passThrough(w, r)
		return
	}

	strat, ok := s.strategies[class]
	if !ok {
		http.Error(w, "no strategy for request class", http.StatusBadGateway)
		return
	}
	writeResponse(w, strat.Respond(r))
}

// passThrough relays the request untouched, with no caching.
func (s *Server) passThrough(w http.ResponseWriter, r *http.Request) {
	out := r.Clone(r.Context())
	out.RequestURI = ""
	if out.URL.Scheme == "" {
		out.URL.Scheme = s.upstream.Scheme
		out.URL.Host = s.upstream.Host
	}
	resp, err := s.client.Do(out)
	if err != nil {
		http.Error(w, "upstream unreachable", http.StatusBadGateway)
		return
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg events.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message body"})
		return
	}
	if err := s.dispatcher.Dispatch(r.Context(), msg); err != nil {
		if errors.Is(err, events.ErrUnknownMessage) {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		s.log.Error().Err(err).Str("type", string(msg.Type)).Msg("message handler failed")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "message handling failed"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.bus.Recent())
}

func (s *Server) handleSync(w http.ResponseWriter, _ *http.Request) {
	if err := s.triggerSync("host request"); err != nil {
		s.log.Error().Err(err).Msg("sync trigger failed")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sync trigger failed"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync scheduled"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.queue.Count(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("count pending mutations failed")
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state":   s.lifecycle.State().String(),
		"version": s.lifecycle.Version(),
		"pending": pending,
	})
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	base := chi.URLParam(r, "base")
	table, err := s.rates.Latest(r.Context(), base)
	if err != nil {
		s.log.Warn().Err(err).Str("base", base).Msg("rates lookup failed")
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "rates unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, table)
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read push payload failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, s.notify.Push(payload))
}

func (s *Server) handleNotificationClick(w http.ResponseWriter, r *http.Request) {
	var click struct {
		Action string `json:"action"`
		URL    string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&click); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid click body"})
		return
	}
	s.notify.Click(click.Action, click.URL)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response failed")
	}
}
