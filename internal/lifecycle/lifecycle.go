// Package lifecycle owns the install → waiting → activate transitions of a
// cache generation: pre-populating the manifest on install and evicting
// stale generations on activate.
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/likhith0410/expensegw/cachestore"
	"github.com/likhith0410/expensegw/internal/events"
)

// State is the manager's position in the lifecycle.
type State int

const (
	StateUnregistered State = iota
	StateInstalling
	StateInstalled // waiting
	StateActivating
	StateActive
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateRedundant:
		return "redundant"
	default:
		return "unregistered"
	}
}

// Fetcher retrieves one manifest URL during install pre-population.
type Fetcher func(ctx context.Context, url string) (*http.Response, error)

// Manager drives one version through the lifecycle.
type Manager struct {
	mu       sync.Mutex
	state    State
	version  string
	store    cachestore.Store
	gen      cachestore.Generation
	fetch    Fetcher
	manifest []string
	skip     bool
	bus      *events.Bus
	log      zerolog.Logger
}

func New(version string, store cachestore.Store, fetch Fetcher, manifest []string, bus *events.Bus, log zerolog.Logger) *Manager {
	return &Manager{
		state:    StateUnregistered,
		version:  version,
		store:    store,
		fetch:    fetch,
		manifest: manifest,
		bus:      bus,
		log:      log,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Version returns the version string this manager owns.
func (m *Manager) Version() string { return m.version }

// Generation returns the generation for the managed version. Nil before
// install.
func (m *Manager) Generation() cachestore.Generation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Install opens the generation for the managed version and pre-populates it
// from the manifest. Pre-population is best-effort: a manifest URL that
// fails to fetch is logged and does not abort installation, favoring
// partial offline readiness over all-or-nothing failure.
func (m *Manager) Install(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUnregistered {
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("install from state %s", state)
	}
	m.state = StateInstalling
	m.mu.Unlock()

	m.log.Info().Str("version", m.version).Msg("installing")

	gen, err := m.store.Open(m.version)
	if err != nil {
		m.MarkRedundant()
		return fmt.Errorf("open generation: %w", err)
	}

	cached := 0
	for _, u := range m.manifest {
		resp, err := m.fetch(ctx, u)
		if err != nil {
			m.log.Warn().Err(err).Str("url", u).Msg("precache fetch failed")
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			m.log.Warn().Int("status", resp.StatusCode).Str("url", u).Msg("precache fetch not ok")
			_ = resp.Body.Close()
			continue
		}
		entry, err := cachestore.Snapshot(resp)
		_ = resp.Body.Close()
		if err != nil {
			m.log.Warn().Err(err).Str("url", u).Msg("precache snapshot failed")
			continue
		}
		if err := gen.Put(cachestore.Descriptor{Method: http.MethodGet, URL: u}, entry); err != nil {
			m.log.Warn().Err(err).Str("url", u).Msg("precache write failed")
			continue
		}
		cached++
	}

	m.mu.Lock()
	m.gen = gen
	m.state = StateInstalled
	skip := m.skip
	m.mu.Unlock()

	m.log.Info().Str("version", m.version).Int("cached", cached).Int("manifest", len(m.manifest)).
		Msg("installed")

	if skip {
		return m.Activate(ctx)
	}
	return nil
}

// SkipWaiting bypasses the waiting state: an installed version activates
// immediately, an installing one activates as soon as install completes.
func (m *Manager) SkipWaiting(ctx context.Context) error {
	m.mu.Lock()
	m.skip = true
	ready := m.state == StateInstalled
	m.mu.Unlock()

	if ready {
		return m.Activate(ctx)
	}
	return nil
}

// Activate deletes every generation whose name differs from the managed
// version and announces readiness. Activating an already active manager is
// a no-op, so repeated activation leaves exactly one generation present.
func (m *Manager) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	switch m.state {
	case StateActive:
		m.mu.Unlock()
		return nil
	case StateInstalled:
	default:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("activate from state %s", state)
	}
	m.state = StateActivating
	m.mu.Unlock()

	m.log.Info().Str("version", m.version).Msg("activating")

	names, err := m.store.Generations()
	if err != nil {
		// Eviction is retried on the next activation; readiness wins.
		m.log.Error().Err(err).Msg("list generations failed")
	}
	for _, name := range names {
		if name == m.version {
			continue
		}
		if err := m.store.DeleteGeneration(name); err != nil {
			m.log.Warn().Err(err).Str("generation", name).Msg("evict generation failed")
			continue
		}
		m.log.Info().Str("generation", name).Msg("deleted stale generation")
	}

	m.mu.Lock()
	m.state = StateActive
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(events.EventOfflineReady, map[string]any{"version": m.version})
	}
	m.log.Info().Str("version", m.version).Msg("activated")
	return nil
}

// MarkRedundant retires a manager that was superseded before becoming
// active.
func (m *Manager) MarkRedundant() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		m.state = StateRedundant
	}
}
