// Package events carries messaging between the host page and the gateway:
// inbound messages dispatched through an explicit handler table, and
// outbound events retained for the host to poll.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MessageType identifies an inbound host message.
type MessageType string

const (
	MsgSkipWaiting     MessageType = "SKIP_WAITING"
	MsgCacheExpense    MessageType = "CACHE_EXPENSE"
	MsgSyncOfflineData MessageType = "SYNC_OFFLINE_DATA"
	MsgCheckUpdate     MessageType = "CHECK_UPDATE"

	// MsgSyncCompleted is posted by the worker after a drain so the
	// gateway's event feed reflects worker-side syncs.
	MsgSyncCompleted MessageType = "SYNC_COMPLETED"
)

// Message is an inbound host → gateway message.
type Message struct {
	Type    MessageType     `json:"type"`
	Expense json.RawMessage `json:"expense,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Handler processes one message type.
type Handler func(ctx context.Context, msg Message) error

// ErrUnknownMessage is returned when no handler is registered for a type.
var ErrUnknownMessage = errors.New("unknown message type")

// Dispatcher maps message types to handlers.
type Dispatcher struct {
	handlers map[MessageType]Handler
	log      zerolog.Logger
}

func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[MessageType]Handler),
		log:      log,
	}
}

// Handle registers the handler for a message type, replacing any previous
// registration.
func (d *Dispatcher) Handle(t MessageType, h Handler) {
	d.handlers[t] = h
}

// Dispatch invokes the handler registered for msg.Type.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	h, ok := d.handlers[msg.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	d.log.Debug().Str("type", string(msg.Type)).Msg("dispatching host message")
	return h(ctx, msg)
}

// EventType identifies an outbound gateway → host event.
type EventType string

const (
	EventCacheUpdated  EventType = "cache-updated"
	EventSyncCompleted EventType = "sync-completed"
	EventOfflineReady  EventType = "offline-ready"
)

// Event is an outbound notification for the host page.
type Event struct {
	Type EventType      `json:"type"`
	At   time.Time      `json:"at"`
	Data map[string]any `json:"data,omitempty"`
}

// Bus retains recent outbound events in a bounded ring.
type Bus struct {
	mu     sync.Mutex
	events []Event
	max    int
}

// NewBus creates a bus retaining at most max events.
func NewBus(max int) *Bus {
	if max <= 0 {
		max = 64
	}
	return &Bus{max: max}
}

// Publish appends an event, evicting the oldest when full.
func (b *Bus) Publish(t EventType, data map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{Type: t, At: time.Now().UTC(), Data: data})
	if len(b.events) > b.max {
		b.events = b.events[len(b.events)-b.max:]
	}
}

// Recent returns the retained events, oldest first.
func (b *Bus) Recent() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}
