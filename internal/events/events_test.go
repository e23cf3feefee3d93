package events

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func TestDispatchRoutesToHandler(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	var got Message
	d.Handle(MsgSkipWaiting, func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})

	if err := d.Dispatch(context.Background(), Message{Type: MsgSkipWaiting}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got.Type != MsgSkipWaiting {
		t.Fatalf("handler saw %q", got.Type)
	}
}

func TestDispatchUnknownType(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	err := d.Dispatch(context.Background(), Message{Type: "BOGUS"})
	if !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("err = %v, want ErrUnknownMessage", err)
	}
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	want := errors.New("handler failed")
	d.Handle(MsgCheckUpdate, func(context.Context, Message) error { return want })

	if err := d.Dispatch(context.Background(), Message{Type: MsgCheckUpdate}); !errors.Is(err, want) {
		t.Fatalf("err = %v, want handler error", err)
	}
}

func TestBusRetainsRecentEvents(t *testing.T) {
	b := NewBus(4)
	b.Publish(EventOfflineReady, map[string]any{"version": "v1"})
	b.Publish(EventCacheUpdated, nil)

	recent := b.Recent()
	if len(recent) != 2 {
		t.Fatalf("len = %d", len(recent))
	}
	if recent[0].Type != EventOfflineReady || recent[1].Type != EventCacheUpdated {
		t.Fatalf("order = %v, %v", recent[0].Type, recent[1].Type)
	}
	if recent[0].At.IsZero() {
		t.Fatal("event timestamp not set")
	}
}

func TestBusEvictsOldestWhenFull(t *testing.T) {
	b := NewBus(3)
	for i := 0; i < 5; i++ {
		b.Publish(EventSyncCompleted, map[string]any{"n": fmt.Sprint(i)})
	}

	recent := b.Recent()
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if recent[0].Data["n"] != "2" || recent[2].Data["n"] != "4" {
		t.Fatalf("wrong window retained: %v", recent)
	}
}
