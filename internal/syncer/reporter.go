package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/likhith0410/expensegw/internal/events"
)

// Reporter forwards drain results to the gateway's host-messaging surface.
// The gateway and worker are separate processes with separate event buses;
// without this the gateway's event feed would never show worker drains.
type Reporter struct {
	client     *http.Client
	gatewayURL string
	log        zerolog.Logger
}

func NewReporter(client *http.Client, gatewayURL string, log zerolog.Logger) *Reporter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Reporter{client: client, gatewayURL: gatewayURL, log: log}
}

// Report posts a sync-completion message carrying the drain counts.
func (r *Reporter) Report(ctx context.Context, res Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(events.Message{Type: events.MsgSyncCompleted, Data: data})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.gatewayURL+"/internal/message", bytes.NewReader(msg))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("report sync completion: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("report sync completion: %s", resp.Status)
	}
	return nil
}
