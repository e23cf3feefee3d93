package syncer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/likhith0410/expensegw/internal/events"
)

func TestReportPostsSyncCompletedMessage(t *testing.T) {
	var gotPath string
	var gotMsg events.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotMsg))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	rep := NewReporter(srv.Client(), srv.URL, zerolog.Nop())
	err := rep.Report(context.Background(), Result{Attempted: 3, Synced: 2, Failed: 1})
	require.NoError(t, err)

	assert.Equal(t, "/internal/message", gotPath)
	assert.Equal(t, events.MsgSyncCompleted, gotMsg.Type)

	var res Result
	require.NoError(t, json.Unmarshal(gotMsg.Data, &res))
	assert.Equal(t, Result{Attempted: 3, Synced: 2, Failed: 1}, res)
}

func TestReportSurfacesGatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rep := NewReporter(srv.Client(), srv.URL, zerolog.Nop())
	err := rep.Report(context.Background(), Result{Attempted: 1, Synced: 1})
	require.Error(t, err)
}

func TestReportUnreachableGateway(t *testing.T) {
	rep := NewReporter(nil, deadGateway(t), zerolog.Nop())
	err := rep.Report(context.Background(), Result{Attempted: 1})
	require.Error(t, err)
}

// deadGateway returns a URL that refuses connections.
func deadGateway(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}
