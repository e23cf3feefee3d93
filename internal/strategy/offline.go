package strategy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// offlineBody is the machine-readable flag callers use to detect
// offline-degraded API responses.
type offlineBody struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Cached   bool   `json:"cached"`
	QueuedID string `json:"queued_id,omitempty"`
}

// synthesize builds a response from whole cloth for the given request.
func synthesize(req *http.Request, status int, contentType string, body []byte) *http.Response {
	header := http.Header{}
	header.Set("Content-Type", contentType)
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// offlineAPIResponse is the structured 503 returned for API requests with
// no cached alternative. queuedID is set when the triggering mutation was
// queued for replay.
func offlineAPIResponse(req *http.Request, message, queuedID string) *http.Response {
	body, _ := json.Marshal(offlineBody{
		Error:    "Offline",
		Message:  message,
		Cached:   true,
		QueuedID: queuedID,
	})
	return synthesize(req, http.StatusServiceUnavailable, "application/json", body)
}

// unavailableResponse is the plain-text 503 for navigation and static
// fallbacks where no JSON contract is implied.
func unavailableResponse(req *http.Request, msg string) *http.Response {
	return synthesize(req, http.StatusServiceUnavailable, "text/plain; charset=utf-8", []byte(msg))
}
