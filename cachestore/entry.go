package cachestore

import (
	"bytes"
	"io"
	"net/http"
	"time"
)

// Entry is an immutable snapshot of a prior HTTP response.
type Entry struct {
	Status    int         `json:"status"`
	Header    http.Header `json:"header,omitempty"`
	Body      []byte      `json:"body,omitempty"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Snapshot copies resp into an Entry. The response body is fully read and
// then replaced with an equivalent reader, so the caller can still consume
// it afterwards (response bodies are single-read streams).
func Snapshot(resp *http.Response) (*Entry, error) {
	body, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	return &Entry{
		Status:    resp.StatusCode,
		Header:    resp.Header.Clone(),
		Body:      body,
		FetchedAt: time.Now(),
	}, nil
}

// Response materializes the entry as an *http.Response for the given
// request. Each call returns a fresh body reader.
func (e *Entry) Response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    e.Status,
		Status:        http.StatusText(e.Status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}
