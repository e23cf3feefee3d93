// Package rates fetches currency exchange tables so converted dashboards
// keep working against the last known rates while offline.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	gocache "github.com/patrickmn/go-cache"
)

// ErrUnknownCurrency is returned when a rate table has no entry for a code.
var ErrUnknownCurrency = errors.New("unknown currency code")

// Table is one base currency's exchange rates.
type Table struct {
	Base      string             `json:"base_code"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

type Client struct {
	http    *http.Client
	baseURL *url.URL
	memo    *gocache.Cache
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a rates client for the given API base. The HTTP client uses
// an in-memory RFC 7234 caching transport; decoded tables are additionally
// memoized for an hour so repeated conversions stay off the wire.
func New(rawBase string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawBase)
	if err != nil {
		return nil, fmt.Errorf("parse rates base url: %w", err)
	}
	c := &Client{
		http:    &http.Client{Transport: httpcache.NewMemoryCacheTransport()},
		baseURL: u,
		memo:    gocache.New(time.Hour, 10*time.Minute),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Latest returns the rate table for base, serving the memoized copy when
// fresh.
func (c *Client) Latest(ctx context.Context, base string) (*Table, error) {
	base = strings.ToUpper(base)
	if cached, ok := c.memo.Get(base); ok {
		return cached.(*Table), nil
	}

	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/latest/" + base
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rates for %s: %s: %s", base, resp.Status, string(b))
	}

	var table Table
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode rates for %s: %w", base, err)
	}
	if table.Base == "" {
		table.Base = base
	}
	table.FetchedAt = time.Now().UTC()

	c.memo.Set(base, &table, gocache.DefaultExpiration)
	return &table, nil
}

// Convert converts amount from one currency to another using the latest
// table for the source currency.
func (c *Client) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}
	table, err := c.Latest(ctx, from)
	if err != nil {
		return 0, err
	}
	rate, ok := table.Rates[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return amount * rate, nil
}
