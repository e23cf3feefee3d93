package rates

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ratesBody = `{"base_code":"USD","rates":{"EUR":0.92,"GBP":0.79,"INR":83.1}}`

func newMockedRates(t *testing.T) (*Client, *atomic.Int64) {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	var calls atomic.Int64
	httpmock.RegisterResponder("GET", "https://rates.test/v6/latest/USD",
		func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			resp := httpmock.NewStringResponse(200, ratesBody)
			resp.Header.Set("Content-Type", "application/json")
			return resp, nil
		})

	c, err := New("https://rates.test/v6", WithHTTPClient(httpClient))
	require.NoError(t, err)
	return c, &calls
}

func TestLatestDecodesTable(t *testing.T) {
	c, _ := newMockedRates(t)

	table, err := c.Latest(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", table.Base)
	assert.Equal(t, 0.92, table.Rates["EUR"])
	assert.False(t, table.FetchedAt.IsZero())
}

func TestLatestMemoizesAcrossCalls(t *testing.T) {
	c, calls := newMockedRates(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := c.Latest(ctx, "USD")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestConvert(t *testing.T) {
	c, calls := newMockedRates(t)
	ctx := context.Background()

	got, err := c.Convert(ctx, 100, "USD", "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 92.0, got, 1e-9)

	// Same-currency conversion never hits the network.
	got, err = c.Convert(ctx, 42, "EUR", "EUR")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
	assert.Equal(t, int64(1), calls.Load())
}

func TestConvertUnknownCurrency(t *testing.T) {
	c, _ := newMockedRates(t)

	_, err := c.Convert(context.Background(), 10, "USD", "XYZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCurrency))
}

func TestLatestUpstreamError(t *testing.T) {
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder("GET", "https://rates.test/v6/latest/USD",
		httpmock.NewStringResponder(500, "upstream down"))

	c, err := New("https://rates.test/v6", WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = c.Latest(context.Background(), "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}
