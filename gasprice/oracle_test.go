package gasprice

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOracle(t *testing.T, handler http.HandlerFunc, retries int) (*Oracle, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logs := &bytes.Buffer{}
	o := NewOracle(OracleOpts{
		URL:     srv.URL,
		Timeout: 2 * time.Second,
		Retries: retries,
		Logger:  slog.New(slog.NewTextHandler(logs, nil)),
	})
	o.client.RetryWaitMin = time.Millisecond
	o.client.RetryWaitMax = time.Millisecond
	return o, logs
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestFetchFastTier(t *testing.T) {
	o, _ := newTestOracle(t, respond(`{"safeLow":{"maxFee":1,"maxPriorityFee":1},"fast":{"maxFee":35.5,"maxPriorityFee":2}}`), 0)

	quote := o.FetchFastTier(context.Background())
	require.NotNil(t, quote)
	assert.Equal(t, "35500000000", quote.MaxFee.String())
	assert.Equal(t, "2000000000", quote.MaxPriorityFee.String())
}

func TestFetchFastTierExactDecimal(t *testing.T) {
	o, _ := newTestOracle(t, respond(`{"fast":{"maxFee":"30.000000001","maxPriorityFee":"0.1"}}`), 0)

	quote := o.FetchFastTier(context.Background())
	require.NotNil(t, quote)
	assert.Equal(t, "30000000001", quote.MaxFee.String())
	assert.Equal(t, "100000000", quote.MaxPriorityFee.String())
}

func TestFetchFastTierMissingFields(t *testing.T) {
	cases := map[string]string{
		"no fast tier":        `{"standard":{"maxFee":1,"maxPriorityFee":1}}`,
		"no maxFee":           `{"fast":{"maxPriorityFee":1}}`,
		"no maxPriorityFee":   `{"fast":{"maxFee":1}}`,
		"non-numeric maxFee":  `{"fast":{"maxFee":"fast","maxPriorityFee":1}}`,
		"null maxPriorityFee": `{"fast":{"maxFee":1,"maxPriorityFee":null}}`,
		"negative maxFee":     `{"fast":{"maxFee":-1,"maxPriorityFee":1}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			o, logs := newTestOracle(t, respond(body), 0)
			assert.Nil(t, o.FetchFastTier(context.Background()))
			assert.Contains(t, logs.String(), "level=WARN")
		})
	}
}

func TestFetchFastTierBadStatus(t *testing.T) {
	o, logs := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}, 0)

	assert.Nil(t, o.FetchFastTier(context.Background()))
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestFetchFastTierMalformedBody(t *testing.T) {
	o, logs := newTestOracle(t, respond(`{"fast":`), 0)

	assert.Nil(t, o.FetchFastTier(context.Background()))
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestFetchFastTierRetries(t *testing.T) {
	var calls atomic.Int32
	o, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fast": map[string]any{"maxFee": 10, "maxPriorityFee": 1},
		})
	}, 1)

	quote := o.FetchFastTier(context.Background())
	require.NotNil(t, quote)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "10000000000", quote.MaxFee.String())
}

func TestFetchFastTierNoRetriesByDefault(t *testing.T) {
	var calls atomic.Int32
	o, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 0)

	assert.Nil(t, o.FetchFastTier(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchFastTierUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	logs := &bytes.Buffer{}
	o := NewOracle(OracleOpts{URL: url, Timeout: time.Second, Logger: slog.New(slog.NewTextHandler(logs, nil))})

	assert.Nil(t, o.FetchFastTier(context.Background()))
	assert.Contains(t, logs.String(), "level=ERROR")
}
