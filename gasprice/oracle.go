// Package gasprice reads EIP-1559 fee suggestions from a gas station.
package gasprice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/lightlink-network/ll-bridge-relayer/types"
)

const defaultTimeout = 10 * time.Second

var gwei = big.NewRat(1_000_000_000, 1)

type Oracle struct {
	client *retryablehttp.Client
	logger *slog.Logger
	Opts   *OracleOpts
}

type OracleOpts struct {
	URL     string
	Timeout time.Duration
	Retries int // extra attempts after the first request
	Logger  *slog.Logger
}

func NewOracle(opts OracleOpts) *Oracle {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.Retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 3 * time.Second
	client.HTTPClient.Timeout = opts.Timeout
	client.Logger = nil

	return &Oracle{
		client: client,
		logger: opts.Logger,
		Opts:   &opts,
	}
}

type stationResponse struct {
	Fast *struct {
		MaxFee         json.RawMessage `json:"maxFee"`
		MaxPriorityFee json.RawMessage `json:"maxPriorityFee"`
	} `json:"fast"`
}

// FetchFastTier returns the "fast" fee tier in wei, or nil when the station
// is unreachable or its answer is unusable. Callers fall back to a gas-limit
// only transaction on nil.
func (o *Oracle) FetchFastTier(ctx context.Context) *types.GasQuote {
	body, err := o.get(ctx)
	if err != nil {
		o.logger.Error("failed to fetch gas prices", "url", o.Opts.URL, "error", err)
		return nil
	}

	var resp stationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		o.logger.Error("failed to decode gas station response", "url", o.Opts.URL, "error", err)
		return nil
	}

	if resp.Fast == nil || len(resp.Fast.MaxFee) == 0 || len(resp.Fast.MaxPriorityFee) == 0 {
		o.logger.Warn("gas station response is missing fast tier fields", "url", o.Opts.URL)
		return nil
	}

	maxFee, err := gweiToWei(resp.Fast.MaxFee)
	if err != nil {
		o.logger.Warn("invalid maxFee in gas station response", "value", string(resp.Fast.MaxFee), "error", err)
		return nil
	}
	maxPriorityFee, err := gweiToWei(resp.Fast.MaxPriorityFee)
	if err != nil {
		o.logger.Warn("invalid maxPriorityFee in gas station response", "value", string(resp.Fast.MaxPriorityFee), "error", err)
		return nil
	}

	return &types.GasQuote{MaxFee: maxFee, MaxPriorityFee: maxPriorityFee}
}

func (o *Oracle) get(ctx context.Context) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, o.Opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return raw, nil
}

// gweiToWei converts a JSON number or numeric string in gwei to wei,
// truncating sub-wei fractions.
func gweiToWei(raw json.RawMessage) (*big.Int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil, fmt.Errorf("empty value")
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("negative fee %s", s)
	}

	r.Mul(r, gwei)
	return new(big.Int).Quo(r.Num(), r.Denom()), nil
}
