package ethereum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

var (
	// ErrConnection is returned when an endpoint stays unreachable after all
	// connection attempts.
	ErrConnection = errors.New("connection error")

	// ErrNotConnected is returned by reads issued before Connect succeeded.
	ErrNotConnected = errors.New("not connected")
)

const (
	defaultTimeout           = 10 * time.Second
	defaultConnectRetries    = 3
	defaultConnectRetryDelay = 5 * time.Second
)

// Backend is the subset of ethclient.Client the relayer reads through.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q geth.FilterQuery) ([]ethtypes.Log, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	Close()
}

var _ Backend = &ethclient.Client{}

// DialFunc opens a Backend for an RPC endpoint.
type DialFunc func(ctx context.Context, endpoint string) (Backend, error)

func dialEthclient(ctx context.Context, endpoint string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type Client struct {
	mu      sync.RWMutex
	backend Backend
	chainId *big.Int
	abi     abi.ABI
	limiter *rate.Limiter
	dial    DialFunc
	logger  *slog.Logger
	Opts    *ClientOpts
}

type ClientOpts struct {
	Name              string
	Endpoint          string
	ContractAddress   common.Address
	ABI               string
	Logger            *slog.Logger
	Timeout           time.Duration
	ConnectRetries    int
	ConnectRetryDelay time.Duration
	RequestsPerSecond float64
	Dial              DialFunc
}

// NewClient returns a client for one chain endpoint. No network I/O happens
// until Connect.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ConnectRetries <= 0 {
		opts.ConnectRetries = defaultConnectRetries
	}
	if opts.ConnectRetryDelay < 0 {
		opts.ConnectRetryDelay = defaultConnectRetryDelay
	}
	if opts.Dial == nil {
		opts.Dial = dialEthclient
	}

	contractAbi, err := abi.JSON(strings.NewReader(opts.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract abi for %s: %w", opts.Name, err)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		abi:     contractAbi,
		limiter: limiter,
		dial:    opts.Dial,
		logger:  opts.Logger,
		Opts:    &opts,
	}, nil
}

func (c *Client) Name() string { return c.Opts.Name }

// ContractAddress returns the bridge contract address. Its Hex form is EIP-55
// checksummed.
func (c *Client) ContractAddress() common.Address { return c.Opts.ContractAddress }

// Connect dials the endpoint and checks liveness with eth_chainId, retrying
// a fixed number of times with a fixed delay.
func (c *Client) Connect(ctx context.Context) error {
	maxAttempts := c.Opts.ConnectRetries

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		backend, chainId, err := c.dialAndCheck(ctx)
		if err == nil {
			c.mu.Lock()
			c.backend = backend
			c.chainId = chainId
			c.mu.Unlock()

			c.logger.Info("Connected to chain", "chain", c.Opts.Name, "endpoint", c.Opts.Endpoint, "chainId", chainId)
			c.warnIfNotContract(ctx)
			return nil
		}

		lastErr = err
		c.logger.Warn("connection attempt failed",
			"chain", c.Opts.Name,
			"attempt", fmt.Sprintf("%d/%d", attempt, maxAttempts),
			"error", err)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: connecting to %s interrupted: %w", ErrConnection, c.Opts.Name, ctx.Err())
			case <-time.After(c.Opts.ConnectRetryDelay):
			}
		}
	}

	c.logger.Error("could not connect to chain", "chain", c.Opts.Name, "attempts", maxAttempts)
	return fmt.Errorf("%w: failed to connect to %s after %d attempts: %w", ErrConnection, c.Opts.Name, maxAttempts, lastErr)
}

func (c *Client) dialAndCheck(ctx context.Context) (Backend, *big.Int, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
	defer cancel()

	backend, err := c.dial(dialCtx, c.Opts.Endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", c.Opts.Endpoint, err)
	}

	chainId, err := backend.ChainID(dialCtx)
	if err != nil {
		backend.Close()
		return nil, nil, fmt.Errorf("failed to get chainId: %w", err)
	}

	return backend, chainId, nil
}

// Warn user if the contract is not found at the given address.
func (c *Client) warnIfNotContract(ctx context.Context) {
	backend, err := c.getBackend()
	if err != nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
	defer cancel()

	code, err := backend.CodeAt(callCtx, c.Opts.ContractAddress, nil)
	if err == nil && len(code) == 0 {
		c.logger.Warn("contract not found at given Address", "chain", c.Opts.Name, "address", c.Opts.ContractAddress.Hex(), "endpoint", c.Opts.Endpoint)
	}
}

func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend != nil
}

// Close releases the backend. The client reports not connected afterwards.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
}

func (c *Client) getBackend() (Backend, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.backend == nil {
		return nil, fmt.Errorf("%w to %s", ErrNotConnected, c.Opts.Name)
	}
	return c.backend, nil
}

// prepare returns the backend and a context bounded by the RPC timeout,
// after waiting on the rate limiter.
func (c *Client) prepare(ctx context.Context) (Backend, context.Context, context.CancelFunc, error) {
	backend, err := c.getBackend()
	if err != nil {
		return nil, nil, nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, c.Opts.Timeout)
	return backend, callCtx, cancel, nil
}

// LatestHeight returns the current head block number.
func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	backend, callCtx, cancel, err := c.prepare(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	height, err := backend.BlockNumber(callCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest block from %s: %w", c.Opts.Name, err)
	}
	return height, nil
}
