package relayer

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-bridge-relayer/metrics"
	"github.com/lightlink-network/ll-bridge-relayer/telemetry"
	"github.com/lightlink-network/ll-bridge-relayer/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const DefaultGasLimit = 200_000

// DestinationChain is what the relayer needs from the chain mints are
// prepared for.
type DestinationChain interface {
	Name() string
	Connect(ctx context.Context) error
	Connected() bool
	ContractAddress() common.Address
	TransactionCount(ctx context.Context, account common.Address) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	PackMint(call types.MintCall) ([]byte, error)
}

type GasOracle interface {
	FetchFastTier(ctx context.Context) *types.GasQuote
}

// EventProcessor turns one lock event into an unsigned mint transaction and
// hands it to a Sink.
type EventProcessor struct {
	dest     DestinationChain
	gas      GasOracle
	sink     Sink
	wallet   common.Address
	gasLimit uint64
	logger   *slog.Logger
}

type ProcessorOpts struct {
	Destination   DestinationChain
	GasOracle     GasOracle
	Sink          Sink
	RelayerWallet common.Address
	GasLimit      uint64
	Logger        *slog.Logger
}

func NewEventProcessor(opts ProcessorOpts) *EventProcessor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.GasLimit == 0 {
		opts.GasLimit = DefaultGasLimit
	}
	return &EventProcessor{
		dest:     opts.Destination,
		gas:      opts.GasOracle,
		sink:     opts.Sink,
		wallet:   opts.RelayerWallet,
		gasLimit: opts.GasLimit,
		logger:   opts.Logger,
	}
}

// Process reports whether a mint was prepared and emitted for ev. Errors and
// panics are logged and reported as false.
func (p *EventProcessor) Process(ctx context.Context, ev types.LockEvent) (ok bool) {
	ctx, span := telemetry.Tracer().Start(ctx, "relayer.process", trace.WithAttributes(
		attribute.String("nonce", ev.Nonce.Hex()),
		attribute.Int64("block", int64(ev.BlockNumber)),
	))
	defer span.End()

	logger := p.logger.With(
		"user", ev.User.Hex(),
		"token", ev.Token.Hex(),
		"amount", ev.Amount,
		"nonce", ev.Nonce.Hex(),
		"block", ev.BlockNumber,
		"tx", ev.TxHash.Hex())

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing lock event: %v", r)
			logger.Error("failed to process lock event", "error", err)
			telemetry.RecordError(ctx, err)
			ok = false
		}
	}()

	logger.Info("processing lock event")

	tx, err := p.prepare(ctx, ev, logger)
	if err == nil {
		err = p.sink.Emit(ctx, tx)
		if err != nil {
			err = fmt.Errorf("failed to emit prepared mint: %w", err)
		}
	}
	if err != nil {
		logger.Error("failed to process lock event", "error", err)
		telemetry.RecordError(ctx, err)
		return false
	}

	logger.Info("mint transaction prepared", "destinationNonce", tx.Nonce, "chainId", tx.ChainID)
	return true
}

func (p *EventProcessor) prepare(ctx context.Context, ev types.LockEvent, logger *slog.Logger) (*types.UnsignedMintTx, error) {
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("invalid lock event: %w", err)
	}
	if !p.dest.Connected() {
		return nil, fmt.Errorf("destination chain %s is not connected", p.dest.Name())
	}

	var (
		accountNonce uint64
		chainId      *big.Int
		quote        *types.GasQuote
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("transaction count", func() error {
		n, err := p.dest.TransactionCount(gctx, p.wallet)
		if err != nil {
			return err
		}
		accountNonce = n
		return nil
	}))
	g.Go(guard("chain id", func() error {
		id, err := p.dest.ChainID(gctx)
		if err != nil {
			return err
		}
		chainId = id
		return nil
	}))
	g.Go(guard("gas quote", func() error {
		quote = p.gas.FetchFastTier(gctx)
		return nil
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gas := types.GasParams{GasLimit: p.gasLimit}
	if quote != nil && quote.MaxFee != nil && quote.MaxPriorityFee != nil {
		gas.MaxFeePerGas = quote.MaxFee
		gas.MaxPriorityFeePerGas = quote.MaxPriorityFee
	} else {
		logger.Warn("gas quote unavailable, preparing mint with gas limit only", "gasLimit", p.gasLimit)
		metrics.GasQuoteFallbacks.WithLabelValues(p.dest.Name()).Inc()
	}

	call := types.MintCall{
		User:        ev.User,
		Token:       ev.Token,
		Amount:      ev.Amount,
		SourceNonce: ev.Nonce,
	}
	data, err := p.dest.PackMint(call)
	if err != nil {
		return nil, err
	}

	return &types.UnsignedMintTx{
		From:         p.wallet,
		To:           p.dest.ContractAddress(),
		Nonce:        accountNonce,
		ChainID:      chainId,
		Call:         call,
		Data:         data,
		Gas:          gas,
		SourceBlock:  ev.BlockNumber,
		SourceTxHash: ev.TxHash,
	}, nil
}

// guard turns a panic inside an errgroup goroutine into an error, since
// recover in the caller cannot see it.
func guard(lookup string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in destination %s lookup: %v", lookup, r)
			}
		}()
		return fn()
	}
}
