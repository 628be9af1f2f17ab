package relayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/lightlink-network/ll-bridge-relayer/logging"
	"github.com/lightlink-network/ll-bridge-relayer/metrics"
	"github.com/lightlink-network/ll-bridge-relayer/state"
	"github.com/lightlink-network/ll-bridge-relayer/telemetry"
	"github.com/lightlink-network/ll-bridge-relayer/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultEventName    = "TokensLocked"
	defaultBlockLimit   = 100
	defaultRunInterval  = 30 * time.Second
	defaultFaultBackoff = 60 * time.Second
)

// SourceChain is what the relayer needs from the chain lock events are read
// from.
type SourceChain interface {
	Name() string
	Connect(ctx context.Context) error
	LatestHeight(ctx context.Context) (uint64, error)
	FetchLockEvents(ctx context.Context, from, to uint64, eventName string) []types.LockEvent
}

type Relayer struct {
	source    SourceChain
	processor *EventProcessor
	store     state.Store
	cursor    *state.Cursor
	nonces    *state.NonceSet
	retries   *RetryQueue
	logger    *slog.Logger
	Opts      *Opts

	mu     sync.RWMutex
	status Status
}

type Opts struct {
	Source        SourceChain
	Destination   DestinationChain
	GasOracle     GasOracle
	Sink          Sink
	Store         state.Store
	EventName     string
	StartBlock    uint64
	BlockLimit    uint64
	RunInterval   time.Duration
	FaultBackoff  time.Duration
	RelayerWallet common.Address
	GasLimit      uint64
	MaxRetries    int
	Logger        *slog.Logger
}

// Status is a point-in-time view of the relay loop for readers outside it.
type Status struct {
	State              types.RelayerState `json:"state"`
	SourceChain        string             `json:"source_chain"`
	DestinationChain   string             `json:"destination_chain"`
	LastProcessedBlock uint64             `json:"last_processed_block"`
	ChainHead          uint64             `json:"chain_head"`
	ProcessedNonces    int                `json:"processed_nonces"`
	PendingRetries     int                `json:"pending_retries"`
	Cycles             uint64             `json:"cycles"`
	Faults             uint64             `json:"faults"`
	LastCycleAt        time.Time          `json:"last_cycle_at"`
	LastError          string             `json:"last_error,omitempty"`
}

// CycleResult summarises one poll cycle.
type CycleResult struct {
	ID         string `json:"id"`
	Scanned    bool   `json:"scanned"`
	From       uint64 `json:"from"`
	To         uint64 `json:"to"`
	Head       uint64 `json:"head"`
	Fetched    int    `json:"fetched"`
	Retried    int    `json:"retried"`
	Relayed    int    `json:"relayed"`
	Failed     int    `json:"failed"`
	Dropped    int    `json:"dropped"`
	Duplicates int    `json:"duplicates"`
}

// New connects to the source chain, then the destination chain, and loads
// the relay state. Nothing else is built if either connection fails.
func New(ctx context.Context, opts Opts) (*Relayer, error) {
	if opts.Source == nil || opts.Destination == nil {
		return nil, errors.New("source and destination chains are required")
	}
	if opts.GasOracle == nil || opts.Sink == nil {
		return nil, errors.New("gas oracle and sink are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Store == nil {
		opts.Store = state.NewMemoryStore()
	}
	if opts.EventName == "" {
		opts.EventName = defaultEventName
	}
	if opts.BlockLimit == 0 {
		opts.BlockLimit = defaultBlockLimit
	}
	if opts.RunInterval <= 0 {
		opts.RunInterval = defaultRunInterval
	}
	if opts.FaultBackoff <= 0 {
		opts.FaultBackoff = defaultFaultBackoff
	}

	r := &Relayer{
		source: opts.Source,
		store:  opts.Store,
		logger: opts.Logger,
		Opts:   &opts,
	}
	r.status.SourceChain = opts.Source.Name()
	r.status.DestinationChain = opts.Destination.Name()
	r.setState(types.Initializing)

	if err := opts.Source.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to source chain %s: %w", opts.Source.Name(), err)
	}
	if err := opts.Destination.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to destination chain %s: %w", opts.Destination.Name(), err)
	}

	snap, err := opts.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load relay state: %w", err)
	}
	start := opts.StartBlock
	if snap.HasCursor {
		start = snap.LastProcessedBlock
	}
	r.cursor = state.NewCursor(start)
	r.nonces = state.NewNonceSet(snap.Nonces...)
	r.retries = NewRetryQueue(opts.MaxRetries)

	r.processor = NewEventProcessor(ProcessorOpts{
		Destination:   opts.Destination,
		GasOracle:     opts.GasOracle,
		Sink:          opts.Sink,
		RelayerWallet: opts.RelayerWallet,
		GasLimit:      opts.GasLimit,
		Logger:        opts.Logger.With("component", "processor"),
	})

	r.mu.Lock()
	r.status.LastProcessedBlock = start
	r.status.ProcessedNonces = r.nonces.Len()
	r.mu.Unlock()

	r.logger.Info("relayer initialized",
		"source", opts.Source.Name(),
		"destination", opts.Destination.Name(),
		"lastProcessedBlock", start,
		"processedNonces", r.nonces.Len())

	return r, nil
}

// Run polls until ctx is cancelled. A cycle in flight when ctx is cancelled
// is completed first. Faults never end the loop.
func (r *Relayer) Run(ctx context.Context) error {
	r.setState(types.Running)
	r.logger.Info("starting relayer", "interval", r.Opts.RunInterval, "blockLimit", r.Opts.BlockLimit)

	for ctx.Err() == nil {
		wait := r.Opts.RunInterval

		if _, err := r.PollOnce(context.WithoutCancel(ctx)); err != nil {
			logging.Critical(r.logger, "unexpected error in poll cycle, backing off",
				"error", err,
				"backoff", r.Opts.FaultBackoff)
			metrics.CycleFaults.WithLabelValues(r.source.Name()).Inc()
			r.recordFault(err)
			r.setState(types.FaultRecovery)
			wait = r.Opts.FaultBackoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
			r.setState(types.Running)
		}
	}

	r.setState(types.ShuttingDown)
	r.logger.Info("shutting down relayer", "lastProcessedBlock", r.cursor.LastProcessedBlock())
	r.saveSnapshot(context.WithoutCancel(ctx))
	r.setState(types.Stopped)
	return nil
}

// PollOnce scans the next block window, relays its lock events together with
// any queued retries and advances the cursor to the end of the window.
func (r *Relayer) PollOnce(ctx context.Context) (res CycleResult, err error) {
	res.ID = uuid.NewString()
	logger := r.logger.With("cycle_id", res.ID)
	chain := r.source.Name()

	ctx, span := telemetry.Tracer().Start(ctx, "relayer.poll", trace.WithAttributes(attribute.String("cycle_id", res.ID)))
	defer span.End()

	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in poll cycle: %v", rec)
		}
		telemetry.RecordError(ctx, err)
		metrics.CycleLatency.WithLabelValues(chain).Observe(time.Since(started).Seconds())
	}()

	head, err := r.source.LatestHeight(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to get latest block: %w", err)
	}
	res.Head = head
	metrics.ChainHead.WithLabelValues(chain).Set(float64(head))

	from, to, ok := r.cursor.NextRange(head, r.Opts.BlockLimit)
	if !ok {
		logger.Info("no new blocks", "chainHead", head, "lastProcessedBlock", r.cursor.LastProcessedBlock())
		r.recordCycle(res)
		return res, nil
	}
	res.Scanned, res.From, res.To = true, from, to

	logger.Info("processing blocks",
		"startBlock", from,
		"endBlock", to,
		"batchSize", to-from+1,
		"chainHead", head)

	events := r.source.FetchLockEvents(ctx, from, to, r.Opts.EventName)
	res.Fetched = len(events)
	metrics.EventsFetched.WithLabelValues(chain).Add(float64(len(events)))

	batch := r.retries.Take()
	res.Retried = len(batch)
	batch = append(batch, events...)
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].BlockNumber < batch[j].BlockNumber
	})

	for _, ev := range batch {
		if r.nonces.Contains(ev.Nonce) {
			logger.Warn("skipping already processed nonce", "nonce", ev.Nonce.Hex(), "block", ev.BlockNumber)
			r.retries.Forget(ev.Nonce)
			res.Duplicates++
			metrics.DuplicatesSkipped.WithLabelValues(chain).Inc()
			continue
		}

		if r.processor.Process(ctx, ev) {
			r.nonces.Add(ev.Nonce)
			r.retries.Forget(ev.Nonce)
			res.Relayed++
			metrics.EventsRelayed.WithLabelValues(chain).Inc()
			continue
		}

		res.Failed++
		metrics.EventsFailed.WithLabelValues(chain).Inc()
		if !r.retries.Fail(ev) {
			res.Dropped++
			metrics.RetriesDropped.WithLabelValues(chain).Inc()
			logger.Error("dropping lock event", "nonce", ev.Nonce.Hex(), "block", ev.BlockNumber, "maxRetries", r.Opts.MaxRetries)
		}
	}

	if err := r.cursor.Advance(to); err != nil {
		return res, err
	}
	metrics.CursorBlock.WithLabelValues(chain).Set(float64(to))
	r.saveSnapshot(ctx)

	logger.Info("batch complete",
		"blocksProcessed", to-from+1,
		"events", len(batch),
		"relayed", res.Relayed,
		"failed", res.Failed,
		"duplicates", res.Duplicates)

	r.recordCycle(res)
	return res, nil
}

// Status returns a copy of the current relay status.
func (r *Relayer) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func (r *Relayer) saveSnapshot(ctx context.Context) {
	snap := state.Snapshot{
		HasCursor:          true,
		LastProcessedBlock: r.cursor.LastProcessedBlock(),
		Nonces:             r.nonces.Slice(),
	}
	if err := r.store.Save(ctx, snap); err != nil {
		r.logger.Error("failed to save relay state", "error", err)
	}
}

func (r *Relayer) setState(s types.RelayerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.State != s {
		r.logger.Debug("relayer state changed", "from", r.status.State, "to", s)
	}
	r.status.State = s
}

func (r *Relayer) recordCycle(res CycleResult) {
	metrics.CyclesTotal.WithLabelValues(r.source.Name()).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Cycles++
	r.status.LastCycleAt = time.Now()
	r.status.ChainHead = res.Head
	r.status.LastProcessedBlock = r.cursor.LastProcessedBlock()
	r.status.ProcessedNonces = r.nonces.Len()
	r.status.PendingRetries = r.retries.Len()
	r.status.LastError = ""
}

func (r *Relayer) recordFault(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.Faults++
	r.status.LastError = err.Error()
}
