package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/lightlink-network/ll-bridge-relayer/types"
)

// Sink receives every prepared mint. Signing and broadcasting happen
// downstream of it.
type Sink interface {
	Emit(ctx context.Context, tx *types.UnsignedMintTx) error
}

// LogSink logs each prepared mint and writes it as one JSON line to w.
type LogSink struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

var _ Sink = &LogSink{}

// NewLogSink returns a sink writing to w. A nil w only logs.
func NewLogSink(w io.Writer, logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{w: w, logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, tx *types.UnsignedMintTx) error {
	s.logger.Info("prepared mint transaction",
		"to", tx.To.Hex(),
		"from", tx.From.Hex(),
		"nonce", tx.Nonce,
		"chainId", tx.ChainID,
		"sourceNonce", tx.Call.SourceNonce.Hex(),
		"gas", tx.Gas.GasLimit)

	if s.w == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.NewEncoder(s.w).Encode(tx); err != nil {
		return fmt.Errorf("failed to write prepared mint: %w", err)
	}
	return nil
}

// MultiSink emits to each sink in order and stops at the first failure, so a
// later sink never sees a mint an earlier one rejected.
type MultiSink []Sink

var _ Sink = MultiSink{}

func (m MultiSink) Emit(ctx context.Context, tx *types.UnsignedMintTx) error {
	for i, s := range m {
		if err := s.Emit(ctx, tx); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
