package relayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-bridge-relayer/ethereum"
	"github.com/lightlink-network/ll-bridge-relayer/types"
)

var (
	bridgeAddr = common.HexToAddress("0x00000000000000000000000000000000000b1d6e")
	walletAddr = common.HexToAddress("0x00000000000000000000000000000000000a11e7")
	userAddr   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenAddr  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fetchRange struct{ from, to uint64 }

type fakeSource struct {
	mu         sync.Mutex
	head       uint64
	connectErr error
	heightErr  error
	onHeight   func(call int) // may panic or mutate the fake
	heights    int
	connects   int
	ranges     []fetchRange
	events     []types.LockEvent
}

func (f *fakeSource) Name() string { return "source" }

func (f *fakeSource) Connect(ctx context.Context) error {
	f.connects++
	return f.connectErr
}

func (f *fakeSource) LatestHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	f.heights++
	call := f.heights
	f.mu.Unlock()
	if f.onHeight != nil {
		f.onHeight(call)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heightErr != nil {
		return 0, f.heightErr
	}
	return f.head, nil
}

// FetchLockEvents returns the configured events whose block is in range.
func (f *fakeSource) FetchLockEvents(ctx context.Context, from, to uint64, eventName string) []types.LockEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, fetchRange{from, to})
	var out []types.LockEvent
	for _, ev := range f.events {
		if ev.BlockNumber >= from && ev.BlockNumber <= to {
			out = append(out, ev)
		}
	}
	return out
}

type fakeDestination struct {
	mu         sync.Mutex
	connectErr error
	connected  bool
	connects   int
	txCount    uint64
	txCountErr error
	chainId    *big.Int
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{txCount: 7, chainId: big.NewInt(1891)}
}

func (f *fakeDestination) Name() string { return "destination" }

func (f *fakeDestination) Connect(ctx context.Context) error {
	f.connects++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeDestination) Connected() bool { return f.connected }

func (f *fakeDestination) ContractAddress() common.Address { return bridgeAddr }

func (f *fakeDestination) TransactionCount(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txCount, f.txCountErr
}

func (f *fakeDestination) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.chainId), nil
}

func (f *fakeDestination) PackMint(call types.MintCall) ([]byte, error) {
	return append([]byte{0x01, 0x02, 0x03, 0x04}, call.SourceNonce[:]...), nil
}

type fakeOracle struct {
	quote *types.GasQuote
}

func (f *fakeOracle) FetchFastTier(ctx context.Context) *types.GasQuote { return f.quote }

func quote() *fakeOracle {
	return &fakeOracle{quote: &types.GasQuote{MaxFee: big.NewInt(30_000_000_000), MaxPriorityFee: big.NewInt(2_000_000_000)}}
}

// recordingSink keeps emitted mints and can fail or panic on demand.
type recordingSink struct {
	mu      sync.Mutex
	emitted []*types.UnsignedMintTx
	failFor map[types.Nonce]int // remaining failures per nonce
	panics  bool
}

func (s *recordingSink) Emit(ctx context.Context, tx *types.UnsignedMintTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("sink exploded")
	}
	if s.failFor[tx.Call.SourceNonce] > 0 {
		s.failFor[tx.Call.SourceNonce]--
		return errors.New("sink unavailable")
	}
	s.emitted = append(s.emitted, tx)
	return nil
}

func (s *recordingSink) nonces() []types.Nonce {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Nonce, 0, len(s.emitted))
	for _, tx := range s.emitted {
		out = append(out, tx.Call.SourceNonce)
	}
	return out
}

func nonce(i int) types.Nonce {
	var n types.Nonce
	copy(n[:], fmt.Sprintf("nonce-%04d", i))
	return n
}

func lockEvent(block uint64, n types.Nonce) types.LockEvent {
	return types.LockEvent{
		User:               userAddr,
		Token:              tokenAddr,
		Amount:             big.NewInt(1000),
		DestinationChainID: big.NewInt(1891),
		Nonce:              n,
		BlockNumber:        block,
		TxHash:             common.BigToHash(new(big.Int).SetUint64(block)),
	}
}

func testLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

var errConnectionRefused = fmt.Errorf("%w: connection refused", ethereum.ErrConnection)
