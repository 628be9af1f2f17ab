// Package state holds the relay bookkeeping: the scan cursor and the set of
// transfer nonces that were already relayed.
package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lightlink-network/ll-bridge-relayer/types"
)

// NonceSet records transfer nonces whose mint was prepared successfully.
// It is owned by the relay loop and not safe for concurrent mutation.
type NonceSet struct {
	nonces map[types.Nonce]struct{}
}

func NewNonceSet(initial ...types.Nonce) *NonceSet {
	s := &NonceSet{nonces: make(map[types.Nonce]struct{}, len(initial))}
	for _, n := range initial {
		s.nonces[n] = struct{}{}
	}
	return s
}

func (s *NonceSet) Contains(n types.Nonce) bool {
	_, ok := s.nonces[n]
	return ok
}

func (s *NonceSet) Add(n types.Nonce) {
	s.nonces[n] = struct{}{}
}

func (s *NonceSet) Len() int { return len(s.nonces) }

// Slice returns the nonces in byte order.
func (s *NonceSet) Slice() []types.Nonce {
	out := make([]types.Nonce, 0, len(s.nonces))
	for n := range s.nonces {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}

// Cursor is the last source block fully scanned. It never moves backwards.
type Cursor struct {
	lastProcessedBlock uint64
}

func NewCursor(lastProcessedBlock uint64) *Cursor {
	return &Cursor{lastProcessedBlock: lastProcessedBlock}
}

func (c *Cursor) LastProcessedBlock() uint64 { return c.lastProcessedBlock }

// NextRange returns the window to scan for the given chain head, limited to
// limit blocks. ok is false when there are no new blocks.
func (c *Cursor) NextRange(head, limit uint64) (from, to uint64, ok bool) {
	from = c.lastProcessedBlock + 1
	if limit == 0 || head < from {
		return from, c.lastProcessedBlock, false
	}
	to = from + limit - 1
	if to > head {
		to = head
	}
	return from, to, true
}

// Advance moves the cursor to block. Moving backwards is an error.
func (c *Cursor) Advance(block uint64) error {
	if block < c.lastProcessedBlock {
		return fmt.Errorf("cursor cannot move backwards from %d to %d", c.lastProcessedBlock, block)
	}
	c.lastProcessedBlock = block
	return nil
}

// Snapshot is what a Store loads at startup and saves after every cycle.
type Snapshot struct {
	HasCursor          bool
	LastProcessedBlock uint64
	Nonces             []types.Nonce
}

// Store is the boundary to whatever keeps relay state between cycles. The
// relay loop never treats its in-process copy as the system of record.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// MemoryStore keeps the latest snapshot in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	snap Snapshot
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnapshot(m.snap), nil
}

func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = copySnapshot(snap)
	return nil
}

func copySnapshot(snap Snapshot) Snapshot {
	out := snap
	out.Nonces = append([]types.Nonce(nil), snap.Nonces...)
	return out
}
