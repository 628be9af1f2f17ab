package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Nonce is the 32-byte identifier of one bridge transfer. It is unrelated to
// an account's transaction sequence number.
type Nonce [32]byte

// ParseNonce decodes a hex string, with or without 0x prefix, into a Nonce.
func ParseNonce(s string) (Nonce, error) {
	var n Nonce
	b, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
	if err != nil {
		return n, fmt.Errorf("failed to decode nonce: %w", err)
	}
	if len(b) != len(n) {
		return n, fmt.Errorf("invalid nonce length %d, want %d", len(b), len(n))
	}
	copy(n[:], b)
	return n, nil
}

func (n Nonce) Hex() string { return "0x" + hex.EncodeToString(n[:]) }

func (n Nonce) String() string { return n.Hex() }

func (n Nonce) IsZero() bool { return n == Nonce{} }

func (n Nonce) MarshalText() ([]byte, error) { return []byte(n.Hex()), nil }

func (n *Nonce) UnmarshalText(text []byte) error {
	parsed, err := ParseNonce(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// LockEvent is a decoded TokensLocked log from the source chain.
type LockEvent struct {
	User               common.Address `json:"user"`
	Token              common.Address `json:"token"`
	Amount             *big.Int       `json:"amount"`
	DestinationChainID *big.Int       `json:"destination_chain_id"`
	Nonce              Nonce          `json:"transaction_nonce"`
	BlockNumber        uint64         `json:"block_number"`
	TxHash             common.Hash    `json:"tx_hash"`
	LogIndex           uint           `json:"log_index"`
}

// Validate checks the fields a mint cannot be built without.
func (e LockEvent) Validate() error {
	switch {
	case e.User == (common.Address{}):
		return fmt.Errorf("lock event has zero user address")
	case e.Token == (common.Address{}):
		return fmt.Errorf("lock event has zero token address")
	case e.Amount == nil || e.Amount.Sign() <= 0:
		return fmt.Errorf("lock event has non-positive amount")
	case e.Nonce.IsZero():
		return fmt.Errorf("lock event has zero transaction nonce")
	}
	return nil
}
