package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-bridge-relayer/types"
)

// ChecksumAddress validates a hex address. The returned address renders in
// EIP-55 form via Hex.
func (c *Client) ChecksumAddress(addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid address %q", addr)
	}
	return common.HexToAddress(addr), nil
}

// TransactionCount returns the account's transaction count at the latest
// block, used as the nonce of the next prepared transaction.
func (c *Client) TransactionCount(ctx context.Context, account common.Address) (uint64, error) {
	backend, callCtx, cancel, err := c.prepare(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	nonce, err := backend.NonceAt(callCtx, account, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction count for %s on %s: %w", account.Hex(), c.Opts.Name, err)
	}
	return nonce, nil
}

// ChainID returns the chain id observed during Connect. It is only queried
// again if no id was cached.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	cached := c.chainId
	c.mu.RUnlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	backend, callCtx, cancel, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	chainId, err := backend.ChainID(callCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chainId from %s: %w", c.Opts.Name, err)
	}

	c.mu.Lock()
	c.chainId = chainId
	c.mu.Unlock()

	return new(big.Int).Set(chainId), nil
}

// PackMint encodes the calldata of mint(user, token, amount, sourceTransactionNonce).
func (c *Client) PackMint(call types.MintCall) ([]byte, error) {
	if _, ok := c.abi.Methods[MintMethodName]; !ok {
		return nil, fmt.Errorf("method %s not found in contract abi of %s", MintMethodName, c.Opts.Name)
	}
	data, err := c.abi.Pack(MintMethodName, call.User, call.Token, call.Amount, [32]byte(call.SourceNonce))
	if err != nil {
		return nil, fmt.Errorf("failed to pack mint call: %w", err)
	}
	return data, nil
}
