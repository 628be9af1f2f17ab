package ethereum

import (
	"context"
	"fmt"
	"math/big"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/lightlink-network/ll-bridge-relayer/types"
)

// FetchLockEvents returns the decoded events emitted by the bridge contract in
// the inclusive block range, in chain order. Failures are logged and yield an
// empty result so a bad range never stops the poll loop.
func (c *Client) FetchLockEvents(ctx context.Context, from, to uint64, eventName string) []types.LockEvent {
	event, ok := c.abi.Events[eventName]
	if !ok {
		c.logger.Error("event not found in contract abi", "chain", c.Opts.Name, "event", eventName)
		return nil
	}

	logs, err := c.filterLogs(ctx, from, to, event.ID)
	if err != nil {
		c.logger.Error("failed to fetch events", "chain", c.Opts.Name, "event", eventName, "from", from, "to", to, "error", err)
		return nil
	}

	events := make([]types.LockEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		ev, err := decodeLockEvent(event, log)
		if err != nil {
			c.logger.Error("skipping undecodable log", "chain", c.Opts.Name, "tx", log.TxHash.Hex(), "logIndex", log.Index, "error", err)
			continue
		}
		events = append(events, ev)
	}

	return events
}

func (c *Client) filterLogs(ctx context.Context, from, to uint64, topic common.Hash) ([]ethtypes.Log, error) {
	backend, callCtx, cancel, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	query := geth.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.Opts.ContractAddress},
		Topics:    [][]common.Hash{{topic}},
	}

	return backend.FilterLogs(callCtx, query)
}

func decodeLockEvent(event abi.Event, log ethtypes.Log) (types.LockEvent, error) {
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(log.Topics) != len(indexed)+1 {
		return types.LockEvent{}, fmt.Errorf("unexpected topic count %d", len(log.Topics))
	}

	fields := map[string]interface{}{}
	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return types.LockEvent{}, fmt.Errorf("failed to parse topics: %w", err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(fields, log.Data); err != nil {
		return types.LockEvent{}, fmt.Errorf("failed to unpack data: %w", err)
	}

	ev := types.LockEvent{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}

	var ok bool
	if ev.User, ok = fields["user"].(common.Address); !ok {
		return types.LockEvent{}, fmt.Errorf("missing field user")
	}
	if ev.Token, ok = fields["token"].(common.Address); !ok {
		return types.LockEvent{}, fmt.Errorf("missing field token")
	}
	if ev.Amount, ok = fields["amount"].(*big.Int); !ok {
		return types.LockEvent{}, fmt.Errorf("missing field amount")
	}
	if ev.DestinationChainID, ok = fields["destinationChainId"].(*big.Int); !ok {
		return types.LockEvent{}, fmt.Errorf("missing field destinationChainId")
	}
	nonce, ok := fields["transactionNonce"].([32]byte)
	if !ok {
		return types.LockEvent{}, fmt.Errorf("missing field transactionNonce")
	}
	ev.Nonce = types.Nonce(nonce)

	return ev, nil
}
