package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// GasQuote is the "fast" tier returned by the gas station, converted to wei.
type GasQuote struct {
	MaxFee         *big.Int `json:"max_fee"`
	MaxPriorityFee *big.Int `json:"max_priority_fee"`
}

// GasParams are the fee fields of a prepared transaction. When the fee caps
// are nil only the gas limit is set.
type GasParams struct {
	GasLimit             uint64   `json:"gas" bson:"gas"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty" bson:"-"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty" bson:"-"`
}

// HasFeeCaps reports whether EIP-1559 fee caps were quoted.
func (g GasParams) HasFeeCaps() bool {
	return g.MaxFeePerGas != nil && g.MaxPriorityFeePerGas != nil
}

// MintCall holds the arguments of the destination mint function.
type MintCall struct {
	User        common.Address `json:"user"`
	Token       common.Address `json:"token"`
	Amount      *big.Int       `json:"amount"`
	SourceNonce Nonce          `json:"sourceTransactionNonce"`
}

// UnsignedMintTx is the terminal artifact of the relayer: a mint call ready to
// be signed and broadcast by an external collaborator.
type UnsignedMintTx struct {
	From         common.Address `json:"from"`
	To           common.Address `json:"to"`
	Nonce        uint64         `json:"nonce"`
	ChainID      *big.Int       `json:"chainId"`
	Call         MintCall       `json:"call"`
	Data         hexutil.Bytes  `json:"data"`
	Gas          GasParams      `json:"gas_params"`
	SourceBlock  uint64         `json:"source_block"`
	SourceTxHash common.Hash    `json:"source_tx_hash"`
}

// ToTransaction converts the prepared mint into an unsigned go-ethereum
// transaction. A dynamic fee transaction is built when fee caps are present.
func (tx *UnsignedMintTx) ToTransaction() *ethtypes.Transaction {
	to := tx.To
	if tx.Gas.HasFeeCaps() {
		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   new(big.Int).Set(tx.ChainID),
			Nonce:     tx.Nonce,
			GasTipCap: new(big.Int).Set(tx.Gas.MaxPriorityFeePerGas),
			GasFeeCap: new(big.Int).Set(tx.Gas.MaxFeePerGas),
			Gas:       tx.Gas.GasLimit,
			To:        &to,
			Value:     new(big.Int),
			Data:      common.CopyBytes(tx.Data),
		})
	}
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce: tx.Nonce,
		Gas:   tx.Gas.GasLimit,
		To:    &to,
		Value: new(big.Int),
		Data:  common.CopyBytes(tx.Data),
	})
}
