package models

import (
	"time"

	"github.com/lightlink-network/ll-bridge-relayer/types"
)

// PreparedMint is the archived form of an unsigned mint transaction. Big
// numbers are stored as decimal strings.
type PreparedMint struct {
	SourceNonce          string `json:"source_nonce" bson:"source_nonce"`
	User                 string `json:"user" bson:"user"`
	Token                string `json:"token" bson:"token"`
	Amount               string `json:"amount" bson:"amount"`
	From                 string `json:"from" bson:"from"`
	To                   string `json:"to" bson:"to"`
	AccountNonce         uint64 `json:"account_nonce" bson:"account_nonce"`
	ChainID              string `json:"chain_id" bson:"chain_id"`
	Data                 string `json:"data" bson:"data"`
	GasLimit             uint64 `json:"gas_limit" bson:"gas_limit"`
	MaxFeePerGas         string `json:"max_fee_per_gas,omitempty" bson:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas string `json:"max_priority_fee_per_gas,omitempty" bson:"max_priority_fee_per_gas,omitempty"`
	SourceBlock          uint64 `json:"source_block" bson:"source_block"`
	SourceTxHash         string `json:"source_tx_hash" bson:"source_tx_hash"`
	Status               string `json:"status" bson:"status"`
	CreatedAt            int64  `json:"created_at" bson:"created_at"`
}

func NewPreparedMint(tx *types.UnsignedMintTx, now time.Time) PreparedMint {
	m := PreparedMint{
		SourceNonce:  tx.Call.SourceNonce.Hex(),
		User:         tx.Call.User.Hex(),
		Token:        tx.Call.Token.Hex(),
		Amount:       tx.Call.Amount.String(),
		From:         tx.From.Hex(),
		To:           tx.To.Hex(),
		AccountNonce: tx.Nonce,
		ChainID:      tx.ChainID.String(),
		Data:         tx.Data.String(),
		GasLimit:     tx.Gas.GasLimit,
		SourceBlock:  tx.SourceBlock,
		SourceTxHash: tx.SourceTxHash.Hex(),
		Status:       string(types.Prepared),
		CreatedAt:    now.Unix(),
	}
	if tx.Gas.HasFeeCaps() {
		m.MaxFeePerGas = tx.Gas.MaxFeePerGas.String()
		m.MaxPriorityFeePerGas = tx.Gas.MaxPriorityFeePerGas.String()
	}
	return m
}
