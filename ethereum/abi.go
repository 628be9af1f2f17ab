package ethereum

// ABI of the source-chain bridge contract. Only the lock event is needed.
const SourceBridgeABI = `[
  {
    "anonymous": false, "type": "event", "name": "TokensLocked",
    "inputs": [
      {"name": "user", "type": "address", "indexed": true},
      {"name": "token", "type": "address", "indexed": true},
      {"name": "amount", "type": "uint256", "indexed": false},
      {"name": "destinationChainId", "type": "uint256", "indexed": false},
      {"name": "transactionNonce", "type": "bytes32", "indexed": true}
    ]
  }
]`

// ABI of the destination-chain bridge contract. Only mint is needed.
const DestinationBridgeABI = `[
  {
    "type": "function", "name": "mint",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "user", "type": "address"},
      {"name": "token", "type": "address"},
      {"name": "amount", "type": "uint256"},
      {"name": "sourceTransactionNonce", "type": "bytes32"}
    ],
    "outputs": []
  }
]`

const (
	LockEventName  = "TokensLocked"
	MintMethodName = "mint"
)
