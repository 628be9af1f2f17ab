package types

// RelayerState represents the lifecycle states of the relay loop
type RelayerState string

const (
	// Initializing - chain connections are being established
	Initializing RelayerState = "INITIALIZING"

	// Running - poll cycles are being executed
	Running RelayerState = "RUNNING"

	// FaultRecovery - a cycle failed unexpectedly and the loop is backing off
	FaultRecovery RelayerState = "FAULT_RECOVERY"

	// ShuttingDown - cancellation was observed, the loop is draining
	ShuttingDown RelayerState = "SHUTTING_DOWN"

	// Stopped - the loop has exited
	Stopped RelayerState = "STOPPED"
)

// MintStatus represents the states a prepared mint can be in
type MintStatus string

const (
	// Prepared - an unsigned mint transaction was assembled and handed to the sink
	Prepared MintStatus = "PREPARED"
)
