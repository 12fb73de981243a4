package seqz

// Metrics provides observability data for a Hooks service.
// All counter fields use atomic operations for thread safety.
type Metrics struct {
	// Trigger Counters
	TriggersStarted   int64 // Sequences started (forward, error-only and wrap stages)
	TriggersSucceeded int64 // Sequences that completed without failure
	TriggersFailed    int64 // Sequences that completed with a failure
	InFlight          int64 // Sequences currently running

	// Handler Counters
	HandlersRun int64 // Handler invocations
	CleanupsRun int64 // Error handler invocations
	Faults      int64 // Faults delivered to the FaultHandler

	// Registration Metrics
	RegisteredHooks int64 // Current registered hooks (requires mutex read)
}
