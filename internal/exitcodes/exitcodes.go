package exitcodes

// Exit codes for turbo-delete
// These codes form the operational contract with scripts and operators
const (
	Success         = 0 // Target fully removed
	PartialFailure  = 1 // Completed, but some entries were skipped
	InvalidConfig   = 2 // Configuration file invalid or bad arguments
	SafetyViolation = 3 // Safety guard blocked the target
	RuntimeError    = 4 // Runtime error during execution
	PathNotFound    = 5 // Target does not exist
	Cancelled       = 6 // User declined the confirmation prompt
)
