package exitcodes

// Exit codes for the treekeeper daemon
// These codes form the operational contract with CI/CD and operators
const (
	Success         = 0 // Successful execution
	InvalidConfig   = 2 // Configuration file invalid or missing
	SafetyViolation = 3 // Safety validator blocked an operation
	RuntimeError    = 4 // Runtime error during execution
	AlreadyRunning  = 5 // Another daemon instance holds the lock
)
