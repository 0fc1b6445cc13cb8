// Package exitcodes defines the standard exit codes used by op-fwts.
package exitcodes

// Exit code constants used by op-fwts
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): No fwts result reached the configured fail level
// * TestFailure (1): At least one fwts result reached the configured fail level
// * RuntimeErr (2): The run could not be completed (missing fwts binary,
// unreadable system log, timeouts, bad configuration)
const (
	Success     = 0 // No qualifying failures
	TestFailure = 1 // Qualifying failure found
	RuntimeErr  = 2 // Runtime errors or timeouts
)
