package runner

import "time"

// fwts invocation constants
const (
	// DefaultBinary is the fwts executable looked up on PATH
	DefaultBinary = "fwts"

	// DefaultResultsLog is where fwts writes its detailed results
	DefaultResultsLog = "/tmp/fwts_results.log"

	// DefaultProcessTimeout disables the bound on a single fwts invocation
	DefaultProcessTimeout = time.Duration(0)

	// Fixed fwts arguments
	QuietFlag         = "-q"
	StdoutSummaryFlag = "--stdout-summary"
	ResultsLogFlag    = "-r"
	VersionFlag       = "--version"
	HelpFlag          = "-h"

	// ACPITestsID is the catalogue name of the ACPI test group, which newer
	// fwts releases run through ACPITestsFlag
	ACPITestsID   = "acpitests"
	ACPITestsFlag = "--acpitests"

	// Keep at most this much of stdout/stderr per invocation
	defaultOutputTailBytes = 1024 * 1024
)
