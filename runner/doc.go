// Package runner executes the fwts binary.
//
// The main components are:
//   - Executor: runs fwts once with the fixed summary options and captures
//     its stdout summary as the raw outcome of a test
//   - TestRunner: runs a list of named fwts tests one after another and
//     records their outcomes in a types.RunSummary
//
// Process creation goes through an injectable command builder so tests can
// substitute a shell script for the real binary.
package runner
