// Package outcome writes the semicolon separated record of successful jobs.
//
// In per-run mode every invocation creates a new timestamped file. In history
// mode one file accumulates rows across runs; an advisory lock on a sidecar
// file keeps rows from concurrent runs from interleaving.
package outcome
