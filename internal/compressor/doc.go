// Package compressor starts the external archiver for a job and exposes the
// running process to the dispatcher.
//
// Each process runs in its own process group so terminal interrupts reach
// rarpack first; the dispatcher then decides whether to terminate or kill.
// Only the exit code is interpreted. A bounded tail of stderr is kept for
// diagnostics.
package compressor
