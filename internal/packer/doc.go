// Package packer runs one pack invocation end to end.
//
// ProcessFolders performs the run-fatal checks (compressor executable,
// outcome log), discovers the backlog, opens a ledger row, and hands the
// backlog to a pool.Dispatcher wired to the OS launcher, the job factory,
// the outcome log, and the caller's progress sink. Per-job failures never
// surface as errors; they are counted in the returned pool.Summary.
package packer
