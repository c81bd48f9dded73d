// Package faults classifies rarpack failures.
//
// Every component tags the errors it returns with one of the sentinel kinds
// declared here so the CLI and the packer can decide whether a failure is
// isolated to one job or one source folder, or whether it aborts the run
// before anything is dispatched.
package faults
