// Package logs reads rarpack's diagnostic log file for the CLI.
//
// Last returns the final lines of the file with bounded memory; Follow polls
// for appended lines until its context is cancelled. Both accept a line
// filter so a single run can be isolated by its run id.
package logs
