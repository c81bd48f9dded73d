// Package history keeps a SQLite ledger of pack runs and their per-job results.
//
// Every run gets a UUID and one row in runs; each finished job adds a row to
// job_results with its exit code and error kind. Passwords are never stored
// here: the outcome CSV remains the only place they are written. The ledger
// backs the `rarpack history` command.
package history
