// Command rarpack compresses every entry of one or more input folders into
// its own RAR archive, running several compressor processes in parallel.
//
// Subcommands:
//   - pack: discover entries and compress them
//   - check: verify the compressor and the folders a run needs
//   - history: list previous runs from the run ledger
//   - logs: show the diagnostic log, optionally for one run
//   - config: create, validate, and print the configuration
//   - test-notify: send a test ntfy notification
package main
