// Package jobs turns discovered entries into fully specified compression jobs.
//
// A Job carries everything the dispatcher needs to launch and later account
// for one compressor process: the destination folder to create, the archive
// name, the password (if any) and the exact argument vector. Layout maps
// entries to destination folders and is shared with discovery so already
// compressed entries can be skipped on re-runs.
package jobs
