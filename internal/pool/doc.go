// Package pool runs compression jobs on a bounded set of reusable worker slots.
//
// A Dispatcher owns the backlog, the slots and the run counters. Every
// bookkeeping decision (popping the backlog, binding a slot, counting a
// completion, writing the outcome log) happens on the goroutine that calls
// Run; external processes report their exit through a single completion
// channel. Stop may be called from any goroutine and is applied by the
// control loop: the backlog is dropped, bound processes receive a graceful
// termination request, and the run finalizes once every slot is idle.
package pool
