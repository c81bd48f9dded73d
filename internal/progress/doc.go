// Package progress renders dispatcher output on a terminal.
//
// Console implements pool.Sink. Every line carries the completed/total
// counter, success lines are green and error lines red when the target
// writer is a terminal. Error lines go to the error writer so they survive
// redirecting stdout.
package progress
