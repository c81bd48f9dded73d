// Package notifications delivers ntfy push messages about pack runs.
//
// A run announces how many entries it is about to compress, reports its final
// counts, and raises an alert when a fatal error aborts it. When no ntfy topic
// is configured the service degrades to a no-op so callers never need to
// branch on configuration.
package notifications
