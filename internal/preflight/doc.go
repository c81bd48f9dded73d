// Package preflight provides readiness checks for the archiver and the
// filesystem paths a pack run depends on.
//
// The CLI "rarpack check" command calls RunAll and prints every result.
// The pack command relies on the narrower config and deps validation
// instead, so a slow notification server never delays compression.
package preflight
