// Package config loads, normalizes, and validates rarpack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML or YAML files, and honours environment fallbacks such
// as RARPACK_PASSWORD. The Config type centralizes every knob the CLI needs;
// RunConfig is the immutable per-invocation snapshot handed to the packer once
// command-line overrides have been applied.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, clamped worker counts, and clear validation errors.
package config
